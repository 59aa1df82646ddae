package repositories

import (
	"context"

	"docasst/internal/domain/models/doc"
)

// DocumentRepository defines data access operations for document states.
type DocumentRepository interface {
	// Create creates a new document
	Create(ctx context.Context, state *doc.DocState) error

	// GetByID retrieves a document by ID
	GetByID(ctx context.Context, id string) (*doc.DocState, error)

	// Save persists a new snapshot of an existing document, bumping the
	// stored version
	Save(ctx context.Context, state *doc.DocState) error

	// Delete deletes a document and its annotations
	Delete(ctx context.Context, id string) error

	// List retrieves all documents without their block content
	List(ctx context.Context) ([]doc.DocState, error)
}

// CommentRepository defines data access operations for comment threads.
// Replies are rows pointing at their parent; loading a document's comments
// reassembles the threads.
type CommentRepository interface {
	// Create persists a top-level comment
	Create(ctx context.Context, documentID string, comment *doc.Comment) error

	// CreateReply persists a reply under a parent comment
	CreateReply(ctx context.Context, documentID, parentID string, reply *doc.Comment) error

	// GetByDocument retrieves a document's comment threads, replies nested
	GetByDocument(ctx context.Context, documentID string) ([]*doc.Comment, error)

	// SetResolved updates a comment's resolved flag
	SetResolved(ctx context.Context, commentID string, resolved bool) error

	// Delete deletes a comment and its replies
	Delete(ctx context.Context, commentID string) error
}

// SuggestionRepository defines data access operations for AI suggestions.
type SuggestionRepository interface {
	// Create persists a suggestion
	Create(ctx context.Context, documentID string, suggestion *doc.Suggestion) error

	// GetByDocument retrieves a document's suggestions in creation order
	GetByDocument(ctx context.Context, documentID string) ([]*doc.Suggestion, error)

	// SetStatus updates a suggestion's status
	SetStatus(ctx context.Context, suggestionID string, status doc.SuggestionStatus) error
}

// ChangeRecordRepository defines data access for the append-only audit log.
// Records are inserted and read, never updated or deleted.
type ChangeRecordRepository interface {
	// Create appends an audit record
	Create(ctx context.Context, documentID string, record doc.ChangeRecord) error

	// GetByDocument retrieves a document's records, oldest first
	GetByDocument(ctx context.Context, documentID string) ([]doc.ChangeRecord, error)

	// GetByBlock retrieves one block's records, oldest first
	GetByBlock(ctx context.Context, documentID, blockID string) ([]doc.ChangeRecord, error)
}
