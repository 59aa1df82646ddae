package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"docasst/internal/domain"
	"docasst/internal/domain/models/doc"
	"docasst/internal/domain/repositories"
)

// PostgresCommentRepository implements the CommentRepository interface.
// Threads are flat rows: replies carry their parent's id and are reassembled
// on load. Anchors are stored as JSONB.
type PostgresCommentRepository struct {
	pool   *pgxpool.Pool
	tables *TableNames
}

// NewCommentRepository creates a new comment repository
func NewCommentRepository(config *RepositoryConfig) repositories.CommentRepository {
	return &PostgresCommentRepository{
		pool:   config.Pool,
		tables: config.Tables,
	}
}

// Create persists a top-level comment
func (r *PostgresCommentRepository) Create(ctx context.Context, documentID string, comment *doc.Comment) error {
	return r.insert(ctx, documentID, nil, comment)
}

// CreateReply persists a reply under a parent comment
func (r *PostgresCommentRepository) CreateReply(ctx context.Context, documentID, parentID string, reply *doc.Comment) error {
	return r.insert(ctx, documentID, &parentID, reply)
}

func (r *PostgresCommentRepository) insert(ctx context.Context, documentID string, parentID *string, comment *doc.Comment) error {
	anchor, err := json.Marshal(comment.Anchor)
	if err != nil {
		return fmt.Errorf("marshal anchor: %w", err)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (id, document_id, parent_id, anchor, body, author, resolved, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, r.tables.Comments)

	_, err = GetExecutor(ctx, r.pool).Exec(ctx, query,
		comment.ID,
		documentID,
		parentID,
		anchor,
		comment.Body,
		comment.Author,
		comment.Resolved,
		comment.Timestamp,
	)

	if err != nil {
		if isPgDuplicateError(err) {
			return fmt.Errorf("comment %s already exists: %w", comment.ID, domain.ErrConflict)
		}
		if isPgForeignKeyError(err) {
			return fmt.Errorf("document %s: %w", documentID, domain.ErrNotFound)
		}
		return fmt.Errorf("create comment: %w", err)
	}

	return nil
}

// GetByDocument retrieves a document's comment threads, replies nested under
// their parents, both levels in creation order.
func (r *PostgresCommentRepository) GetByDocument(ctx context.Context, documentID string) ([]*doc.Comment, error) {
	query := fmt.Sprintf(`
		SELECT id, parent_id, anchor, body, author, resolved, created_at
		FROM %s
		WHERE document_id = $1
		ORDER BY created_at ASC
	`, r.tables.Comments)

	rows, err := GetExecutor(ctx, r.pool).Query(ctx, query, documentID)
	if err != nil {
		return nil, fmt.Errorf("get comments: %w", err)
	}
	defer rows.Close()

	var threads []*doc.Comment
	byID := make(map[string]*doc.Comment)
	orphans := make(map[string][]*doc.Comment)

	for rows.Next() {
		var comment doc.Comment
		var parentID *string
		var anchor []byte
		err := rows.Scan(
			&comment.ID,
			&parentID,
			&anchor,
			&comment.Body,
			&comment.Author,
			&comment.Resolved,
			&comment.Timestamp,
		)
		if err != nil {
			return nil, fmt.Errorf("scan comment: %w", err)
		}
		if err := json.Unmarshal(anchor, &comment.Anchor); err != nil {
			return nil, fmt.Errorf("unmarshal anchor for comment %s: %w", comment.ID, err)
		}

		byID[comment.ID] = &comment
		if parentID == nil {
			threads = append(threads, &comment)
			// Attach any replies scanned before their parent
			comment.Replies = append(comment.Replies, orphans[comment.ID]...)
			delete(orphans, comment.ID)
			continue
		}
		if parent, ok := byID[*parentID]; ok {
			parent.Replies = append(parent.Replies, &comment)
		} else {
			orphans[*parentID] = append(orphans[*parentID], &comment)
		}
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate comments: %w", err)
	}

	return threads, nil
}

// SetResolved updates a comment's resolved flag
func (r *PostgresCommentRepository) SetResolved(ctx context.Context, commentID string, resolved bool) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET resolved = $2
		WHERE id = $1
	`, r.tables.Comments)

	result, err := GetExecutor(ctx, r.pool).Exec(ctx, query, commentID, resolved)
	if err != nil {
		return fmt.Errorf("resolve comment: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("comment %s: %w", commentID, domain.ErrNotFound)
	}

	return nil
}

// Delete deletes a comment and its replies
func (r *PostgresCommentRepository) Delete(ctx context.Context, commentID string) error {
	query := fmt.Sprintf(`
		DELETE FROM %s
		WHERE id = $1 OR parent_id = $1
	`, r.tables.Comments)

	result, err := GetExecutor(ctx, r.pool).Exec(ctx, query, commentID)
	if err != nil {
		return fmt.Errorf("delete comment: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("comment %s: %w", commentID, domain.ErrNotFound)
	}

	return nil
}
