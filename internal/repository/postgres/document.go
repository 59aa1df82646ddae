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

// PostgresDocumentRepository implements the DocumentRepository interface.
// Block trees are stored as a JSONB column; the document row carries the
// monotonically increasing version.
type PostgresDocumentRepository struct {
	pool   *pgxpool.Pool
	tables *TableNames
}

// NewDocumentRepository creates a new document repository
func NewDocumentRepository(config *RepositoryConfig) repositories.DocumentRepository {
	return &PostgresDocumentRepository{
		pool:   config.Pool,
		tables: config.Tables,
	}
}

// Create creates a new document
func (r *PostgresDocumentRepository) Create(ctx context.Context, state *doc.DocState) error {
	blocks, err := json.Marshal(state.Blocks)
	if err != nil {
		return fmt.Errorf("marshal blocks: %w", err)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (id, title, version, blocks, updated_at)
		VALUES ($1, $2, 1, $3, NOW())
		RETURNING version, updated_at
	`, r.tables.Documents)

	err = GetExecutor(ctx, r.pool).QueryRow(ctx, query,
		state.ID,
		state.Title,
		blocks,
	).Scan(&state.Version, &state.UpdatedAt)

	if err != nil {
		if isPgDuplicateError(err) {
			return fmt.Errorf("document '%s' already exists: %w", state.ID, domain.ErrConflict)
		}
		return fmt.Errorf("create document: %w", err)
	}

	return nil
}

// GetByID retrieves a document by ID
func (r *PostgresDocumentRepository) GetByID(ctx context.Context, id string) (*doc.DocState, error) {
	query := fmt.Sprintf(`
		SELECT id, title, version, blocks, updated_at
		FROM %s
		WHERE id = $1
	`, r.tables.Documents)

	var state doc.DocState
	var blocks []byte
	err := GetExecutor(ctx, r.pool).QueryRow(ctx, query, id).Scan(
		&state.ID,
		&state.Title,
		&state.Version,
		&blocks,
		&state.UpdatedAt,
	)

	if err != nil {
		if isPgNoRowsError(err) {
			return nil, fmt.Errorf("document %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get document: %w", err)
	}

	if err := json.Unmarshal(blocks, &state.Blocks); err != nil {
		return nil, fmt.Errorf("unmarshal blocks for document %s: %w", id, err)
	}

	return &state, nil
}

// Save persists a new snapshot of an existing document, bumping the stored
// version. The caller's state is updated with the new version and timestamp.
func (r *PostgresDocumentRepository) Save(ctx context.Context, state *doc.DocState) error {
	blocks, err := json.Marshal(state.Blocks)
	if err != nil {
		return fmt.Errorf("marshal blocks: %w", err)
	}

	query := fmt.Sprintf(`
		UPDATE %s
		SET title = $2, blocks = $3, version = version + 1, updated_at = NOW()
		WHERE id = $1
		RETURNING version, updated_at
	`, r.tables.Documents)

	err = GetExecutor(ctx, r.pool).QueryRow(ctx, query,
		state.ID,
		state.Title,
		blocks,
	).Scan(&state.Version, &state.UpdatedAt)

	if err != nil {
		if isPgNoRowsError(err) {
			return fmt.Errorf("document %s: %w", state.ID, domain.ErrNotFound)
		}
		return fmt.Errorf("save document: %w", err)
	}

	return nil
}

// Delete deletes a document and its annotations
func (r *PostgresDocumentRepository) Delete(ctx context.Context, id string) error {
	query := fmt.Sprintf(`
		DELETE FROM %s
		WHERE id = $1
	`, r.tables.Documents)

	result, err := GetExecutor(ctx, r.pool).Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("document %s: %w", id, domain.ErrNotFound)
	}

	return nil
}

// List retrieves all documents without their block content
func (r *PostgresDocumentRepository) List(ctx context.Context) ([]doc.DocState, error) {
	query := fmt.Sprintf(`
		SELECT id, title, version, updated_at
		FROM %s
		ORDER BY updated_at DESC
	`, r.tables.Documents)

	rows, err := GetExecutor(ctx, r.pool).Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	var documents []doc.DocState
	for rows.Next() {
		var state doc.DocState
		err := rows.Scan(
			&state.ID,
			&state.Title,
			&state.Version,
			&state.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		documents = append(documents, state)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", err)
	}

	return documents, nil
}
