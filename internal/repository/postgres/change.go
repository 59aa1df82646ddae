package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"docasst/internal/domain"
	"docasst/internal/domain/models/doc"
	"docasst/internal/domain/repositories"
)

// PostgresChangeRecordRepository implements the ChangeRecordRepository
// interface. The table is insert-only: the audit log never mutates.
type PostgresChangeRecordRepository struct {
	pool   *pgxpool.Pool
	tables *TableNames
}

// NewChangeRecordRepository creates a new change record repository
func NewChangeRecordRepository(config *RepositoryConfig) repositories.ChangeRecordRepository {
	return &PostgresChangeRecordRepository{
		pool:   config.Pool,
		tables: config.Tables,
	}
}

// Create appends an audit record
func (r *PostgresChangeRecordRepository) Create(ctx context.Context, documentID string, record doc.ChangeRecord) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (id, document_id, block_id, kind, original_text, modified_text, reason, actor, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, r.tables.ChangeRecords)

	_, err := GetExecutor(ctx, r.pool).Exec(ctx, query,
		record.ID,
		documentID,
		record.BlockID,
		string(record.Kind),
		record.OriginalText,
		record.ModifiedText,
		record.Reason,
		record.Actor,
		record.Timestamp,
	)

	if err != nil {
		if isPgDuplicateError(err) {
			return fmt.Errorf("change record %s already exists: %w", record.ID, domain.ErrConflict)
		}
		if isPgForeignKeyError(err) {
			return fmt.Errorf("document %s: %w", documentID, domain.ErrNotFound)
		}
		return fmt.Errorf("create change record: %w", err)
	}

	return nil
}

// GetByDocument retrieves a document's records, oldest first
func (r *PostgresChangeRecordRepository) GetByDocument(ctx context.Context, documentID string) ([]doc.ChangeRecord, error) {
	query := fmt.Sprintf(`
		SELECT id, block_id, kind, original_text, modified_text, reason, actor, created_at
		FROM %s
		WHERE document_id = $1
		ORDER BY created_at ASC
	`, r.tables.ChangeRecords)

	return r.query(ctx, query, documentID)
}

// GetByBlock retrieves one block's records, oldest first
func (r *PostgresChangeRecordRepository) GetByBlock(ctx context.Context, documentID, blockID string) ([]doc.ChangeRecord, error) {
	query := fmt.Sprintf(`
		SELECT id, block_id, kind, original_text, modified_text, reason, actor, created_at
		FROM %s
		WHERE document_id = $1 AND block_id = $2
		ORDER BY created_at ASC
	`, r.tables.ChangeRecords)

	return r.query(ctx, query, documentID, blockID)
}

func (r *PostgresChangeRecordRepository) query(ctx context.Context, query string, args ...interface{}) ([]doc.ChangeRecord, error) {
	rows, err := GetExecutor(ctx, r.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("get change records: %w", err)
	}
	defer rows.Close()

	var records []doc.ChangeRecord
	for rows.Next() {
		var record doc.ChangeRecord
		var kind string
		err := rows.Scan(
			&record.ID,
			&record.BlockID,
			&kind,
			&record.OriginalText,
			&record.ModifiedText,
			&record.Reason,
			&record.Actor,
			&record.Timestamp,
		)
		if err != nil {
			return nil, fmt.Errorf("scan change record: %w", err)
		}
		record.Kind = doc.ChangeKind(kind)
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate change records: %w", err)
	}

	return records, nil
}
