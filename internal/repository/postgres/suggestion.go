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

// PostgresSuggestionRepository implements the SuggestionRepository interface
type PostgresSuggestionRepository struct {
	pool   *pgxpool.Pool
	tables *TableNames
}

// NewSuggestionRepository creates a new suggestion repository
func NewSuggestionRepository(config *RepositoryConfig) repositories.SuggestionRepository {
	return &PostgresSuggestionRepository{
		pool:   config.Pool,
		tables: config.Tables,
	}
}

// Create persists a suggestion
func (r *PostgresSuggestionRepository) Create(ctx context.Context, documentID string, suggestion *doc.Suggestion) error {
	anchor, err := json.Marshal(suggestion.Anchor)
	if err != nil {
		return fmt.Errorf("marshal anchor: %w", err)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (id, document_id, anchor, original_text, proposed_text, reason, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, r.tables.Suggestions)

	_, err = GetExecutor(ctx, r.pool).Exec(ctx, query,
		suggestion.ID,
		documentID,
		anchor,
		suggestion.OriginalText,
		suggestion.ProposedText,
		suggestion.Reason,
		string(suggestion.Status),
		suggestion.CreatedAt,
	)

	if err != nil {
		if isPgDuplicateError(err) {
			return fmt.Errorf("suggestion %s already exists: %w", suggestion.ID, domain.ErrConflict)
		}
		if isPgForeignKeyError(err) {
			return fmt.Errorf("document %s: %w", documentID, domain.ErrNotFound)
		}
		return fmt.Errorf("create suggestion: %w", err)
	}

	return nil
}

// GetByDocument retrieves a document's suggestions in creation order
func (r *PostgresSuggestionRepository) GetByDocument(ctx context.Context, documentID string) ([]*doc.Suggestion, error) {
	query := fmt.Sprintf(`
		SELECT id, anchor, original_text, proposed_text, reason, status, created_at
		FROM %s
		WHERE document_id = $1
		ORDER BY created_at ASC
	`, r.tables.Suggestions)

	rows, err := GetExecutor(ctx, r.pool).Query(ctx, query, documentID)
	if err != nil {
		return nil, fmt.Errorf("get suggestions: %w", err)
	}
	defer rows.Close()

	var suggestions []*doc.Suggestion
	for rows.Next() {
		var suggestion doc.Suggestion
		var anchor []byte
		var status string
		err := rows.Scan(
			&suggestion.ID,
			&anchor,
			&suggestion.OriginalText,
			&suggestion.ProposedText,
			&suggestion.Reason,
			&status,
			&suggestion.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan suggestion: %w", err)
		}
		if err := json.Unmarshal(anchor, &suggestion.Anchor); err != nil {
			return nil, fmt.Errorf("unmarshal anchor for suggestion %s: %w", suggestion.ID, err)
		}
		suggestion.Status = doc.SuggestionStatus(status)
		suggestions = append(suggestions, &suggestion)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate suggestions: %w", err)
	}

	return suggestions, nil
}

// SetStatus updates a suggestion's status
func (r *PostgresSuggestionRepository) SetStatus(ctx context.Context, suggestionID string, status doc.SuggestionStatus) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET status = $2
		WHERE id = $1
	`, r.tables.Suggestions)

	result, err := GetExecutor(ctx, r.pool).Exec(ctx, query, suggestionID, string(status))
	if err != nil {
		return fmt.Errorf("update suggestion status: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("suggestion %s: %w", suggestionID, domain.ErrNotFound)
	}

	return nil
}
