package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"docasst/internal/config"
	"docasst/internal/domain/models/doc"
	"docasst/internal/repository/postgres"
)

func main() {
	// Parse command-line flags
	dropTables := flag.Bool("drop-tables", false, "Drop all tables before seeding (fresh start)")
	schemaOnly := flag.Bool("schema-only", false, "Only set up schema, don't seed documents")
	flag.Parse()

	// Load .env file
	_ = godotenv.Load()

	// Load configuration
	cfg := config.Load()

	// SAFETY: Prevent destructive operations in production
	if cfg.Environment == "prod" && *dropTables {
		log.Fatalf("BLOCKED: Cannot run --drop-tables in production environment")
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	log.Printf("Seeding database (environment: %s, prefix: %s)", cfg.Environment, cfg.TablePrefix)

	// Create database connection pool
	ctx := context.Background()
	pool, err := postgres.CreateConnectionPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	tables := postgres.NewTableNames(cfg.TablePrefix)

	if *dropTables {
		log.Println("Dropping all tables...")
		if err := dropAllTables(ctx, pool, tables); err != nil {
			log.Fatalf("Failed to drop tables: %v", err)
		}
		log.Println("Tables dropped")
	}

	log.Println("Ensuring database schema is up to date...")
	if err := runSchema(ctx, pool, tables, cfg.TablePrefix); err != nil {
		log.Fatalf("Failed to run schema: %v", err)
	}
	log.Println("Schema ready")

	if *schemaOnly {
		log.Println("Schema setup complete (schema-only mode)")
		return
	}

	// Create repositories
	repoConfig := &postgres.RepositoryConfig{
		Pool:   pool,
		Tables: tables,
		Logger: logger,
	}
	docRepo := postgres.NewDocumentRepository(repoConfig)

	log.Println("Seeding documents...")
	for i, state := range seedDocuments() {
		if err := docRepo.Create(ctx, state); err != nil {
			log.Printf("Failed to create document '%s': %v", state.Title, err)
			continue
		}
		log.Printf("Created document %d: %s (ID: %s)", i+1, state.Title, state.ID)
	}

	log.Println("Seeding complete!")
}

// runSchema creates tables if they don't exist
func runSchema(ctx context.Context, pool *pgxpool.Pool, tables *postgres.TableNames, tablePrefix string) error {
	createDocuments := `
		CREATE TABLE IF NOT EXISTS ` + tables.Documents + ` (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			version INTEGER NOT NULL DEFAULT 1,
			blocks JSONB NOT NULL,
			updated_at TIMESTAMPTZ DEFAULT NOW()
		)
	`
	if _, err := pool.Exec(ctx, createDocuments); err != nil {
		return err
	}

	createComments := `
		CREATE TABLE IF NOT EXISTS ` + tables.Comments + ` (
			id TEXT PRIMARY KEY,
			document_id TEXT NOT NULL REFERENCES ` + tables.Documents + `(id) ON DELETE CASCADE,
			parent_id TEXT REFERENCES ` + tables.Comments + `(id) ON DELETE CASCADE,
			anchor JSONB NOT NULL,
			body TEXT NOT NULL,
			author TEXT NOT NULL,
			resolved BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ DEFAULT NOW()
		)
	`
	if _, err := pool.Exec(ctx, createComments); err != nil {
		return err
	}

	createSuggestions := `
		CREATE TABLE IF NOT EXISTS ` + tables.Suggestions + ` (
			id TEXT PRIMARY KEY,
			document_id TEXT NOT NULL REFERENCES ` + tables.Documents + `(id) ON DELETE CASCADE,
			anchor JSONB NOT NULL,
			original_text TEXT NOT NULL,
			proposed_text TEXT NOT NULL,
			reason TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL,
			created_at TIMESTAMPTZ DEFAULT NOW()
		)
	`
	if _, err := pool.Exec(ctx, createSuggestions); err != nil {
		return err
	}

	createChangeRecords := `
		CREATE TABLE IF NOT EXISTS ` + tables.ChangeRecords + ` (
			id TEXT PRIMARY KEY,
			document_id TEXT NOT NULL REFERENCES ` + tables.Documents + `(id) ON DELETE CASCADE,
			block_id TEXT NOT NULL,
			kind TEXT NOT NULL,
			original_text TEXT NOT NULL,
			modified_text TEXT NOT NULL,
			reason TEXT NOT NULL DEFAULT '',
			actor TEXT NOT NULL,
			created_at TIMESTAMPTZ DEFAULT NOW()
		)
	`
	if _, err := pool.Exec(ctx, createChangeRecords); err != nil {
		return err
	}

	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_` + tablePrefix + `comments_document ON ` + tables.Comments + `(document_id)`,
		`CREATE INDEX IF NOT EXISTS idx_` + tablePrefix + `comments_parent ON ` + tables.Comments + `(parent_id)`,
		`CREATE INDEX IF NOT EXISTS idx_` + tablePrefix + `suggestions_document ON ` + tables.Suggestions + `(document_id)`,
		`CREATE INDEX IF NOT EXISTS idx_` + tablePrefix + `change_records_document ON ` + tables.ChangeRecords + `(document_id)`,
		`CREATE INDEX IF NOT EXISTS idx_` + tablePrefix + `change_records_block ON ` + tables.ChangeRecords + `(document_id, block_id)`,
	}
	for _, indexSQL := range indexes {
		if _, err := pool.Exec(ctx, indexSQL); err != nil {
			return err
		}
	}

	return nil
}

// dropAllTables drops all tables in reverse order (to respect foreign keys)
func dropAllTables(ctx context.Context, pool *pgxpool.Pool, tables *postgres.TableNames) error {
	tableNames := []string{
		tables.ChangeRecords,
		tables.Suggestions,
		tables.Comments,
		tables.Documents,
	}

	for _, table := range tableNames {
		dropSQL := "DROP TABLE IF EXISTS " + table + " CASCADE"
		if _, err := pool.Exec(ctx, dropSQL); err != nil {
			return err
		}
		log.Printf("  Dropped %s", table)
	}

	return nil
}

func seedDocuments() []*doc.DocState {
	return []*doc.DocState{
		{
			ID:    uuid.NewString(),
			Title: "Q3 Incident Review",
			Blocks: []*doc.Block{
				{
					ID:   uuid.NewString(),
					Kind: doc.KindHeading,
					Level: 1,
					Runs: []doc.TextRun{{Text: "Q3 Incident Review"}},
				},
				{
					ID:   uuid.NewString(),
					Kind: doc.KindParagraph,
					Runs: []doc.TextRun{
						{Text: "On July 14 the ingestion pipeline stalled for "},
						{Text: "41 minutes", Bold: true},
						{Text: " while the retry queue drained. No customer data was lost."},
					},
				},
				{
					ID:   uuid.NewString(),
					Kind: doc.KindHeading,
					Level: 2,
					Runs: []doc.TextRun{{Text: "Timeline"}},
				},
				{
					ID:   uuid.NewString(),
					Kind: doc.KindBulletedList,
					Children: []*doc.Block{
						{
							ID:   uuid.NewString(),
							Kind: doc.KindParagraph,
							Runs: []doc.TextRun{{Text: "09:02 - alert fired on queue depth"}},
						},
						{
							ID:   uuid.NewString(),
							Kind: doc.KindParagraph,
							Runs: []doc.TextRun{{Text: "09:15 - rollback initiated"}},
						},
						{
							ID:   uuid.NewString(),
							Kind: doc.KindParagraph,
							Runs: []doc.TextRun{{Text: "09:43 - queue fully drained"}},
						},
					},
				},
				{
					ID:   uuid.NewString(),
					Kind: doc.KindQuote,
					Runs: []doc.TextRun{{Text: "Retries are not a substitute for backpressure.", Italic: true}},
				},
			},
			UpdatedAt: time.Now(),
		},
		{
			ID:    uuid.NewString(),
			Title: "Drafting Notes",
			Blocks: []*doc.Block{
				{
					ID:   uuid.NewString(),
					Kind: doc.KindHeading,
					Level: 1,
					Runs: []doc.TextRun{{Text: "Drafting Notes"}},
				},
				{
					ID:   uuid.NewString(),
					Kind: doc.KindParagraph,
					Runs: []doc.TextRun{{Text: "Loose ideas to fold into the main document later."}},
				},
				{
					ID:   uuid.NewString(),
					Kind: doc.KindCode,
					Runs: []doc.TextRun{{Text: "curl -s localhost:8080/health | jq .status", Code: true}},
				},
			},
			UpdatedAt: time.Now(),
		},
	}
}
