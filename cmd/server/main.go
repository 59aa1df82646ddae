package main

import (
	"context"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/cors"

	"docasst/internal/auth"
	"docasst/internal/blockkind"
	"docasst/internal/config"
	"docasst/internal/handler"
	"docasst/internal/middleware"
	"docasst/internal/repository/postgres"
	"docasst/internal/service/ai"
	"docasst/internal/service/ai/anthropic"
	"docasst/internal/service/docsync"
	"docasst/internal/service/session"
	"docasst/internal/service/spanres"
)

func main() {
	// Load .env file (silently ignore if it doesn't exist - for production)
	_ = godotenv.Load()

	// Load configuration
	cfg := config.Load()

	// Setup structured logging
	logLevel := slog.LevelInfo
	if cfg.Debug {
		logLevel = slog.LevelDebug
	}

	var logOut io.Writer = os.Stdout
	if cfg.LogDir != "" {
		logFile, err := config.SetupLogFile(cfg.LogDir, cfg.LogMaxFiles)
		if err != nil {
			log.Fatalf("Failed to set up log file: %v", err)
		}
		defer logFile.Close()
		logOut = io.MultiWriter(os.Stdout, logFile)
	}

	logger := slog.New(slog.NewJSONHandler(logOut, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("server starting",
		"environment", cfg.Environment,
		"port", cfg.Port,
		"table_prefix", cfg.TablePrefix,
	)

	// Create JWT verifier
	jwtVerifier, err := auth.NewJWTVerifier(cfg.JWKSURL, logger)
	if err != nil {
		log.Fatalf("Failed to create JWT verifier: %v", err)
	}
	defer jwtVerifier.Close()

	// Create pgx connection pool
	ctx := context.Background()
	pool, err := postgres.CreateConnectionPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to create connection pool: %v", err)
	}
	defer pool.Close()

	logger.Info("database connected",
		"max_conns", 25,
		"min_conns", 5,
	)

	// Create repositories
	tables := postgres.NewTableNames(cfg.TablePrefix)
	repoConfig := &postgres.RepositoryConfig{
		Pool:   pool,
		Tables: tables,
		Logger: logger,
	}
	repos := session.Repos{
		Documents:     postgres.NewDocumentRepository(repoConfig),
		Comments:      postgres.NewCommentRepository(repoConfig),
		Suggestions:   postgres.NewSuggestionRepository(repoConfig),
		ChangeRecords: postgres.NewChangeRecordRepository(repoConfig),
		Tx:            postgres.NewTransactionManager(pool),
	}

	// Initialize block-kind capability registry
	kinds, err := blockkind.NewRegistry()
	if err != nil {
		log.Fatalf("Failed to initialize block kind registry: %v", err)
	}
	logger.Info("block kind registry initialized", "kinds", len(kinds.List()))

	// AI suggestion provider
	provider, err := anthropic.NewProvider(cfg.AnthropicAPIKey, cfg.SuggestionModel)
	if err != nil {
		log.Fatalf("Failed to create suggestion provider: %v", err)
	}
	suggester := ai.NewSuggester(provider, logger)

	// Core services
	syncEngine := docsync.NewEngine(kinds, logger)
	resolver := spanres.NewResolver(logger)
	sessions := session.NewManager(kinds, syncEngine, resolver, suggester, repos, logger)

	// Handlers
	docHandler := handler.NewDocumentHandler(sessions, repos.Documents, logger)
	commentHandler := handler.NewCommentHandler(sessions, logger)
	suggestionHandler := handler.NewSuggestionHandler(sessions, logger)
	changeHandler := handler.NewChangeHandler(sessions, logger)
	legacyHandler := handler.NewLegacyHandler(sessions, syncEngine, logger)
	kindsHandler := handler.NewKindsHandler(kinds, logger)

	logger.Info("services initialized")

	// Create HTTP router (Go 1.22+ enhanced patterns)
	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("GET /health", docHandler.HealthCheck)

	// Block kind capabilities
	mux.HandleFunc("GET /api/block-kinds", kindsHandler.ListKinds)

	// Document routes
	mux.HandleFunc("GET /api/documents", docHandler.ListDocuments)
	mux.HandleFunc("POST /api/documents", docHandler.CreateDocument)
	mux.HandleFunc("GET /api/documents/{id}", docHandler.GetDocument)
	mux.HandleFunc("DELETE /api/documents/{id}", docHandler.DeleteDocument)
	mux.HandleFunc("PUT /api/documents/{id}/blocks", docHandler.UpdateBlocks)
	mux.HandleFunc("POST /api/documents/{id}/save", docHandler.SaveDocument)
	mux.HandleFunc("POST /api/documents/{id}/blocks/{blockID}/turn-into", docHandler.TurnInto)
	mux.HandleFunc("POST /api/documents/{id}/selection/classify", docHandler.ClassifySelection)

	// Comment routes
	mux.HandleFunc("GET /api/documents/{id}/comments", commentHandler.ListComments)
	mux.HandleFunc("POST /api/documents/{id}/comments", commentHandler.CreateComment)
	mux.HandleFunc("POST /api/documents/{id}/comments/{commentID}/replies", commentHandler.ReplyComment)
	mux.HandleFunc("POST /api/documents/{id}/comments/{commentID}/resolve", commentHandler.ResolveComment)
	mux.HandleFunc("DELETE /api/documents/{id}/comments/{commentID}", commentHandler.DeleteComment)
	mux.HandleFunc("GET /api/documents/{id}/comments/{commentID}/highlights", commentHandler.CommentHighlights)

	// Suggestion routes
	mux.HandleFunc("GET /api/documents/{id}/suggestions", suggestionHandler.ListSuggestions)
	mux.HandleFunc("POST /api/documents/{id}/suggestions", suggestionHandler.RequestSuggestions)
	mux.HandleFunc("POST /api/documents/{id}/suggestions/{suggestionID}/accept", suggestionHandler.AcceptSuggestion)
	mux.HandleFunc("POST /api/documents/{id}/suggestions/{suggestionID}/reject", suggestionHandler.RejectSuggestion)
	mux.HandleFunc("GET /api/documents/{id}/suggestions/{suggestionID}/highlights", suggestionHandler.SuggestionHighlights)

	// Audit log routes
	mux.HandleFunc("GET /api/documents/{id}/changes", changeHandler.ListChanges)
	mux.HandleFunc("GET /api/documents/{id}/blocks/{blockID}/changes", changeHandler.ListBlockChanges)
	mux.HandleFunc("POST /api/documents/{id}/blocks/{blockID}/verify", changeHandler.VerifyBlock)

	// Legacy format routes
	mux.HandleFunc("GET /api/documents/{id}/legacy", legacyHandler.ExportLegacy)
	mux.HandleFunc("POST /api/documents/{id}/legacy", legacyHandler.ImportLegacy)

	// Build middleware chain
	var h http.Handler = mux

	// Apply middleware in reverse order (they wrap each other)
	// Order: CORS -> Recovery -> Auth -> Routes
	h = middleware.AuthMiddleware(jwtVerifier)(h)
	h = middleware.Recovery(logger)(h)

	// CORS - Must be before auth to handle OPTIONS pre-flight requests
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   strings.Split(cfg.CORSOrigins, ","),
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Origin", "Content-Type", "Accept", "Authorization"},
		AllowCredentials: true,
	})
	h = corsHandler.Handler(h)

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      h,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Flush open sessions before exit
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-stop
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		sessions.Close(shutdownCtx)
		_ = server.Shutdown(shutdownCtx)
	}()

	// Start server
	logger.Info("server listening", "port", cfg.Port)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("Failed to start server: %v", err)
	}
}
