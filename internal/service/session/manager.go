package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"docasst/internal/blockkind"
	"docasst/internal/config"
	"docasst/internal/domain/models/doc"
	"docasst/internal/domain/repositories"
	"docasst/internal/livetree"
	"docasst/internal/service/ai"
	"docasst/internal/service/annotation"
	"docasst/internal/service/docsync"
	"docasst/internal/service/spanres"
)

const hookPersistTimeout = 5 * time.Second

// Repos bundles the persistence dependencies a session needs.
type Repos struct {
	Documents     repositories.DocumentRepository
	Comments      repositories.CommentRepository
	Suggestions   repositories.SuggestionRepository
	ChangeRecords repositories.ChangeRecordRepository
	Tx            repositories.TransactionManager
}

// Manager opens and caches editing sessions, one per document. Sessions stay
// open until Close; reopening a document returns the existing session.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session

	kinds     *blockkind.Registry
	sync      *docsync.Engine
	resolver  *spanres.Resolver
	suggester *ai.Suggester
	repos     Repos
	logger    *slog.Logger
}

// NewManager creates a session manager.
func NewManager(
	kinds *blockkind.Registry,
	syncEngine *docsync.Engine,
	resolver *spanres.Resolver,
	suggester *ai.Suggester,
	repos Repos,
	logger *slog.Logger,
) *Manager {
	return &Manager{
		sessions:  make(map[string]*Session),
		kinds:     kinds,
		sync:      syncEngine,
		resolver:  resolver,
		suggester: suggester,
		repos:     repos,
		logger:    logger,
	}
}

// Open returns the session for a document, loading it from the store on
// first access. The loaded state is imported into a fresh live tree and the
// persisted annotations are seeded into the annotation engine.
func (m *Manager) Open(ctx context.Context, documentID string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.sessions[documentID]; ok {
		return s, nil
	}

	state, err := m.repos.Documents.GetByID(ctx, documentID)
	if err != nil {
		return nil, err
	}
	comments, err := m.repos.Comments.GetByDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}
	suggestions, err := m.repos.Suggestions.GetByDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}
	records, err := m.repos.ChangeRecords.GetByDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}

	s := m.build(state)
	s.annotations.Load(comments, suggestions, records)
	m.sessions[documentID] = s

	m.logger.Info("session opened",
		"document_id", documentID,
		"version", state.Version,
		"blocks", len(state.Blocks),
		"comments", len(comments),
		"suggestions", len(suggestions),
	)
	return s, nil
}

// Create persists a new document and opens its session.
func (m *Manager) Create(ctx context.Context, state *doc.DocState) (*Session, error) {
	if err := m.kinds.ValidateBlocks(state.Blocks); err != nil {
		return nil, err
	}
	if err := m.repos.Documents.Create(ctx, state); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.build(state)
	m.sessions[state.ID] = s
	m.logger.Info("session created", "document_id", state.ID)
	return s, nil
}

// build assembles a session around a loaded state.
func (m *Manager) build(state *doc.DocState) *Session {
	tree := livetree.NewTree()
	m.sync.Import(tree, state)

	s := &Session{
		documentID:  state.ID,
		title:       state.Title,
		version:     state.Version,
		tree:        tree,
		kinds:       m.kinds,
		sync:        m.sync,
		suggester:   m.suggester,
		docs:        m.repos.Documents,
		comments:    m.repos.Comments,
		suggestions: m.repos.Suggestions,
		tx:          m.repos.Tx,
		logger:      m.logger.With("document_id", state.ID),
	}

	// The debounce timer fires off-goroutine; the guard hands its tree read
	// to the session lock so it never races a request mutating the tree.
	guard := func(f func()) {
		s.mu.Lock()
		defer s.mu.Unlock()
		f()
	}
	s.exporter = docsync.NewExporter(m.sync, tree, config.ExportDebounce, guard, m.persistSink(state.ID))
	s.exporter.SetMeta(state.ID, state.Title, state.Version)

	// Annotation engine hooks: audit records are generated deep inside tree
	// transactions where no request context exists, so they persist in the
	// background. Comments and suggestions persist synchronously in the
	// session operations that create them.
	s.annotations = annotation.NewEngine(tree, m.sync, m.resolver, m.kinds, annotation.Hooks{
		RecordLogged: m.persistRecord(state.ID),
	}, s.logger)

	// Any committed transaction schedules a debounced export.
	s.unsubscribe = tree.Subscribe(func(livetree.Origin) {
		s.exporter.Mark()
	})
	return s
}

// persistSink writes debounced snapshots to the store.
func (m *Manager) persistSink(documentID string) func(*doc.DocState) {
	return func(state *doc.DocState) {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), hookPersistTimeout)
			defer cancel()
			if err := m.repos.Documents.Save(ctx, state); err != nil {
				m.logger.Error("debounced save failed",
					"document_id", documentID,
					"error", err,
				)
			}
		}()
	}
}

// persistRecord writes an audit record in the background. A failed write is
// logged and dropped; the in-memory log still holds the record.
func (m *Manager) persistRecord(documentID string) func(doc.ChangeRecord) {
	return func(record doc.ChangeRecord) {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), hookPersistTimeout)
			defer cancel()
			if err := m.repos.ChangeRecords.Create(ctx, documentID, record); err != nil {
				m.logger.Error("change record persist failed",
					"document_id", documentID,
					"record_id", record.ID,
					"error", err,
				)
			}
		}()
	}
}

// Discard drops a document's session without a final save. Used when the
// document itself is being deleted.
func (m *Manager) Discard(documentID string) error {
	m.mu.Lock()
	s, ok := m.sessions[documentID]
	delete(m.sessions, documentID)
	m.mu.Unlock()

	if ok {
		s.Close()
		m.logger.Info("session discarded", "document_id", documentID)
	}
	return nil
}

// CloseSession flushes and closes one document's session.
func (m *Manager) CloseSession(ctx context.Context, documentID string) error {
	m.mu.Lock()
	s, ok := m.sessions[documentID]
	delete(m.sessions, documentID)
	m.mu.Unlock()

	if !ok {
		return nil
	}
	if _, err := s.Save(ctx); err != nil {
		s.Close()
		return fmt.Errorf("close session %s: %w", documentID, err)
	}
	s.Close()
	m.logger.Info("session closed", "document_id", documentID)
	return nil
}

// Close flushes and closes every open session.
func (m *Manager) Close(ctx context.Context) {
	m.mu.Lock()
	sessions := make([]*Session, 0, len(m.sessions))
	ids := make([]string, 0, len(m.sessions))
	for id, s := range m.sessions {
		sessions = append(sessions, s)
		ids = append(ids, id)
	}
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	for i, s := range sessions {
		if _, err := s.Save(ctx); err != nil {
			m.logger.Error("final save failed", "document_id", ids[i], "error", err)
		}
		s.Close()
	}
}
