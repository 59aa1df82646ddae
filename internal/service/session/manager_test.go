package session

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"docasst/internal/blockkind"
	"docasst/internal/domain"
	"docasst/internal/domain/models/doc"
	"docasst/internal/domain/repositories"
	"docasst/internal/service/ai"
	"docasst/internal/service/annotation"
	"docasst/internal/service/docsync"
	"docasst/internal/service/spanres"
)

// In-memory repository fakes. All state is guarded by one mutex because the
// exporter and record hooks write from background goroutines.

type memStore struct {
	mu          sync.Mutex
	docs        map[string]*doc.DocState
	comments    map[string][]*doc.Comment
	suggestions map[string][]*doc.Suggestion
	records     map[string][]doc.ChangeRecord
	suggStatus  map[string]doc.SuggestionStatus
}

func newMemStore() *memStore {
	return &memStore{
		docs:        make(map[string]*doc.DocState),
		comments:    make(map[string][]*doc.Comment),
		suggestions: make(map[string][]*doc.Suggestion),
		records:     make(map[string][]doc.ChangeRecord),
		suggStatus:  make(map[string]doc.SuggestionStatus),
	}
}

type memDocs struct{ s *memStore }

func (m *memDocs) Create(ctx context.Context, state *doc.DocState) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	state.Version = 1
	m.s.docs[state.ID] = state.Clone()
	return nil
}

func (m *memDocs) GetByID(ctx context.Context, id string) (*doc.DocState, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	state, ok := m.s.docs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return state.Clone(), nil
}

func (m *memDocs) Save(ctx context.Context, state *doc.DocState) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	stored, ok := m.s.docs[state.ID]
	if !ok {
		return domain.ErrNotFound
	}
	saved := state.Clone()
	saved.Version = stored.Version + 1
	m.s.docs[state.ID] = saved
	state.Version = saved.Version
	return nil
}

func (m *memDocs) Delete(ctx context.Context, id string) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	delete(m.s.docs, id)
	return nil
}

func (m *memDocs) List(ctx context.Context) ([]doc.DocState, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var out []doc.DocState
	for _, state := range m.s.docs {
		meta := *state
		meta.Blocks = nil
		out = append(out, meta)
	}
	return out, nil
}

type memComments struct{ s *memStore }

func (m *memComments) Create(ctx context.Context, documentID string, c *doc.Comment) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	m.s.comments[documentID] = append(m.s.comments[documentID], c)
	return nil
}

func (m *memComments) CreateReply(ctx context.Context, documentID, parentID string, reply *doc.Comment) error {
	return nil // threaded in memory already
}

func (m *memComments) GetByDocument(ctx context.Context, documentID string) ([]*doc.Comment, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	return append([]*doc.Comment(nil), m.s.comments[documentID]...), nil
}

func (m *memComments) SetResolved(ctx context.Context, commentID string, resolved bool) error {
	return nil
}

func (m *memComments) Delete(ctx context.Context, commentID string) error { return nil }

type memSuggestions struct{ s *memStore }

func (m *memSuggestions) Create(ctx context.Context, documentID string, sg *doc.Suggestion) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	m.s.suggestions[documentID] = append(m.s.suggestions[documentID], sg)
	return nil
}

func (m *memSuggestions) GetByDocument(ctx context.Context, documentID string) ([]*doc.Suggestion, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	return append([]*doc.Suggestion(nil), m.s.suggestions[documentID]...), nil
}

func (m *memSuggestions) SetStatus(ctx context.Context, suggestionID string, status doc.SuggestionStatus) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	m.s.suggStatus[suggestionID] = status
	return nil
}

type memRecords struct{ s *memStore }

func (m *memRecords) Create(ctx context.Context, documentID string, r doc.ChangeRecord) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	m.s.records[documentID] = append(m.s.records[documentID], r)
	return nil
}

func (m *memRecords) GetByDocument(ctx context.Context, documentID string) ([]doc.ChangeRecord, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	return append([]doc.ChangeRecord(nil), m.s.records[documentID]...), nil
}

func (m *memRecords) GetByBlock(ctx context.Context, documentID, blockID string) ([]doc.ChangeRecord, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var out []doc.ChangeRecord
	for _, r := range m.s.records[documentID] {
		if r.BlockID == blockID {
			out = append(out, r)
		}
	}
	return out, nil
}

type memTx struct{}

func (memTx) ExecTx(ctx context.Context, fn repositories.TxFn) error {
	return fn(ctx)
}

// scriptedProvider returns whatever edits the test loads into it.
type scriptedProvider struct {
	mu    sync.Mutex
	edits []ai.ProposedEdit
}

func (p *scriptedProvider) Name() string { return "scripted" }

func (p *scriptedProvider) Suggest(ctx context.Context, req ai.SuggestRequest) ([]ai.ProposedEdit, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.edits, nil
}

func newTestManager(t *testing.T) (*Manager, *memStore, *scriptedProvider) {
	t.Helper()

	kinds, err := blockkind.NewRegistry()
	if err != nil {
		t.Fatalf("NewRegistry() error: %v", err)
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := newMemStore()
	provider := &scriptedProvider{}

	repos := Repos{
		Documents:     &memDocs{s: store},
		Comments:      &memComments{s: store},
		Suggestions:   &memSuggestions{s: store},
		ChangeRecords: &memRecords{s: store},
		Tx:            memTx{},
	}
	m := NewManager(
		kinds,
		docsync.NewEngine(kinds, logger),
		spanres.NewResolver(logger),
		ai.NewSuggester(provider, logger),
		repos,
		logger,
	)
	t.Cleanup(func() { m.Close(context.Background()) })
	return m, store, provider
}

func seedDocument(t *testing.T, m *Manager) *Session {
	t.Helper()
	s, err := m.Create(context.Background(), &doc.DocState{
		ID:    "doc-1",
		Title: "Test",
		Blocks: []*doc.Block{
			{ID: "p1", Kind: doc.KindParagraph, Runs: []doc.TextRun{{Text: "the quick brown fox"}}},
			{ID: "p2", Kind: doc.KindParagraph, Runs: []doc.TextRun{{Text: "jumps over the lazy dog"}}},
		},
	})
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	return s
}

func TestManagerOpenReturnsCachedSession(t *testing.T) {
	m, _, _ := newTestManager(t)
	s := seedDocument(t, m)

	again, err := m.Open(context.Background(), "doc-1")
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	if again != s {
		t.Error("Open() built a second session for an open document")
	}

	if _, err := m.Open(context.Background(), "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("Open() missing document: error = %v, want ErrNotFound", err)
	}
}

func TestSessionUpdateBlocksPersistsAndTracks(t *testing.T) {
	m, store, _ := newTestManager(t)
	s := seedDocument(t, m)

	state, err := s.UpdateBlocks(context.Background(), "Renamed", []*doc.Block{
		{ID: "p1", Kind: doc.KindParagraph, Runs: []doc.TextRun{{Text: "the slow brown fox"}}},
		{ID: "p2", Kind: doc.KindParagraph, Runs: []doc.TextRun{{Text: "jumps over the lazy dog"}}},
	})
	if err != nil {
		t.Fatalf("UpdateBlocks() error: %v", err)
	}
	if state.Title != "Renamed" {
		t.Errorf("title = %q, want Renamed", state.Title)
	}
	if state.Version != 2 {
		t.Errorf("version = %d, want 2 after save", state.Version)
	}

	store.mu.Lock()
	saved := store.docs["doc-1"]
	store.mu.Unlock()
	if got := doc.FlattenText(saved.Blocks[0]); got != "the slow brown fox" {
		t.Errorf("persisted text = %q", got)
	}

	// The replay ran as a direct edit, so the change tracker attributed the
	// p1 diff to the user; p2 was untouched and logged nothing.
	records := s.ChangeLog("p1")
	if len(records) != 1 || records[0].Kind != doc.ChangeModified || records[0].Actor != "user" {
		t.Fatalf("p1 records = %+v, want one user modification", records)
	}
	if got := len(s.ChangeLog("p2")); got != 0 {
		t.Errorf("p2 logged %d records, want 0", got)
	}
}

func TestSessionTurnInto(t *testing.T) {
	m, _, _ := newTestManager(t)
	s := seedDocument(t, m)

	state, err := s.TurnInto(context.Background(), "p1", doc.KindHeading, 2)
	if err != nil {
		t.Fatalf("TurnInto() error: %v", err)
	}
	if state.Blocks[0].Kind != doc.KindHeading || state.Blocks[0].Level != 2 {
		t.Errorf("block 0 = %s/%d, want heading/2", state.Blocks[0].Kind, state.Blocks[0].Level)
	}
	if state.Blocks[0].ID != "p1" {
		t.Error("conversion changed the block id")
	}

	if _, err := s.TurnInto(context.Background(), "missing", doc.KindHeading, 1); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("TurnInto() missing block: error = %v, want ErrNotFound", err)
	}
}

func TestSessionUpdateBlocksRejectsMalformedBlocks(t *testing.T) {
	m, store, _ := newTestManager(t)
	s := seedDocument(t, m)

	tests := []struct {
		name   string
		blocks []*doc.Block
	}{
		{"duplicate ids", []*doc.Block{
			{ID: "dup", Kind: doc.KindParagraph, Runs: []doc.TextRun{{Text: "one"}}},
			{ID: "dup", Kind: doc.KindParagraph, Runs: []doc.TextRun{{Text: "two"}}},
		}},
		{"children on a leaf-only kind", []*doc.Block{
			{ID: "q1", Kind: doc.KindQuote, Runs: []doc.TextRun{{Text: "quoted"}}, Children: []*doc.Block{
				{ID: "c1", Kind: doc.KindParagraph, Runs: []doc.TextRun{{Text: "child"}}},
			}},
		}},
		{"heading level out of range", []*doc.Block{
			{ID: "h1", Kind: doc.KindHeading, Level: 4, Runs: []doc.TextRun{{Text: "deep"}}},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := s.UpdateBlocks(context.Background(), "", tt.blocks); !errors.Is(err, domain.ErrValidation) {
				t.Fatalf("UpdateBlocks() error = %v, want ErrValidation", err)
			}
		})
	}

	// Nothing reached the tree or the store.
	if got := doc.FlattenText(s.State().Blocks[0]); got != "the quick brown fox" {
		t.Errorf("live text = %q, rejected update mutated the tree", got)
	}
	store.mu.Lock()
	version := store.docs["doc-1"].Version
	store.mu.Unlock()
	if version != 1 {
		t.Errorf("store version = %d, rejected update persisted", version)
	}
}

func TestManagerCreateRejectsDuplicateBlockIDs(t *testing.T) {
	m, store, _ := newTestManager(t)

	_, err := m.Create(context.Background(), &doc.DocState{
		ID:    "doc-dup",
		Title: "Broken",
		Blocks: []*doc.Block{
			{ID: "dup", Kind: doc.KindParagraph, Runs: []doc.TextRun{{Text: "one"}}},
			{ID: "dup", Kind: doc.KindParagraph, Runs: []doc.TextRun{{Text: "two"}}},
		},
	})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("Create() error = %v, want ErrValidation", err)
	}

	store.mu.Lock()
	_, stored := store.docs["doc-dup"]
	store.mu.Unlock()
	if stored {
		t.Error("invalid document reached the store")
	}
}

func TestSessionCommentFlow(t *testing.T) {
	m, store, _ := newTestManager(t)
	s := seedDocument(t, m)

	ref := SelectionRef{BlockIDs: []string{"p1"}, StartOffset: intPtr(4), EndOffset: intPtr(9)}
	comment, err := s.CreateComment(context.Background(), ref, annotation.CreateCommentRequest{
		Body: "nice", Author: "alice",
	})
	if err != nil {
		t.Fatalf("CreateComment() error: %v", err)
	}
	if comment.Anchor.SnapshotText != "quick" {
		t.Errorf("anchor snapshot = %q, want quick", comment.Anchor.SnapshotText)
	}

	store.mu.Lock()
	persisted := len(store.comments["doc-1"])
	store.mu.Unlock()
	if persisted != 1 {
		t.Errorf("store has %d comments, want 1", persisted)
	}

	if _, err := s.ReplyComment(context.Background(), comment.ID, annotation.CreateCommentRequest{
		Body: "agreed", Author: "bob",
	}); err != nil {
		t.Fatalf("ReplyComment() error: %v", err)
	}
	if got := len(s.Comments()[0].Replies); got != 1 {
		t.Errorf("thread has %d replies, want 1", got)
	}

	spans, err := s.CommentHighlights(comment.ID)
	if err != nil {
		t.Fatalf("CommentHighlights() error: %v", err)
	}
	if len(spans) != 1 || spans[0].BlockID != "p1" {
		t.Errorf("highlights = %+v, want one span in p1", spans)
	}
}

func TestSessionSuggestionFlow(t *testing.T) {
	m, store, provider := newTestManager(t)
	s := seedDocument(t, m)

	provider.edits = []ai.ProposedEdit{{
		BlockID:      "p1",
		OriginalText: "the quick brown fox",
		ProposedText: "the swift brown fox",
		Reason:       "word choice",
	}}

	created, err := s.RequestSuggestions(context.Background(), SelectionRef{}, "improve wording")
	if err != nil {
		t.Fatalf("RequestSuggestions() error: %v", err)
	}
	if len(created) != 1 {
		t.Fatalf("created %d suggestions, want 1", len(created))
	}
	sugg := created[0]
	if sugg.Status != doc.SuggestionSuggested {
		t.Errorf("status = %s, want suggested", sugg.Status)
	}

	// The pre-request flush persists in the background; let it land before
	// accepting so the accept-path save is the last write.
	waitForVersion(t, store, "doc-1", 2)

	applied, err := s.AcceptSuggestion(context.Background(), sugg.ID, "alice")
	if err != nil {
		t.Fatalf("AcceptSuggestion() error: %v", err)
	}
	if applied.Status != doc.SuggestionApplied {
		t.Errorf("status = %s, want applied", applied.Status)
	}

	state := s.State()
	if got := doc.FlattenText(state.Blocks[0]); got != "the swift brown fox" {
		t.Errorf("text after accept = %q", got)
	}

	store.mu.Lock()
	status := store.suggStatus[sugg.ID]
	savedText := doc.FlattenText(store.docs["doc-1"].Blocks[0])
	store.mu.Unlock()
	if status != doc.SuggestionApplied {
		t.Errorf("persisted status = %s, want applied", status)
	}
	if savedText != "the swift brown fox" {
		t.Errorf("persisted text = %q, want the applied edit", savedText)
	}
}

func TestSessionRejectLeavesTextAlone(t *testing.T) {
	m, store, provider := newTestManager(t)
	s := seedDocument(t, m)

	provider.edits = []ai.ProposedEdit{{
		BlockID:      "p2",
		OriginalText: "jumps over the lazy dog",
		ProposedText: "leaps over the lazy dog",
	}}
	created, err := s.RequestSuggestions(context.Background(), SelectionRef{}, "verbs")
	if err != nil {
		t.Fatalf("RequestSuggestions() error: %v", err)
	}

	if _, err := s.RejectSuggestion(context.Background(), created[0].ID, "alice"); err != nil {
		t.Fatalf("RejectSuggestion() error: %v", err)
	}

	state := s.State()
	if got := doc.FlattenText(state.Blocks[1]); got != "jumps over the lazy dog" {
		t.Errorf("reject changed text: %q", got)
	}
	store.mu.Lock()
	status := store.suggStatus[created[0].ID]
	store.mu.Unlock()
	if status != doc.SuggestionRejected {
		t.Errorf("persisted status = %s, want rejected", status)
	}
}

func TestSessionScopedSuggestionRequest(t *testing.T) {
	m, _, provider := newTestManager(t)
	s := seedDocument(t, m)

	// Propose edits for both blocks; a selection scoped to p2 must keep only
	// the p2 edit, since p1 is outside the snapshot sent to the provider.
	provider.edits = []ai.ProposedEdit{
		{BlockID: "p1", OriginalText: "the quick brown fox", ProposedText: "x"},
		{BlockID: "p2", OriginalText: "jumps over the lazy dog", ProposedText: "y"},
	}

	created, err := s.RequestSuggestions(context.Background(), SelectionRef{
		BlockIDs: []string{"p2"},
	}, "rewrite")
	if err != nil {
		t.Fatalf("RequestSuggestions() error: %v", err)
	}
	if len(created) != 1 || created[0].Anchor.BlockID != "p2" {
		t.Errorf("created = %+v, want only the p2 suggestion", created)
	}
}

func TestSessionClassifySelection(t *testing.T) {
	m, _, _ := newTestManager(t)
	s := seedDocument(t, m)

	c, err := s.ClassifySelection(SelectionRef{
		BlockIDs:    []string{"p1"},
		StartOffset: intPtr(0),
		EndOffset:   intPtr(9),
	})
	if err != nil {
		t.Fatalf("ClassifySelection() error: %v", err)
	}
	if c.Scope != "text" || c.Text != "the quick" {
		t.Errorf("classification = %+v, want text scope over %q", c, "the quick")
	}

	c, err = s.ClassifySelection(SelectionRef{BlockIDs: []string{"p1", "p2"}})
	if err != nil {
		t.Fatalf("ClassifySelection() error: %v", err)
	}
	if c.Scope != "blocks" {
		t.Errorf("two-block selection scope = %s, want blocks", c.Scope)
	}
}

func TestManagerReopensFromStore(t *testing.T) {
	m, _, _ := newTestManager(t)
	s := seedDocument(t, m)

	if _, err := s.CreateComment(context.Background(),
		SelectionRef{BlockIDs: []string{"p1"}, StartOffset: intPtr(0), EndOffset: intPtr(3)},
		annotation.CreateCommentRequest{Body: "note", Author: "alice"},
	); err != nil {
		t.Fatalf("CreateComment() error: %v", err)
	}

	if err := m.CloseSession(context.Background(), "doc-1"); err != nil {
		t.Fatalf("CloseSession() error: %v", err)
	}

	reopened, err := m.Open(context.Background(), "doc-1")
	if err != nil {
		t.Fatalf("Open() after close error: %v", err)
	}
	if reopened == s {
		t.Fatal("closed session returned again")
	}
	if got := len(reopened.Comments()); got != 1 {
		t.Errorf("reopened session has %d comments, want 1 from the store", got)
	}
	if got := doc.FlattenText(reopened.State().Blocks[0]); got != "the quick brown fox" {
		t.Errorf("reopened text = %q", got)
	}
}

func TestManagerDiscardSkipsSave(t *testing.T) {
	m, store, _ := newTestManager(t)
	s := seedDocument(t, m)

	// Mutate without saving, then discard.
	if _, err := s.UpdateBlocks(context.Background(), "", []*doc.Block{
		{ID: "p1", Kind: doc.KindParagraph, Runs: []doc.TextRun{{Text: "edited"}}},
	}); err != nil {
		t.Fatalf("UpdateBlocks() error: %v", err)
	}
	store.mu.Lock()
	versionBefore := store.docs["doc-1"].Version
	store.mu.Unlock()

	if err := m.Discard("doc-1"); err != nil {
		t.Fatalf("Discard() error: %v", err)
	}
	// Allow any stray debounced export to surface.
	time.Sleep(50 * time.Millisecond)

	store.mu.Lock()
	versionAfter := store.docs["doc-1"].Version
	store.mu.Unlock()
	if versionAfter != versionBefore {
		t.Errorf("discard wrote version %d over %d", versionAfter, versionBefore)
	}
}

func intPtr(v int) *int { return &v }

func waitForVersion(t *testing.T, store *memStore, documentID string, version int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		store.mu.Lock()
		v := store.docs[documentID].Version
		store.mu.Unlock()
		if v >= version {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("document %s never reached version %d", documentID, version)
}
