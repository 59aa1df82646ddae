package blockkind

import (
	"embed"
	"fmt"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"

	"docasst/internal/domain"
	"docasst/internal/domain/models/doc"
)

//go:embed config/*.yaml
var configFiles embed.FS

// Registry holds the capability table for every block kind.
type Registry struct {
	kinds map[doc.BlockKind]*Capabilities
	mu    sync.RWMutex
}

// NewRegistry creates a registry and loads the embedded YAML definition.
func NewRegistry() (*Registry, error) {
	r := &Registry{
		kinds: make(map[doc.BlockKind]*Capabilities),
	}
	if err := r.loadFile("config/kinds.yaml"); err != nil {
		return nil, fmt.Errorf("failed to load block kind capabilities: %w", err)
	}
	return r, nil
}

func (r *Registry) loadFile(name string) error {
	data, err := configFiles.ReadFile(name)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", name, err)
	}

	var file registryFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("failed to unmarshal %s: %w", name, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for id, caps := range file.Kinds {
		c := caps
		c.Kind = doc.BlockKind(id)
		r.kinds[c.Kind] = &c
	}
	return nil
}

// Get returns the capabilities for a kind.
func (r *Registry) Get(kind doc.BlockKind) (*Capabilities, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	caps, ok := r.kinds[kind]
	if !ok {
		return nil, fmt.Errorf("unknown block kind: %s", kind)
	}
	return caps, nil
}

// IsText reports whether a kind owns text runs. Unknown kinds report false.
func (r *Registry) IsText(kind doc.BlockKind) bool {
	caps, err := r.Get(kind)
	return err == nil && caps.Text
}

// IsContainer reports whether a kind carries structural children.
func (r *Registry) IsContainer(kind doc.BlockKind) bool {
	caps, err := r.Get(kind)
	return err == nil && caps.Container
}

// List returns all known kinds sorted by identifier.
func (r *Registry) List() []Capabilities {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Capabilities, 0, len(r.kinds))
	for _, caps := range r.kinds {
		out = append(out, *caps)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Kind < out[j].Kind })
	return out
}

// ValidateBlock rejects malformed blocks: runs on a non-text kind, children
// on a leaf-only kind, or an out-of-range level. Children are validated
// recursively.
func (r *Registry) ValidateBlock(b *doc.Block) error {
	caps, err := r.Get(b.Kind)
	if err != nil {
		return fmt.Errorf("%w: block %s: %v", domain.ErrValidation, b.ID, err)
	}
	if !caps.Text && len(b.Runs) > 0 {
		return fmt.Errorf("%w: block %s: kind %s cannot own text runs", domain.ErrValidation, b.ID, b.Kind)
	}
	if caps.LeafOnly && len(b.Children) > 0 {
		return fmt.Errorf("%w: block %s: kind %s cannot have children", domain.ErrValidation, b.ID, b.Kind)
	}
	if caps.MaxLevel > 0 && (b.Level < 0 || b.Level > caps.MaxLevel) {
		return fmt.Errorf("%w: block %s: level %d out of range for %s", domain.ErrValidation, b.ID, b.Level, b.Kind)
	}
	if caps.MaxLevel == 0 && b.Level != 0 {
		return fmt.Errorf("%w: block %s: kind %s is unleveled", domain.ErrValidation, b.ID, b.Kind)
	}
	for _, c := range b.Children {
		if err := r.ValidateBlock(c); err != nil {
			return err
		}
	}
	return nil
}

// ValidateBlocks validates a block list and enforces document-wide id
// uniqueness.
func (r *Registry) ValidateBlocks(blocks []*doc.Block) error {
	seen := make(map[string]struct{})
	for _, id := range doc.CollectIDs(blocks) {
		if id == "" {
			return fmt.Errorf("%w: block with empty id", domain.ErrValidation)
		}
		if _, dup := seen[id]; dup {
			return fmt.Errorf("%w: duplicate block id %s", domain.ErrValidation, id)
		}
		seen[id] = struct{}{}
	}
	for _, b := range blocks {
		if err := r.ValidateBlock(b); err != nil {
			return err
		}
	}
	return nil
}
