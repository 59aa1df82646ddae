package blockkind

import "docasst/internal/domain/models/doc"

// Capabilities describes what a block kind may structurally contain.
// The document model's legality rules (which kinds own runs, which may have
// children, heading level bounds) are data here, not switch statements
// scattered through the converters.
type Capabilities struct {
	// Kind identifier (set during YAML unmarshaling from the map key)
	Kind doc.BlockKind `yaml:"-" json:"kind"`

	DisplayName string `yaml:"display_name" json:"display_name"`

	// Text marks kinds that own TextRuns. Non-text kinds always flatten to
	// the empty string and reject runs outright.
	Text bool `yaml:"text" json:"text"`

	// Container marks kinds whose children are structural (list items,
	// nested lists) rather than an error.
	Container bool `yaml:"container" json:"container"`

	// LeafOnly marks kinds for which non-empty children are malformed input.
	LeafOnly bool `yaml:"leaf_only" json:"leaf_only"`

	// MaxLevel bounds the level attribute; zero means the kind is unleveled.
	MaxLevel int `yaml:"max_level" json:"max_level,omitempty"`
}

// registryFile is the on-disk shape of the embedded kinds.yaml.
type registryFile struct {
	Kinds map[string]Capabilities `yaml:"kinds"`
}
