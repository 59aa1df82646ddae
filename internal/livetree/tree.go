package livetree

import (
	"fmt"
)

// Origin tags a committed transaction with where it came from, so listeners
// can distinguish undo/redo-originated changes from direct edits.
// Track-changes logging skips undo/redo transactions to avoid double-logging.
type Origin int

const (
	// OriginDirect is a user edit.
	OriginDirect Origin = iota
	OriginUndo
	OriginRedo
	// OriginProgrammatic marks transactions issued by the core itself
	// (imports, suggestion application, comment bookkeeping) so they are
	// not attributed to the user.
	OriginProgrammatic
)

// String returns the origin name.
func (o Origin) String() string {
	switch o {
	case OriginUndo:
		return "undo"
	case OriginRedo:
		return "redo"
	case OriginProgrammatic:
		return "programmatic"
	default:
		return "direct"
	}
}

// Listener observes committed transactions.
type Listener func(Origin)

// Tree is the live editable tree. All mutations happen inside discrete
// Update transactions; there is exactly one mutator at a time by
// construction, so the tree itself carries no locking.
type Tree struct {
	root *Node
	sel  Selection

	listeners  map[int]Listener
	nextListen int
	inUpdate   bool
}

// NewTree creates an empty tree.
func NewTree() *Tree {
	return &Tree{
		root:      &Node{},
		listeners: make(map[int]Listener),
	}
}

// Root returns the root node. Its children are the document's top-level
// block containers.
func (t *Tree) Root() *Node { return t.root }

// Blocks returns the top-level block containers in document order.
func (t *Tree) Blocks() []*Node {
	return t.root.Children()
}

// FindContainer locates a container by block id anywhere in the tree.
func (t *Tree) FindContainer(blockID string) *Node {
	var find func(*Node) *Node
	find = func(n *Node) *Node {
		if n.IsContainer() && n != t.root && n.blockID == blockID {
			return n
		}
		for _, c := range n.children {
			if found := find(c); found != nil {
				return found
			}
		}
		return nil
	}
	return find(t.root)
}

// Update runs fn as one atomic transaction and notifies listeners after it
// commits. Listeners observe the transaction as a whole. A failed fn commits
// nothing to listeners; the mutation functions themselves are assumed not to
// leave the tree half-written when fn bails out early.
func (t *Tree) Update(origin Origin, fn func() error) error {
	if t.inUpdate {
		return fmt.Errorf("nested tree update")
	}
	t.inUpdate = true
	err := fn()
	t.inUpdate = false
	if err != nil {
		return err
	}
	for _, l := range t.listeners {
		l(origin)
	}
	return nil
}

// Subscribe registers a listener for committed transactions and returns an
// unsubscribe function.
func (t *Tree) Subscribe(l Listener) func() {
	id := t.nextListen
	t.nextListen++
	t.listeners[id] = l
	return func() { delete(t.listeners, id) }
}

// Selection returns the current selection.
func (t *Tree) Selection() Selection { return t.sel }

// SetSelection replaces the current selection.
func (t *Tree) SetSelection(sel Selection) { t.sel = sel }

// CollapseTo places a collapsed selection at the given point.
func (t *Tree) CollapseTo(p Point) {
	t.sel = Selection{Start: p, End: p}
}
