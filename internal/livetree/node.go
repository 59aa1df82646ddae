// Package livetree models the renderer-owned editable tree behind the
// narrow read/mutate surface the core consumes: append/replace/remove
// child, read/write text-node formatting flags, get/set selection, and a
// committed-transaction subscription. The core never assumes more than
// these operations, so a real renderer tree can be swapped in behind the
// same seam; the in-memory implementation here backs server-side editing
// sessions and tests.
package livetree

import (
	"docasst/internal/domain/models/doc"
)

// Node is a single tree node: either a block container (paragraph, heading,
// list, list item...) or a leaf text node carrying formatting flags and the
// two annotation overlays.
type Node struct {
	isText bool

	// Container attributes
	blockID     string
	kind        doc.BlockKind
	level       int
	indentLevel int
	sectionKey  string

	// Text attributes
	run doc.TextRun

	parent   *Node
	children []*Node
}

// NewContainer creates a block container node. The id is caller-assigned and
// survives kind conversions.
func NewContainer(blockID string, kind doc.BlockKind) *Node {
	return &Node{blockID: blockID, kind: kind}
}

// NewText creates a leaf text node from a run value.
func NewText(run doc.TextRun) *Node {
	r := run
	if r.CommentIDs != nil {
		r.CommentIDs = append([]string(nil), r.CommentIDs...)
	}
	return &Node{isText: true, run: r}
}

// IsText reports whether the node is a leaf text node.
func (n *Node) IsText() bool { return n.isText }

// IsContainer reports whether the node is a block container.
func (n *Node) IsContainer() bool { return !n.isText }

// BlockID returns the container's stable block id; empty for text nodes.
func (n *Node) BlockID() string { return n.blockID }

// Kind returns the container's block kind.
func (n *Node) Kind() doc.BlockKind { return n.kind }

// Level returns the heading level, zero when unleveled.
func (n *Node) Level() int { return n.level }

// SetLevel sets the heading level.
func (n *Node) SetLevel(level int) { n.level = level }

// IndentLevel returns the container's indent level.
func (n *Node) IndentLevel() int { return n.indentLevel }

// SetIndentLevel sets the container's indent level.
func (n *Node) SetIndentLevel(indent int) { n.indentLevel = indent }

// SectionKey returns the stable semantic anchor, if any.
func (n *Node) SectionKey() string { return n.sectionKey }

// SetSectionKey sets the semantic anchor.
func (n *Node) SetSectionKey(key string) { n.sectionKey = key }

// Run returns a copy of the text node's run value (text, formatting flags,
// annotation overlays).
func (n *Node) Run() doc.TextRun {
	r := n.run
	if r.CommentIDs != nil {
		r.CommentIDs = append([]string(nil), r.CommentIDs...)
	}
	return r
}

// SetRun replaces the text node's run value wholesale.
func (n *Node) SetRun(run doc.TextRun) {
	if run.CommentIDs != nil {
		run.CommentIDs = append([]string(nil), run.CommentIDs...)
	}
	n.run = run
}

// Text returns the text node's content.
func (n *Node) Text() string { return n.run.Text }

// SetText replaces the text content, leaving formatting and overlays alone.
func (n *Node) SetText(text string) { n.run.Text = text }

// SetAIStatus sets the AI overlay on a text node.
func (n *Node) SetAIStatus(status doc.AIStatus) { n.run.AIStatus = status }

// MarkUserEdited flags the node as manually edited and clears the AI
// overlay: a user's correction must never render as a pending or rejected
// AI change.
func (n *Node) MarkUserEdited() {
	n.run.UserEdited = true
	n.run.AIStatus = doc.AIStatusNone
}

// AddCommentID attaches a comment id to the text node.
func (n *Node) AddCommentID(id string) { n.run.AddComment(id) }

// RemoveCommentID detaches a comment id from the text node.
func (n *Node) RemoveCommentID(id string) { n.run.RemoveComment(id) }

// Parent returns the node's parent, nil at the root.
func (n *Node) Parent() *Node { return n.parent }

// Children returns the node's children in document order. The returned
// slice is a copy; mutate through the tree API.
func (n *Node) Children() []*Node {
	return append([]*Node(nil), n.children...)
}

// ChildCount returns the number of children without copying.
func (n *Node) ChildCount() int { return len(n.children) }

// Child returns the i-th child, nil when out of range.
func (n *Node) Child(i int) *Node {
	if i < 0 || i >= len(n.children) {
		return nil
	}
	return n.children[i]
}

// IndexOf returns the position of child under n, -1 when absent.
func (n *Node) IndexOf(child *Node) int {
	for i, c := range n.children {
		if c == child {
			return i
		}
	}
	return -1
}

// AppendChild adds a child at the end.
func (n *Node) AppendChild(child *Node) {
	child.detach()
	child.parent = n
	n.children = append(n.children, child)
}

// InsertBefore inserts child immediately before ref. A nil ref appends.
func (n *Node) InsertBefore(child, ref *Node) {
	if ref == nil {
		n.AppendChild(child)
		return
	}
	idx := n.IndexOf(ref)
	if idx < 0 {
		n.AppendChild(child)
		return
	}
	child.detach()
	child.parent = n
	n.children = append(n.children, nil)
	copy(n.children[idx+1:], n.children[idx:])
	n.children[idx] = child
}

// ReplaceChild swaps old for new in a single mutation, preserving position.
func (n *Node) ReplaceChild(oldChild, newChild *Node) bool {
	idx := n.IndexOf(oldChild)
	if idx < 0 {
		return false
	}
	newChild.detach()
	newChild.parent = n
	n.children[idx] = newChild
	oldChild.parent = nil
	return true
}

// RemoveChild detaches a child from the node.
func (n *Node) RemoveChild(child *Node) bool {
	idx := n.IndexOf(child)
	if idx < 0 {
		return false
	}
	n.children = append(n.children[:idx], n.children[idx+1:]...)
	child.parent = nil
	return true
}

func (n *Node) detach() {
	if n.parent != nil {
		n.parent.RemoveChild(n)
	}
}

// ContainerAncestor ascends from n (inclusive) until a block container is
// found. Returns nil when there is none below the root.
func (n *Node) ContainerAncestor(root *Node) *Node {
	for cur := n; cur != nil && cur != root; cur = cur.parent {
		if cur.IsContainer() {
			return cur
		}
	}
	return nil
}

// FlattenText concatenates the text of all descendant text nodes in
// document order.
func FlattenText(n *Node) string {
	if n == nil {
		return ""
	}
	var out []byte
	var walk func(*Node)
	walk = func(cur *Node) {
		if cur.isText {
			out = append(out, cur.run.Text...)
			return
		}
		for _, c := range cur.children {
			walk(c)
		}
	}
	walk(n)
	return string(out)
}

// TextNodes returns all descendant text nodes of n in document order.
func TextNodes(n *Node) []*Node {
	var out []*Node
	var walk func(*Node)
	walk = func(cur *Node) {
		if cur.isText {
			out = append(out, cur)
			return
		}
		for _, c := range cur.children {
			walk(c)
		}
	}
	walk(n)
	return out
}
