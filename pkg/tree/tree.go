// Package tree provides the generic ordered-tree model the obfuscation passes
// operate on, and the iterative depth-first walk used to traverse it.
//
// Nodes live in an arena owned by [Tree] and are addressed by [NodeID].
// Parent links are indices, so the structure has no ownership cycles.
package tree

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// NodeID addresses a node inside its [Tree].
type NodeID int32

// None is the NodeID of an absent node, e.g. the parent of the root.
const None NodeID = -1

// Sentinel errors for tree construction.
var (
	ErrInvalidNode     = errors.New("invalid node id")
	ErrAlreadyAttached = errors.New("node already has a parent")
	ErrCycle           = errors.New("attaching node would create a cycle")
)

// Allocation constants.
const (
	initialArenaCap = 64
	initialChildCap = 4
)

// Node is one labeled tree node.
//
// Fields:
//
//	Kind: closed classification of Tag, KindUnknown for unrecognized tags.
//	Tag: the type tag exactly as received.
//	Slot: name of the parent field this node occupies ("" for the root).
//	Fields: ordered scalar fields.
//	Children: child nodes in source order.
//	Parent: owning node, None for the root and for detached nodes.
type Node struct {
	Fields   Fields
	Tag      string
	Slot     string
	Children []NodeID
	Parent   NodeID
	Kind     Kind
}

// Tree is an arena of nodes with a designated root.
// Not safe for concurrent use.
type Tree struct {
	nodes []Node
	root  NodeID
}

// New returns an empty tree with no root.
func New() *Tree {
	return &Tree{
		nodes: make([]Node, 0, initialArenaCap),
		root:  None,
	}
}

// Add allocates a detached node with the given tag and returns its id.
// The first node added becomes the root unless SetRoot is called.
func (t *Tree) Add(tag string) NodeID {
	id := NodeID(len(t.nodes))

	t.nodes = append(t.nodes, Node{
		Tag:    tag,
		Kind:   KindOf(tag),
		Parent: None,
	})

	if t.root == None {
		t.root = id
	}

	return id
}

// Attach appends child to parent's children under the given slot.
func (t *Tree) Attach(parent, child NodeID, slot string) error {
	if !t.Valid(parent) || !t.Valid(child) {
		return fmt.Errorf("%w: attach %d to %d", ErrInvalidNode, child, parent)
	}

	if t.nodes[child].Parent != None || child == t.root {
		return fmt.Errorf("%w: %d", ErrAlreadyAttached, child)
	}

	// A childless node cannot be an ancestor of parent.
	if len(t.nodes[child].Children) > 0 || parent == child {
		for cur := parent; cur != None; cur = t.nodes[cur].Parent {
			if cur == child {
				return fmt.Errorf("%w: %d under %d", ErrCycle, child, parent)
			}
		}
	}

	p := &t.nodes[parent]
	if p.Children == nil {
		p.Children = make([]NodeID, 0, initialChildCap)
	}

	p.Children = append(p.Children, child)
	t.nodes[child].Parent = parent
	t.nodes[child].Slot = slot

	return nil
}

// AddChild allocates a node and attaches it to parent under slot.
func (t *Tree) AddChild(parent NodeID, tag, slot string) (NodeID, error) {
	if !t.Valid(parent) {
		return None, fmt.Errorf("%w: %d", ErrInvalidNode, parent)
	}

	id := t.Add(tag)

	err := t.Attach(parent, id, slot)
	if err != nil {
		return None, err
	}

	return id, nil
}

// Node returns the node with the given id, or nil if the id is invalid.
// The pointer is invalidated by the next Add.
func (t *Tree) Node(id NodeID) *Node {
	if !t.Valid(id) {
		return nil
	}

	return &t.nodes[id]
}

// Valid reports whether id addresses a node in this tree.
func (t *Tree) Valid(id NodeID) bool {
	return id >= 0 && int(id) < len(t.nodes)
}

// Root returns the root id, None for an empty tree.
func (t *Tree) Root() NodeID {
	return t.root
}

// SetRoot designates id as root. The node must not have a parent.
func (t *Tree) SetRoot(id NodeID) error {
	if !t.Valid(id) {
		return fmt.Errorf("%w: %d", ErrInvalidNode, id)
	}

	if t.nodes[id].Parent != None {
		return fmt.Errorf("%w: root %d", ErrAlreadyAttached, id)
	}

	t.root = id

	return nil
}

// Len returns the number of nodes in the arena, reachable or not.
func (t *Tree) Len() int {
	return len(t.nodes)
}

// Kind returns the kind of id, KindUnknown for invalid ids.
func (t *Tree) Kind(id NodeID) Kind {
	if !t.Valid(id) {
		return KindUnknown
	}

	return t.nodes[id].Kind
}

// Parent returns the parent of id, None for the root or invalid ids.
func (t *Tree) Parent(id NodeID) NodeID {
	if !t.Valid(id) {
		return None
	}

	return t.nodes[id].Parent
}

// Children returns the children of id in order. The slice must not be modified.
func (t *Tree) Children(id NodeID) []NodeID {
	if !t.Valid(id) {
		return nil
	}

	return t.nodes[id].Children
}

// ChildrenIn returns the children of id occupying the named slot.
func (t *Tree) ChildrenIn(id NodeID, slot string) []NodeID {
	var out []NodeID

	for _, child := range t.Children(id) {
		if t.nodes[child].Slot == slot {
			out = append(out, child)
		}
	}

	return out
}

// FirstChild returns the first child of id in the named slot, or None.
func (t *Tree) FirstChild(id NodeID, slot string) NodeID {
	for _, child := range t.Children(id) {
		if t.nodes[child].Slot == slot {
			return child
		}
	}

	return None
}

// String returns a one-line summary of the node, in the same spirit as
// Node{Type:...} dumps.
func (t *Tree) String(id NodeID) string {
	n := t.Node(id)
	if n == nil {
		return "nil"
	}

	var buf strings.Builder

	buf.WriteString("Node{Tag:")
	buf.WriteString(n.Tag)

	if n.Slot != "" {
		buf.WriteString(",Slot:")
		buf.WriteString(n.Slot)
	}

	if n.Fields.Len() > 0 {
		buf.WriteString(",Fields:[")

		for idx, key := range n.Fields.Keys() {
			if idx > 0 {
				buf.WriteString(" ")
			}

			v, _ := n.Fields.Get(key)
			fmt.Fprintf(&buf, "%s=%v", key, v)
		}

		buf.WriteString("]")
	}

	if len(n.Children) > 0 {
		buf.WriteString(",Children:")
		buf.WriteString(strconv.Itoa(len(n.Children)))
	}

	buf.WriteString("}")

	return buf.String()
}
