package astjson

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/Sumatoshi-tech/pyfuscate/pkg/tree"
)

// ErrEmptyTree is returned when encoding a tree without a root.
var ErrEmptyTree = errors.New("tree has no root")

// Encode writes t as one compact wire record. Scalar fields are written in
// their stored order, followed by child slots in child order.
func Encode(w io.Writer, t *tree.Tree) error {
	if !t.Valid(t.Root()) {
		return ErrEmptyTree
	}

	bw := bufio.NewWriter(w)

	enc := &encoder{out: bw}
	enc.scalars = json.NewEncoder(&enc.scratch)
	enc.scalars.SetEscapeHTML(false)

	err := tree.Walk(t, t.Root(), enc)
	if err != nil {
		return fmt.Errorf("encode: %w", err)
	}

	err = bw.Flush()
	if err != nil {
		return fmt.Errorf("encode: %w", err)
	}

	return nil
}

// EncodeIndent is Encode with json.Indent applied to the output.
func EncodeIndent(w io.Writer, t *tree.Tree, indent string) error {
	var compact bytes.Buffer

	err := Encode(&compact, t)
	if err != nil {
		return err
	}

	var pretty bytes.Buffer

	err = json.Indent(&pretty, compact.Bytes(), "", indent)
	if err != nil {
		return fmt.Errorf("indent: %w", err)
	}

	pretty.WriteByte('\n')

	_, err = pretty.WriteTo(w)
	if err != nil {
		return fmt.Errorf("write: %w", err)
	}

	return nil
}

type encodeFrame struct {
	id         tree.NodeID
	nextChild  int
	wroteField bool
}

// encoder emits JSON from walk callbacks. Write errors stick in the
// bufio.Writer and surface at Flush.
type encoder struct {
	out     *bufio.Writer
	scalars *json.Encoder
	frames  []encodeFrame
	scratch bytes.Buffer
}

// Enter implements tree.Visitor.
func (e *encoder) Enter(t *tree.Tree, id tree.NodeID) error {
	node := t.Node(id)

	if len(e.frames) > 0 {
		parentFrame := &e.frames[len(e.frames)-1]
		first, _, list := slotPosition(t, parentFrame.id, parentFrame.nextChild)

		if first {
			if parentFrame.wroteField {
				e.out.WriteByte(',')
			}

			e.writeKey(node.Slot)

			if list {
				e.out.WriteByte('[')
			}

			parentFrame.wroteField = true
		} else {
			e.out.WriteByte(',')
		}
	}

	e.frames = append(e.frames, encodeFrame{id: id})

	if node.Tag == tree.NullTag {
		e.out.WriteString("null")

		return nil
	}

	e.out.WriteString(`{"type":`)

	err := e.writeScalar(node.Tag)
	if err != nil {
		return err
	}

	e.out.WriteString(`,"fields":{`)

	wrote, err := e.writeFields(&node.Fields)
	if err != nil {
		return fmt.Errorf("%s: %w", node.Tag, err)
	}

	e.frames[len(e.frames)-1].wroteField = wrote

	return nil
}

// Exit implements tree.Visitor.
func (e *encoder) Exit(t *tree.Tree, id tree.NodeID) error {
	e.frames = e.frames[:len(e.frames)-1]

	if t.Node(id).Tag != tree.NullTag {
		e.out.WriteString("}}")
	}

	if len(e.frames) == 0 {
		return nil
	}

	parentFrame := &e.frames[len(e.frames)-1]

	_, last, list := slotPosition(t, parentFrame.id, parentFrame.nextChild)
	if last && list {
		e.out.WriteByte(']')
	}

	parentFrame.nextChild++

	return nil
}

// slotPosition reports whether the idx-th child of parent opens or closes its
// slot's run of children, and whether that slot is written as a list. A slot
// holding several children is a list even if the table disagrees.
func slotPosition(t *tree.Tree, parent tree.NodeID, idx int) (first, last, list bool) {
	owner := t.Node(parent)
	slot := t.Node(owner.Children[idx]).Slot

	first = idx == 0 || t.Node(owner.Children[idx-1]).Slot != slot
	last = idx == len(owner.Children)-1 || t.Node(owner.Children[idx+1]).Slot != slot
	list = IsListField(slot, owner.Tag) || !first || !last

	return first, last, list
}

func (e *encoder) writeKey(key string) {
	// Keys are field names; writeScalar cannot fail on a string.
	_ = e.writeScalar(key)

	e.out.WriteByte(':')
}

func (e *encoder) writeScalar(value tree.Value) error {
	if _, empty := value.(tree.EmptyList); empty {
		e.out.WriteString("[]")

		return nil
	}

	e.scratch.Reset()

	err := e.scalars.Encode(value)
	if err != nil {
		return fmt.Errorf("marshal scalar: %w", err)
	}

	e.out.Write(bytes.TrimSuffix(e.scratch.Bytes(), []byte{'\n'}))

	return nil
}

// fieldGroup regroups dotted field names into nested objects.
type fieldGroup struct {
	leaves map[string]tree.Value
	subs   map[string]*fieldGroup
	keys   []string
}

func newFieldGroup() *fieldGroup {
	return &fieldGroup{
		leaves: make(map[string]tree.Value),
		subs:   make(map[string]*fieldGroup),
	}
}

func (g *fieldGroup) insert(path string, value tree.Value) {
	head, rest, nested := strings.Cut(path, pathSeparator)

	_, seenLeaf := g.leaves[head]
	_, seenSub := g.subs[head]

	if !seenLeaf && !seenSub {
		g.keys = append(g.keys, head)
	}

	if !nested {
		g.leaves[head] = value

		return
	}

	sub, ok := g.subs[head]
	if !ok {
		sub = newFieldGroup()
		g.subs[head] = sub
	}

	sub.insert(rest, value)
}

func (e *encoder) writeFields(fields *tree.Fields) (bool, error) {
	group := newFieldGroup()

	for _, key := range fields.Keys() {
		value, _ := fields.Get(key)
		group.insert(key, value)
	}

	return len(group.keys) > 0, e.writeGroup(group, true)
}

func (e *encoder) writeGroup(group *fieldGroup, topLevel bool) error {
	for idx, key := range group.keys {
		if idx > 0 {
			e.out.WriteByte(',')
		}

		e.writeKey(key)

		if value, ok := group.leaves[key]; ok {
			err := e.writeScalar(value)
			if err != nil {
				return err
			}

			continue
		}

		sub := group.subs[key]

		err := e.writeSubgroup(key, sub, topLevel)
		if err != nil {
			return err
		}
	}

	return nil
}

// writeSubgroup writes a ctx group back as a record and anything else as a
// plain object.
func (e *encoder) writeSubgroup(key string, sub *fieldGroup, topLevel bool) error {
	tag, isCtx := sub.leaves[keyType].(string)
	if !topLevel || key != ctxField || !isCtx {
		e.out.WriteByte('{')

		err := e.writeGroup(sub, false)
		if err != nil {
			return err
		}

		e.out.WriteByte('}')

		return nil
	}

	e.out.WriteString(`{"type":`)

	err := e.writeScalar(tag)
	if err != nil {
		return err
	}

	rest := newFieldGroup()

	for _, name := range sub.keys {
		if name == keyType {
			continue
		}

		rest.keys = append(rest.keys, name)

		if value, ok := sub.leaves[name]; ok {
			rest.leaves[name] = value
		} else {
			rest.subs[name] = sub.subs[name]
		}
	}

	e.out.WriteString(`,"fields":{`)

	err = e.writeGroup(rest, false)
	if err != nil {
		return err
	}

	e.out.WriteString("}}")

	return nil
}
