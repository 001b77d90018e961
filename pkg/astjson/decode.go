package astjson

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/Sumatoshi-tech/pyfuscate/pkg/tree"
)

// Decoding errors.
var (
	ErrArityMismatch = errors.New("field arity does not match the arity table")
	ErrNotRecord     = errors.New("value is not a {type, fields} record")
	ErrTrailingData  = errors.New("trailing data after the root record")
	ErrUnsupported   = errors.New("unsupported value")
)

// object is a JSON object with its key order preserved.
type object struct {
	values map[string]any
	keys   []string
}

func (o *object) get(key string) (any, bool) {
	v, ok := o.values[key]

	return v, ok
}

// recordTag returns the type tag when o is a record.
func (o *object) recordTag() (string, bool) {
	raw, ok := o.values[keyType]
	if !ok {
		return "", false
	}

	tag, ok := raw.(string)

	return tag, ok && tag != ""
}

// Decode reads one wire record from r and builds a tree from it.
// Numbers are kept as json.Number so their text survives unchanged.
func Decode(r io.Reader) (*tree.Tree, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	root, err := readValue(dec)
	if err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}

	_, err = dec.Token()
	if !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode: %w", ErrTrailingData)
	}

	obj, ok := root.(*object)
	if !ok {
		return nil, fmt.Errorf("decode root: %w", ErrNotRecord)
	}

	t := tree.New()

	_, err = build(t, obj, tree.None, "")
	if err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}

	return t, nil
}

// readValue reads the next complete JSON value as *object, []any or a scalar.
func readValue(dec *json.Decoder) (any, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("read token: %w", err)
	}

	delim, isDelim := tok.(json.Delim)
	if !isDelim {
		return tok, nil
	}

	switch delim {
	case '{':
		return readObject(dec)
	case '[':
		return readArray(dec)
	default:
		return nil, fmt.Errorf("%w: unexpected %q", ErrUnsupported, delim)
	}
}

func readObject(dec *json.Decoder) (*object, error) {
	obj := &object{values: make(map[string]any)}

	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("read key: %w", err)
		}

		key, ok := keyTok.(string)
		if !ok {
			return nil, fmt.Errorf("%w: non-string key %v", ErrUnsupported, keyTok)
		}

		value, err := readValue(dec)
		if err != nil {
			return nil, err
		}

		if _, dup := obj.values[key]; !dup {
			obj.keys = append(obj.keys, key)
		}

		obj.values[key] = value
	}

	// Closing brace.
	_, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("read object end: %w", err)
	}

	return obj, nil
}

func readArray(dec *json.Decoder) ([]any, error) {
	items := []any{}

	for dec.More() {
		item, err := readValue(dec)
		if err != nil {
			return nil, err
		}

		items = append(items, item)
	}

	_, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("read array end: %w", err)
	}

	return items, nil
}

// build adds the record obj under parent in slot and returns its node.
func build(t *tree.Tree, obj *object, parent tree.NodeID, slot string) (tree.NodeID, error) {
	tag, ok := obj.recordTag()
	if !ok {
		return tree.None, fmt.Errorf("%w: slot %q", ErrNotRecord, slot)
	}

	id := t.Add(tag)

	if parent != tree.None {
		err := t.Attach(parent, id, slot)
		if err != nil {
			return tree.None, fmt.Errorf("attach %s: %w", tag, err)
		}
	}

	rawFields, ok := obj.get(keyFields)
	if !ok || rawFields == nil {
		return id, nil
	}

	fields, ok := rawFields.(*object)
	if !ok {
		return tree.None, fmt.Errorf("%w: %s.fields is not an object", ErrUnsupported, tag)
	}

	for _, name := range fields.keys {
		err := buildField(t, id, tag, name, fields.values[name])
		if err != nil {
			return tree.None, err
		}
	}

	return id, nil
}

func buildField(t *tree.Tree, id tree.NodeID, tag, name string, value any) error {
	node := t.Node(id)

	switch v := value.(type) {
	case *object:
		childTag, isRecord := v.recordTag()

		switch {
		case isRecord && name == ctxField:
			return flattenContext(node, childTag, v)
		case isRecord:
			if IsListField(name, tag) {
				return fmt.Errorf("%w: %s.%s is a single record, want a list", ErrArityMismatch, tag, name)
			}

			_, err := build(t, v, id, name)

			return err
		default:
			return flattenPlain(node, name, v)
		}
	case []any:
		return buildList(t, id, tag, name, v)
	default:
		node.Fields.Set(name, v)

		return nil
	}
}

func buildList(t *tree.Tree, id tree.NodeID, tag, name string, items []any) error {
	if len(items) == 0 {
		t.Node(id).Fields.Set(name, tree.EmptyList{})

		return nil
	}

	if !holdsRecords(items) {
		for _, item := range items {
			if _, nested := item.(*object); nested {
				return fmt.Errorf("%w: %s.%s mixes records and scalars", ErrUnsupported, tag, name)
			}

			if _, nested := item.([]any); nested {
				return fmt.Errorf("%w: nested list in %s.%s", ErrUnsupported, tag, name)
			}
		}

		t.Node(id).Fields.Set(name, items)

		return nil
	}

	if !IsListField(name, tag) {
		return fmt.Errorf("%w: %s.%s is a list, want a single record", ErrArityMismatch, tag, name)
	}

	for _, item := range items {
		switch v := item.(type) {
		case nil:
			_, err := t.AddChild(id, tree.NullTag, name)
			if err != nil {
				return fmt.Errorf("attach null: %w", err)
			}
		case *object:
			_, err := build(t, v, id, name)
			if err != nil {
				return err
			}
		default:
			return fmt.Errorf("%w: %s.%s mixes records and scalars", ErrUnsupported, tag, name)
		}
	}

	return nil
}

// holdsRecords reports whether items contains a record; nulls alone do not count.
func holdsRecords(items []any) bool {
	for _, item := range items {
		if obj, ok := item.(*object); ok {
			if _, isRecord := obj.recordTag(); isRecord {
				return true
			}
		}
	}

	return false
}

// flattenContext stores the ctx record as ctx.type plus ctx.<field> scalars.
func flattenContext(node *tree.Node, tag string, ctx *object) error {
	node.Fields.Set(ctxField+pathSeparator+keyType, tag)

	rawFields, ok := ctx.get(keyFields)
	if !ok || rawFields == nil {
		return nil
	}

	fields, ok := rawFields.(*object)
	if !ok {
		return fmt.Errorf("%w: ctx fields of %s", ErrUnsupported, node.Tag)
	}

	return flattenPlain(node, ctxField, fields)
}

// flattenPlain stores a non-record object as dotted scalar fields.
func flattenPlain(node *tree.Node, prefix string, obj *object) error {
	for _, key := range obj.keys {
		path := prefix + pathSeparator + key

		switch v := obj.values[key].(type) {
		case *object:
			if _, isRecord := v.recordTag(); isRecord {
				return fmt.Errorf("%w: record nested in plain object %s", ErrUnsupported, path)
			}

			err := flattenPlain(node, path, v)
			if err != nil {
				return err
			}
		case []any:
			if len(v) == 0 {
				node.Fields.Set(path, tree.EmptyList{})
			} else {
				node.Fields.Set(path, v)
			}
		default:
			node.Fields.Set(path, v)
		}
	}

	return nil
}
