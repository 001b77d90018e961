package tree

import "slices"

// EmptyList marks a field that is defined as a list but holds no elements.
// Codecs must emit it back as an empty array, not drop it.
type EmptyList struct{}

// Value is a field value. Codecs only ever store nil, string, bool,
// json.Number, []any of those scalars, or [EmptyList].
type Value = any

// Fields is an insertion-ordered string-keyed map of scalar node fields.
// The zero value is ready to use.
type Fields struct {
	values map[string]Value
	keys   []string
}

// Set stores value under name. A new name is appended to the key order,
// an existing one keeps its position.
func (f *Fields) Set(name string, value Value) {
	if f.values == nil {
		f.values = make(map[string]Value)
	}

	if _, ok := f.values[name]; !ok {
		f.keys = append(f.keys, name)
	}

	f.values[name] = value
}

// Get returns the value stored under name.
func (f *Fields) Get(name string) (Value, bool) {
	v, ok := f.values[name]

	return v, ok
}

// String returns the value under name when it is a string.
func (f *Fields) String(name string) (string, bool) {
	s, ok := f.values[name].(string)

	return s, ok
}

// Strings returns the value under name when it is a list made only of strings.
func (f *Fields) Strings(name string) ([]string, bool) {
	list, ok := f.values[name].([]any)
	if !ok {
		return nil, false
	}

	out := make([]string, 0, len(list))

	for _, item := range list {
		s, isStr := item.(string)
		if !isStr {
			return nil, false
		}

		out = append(out, s)
	}

	return out, true
}

// Has reports whether name is present, including with a nil value.
func (f *Fields) Has(name string) bool {
	_, ok := f.values[name]

	return ok
}

// Delete removes name. It reports whether the name was present.
func (f *Fields) Delete(name string) bool {
	if _, ok := f.values[name]; !ok {
		return false
	}

	delete(f.values, name)
	f.keys = slices.DeleteFunc(f.keys, func(k string) bool { return k == name })

	return true
}

// Keys returns the field names in insertion order.
func (f *Fields) Keys() []string {
	return slices.Clone(f.keys)
}

// Len returns the number of fields.
func (f *Fields) Len() int {
	return len(f.keys)
}
