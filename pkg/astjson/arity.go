// Package astjson converts between the {type, fields} JSON wire format and
// the in-memory tree. Decode and Encode share one arity table, so a field
// decoded as a list is always encoded back as a list.
package astjson

// Wire format keys.
const (
	keyType   = "type"
	keyFields = "fields"

	// ctxField holds the load/store/delete marker record, which is flattened
	// into ctx.<key> fields on its owner.
	ctxField = "ctx"

	pathSeparator = "."
)

// listFields are the fields that hold a list of records on every node type
// that has them, except where singleFieldOverrides says otherwise.
//
//nolint:gochecknoglobals // Static lookup table.
var listFields = map[string]struct{}{
	"argtypes":       {},
	"args":           {},
	"bases":          {},
	"body":           {},
	"cases":          {},
	"comparators":    {},
	"decorator_list": {},
	"defaults":       {},
	"elts":           {},
	"finalbody":      {},
	"generators":     {},
	"handlers":       {},
	"ifs":            {},
	"items":          {},
	"keys":           {},
	"keywords":       {},
	"kw_defaults":    {},
	"kwd_attrs":      {},
	"kwd_patterns":   {},
	"kwonlyargs":     {},
	"names":          {},
	"ops":            {},
	"orelse":         {},
	"patterns":       {},
	"posonlyargs":    {},
	"targets":        {},
	"type_ignores":   {},
	"type_params":    {},
	"values":         {},
}

// singleFieldOverrides lists, per node type, list-named fields that hold a
// single record on that type.
//
//nolint:gochecknoglobals // Static lookup table.
var singleFieldOverrides = map[string]map[string]struct{}{
	"AsyncFunctionDef": {"args": {}},
	"Expression":       {"body": {}},
	"FunctionDef":      {"args": {}},
	"IfExp":            {"body": {}, "orelse": {}},
	"Lambda":           {"args": {}, "body": {}},
}

// IsListField reports whether field holds a list on a node tagged tag.
func IsListField(field, tag string) bool {
	if _, ok := listFields[field]; !ok {
		return false
	}

	if overrides, ok := singleFieldOverrides[tag]; ok {
		if _, single := overrides[field]; single {
			return false
		}
	}

	return true
}
