// Package eligibility decides which identifiers may be renamed. Decisions
// depend on fixed name tables, two preservation switches and the set of
// imported names seen so far in the current run.
package eligibility

import "strings"

// dunderMarker prefixes names reserved by the language runtime.
const dunderMarker = "__"

// Policy answers rename eligibility for one run. The zero value is not
// usable; build one with New. Not safe for concurrent use.
type Policy struct {
	imported         map[string]struct{}
	preserveBuiltins bool
	preserveImports  bool
}

// New returns a policy. preserveBuiltins keeps builtin functions, exceptions
// and constants unrenamed; preserveImports keeps tracked imports and
// well-known standard modules unrenamed.
func New(preserveBuiltins, preserveImports bool) *Policy {
	return &Policy{
		imported:         make(map[string]struct{}),
		preserveBuiltins: preserveBuiltins,
		preserveImports:  preserveImports,
	}
}

// ShouldRename reports whether name may be replaced by a generated identifier.
// Rules are checked in order and the first match wins.
func (p *Policy) ShouldRename(name string) bool {
	switch {
	case name == "":
		return false
	case strings.HasPrefix(name, dunderMarker), IsSpecialAttribute(name):
		return false
	case contains(specialIdentifiers, name):
		return false
	case IsKeyword(name):
		return false
	case name == "_":
		return false
	case p.preserveBuiltins && IsBuiltin(name):
		return false
	case p.preserveImports && (p.IsImported(name) || IsCommonModule(name)):
		return false
	default:
		return true
	}
}

// TrackImport records an imported module component or alias. Empty names
// are ignored.
func (p *Policy) TrackImport(name string) {
	if name == "" {
		return
	}

	p.imported[name] = struct{}{}
}

// IsImported reports whether name was recorded by TrackImport.
func (p *Policy) IsImported(name string) bool {
	return contains(p.imported, name)
}

// ImportedCount returns the number of tracked import names.
func (p *Policy) ImportedCount() int {
	return len(p.imported)
}

// PreservesImports reports whether import preservation is enabled.
func (p *Policy) PreservesImports() bool {
	return p.preserveImports
}

// IsKeyword reports whether name is a hard language keyword.
func IsKeyword(name string) bool {
	return contains(keywords, name)
}

// IsBuiltin reports whether name is a builtin function, exception or
// constant of the standard runtime.
func IsBuiltin(name string) bool {
	return contains(builtinFunctions, name) || contains(builtinExceptions, name)
}

// IsCommonModule reports whether name is one of the well-known standard
// library modules preserved alongside tracked imports.
func IsCommonModule(name string) bool {
	return contains(commonModules, name)
}

// IsSpecialMethod reports whether name has the __name__ dunder shape.
func IsSpecialMethod(name string) bool {
	return len(name) > 2*len(dunderMarker) &&
		strings.HasPrefix(name, dunderMarker) &&
		strings.HasSuffix(name, dunderMarker)
}

// IsSpecialAttribute reports whether name is a fixed runtime attribute such
// as __dict__ or __class__.
func IsSpecialAttribute(name string) bool {
	return contains(specialAttributes, name)
}

// IsSelfReference reports whether name is self or cls.
func IsSelfReference(name string) bool {
	return contains(selfReferences, name)
}

// IsReserved reports whether a generated identifier spelling name would clash
// with a keyword, soft keyword, builtin or special identifier.
func IsReserved(name string) bool {
	return IsKeyword(name) ||
		contains(softKeywords, name) ||
		IsBuiltin(name) ||
		contains(specialIdentifiers, name)
}
