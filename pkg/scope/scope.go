// Package scope implements the lexical scope stack used by the rename pass:
// LEGB lookup with global/nonlocal redirection, plus a flat registry for
// member names that must rename identically across scopes.
package scope

// Kind identifies what introduced a scope.
type Kind uint8

// Scope kinds.
const (
	KindModule Kind = iota
	KindFunction
	KindClass
	KindLambda
)

// String returns the lowercase kind name.
func (k Kind) String() string {
	switch k {
	case KindModule:
		return "module"
	case KindFunction:
		return "function"
	case KindClass:
		return "class"
	case KindLambda:
		return "lambda"
	default:
		return "unknown"
	}
}

// Scope maps original names to generated names for one lexical scope.
type Scope struct {
	bindings  map[string]string
	globals   map[string]struct{}
	nonlocals map[string]struct{}
	kind      Kind
}

func newScope(kind Kind) *Scope {
	return &Scope{
		kind:      kind,
		bindings:  make(map[string]string),
		globals:   make(map[string]struct{}),
		nonlocals: make(map[string]struct{}),
	}
}

// Kind returns what introduced the scope.
func (s *Scope) Kind() Kind {
	return s.kind
}

// Bind maps original to generated in this scope, replacing any earlier binding.
func (s *Scope) Bind(original, generated string) {
	s.bindings[original] = generated
}

// Binding returns the generated name bound to original in this scope.
func (s *Scope) Binding(original string) (string, bool) {
	generated, ok := s.bindings[original]

	return generated, ok
}

// IsGlobal reports whether name was declared global in this scope.
func (s *Scope) IsGlobal(name string) bool {
	_, ok := s.globals[name]

	return ok
}

// IsNonlocal reports whether name was declared nonlocal in this scope.
func (s *Scope) IsNonlocal(name string) bool {
	_, ok := s.nonlocals[name]

	return ok
}

// Len returns the number of bindings.
func (s *Scope) Len() int {
	return len(s.bindings)
}
