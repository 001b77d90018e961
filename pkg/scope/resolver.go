package scope

import (
	"errors"
	"fmt"
)

// ErrModuleScope is returned when ExitScope is called with only the module
// scope left. It means scope pushes and pops went out of step with the tree.
var ErrModuleScope = errors.New("cannot exit the module scope")

// initialStackCap is the preallocated scope stack depth.
const initialStackCap = 8

// Resolver is a stack of scopes with the module scope at the bottom.
// The bottom scope is never popped. Not safe for concurrent use.
type Resolver struct {
	functions map[string]string
	stack     []*Scope
}

// NewResolver returns a resolver holding only the module scope.
func NewResolver() *Resolver {
	stack := make([]*Scope, 1, initialStackCap)
	stack[0] = newScope(KindModule)

	return &Resolver{
		stack:     stack,
		functions: make(map[string]string),
	}
}

// EnterScope pushes a new empty scope of the given kind.
func (r *Resolver) EnterScope(kind Kind) {
	r.stack = append(r.stack, newScope(kind))
}

// ExitScope pops the innermost scope. Popping the module scope fails with
// [ErrModuleScope] and leaves the stack untouched.
func (r *Resolver) ExitScope() error {
	if len(r.stack) <= 1 {
		return fmt.Errorf("%w: depth %d", ErrModuleScope, len(r.stack))
	}

	r.stack[len(r.stack)-1] = nil
	r.stack = r.stack[:len(r.stack)-1]

	return nil
}

// Depth returns the number of scopes on the stack, 1 at module level.
func (r *Resolver) Depth() int {
	return len(r.stack)
}

// Current returns the innermost scope.
func (r *Resolver) Current() *Scope {
	return r.stack[len(r.stack)-1]
}

// CurrentKind returns the kind of the innermost scope.
func (r *Resolver) CurrentKind() Kind {
	return r.Current().kind
}

// Module returns the bottom scope.
func (r *Resolver) Module() *Scope {
	return r.stack[0]
}

// BindLocal binds original to generated in the innermost scope.
func (r *Resolver) BindLocal(original, generated string) {
	r.Current().Bind(original, generated)
}

// MarkGlobal declares name global in the innermost scope.
func (r *Resolver) MarkGlobal(name string) {
	r.Current().globals[name] = struct{}{}
}

// MarkNonlocal declares name nonlocal in the innermost scope.
func (r *Resolver) MarkNonlocal(name string) {
	r.Current().nonlocals[name] = struct{}{}
}

// Resolve returns the generated name original refers to from the innermost
// scope, following LEGB order. A global declaration jumps straight to the
// module scope, a nonlocal one skips the declaring scope's own bindings.
// Class scopes are only consulted while they are innermost. A name with no
// binding anywhere resolves to itself.
func (r *Resolver) Resolve(original string) string {
	generated, _ := r.lookup(original)

	return generated
}

// IsBound reports whether Resolve would find a binding for original.
func (r *Resolver) IsBound(original string) bool {
	_, found := r.lookup(original)

	return found
}

func (r *Resolver) lookup(original string) (string, bool) {
	top := len(r.stack) - 1

	for idx := top; idx >= 0; idx-- {
		current := r.stack[idx]

		if current.IsGlobal(original) {
			if generated, ok := r.stack[0].Binding(original); ok {
				return generated, true
			}

			return original, false
		}

		if current.IsNonlocal(original) {
			continue
		}

		if current.kind == KindClass && idx != top {
			continue
		}

		if generated, ok := current.Binding(original); ok {
			return generated, true
		}
	}

	return original, false
}

// Declare binds original to generated in the scope a lookup from the
// innermost scope would land in: the module scope for a name declared
// global, the nearest enclosing function scope for a name declared nonlocal,
// the innermost scope otherwise.
func (r *Resolver) Declare(original, generated string) {
	r.stack[r.declareTarget(original)].Bind(original, generated)
}

// DeclarationScope returns the scope Declare would bind original in.
func (r *Resolver) DeclarationScope(original string) *Scope {
	return r.stack[r.declareTarget(original)]
}

func (r *Resolver) declareTarget(original string) int {
	top := len(r.stack) - 1

	for idx := top; idx >= 0; idx-- {
		current := r.stack[idx]

		if current.IsGlobal(original) {
			return 0
		}

		if !current.IsNonlocal(original) {
			if idx == top {
				return top
			}

			if current.kind != KindClass {
				return idx
			}
		}
	}

	return top
}

// RegisterFunctionRename records a member rename visible from every scope.
func (r *Resolver) RegisterFunctionRename(original, generated string) {
	r.functions[original] = generated
}

// ResolveFunctionGlobally returns the registered member rename, or original.
func (r *Resolver) ResolveFunctionGlobally(original string) string {
	if generated, ok := r.functions[original]; ok {
		return generated
	}

	return original
}

// IsFunctionRegistered reports whether a member rename exists for original.
func (r *Resolver) IsFunctionRegistered(original string) bool {
	_, ok := r.functions[original]

	return ok
}
