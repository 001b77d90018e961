package rename

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Sumatoshi-tech/pyfuscate/pkg/eligibility"
	"github.com/Sumatoshi-tech/pyfuscate/pkg/namegen"
	"github.com/Sumatoshi-tech/pyfuscate/pkg/scope"
	"github.com/Sumatoshi-tech/pyfuscate/pkg/tree"
)

// Field and slot names of the wire format.
const (
	fieldID     = "id"
	fieldName   = "name"
	fieldArg    = "arg"
	fieldAttr   = "attr"
	fieldRest   = "rest"
	fieldNames  = "names"
	fieldModule = "module"
	fieldAsname = "asname"
	fieldKwd    = "kwd_attrs"

	slotArgs       = "args"
	slotNames      = "names"
	slotValue      = "value"
	slotAnnotation = "annotation"
	slotReturns    = "returns"
	slotDefaults   = "defaults"
	slotKwDefaults = "kw_defaults"
	slotDecorators = "decorator_list"
	slotBases      = "bases"
	slotKeywords   = "keywords"

	wildcardImport = "*"
)

// ctxCheckInterval is how many nodes are visited between cancellation checks.
const ctxCheckInterval = 4096

// state is the transform context threaded through one walk.
type state struct {
	ctx      context.Context
	logger   *slog.Logger
	resolver *scope.Resolver
	gen      *namegen.Generator
	policy   *eligibility.Policy
	frozen   map[string]struct{}
	mapping  Mapping
	stats    Stats
	opts     Options
	visited  int

	// outer holds nodes already renamed against the enclosing scope.
	outer map[tree.NodeID]struct{}
}

// prescan reserves every identifier already present so no generated name
// collides with one, and freezes names whose every use must stay untouched:
// definitions that are not renamed and keyword-argument names at call sites.
func (s *state) prescan(t *tree.Tree) {
	s.frozen = make(map[string]struct{})

	t.VisitPreOrder(func(id tree.NodeID) {
		node := t.Node(id)

		for _, field := range []string{fieldID, fieldName, fieldArg, fieldAttr, fieldAsname, fieldRest} {
			if name, ok := node.Fields.String(field); ok {
				s.gen.Reserve(name)
			}
		}

		name, hasName := node.Fields.String(fieldName)

		switch node.Kind {
		case tree.KindFunctionDef, tree.KindAsyncFunctionDef:
			if hasName && !s.opts.RenameFunctions {
				s.frozen[name] = struct{}{}
			}
		case tree.KindClassDef:
			if hasName && !s.opts.RenameClasses {
				s.frozen[name] = struct{}{}
			}
		case tree.KindKeyword:
			if arg, ok := node.Fields.String(fieldArg); ok {
				s.frozen[arg] = struct{}{}
			}
		case tree.KindMatchClass:
			attrs, _ := node.Fields.Strings(fieldKwd)
			for _, attr := range attrs {
				s.frozen[attr] = struct{}{}
			}
		}
	})
}

// eligible combines the policy with the names frozen by prescan.
func (s *state) eligible(name string) bool {
	if _, frozen := s.frozen[name]; frozen {
		return false
	}

	return s.policy.ShouldRename(name)
}

// Enter implements tree.Visitor.
func (s *state) Enter(t *tree.Tree, id tree.NodeID) error {
	s.visited++
	if s.visited%ctxCheckInterval == 0 {
		err := s.ctx.Err()
		if err != nil {
			return fmt.Errorf("walk interrupted: %w", err)
		}
	}

	if _, done := s.outer[id]; done {
		return nil
	}

	node := t.Node(id)

	switch node.Kind {
	case tree.KindImport, tree.KindImportFrom:
		s.enterImport(t, id, node)
	case tree.KindGlobal, tree.KindNonlocal:
		s.markDeclarations(node)
	case tree.KindFunctionDef, tree.KindAsyncFunctionDef, tree.KindClassDef:
		s.renameDefinition(node)
	}

	if node.Kind.CreatesScope() {
		err := s.visitOuter(t, id)
		if err != nil {
			return err
		}

		s.enterScope(t, id, node.Kind)
	}

	switch node.Kind {
	case tree.KindName:
		s.renameIdentifier(node, fieldID)
	case tree.KindExceptHandler, tree.KindMatchAs, tree.KindMatchStar:
		s.renameIdentifier(node, fieldName)
	case tree.KindMatchMapping:
		s.renameIdentifier(node, fieldRest)
	case tree.KindArg:
		s.renameArgument(node)
	case tree.KindAttribute:
		s.renameMember(t, id, node)
	}

	return nil
}

// Exit implements tree.Visitor.
func (s *state) Exit(t *tree.Tree, id tree.NodeID) error {
	if _, done := s.outer[id]; done {
		return nil
	}

	node := t.Node(id)

	if node.Kind == tree.KindGlobal || node.Kind == tree.KindNonlocal {
		s.rewriteDeclarations(node)

		return nil
	}

	if node.Kind.CreatesScope() {
		err := s.resolver.ExitScope()
		if err != nil {
			return fmt.Errorf("leave %s: %w", node.Tag, err)
		}
	}

	return nil
}

func (s *state) skip(node *tree.Node, reason string) {
	s.logger.DebugContext(s.ctx, "rename step skipped", "tag", node.Tag, "reason", reason)
}

func (s *state) generate(original string, kind IdentKind) string {
	generated := s.gen.Generate()

	s.stats.Generated++
	s.mapping = append(s.mapping, Entry{
		Original:  original,
		Generated: generated,
		Kind:      kind,
		Scope:     s.resolver.CurrentKind().String(),
		Depth:     s.resolver.Depth() - 1,
	})

	return generated
}

func (s *state) rewrite(node *tree.Node, field, original, generated string, kind IdentKind) {
	if generated == original {
		return
	}

	node.Fields.Set(field, generated)
	s.stats.ByKind[kind]++
}

func (s *state) enterImport(t *tree.Tree, id tree.NodeID, node *tree.Node) {
	if node.Kind == tree.KindImportFrom {
		if module, ok := node.Fields.String(fieldModule); ok {
			s.policy.TrackImport(topComponent(module))
		}
	}

	for _, aliasID := range t.ChildrenIn(id, slotNames) {
		alias := t.Node(aliasID)

		name, ok := alias.Fields.String(fieldName)
		if !ok {
			s.skip(alias, "alias without name")

			continue
		}

		asname, hasAsname := alias.Fields.String(fieldAsname)

		s.policy.TrackImport(topComponent(name))

		if hasAsname {
			s.policy.TrackImport(asname)
		}

		if !s.policy.PreservesImports() {
			s.renameImportBinding(node.Kind, alias, name, asname, hasAsname)
		}
	}
}

// renameImportBinding gives an import a generated local name through its
// alias. A dotted plain import binds its first component unchanged unless
// that module is already bound.
func (s *state) renameImportBinding(kind tree.Kind, alias *tree.Node, name, asname string, hasAsname bool) {
	binding := asname

	if !hasAsname {
		if name == wildcardImport {
			return
		}

		if kind == tree.KindImport && strings.Contains(name, ".") {
			if top := topComponent(name); !s.resolver.IsBound(top) {
				s.resolver.Declare(top, top)
			}

			return
		}

		binding = name
	}

	if !s.eligible(binding) {
		return
	}

	generated := s.bindingFor(binding, KindImport)
	s.resolver.Declare(binding, generated)

	alias.Fields.Set(fieldAsname, generated)
	s.stats.ByKind[KindImport]++
}

// bindingFor reuses the name original already resolves to, or draws a new one.
func (s *state) bindingFor(original string, kind IdentKind) string {
	if s.resolver.IsBound(original) {
		if resolved := s.resolver.Resolve(original); resolved != original {
			return resolved
		}
	}

	return s.generate(original, kind)
}

func (s *state) markDeclarations(node *tree.Node) {
	names, ok := node.Fields.Strings(fieldNames)
	if !ok {
		s.skip(node, "declaration without names")

		return
	}

	for _, name := range names {
		if node.Kind == tree.KindGlobal {
			s.resolver.MarkGlobal(name)
		} else {
			s.resolver.MarkNonlocal(name)
		}
	}
}

func (s *state) rewriteDeclarations(node *tree.Node) {
	names, ok := node.Fields.Strings(fieldNames)
	if !ok {
		return
	}

	rewritten := make([]any, len(names))

	for idx, name := range names {
		if s.eligible(name) && !s.resolver.IsBound(name) {
			s.resolver.Declare(name, s.generate(name, KindVariable))
		}

		resolved := s.resolver.Resolve(name)
		if resolved != name {
			s.stats.ByKind[KindVariable]++
		}

		rewritten[idx] = resolved
	}

	node.Fields.Set(fieldNames, rewritten)
}

func (s *state) renameDefinition(node *tree.Node) {
	name, ok := node.Fields.String(fieldName)
	if !ok || name == "" {
		s.skip(node, "definition without name")

		return
	}

	inClass := s.resolver.CurrentKind() == scope.KindClass

	if !s.eligible(name) {
		s.resolver.Declare(name, name)

		return
	}

	kind := KindFunction
	if node.Kind == tree.KindClassDef {
		kind = KindClass
	}

	var generated string

	if inClass && s.resolver.IsFunctionRegistered(name) {
		generated = s.resolver.ResolveFunctionGlobally(name)
	} else {
		generated = s.bindingFor(name, kind)
	}

	s.resolver.Declare(name, generated)

	if inClass {
		s.resolver.RegisterFunctionRename(name, generated)
	}

	s.rewrite(node, fieldName, name, generated, kind)
}

// visitOuter renames the parts of a scope-creating node that Python evaluates
// in the enclosing scope: decorators, bases, class keywords, defaults and
// annotations. The main walk skips them afterwards.
func (s *state) visitOuter(t *tree.Tree, id tree.NodeID) error {
	var roots []tree.NodeID

	roots = append(roots, t.ChildrenIn(id, slotDecorators)...)

	if t.Kind(id) == tree.KindClassDef {
		roots = append(roots, t.ChildrenIn(id, slotBases)...)
		roots = append(roots, t.ChildrenIn(id, slotKeywords)...)
	}

	roots = append(roots, t.ChildrenIn(id, slotReturns)...)

	if argsID := t.FirstChild(id, slotArgs); argsID != tree.None && t.Kind(argsID) == tree.KindArguments {
		roots = append(roots, t.ChildrenIn(argsID, slotDefaults)...)
		roots = append(roots, t.ChildrenIn(argsID, slotKwDefaults)...)

		for _, child := range t.Children(argsID) {
			if t.Kind(child) == tree.KindArg {
				roots = append(roots, t.ChildrenIn(child, slotAnnotation)...)
			}
		}
	}

	for _, root := range roots {
		if _, done := s.outer[root]; done {
			continue
		}

		err := tree.Walk(t, root, s)
		if err != nil {
			return err
		}

		err = tree.Walk(t, root, tree.VisitorFuncs{OnEnter: func(_ *tree.Tree, n tree.NodeID) error {
			s.outer[n] = struct{}{}

			return nil
		}})
		if err != nil {
			return err
		}
	}

	return nil
}

func (s *state) enterScope(t *tree.Tree, id tree.NodeID, kind tree.Kind) {
	switch kind {
	case tree.KindClassDef:
		s.resolver.EnterScope(scope.KindClass)

		return
	case tree.KindLambda:
		s.resolver.EnterScope(scope.KindLambda)
	default:
		s.resolver.EnterScope(scope.KindFunction)
	}

	argsID := t.FirstChild(id, slotArgs)
	if argsID == tree.None || t.Kind(argsID) != tree.KindArguments {
		s.skip(t.Node(id), "no arguments node")

		return
	}

	for _, child := range t.Children(argsID) {
		if t.Kind(child) != tree.KindArg {
			continue
		}

		name, ok := t.Node(child).Fields.String(fieldArg)
		if !ok || eligibility.IsSelfReference(name) || !s.eligible(name) {
			continue
		}

		s.resolver.BindLocal(name, s.generate(name, KindParameter))
	}
}

// renameIdentifier handles a bare identifier stored in field. The first
// occurrence, read or write, binds where the name would be assigned in the
// current scope.
func (s *state) renameIdentifier(node *tree.Node, field string) {
	name, ok := node.Fields.String(field)
	if !ok || !s.eligible(name) {
		return
	}

	if s.resolver.IsBound(name) {
		s.rewrite(node, field, name, s.resolver.Resolve(name), KindVariable)

		return
	}

	inClass := s.resolver.CurrentKind() == scope.KindClass

	var generated string

	switch {
	case inClass && s.resolver.IsFunctionRegistered(name):
		generated = s.resolver.ResolveFunctionGlobally(name)
	default:
		generated = s.generate(name, KindVariable)
	}

	s.resolver.Declare(name, generated)

	if inClass {
		s.resolver.RegisterFunctionRename(name, generated)
	}

	s.rewrite(node, field, name, generated, KindVariable)
}

func (s *state) renameArgument(node *tree.Node) {
	name, ok := node.Fields.String(fieldArg)
	if !ok || eligibility.IsSelfReference(name) {
		return
	}

	s.rewrite(node, fieldArg, name, s.resolver.Resolve(name), KindParameter)
}

func (s *state) renameMember(t *tree.Tree, id tree.NodeID, node *tree.Node) {
	attr, ok := node.Fields.String(fieldAttr)
	if !ok || eligibility.IsSpecialMethod(attr) || eligibility.IsSpecialAttribute(attr) {
		return
	}

	receiver := receiverName(t, id)

	if s.policy.PreservesImports() &&
		(s.policy.IsImported(receiver) || eligibility.IsCommonModule(receiver)) {
		return
	}

	isSelf := eligibility.IsSelfReference(receiver)
	registered := s.resolver.IsFunctionRegistered(attr)

	switch {
	case registered:
		s.rewrite(node, fieldAttr, attr, s.resolver.ResolveFunctionGlobally(attr), KindMember)
	case isSelf && s.eligible(attr):
		generated := s.generate(attr, KindMember)
		s.resolver.RegisterFunctionRename(attr, generated)
		s.rewrite(node, fieldAttr, attr, generated, KindMember)
	}
}

// receiverName returns the identifier of a bare-name receiver, or "".
func receiverName(t *tree.Tree, id tree.NodeID) string {
	value := t.FirstChild(id, slotValue)
	if value == tree.None || t.Kind(value) != tree.KindName {
		return ""
	}

	name, _ := t.Node(value).Fields.String(fieldID)

	return name
}

func topComponent(dotted string) string {
	head, _, _ := strings.Cut(dotted, ".")

	return head
}
