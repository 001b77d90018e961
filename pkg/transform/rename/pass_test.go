package rename_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/pyfuscate/pkg/astjson"
	"github.com/Sumatoshi-tech/pyfuscate/pkg/namegen"
	"github.com/Sumatoshi-tech/pyfuscate/pkg/transform/rename"
	"github.com/Sumatoshi-tech/pyfuscate/pkg/tree"
)

func TestNew_InvalidLength(t *testing.T) {
	t.Parallel()

	opts := options()
	opts.Length = 0

	_, err := rename.New(opts, nil)
	require.ErrorIs(t, err, namegen.ErrInvalidLength)
}

func TestPass_Name(t *testing.T) {
	t.Parallel()

	p, err := rename.New(options(), nil)
	require.NoError(t, err)
	assert.Equal(t, rename.PassName, p.Name())
}

// x = 2; y = 3
// def f(x): return x + y.
func TestApply_ParameterShadowsModuleName(t *testing.T) {
	t.Parallel()

	doc := module(
		assign(store("x"), num(2)),
		assign(store("y"), num(3)),
		funcDef("f", []string{"x"}, ret(add(load("x"), load("y")))),
	)

	tr, p := run(t, options(), doc)

	got := names(tr)
	require.Len(t, got, 4)

	moduleX, moduleY, innerX, innerY := got[0], got[1], got[2], got[3]

	for _, name := range got {
		assert.True(t, strings.HasPrefix(name, "v_"), name)
	}

	assert.NotEqual(t, "x", moduleX)
	assert.NotEqual(t, moduleX, innerX)
	assert.Equal(t, moduleY, innerY)

	params := fieldValues(tr, "arg", "arg")
	require.Equal(t, []string{innerX}, params)

	// Functions are not renamed by default.
	assert.Equal(t, []string{"f"}, fieldValues(tr, "FunctionDef", "name"))

	assert.Len(t, p.Mapping().Generated("x"), 2)
	assert.Len(t, p.Mapping().Generated("y"), 1)

	stats := p.Stats()
	assert.Equal(t, 3, stats.Generated)
	assert.Equal(t, 1, stats.ByKind[rename.KindParameter])
	assert.Equal(t, 4, stats.ByKind[rename.KindVariable])
	assert.Equal(t, 5, stats.Total())

	telemetry := p.RenameStats()
	assert.Equal(t, int64(3), telemetry.Generated)
	assert.Equal(t, int64(4), telemetry.ByKind["variable"])
}

func TestApply_MappingRecordsScope(t *testing.T) {
	t.Parallel()

	_, p := run(t, options(), module(funcDef("f", []string{"a"}, ret(load("a")))))

	mapping := p.Mapping()
	require.Len(t, mapping, 1)
	assert.Equal(t, "a", mapping[0].Original)
	assert.Equal(t, rename.KindParameter, mapping[0].Kind)
	assert.Equal(t, "function", mapping[0].Scope)
	assert.Equal(t, 1, mapping[0].Depth)
}

// x = 1
// def g(x): return x
// print(x).
func TestApply_OuterBindingRestoredAfterScope(t *testing.T) {
	t.Parallel()

	doc := module(
		assign(store("x"), num(1)),
		funcDef("g", []string{"x"}, ret(load("x"))),
		expr(call(load("print"), []string{load("x")})),
	)

	tr, _ := run(t, options(), doc)

	got := names(tr)
	require.Len(t, got, 4)

	assert.NotEqual(t, got[0], got[1])
	assert.Equal(t, "print", got[2])
	assert.Equal(t, got[0], got[3])
}

func TestApply_Deterministic(t *testing.T) {
	t.Parallel()

	doc := module(
		assign(store("alpha"), num(1)),
		funcDef("f", []string{"beta"}, ret(add(load("alpha"), load("beta")))),
	)

	first, _ := run(t, options(), doc)
	second, _ := run(t, options(), doc)

	assert.Equal(t, encode(t, first), encode(t, second))

	other := options()
	other.Seed = 7

	third, _ := run(t, other, doc)
	assert.NotEqual(t, encode(t, first), encode(t, third))
}

func TestApply_SamePassTwiceIsDeterministic(t *testing.T) {
	t.Parallel()

	doc := module(assign(store("alpha"), num(1)))

	p, err := rename.New(options(), nil)
	require.NoError(t, err)

	var outputs []string

	for range 2 {
		tr, err := astjson.Decode(strings.NewReader(doc))
		require.NoError(t, err)
		require.NoError(t, p.Apply(context.Background(), tr))

		outputs = append(outputs, encode(t, tr))
	}

	assert.Equal(t, outputs[0], outputs[1])
}

// x = 1
// def g():
//
//	global x
//	x = 2
//	return x.
func TestApply_GlobalRedirection(t *testing.T) {
	t.Parallel()

	doc := module(
		assign(store("x"), num(1)),
		funcDef("g", nil,
			declare("Global", "x"),
			assign(store("x"), num(2)),
			ret(load("x")),
		),
	)

	tr, _ := run(t, options(), doc)

	got := names(tr)
	require.Len(t, got, 3)
	assert.NotEqual(t, "x", got[0])
	assert.Equal(t, []string{got[0], got[0], got[0]}, got)

	node := tr.Find(func(n *tree.Node) bool { return n.Tag == "Global" })
	require.Len(t, node, 1)

	declared, ok := tr.Node(node[0]).Fields.Strings("names")
	require.True(t, ok)
	assert.Equal(t, []string{got[0]}, declared)
}

// def g():
//
//	global z
//	z = 1
//
// print(z).
func TestApply_GlobalWithoutModuleBinding(t *testing.T) {
	t.Parallel()

	doc := module(
		funcDef("g", nil,
			declare("Global", "z"),
			assign(store("z"), num(1)),
		),
		expr(call(load("print"), []string{load("z")})),
	)

	tr, _ := run(t, options(), doc)

	got := names(tr)
	require.Len(t, got, 3)
	assert.NotEqual(t, "z", got[0])
	assert.Equal(t, got[0], got[2])
}

// def outer():
//
//	n = 0
//	def inner():
//	    nonlocal n
//	    n = n + 1
//	return n.
func TestApply_Nonlocal(t *testing.T) {
	t.Parallel()

	doc := module(
		funcDef("outer", nil,
			assign(store("n"), num(0)),
			funcDef("inner", nil,
				declare("Nonlocal", "n"),
				assign(store("n"), add(load("n"), num(1))),
			),
			ret(load("n")),
		),
	)

	tr, _ := run(t, options(), doc)

	got := names(tr)
	require.Len(t, got, 4)
	assert.NotEqual(t, "n", got[0])
	assert.Equal(t, []string{got[0], got[0], got[0], got[0]}, got)

	node := tr.Find(func(n *tree.Node) bool { return n.Tag == "Nonlocal" })
	require.Len(t, node, 1)

	declared, _ := tr.Node(node[0]).Fields.Strings("names")
	assert.Equal(t, []string{got[0]}, declared)
}

// _ = print(__name__, self, len).
func TestApply_ProtectedNamesUnchanged(t *testing.T) {
	t.Parallel()

	doc := module(
		assign(store("_"), call(load("print"), []string{load("__name__"), load("self"), load("len")})),
		assign(store("__all__"), num(0)),
	)

	tr, p := run(t, options(), doc)

	assert.Equal(t, []string{"_", "print", "__name__", "self", "len", "__all__"}, names(tr))
	assert.Empty(t, p.Mapping())
}

func TestApply_BuiltinsRenamedWhenNotPreserved(t *testing.T) {
	t.Parallel()

	opts := options()
	opts.PreserveBuiltins = false

	tr, _ := run(t, opts, module(assign(store("input"), num(1))))

	assert.NotEqual(t, []string{"input"}, names(tr))
}

// import numpy as np
// import os.path
// from collections import OrderedDict
// np = np.array(os)
// d = OrderedDict().
func TestApply_ImportsPreserved(t *testing.T) {
	t.Parallel()

	doc := module(
		importStmt(alias("numpy", "np")),
		importStmt(alias("os.path", "")),
		importFrom("collections", alias("OrderedDict", "")),
		assign(store("np"), call(attr(load("np"), "array", "Load"), []string{load("os")})),
		assign(store("d"), call(load("OrderedDict"), nil)),
	)

	tr, _ := run(t, options(), doc)

	got := names(tr)
	require.Len(t, got, 5)
	assert.Equal(t, []string{"np", "np", "os"}, got[:3])
	assert.NotEqual(t, "d", got[3])
	assert.Equal(t, "OrderedDict", got[4])

	assert.Equal(t, []string{"array"}, fieldValues(tr, "Attribute", "attr"))
	assert.Equal(t, []string{"np"}, fieldValues(tr, "alias", "asname"))
}

// def f(): return z
// print(z).
func TestApply_FirstReadBindsInCurrentScope(t *testing.T) {
	t.Parallel()

	doc := module(
		funcDef("f", nil, ret(load("z"))),
		expr(call(load("print"), []string{load("z")})),
	)

	tr, p := run(t, options(), doc)

	got := names(tr)
	require.Len(t, got, 3)
	assert.NotEqual(t, "z", got[0])
	assert.Equal(t, "print", got[1])
	assert.NotEqual(t, "z", got[2])
	assert.NotEqual(t, got[0], got[2])

	mapping := p.Mapping()
	require.Len(t, mapping, 2)
	assert.Equal(t, []string{got[0], got[2]}, mapping.Generated("z"))
	assert.Equal(t, "function", mapping[0].Scope)
	assert.Equal(t, 1, mapping[0].Depth)
	assert.Equal(t, "module", mapping[1].Scope)
	assert.Equal(t, 0, mapping[1].Depth)
}

// import os.path
// os.path.join().
func TestApply_DottedImportKeepsTopName(t *testing.T) {
	t.Parallel()

	opts := options()
	opts.PreserveImports = false

	doc := module(
		importStmt(alias("os.path", "")),
		expr(call(attr(attr(load("os"), "path", "Load"), "join", "Load"), nil)),
	)

	tr, p := run(t, opts, doc)

	assert.Equal(t, []string{"os"}, names(tr))
	assert.Equal(t, []string{"os.path"}, fieldValues(tr, "alias", "name"))
	assert.Empty(t, fieldValues(tr, "alias", "asname"))
	assert.Empty(t, p.Mapping().Generated("os"))
}

// x = 1
// def f(x=x): return x.
func TestApply_DefaultsResolveInEnclosingScope(t *testing.T) {
	t.Parallel()

	doc := module(
		assign(store("x"), num(1)),
		decorated("f", argumentsWithDefaults([]string{"x"}, load("x")), nil, ret(load("x"))),
	)

	tr, _ := run(t, options(), doc)

	got := names(tr)
	require.Len(t, got, 3)

	params := fieldValues(tr, "arg", "arg")
	require.Len(t, params, 1)

	moduleX := got[0]
	assert.NotEqual(t, "x", moduleX)
	assert.NotEqual(t, moduleX, params[0])
	assert.Equal(t, 2, count(got, moduleX), got)
	assert.Equal(t, 1, count(got, params[0]), got)
}

// d = 0
// @d
// def g(d): return d.
func TestApply_DecoratorsResolveInEnclosingScope(t *testing.T) {
	t.Parallel()

	doc := module(
		assign(store("d"), num(0)),
		decorated("g", argumentsWithDefaults([]string{"d"}), []string{load("d")}, ret(load("d"))),
	)

	tr, _ := run(t, options(), doc)

	got := names(tr)
	require.Len(t, got, 3)

	params := fieldValues(tr, "arg", "arg")
	require.Len(t, params, 1)

	assert.NotEqual(t, got[0], params[0])
	assert.Equal(t, 2, count(got, got[0]), got)
	assert.Equal(t, 1, count(got, params[0]), got)
}

// class P:
//
//	x = 0
//
// p = P()
// match p:
//
//	case P(x=0): pass.
func TestApply_ClassPatternAttributesFrozen(t *testing.T) {
	t.Parallel()

	doc := module(
		classDef("P", assign(store("x"), num(0))),
		assign(store("p"), call(load("P"), nil)),
		matchClass(load("p"), "P", "x"),
	)

	tr, _ := run(t, options(), doc)

	got := names(tr)
	require.Len(t, got, 5)
	assert.Equal(t, "x", got[0])
	assert.NotEqual(t, "p", got[1])
	assert.Equal(t, got[1], got[3])

	node := tr.Find(func(n *tree.Node) bool { return n.Tag == "MatchClass" })
	require.Len(t, node, 1)

	attrs, ok := tr.Node(node[0]).Fields.Strings("kwd_attrs")
	require.True(t, ok)
	assert.Equal(t, []string{"x"}, attrs)
}

// import json
// import numpy as np
// json.dumps(np).
func TestApply_ImportsRenamedThroughAlias(t *testing.T) {
	t.Parallel()

	opts := options()
	opts.PreserveImports = false

	doc := module(
		importStmt(alias("json", "")),
		importStmt(alias("numpy", "np")),
		expr(call(attr(load("json"), "dumps", "Load"), []string{load("np")})),
	)

	tr, p := run(t, opts, doc)

	asnames := fieldValues(tr, "alias", "asname")
	require.Len(t, asnames, 2)

	assert.Equal(t, []string{"json", "numpy"}, fieldValues(tr, "alias", "name"))
	assert.Equal(t, asnames, names(tr))
	assert.Equal(t, []string{"dumps"}, fieldValues(tr, "Attribute", "attr"))
	assert.Equal(t, 2, p.Stats().ByKind[rename.KindImport])
}

// class C:
//
//	def __init__(self): self.value = 1
//	def get(self): return self.value.
func TestApply_MemberConsistency(t *testing.T) {
	t.Parallel()

	doc := module(
		classDef("C",
			funcDef("__init__", []string{"self"}, assign(attr(load("self"), "value", "Store"), num(1))),
			funcDef("get", []string{"self"}, ret(attr(load("self"), "value", "Load"))),
		),
	)

	tr, p := run(t, options(), doc)

	members := fieldValues(tr, "Attribute", "attr")
	require.Len(t, members, 2)
	assert.NotEqual(t, "value", members[0])
	assert.Equal(t, members[0], members[1])

	assert.Equal(t, []string{"self", "self"}, fieldValues(tr, "arg", "arg"))
	assert.Equal(t, []string{"__init__", "get"}, fieldValues(tr, "FunctionDef", "name"))
	assert.Equal(t, []string{"C"}, fieldValues(tr, "ClassDef", "name"))
	assert.Equal(t, 2, p.Stats().ByKind[rename.KindMember])
}

// class C:
//
//	def get(self): return 1
//
// c = C()
// c.get().
func TestApply_MethodsRenamedAcrossReceivers(t *testing.T) {
	t.Parallel()

	opts := options()
	opts.RenameFunctions = true

	doc := module(
		classDef("C", funcDef("get", []string{"self"}, ret(num(1)))),
		assign(store("c"), call(load("C"), nil)),
		expr(call(attr(load("c"), "get", "Load"), nil)),
	)

	tr, _ := run(t, opts, doc)

	method := fieldValues(tr, "FunctionDef", "name")
	require.Len(t, method, 1)
	assert.NotEqual(t, "get", method[0])
	assert.Equal(t, method, fieldValues(tr, "Attribute", "attr"))

	got := names(tr)
	require.Len(t, got, 3)
	assert.Equal(t, "C", got[1])
	assert.Equal(t, got[0], got[2])
}

// class K:
//
//	attr = 1
//	def m(self): return attr, self.attr.
func TestApply_ClassScopeHiddenFromMethods(t *testing.T) {
	t.Parallel()

	doc := module(
		classDef("K",
			assign(store("attr"), num(1)),
			funcDef("m", []string{"self"},
				expr(load("attr")),
				ret(attr(load("self"), "attr", "Load")),
			),
		),
	)

	tr, _ := run(t, options(), doc)

	got := names(tr)
	require.Len(t, got, 3)

	classAttr, methodRead := got[0], got[1]
	assert.NotEqual(t, "attr", classAttr)
	assert.NotEqual(t, classAttr, methodRead)

	assert.Equal(t, []string{classAttr}, fieldValues(tr, "Attribute", "attr"))
}

// try: pass
// except ValueError as err: print(err).
func TestApply_ExceptHandlerName(t *testing.T) {
	t.Parallel()

	doc := module(
		tryExcept([]string{pass()}, "ValueError", "err",
			expr(call(load("print"), []string{load("err")})),
		),
	)

	tr, _ := run(t, options(), doc)

	handler := fieldValues(tr, "ExceptHandler", "name")
	require.Len(t, handler, 1)
	assert.NotEqual(t, "err", handler[0])
	assert.Equal(t, []string{"ValueError", "print", handler[0]}, names(tr))
}

// def f(a): return a
// f(a=1).
func TestApply_KeywordArgumentNamesFrozen(t *testing.T) {
	t.Parallel()

	doc := module(
		funcDef("f", []string{"a", "b"}, ret(add(load("a"), load("b")))),
		expr(call(load("f"), nil, keyword("a", num(1)))),
	)

	tr, _ := run(t, options(), doc)

	params := fieldValues(tr, "arg", "arg")
	require.Len(t, params, 2)
	assert.Equal(t, "a", params[0])
	assert.NotEqual(t, "b", params[1])

	assert.Equal(t, []string{"a"}, fieldValues(tr, "keyword", "arg"))
}

// def f(): pass
// f().
func TestApply_FunctionToggle(t *testing.T) {
	t.Parallel()

	doc := module(
		funcDef("f", nil, pass()),
		expr(call(load("f"), nil)),
	)

	tr, _ := run(t, options(), doc)
	assert.Equal(t, []string{"f"}, names(tr))

	opts := options()
	opts.RenameFunctions = true

	tr, p := run(t, opts, doc)

	defs := fieldValues(tr, "FunctionDef", "name")
	require.Len(t, defs, 1)
	assert.NotEqual(t, "f", defs[0])
	assert.Equal(t, defs, names(tr))
	assert.Equal(t, 1, p.Stats().ByKind[rename.KindFunction])
}

// class K: pass
// k = K().
func TestApply_ClassToggle(t *testing.T) {
	t.Parallel()

	doc := module(
		classDef("K", pass()),
		assign(store("k"), call(load("K"), nil)),
	)

	opts := options()
	opts.RenameClasses = true

	tr, _ := run(t, opts, doc)

	classes := fieldValues(tr, "ClassDef", "name")
	require.Len(t, classes, 1)
	assert.NotEqual(t, "K", classes[0])

	got := names(tr)
	require.Len(t, got, 2)
	assert.Equal(t, classes[0], got[1])
}

// square = lambda q: q + q.
func TestApply_LambdaParameters(t *testing.T) {
	t.Parallel()

	doc := module(assign(store("square"), lambda([]string{"q"}, add(load("q"), load("q")))))

	tr, _ := run(t, options(), doc)

	params := fieldValues(tr, "arg", "arg")
	require.Len(t, params, 1)
	assert.NotEqual(t, "q", params[0])

	got := names(tr)
	require.Len(t, got, 3)
	assert.Equal(t, []string{params[0], params[0]}, got[1:])
}

func TestApply_MalformedNodesIgnored(t *testing.T) {
	t.Parallel()

	doc := module(
		rec("Name", field("ctx", rec("Load"))),
		rec("FunctionDef", field("body", list(pass()))),
		rec("Global"),
		rec("Attribute", field("attr", "3")),
	)

	_, p := run(t, options(), doc)
	assert.Empty(t, p.Mapping())
}

func TestApply_GeneratedNamesAvoidExistingIdentifiers(t *testing.T) {
	t.Parallel()

	first, _ := run(t, options(), module(assign(store("x"), num(1))))
	taken := names(first)[0]

	// The name the seed would draw first is already used by the input.
	tr, _ := run(t, options(), module(
		assign(store("x"), num(1)),
		expr(call(load("print"), []string{load(taken)})),
	))

	got := names(tr)
	require.Len(t, got, 3)
	assert.NotEqual(t, taken, got[0])
}

func TestApply_Canceled(t *testing.T) {
	t.Parallel()

	body := make([]string, 0, 5000)
	for range 5000 {
		body = append(body, pass())
	}

	tr, err := astjson.Decode(strings.NewReader(module(body...)))
	require.NoError(t, err)

	p, err := rename.New(options(), nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err = p.Apply(ctx, tr)
	require.ErrorIs(t, err, context.Canceled)
}
