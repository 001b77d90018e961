package rename_test

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/pyfuscate/pkg/astjson"
	"github.com/Sumatoshi-tech/pyfuscate/pkg/transform/rename"
	"github.com/Sumatoshi-tech/pyfuscate/pkg/tree"
)

// Small builders for wire records, so fixtures read like the Python they
// stand for.

func rec(tag string, fields ...string) string {
	return fmt.Sprintf(`{"type":%q,"fields":{%s}}`, tag, strings.Join(fields, ","))
}

func field(name, value string) string {
	return strconv.Quote(name) + ":" + value
}

func str(s string) string {
	return strconv.Quote(s)
}

func list(items ...string) string {
	return "[" + strings.Join(items, ",") + "]"
}

func module(body ...string) string {
	return rec("Module", field("body", list(body...)), field("type_ignores", "[]"))
}

func load(id string) string {
	return rec("Name", field("id", str(id)), field("ctx", rec("Load")))
}

func store(id string) string {
	return rec("Name", field("id", str(id)), field("ctx", rec("Store")))
}

func num(n int) string {
	return rec("Constant", field("value", strconv.Itoa(n)), field("kind", "null"))
}

func assign(target, value string) string {
	return rec("Assign", field("targets", list(target)), field("value", value))
}

func expr(value string) string {
	return rec("Expr", field("value", value))
}

func ret(value string) string {
	return rec("Return", field("value", value))
}

func add(left, right string) string {
	return rec("BinOp", field("left", left), field("op", rec("Add")), field("right", right))
}

func call(fn string, args []string, keywords ...string) string {
	return rec("Call", field("func", fn), field("args", list(args...)), field("keywords", list(keywords...)))
}

func keyword(arg, value string) string {
	return rec("keyword", field("arg", str(arg)), field("value", value))
}

func attr(value, name, ctx string) string {
	return rec("Attribute", field("value", value), field("attr", str(name)), field("ctx", rec(ctx)))
}

func arguments(params ...string) string {
	args := make([]string, 0, len(params))

	for _, p := range params {
		args = append(args, rec("arg", field("arg", str(p)), field("annotation", "null")))
	}

	return rec("arguments",
		field("posonlyargs", "[]"),
		field("args", list(args...)),
		field("kwonlyargs", "[]"),
		field("kw_defaults", "[]"),
		field("defaults", "[]"))
}

// argumentsWithDefaults is arguments whose trailing parameters take defaults.
func argumentsWithDefaults(params []string, defaults ...string) string {
	args := make([]string, 0, len(params))

	for _, p := range params {
		args = append(args, rec("arg", field("arg", str(p)), field("annotation", "null")))
	}

	return rec("arguments",
		field("posonlyargs", "[]"),
		field("args", list(args...)),
		field("kwonlyargs", "[]"),
		field("kw_defaults", "[]"),
		field("defaults", list(defaults...)))
}

// decorated is a function with explicit arguments and decorators.
func decorated(name, args string, decorators []string, body ...string) string {
	return rec("FunctionDef",
		field("name", str(name)),
		field("args", args),
		field("body", list(body...)),
		field("decorator_list", list(decorators...)),
		field("returns", "null"))
}

func funcDef(name string, params []string, body ...string) string {
	return rec("FunctionDef",
		field("name", str(name)),
		field("args", arguments(params...)),
		field("body", list(body...)),
		field("decorator_list", "[]"),
		field("returns", "null"))
}

func classDef(name string, body ...string) string {
	return rec("ClassDef",
		field("name", str(name)),
		field("bases", "[]"),
		field("keywords", "[]"),
		field("body", list(body...)),
		field("decorator_list", "[]"))
}

func lambda(params []string, body string) string {
	return rec("Lambda", field("args", arguments(params...)), field("body", body))
}

func declare(tag string, names ...string) string {
	quoted := make([]string, 0, len(names))

	for _, n := range names {
		quoted = append(quoted, str(n))
	}

	return rec(tag, field("names", list(quoted...)))
}

func alias(name, asname string) string {
	as := "null"
	if asname != "" {
		as = str(asname)
	}

	return rec("alias", field("name", str(name)), field("asname", as))
}

func importStmt(aliases ...string) string {
	return rec("Import", field("names", list(aliases...)))
}

func importFrom(mod string, aliases ...string) string {
	return rec("ImportFrom", field("module", str(mod)), field("names", list(aliases...)), field("level", "0"))
}

func tryExcept(body []string, excType, name string, handler ...string) string {
	h := rec("ExceptHandler", field("type", load(excType)), field("name", str(name)), field("body", list(handler...)))

	return rec("Try",
		field("body", list(body...)),
		field("handlers", list(h)),
		field("orelse", "[]"),
		field("finalbody", "[]"))
}

// matchClass is "match subject: case cls(attr=0): pass" for each attr.
func matchClass(subject, cls string, attrs ...string) string {
	quoted := make([]string, 0, len(attrs))
	patterns := make([]string, 0, len(attrs))

	for _, a := range attrs {
		quoted = append(quoted, str(a))
		patterns = append(patterns, rec("MatchValue", field("value", num(0))))
	}

	pattern := rec("MatchClass",
		field("cls", load(cls)),
		field("patterns", "[]"),
		field("kwd_attrs", list(quoted...)),
		field("kwd_patterns", list(patterns...)))

	return rec("Match",
		field("subject", subject),
		field("cases", list(rec("match_case",
			field("pattern", pattern),
			field("guard", "null"),
			field("body", list(pass()))))))
}

func pass() string {
	return rec("Pass")
}

// run decodes doc, applies a rename pass with opts and returns the tree.
func run(t *testing.T, opts rename.Options, doc string) (*tree.Tree, *rename.Pass) {
	t.Helper()

	tr, err := astjson.Decode(strings.NewReader(doc))
	require.NoError(t, err)

	p, err := rename.New(opts, nil)
	require.NoError(t, err)

	require.NoError(t, p.Apply(context.Background(), tr))

	return tr, p
}

func encode(t *testing.T, tr *tree.Tree) string {
	t.Helper()

	var out bytes.Buffer

	require.NoError(t, astjson.Encode(&out, tr))

	return out.String()
}

func options() rename.Options {
	opts := rename.DefaultOptions()
	opts.Seed = 42

	return opts
}

// fieldValues collects field of every node tagged tag, in pre-order.
func fieldValues(tr *tree.Tree, tag, name string) []string {
	var out []string

	tr.VisitPreOrder(func(id tree.NodeID) {
		node := tr.Node(id)
		if node.Tag != tag {
			return
		}

		if v, ok := node.Fields.String(name); ok {
			out = append(out, v)
		}
	})

	return out
}

func names(tr *tree.Tree) []string {
	return fieldValues(tr, "Name", "id")
}

func count(values []string, want string) int {
	n := 0

	for _, v := range values {
		if v == want {
			n++
		}
	}

	return n
}
