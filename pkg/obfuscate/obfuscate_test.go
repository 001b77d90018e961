package obfuscate_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/Sumatoshi-tech/pyfuscate/pkg/astjson"
	"github.com/Sumatoshi-tech/pyfuscate/pkg/config"
	"github.com/Sumatoshi-tech/pyfuscate/pkg/obfuscate"
)

// funcDoc is the wire form of:
//
//	x = 2
//	y = 3
//	def f(x): return x + y
const funcDoc = `{"type":"Module","fields":{"body":[
 {"type":"Assign","fields":{"targets":[{"type":"Name","fields":{"id":"x","ctx":{"type":"Store","fields":{}}}}],"value":{"type":"Constant","fields":{"value":2,"kind":null}}}},
 {"type":"Assign","fields":{"targets":[{"type":"Name","fields":{"id":"y","ctx":{"type":"Store","fields":{}}}}],"value":{"type":"Constant","fields":{"value":3,"kind":null}}}},
 {"type":"FunctionDef","fields":{"name":"f",
   "args":{"type":"arguments","fields":{"posonlyargs":[],"args":[{"type":"arg","fields":{"arg":"x","annotation":null}}],"kwonlyargs":[],"kw_defaults":[],"defaults":[]}},
   "body":[{"type":"Return","fields":{"value":{"type":"BinOp","fields":{
     "left":{"type":"Name","fields":{"id":"x","ctx":{"type":"Load","fields":{}}}},
     "op":{"type":"Add","fields":{}},
     "right":{"type":"Name","fields":{"id":"y","ctx":{"type":"Load","fields":{}}}}}}}}],
   "decorator_list":[],"returns":null,"type_params":[]}}
],"type_ignores":[]}}`

const pySource = "x = 2\ny = 3\ndef f(x):\n    return x + y\n"

var errBridge = errors.New("bridge broke")

// fakeBridge parses by writing a fixed document and unparses by copying the
// transformed JSON to the destination.
type fakeBridge struct {
	parseErr error
	closed   *bool
	parsed   *string
	doc      string
}

func (b fakeBridge) Parse(_ context.Context, _, dst string) error {
	if b.parseErr != nil {
		return b.parseErr
	}

	*b.parsed = dst

	return os.WriteFile(dst, []byte(b.doc), 0o600)
}

func (b fakeBridge) Unparse(_ context.Context, src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}

	return os.WriteFile(dst, data, 0o600)
}

func (b fakeBridge) Close() error {
	*b.closed = true

	return nil
}

type harness struct {
	cfg    *config.Config
	closed bool
	parsed string
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	dir := t.TempDir()
	input := filepath.Join(dir, "app.py")
	require.NoError(t, os.WriteFile(input, []byte(pySource), 0o600))

	cfg := config.Default()
	cfg.Input = input
	cfg.Output = filepath.Join(dir, "out.json")
	cfg.Rename.Seed = 99
	cfg.Python.TempDir = t.TempDir()

	return &harness{cfg: cfg}
}

func (h *harness) deps(parseErr error) obfuscate.Deps {
	return obfuscate.Deps{
		NewBridge: func(string, string, *slog.Logger) (obfuscate.Bridge, error) {
			return fakeBridge{doc: funcDoc, parseErr: parseErr, closed: &h.closed, parsed: &h.parsed}, nil
		},
	}
}

func TestRun(t *testing.T) {
	t.Parallel()

	h := newHarness(t)

	result, err := obfuscate.Run(context.Background(), h.cfg, h.deps(nil))
	require.NoError(t, err)

	assert.True(t, h.closed)
	assert.Equal(t, int64(99), result.Seed)
	assert.Equal(t, uint64(len(pySource)), result.Size)
	assert.Equal(t, 4, result.Lines)
	assert.Positive(t, result.OutputLines)
	assert.Equal(t, 3, result.Stats.Generated)
	assert.Len(t, result.Mapping, 3)

	out, err := os.ReadFile(h.cfg.Output)
	require.NoError(t, err)
	require.NoError(t, astjson.Validate(out))
	assert.NotContains(t, string(out), `"id":"x"`)
	assert.Contains(t, string(out), `"name":"f"`)

	// Intermediate files are gone.
	_, err = os.Stat(result.WorkDir)
	assert.True(t, os.IsNotExist(err))
}

func TestRun_KeepTemp(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.cfg.Python.KeepTemp = true

	result, err := obfuscate.Run(context.Background(), h.cfg, h.deps(nil))
	require.NoError(t, err)
	assert.True(t, result.KeptTemp)

	for _, name := range []string{"parsed.json", "transformed.json"} {
		_, err = os.Stat(filepath.Join(result.WorkDir, name))
		assert.NoError(t, err, name)
	}

	assert.Equal(t, filepath.Join(result.WorkDir, "parsed.json"), h.parsed)
}

func TestRun_Deterministic(t *testing.T) {
	t.Parallel()

	first := newHarness(t)
	second := newHarness(t)

	_, err := obfuscate.Run(context.Background(), first.cfg, first.deps(nil))
	require.NoError(t, err)

	_, err = obfuscate.Run(context.Background(), second.cfg, second.deps(nil))
	require.NoError(t, err)

	a, err := os.ReadFile(first.cfg.Output)
	require.NoError(t, err)

	b, err := os.ReadFile(second.cfg.Output)
	require.NoError(t, err)

	assert.Equal(t, string(a), string(b))
}

func TestRun_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		mutate   func(h *harness)
		parseErr error
		want     error
	}{
		{
			name:   "missing input",
			mutate: func(h *harness) { h.cfg.Input = "" },
			want:   config.ErrMissingInput,
		},
		{
			name:   "invalid length",
			mutate: func(h *harness) { h.cfg.Rename.Length = -1 },
			want:   config.ErrInvalidLength,
		},
		{
			name:   "too large",
			mutate: func(h *harness) { h.cfg.Python.MaxInputSize = "10B" },
			want:   obfuscate.ErrInputTooLarge,
		},
		{
			name: "not python",
			mutate: func(h *harness) {
				path := filepath.Join(filepath.Dir(h.cfg.Input), "main.go")
				_ = os.WriteFile(path, []byte("package main\n"), 0o600)
				h.cfg.Input = path
			},
			want: obfuscate.ErrNotPython,
		},
		{
			name: "binary",
			mutate: func(h *harness) {
				_ = os.WriteFile(h.cfg.Input, []byte("x = 1\n\x00\x01"), 0o600)
			},
			want: obfuscate.ErrNotPython,
		},
		{
			name:     "bridge failure",
			mutate:   func(*harness) {},
			parseErr: errBridge,
			want:     errBridge,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			h := newHarness(t)
			tt.mutate(h)

			_, err := obfuscate.Run(context.Background(), h.cfg, h.deps(tt.parseErr))
			require.ErrorIs(t, err, tt.want)

			_, statErr := os.Stat(h.cfg.Output)
			assert.True(t, os.IsNotExist(statErr))
		})
	}
}

func TestRun_Span(t *testing.T) {
	t.Parallel()

	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))

	h := newHarness(t)
	deps := h.deps(nil)
	deps.Tracer = tp.Tracer("test")

	_, err := obfuscate.Run(context.Background(), h.cfg, deps)
	require.NoError(t, err)

	var names []string
	for _, span := range recorder.Ended() {
		names = append(names, span.Name())
	}

	assert.Contains(t, names, "pyfuscate.obfuscate")
	assert.Contains(t, names, "pyfuscate.pass.rename")
}

func TestRun_LogsGeneratedSeed(t *testing.T) {
	t.Parallel()

	var logs bytes.Buffer

	h := newHarness(t)
	h.cfg.Rename.SeedGenerated = true

	deps := h.deps(nil)
	deps.Logger = slog.New(slog.NewTextHandler(&logs, nil))

	_, err := obfuscate.Run(context.Background(), h.cfg, deps)
	require.NoError(t, err)

	assert.Contains(t, logs.String(), "using random seed")
	assert.Contains(t, logs.String(), "seed=99")
	assert.Contains(t, logs.String(), "obfuscation complete")
}

func TestTransformTree(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	cfg.Rename.Seed = 5

	var out bytes.Buffer

	result, err := obfuscate.TransformTree(context.Background(), cfg, strings.NewReader(funcDoc), &out, obfuscate.Deps{})
	require.NoError(t, err)

	assert.Equal(t, 3, result.Stats.Generated)
	assert.Positive(t, result.Nodes)
	assert.Len(t, result.Mapping.Generated("x"), 2)
	require.NoError(t, astjson.Validate(out.Bytes()))
}

func TestTransformTree_BadInput(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer

	_, err := obfuscate.TransformTree(context.Background(), config.Default(),
		strings.NewReader(`{"type":"Module","fields":{"body":{"type":"Pass","fields":{}}}}`), &out, obfuscate.Deps{})
	require.ErrorIs(t, err, astjson.ErrArityMismatch)
	assert.Zero(t, out.Len())
}
