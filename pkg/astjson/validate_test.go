package astjson_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/pyfuscate/pkg/astjson"
)

func TestSchema_IsJSON(t *testing.T) {
	t.Parallel()

	data, err := astjson.Schema()
	require.NoError(t, err)
	assert.True(t, json.Valid(data))
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		doc     string
		wantErr bool
	}{
		{name: "module", doc: funcModule},
		{name: "bare record", doc: `{"type":"Pass"}`},
		{name: "missing type", doc: `{"fields":{}}`, wantErr: true},
		{name: "bad type tag", doc: `{"type":"1x","fields":{}}`, wantErr: true},
		{name: "extra key", doc: `{"type":"Pass","fields":{},"lineno":1}`, wantErr: true},
		{name: "nested bad record", doc: `{"type":"Module","fields":{"body":[{"fields":{}}]}}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := astjson.Validate([]byte(tt.doc))
			if !tt.wantErr {
				require.NoError(t, err)

				return
			}

			require.ErrorIs(t, err, astjson.ErrSchemaViolation)

			var verr *astjson.ValidationError

			require.True(t, errors.As(err, &verr))
			assert.NotEmpty(t, verr.Violations)
		})
	}
}

func TestValidate_NotJSON(t *testing.T) {
	t.Parallel()

	err := astjson.Validate([]byte("def f(): pass"))
	require.Error(t, err)
	assert.NotErrorIs(t, err, astjson.ErrSchemaViolation)
}

func TestDumpYAML(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer

	require.NoError(t, astjson.DumpYAML(&out, decodeString(t, funcModule)))

	text := out.String()
	assert.Contains(t, text, "type: Module")
	assert.Contains(t, text, "type: FunctionDef")
	assert.Contains(t, text, "name: f")
	assert.NotContains(t, text, `"type"`)
}

func TestDumpTree(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer

	require.NoError(t, astjson.DumpTree(&out, decodeString(t, funcModule)))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.NotEmpty(t, lines)
	assert.Equal(t, "Module type_ignores=[]", lines[0])
	assert.Contains(t, out.String(), "\n  body: FunctionDef name=\"f\"")
	assert.Contains(t, out.String(), "\n    args: arguments")
	assert.Contains(t, out.String(), `Name id="x" ctx.type="Load"`)
}
