package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	flatex "github.com/njchilds90/goflatex"
)

const yamlBatch = `
precision: f64
cases:
  - name: square
    tool: evaluate
    expr: "x^2 + 1"
    x: [3]
  - tool: partial
    expr: "x*y"
    var: y
    x: [4, 5]
  - name: by-index
    tool: gradient
    expr: "x*y"
    x: [2, 3]
    precision: f32
  - name: broken
    tool: evaluate
    expr: "2*"
    x: []
`

const tomlBatch = `
precision = "f32"

[[cases]]
name = "ln"
tool = "evaluate"
expr = "ln(x)"
x = [1.0]

[[cases]]
name = "second"
tool = "partial"
expr = "x^3"
var = "0"
order = 2
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadBatchYAML(t *testing.T) {
	b, err := loadBatch(writeFile(t, "cases.yaml", yamlBatch))
	require.NoError(t, err)
	require.Len(t, b.Cases, 4)

	assert.Equal(t, "square", b.Cases[0].Name)
	assert.Equal(t, "2", b.Cases[1].Name)
	assert.Equal(t, "f64", b.Cases[1].Precision)
	assert.Equal(t, "f32", b.Cases[2].Precision)
	assert.Equal(t, []float64{4, 5}, b.Cases[1].X)
}

func TestLoadBatchTOML(t *testing.T) {
	b, err := loadBatch(writeFile(t, "cases.toml", tomlBatch))
	require.NoError(t, err)
	require.Len(t, b.Cases, 2)
	assert.Equal(t, "f32", b.Cases[0].Precision)
	assert.Equal(t, 2, b.Cases[1].Order)

	req := b.Cases[1].Request()
	assert.Equal(t, float64(0), req.Params["var"])
	assert.Equal(t, float64(2), req.Params["order"])
	_, hasX := req.Params["x"]
	assert.False(t, hasX)
}

func TestLoadBatchRejectsExtension(t *testing.T) {
	_, err := loadBatch(writeFile(t, "cases.json", "{}"))
	assert.Error(t, err)

	_, err = loadBatch(writeFile(t, "bad.yaml", "cases: [unterminated"))
	assert.Error(t, err)
}

func TestRun(t *testing.T) {
	b, err := loadBatch(writeFile(t, "cases.yml", yamlBatch))
	require.NoError(t, err)

	var out bytes.Buffer
	failed, err := run(flatex.NewToolHandler(flatex.DefaultToolOptions()), b.Cases, &out)
	require.NoError(t, err)
	assert.Equal(t, 1, failed)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 4)

	var rec struct {
		Case   string          `json:"case"`
		Tool   string          `json:"tool"`
		Result json.RawMessage `json:"result"`
		Error  string          `json:"error"`
		Kind   string          `json:"kind"`
	}
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &rec))
	assert.Equal(t, "square", rec.Case)
	assert.JSONEq(t, "10", string(rec.Result))

	require.NoError(t, json.Unmarshal([]byte(lines[2]), &rec))
	assert.JSONEq(t, "[3, 2]", string(rec.Result))

	rec.Error, rec.Kind = "", ""
	require.NoError(t, json.Unmarshal([]byte(lines[3]), &rec))
	assert.Equal(t, "parse", rec.Kind)
	assert.NotEmpty(t, rec.Error)
}

func TestParseVector(t *testing.T) {
	x, err := parseVector(" 1, 2.5,-3e2 ")
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2.5, -300}, x)

	x, err = parseVector("")
	require.NoError(t, err)
	assert.Empty(t, x)

	_, err = parseVector("1,,2")
	assert.Error(t, err)
}

func TestSingleCaseDefaultsTool(t *testing.T) {
	c, err := singleCase("x+1", "", "2", "", 0, "")
	require.NoError(t, err)
	assert.Equal(t, "evaluate", c.Tool)

	c, err = singleCase("x+1", "", "", "", 0, "")
	require.NoError(t, err)
	assert.Equal(t, "unparse", c.Tool)
}
