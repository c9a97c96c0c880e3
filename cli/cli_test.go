package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()

	buf := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)

	err := cmd.Execute()
	return buf.String(), err
}

func TestCompileText(t *testing.T) {
	fields := filepath.Join(t.TempDir(), "fields.yaml")
	require.NoError(t, os.WriteFile(fields, []byte("createdAt: created_at\n"), 0o600))

	out, err := run(t, "compile", "--fields", fields, "--table", "users",
		"sort=-createdAt limit=10 : status=active & age>18")
	require.NoError(t, err)

	assert.Equal(t,
		"SELECT * FROM users WHERE status = $1 AND age > $2 ORDER BY created_at DESC LIMIT 10\n"+
			"  1: \"active\"\n"+
			"  2: 18\n",
		out)
}

func TestCompileJSON(t *testing.T) {
	out, err := run(t, "--format", "json", "compile", "--dialect", "clickhouse", "--table", "events", "--columns", "id,level",
		"level=error,fatal")
	require.NoError(t, err)

	var res map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, "SELECT id, level FROM events WHERE level IN (?, ?)", res["sql"])
	assert.Equal(t, []any{"error", "fatal"}, res["args"])
	assert.Equal(t, "SELECT id, level FROM events WHERE level IN (?1)", res["dql"])
}

func TestCompileErrors(t *testing.T) {
	_, err := run(t, "compile", "--dialect", "oracle", "a=1")
	require.ErrorContains(t, err, "unsupported dialect")

	_, err = run(t, "compile", "status=")
	require.ErrorContains(t, err, "invalid criteria")

	_, err = run(t, "compile", "--fields", "/nonexistent.yaml", "a=1")
	require.ErrorContains(t, err, "cannot load field map")

	_, err = run(t, "--format", "xml", "compile", "a=1")
	require.ErrorContains(t, err, "invalid format")
}

func TestValidate(t *testing.T) {
	dir := t.TempDir()

	valid := filepath.Join(dir, "valid.json")
	require.NoError(t, os.WriteFile(valid, []byte(`{"filters":[{"field":"a","op":"=","value":1}],"limit":5}`), 0o600))

	out, err := run(t, "validate", valid)
	require.NoError(t, err)
	assert.Contains(t, out, "valid.json: valid")

	invalid := filepath.Join(dir, "invalid.yaml")
	require.NoError(t, os.WriteFile(invalid, []byte("filters:\n  - field: a\n    op: \">\"\nlimit: -1\n"), 0o600))

	out, err = run(t, "validate", invalid)
	require.Error(t, err)
	assert.Contains(t, out, "invalid.yaml: invalid")
	assert.Contains(t, out, "limit: Value cannot be negative.")
	assert.Contains(t, out, "filters[0].value")

	out, err = run(t, "--format", "json", "validate", invalid)
	require.Error(t, err)

	var res map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, false, res["valid"])
	assert.NotEmpty(t, res["errors"])

	_, err = run(t, "validate", filepath.Join(dir, "missing.json"))
	require.ErrorContains(t, err, "cannot read criteria document")
}

func TestParse(t *testing.T) {
	out, err := run(t, "--format", "json", "parse", "limit=5 : status=active | age>=18")
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	assert.Equal(t, map[string]any{
		"filters": []any{
			map[string]any{"or": []any{
				map[string]any{"field": "status", "op": "=", "value": "active"},
				map[string]any{"field": "age", "op": ">=", "value": float64(18)},
			}},
		},
		"limit": float64(5),
	}, doc)

	out, err = run(t, "parse", "a=1")
	require.NoError(t, err)
	assert.Contains(t, out, "field: a")

	_, err = run(t, "parse", "(a=1")
	require.ErrorContains(t, err, "invalid criteria")
}

func TestFormatFromPath(t *testing.T) {
	assert.Equal(t, "yaml", string(formatFromPath("a.YML")))
	assert.Equal(t, "msgpack", string(formatFromPath("a.msgpack")))
	assert.Equal(t, "json", string(formatFromPath("a")))
}
