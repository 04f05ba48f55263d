package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/dshills/ksense/internal/app"
)

// run executes the command line with captured output. Every run gets its
// own config file so the user's configuration never leaks in.
func run(t *testing.T, configBody string, args ...string) (string, string, error) {
	t.Helper()
	t.Setenv("KSENSE_CONFIG", "")
	t.Setenv("KSENSE_LOG_LEVEL", "")

	cfgPath := filepath.Join(t.TempDir(), "ksense.toml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(configBody), 0o644))

	var out, errOut bytes.Buffer
	cmd := newCommand()
	cmd.Writer = &out
	cmd.ErrWriter = &errOut
	argv := append([]string{"ksense", "--config", cfgPath, "--log-level", "error"}, args...)
	err := cmd.Run(context.Background(), argv)
	return out.String(), errOut.String(), err
}

func writeSource(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "main.txt")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestConfigDump(t *testing.T) {
	out, _, err := run(t, "[completion]\nn_rows = 8\n", "config", "--dump")
	require.NoError(t, err)
	assert.Contains(t, out, "n_rows = 8")
	assert.Contains(t, out, "[providers.words]")
}

func TestConfigLogFlagsOverride(t *testing.T) {
	out, _, err := run(t, "", "config")
	require.NoError(t, err)
	assert.Contains(t, out, "level = 'error'")

	_, _, err = run(t, "", "--log-format", "xml", "config")
	assert.ErrorContains(t, err, "logging.format")
}

func TestConfigValidate(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.yaml")
	bad := filepath.Join(dir, "bad.toml")
	require.NoError(t, os.WriteFile(good, []byte("completion:\n  n_rows: 3\n"), 0o644))
	require.NoError(t, os.WriteFile(bad, []byte("[completion]\nn_rows = 99\ncolour = 'red'\n"), 0o644))

	out, _, err := run(t, "", "config", "--validate", good)
	require.NoError(t, err)
	assert.Equal(t, good+": ok\n", out)

	_, errOut, err := run(t, "", "config", "--validate", bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "problem(s)")
	assert.Contains(t, errOut, "completion.n_rows")
	assert.Contains(t, errOut, "colour")
}

func TestConfigSchema(t *testing.T) {
	out, _, err := run(t, "", "config", "--schema")
	require.NoError(t, err)
	require.True(t, gjson.Valid(out))
	assert.Equal(t, "object", gjson.Get(out, "type").String())
}

func TestCompletePlain(t *testing.T) {
	const src = "foobar foobaz\nfoo"
	path := writeSource(t, src)

	out, _, err := run(t, "", "complete", "--offset", "17", path)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 2)
	for _, line := range lines {
		fields := strings.Split(line, "\t")
		require.Len(t, fields, 4)
		assert.True(t, strings.HasPrefix(fields[0], "fooba"))
		assert.Equal(t, "Words", fields[2])
	}
}

func TestCompleteJSON(t *testing.T) {
	path := writeSource(t, "alpha alphabet\nal = 1\n")

	out, _, err := run(t, "", "complete", "--line", "2", "--col", "3", "--json", path)
	require.NoError(t, err)
	require.True(t, gjson.Valid(out), out)

	assert.Equal(t, "al", gjson.Get(out, "word").String())
	assert.False(t, gjson.Get(out, "timed_out").Bool())
	var got []string
	for _, v := range gjson.Get(out, "results.#.label").Array() {
		got = append(got, v.String())
	}
	assert.ElementsMatch(t, []string{"alpha", "alphabet"}, got)
	assert.False(t, gjson.Get(out, "failures").Exists())
}

func TestCompleteArguments(t *testing.T) {
	path := writeSource(t, "x")

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"no position", []string{"complete", path}, "--offset"},
		{"line without col", []string{"complete", "--line", "1", path}, "--col"},
		{"no file", []string{"complete", "--offset", "0"}, "FILE"},
		{"bad offset", []string{"complete", "--offset", "9", path}, app.ErrNoPosition.Error()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := run(t, "", tt.args...)
			assert.ErrorContains(t, err, tt.want)
		})
	}
}

func TestRenderTable(t *testing.T) {
	c := &app.Completion{
		Word: "fo",
		Results: []app.Result{
			{Provider: "Words", Kind: "text", Label: "foo"},
			{Provider: "Go keywords", Kind: "keyword", Label: "for", Detail: "loop"},
		},
	}
	lines := strings.Split(strings.TrimRight(renderTable(c), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "KIND")
	assert.Contains(t, lines[0], "PROVIDER")
	assert.Contains(t, lines[2], "for")
	assert.Contains(t, lines[2], "loop")
	assert.Contains(t, lines[2], "Go keywords")

	assert.Contains(t, renderTable(&app.Completion{Word: "zz"}), `no completions for "zz"`)
}

func TestRenderJSONFailures(t *testing.T) {
	c := &app.Completion{
		Word:     "x",
		TimedOut: true,
		Failures: map[string]error{
			"AI (openai)": errors.New("rate limited"),
			"LSP (gopls)": errors.New("exited"),
		},
	}
	out, err := renderJSON(c)
	require.NoError(t, err)

	assert.True(t, gjson.Get(out, "timed_out").Bool())
	assert.Equal(t, "[]", gjson.Get(out, "results").Raw)
	assert.Equal(t, "AI (openai)", gjson.Get(out, "failures.0.provider").String())
	assert.Equal(t, "exited", gjson.Get(out, "failures.1.error").String())

	var b bytes.Buffer
	reportProblems(&b, c)
	assert.Equal(t, "AI (openai): rate limited\nLSP (gopls): exited\n"+
		"some providers did not answer in time; results are partial\n", b.String())
}
