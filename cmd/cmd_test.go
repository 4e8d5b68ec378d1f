package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	script "vesta/lib/component/function/tengo"
	"vesta/vesta"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	out := &bytes.Buffer{}
	Command.SetOut(out)
	Command.SetErr(out)
	Command.SetArgs(args)
	defer Command.SetArgs(nil)
	err := Command.Execute()
	return out.String(), err
}

func TestComponent(t *testing.T) {
	out, err := execute(t, "component", "sink")
	require.NoError(t, err)
	assert.Contains(t, out, "echo sink:")
	assert.Contains(t, out, "file output-format:")

	out, err = execute(t, "component", "operator")
	require.NoError(t, err)
	assert.Contains(t, out, "tengo-filter function:")
	assert.Contains(t, out, "sample operator:")

	_, err = execute(t, "component", "window")
	assert.Error(t, err)
}

func TestPlan(t *testing.T) {
	config := filepath.Join(t.TempDir(), "pipeline.yaml")
	require.NoError(t, os.WriteFile(config, []byte(`
source:
  gen:
    type: mock
operator:
  keep:
    type: tengo-filter
    condition: event.message != ""
    inputs: [source.gen]
sink:
  out:
    type: echo
    inputs: [operator.keep]
`), 0o644))

	out, err := execute(t, "plan", config)
	require.NoError(t, err)
	assert.Contains(t, out, "gen")
	assert.Contains(t, out, "keep")
	assert.Contains(t, out, "out")

	_, err = execute(t, "plan", filepath.Join(t.TempDir(), "pipeline"))
	assert.Error(t, err, "config without extension")
}

func TestREPL(t *testing.T) {
	event, err := script.Object(&vesta.Event{Meta: map[string]any{"level": "warn"}, Message: "hello"})
	require.NoError(t, err)

	in := strings.NewReader("event.message\nevent.meta.level\nx := 1 + 2\nbroken(\np := import(\"parse\")\np.fields(\"a b\", \" \", [\"x\", \"y\"]).y\n")
	out := &bytes.Buffer{}
	RunREPL(script.Modules(), event, in, out)

	lines := strings.Split(out.String(), replPrompt)
	require.Len(t, lines, 8)
	assert.Equal(t, "hello\n", lines[1])
	assert.Equal(t, "warn\n", lines[2])
	assert.Equal(t, "3\n", lines[3])
	assert.NotEmpty(t, lines[4], "parse error is printed")
	assert.NotEmpty(t, lines[5], "import prints the module")
	assert.Equal(t, "b\n", lines[6])
	assert.Equal(t, "", lines[7])
}
