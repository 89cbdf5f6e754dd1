package cli

import (
	"bytes"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersionFlag(t *testing.T) {
	old := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w

	err := RunWithArgs("0.1.0-test", []string{"--version"})

	w.Close()
	os.Stdout = old

	var buf bytes.Buffer
	buf.ReadFrom(r)
	output := strings.TrimSpace(buf.String())

	assert.NoError(t, err)
	assert.Equal(t, "newsletter-search 0.1.0-test", output)
}

func TestAllSubcommandsRegistered(t *testing.T) {
	parser, _, _ := buildParser("test")

	for _, name := range []string{"sync", "import", "search", "reindex", "serve", "stats", "hide"} {
		assert.NotNil(t, parser.Find(name), "command %q should be registered", name)
	}
}

func TestUnknownCommandErrors(t *testing.T) {
	parser, _, _ := buildParser("test")
	_, err := parser.ParseArgs([]string{"frobnicate"})
	assert.Error(t, err)
}

func TestImportRequiresZipArgument(t *testing.T) {
	parser, _, _ := buildParser("test")
	_, err := parser.ParseArgs([]string{"import"})
	assert.Error(t, err)
}

func TestHideRequiresID(t *testing.T) {
	parser, _, _ := buildParser("test")
	_, err := parser.ParseArgs([]string{"hide"})
	assert.Error(t, err)
}

func TestGlobalFlagsParsedBeforeCommand(t *testing.T) {
	parser, globals, _ := buildParser("test")
	// An unknown command still errors, but global flags ahead of it parse.
	_, err := parser.ParseArgs([]string{"--data-dir", "/tmp/somewhere", "--json", "nope"})
	require.Error(t, err)
	assert.Equal(t, "/tmp/somewhere", globals.DataDir)
	assert.True(t, globals.JSON)
}
