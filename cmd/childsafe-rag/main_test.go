package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	rag "github.com/childsafe-za/childsafe-rag"
)

func run(t *testing.T, args ...string) string {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs(args)
	require.NoError(t, cmd.Execute())
	return out.String()
}

func TestVersionCommand(t *testing.T) {
	assert.Equal(t, rag.Version, strings.TrimSpace(run(t, "version")))
}

func TestReportsList(t *testing.T) {
	out := run(t, "reports", "list")
	lines := strings.Split(strings.TrimSpace(out), "\n")
	assert.Len(t, lines, 10)
	assert.Contains(t, lines[0], "YEAR")
	assert.Contains(t, out, "2019-2020.pdf")
	assert.Contains(t, out, "2022-2023.pptx")
}

func TestCommandTree(t *testing.T) {
	cmd := newRootCommand()
	for _, path := range [][]string{{"serve"}, {"mcp"}, {"reports", "download"}, {"reports", "ingest"}} {
		found, _, err := cmd.Find(path)
		require.NoError(t, err)
		assert.Equal(t, path[len(path)-1], found.Name())
	}
}
