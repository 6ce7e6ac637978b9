package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func memoryConfigDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	content := "database:\n  driver: memory\nlog:\n  level: error\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(content), 0o600))
	return dir
}

func TestServeCmd_HelpDescribesEmbedding(t *testing.T) {
	cmd := newServeCmd()

	assert.Contains(t, cmd.Long, "embedded")
	assert.Contains(t, cmd.Long, "app.New")
	assert.Contains(t, cmd.Long, "Sessions.Connect")
}

func TestTopCmd_MemoryDriver(t *testing.T) {
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetArgs([]string{"-c", memoryConfigDir(t), "top", "--by", "playtime", "-n", "-1"})

	require.NoError(t, root.Execute())
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], "PLAYER")
}

func TestTopCmd_RejectsUnknownRanking(t *testing.T) {
	root := newRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"-c", memoryConfigDir(t), "top", "--by", "wealth"})

	err := root.Execute()
	assert.ErrorContains(t, err, `unknown ranking "wealth"`)
}
