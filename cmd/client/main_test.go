package main

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	dir := t.TempDir()
	base := []string{
		"--server", "127.0.0.1:1",
		"--db", filepath.Join(dir, "client.db"),
		"--log-file", filepath.Join(dir, "client.log"),
		"-i", "300ms",
	}
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(append(args, base...))
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestRootCommands(t *testing.T) {
	root := newRootCmd()
	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	assert.Subset(t, names, []string{"sync", "status", "outbox"})
	assert.NotNil(t, root.PersistentFlags().Lookup("config"))
	assert.NotNil(t, root.PersistentFlags().ShorthandLookup("a"))
}

func TestStatusOffline(t *testing.T) {
	out, err := run(t, "", "status")
	require.NoError(t, err)
	assert.Contains(t, out, "Offline mode (0 queued)")
}

func TestOutboxEmpty(t *testing.T) {
	out, err := run(t, "", "outbox")
	require.NoError(t, err)
	assert.Contains(t, out, "Outbox is empty")
}

func TestSyncOffline(t *testing.T) {
	out, err := run(t, "", "sync")
	require.NoError(t, err)
	assert.Contains(t, out, "entries stay queued")
}

func TestREPLExits(t *testing.T) {
	out, err := run(t, "help\nexit\n")
	require.NoError(t, err)
	assert.Contains(t, out, "Available commands: login")
	assert.Contains(t, out, "Bye!")
}

func TestBadConfigFile(t *testing.T) {
	_, err := run(t, "", "status", "--config", filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}
