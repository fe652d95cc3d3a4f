package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/99designs/keyring"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/tasksync/internal/auth"
	"github.com/nhle/tasksync/internal/credential"
	"github.com/nhle/tasksync/internal/model"
)

// cliFixture points the commands at a throwaway config, database and
// in-memory keyring.
type cliFixture struct {
	t       *testing.T
	cfgPath string
}

func newCLIFixture(t *testing.T, backend string) *cliFixture {
	t.Helper()
	dir := t.TempDir()

	cfgPath := filepath.Join(dir, "config.yaml")
	cfg := fmt.Sprintf(`remote:
  backend: %s
  sqlite_path: %s
  command_timeout_sec: 5
log:
  level: debug
  path: %s
`, backend, filepath.Join(dir, "tasks.db"), filepath.Join(dir, "tasksync.log"))
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfg), 0o600))

	secrets := credential.New(keyring.NewArrayKeyring(nil))
	prev := openCredentials
	openCredentials = func(string) (auth.Secrets, error) { return secrets, nil }
	t.Cleanup(func() { openCredentials = prev })

	return &cliFixture{t: t, cfgPath: cfgPath}
}

// run executes the CLI with args and returns its standard output.
func (f *cliFixture) run(args ...string) (string, error) {
	f.t.Helper()

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--config", f.cfgPath}, args...))

	err := cmd.Execute()
	return out.String(), err
}

func TestAddAndList(t *testing.T) {
	f := newCLIFixture(t, model.BackendSQLite)

	_, err := f.run("add", "Pack")
	require.ErrorContains(t, err, "not signed in")

	out, err := f.run("login", "--user", "alice")
	require.NoError(t, err)
	assert.Contains(t, out, "Signed in as alice")

	out, err = f.run("add", "Pack", "for", "trip")
	require.NoError(t, err)
	taskID := strings.TrimSpace(out)
	require.NotEmpty(t, taskID)

	out, err = f.run("add", "--to", taskID, "Socks")
	require.NoError(t, err)
	assert.Contains(t, out, "Added subtask to "+taskID)

	out, err = f.run("list")
	require.NoError(t, err)
	assert.Equal(t, "[ ] Pack for trip  "+taskID+"  (0/1)\n    [ ] Socks\n", out)
}

func TestAddSubtaskToUnknownTask(t *testing.T) {
	f := newCLIFixture(t, model.BackendSQLite)
	_, err := f.run("login", "--user", "alice")
	require.NoError(t, err)

	_, err = f.run("add", "--to", "missing", "Socks")
	assert.ErrorContains(t, err, "no task with id missing")

	out, err := f.run("list")
	require.NoError(t, err)
	assert.Equal(t, "No tasks yet.\n", out)
}

func TestAddRejectsBlankText(t *testing.T) {
	f := newCLIFixture(t, model.BackendSQLite)

	_, err := f.run("add", "   ")
	assert.ErrorContains(t, err, "empty")
}

func TestLoginSavesBackend(t *testing.T) {
	f := newCLIFixture(t, model.BackendSQLite)

	out, err := f.run("login", "--user", "bob", "--backend", model.BackendMemory)
	require.NoError(t, err)
	assert.Contains(t, out, "memory backend")

	cfg, err := model.LoadConfig(f.cfgPath)
	require.NoError(t, err)
	assert.Equal(t, model.BackendMemory, cfg.Remote.Backend)

	_, err = f.run("login", "--user", "bob", "--backend", "firebase")
	assert.ErrorContains(t, err, "firebase")
}

func TestLogout(t *testing.T) {
	f := newCLIFixture(t, model.BackendSQLite)

	out, err := f.run("logout")
	require.NoError(t, err)
	assert.Contains(t, out, "Not signed in")

	_, err = f.run("login", "--user", "alice")
	require.NoError(t, err)
	out, err = f.run("logout")
	require.NoError(t, err)
	assert.Contains(t, out, "Signed out alice")

	_, err = f.run("list")
	assert.ErrorContains(t, err, "not signed in")
}
