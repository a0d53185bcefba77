package migrate

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpgradeAppliesPendingOnce(t *testing.T) {
	root := t.TempDir()
	runs := 0
	r := NewRunner(root, []Migration{
		{Version: "1", Description: "count", Up: func(string) error { runs++; return nil }},
	})

	ran, err := r.Upgrade(false)
	require.NoError(t, err)
	assert.Len(t, ran, 1)
	assert.Equal(t, 1, runs)

	// Second upgrade finds nothing pending.
	ran, err = r.Upgrade(false)
	require.NoError(t, err)
	assert.Empty(t, ran)
	assert.Equal(t, 1, runs)
	assert.Empty(t, r.Pending())
}

func TestDryRunNeverWrites(t *testing.T) {
	root := t.TempDir()
	r := NewRunner(root, Defaults)

	plan, err := r.Upgrade(true)
	require.NoError(t, err)
	assert.Len(t, plan, len(Defaults))

	_, err = os.Stat(filepath.Join(root, ".forge"))
	assert.True(t, os.IsNotExist(err), "dry run must not create anything")
	assert.Len(t, r.Pending(), len(Defaults))
}

func TestFailedMigrationIsLoggedAndStops(t *testing.T) {
	root := t.TempDir()
	r := NewRunner(root, []Migration{
		{Version: "1", Description: "ok", Up: func(string) error { return nil }},
		{Version: "2", Description: "bad", Up: func(string) error { return errors.New("disk full") }},
		{Version: "3", Description: "never", Up: func(string) error { t.Fatal("must not run"); return nil }},
	})

	ran, err := r.Upgrade(false)
	require.Error(t, err)
	assert.Len(t, ran, 1)

	log := r.Log()
	require.Len(t, log, 2)
	assert.Equal(t, "ok", log[0].Result)
	assert.Contains(t, log[1].Result, "disk full")
}

func TestDefaultsCreateWorkspaceLayout(t *testing.T) {
	root := t.TempDir()
	r := NewRunner(root, Defaults)

	_, err := r.Upgrade(false)
	require.NoError(t, err)

	for _, p := range []string{".forge/history", ".forge/grimoire", ".forge/config.json", ".forge/migrations.json"} {
		_, err := os.Stat(filepath.Join(root, p))
		assert.NoError(t, err, p)
	}
}
