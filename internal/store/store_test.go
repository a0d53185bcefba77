package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neurabytelabs/modus-forge/pkg/utils/json"
)

func TestSetGetRoundTrip(t *testing.T) {
	s, err := New(t.TempDir())
	require.NoError(t, err)

	type record struct {
		Name  string `json:"name"`
		Count int    `json:"count"`
	}

	require.NoError(t, s.Set("specs", "a", record{Name: "alpha", Count: 3}))

	var got record
	ok, err := s.Get("specs", "a", &got)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, record{Name: "alpha", Count: 3}, got)
}

func TestDeleteReportsExistence(t *testing.T) {
	s, err := New(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, s.Set("c", "k", "v"))

	existed, err := s.Delete("c", "k")
	require.NoError(t, err)
	assert.True(t, existed)

	existed, err = s.Delete("c", "k")
	require.NoError(t, err)
	assert.False(t, existed)

	ok, err := s.Get("c", "k", nil)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestKeysAndCollections(t *testing.T) {
	s, err := New(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, s.Set("b", "z", 1))
	require.NoError(t, s.Set("b", "a", 2))
	require.NoError(t, s.Set("a", "only", 3))

	keys, err := s.Keys("b")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "z"}, keys)

	cols, err := s.Collections()
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, cols)
}

func TestCorruptFileReadsAsEmpty(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.json"), []byte("{truncated"), 0o644))

	s, err := New(dir)
	require.NoError(t, err)

	keys, err := s.Keys("bad")
	require.NoError(t, err)
	assert.Empty(t, keys)

	// The collection is still writable after the bad read.
	require.NoError(t, s.Set("bad", "k", "v"))
	ok, err := s.Get("bad", "k", nil)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestDrop(t *testing.T) {
	s, err := New(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, s.Set("c", "k", "v"))
	require.NoError(t, s.Drop("c"))
	require.NoError(t, s.Drop("c")) // idempotent

	cols, err := s.Collections()
	require.NoError(t, err)
	assert.Empty(t, cols)
}

func TestQuery(t *testing.T) {
	s, err := New(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, s.Set("c", "keep", map[string]int{"n": 1}))
	require.NoError(t, s.Set("c", "skip", map[string]int{"n": 2}))

	out, err := s.Query("c", func(key string, _ json.RawMessage) bool { return key == "keep" })
	require.NoError(t, err)
	assert.Len(t, out, 1)
	assert.Contains(t, out, "keep")
}
