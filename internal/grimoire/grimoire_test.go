package grimoire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neurabytelabs/modus-forge/internal/store"
)

func newGrimoire(t *testing.T) *Grimoire {
	t.Helper()
	s, err := store.New(t.TempDir())
	require.NoError(t, err)
	return New(s)
}

func TestInscribeGetRoundTrip(t *testing.T) {
	g := newGrimoire(t)

	id, err := g.Inscribe(Entry{
		Prompt:   "track my cardio",
		Tags:     []string{"fitness", "tracker"},
		Category: "health",
	})
	require.NoError(t, err)

	entry, err := g.Get(id)
	require.NoError(t, err)
	assert.Equal(t, "track my cardio", entry.Prompt)
	assert.Equal(t, []string{"fitness", "tracker"}, entry.Tags)
	assert.False(t, entry.CreatedAt.IsZero())
}

func TestInscribeRequiresPrompt(t *testing.T) {
	g := newGrimoire(t)
	_, err := g.Inscribe(Entry{})
	assert.Error(t, err)
}

func TestToggleFavoriteTwiceIsIdentity(t *testing.T) {
	g := newGrimoire(t)
	id, _ := g.Inscribe(Entry{Prompt: "p"})

	on, err := g.ToggleFavorite(id)
	require.NoError(t, err)
	assert.True(t, on)

	off, err := g.ToggleFavorite(id)
	require.NoError(t, err)
	assert.False(t, off)

	entry, err := g.Get(id)
	require.NoError(t, err)
	assert.False(t, entry.Favorite)
}

func TestRecordUseIncrements(t *testing.T) {
	g := newGrimoire(t)
	id, _ := g.Inscribe(Entry{Prompt: "p"})

	for i := 0; i < 3; i++ {
		require.NoError(t, g.RecordUse(id))
	}

	entry, err := g.Get(id)
	require.NoError(t, err)
	assert.Equal(t, 3, entry.UsedCount)
}

func TestUpdateScoreBounds(t *testing.T) {
	g := newGrimoire(t)
	id, _ := g.Inscribe(Entry{Prompt: "p"})

	require.NoError(t, g.UpdateScore(id, 0.82))
	assert.Error(t, g.UpdateScore(id, 1.2))
	assert.Error(t, g.UpdateScore(id, -0.1))

	entry, _ := g.Get(id)
	assert.InDelta(t, 0.82, entry.Score, 1e-9)
}

func TestSearchSortOrder(t *testing.T) {
	g := newGrimoire(t)

	plain, _ := g.Inscribe(Entry{Prompt: "plain spell"})
	scored, _ := g.Inscribe(Entry{Prompt: "scored spell", Score: 0.9})
	fav, _ := g.Inscribe(Entry{Prompt: "favorite spell", Favorite: true, Score: 0.5})
	used, _ := g.Inscribe(Entry{Prompt: "used spell", UsedCount: 10})

	entries, err := g.Search(SearchOptions{Query: "spell"})
	require.NoError(t, err)
	require.Len(t, entries, 4)

	assert.Equal(t, fav, entries[0].ID, "favorites first")
	assert.Equal(t, scored, entries[1].ID, "then by score")
	assert.Equal(t, used, entries[2].ID, "then by usage")
	assert.Equal(t, plain, entries[3].ID)
}

func TestSearchFilters(t *testing.T) {
	g := newGrimoire(t)

	_, _ = g.Inscribe(Entry{Prompt: "a", Tags: []string{"game"}, Category: "fun"})
	_, _ = g.Inscribe(Entry{Prompt: "b", Tags: []string{"tool"}, Category: "work"})
	_, _ = g.Inscribe(Entry{Prompt: "c", Tags: []string{"game"}, Category: "work", Favorite: true})

	byTag, err := g.Search(SearchOptions{Tag: "game"})
	require.NoError(t, err)
	assert.Len(t, byTag, 2)

	byCategory, err := g.Search(SearchOptions{Category: "work"})
	require.NoError(t, err)
	assert.Len(t, byCategory, 2)

	favs, err := g.Search(SearchOptions{Favorite: true})
	require.NoError(t, err)
	assert.Len(t, favs, 1)
}

func TestStats(t *testing.T) {
	g := newGrimoire(t)

	_, _ = g.Inscribe(Entry{Prompt: "a", Tags: []string{"x"}, Category: "c1", Score: 0.8})
	_, _ = g.Inscribe(Entry{Prompt: "b", Tags: []string{"x", "y"}, Category: "c1", Favorite: true, UsedCount: 4})

	stats, err := g.Stats()
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Total)
	assert.Equal(t, 1, stats.Favorites)
	assert.Equal(t, 2, stats.ByTag["x"])
	assert.Equal(t, 2, stats.ByCategory["c1"])
	assert.InDelta(t, 0.8, stats.MeanScore, 1e-9)
	assert.Equal(t, "b", stats.TopUsed[0].Prompt)
}

func TestDelete(t *testing.T) {
	g := newGrimoire(t)
	id, _ := g.Inscribe(Entry{Prompt: "p"})

	existed, err := g.Delete(id)
	require.NoError(t, err)
	assert.True(t, existed)

	_, err = g.Get(id)
	assert.Error(t, err)
}
