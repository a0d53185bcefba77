package history

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neurabytelabs/modus-forge/internal/store"
	"github.com/neurabytelabs/modus-forge/internal/validate"
)

func newHistory(t *testing.T) *History {
	t.Helper()
	s, err := store.New(t.TempDir())
	require.NoError(t, err)
	return New(s)
}

func entryAt(prompt, provider string, grade validate.Grade, at time.Time) Entry {
	return Entry{
		Prompt:   prompt,
		Provider: provider,
		Grade:    grade,
		Score:    validate.Score{Total: 0.8, Conatus: 0.8, Ratio: 0.8, Laetitia: 0.8, Natura: 0.8, Grade: grade},
		At:       at,
	}
}

func TestRecordGetRoundTrip(t *testing.T) {
	h := newHistory(t)

	id, err := h.Record(entryAt("track sleep", "gemini", validate.GradeA, time.Now()), "<html>sleep</html>")
	require.NoError(t, err)
	require.NotEmpty(t, id)

	entry, err := h.Get(id)
	require.NoError(t, err)
	assert.Equal(t, "track sleep", entry.Prompt)
	assert.Equal(t, len("<html>sleep</html>"), entry.CodeLength)

	code, err := h.GetCode(id)
	require.NoError(t, err)
	assert.Equal(t, "<html>sleep</html>", code)
}

func TestListNewestFirst(t *testing.T) {
	h := newHistory(t)
	base := time.Now()

	_, err := h.Record(entryAt("oldest", "gemini", validate.GradeB, base.Add(-2*time.Hour)), "<html>1</html>")
	require.NoError(t, err)
	_, err = h.Record(entryAt("newest", "gemini", validate.GradeB, base), "<html>2</html>")
	require.NoError(t, err)
	_, err = h.Record(entryAt("middle", "gemini", validate.GradeB, base.Add(-time.Hour)), "<html>3</html>")
	require.NoError(t, err)

	entries, err := h.List(ListOptions{})
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "newest", entries[0].Prompt)
	assert.Equal(t, "middle", entries[1].Prompt)
	assert.Equal(t, "oldest", entries[2].Prompt)
}

func TestListFilters(t *testing.T) {
	h := newHistory(t)
	now := time.Now()

	_, _ = h.Record(entryAt("a", "gemini", validate.GradeS, now), "<html>a</html>")
	_, _ = h.Record(entryAt("b", "openai", validate.GradeB, now), "<html>b</html>")
	_, _ = h.Record(entryAt("c", "gemini", validate.GradeD, now), "<html>c</html>")

	entries, err := h.List(ListOptions{Provider: "gemini"})
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	entries, err = h.List(ListOptions{MinGrade: validate.GradeB})
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	entries, err = h.List(ListOptions{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestSearchMatchesPromptAndTags(t *testing.T) {
	h := newHistory(t)

	e := entryAt("Track my CARDIO", "gemini", validate.GradeA, time.Now())
	e.Tags = []string{"fitness"}
	_, _ = h.Record(e, "<html>x</html>")
	_, _ = h.Record(entryAt("reading log", "gemini", validate.GradeA, time.Now()), "<html>y</html>")

	found, err := h.Search("cardio")
	require.NoError(t, err)
	assert.Len(t, found, 1)

	found, err = h.Search("FITNESS")
	require.NoError(t, err)
	assert.Len(t, found, 1)

	found, err = h.Search("absent")
	require.NoError(t, err)
	assert.Empty(t, found)
}

func TestDeleteRemovesBothSides(t *testing.T) {
	h := newHistory(t)
	id, err := h.Record(entryAt("x", "gemini", validate.GradeA, time.Now()), "<html>x</html>")
	require.NoError(t, err)

	existed, err := h.Delete(id)
	require.NoError(t, err)
	assert.True(t, existed)

	_, err = h.Get(id)
	assert.Error(t, err)
	_, err = h.GetCode(id)
	assert.Error(t, err)

	existed, err = h.Delete(id)
	require.NoError(t, err)
	assert.False(t, existed)
}

func TestStats(t *testing.T) {
	h := newHistory(t)
	now := time.Now()

	_, _ = h.Record(entryAt("a", "gemini", validate.GradeS, now), "<html>a</html>")
	_, _ = h.Record(entryAt("b", "openai", validate.GradeB, now), "<html>b</html>")

	stats, err := h.Stats()
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Total)
	assert.Equal(t, 1, stats.ByProvider["gemini"])
	assert.Equal(t, 1, stats.ByGrade[validate.GradeB])
	assert.InDelta(t, 0.8, stats.MeanAxes[validate.AxisConatus], 1e-9)
}
