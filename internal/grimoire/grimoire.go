// Package grimoire is the curated prompt library: inscribed prompts
// with tags, categories, favorites and usage counters.
package grimoire

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/neurabytelabs/modus-forge/internal/store"
	"github.com/neurabytelabs/modus-forge/pkg/utils/json"
)

const collection = "grimoire"

// Entry is one inscribed prompt. IDs are opaque and never reused.
type Entry struct {
	ID        string            `json:"id"`
	Prompt    string            `json:"prompt"`
	Tags      []string          `json:"tags,omitempty"`
	Category  string            `json:"category,omitempty"`
	Favorite  bool              `json:"favorite"`
	Score     float64           `json:"score,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	CreatedAt time.Time         `json:"createdAt"`
	UsedCount int               `json:"usedCount"`
}

// SearchOptions filter Search. Zero values mean "no filter".
type SearchOptions struct {
	Query    string
	Tag      string
	Category string
	Favorite bool
	Limit    int
}

// Stats summarizes the library.
type Stats struct {
	Total      int            `json:"total"`
	Favorites  int            `json:"favorites"`
	ByTag      map[string]int `json:"byTag"`
	ByCategory map[string]int `json:"byCategory"`
	MeanScore  float64        `json:"meanScore"`
	TopUsed    []Entry        `json:"topUsed"`
}

// Grimoire is the prompt library service.
type Grimoire struct {
	store *store.Store
}

// New creates a Grimoire over the given store.
func New(s *store.Store) *Grimoire {
	return &Grimoire{store: s}
}

// Inscribe saves a prompt and returns its id.
func (g *Grimoire) Inscribe(entry Entry) (string, error) {
	if entry.Prompt == "" {
		return "", fmt.Errorf("inscribe: prompt is required")
	}
	if entry.ID == "" {
		entry.ID = uuid.New().String()[:8]
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	if err := g.store.Set(collection, entry.ID, entry); err != nil {
		return "", fmt.Errorf("inscribe: %w", err)
	}
	return entry.ID, nil
}

// Get fetches an entry by id.
func (g *Grimoire) Get(id string) (*Entry, error) {
	var entry Entry
	ok, err := g.store.Get(collection, id, &entry)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("spell %q not found", id)
	}
	return &entry, nil
}

// Delete removes an entry by id.
func (g *Grimoire) Delete(id string) (bool, error) {
	return g.store.Delete(collection, id)
}

// ToggleFavorite flips the favorite flag and returns the new value.
func (g *Grimoire) ToggleFavorite(id string) (bool, error) {
	entry, err := g.Get(id)
	if err != nil {
		return false, err
	}
	entry.Favorite = !entry.Favorite
	return entry.Favorite, g.store.Set(collection, id, entry)
}

// RecordUse increments the usage counter.
func (g *Grimoire) RecordUse(id string) error {
	entry, err := g.Get(id)
	if err != nil {
		return err
	}
	entry.UsedCount++
	return g.store.Set(collection, id, entry)
}

// UpdateScore sets the entry's quality score. Scores are opaque values
// in [0,1].
func (g *Grimoire) UpdateScore(id string, score float64) error {
	if score < 0 || score > 1 {
		return fmt.Errorf("score %v out of range [0,1]", score)
	}
	entry, err := g.Get(id)
	if err != nil {
		return err
	}
	entry.Score = score
	return g.store.Set(collection, id, entry)
}

// Search returns matching entries ordered favorite first, then score,
// then usage.
func (g *Grimoire) Search(opts SearchOptions) ([]Entry, error) {
	entries, err := g.all()
	if err != nil {
		return nil, err
	}

	needle := strings.ToLower(opts.Query)
	var out []Entry
	for _, e := range entries {
		if opts.Favorite && !e.Favorite {
			continue
		}
		if opts.Category != "" && !strings.EqualFold(e.Category, opts.Category) {
			continue
		}
		if opts.Tag != "" && !hasTag(e, opts.Tag) {
			continue
		}
		if needle != "" && !matchesQuery(e, needle) {
			continue
		}
		out = append(out, e)
	}

	sortEntries(out)

	if opts.Limit > 0 && len(out) > opts.Limit {
		out = out[:opts.Limit]
	}
	return out, nil
}

// Stats summarizes the library, including the five most-used spells.
func (g *Grimoire) Stats() (*Stats, error) {
	entries, err := g.all()
	if err != nil {
		return nil, err
	}

	stats := &Stats{
		Total:      len(entries),
		ByTag:      map[string]int{},
		ByCategory: map[string]int{},
	}
	scored := 0
	for _, e := range entries {
		if e.Favorite {
			stats.Favorites++
		}
		for _, tag := range e.Tags {
			stats.ByTag[tag]++
		}
		if e.Category != "" {
			stats.ByCategory[e.Category]++
		}
		if e.Score > 0 {
			stats.MeanScore += e.Score
			scored++
		}
	}
	if scored > 0 {
		stats.MeanScore /= float64(scored)
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].UsedCount > entries[j].UsedCount
	})
	top := len(entries)
	if top > 5 {
		top = 5
	}
	stats.TopUsed = entries[:top]
	return stats, nil
}

func sortEntries(entries []Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.Favorite != b.Favorite {
			return a.Favorite
		}
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		return a.UsedCount > b.UsedCount
	})
}

func hasTag(e Entry, tag string) bool {
	for _, t := range e.Tags {
		if strings.EqualFold(t, tag) {
			return true
		}
	}
	return false
}

func matchesQuery(e Entry, needle string) bool {
	if strings.Contains(strings.ToLower(e.Prompt), needle) {
		return true
	}
	if strings.Contains(strings.ToLower(e.Category), needle) {
		return true
	}
	for _, t := range e.Tags {
		if strings.Contains(strings.ToLower(t), needle) {
			return true
		}
	}
	return false
}

func (g *Grimoire) all() ([]Entry, error) {
	raw, err := g.store.All(collection)
	if err != nil {
		return nil, err
	}
	entries := make([]Entry, 0, len(raw))
	for id, data := range raw {
		var e Entry
		if err := json.Unmarshal(data, &e); err != nil {
			continue
		}
		if e.ID == "" {
			e.ID = id
		}
		entries = append(entries, e)
	}
	return entries, nil
}
