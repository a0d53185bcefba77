// Package history keeps the append-only record of generation runs.
// Metadata and the HTML artifact live in two collections keyed by the
// same id; deleting one side deletes both.
package history

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/neurabytelabs/modus-forge/internal/store"
	"github.com/neurabytelabs/modus-forge/internal/validate"
	"github.com/neurabytelabs/modus-forge/pkg/utils/json"
)

const (
	collectionMeta = "history"
	collectionCode = "artifacts"
)

// Entry is the searchable metadata of one run.
type Entry struct {
	ID                 string         `json:"id"`
	Prompt             string         `json:"prompt"`
	EnhancedPromptHash string         `json:"enhancedPromptHash"`
	Model              string         `json:"model"`
	Provider           string         `json:"provider"`
	Score              validate.Score `json:"score"`
	Grade              validate.Grade `json:"grade"`
	CodeLength         int            `json:"codeLength"`
	Style              string         `json:"style"`
	Tags               []string       `json:"tags,omitempty"`
	At                 time.Time      `json:"at"`
}

// ListOptions filter List.
type ListOptions struct {
	Provider string
	MinGrade validate.Grade
	Limit    int
}

// Stats aggregates the recorded runs.
type Stats struct {
	Total      int                       `json:"total"`
	ByProvider map[string]int            `json:"byProvider"`
	ByGrade    map[validate.Grade]int    `json:"byGrade"`
	MeanAxes   map[validate.Axis]float64 `json:"meanAxes"`
}

// History is the run journal.
type History struct {
	store *store.Store
}

// New creates a History over the given store.
func New(s *store.Store) *History {
	return &History{store: s}
}

// Record appends a run and its artifact, returning the assigned id.
func (h *History) Record(entry Entry, html string) (string, error) {
	if entry.ID == "" {
		entry.ID = uuid.New().String()[:8]
	}
	if entry.At.IsZero() {
		entry.At = time.Now()
	}
	entry.CodeLength = len(html)

	if err := h.store.Set(collectionMeta, entry.ID, entry); err != nil {
		return "", fmt.Errorf("record history entry: %w", err)
	}
	if err := h.store.Set(collectionCode, entry.ID, html); err != nil {
		// Keep the invariant: both sides or neither.
		_, _ = h.store.Delete(collectionMeta, entry.ID)
		return "", fmt.Errorf("record history artifact: %w", err)
	}
	return entry.ID, nil
}

// Get returns the metadata for id.
func (h *History) Get(id string) (*Entry, error) {
	var entry Entry
	ok, err := h.store.Get(collectionMeta, id, &entry)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("history entry %q not found", id)
	}
	return &entry, nil
}

// GetCode returns the HTML artifact for id.
func (h *History) GetCode(id string) (string, error) {
	var html string
	ok, err := h.store.Get(collectionCode, id, &html)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", fmt.Errorf("history artifact %q not found", id)
	}
	return html, nil
}

// Delete removes both the metadata and the artifact.
func (h *History) Delete(id string) (bool, error) {
	metaExisted, err := h.store.Delete(collectionMeta, id)
	if err != nil {
		return false, err
	}
	codeExisted, err := h.store.Delete(collectionCode, id)
	if err != nil {
		return metaExisted, err
	}
	return metaExisted || codeExisted, nil
}

var gradeRank = map[validate.Grade]int{
	validate.GradeS: 0,
	validate.GradeA: 1,
	validate.GradeB: 2,
	validate.GradeC: 3,
	validate.GradeD: 4,
}

// List returns entries newest first, honoring the filters.
func (h *History) List(opts ListOptions) ([]Entry, error) {
	entries, err := h.all()
	if err != nil {
		return nil, err
	}

	filtered := entries[:0]
	for _, e := range entries {
		if opts.Provider != "" && e.Provider != opts.Provider {
			continue
		}
		if opts.MinGrade != "" && gradeRank[e.Grade] > gradeRank[opts.MinGrade] {
			continue
		}
		filtered = append(filtered, e)
	}

	sort.SliceStable(filtered, func(i, j int) bool {
		return filtered[i].At.After(filtered[j].At)
	})

	if opts.Limit > 0 && len(filtered) > opts.Limit {
		filtered = filtered[:opts.Limit]
	}
	return filtered, nil
}

// Search matches query case-insensitively against prompts and tags,
// newest first.
func (h *History) Search(query string) ([]Entry, error) {
	entries, err := h.all()
	if err != nil {
		return nil, err
	}

	needle := strings.ToLower(query)
	var out []Entry
	for _, e := range entries {
		if strings.Contains(strings.ToLower(e.Prompt), needle) {
			out = append(out, e)
			continue
		}
		for _, tag := range e.Tags {
			if strings.Contains(strings.ToLower(tag), needle) {
				out = append(out, e)
				break
			}
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].At.After(out[j].At)
	})
	return out, nil
}

// Stats aggregates totals by provider and grade plus mean axis scores.
func (h *History) Stats() (*Stats, error) {
	entries, err := h.all()
	if err != nil {
		return nil, err
	}

	stats := &Stats{
		Total:      len(entries),
		ByProvider: map[string]int{},
		ByGrade:    map[validate.Grade]int{},
		MeanAxes:   map[validate.Axis]float64{},
	}
	if len(entries) == 0 {
		return stats, nil
	}

	for _, e := range entries {
		stats.ByProvider[e.Provider]++
		stats.ByGrade[e.Grade]++
		for axis, v := range e.Score.Axes() {
			stats.MeanAxes[axis] += v
		}
	}
	for axis := range stats.MeanAxes {
		stats.MeanAxes[axis] /= float64(len(entries))
	}
	return stats, nil
}

func (h *History) all() ([]Entry, error) {
	raw, err := h.store.All(collectionMeta)
	if err != nil {
		return nil, err
	}
	entries := make([]Entry, 0, len(raw))
	for id, data := range raw {
		var e Entry
		if err := json.Unmarshal(data, &e); err != nil {
			// A corrupt row is skipped, not fatal.
			continue
		}
		if e.ID == "" {
			e.ID = id
		}
		entries = append(entries, e)
	}
	return entries, nil
}
