// Package telemetry records per-call usage and cost, capped at the
// last thousand calls, with per-day rollups.
package telemetry

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/neurabytelabs/modus-forge/pkg/utils/json"
)

// maxRecords caps the journal; the cap is enforced on every write.
const maxRecords = 1000

// Record is one generation call.
type Record struct {
	At         time.Time `json:"at"`
	Model      string    `json:"model"`
	InTokens   int       `json:"inTokens"`
	OutTokens  int       `json:"outTokens"`
	CostEst    float64   `json:"costEst"`
	DurationMs int64     `json:"durationMs"`
	Success    bool      `json:"success"`
}

// DayRollup aggregates one calendar day.
type DayRollup struct {
	Day        string  `json:"day"`
	Calls      int     `json:"calls"`
	Failures   int     `json:"failures"`
	InTokens   int     `json:"inTokens"`
	OutTokens  int     `json:"outTokens"`
	CostEst    float64 `json:"costEst"`
	DurationMs int64   `json:"durationMs"`
}

// Telemetry persists usage records to one JSON file. Writes are
// serialized; the file is replaced atomically.
type Telemetry struct {
	mu   sync.Mutex
	path string
}

// New creates a Telemetry journal at dir/usage.json.
func New(dir string) (*Telemetry, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create telemetry dir: %w", err)
	}
	return &Telemetry{path: filepath.Join(dir, "usage.json")}, nil
}

// Record appends one call, trimming the journal to the cap.
func (t *Telemetry) Record(rec Record) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	records := t.load()
	if rec.At.IsZero() {
		rec.At = time.Now()
	}
	records = append(records, rec)
	if len(records) > maxRecords {
		records = records[len(records)-maxRecords:]
	}
	return t.save(records)
}

// All returns the journal, oldest first.
func (t *Telemetry) All() []Record {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.load()
}

// Rollups aggregates the journal into per-day buckets, oldest day
// first.
func (t *Telemetry) Rollups() []DayRollup {
	records := t.All()

	byDay := map[string]*DayRollup{}
	for _, rec := range records {
		day := rec.At.Format("2006-01-02")
		roll, ok := byDay[day]
		if !ok {
			roll = &DayRollup{Day: day}
			byDay[day] = roll
		}
		roll.Calls++
		if !rec.Success {
			roll.Failures++
		}
		roll.InTokens += rec.InTokens
		roll.OutTokens += rec.OutTokens
		roll.CostEst += rec.CostEst
		roll.DurationMs += rec.DurationMs
	}

	out := make([]DayRollup, 0, len(byDay))
	for _, roll := range byDay {
		out = append(out, *roll)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Day < out[j].Day })
	return out
}

func (t *Telemetry) load() []Record {
	data, err := os.ReadFile(t.path)
	if err != nil {
		return nil
	}
	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil
	}
	return records
}

func (t *Telemetry) save(records []Record) error {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return err
	}
	tmp := t.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write telemetry: %w", err)
	}
	return os.Rename(tmp, t.path)
}
