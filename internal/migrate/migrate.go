// Package migrate maintains the append-only migration log of a
// workspace's .forge directory. Migrations are idempotent; a dry run
// never writes.
package migrate

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/neurabytelabs/modus-forge/pkg/logger"
	"github.com/neurabytelabs/modus-forge/pkg/utils/json"
)

// Migration is one upgrade step. Up must be safe to run twice.
type Migration struct {
	Version     string
	Description string
	Up          func(root string) error
}

// Applied is one log row in migrations.json.
type Applied struct {
	Version     string    `json:"version"`
	Description string    `json:"description"`
	AppliedAt   time.Time `json:"appliedAt"`
	Result      string    `json:"result"`
}

// Runner applies migrations against a workspace root.
type Runner struct {
	root       string
	migrations []Migration
}

// NewRunner creates a Runner for root with the given migration list,
// in order.
func NewRunner(root string, migrations []Migration) *Runner {
	return &Runner{root: root, migrations: migrations}
}

func (r *Runner) logPath() string {
	return filepath.Join(r.root, ".forge", "migrations.json")
}

func (r *Runner) appliedVersions() (map[string]bool, []Applied) {
	data, err := os.ReadFile(r.logPath())
	if err != nil {
		return map[string]bool{}, nil
	}
	var log []Applied
	if err := json.Unmarshal(data, &log); err != nil {
		return map[string]bool{}, nil
	}
	seen := make(map[string]bool, len(log))
	for _, a := range log {
		seen[a.Version] = true
	}
	return seen, log
}

// Pending returns migrations not yet in the log, in order.
func (r *Runner) Pending() []Migration {
	seen, _ := r.appliedVersions()
	var out []Migration
	for _, m := range r.migrations {
		if !seen[m.Version] {
			out = append(out, m)
		}
	}
	return out
}

// Log returns the applied-migration log, oldest first.
func (r *Runner) Log() []Applied {
	_, log := r.appliedVersions()
	return log
}

// Upgrade applies every pending migration. With dryRun the plan is
// returned and nothing is written or executed.
func (r *Runner) Upgrade(dryRun bool) ([]Applied, error) {
	pending := r.Pending()
	if dryRun {
		plan := make([]Applied, 0, len(pending))
		for _, m := range pending {
			plan = append(plan, Applied{Version: m.Version, Description: m.Description, Result: "pending"})
		}
		return plan, nil
	}

	_, log := r.appliedVersions()
	var ran []Applied
	for _, m := range pending {
		entry := Applied{
			Version:     m.Version,
			Description: m.Description,
			AppliedAt:   time.Now(),
			Result:      "ok",
		}
		if err := m.Up(r.root); err != nil {
			entry.Result = fmt.Sprintf("failed: %v", err)
			log = append(log, entry)
			_ = r.save(log)
			return ran, fmt.Errorf("migration %s: %w", m.Version, err)
		}
		logger.Info("[Migrate] applied %s: %s", m.Version, m.Description)
		log = append(log, entry)
		ran = append(ran, entry)
		if err := r.save(log); err != nil {
			return ran, err
		}
	}
	return ran, nil
}

func (r *Runner) save(log []Applied) error {
	dir := filepath.Dir(r.logPath())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(log, "", "  ")
	if err != nil {
		return err
	}
	tmp := r.logPath() + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, r.logPath())
}

// Defaults is the built-in migration list for workspace layouts.
var Defaults = []Migration{
	{
		Version:     "1",
		Description: "create .forge workspace layout",
		Up: func(root string) error {
			for _, dir := range []string{"history", "grimoire"} {
				if err := os.MkdirAll(filepath.Join(root, ".forge", dir), 0o755); err != nil {
					return err
				}
			}
			return nil
		},
	},
	{
		Version:     "2",
		Description: "seed workspace config",
		Up: func(root string) error {
			path := filepath.Join(root, ".forge", "config.json")
			if _, err := os.Stat(path); err == nil {
				return nil
			}
			return os.WriteFile(path, []byte("{}\n"), 0o644)
		},
	},
}
