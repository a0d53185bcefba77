package probe

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	hoststat "github.com/likexian/host-stat-go"
)

// --- TimeProbe ---

// TimeProbe reports the local day phase and weekday. Generated apps lean
// on this for default theming (late-night prompts tend toward dark UIs).
type TimeProbe struct{}

func (TimeProbe) Name() string       { return "time" }
func (TimeProbe) TTL() time.Duration { return 5 * time.Minute }

func (TimeProbe) Hint(_ context.Context) (string, error) {
	now := time.Now()
	phase := "night"
	switch h := now.Hour(); {
	case h >= 5 && h < 12:
		phase = "morning"
	case h >= 12 && h < 17:
		phase = "afternoon"
	case h >= 17 && h < 22:
		phase = "evening"
	}
	return fmt.Sprintf("Local time: %s %s (%s)", now.Weekday(), now.Format("15:04"), phase), nil
}

// --- SystemProbe ---

// SystemProbe reports CPU load and memory pressure via host-stat.
type SystemProbe struct{}

func (SystemProbe) Name() string       { return "system" }
func (SystemProbe) TTL() time.Duration { return time.Minute }

func (SystemProbe) Hint(_ context.Context) (string, error) {
	mem, err := hoststat.GetMemStat()
	if err != nil {
		return "", fmt.Errorf("mem stat: %w", err)
	}
	load, err := hoststat.GetLoadStat()
	if err != nil {
		return "", fmt.Errorf("load stat: %w", err)
	}
	return fmt.Sprintf("System: load %.2f, memory %.0f%% used", load.LoadNow, mem.MemRate), nil
}

// --- GitProbe ---

// GitProbe reports the checked-out branch of the working directory, read
// straight from .git/HEAD so no subprocess is spawned.
type GitProbe struct {
	// Dir is the repository root; defaults to the current directory.
	Dir string
}

func (GitProbe) Name() string       { return "git" }
func (GitProbe) TTL() time.Duration { return 2 * time.Minute }

func (p GitProbe) Hint(_ context.Context) (string, error) {
	dir := p.Dir
	if dir == "" {
		dir = "."
	}
	data, err := os.ReadFile(filepath.Join(dir, ".git", "HEAD"))
	if err != nil {
		return "", err
	}
	head := strings.TrimSpace(string(data))
	if ref, ok := strings.CutPrefix(head, "ref: refs/heads/"); ok {
		return fmt.Sprintf("Git: working on branch %q", ref), nil
	}
	if len(head) >= 8 {
		return fmt.Sprintf("Git: detached at %s", head[:8]), nil
	}
	return "", nil
}

// --- LocaleProbe ---

// LocaleProbe reports the process locale and timezone.
type LocaleProbe struct{}

func (LocaleProbe) Name() string       { return "locale" }
func (LocaleProbe) TTL() time.Duration { return time.Hour }

func (LocaleProbe) Hint(_ context.Context) (string, error) {
	zone, _ := time.Now().Zone()
	lang := os.Getenv("LANG")
	if lang == "" {
		return fmt.Sprintf("Timezone: %s", zone), nil
	}
	return fmt.Sprintf("Locale: %s, timezone %s", lang, zone), nil
}

// RegisterBuiltins registers the default probe set in bundle order.
func RegisterBuiltins(r *Registry) {
	r.Register(TimeProbe{})
	r.Register(SystemProbe{})
	r.Register(GitProbe{})
	r.Register(LocaleProbe{})
}
