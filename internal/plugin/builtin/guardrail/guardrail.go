// Package guardrail wires the sanitizer into the plugin surface: a
// before-persist scan hook plus a "scan" command for ad-hoc checks.
package guardrail

import (
	"context"
	"fmt"
	"os"

	"github.com/neurabytelabs/modus-forge/internal/hook"
	"github.com/neurabytelabs/modus-forge/internal/plugin"
	"github.com/neurabytelabs/modus-forge/internal/sanitize"
	"github.com/neurabytelabs/modus-forge/pkg/logger"
)

const ID = "guardrail"

var (
	_ plugin.HookProvider    = (*Plugin)(nil)
	_ plugin.CommandProvider = (*Plugin)(nil)
)

type Plugin struct{}

// New is the plugin factory.
func New(_ map[string]interface{}) (plugin.Plugin, error) {
	return &Plugin{}, nil
}

func (p *Plugin) Name() string { return ID }

func (p *Plugin) Hooks() map[hook.Point]hook.Handler {
	return map[hook.Point]hook.Handler{
		hook.BeforePersist: p.scanState,
	}
}

// scanState warns about unsafe documents on their way to persistence.
// It observes only; the pipeline's sanitizer decides about rewrites.
func (p *Plugin) scanState(_ context.Context, state *hook.State) (*hook.State, error) {
	if state.HTML == "" {
		return nil, nil
	}
	report := sanitize.Scan(state.HTML)
	if !report.Safe {
		logger.Warn("[Guardrail] persisting unsafe document: %d issue(s), worst %q",
			len(report.Issues), report.Issues[0].Name)
	}
	return nil, nil
}

func (p *Plugin) Commands() map[string]plugin.CommandHandler {
	return map[string]plugin.CommandHandler{
		"scan": p.scanFile,
	}
}

// scanFile scans an HTML file given as the first argument.
func (p *Plugin) scanFile(_ context.Context, args []string) (string, error) {
	if len(args) == 0 {
		return "", fmt.Errorf("scan: file argument required")
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return "", fmt.Errorf("scan: %w", err)
	}
	report := sanitize.Scan(string(data))
	if report.Safe {
		return fmt.Sprintf("%s: safe (%d medium- or low-severity findings)", args[0], len(report.Issues)), nil
	}
	out := fmt.Sprintf("%s: UNSAFE, %d finding(s)\n", args[0], len(report.Issues))
	for _, issue := range report.Issues {
		out += fmt.Sprintf("  [%s] %s at line %d\n", issue.Severity, issue.Name, issue.Line)
	}
	return out, nil
}
