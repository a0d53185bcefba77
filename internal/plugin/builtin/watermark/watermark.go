// Package watermark stamps generated documents with a generator meta
// tag so rendered apps can be traced back to their forge run.
package watermark

import (
	"context"
	"fmt"
	"strings"

	"github.com/neurabytelabs/modus-forge/internal/hook"
	"github.com/neurabytelabs/modus-forge/internal/plugin"
)

const ID = "watermark"

var _ plugin.HookProvider = (*Plugin)(nil)

type Plugin struct {
	label string
}

// New is the plugin factory. Config key "label" overrides the stamp.
func New(config map[string]interface{}) (plugin.Plugin, error) {
	label := "modus-forge"
	if v, ok := config["label"].(string); ok && v != "" {
		label = v
	}
	return &Plugin{label: label}, nil
}

func (p *Plugin) Name() string { return ID }

func (p *Plugin) Hooks() map[hook.Point]hook.Handler {
	return map[hook.Point]hook.Handler{
		hook.AfterGenerate: p.stamp,
	}
}

// stamp inserts a generator meta tag after <head>. Documents without a
// head pass through untouched.
func (p *Plugin) stamp(_ context.Context, state *hook.State) (*hook.State, error) {
	if state.HTML == "" || strings.Contains(state.HTML, `name="generator"`) {
		return nil, nil
	}
	idx := strings.Index(strings.ToLower(state.HTML), "<head>")
	if idx < 0 {
		return nil, nil
	}
	insertAt := idx + len("<head>")
	tag := fmt.Sprintf(`<meta name="generator" content="%s">`, p.label)
	state.HTML = state.HTML[:insertAt] + "\n" + tag + state.HTML[insertAt:]
	return state, nil
}
