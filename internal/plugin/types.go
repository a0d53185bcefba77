package plugin

import (
	"context"

	"github.com/neurabytelabs/modus-forge/internal/hook"
	"github.com/neurabytelabs/modus-forge/internal/probe"
)

// Plugin is the fundamental interface every plugin implements. All
// other capabilities are optional interfaces the framework probes for.
type Plugin interface {
	// Name returns the unique plugin identifier. Must be DNS-compatible
	// (lowercase, hyphens, no spaces).
	Name() string
}

// Definition is the static metadata a plugin registers with.
type Definition struct {
	ID          string
	Version     string
	Description string
	// Priority orders the plugin's hook handlers; lower runs first.
	Priority int
}

// Factory creates a plugin instance from its per-plugin config map.
type Factory func(config map[string]interface{}) (Plugin, error)

// InitPlugin is implemented by plugins that need a setup step when
// enabled.
type InitPlugin interface {
	Plugin
	Init(ctx context.Context) error
}

// DestroyPlugin is implemented by plugins that need teardown when
// disabled.
type DestroyPlugin interface {
	Plugin
	Destroy(ctx context.Context) error
}

// HookProvider is implemented by plugins that register lifecycle hook
// handlers. Handlers are named "<plugin>.<point>" in the bus so
// disabling the plugin can remove them by prefix.
type HookProvider interface {
	Plugin
	Hooks() map[hook.Point]hook.Handler
}

// ProbeProvider is implemented by plugins that contribute context
// probes.
type ProbeProvider interface {
	Plugin
	Probes() []probe.Probe
}

// CommandHandler executes one plugin command.
type CommandHandler func(ctx context.Context, args []string) (string, error)

// CommandProvider is implemented by plugins that expose named
// commands. Across plugins the first-loaded owner of a name wins.
type CommandProvider interface {
	Plugin
	Commands() map[string]CommandHandler
}
