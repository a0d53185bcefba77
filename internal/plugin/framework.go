// Package plugin implements the plugin framework: in-tree plugin
// factories are registered at startup, instantiated behind a persisted
// enable state, and wired into the hook bus and probe registry.
package plugin

import (
	"context"
	"fmt"
	"sort"

	"github.com/neurabytelabs/modus-forge/internal/hook"
	"github.com/neurabytelabs/modus-forge/internal/probe"
	"github.com/neurabytelabs/modus-forge/pkg/logger"
)

// LoadReport describes one plugin's load outcome. Failures never abort
// discovery; they land here.
type LoadReport struct {
	ID      string `json:"id"`
	Enabled bool   `json:"enabled"`
	Error   string `json:"error,omitempty"`
}

type registeredFactory struct {
	definition Definition
	factory    Factory
	config     map[string]interface{}
}

// Config holds the dependencies for creating a Framework.
type Config struct {
	// Bus is the hook bus plugin handlers attach to.
	Bus *hook.Bus
	// Probes is the probe registry plugin probes join.
	Probes *probe.Registry
	// State persists per-plugin enable flags; nil keeps state
	// in-memory only.
	State *StateFile
	// Deny lists plugin ids that must not load.
	Deny []string
}

// CompletedConfig is the validated framework configuration.
type CompletedConfig struct {
	*Config
}

// Complete fills in defaults.
func (c *Config) Complete() CompletedConfig {
	if c.Bus == nil {
		c.Bus = hook.NewBus()
	}
	return CompletedConfig{c}
}

// New creates a Framework from the completed configuration.
func (c CompletedConfig) New() *Framework {
	deny := make(map[string]bool, len(c.Deny))
	for _, id := range c.Deny {
		deny[id] = true
	}
	return &Framework{
		registry:  NewRegistry(),
		bus:       c.Bus,
		probes:    c.Probes,
		state:     c.State,
		deny:      deny,
		factories: make(map[string]registeredFactory),
	}
}

// Framework drives plugin lifecycle: factory registration → Load →
// per-plugin Enable/Disable at runtime.
type Framework struct {
	registry  *Registry
	bus       *hook.Bus
	probes    *probe.Registry
	state     *StateFile
	deny      map[string]bool
	factories map[string]registeredFactory
	order     []string
	reports   []LoadReport
}

// RegisterFactory registers a plugin factory before Load.
func (f *Framework) RegisterFactory(def Definition, factory Factory, config map[string]interface{}) error {
	if _, exists := f.factories[def.ID]; exists {
		return fmt.Errorf("plugin factory %q is already registered", def.ID)
	}
	f.factories[def.ID] = registeredFactory{definition: def, factory: factory, config: config}
	f.order = append(f.order, def.ID)
	return nil
}

// Load instantiates every registered factory in registration order and
// enables those the persisted state allows. A plugin that fails to
// load is reported and skipped.
func (f *Framework) Load(ctx context.Context) []LoadReport {
	logger.Info("[Plugin] loading %d plugin factories", len(f.factories))
	f.reports = f.reports[:0]

	for _, id := range f.order {
		entry := f.factories[id]
		report := LoadReport{ID: id}

		switch {
		case f.deny[id]:
			report.Error = "denied by configuration"
		case f.state != nil && !f.state.Enabled(id):
			// Known-disabled plugins stay registered but dormant.
		default:
			if err := f.enable(ctx, entry); err != nil {
				report.Error = err.Error()
				logger.Warn("[Plugin] load %q failed: %v", id, err)
			} else {
				report.Enabled = true
			}
		}
		f.reports = append(f.reports, report)
	}

	logger.Info("[Plugin] loaded %d/%d plugins", f.registry.Len(), len(f.factories))
	return f.reports
}

// Enable activates a plugin at runtime and persists the flag. In-tree
// plugins use their factory id as plugin name.
func (f *Framework) Enable(ctx context.Context, id string) error {
	if _, ok := f.registry.GetPlugin(id); ok {
		return fmt.Errorf("plugin %q is already enabled", id)
	}
	entry, ok := f.factories[id]
	if !ok {
		return fmt.Errorf("unknown plugin %q", id)
	}
	if err := f.enable(ctx, entry); err != nil {
		return err
	}
	if f.state != nil {
		return f.state.SetEnabled(id, true)
	}
	return nil
}

// Disable deactivates a plugin: Destroy runs, hooks are unregistered,
// and the flag is persisted.
func (f *Framework) Disable(ctx context.Context, id string) error {
	p, ok := f.registry.GetPlugin(id)
	if !ok {
		return fmt.Errorf("plugin %q is not enabled", id)
	}

	if dp, ok := p.(DestroyPlugin); ok {
		if err := dp.Destroy(ctx); err != nil {
			logger.Warn("[Plugin] %q Destroy() error: %v", id, err)
		}
	}
	f.bus.UnregisterPrefix(id + ".")
	f.registry.removePlugin(id)

	if f.state != nil {
		return f.state.SetEnabled(id, false)
	}
	return nil
}

func (f *Framework) enable(ctx context.Context, entry registeredFactory) error {
	p, err := entry.factory(entry.config)
	if err != nil {
		return fmt.Errorf("instantiate: %w", err)
	}

	if ip, ok := p.(InitPlugin); ok {
		if err := ip.Init(ctx); err != nil {
			return fmt.Errorf("init: %w", err)
		}
	}

	if err := f.registry.registerPlugin(p.Name(), entry.definition, p); err != nil {
		return err
	}

	f.probeAndRegister(p, entry.definition)
	return nil
}

// probeAndRegister checks a plugin for optional provider interfaces
// and wires its capabilities.
func (f *Framework) probeAndRegister(p Plugin, def Definition) {
	name := p.Name()

	if hp, ok := p.(HookProvider); ok {
		// Deterministic wiring order for map-shaped hook sets.
		hooks := hp.Hooks()
		points := make([]string, 0, len(hooks))
		for point := range hooks {
			points = append(points, string(point))
		}
		sort.Strings(points)
		for _, point := range points {
			handlerName := fmt.Sprintf("%s.%s", name, point)
			if err := f.bus.Register(hook.Point(point), handlerName, def.Priority, hooks[hook.Point(point)]); err != nil {
				logger.Warn("[Plugin] %q hook %q rejected: %v", name, point, err)
			}
		}
	}

	if pp, ok := p.(ProbeProvider); ok && f.probes != nil {
		for _, pr := range pp.Probes() {
			f.probes.Register(pr)
		}
	}

	if cp, ok := p.(CommandProvider); ok {
		for cmd, handler := range cp.Commands() {
			f.registry.addCommand(name, cmd, handler)
		}
	}
}

// Registry exposes the underlying registry.
func (f *Framework) Registry() *Registry { return f.registry }

// Reports returns the last Load outcome per plugin.
func (f *Framework) Reports() []LoadReport {
	out := make([]LoadReport, len(f.reports))
	copy(out, f.reports)
	return out
}

// RunCommand dispatches a plugin command by name.
func (f *Framework) RunCommand(ctx context.Context, name string, args []string) (string, error) {
	handler, ok := f.registry.Command(name)
	if !ok {
		return "", fmt.Errorf("unknown command %q", name)
	}
	return handler(ctx, args)
}
