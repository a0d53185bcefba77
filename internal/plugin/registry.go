package plugin

import (
	"fmt"
	"sync"

	"github.com/neurabytelabs/modus-forge/pkg/logger"
)

// Registry holds loaded plugins and their aggregated capabilities.
// Thread-safe; runtime mutation happens only through Framework
// enable/disable, which serializes on this lock.
type Registry struct {
	mu sync.RWMutex

	plugins     map[string]Plugin
	pluginOrder []string
	definitions map[string]Definition

	// commands maps command name → handler; commandOwners tracks the
	// owning plugin for diagnostics and removal.
	commands      map[string]CommandHandler
	commandOwners map[string]string
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		plugins:       make(map[string]Plugin),
		definitions:   make(map[string]Definition),
		commands:      make(map[string]CommandHandler),
		commandOwners: make(map[string]string),
	}
}

func (r *Registry) registerPlugin(name string, def Definition, p Plugin) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.plugins[name]; ok {
		return fmt.Errorf("plugin %q is already registered", name)
	}
	r.plugins[name] = p
	r.pluginOrder = append(r.pluginOrder, name)
	r.definitions[name] = def
	return nil
}

func (r *Registry) removePlugin(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.plugins, name)
	delete(r.definitions, name)
	for i, n := range r.pluginOrder {
		if n == name {
			r.pluginOrder = append(r.pluginOrder[:i], r.pluginOrder[i+1:]...)
			break
		}
	}
	for cmd, owner := range r.commandOwners {
		if owner == name {
			delete(r.commands, cmd)
			delete(r.commandOwners, cmd)
		}
	}
}

// addCommand registers a command for a plugin. Name collisions keep
// the first-loaded owner and warn.
func (r *Registry) addCommand(pluginName, command string, handler CommandHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if owner, ok := r.commandOwners[command]; ok {
		logger.Warn("[Plugin] command %q already owned by %q, ignoring registration from %q",
			command, owner, pluginName)
		return
	}
	r.commands[command] = handler
	r.commandOwners[command] = pluginName
}

// Command looks a command handler up in O(1).
func (r *Registry) Command(name string) (CommandHandler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.commands[name]
	return h, ok
}

// CommandOwner reports which plugin owns a command.
func (r *Registry) CommandOwner(name string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	owner, ok := r.commandOwners[name]
	return owner, ok
}

// GetPlugin returns a loaded plugin by name.
func (r *Registry) GetPlugin(name string) (Plugin, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.plugins[name]
	return p, ok
}

// Definition returns a plugin's metadata.
func (r *Registry) Definition(name string) (Definition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.definitions[name]
	return def, ok
}

// PluginNames returns loaded plugin names in load order.
func (r *Registry) PluginNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.pluginOrder))
	copy(out, r.pluginOrder)
	return out
}

// Len returns the number of loaded plugins.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.plugins)
}
