// Package workspace tracks registered project workspaces and the
// user's usage profile.
package workspace

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/neurabytelabs/modus-forge/pkg/utils/json"
)

// Workspace is one registered project directory with its own .forge
// layout.
type Workspace struct {
	Name      string    `json:"name"`
	Root      string    `json:"root"`
	CreatedAt time.Time `json:"createdAt"`
	LastUsed  time.Time `json:"lastUsed"`
}

// Manager persists the workspace registry to workspaces.json under
// the user-local data dir.
type Manager struct {
	mu   sync.Mutex
	path string
}

// NewManager creates a Manager storing its registry under dir.
func NewManager(dir string) *Manager {
	return &Manager{path: filepath.Join(dir, "workspaces.json")}
}

// Register adds or refreshes a workspace.
func (m *Manager) Register(name, root string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	abs, err := filepath.Abs(root)
	if err != nil {
		return err
	}
	list := m.load()
	now := time.Now()
	for i := range list {
		if list[i].Name == name {
			list[i].Root = abs
			list[i].LastUsed = now
			return m.save(list)
		}
	}
	list = append(list, Workspace{Name: name, Root: abs, CreatedAt: now, LastUsed: now})
	return m.save(list)
}

// Get returns a workspace by name.
func (m *Manager) Get(name string) (*Workspace, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, w := range m.load() {
		if w.Name == name {
			return &w, nil
		}
	}
	return nil, fmt.Errorf("workspace %q not registered", name)
}

// List returns workspaces, most recently used first.
func (m *Manager) List() []Workspace {
	m.mu.Lock()
	defer m.mu.Unlock()
	list := m.load()
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].LastUsed.After(list[j].LastUsed)
	})
	return list
}

// Remove drops a workspace from the registry; its files stay.
func (m *Manager) Remove(name string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	list := m.load()
	for i, w := range list {
		if w.Name == name {
			list = append(list[:i], list[i+1:]...)
			return true, m.save(list)
		}
	}
	return false, nil
}

func (m *Manager) load() []Workspace {
	data, err := os.ReadFile(m.path)
	if err != nil {
		return nil
	}
	var list []Workspace
	if err := json.Unmarshal(data, &list); err != nil {
		return nil
	}
	return list
}

func (m *Manager) save(list []Workspace) error {
	if err := os.MkdirAll(filepath.Dir(m.path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(list, "", "  ")
	if err != nil {
		return err
	}
	tmp := m.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, m.path)
}

// Profile is the usage profile that feeds the enhancer's profile
// hint: the styles and tags a user actually generates.
type Profile struct {
	Styles map[string]int `json:"styles"`
	Tags   map[string]int `json:"tags"`
	Runs   int            `json:"runs"`
}

// ProfileStore persists profile.json under the user-local dir.
type ProfileStore struct {
	mu   sync.Mutex
	path string
}

// NewProfileStore creates the store under dir.
func NewProfileStore(dir string) *ProfileStore {
	return &ProfileStore{path: filepath.Join(dir, "profile.json")}
}

// Observe records one run's style and tags.
func (p *ProfileStore) Observe(style string, tags []string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	profile := p.load()
	profile.Runs++
	if style != "" {
		profile.Styles[style]++
	}
	for _, tag := range tags {
		profile.Tags[tag]++
	}
	return p.save(profile)
}

// Hint summarizes the profile for prompt assembly. Empty until enough
// runs accumulate.
func (p *ProfileStore) Hint() string {
	p.mu.Lock()
	defer p.mu.Unlock()

	profile := p.load()
	if profile.Runs < 3 {
		return ""
	}

	var parts []string
	if style := topKey(profile.Styles); style != "" {
		parts = append(parts, fmt.Sprintf("prefers the %s style", style))
	}
	if tag := topKey(profile.Tags); tag != "" {
		parts = append(parts, fmt.Sprintf("often builds %s apps", tag))
	}
	if len(parts) == 0 {
		return ""
	}
	return "The user " + strings.Join(parts, " and ") + "."
}

func topKey(m map[string]int) string {
	best, bestN := "", 0
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if m[k] > bestN {
			best, bestN = k, m[k]
		}
	}
	return best
}

func (p *ProfileStore) load() Profile {
	profile := Profile{Styles: map[string]int{}, Tags: map[string]int{}}
	data, err := os.ReadFile(p.path)
	if err != nil {
		return profile
	}
	_ = json.Unmarshal(data, &profile)
	if profile.Styles == nil {
		profile.Styles = map[string]int{}
	}
	if profile.Tags == nil {
		profile.Tags = map[string]int{}
	}
	return profile
}

func (p *ProfileStore) save(profile Profile) error {
	if err := os.MkdirAll(filepath.Dir(p.path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(profile, "", "  ")
	if err != nil {
		return err
	}
	tmp := p.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, p.path)
}
