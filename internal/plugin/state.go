package plugin

import (
	"fmt"
	"os"
	"sync"

	"github.com/neurabytelabs/modus-forge/pkg/utils/json"
)

// StateFile persists per-plugin enable flags to a sidecar JSON file.
// Plugins absent from the file are considered enabled.
type StateFile struct {
	mu   sync.Mutex
	path string
}

// NewStateFile creates a StateFile at path.
func NewStateFile(path string) *StateFile {
	return &StateFile{path: path}
}

// Enabled reports whether a plugin is enabled. Unknown plugins default
// to enabled.
func (s *StateFile) Enabled(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	state := s.load()
	enabled, ok := state[id]
	return !ok || enabled
}

// SetEnabled persists a plugin's enable flag.
func (s *StateFile) SetEnabled(id string, enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	state := s.load()
	state[id] = enabled
	return s.save(state)
}

func (s *StateFile) load() map[string]bool {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return map[string]bool{}
	}
	out := map[string]bool{}
	if err := json.Unmarshal(data, &out); err != nil {
		return map[string]bool{}
	}
	return out
}

func (s *StateFile) save(state map[string]bool) error {
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write plugin state: %w", err)
	}
	return os.Rename(tmp, s.path)
}
