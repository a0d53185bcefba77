package hook

import (
	"time"

	"github.com/jinzhu/copier"

	"github.com/neurabytelabs/modus-forge/internal/validate"
)

// HookError records one captured handler failure. Failures never stop
// the run; they accumulate here.
type HookError struct {
	Point   Point  `json:"hook"`
	Handler string `json:"handler"`
	Error   string `json:"error"`
}

// State is the pipeline state threaded through hook points. Handlers
// may return a replacement; unset fields stay unset.
type State struct {
	Intent       string
	Enhanced     string
	System       string
	ContextBlock string
	HTML         string
	Provider     string
	Model        string
	Score        *validate.Score
	Iterations   int
	StartedAt    time.Time
	Timings      map[string]int64
	HookErrors   []HookError
}

// NewState creates a State for one run.
func NewState(intent string) *State {
	return &State{
		Intent:    intent,
		StartedAt: time.Now(),
		Timings:   map[string]int64{},
	}
}

// Clone returns a deep copy. The bus hands clones to handlers so a
// panicking handler cannot leave the live state half-mutated.
func (s *State) Clone() *State {
	out := &State{}
	if err := copier.CopyWithOption(out, s, copier.Option{DeepCopy: true}); err != nil {
		// Copy failure degrades to a shallow copy.
		shallow := *s
		return &shallow
	}
	return out
}
