// Package probe implements pluggable context probes. Each probe
// contributes a short text hint used to enrich prompt assembly; probes
// are polled in parallel, individually timed out and cached by name.
package probe

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/neurabytelabs/modus-forge/internal/cache"
	"github.com/neurabytelabs/modus-forge/pkg/logger"
)

// DefaultTimeout bounds a single probe poll when the probe declares none.
const DefaultTimeout = 5 * time.Second

// Probe is a read-only signal source. Hint must be side-effect free
// towards the rest of the system; a failing probe contributes nothing.
type Probe interface {
	// Name is the unique probe identifier, also its cache key.
	Name() string
	// TTL is how long a hint stays fresh.
	TTL() time.Duration
	// Hint produces the probe's current one-line context hint.
	Hint(ctx context.Context) (string, error)
}

// TimeoutProbe lets a probe override the per-poll timeout.
type TimeoutProbe interface {
	Probe
	Timeout() time.Duration
}

// Registry holds probes in registration order.
type Registry struct {
	mu     sync.RWMutex
	probes []Probe
	cache  *cache.Namespace
}

// NewRegistry creates a Registry backed by the given cache namespace.
// The namespace may be nil, in which case hints are never cached.
func NewRegistry(ns *cache.Namespace) *Registry {
	return &Registry{cache: ns}
}

// Register appends a probe. Later registrations with a duplicate name
// are ignored with a warning.
func (r *Registry) Register(p Probe) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.probes {
		if existing.Name() == p.Name() {
			logger.Warn("[Probe] probe %q already registered, ignoring", p.Name())
			return
		}
	}
	r.probes = append(r.probes, p)
}

// Probes returns the registered probes in registration order.
func (r *Registry) Probes() []Probe {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Probe, len(r.probes))
	copy(out, r.probes)
	return out
}

// Result is a single probe outcome within a bundle.
type Result struct {
	Name    string    `json:"name"`
	Hint    string    `json:"hint"`
	TTLMs   int64     `json:"ttlMs"`
	FreshAt time.Time `json:"freshAt"`
}

// Gather polls every registered probe in parallel and assembles the
// context bundle in registration order. Probe errors and timeouts are
// logged and contribute an empty hint; they never abort the bundle.
func (r *Registry) Gather(ctx context.Context) []Result {
	probes := r.Probes()
	results := make([]Result, len(probes))

	var wg sync.WaitGroup
	for i, p := range probes {
		wg.Add(1)
		go func(i int, p Probe) {
			defer wg.Done()
			results[i] = r.poll(ctx, p)
		}(i, p)
	}
	wg.Wait()

	return results
}

// Bundle joins the non-empty hints of a gather by newlines.
func Bundle(results []Result) string {
	var hints []string
	for _, res := range results {
		if res.Hint != "" {
			hints = append(hints, res.Hint)
		}
	}
	return strings.Join(hints, "\n")
}

func (r *Registry) poll(ctx context.Context, p Probe) Result {
	res := Result{Name: p.Name(), TTLMs: p.TTL().Milliseconds(), FreshAt: time.Now()}

	if r.cache != nil {
		if cached, ok := r.cache.Get(p.Name()); ok {
			res.Hint, _ = cached.(string)
			return res
		}
	}

	timeout := DefaultTimeout
	if tp, ok := p.(TimeoutProbe); ok && tp.Timeout() > 0 {
		timeout = tp.Timeout()
	}
	pollCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	hint, err := p.Hint(pollCtx)
	if err != nil {
		logger.Debug("[Probe] %q failed: %v", p.Name(), err)
		return res
	}
	res.Hint = strings.TrimSpace(hint)

	if r.cache != nil && res.Hint != "" {
		r.cache.SetTTL(p.Name(), res.Hint, p.TTL())
	}
	return res
}
