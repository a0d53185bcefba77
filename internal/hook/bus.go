// Package hook implements the lifecycle hook bus: a fixed set of
// extension points at which registered handlers observe and may rewrite
// pipeline state. Handler failures are captured, never propagated.
package hook

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/neurabytelabs/modus-forge/pkg/logger"
)

// Point identifies one lifecycle extension point.
type Point string

const (
	BeforeContext  Point = "before_context"
	AfterContext   Point = "after_context"
	BeforeEnhance  Point = "before_enhance"
	AfterEnhance   Point = "after_enhance"
	BeforeGenerate Point = "before_generate"
	AfterGenerate  Point = "after_generate"
	BeforeValidate Point = "before_validate"
	AfterValidate  Point = "after_validate"
	BeforePersist  Point = "before_persist"
	AfterPersist   Point = "after_persist"
	OnError        Point = "on_error"
)

// Points lists every hook point.
var Points = []Point{
	BeforeContext, AfterContext,
	BeforeEnhance, AfterEnhance,
	BeforeGenerate, AfterGenerate,
	BeforeValidate, AfterValidate,
	BeforePersist, AfterPersist,
	OnError,
}

// Valid reports whether p names a known point.
func (p Point) Valid() bool {
	for _, known := range Points {
		if p == known {
			return true
		}
	}
	return false
}

// Handler observes the state and may return a replacement. A nil
// return keeps the current state.
type Handler func(ctx context.Context, state *State) (*State, error)

type entry struct {
	name     string
	priority int
	seq      int
	fn       Handler
}

// Bus dispatches hook points to their handlers.
type Bus struct {
	mu       sync.RWMutex
	handlers map[Point][]entry
	seq      int
}

// NewBus creates an empty Bus.
func NewBus() *Bus {
	return &Bus{handlers: make(map[Point][]entry)}
}

// Register adds a handler at a point. Lower priority runs first;
// insertion order breaks ties.
func (b *Bus) Register(point Point, name string, priority int, fn Handler) error {
	if !point.Valid() {
		return fmt.Errorf("unknown hook point %q", point)
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	b.seq++
	list := append(b.handlers[point], entry{name: name, priority: priority, seq: b.seq, fn: fn})
	sort.SliceStable(list, func(i, j int) bool {
		if list[i].priority != list[j].priority {
			return list[i].priority < list[j].priority
		}
		return list[i].seq < list[j].seq
	})
	b.handlers[point] = list
	return nil
}

// UnregisterPrefix removes every handler whose name starts with prefix.
// Plugins name handlers "<plugin>.<hook>", so disabling a plugin passes
// its name followed by ".".
func (b *Bus) UnregisterPrefix(prefix string) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	removed := 0
	for point, list := range b.handlers {
		kept := list[:0]
		for _, e := range list {
			if strings.HasPrefix(e.name, prefix) {
				removed++
				continue
			}
			kept = append(kept, e)
		}
		b.handlers[point] = kept
	}
	return removed
}

// HandlerCount returns the number of handlers at a point.
func (b *Bus) HandlerCount(point Point) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.handlers[point])
}

// Run invokes every handler at point in order. A handler's returned
// state replaces the current one; errors and panics are captured into
// the state's HookErrors and execution continues. After a capture the
// OnError handlers run, except when the failing point is OnError
// itself.
func (b *Bus) Run(ctx context.Context, point Point, state *State) *State {
	b.mu.RLock()
	list := make([]entry, len(b.handlers[point]))
	copy(list, b.handlers[point])
	b.mu.RUnlock()

	for _, e := range list {
		next, err := b.invoke(ctx, e, state)
		if err != nil {
			state.HookErrors = append(state.HookErrors, HookError{
				Point:   point,
				Handler: e.name,
				Error:   err.Error(),
			})
			logger.Warn("[Hook] %s handler %q failed: %v", point, e.name, err)
			if point != OnError {
				state = b.Run(ctx, OnError, state)
			}
			continue
		}
		if next != nil {
			state = next
		}
	}
	return state
}

// invoke runs one handler on a clone, converting panics to errors.
func (b *Bus) invoke(ctx context.Context, e entry, state *State) (next *State, err error) {
	defer func() {
		if r := recover(); r != nil {
			next = nil
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return e.fn(ctx, state.Clone())
}
