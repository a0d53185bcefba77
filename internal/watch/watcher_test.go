package watch

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neurabytelabs/modus-forge/internal/llm"
	"github.com/neurabytelabs/modus-forge/internal/pipeline"
)

type stubGen struct {
	mu    sync.Mutex
	calls int
}

func (s *stubGen) Generate(_ context.Context, prompt string, _ llm.GenerateOptions) (string, *llm.Meta, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return "<!DOCTYPE html><html><head><title>t</title></head><body>" + prompt + "</body></html>",
		&llm.Meta{Provider: "stub"}, nil
}

func (s *stubGen) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func newWatcher(t *testing.T, target string) (*Watcher, *stubGen) {
	t.Helper()
	gen := &stubGen{}
	cfg := &pipeline.Config{Generator: gen}
	pipe := cfg.Complete().New()
	return New(pipe, Options{Target: target, Debounce: 30 * time.Millisecond}), gen
}

func TestFileTargetFiresImmediately(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "prompt.txt")
	require.NoError(t, os.WriteFile(file, []byte("track water"), 0o644))

	w, gen := newWatcher(t, file)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = w.Run(ctx) }()

	require.Eventually(t, func() bool { return gen.count() >= 1 }, 2*time.Second, 20*time.Millisecond)
	require.Eventually(t, func() bool { return w.Latest() != "" }, 2*time.Second, 20*time.Millisecond)
	assert.Contains(t, w.Latest(), "track water")
}

func TestChangeTriggersRegeneration(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "prompt.md")
	require.NoError(t, os.WriteFile(file, []byte("v1"), 0o644))

	w, gen := newWatcher(t, file)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = w.Run(ctx) }()

	require.Eventually(t, func() bool { return gen.count() == 1 }, 2*time.Second, 20*time.Millisecond)

	require.NoError(t, os.WriteFile(file, []byte("v2 prompt"), 0o644))
	require.Eventually(t, func() bool { return gen.count() >= 2 }, 2*time.Second, 20*time.Millisecond)
	require.Eventually(t, func() bool { return strings.Contains(w.Latest(), "v2 prompt") }, 2*time.Second, 20*time.Millisecond)
}

func TestIrrelevantExtensionsIgnored(t *testing.T) {
	w, _ := newWatcher(t, t.TempDir())
	assert.False(t, w.relevant(fsnotify.Event{Name: "x.html", Op: fsnotify.Write}))
	assert.False(t, w.relevant(fsnotify.Event{Name: "x.txt", Op: fsnotify.Chmod}))
	assert.True(t, w.relevant(fsnotify.Event{Name: "x.txt", Op: fsnotify.Write}))
	assert.True(t, w.relevant(fsnotify.Event{Name: "x.md", Op: fsnotify.Create}))
}
