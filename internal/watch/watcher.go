// Package watch regenerates applications when prompt files change: a
// recursive fsnotify watcher with debounce, a busy-skip while a
// generation is in flight, and an SSE feed plus dashboard server.
package watch

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/gin-gonic/gin"

	"github.com/neurabytelabs/modus-forge/internal/pipeline"
	"github.com/neurabytelabs/modus-forge/internal/sse"
	"github.com/neurabytelabs/modus-forge/pkg/logger"
)

// DefaultDebounce coalesces bursts of change events.
const DefaultDebounce = 500 * time.Millisecond

// watchedExts are the prompt file types that trigger regeneration.
var watchedExts = map[string]bool{".txt": true, ".md": true}

// Options configure a Watcher.
type Options struct {
	// Target is the prompt file or directory to watch.
	Target string
	// Debounce coalesces change bursts; zero means DefaultDebounce.
	Debounce time.Duration
	// Port serves the dashboard; zero disables the HTTP server.
	Port int
	// Run options forwarded to every pipeline run.
	RunOptions pipeline.RunOptions
}

// Event is broadcast after every regeneration.
type Event struct {
	Type      string  `json:"type"`
	Iteration int     `json:"iteration"`
	File      string  `json:"file"`
	ElapsedMs int64   `json:"elapsed"`
	Score     float64 `json:"score,omitempty"`
	Grade     string  `json:"grade,omitempty"`
	Error     string  `json:"error,omitempty"`
}

// Watcher drives watch mode for one target.
type Watcher struct {
	pipe      *pipeline.Pipeline
	opts      Options
	channel   *sse.Channel
	iteration atomic.Int64
	busy      atomic.Bool

	mu         sync.RWMutex
	latestHTML string
}

// New creates a Watcher over the given pipeline.
func New(pipe *pipeline.Pipeline, opts Options) *Watcher {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	return &Watcher{
		pipe:    pipe,
		opts:    opts,
		channel: sse.NewChannel(sse.Options{Heartbeat: 15 * time.Second}),
	}
}

// Channel exposes the event feed.
func (w *Watcher) Channel() *sse.Channel { return w.channel }

// Latest returns the most recent generated HTML.
func (w *Watcher) Latest() string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.latestHTML
}

// Run watches until the context is cancelled. When the target is a
// single file the first generation fires immediately.
func (w *Watcher) Run(ctx context.Context) error {
	info, err := os.Stat(w.opts.Target)
	if err != nil {
		return fmt.Errorf("watch target: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	if info.IsDir() {
		if err := w.addRecursive(watcher, w.opts.Target); err != nil {
			return err
		}
	} else {
		// Watch the parent so editors that replace the file keep
		// triggering.
		if err := watcher.Add(filepath.Dir(w.opts.Target)); err != nil {
			return err
		}
		go w.generate(ctx, w.opts.Target)
	}

	if w.opts.Port > 0 {
		go w.serveDashboard(ctx)
	}

	var (
		debounce *time.Timer
		pending  string
		timerC   <-chan time.Time
	)

	logger.Info("[Watch] watching %s (debounce %s)", w.opts.Target, w.opts.Debounce)
	for {
		select {
		case <-ctx.Done():
			w.channel.Close()
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !w.relevant(event) {
				continue
			}
			pending = event.Name
			if debounce == nil {
				debounce = time.NewTimer(w.opts.Debounce)
				timerC = debounce.C
			} else {
				debounce.Reset(w.opts.Debounce)
			}

		case <-timerC:
			timerC = nil
			debounce = nil
			if w.busy.Load() {
				// A generation is in flight; this change is dropped.
				logger.Debug("[Watch] busy, ignoring change to %s", pending)
				continue
			}
			go w.generate(ctx, pending)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("[Watch] watcher error: %v", err)
		}
	}
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
		return false
	}
	if !watchedExts[strings.ToLower(filepath.Ext(event.Name))] {
		return false
	}
	// For single-file targets only that file matters.
	if info, err := os.Stat(w.opts.Target); err == nil && !info.IsDir() {
		return filepath.Clean(event.Name) == filepath.Clean(w.opts.Target)
	}
	return true
}

func (w *Watcher) addRecursive(watcher *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return watcher.Add(path)
		}
		return nil
	})
}

// generate reads the prompt file and runs the pipeline once.
func (w *Watcher) generate(ctx context.Context, file string) {
	if !w.busy.CompareAndSwap(false, true) {
		return
	}
	defer w.busy.Store(false)

	iteration := int(w.iteration.Add(1))
	start := time.Now()

	data, err := os.ReadFile(file)
	if err != nil {
		w.broadcastError(iteration, file, start, err)
		return
	}
	intent := strings.TrimSpace(string(data))
	if intent == "" {
		w.broadcastError(iteration, file, start, fmt.Errorf("prompt file is empty"))
		return
	}

	result, err := w.pipe.Run(ctx, intent, w.opts.RunOptions)
	if err != nil {
		w.broadcastError(iteration, file, start, err)
		return
	}

	w.mu.Lock()
	w.latestHTML = result.HTML
	w.mu.Unlock()

	w.channel.Broadcast(Event{
		Type:      "generated",
		Iteration: iteration,
		File:      file,
		ElapsedMs: time.Since(start).Milliseconds(),
		Score:     result.Score.Total,
		Grade:     string(result.Score.Grade),
	})
	logger.Info("[Watch] iteration %d: %s scored %.2f (%s) in %dms",
		iteration, filepath.Base(file), result.Score.Total, result.Score.Grade, time.Since(start).Milliseconds())
}

func (w *Watcher) broadcastError(iteration int, file string, start time.Time, err error) {
	logger.Warn("[Watch] iteration %d failed: %v", iteration, err)
	w.channel.Broadcast(Event{
		Type:      "error",
		Iteration: iteration,
		File:      file,
		ElapsedMs: time.Since(start).Milliseconds(),
		Error:     err.Error(),
	})
}

const dashboardPage = `<!DOCTYPE html>
<html><head><title>forge watch</title><style>
body{font-family:monospace;background:#111;color:#9e9}
iframe{width:100%;height:85vh;border:1px solid #333;background:#fff}
</style></head><body>
<h3>forge watch — live preview</h3>
<iframe id="preview" src="/latest"></iframe>
<script>
const es = new EventSource("/events");
es.onmessage = () => { document.getElementById("preview").src = "/latest?" + Date.now(); };
</script>
</body></html>`

func (w *Watcher) serveDashboard(ctx context.Context) {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	engine.GET("/", func(c *gin.Context) {
		c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(dashboardPage))
	})
	engine.GET("/latest", func(c *gin.Context) {
		html := w.Latest()
		if html == "" {
			c.Data(http.StatusOK, "text/html; charset=utf-8", []byte("<html><body>waiting for first generation…</body></html>"))
			return
		}
		c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(html))
	})
	engine.GET("/events", w.channel.Handler())

	srv := &http.Server{
		Addr:              fmt.Sprintf("127.0.0.1:%d", w.opts.Port),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("[Watch] dashboard on http://%s", srv.Addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Warn("[Watch] dashboard server: %v", err)
	}
}
