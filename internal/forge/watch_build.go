package forge

import (
	"time"

	"github.com/neurabytelabs/modus-forge/internal/pipeline"
	"github.com/neurabytelabs/modus-forge/internal/watch"
)

func watchOptions(d *deps, target string, debounceMs, port int, model, style string) watch.Options {
	if debounceMs <= 0 {
		debounceMs = d.Config.Watch.DebounceMs
	}
	if port <= 0 {
		port = d.Config.Watch.Port
	}
	return watch.Options{
		Target:   target,
		Debounce: time.Duration(debounceMs) * time.Millisecond,
		Port:     port,
		RunOptions: pipeline.RunOptions{
			Model: model,
			Style: style,
		},
	}
}

func newPipelineWatcher(d *deps, opts watch.Options) *watch.Watcher {
	return watch.New(d.Pipeline, opts)
}
