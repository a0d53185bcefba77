package options

import (
	"fmt"

	"github.com/spf13/pflag"
)

// PipelineOptions configures generation behavior: iteration, quality
// gates and bounded parallelism for the multi-candidate strategies.
type PipelineOptions struct {
	Iterate       bool    `json:"iterate" mapstructure:"iterate"`
	Threshold     float64 `json:"threshold" mapstructure:"threshold"`
	MaxRounds     int     `json:"max-rounds" mapstructure:"max-rounds"`
	Patience      int     `json:"patience" mapstructure:"patience"`
	Parallelism   int     `json:"parallelism" mapstructure:"parallelism"`
	Style         string  `json:"style" mapstructure:"style"`
	Language      string  `json:"language" mapstructure:"language"`
	InscribeRuns  bool    `json:"inscribe-runs" mapstructure:"inscribe-runs"`
	ContextProbes bool    `json:"context-probes" mapstructure:"context-probes"`
}

func NewPipelineOptions() *PipelineOptions {
	return &PipelineOptions{
		Threshold:     0.7,
		MaxRounds:     3,
		Patience:      2,
		Parallelism:   3,
		Style:         "minimal",
		ContextProbes: true,
	}
}

func (o *PipelineOptions) Validate() []error {
	var errs []error
	if o.Threshold < 0 || o.Threshold > 1 {
		errs = append(errs, fmt.Errorf("pipeline.threshold %v out of range [0,1]", o.Threshold))
	}
	if o.Parallelism < 1 {
		errs = append(errs, fmt.Errorf("pipeline.parallelism must be positive"))
	}
	switch o.Style {
	case "cyberpunk", "minimal", "terminal", "":
	default:
		errs = append(errs, fmt.Errorf("pipeline.style %q unknown, want cyberpunk, minimal or terminal", o.Style))
	}
	return errs
}

func (o *PipelineOptions) AddFlags(fs *pflag.FlagSet) {
	fs.BoolVar(&o.Iterate, "pipeline.iterate", o.Iterate, "Refine below-threshold generations iteratively.")
	fs.Float64Var(&o.Threshold, "pipeline.threshold", o.Threshold, "Quality score that stops refinement.")
	fs.IntVar(&o.MaxRounds, "pipeline.max-rounds", o.MaxRounds, "Max refinement rounds per run.")
	fs.IntVar(&o.Patience, "pipeline.patience", o.Patience, "Consecutive non-improving rounds before giving up.")
	fs.IntVar(&o.Parallelism, "pipeline.parallelism", o.Parallelism, "Bound on concurrent LLM calls in multi-candidate strategies.")
	fs.StringVar(&o.Style, "pipeline.style", o.Style, "Style preset: cyberpunk, minimal or terminal.")
	fs.StringVar(&o.Language, "pipeline.language", o.Language, "Output language hint for generated apps.")
	fs.BoolVar(&o.ContextProbes, "pipeline.context-probes", o.ContextProbes, "Enrich prompts with ambient context probes.")
}

// SecurityOptions configures the sanitizer pass.
type SecurityOptions struct {
	Sanitize     bool `json:"sanitize" mapstructure:"sanitize"`
	StripScripts bool `json:"strip-scripts" mapstructure:"strip-scripts"`
	StripStyles  bool `json:"strip-styles" mapstructure:"strip-styles"`
}

func NewSecurityOptions() *SecurityOptions {
	return &SecurityOptions{Sanitize: true}
}

func (o *SecurityOptions) Validate() []error { return nil }

func (o *SecurityOptions) AddFlags(fs *pflag.FlagSet) {
	fs.BoolVar(&o.Sanitize, "security.sanitize", o.Sanitize, "Scan and rewrite dangerous patterns in generated HTML.")
	fs.BoolVar(&o.StripScripts, "security.strip-scripts", o.StripScripts, "Strip <script> blocks when sanitizing.")
	fs.BoolVar(&o.StripStyles, "security.strip-styles", o.StripStyles, "Strip inline style attributes when sanitizing.")
}

// PluginsOptions controls the plugin framework.
type PluginsOptions struct {
	Enabled bool     `json:"enabled" mapstructure:"enabled"`
	Deny    []string `json:"deny" mapstructure:"deny"`
}

func NewPluginsOptions() *PluginsOptions {
	return &PluginsOptions{Enabled: true}
}

func (o *PluginsOptions) Validate() []error { return nil }

func (o *PluginsOptions) AddFlags(fs *pflag.FlagSet) {
	fs.BoolVar(&o.Enabled, "plugins.enabled", o.Enabled, "Enable the plugin framework.")
	fs.StringSliceVar(&o.Deny, "plugins.deny", o.Deny, "Plugins that must not be loaded.")
}

// WatchOptions configures watch mode.
type WatchOptions struct {
	DebounceMs int `json:"debounce-ms" mapstructure:"debounce-ms"`
	Port       int `json:"port" mapstructure:"port"`
}

func NewWatchOptions() *WatchOptions {
	return &WatchOptions{DebounceMs: 500, Port: 8778}
}

func (o *WatchOptions) Validate() []error {
	var errs []error
	if o.DebounceMs < 0 {
		errs = append(errs, fmt.Errorf("watch.debounce-ms must not be negative"))
	}
	return errs
}

func (o *WatchOptions) AddFlags(fs *pflag.FlagSet) {
	fs.IntVar(&o.DebounceMs, "watch.debounce-ms", o.DebounceMs, "Debounce interval for file change events.")
	fs.IntVar(&o.Port, "watch.port", o.Port, "Port of the watch-mode dashboard server.")
}
