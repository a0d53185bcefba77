// Package pipeline is the end-to-end conductor: probes → enhance →
// generate → validate → persist, with hook points around every stage
// and progress events streamed to an attached SSE channel.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/neurabytelabs/modus-forge/internal/enhance"
	"github.com/neurabytelabs/modus-forge/internal/grimoire"
	"github.com/neurabytelabs/modus-forge/internal/history"
	"github.com/neurabytelabs/modus-forge/internal/hook"
	"github.com/neurabytelabs/modus-forge/internal/llm"
	"github.com/neurabytelabs/modus-forge/internal/pkg/options"
	"github.com/neurabytelabs/modus-forge/internal/probe"
	"github.com/neurabytelabs/modus-forge/internal/sanitize"
	"github.com/neurabytelabs/modus-forge/internal/sse"
	"github.com/neurabytelabs/modus-forge/internal/strategy"
	"github.com/neurabytelabs/modus-forge/internal/telemetry"
	"github.com/neurabytelabs/modus-forge/internal/validate"
	"github.com/neurabytelabs/modus-forge/pkg/logger"
)

// contextBudget bounds the probe-gather stage; late probes are dropped.
const contextBudget = 10 * time.Second

// ErrEmptyIntent rejects blank intents before any stage runs.
var ErrEmptyIntent = errors.New("intent must not be empty")

// StageError tags a failure with the stage it happened in.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string { return fmt.Sprintf("[%s] %v", e.Stage, e.Err) }

func (e *StageError) Unwrap() error { return e.Err }

// Config wires the pipeline's collaborators.
type Config struct {
	Probes    *probe.Registry
	Bus       *hook.Bus
	Engine    *strategy.Engine
	Generator llm.Generator
	Validator *validate.Validator
	History   *history.History
	Grimoire  *grimoire.Grimoire
	Telemetry *telemetry.Telemetry
	Progress  *sse.Channel
	Security  *options.SecurityOptions
	Defaults  *options.PipelineOptions
}

// CompletedConfig is the validated pipeline configuration.
type CompletedConfig struct {
	*Config
}

// Complete fills in defaults for optional collaborators.
func (c *Config) Complete() CompletedConfig {
	if c.Bus == nil {
		c.Bus = hook.NewBus()
	}
	if c.Validator == nil {
		c.Validator = validate.New()
	}
	if c.Security == nil {
		c.Security = options.NewSecurityOptions()
	}
	if c.Defaults == nil {
		c.Defaults = options.NewPipelineOptions()
	}
	if c.Engine == nil && c.Generator != nil {
		c.Engine = strategy.NewEngine(c.Generator, c.Validator, c.Defaults.Parallelism)
	}
	return CompletedConfig{c}
}

// New creates a Pipeline.
func (c CompletedConfig) New() *Pipeline {
	return &Pipeline{cfg: c.Config}
}

// RunOptions parameterize one run. Zero values fall back to the
// configured defaults.
type RunOptions struct {
	Model     string
	Style     string
	Language  string
	Persona   string
	Theme     string
	Iterate   bool
	Threshold float64
	MaxRounds int
	Tags      []string
	// Inscribe saves the prompt into the grimoire after a successful
	// run.
	Inscribe bool
	// Sink receives streamed chunks when the router streams.
	Sink llm.ChunkSink
	// Stream asks the router for chunked delivery.
	Stream bool
}

// Result is the outcome of a successful run.
type Result struct {
	HTML           string                     `json:"html"`
	Score          validate.Score             `json:"score"`
	Validation     sanitize.Report            `json:"validation"`
	Context        string                     `json:"context"`
	Iterations     []strategy.IterationRecord `json:"iterations,omitempty"`
	Model          string                     `json:"model"`
	Provider       string                     `json:"provider"`
	EnhancedPrompt string                     `json:"enhancedPrompt"`
	DurationMs     int64                      `json:"durationMs"`
	HistoryID      string                     `json:"historyId,omitempty"`
	Removed        []string                   `json:"removed,omitempty"`
}

// Pipeline coordinates one generation run end to end.
type Pipeline struct {
	cfg *Config
}

// Run executes the pipeline for intent. Stage failures carry the stage
// name; hook failures never abort the run; persistence failures are
// surfaced but do not invalidate a successful generation.
func (p *Pipeline) Run(ctx context.Context, intent string, opts RunOptions) (*Result, error) {
	if intent == "" {
		return nil, &StageError{Stage: "intent", Err: ErrEmptyIntent}
	}

	start := time.Now()
	state := hook.NewState(intent)
	p.emit("start", map[string]interface{}{"prompt": intent})

	defaults := p.cfg.Defaults
	if opts.Style == "" {
		opts.Style = defaults.Style
	}
	if opts.Threshold == 0 {
		opts.Threshold = defaults.Threshold
	}
	if opts.MaxRounds == 0 {
		opts.MaxRounds = defaults.MaxRounds
	}
	if opts.Language == "" {
		opts.Language = defaults.Language
	}
	if !opts.Iterate {
		opts.Iterate = defaults.Iterate
	}

	// --- Stage 1: context ---
	state = p.cfg.Bus.Run(ctx, hook.BeforeContext, state)
	p.emit("progress", map[string]interface{}{"stage": "context"})
	if p.cfg.Probes != nil && defaults.ContextProbes {
		probeCtx, cancel := context.WithTimeout(ctx, contextBudget)
		state.ContextBlock = probe.Bundle(p.cfg.Probes.Gather(probeCtx))
		cancel()
	}
	state = p.cfg.Bus.Run(ctx, hook.AfterContext, state)

	// --- Stage 2: enhance ---
	state = p.cfg.Bus.Run(ctx, hook.BeforeEnhance, state)
	p.emit("progress", map[string]interface{}{"stage": "enhance"})
	enhanceOpts := enhance.Options{
		Style:        opts.Style,
		Language:     opts.Language,
		ContextBlock: state.ContextBlock,
		Persona:      opts.Persona,
		Theme:        opts.Theme,
	}
	state.Enhanced = enhance.Enhance(state.Intent, enhanceOpts)
	state.System = enhance.BuildSystemInstruction(enhanceOpts)
	state = p.cfg.Bus.Run(ctx, hook.AfterEnhance, state)

	// --- Stage 3: generate ---
	state = p.cfg.Bus.Run(ctx, hook.BeforeGenerate, state)
	p.emit("progress", map[string]interface{}{"stage": "generate"})

	genOpts := llm.GenerateOptions{
		Model:  opts.Model,
		System: state.System,
		Stream: opts.Stream,
		Sink:   opts.Sink,
	}

	var (
		iterations []strategy.IterationRecord
		meta       *llm.Meta
		genStart   = time.Now()
	)
	if opts.Iterate && p.cfg.Engine != nil {
		html, score, records, err := p.cfg.Engine.Chain(ctx, state.Enhanced, strategy.ChainOptions{
			Threshold: opts.Threshold,
			MaxRounds: opts.MaxRounds,
			Patience:  defaults.Patience,
			Generate:  genOpts,
		})
		if err != nil {
			return nil, p.fail(ctx, state, "generate", err, opts.Model, genStart)
		}
		state.HTML = html
		state.Score = &score
		iterations = records
	} else {
		html, m, err := p.cfg.Generator.Generate(ctx, state.Enhanced, genOpts)
		if err != nil {
			return nil, p.fail(ctx, state, "generate", err, opts.Model, genStart)
		}
		state.HTML = html
		meta = m
	}
	if meta != nil {
		state.Provider = meta.Provider
		state.Model = meta.ResolvedModel
	}
	state.Timings["generate"] = time.Since(genStart).Milliseconds()
	state = p.cfg.Bus.Run(ctx, hook.AfterGenerate, state)

	// --- Stage 4: validate ---
	state = p.cfg.Bus.Run(ctx, hook.BeforeValidate, state)
	p.emit("progress", map[string]interface{}{"stage": "validate"})

	var report sanitize.Report
	var removed []string
	if p.cfg.Security.Sanitize {
		report = sanitize.Scan(state.HTML)
		state.HTML, removed = sanitize.Sanitize(state.HTML, sanitize.Options{
			StripScripts: p.cfg.Security.StripScripts,
			StripStyles:  p.cfg.Security.StripStyles,
		})
	}
	// Hooks and the sanitizer may have rewritten the document; score
	// what will actually be persisted.
	score := p.cfg.Validator.Validate(state.HTML)
	state.Score = &score
	state.Iterations = len(iterations)
	state = p.cfg.Bus.Run(ctx, hook.AfterValidate, state)

	// --- Stage 5: persist ---
	state = p.cfg.Bus.Run(ctx, hook.BeforePersist, state)
	p.emit("progress", map[string]interface{}{"stage": "persist"})

	result := &Result{
		HTML:           state.HTML,
		Score:          score,
		Validation:     report,
		Context:        state.ContextBlock,
		Iterations:     iterations,
		Model:          state.Model,
		Provider:       state.Provider,
		EnhancedPrompt: state.Enhanced,
		Removed:        removed,
	}

	var persistErr error
	if p.cfg.History != nil {
		id, err := p.cfg.History.Record(history.Entry{
			Prompt:             intent,
			EnhancedPromptHash: llm.HashPrompt(state.Enhanced),
			Model:              state.Model,
			Provider:           state.Provider,
			Score:              score,
			Grade:              score.Grade,
			Style:              opts.Style,
			Tags:               opts.Tags,
		}, state.HTML)
		if err != nil {
			persistErr = err
			logger.Error("[Pipeline] history persist failed: %v", err)
		} else {
			result.HistoryID = id
		}
	}
	if opts.Inscribe && p.cfg.Grimoire != nil {
		if _, err := p.cfg.Grimoire.Inscribe(grimoire.Entry{
			Prompt:   intent,
			Tags:     opts.Tags,
			Category: opts.Style,
			Score:    score.Total,
		}); err != nil {
			logger.Warn("[Pipeline] grimoire inscribe failed: %v", err)
		}
	}
	p.recordTelemetry(state, meta, true, genStart)
	state = p.cfg.Bus.Run(ctx, hook.AfterPersist, state)

	result.DurationMs = time.Since(start).Milliseconds()
	p.emit("complete", map[string]interface{}{"score": score})

	if persistErr != nil {
		return result, &StageError{Stage: "persist", Err: persistErr}
	}
	return result, nil
}

// fail routes a stage failure through the error hooks and the SSE
// channel. Telemetry still records the attempt.
func (p *Pipeline) fail(ctx context.Context, state *hook.State, stage string, err error, model string, genStart time.Time) error {
	state.Model = model
	p.recordTelemetry(state, nil, false, genStart)
	p.cfg.Bus.Run(ctx, hook.OnError, state)
	p.emit("error", map[string]interface{}{"stage": stage, "message": err.Error()})
	return &StageError{Stage: stage, Err: err}
}

func (p *Pipeline) recordTelemetry(state *hook.State, meta *llm.Meta, success bool, genStart time.Time) {
	if p.cfg.Telemetry == nil {
		return
	}
	rec := telemetry.Record{
		Model:      state.Model,
		DurationMs: time.Since(genStart).Milliseconds(),
		Success:    success,
	}
	if meta != nil {
		rec.InTokens = meta.TokensInEst
		rec.OutTokens = meta.TokensOutEst
		rec.CostEst = meta.CostEst
	}
	if err := p.cfg.Telemetry.Record(rec); err != nil {
		logger.Warn("[Pipeline] telemetry record failed: %v", err)
	}
}

func (p *Pipeline) emit(event string, data map[string]interface{}) {
	if p.cfg.Progress != nil {
		data["type"] = event
		p.cfg.Progress.Send(event, data)
	}
}
