// Package llm implements the provider router: one Generate contract
// over heterogeneous LLM backends, with alias resolution, markdown
// stripping and HTML intake validation.
package llm

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/bytedance/gg/gptr"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/neurabytelabs/modus-forge/internal/llm/provider"
	"github.com/neurabytelabs/modus-forge/internal/llm/provider/helper"
	"github.com/neurabytelabs/modus-forge/internal/llm/provider/ollama"
	"github.com/neurabytelabs/modus-forge/internal/llm/provider/spi"
	"github.com/neurabytelabs/modus-forge/internal/pkg/options"
	"github.com/neurabytelabs/modus-forge/pkg/logger"
)

// DefaultTimeout bounds one remote generation; local inference gets
// ollama.Timeout seconds instead.
const DefaultTimeout = 120 * time.Second

// ChunkSink receives streamed output fragments as they arrive.
type ChunkSink interface {
	WriteChunk(text string)
}

// ChunkFunc adapts a function to the ChunkSink interface.
type ChunkFunc func(text string)

func (f ChunkFunc) WriteChunk(text string) { f(text) }

// GenerateOptions parameterize one router call.
type GenerateOptions struct {
	// Model is a model alias or concrete model id; resolution is total,
	// unknown aliases route to the default provider unchanged.
	Model string
	// System is the system instruction sent ahead of the prompt.
	System string
	// MaxTokens caps the output; zero means the configured default.
	MaxTokens int
	// Temperature overrides sampling temperature when non-nil.
	Temperature *float32
	// Stream enables chunked delivery through Sink.
	Stream bool
	// Sink receives chunks when streaming. Ignored otherwise.
	Sink ChunkSink
}

// Meta describes a completed generation.
type Meta struct {
	Provider      string  `json:"provider"`
	ResolvedModel string  `json:"resolvedModel"`
	DurationMs    int64   `json:"durationMs"`
	TokensInEst   int     `json:"tokensInEst"`
	TokensOutEst  int     `json:"tokensOutEst"`
	CostEst       float64 `json:"costEst"`
}

// Generator is the generation contract the iteration strategies and
// the pipeline consume. *Router is the production implementation.
type Generator interface {
	Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, *Meta, error)
}

// Router resolves aliases to providers and drives generations.
type Router struct {
	registry *provider.Registry
	opts     *options.ModelOptions
	plugins  map[string]spi.ProviderPlugin
}

// NewRouter creates a Router over the given provider registry.
func NewRouter(registry *provider.Registry, opts *options.ModelOptions) *Router {
	if opts == nil {
		opts = options.NewModelOptions()
	}
	r := &Router{
		registry: registry,
		opts:     opts,
		plugins:  make(map[string]spi.ProviderPlugin),
	}
	registry.Range(func(name string, factory spi.PluginFactory) bool {
		r.plugins[name] = factory()
		return true
	})
	return r
}

// providerConfig returns the effective config for a provider: the
// user-supplied entry when present, else the plugin default.
func (r *Router) providerConfig(name string) *options.ProviderConfig {
	if cfg, ok := r.opts.Providers[name]; ok && cfg != nil {
		return cfg
	}
	if p, ok := r.plugins[name]; ok {
		return p.DefaultConfig()
	}
	return nil
}

// DetectProvider resolves a model alias to (provider, model id). The
// function is total: an alias no provider claims routes to the default
// provider with the alias passed through as the model id.
func (r *Router) DetectProvider(alias string) (string, string) {
	alias = strings.TrimSpace(alias)
	if alias == "" {
		return r.opts.DefaultProvider, r.opts.DefaultModel
	}

	// Pass 1: explicit alias tables and model ids, registration order.
	for _, name := range r.registry.List() {
		cfg := r.providerConfig(name)
		if cfg == nil {
			continue
		}
		if resolved, ok := cfg.Aliases[alias]; ok {
			return name, resolved
		}
		if _, ok := helper.FindModel(cfg, alias); ok {
			return name, alias
		}
	}

	// Pass 2: model-family prefixes.
	switch {
	case strings.HasPrefix(alias, "gemini"):
		return "gemini", alias
	case strings.HasPrefix(alias, "gpt") || strings.HasPrefix(alias, "o1") || strings.HasPrefix(alias, "o3"):
		return "openai", alias
	case strings.HasPrefix(alias, "claude"):
		return "anthropic", alias
	case strings.HasPrefix(alias, "deepseek"):
		return "deepseek", alias
	case strings.HasPrefix(alias, "qwen"):
		return "qwen", alias
	case strings.Contains(alias, ":"):
		// Tagged names like "llama3.2:3b" are local models.
		return "ollama", alias
	}

	return r.opts.DefaultProvider, alias
}

// Available reports which providers can currently take requests.
func (r *Router) Available() map[string]bool {
	out := make(map[string]bool, len(r.plugins))
	for name, p := range r.plugins {
		out[name] = p.Available(r.providerConfig(name))
	}
	return out
}

// Models lists every model of every provider, keyed by provider name.
func (r *Router) Models() map[string][]options.ModelDefinition {
	out := make(map[string][]options.ModelDefinition)
	for _, name := range r.registry.List() {
		if cfg := r.providerConfig(name); cfg != nil {
			out[name] = cfg.Models
		}
	}
	return out
}

// Generate runs one generation. The result is post-processed (fences
// stripped, whitespace trimmed) and must read as an HTML document. The
// first error is returned verbatim; the router never retries and never
// switches providers on its own.
func (r *Router) Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, *Meta, error) {
	providerName, modelID := r.DetectProvider(opts.Model)

	plugin, ok := r.plugins[providerName]
	if !ok {
		return "", nil, fmt.Errorf("%w: %s", ErrProviderUnavailable, providerName)
	}
	cmp, ok := plugin.(spi.ChatModelPlugin)
	if !ok {
		return "", nil, fmt.Errorf("%w: %s cannot build chat models", ErrProviderUnavailable, providerName)
	}
	cfg := r.providerConfig(providerName)
	if !plugin.Available(cfg) {
		return "", nil, fmt.Errorf("%w: %s has no credentials", ErrProviderUnavailable, providerName)
	}

	params := &spi.Params{
		MaxTokens:   opts.MaxTokens,
		Temperature: opts.Temperature,
	}
	if params.MaxTokens == 0 {
		params.MaxTokens = r.opts.MaxTokens
	}
	if params.Temperature == nil && r.opts.Temperature > 0 {
		params.Temperature = gptr.Of(float32(r.opts.Temperature))
	}

	timeout := DefaultTimeout
	if providerName == ollama.Name {
		timeout = ollama.Timeout * time.Second
	}
	genCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cm, err := cmp.BuildChatModel(genCtx, modelID, cfg, params)
	if err != nil {
		return "", nil, fmt.Errorf("build %s/%s: %w", providerName, modelID, err)
	}

	messages := []*schema.Message{}
	if opts.System != "" {
		messages = append(messages, schema.SystemMessage(opts.System))
	}
	messages = append(messages, schema.UserMessage(prompt))

	start := time.Now()
	var text string
	if opts.Stream {
		text, err = r.consumeStream(genCtx, cm, messages, opts.Sink)
	} else {
		text, err = r.generateOnce(genCtx, cm, messages)
	}
	if err != nil {
		return "", nil, r.classify(ctx, genCtx, providerName, modelID, err)
	}

	html, err := PostProcess(text)
	if err != nil {
		return "", nil, err
	}

	meta := &Meta{
		Provider:      providerName,
		ResolvedModel: modelID,
		DurationMs:    time.Since(start).Milliseconds(),
		TokensInEst:   EstimateTokens(opts.System) + EstimateTokens(prompt),
		TokensOutEst:  EstimateTokens(html),
	}
	if def, ok := helper.FindModel(cfg, modelID); ok {
		meta.CostEst = float64(meta.TokensInEst)/1e6*def.Cost.Input +
			float64(meta.TokensOutEst)/1e6*def.Cost.Output
	}

	logger.Debug("[Router] %s/%s generated %d chars in %dms",
		providerName, modelID, len(html), meta.DurationMs)
	return html, meta, nil
}

func (r *Router) generateOnce(ctx context.Context, cm model.BaseChatModel, messages []*schema.Message) (string, error) {
	msg, err := cm.Generate(ctx, messages)
	if err != nil {
		return "", err
	}
	if msg == nil || msg.Content == "" {
		return "", ErrEmptyResponse
	}
	return msg.Content, nil
}

func (r *Router) consumeStream(ctx context.Context, cm model.BaseChatModel, messages []*schema.Message, sink ChunkSink) (string, error) {
	sr, err := cm.Stream(ctx, messages)
	if err != nil {
		return "", err
	}
	defer sr.Close()

	var buf strings.Builder
	for {
		msg, err := sr.Recv()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrStream, err)
		}
		if msg.Content == "" {
			continue
		}
		buf.WriteString(msg.Content)
		if sink != nil {
			sink.WriteChunk(msg.Content)
		}
	}
	if buf.Len() == 0 {
		return "", ErrEmptyResponse
	}
	return buf.String(), nil
}

// classify maps low-level failures onto the router's error kinds,
// keeping the original error in the chain.
func (r *Router) classify(callerCtx, genCtx context.Context, providerName, modelID string, err error) error {
	switch {
	case callerCtx.Err() != nil && errors.Is(callerCtx.Err(), context.Canceled):
		return fmt.Errorf("%w: %s/%s", ErrCancelled, providerName, modelID)
	case errors.Is(genCtx.Err(), context.DeadlineExceeded):
		return fmt.Errorf("%w: %s/%s: %v", ErrTimeout, providerName, modelID, err)
	case errors.Is(err, ErrEmptyResponse), errors.Is(err, ErrStream):
		return err
	default:
		return fmt.Errorf("provider %s/%s: %w", providerName, modelID, err)
	}
}

// PostProcess strips markdown fences, trims whitespace and validates
// the HTML intake contract.
func PostProcess(text string) (string, error) {
	out := strings.TrimSpace(text)

	// Strip a leading ```html (or bare ```) fence and its closer.
	if strings.HasPrefix(out, "```") {
		if idx := strings.Index(out, "\n"); idx >= 0 {
			out = out[idx+1:]
		} else {
			out = ""
		}
		out = strings.TrimSuffix(strings.TrimSpace(out), "```")
		out = strings.TrimSpace(out)
	}

	if out == "" {
		return "", ErrEmptyResponse
	}
	lower := strings.ToLower(out)
	if !strings.Contains(lower, "<!doctype") && !strings.Contains(lower, "<html") {
		return "", fmt.Errorf("%w: output starts with %q", ErrMalformedOutput, head(out, 40))
	}
	return out, nil
}

// EstimateTokens approximates the token count of text at four
// characters per token.
func EstimateTokens(text string) int {
	return len(text) / 4
}

// HashPrompt returns a stable short hash of an enhanced prompt.
func HashPrompt(prompt string) string {
	sum := sha256.Sum256([]byte(prompt))
	return hex.EncodeToString(sum[:8])
}

func head(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
