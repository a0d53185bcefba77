// Package strategy implements the iteration strategies layered on the
// router and validator: best-of-N, refinement, chains, genetic
// evolution and duels. Scores are deterministic per document; all
// nondeterminism comes from the LLM.
package strategy

import (
	"context"
	"errors"
	"sync"

	"github.com/neurabytelabs/modus-forge/internal/llm"
	"github.com/neurabytelabs/modus-forge/internal/validate"
	"github.com/neurabytelabs/modus-forge/pkg/logger"
)

// ErrAllProvidersFailed means every duel variant errored.
var ErrAllProvidersFailed = errors.New("all providers failed")

// DefaultParallelism bounds concurrent LLM calls in multi-candidate
// strategies.
const DefaultParallelism = 3

// Candidate is one scored generation.
type Candidate struct {
	HTML  string         `json:"-"`
	Score validate.Score `json:"score"`
	Meta  *llm.Meta      `json:"meta,omitempty"`
	Err   error          `json:"-"`
}

// Engine runs strategies against one generator/validator pair.
type Engine struct {
	gen         llm.Generator
	validator   *validate.Validator
	parallelism int
}

// NewEngine creates an Engine. A non-positive parallelism falls back
// to the default bound.
func NewEngine(gen llm.Generator, validator *validate.Validator, parallelism int) *Engine {
	if parallelism <= 0 {
		parallelism = DefaultParallelism
	}
	if validator == nil {
		validator = validate.New()
	}
	return &Engine{gen: gen, validator: validator, parallelism: parallelism}
}

// generate runs one generation and scores it. A failed call yields a
// zero-score candidate so multi-candidate strategies can proceed.
func (e *Engine) generate(ctx context.Context, prompt string, opts llm.GenerateOptions) Candidate {
	html, meta, err := e.gen.Generate(ctx, prompt, opts)
	if err != nil {
		logger.Debug("[Strategy] candidate failed: %v", err)
		return Candidate{Err: err}
	}
	return Candidate{HTML: html, Score: e.validator.Validate(html), Meta: meta}
}

// Validate exposes the engine's validator to callers that already hold
// HTML.
func (e *Engine) Validate(html string) validate.Score {
	return e.validator.Validate(html)
}

// parallelMap runs fn for every index with bounded parallelism and
// returns the results in input order.
func (e *Engine) parallelMap(ctx context.Context, n int, fn func(ctx context.Context, i int) Candidate) []Candidate {
	results := make([]Candidate, n)

	// A bound of one is sequential; run inline and keep call order.
	if e.parallelism == 1 {
		for i := 0; i < n; i++ {
			results[i] = fn(ctx, i)
		}
		return results
	}

	sem := make(chan struct{}, e.parallelism)
	var wg sync.WaitGroup

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			results[i] = fn(ctx, i)
		}(i)
	}
	wg.Wait()
	return results
}
