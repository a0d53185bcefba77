package strategy

import (
	"context"
	"fmt"

	"github.com/neurabytelabs/modus-forge/internal/llm"
)

// BestOfN generates n candidates for prompt and returns the one with
// the highest total score. Ties go to the earliest candidate. Failed
// candidates score zero; an error is returned only when every
// candidate failed.
func (e *Engine) BestOfN(ctx context.Context, prompt string, n int, opts llm.GenerateOptions) (*Candidate, []Candidate, error) {
	if n < 1 {
		n = 1
	}

	candidates := e.parallelMap(ctx, n, func(ctx context.Context, _ int) Candidate {
		return e.generate(ctx, prompt, opts)
	})

	best := -1
	for i, c := range candidates {
		if c.Err != nil {
			continue
		}
		if best < 0 || c.Score.Total > candidates[best].Score.Total {
			best = i
		}
	}
	if best < 0 {
		return nil, candidates, fmt.Errorf("best-of-%d: %w", n, ErrAllProvidersFailed)
	}
	winner := candidates[best]
	return &winner, candidates, nil
}
