package strategy

import (
	"context"
	"fmt"
	"sort"

	"github.com/neurabytelabs/modus-forge/internal/llm"
	"github.com/neurabytelabs/modus-forge/internal/validate"
)

// Variant is one duel contestant with its verdict.
type Variant struct {
	Label  string         `json:"label"`
	HTML   string         `json:"-"`
	Score  validate.Score `json:"score"`
	Meta   *llm.Meta      `json:"meta,omitempty"`
	Reason string         `json:"reason"`
	Failed bool           `json:"failed"`
}

// DuelResult is the outcome of an A/B or prompt duel. Variants are
// sorted by total score, winner first; failed variants are omitted.
type DuelResult struct {
	Winner   *Variant  `json:"winner"`
	Variants []Variant `json:"variants"`
}

// ABTest generates the same prompt across providers concurrently and
// picks the highest-scoring result. Failed providers are dropped from
// the ranking; when every provider fails the duel reports
// ErrAllProvidersFailed.
func (e *Engine) ABTest(ctx context.Context, prompt string, providers []string, opts llm.GenerateOptions) (*DuelResult, error) {
	if len(providers) == 0 {
		return nil, fmt.Errorf("ab test: no providers given")
	}

	candidates := e.parallelMap(ctx, len(providers), func(ctx context.Context, i int) Candidate {
		callOpts := opts
		callOpts.Model = providers[i]
		return e.generate(ctx, prompt, callOpts)
	})

	return e.rankVariants(providers, candidates)
}

// PromptDuel generates several prompt variants on one provider and
// picks the best.
func (e *Engine) PromptDuel(ctx context.Context, prompts []string, opts llm.GenerateOptions) (*DuelResult, error) {
	if len(prompts) == 0 {
		return nil, fmt.Errorf("prompt duel: no variants given")
	}

	candidates := e.parallelMap(ctx, len(prompts), func(ctx context.Context, i int) Candidate {
		return e.generate(ctx, prompts[i], opts)
	})

	labels := make([]string, len(prompts))
	for i := range prompts {
		labels[i] = fmt.Sprintf("variant-%d", i+1)
	}
	return e.rankVariants(labels, candidates)
}

func (e *Engine) rankVariants(labels []string, candidates []Candidate) (*DuelResult, error) {
	var variants []Variant
	for i, c := range candidates {
		if c.Err != nil {
			continue
		}
		variants = append(variants, Variant{
			Label: labels[i],
			HTML:  c.HTML,
			Score: c.Score,
			Meta:  c.Meta,
		})
	}
	if len(variants) == 0 {
		return nil, ErrAllProvidersFailed
	}

	sort.SliceStable(variants, func(i, j int) bool {
		return variants[i].Score.Total > variants[j].Score.Total
	})

	for i := range variants {
		v := &variants[i]
		if i == 0 {
			v.Reason = fmt.Sprintf("highest total %.2f (grade %s)", v.Score.Total, v.Score.Grade)
			continue
		}
		reason := fmt.Sprintf("total %.2f (grade %s)", v.Score.Total, v.Score.Grade)
		if issues := v.Score.TopIssues(3); issues != "" {
			reason += "; missing: " + issues
		}
		v.Reason = reason
	}

	winner := variants[0]
	return &DuelResult{Winner: &winner, Variants: variants}, nil
}

// FallbackTest runs primary and, when it scores below threshold, the
// fallback too; the higher-scoring result wins. Errors on one side
// leave the other side's result standing.
func (e *Engine) FallbackTest(ctx context.Context, prompt string, primary, fallback string, threshold float64, opts llm.GenerateOptions) (*Variant, error) {
	primaryOpts := opts
	primaryOpts.Model = primary
	first := e.generate(ctx, prompt, primaryOpts)

	if first.Err == nil && first.Score.Total >= threshold {
		return &Variant{Label: primary, HTML: first.HTML, Score: first.Score, Meta: first.Meta}, nil
	}

	fallbackOpts := opts
	fallbackOpts.Model = fallback
	second := e.generate(ctx, prompt, fallbackOpts)

	switch {
	case first.Err != nil && second.Err != nil:
		return nil, ErrAllProvidersFailed
	case first.Err != nil:
		return &Variant{Label: fallback, HTML: second.HTML, Score: second.Score, Meta: second.Meta}, nil
	case second.Err != nil:
		return &Variant{Label: primary, HTML: first.HTML, Score: first.Score, Meta: first.Meta}, nil
	case second.Score.Total > first.Score.Total:
		return &Variant{Label: fallback, HTML: second.HTML, Score: second.Score, Meta: second.Meta}, nil
	default:
		return &Variant{Label: primary, HTML: first.HTML, Score: first.Score, Meta: first.Meta}, nil
	}
}
