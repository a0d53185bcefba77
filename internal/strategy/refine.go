package strategy

import (
	"context"
	"fmt"
	"strings"

	"github.com/neurabytelabs/modus-forge/internal/llm"
	"github.com/neurabytelabs/modus-forge/internal/validate"
	"github.com/neurabytelabs/modus-forge/pkg/logger"
)

// RefineOptions tune the refinement loop.
type RefineOptions struct {
	// Threshold stops refinement once reached.
	Threshold float64
	// MaxRounds caps replacement attempts.
	MaxRounds int
	// Generate carries model/system settings for refinement calls.
	Generate llm.GenerateOptions
}

// IterationRecord describes one chain iteration.
type IterationRecord struct {
	Iteration int            `json:"iteration"`
	Score     validate.Score `json:"score"`
	Improved  bool           `json:"improved"`
}

// axisFocus names what to concentrate on per axis in refinement
// prompts.
var axisFocus = map[validate.Axis]string{
	validate.AxisConatus:  "interactivity: working inputs, event handlers, persistent state",
	validate.AxisRatio:    "structure: valid skeleton, closed tags, guarded scripts",
	validate.AxisLaetitia: "visual craft: embedded styles, motion, considered color",
	validate.AxisNatura:   "naturalness: semantic elements, accessibility attributes, copy",
}

// buildRefinementPrompt asks for a replacement document, naming the
// missed indicators and the two weakest axes.
func buildRefinementPrompt(prompt, html string, score validate.Score) string {
	var buf strings.Builder

	buf.WriteString("Improve the HTML application below. Keep everything that works; fix what is called out.\n\n")
	buf.WriteString(fmt.Sprintf("Original request:\n%s\n\n", prompt))

	if len(score.Issues) > 0 {
		buf.WriteString("Missing:\n")
		for _, issue := range score.Issues {
			buf.WriteString("- " + issue + "\n")
		}
		buf.WriteString("\n")
	}

	buf.WriteString("Focus areas:\n")
	for _, axis := range score.WeakestAxes(2) {
		buf.WriteString("- " + axisFocus[axis] + "\n")
	}

	buf.WriteString("\nCurrent document:\n")
	buf.WriteString(html)
	buf.WriteString("\n\nReply with the complete improved HTML document only.")
	return buf.String()
}

// Refine iteratively replaces html while the replacement strictly
// improves the total score. The result is never worse than the input.
func (e *Engine) Refine(ctx context.Context, prompt, html string, score validate.Score, opts RefineOptions) (string, validate.Score, int, error) {
	if opts.MaxRounds <= 0 {
		opts.MaxRounds = 3
	}

	rounds := 0
	for rounds < opts.MaxRounds {
		if score.Total >= opts.Threshold && opts.Threshold > 0 {
			break
		}
		if ctx.Err() != nil {
			return html, score, rounds, ctx.Err()
		}

		candidate := e.generate(ctx, buildRefinementPrompt(prompt, html, score), opts.Generate)
		rounds++
		if candidate.Err != nil {
			logger.Warn("[Refine] round %d failed: %v", rounds, candidate.Err)
			break
		}
		if candidate.Score.Total <= score.Total {
			// No strict improvement: keep what we have and stop.
			break
		}
		html, score = candidate.HTML, candidate.Score
	}
	return html, score, rounds, nil
}

// ChainOptions tune the iteration chain.
type ChainOptions struct {
	Threshold float64
	MaxRounds int
	// Patience stops the chain after this many consecutive
	// non-improving rounds.
	Patience int
	Generate llm.GenerateOptions
}

// Chain generates once, then refines below-threshold results with
// patience. Every iteration is recorded; the final score is never
// below the initial one.
func (e *Engine) Chain(ctx context.Context, prompt string, opts ChainOptions) (string, validate.Score, []IterationRecord, error) {
	if opts.MaxRounds <= 0 {
		opts.MaxRounds = 3
	}
	if opts.Patience <= 0 {
		opts.Patience = 2
	}

	first := e.generate(ctx, prompt, opts.Generate)
	if first.Err != nil {
		return "", validate.Score{}, nil, first.Err
	}

	html, score := first.HTML, first.Score
	records := []IterationRecord{{Iteration: 0, Score: score, Improved: true}}

	stale := 0
	for i := 1; i <= opts.MaxRounds; i++ {
		if score.Total >= opts.Threshold {
			break
		}
		if ctx.Err() != nil {
			break
		}

		candidate := e.generate(ctx, buildRefinementPrompt(prompt, html, score), opts.Generate)
		improved := candidate.Err == nil && candidate.Score.Total > score.Total
		if improved {
			html, score = candidate.HTML, candidate.Score
			stale = 0
		} else {
			stale++
		}
		records = append(records, IterationRecord{Iteration: i, Score: score, Improved: improved})

		if stale >= opts.Patience {
			break
		}
	}
	return html, score, records, nil
}
