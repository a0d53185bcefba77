package strategy

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neurabytelabs/modus-forge/internal/llm"
	"github.com/neurabytelabs/modus-forge/internal/validate"
)

// poorDoc scores in the D band.
const poorDoc = "<html></html>"

// midDoc lands mid-band: structure and some style, little else.
const midDoc = `<!DOCTYPE html><html><head><title>app</title><style>body{--c:#111;transition:all .2s}</style></head><body><main><input placeholder="x"><script>try{localStorage.setItem("k","v")}catch(e){}</script></main></body></html>`

// richDoc exercises most indicators and scores S/A.
func richDoc() string {
	filler := strings.Repeat("<section aria-label=\"b\"><p>entry entry entry entry</p></section>\n", 40)
	return `<!DOCTYPE html><html><head><title>Tracker</title>
<style>:root{--a:#e33;background:linear-gradient(#111,#222)}main{transition:opacity .2s}@keyframes p{}@media(max-width:600px){}</style>
</head><body><header><nav>m</nav></header><main role="main">
<input placeholder="km"><button onclick="add()">Add ☺</button><canvas></canvas>` + filler + `
</main><footer>f</footer>
<script>function add(){try{localStorage.setItem("r","1")}catch(e){}}document.addEventListener("keydown",add)</script>
</body></html>`
}

// scriptedGen returns canned results: by model when mapped, else in
// call order.
type scriptedGen struct {
	mu       sync.Mutex
	byModel  map[string]string
	errModel map[string]error
	queue    []string
	errQueue []error
	calls    int
}

func (s *scriptedGen) Generate(_ context.Context, _ string, opts llm.GenerateOptions) (string, *llm.Meta, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++

	if err, ok := s.errModel[opts.Model]; ok {
		return "", nil, err
	}
	if html, ok := s.byModel[opts.Model]; ok {
		return html, &llm.Meta{Provider: opts.Model, ResolvedModel: opts.Model}, nil
	}
	idx := s.calls - 1
	if idx < len(s.errQueue) && s.errQueue[idx] != nil {
		return "", nil, s.errQueue[idx]
	}
	if idx < len(s.queue) {
		return s.queue[idx], &llm.Meta{Provider: "stub"}, nil
	}
	return "", nil, errors.New("script exhausted")
}

func newEngine(gen llm.Generator) *Engine {
	return NewEngine(gen, validate.New(), 2)
}

func TestBestOfNReturnsMax(t *testing.T) {
	gen := &scriptedGen{queue: []string{poorDoc, richDoc(), midDoc}}
	e := NewEngine(gen, validate.New(), 1) // sequential keeps the script order stable

	winner, candidates, err := e.BestOfN(context.Background(), "p", 3, llm.GenerateOptions{})
	require.NoError(t, err)
	assert.Len(t, candidates, 3)

	max := 0.0
	for _, c := range candidates {
		if c.Score.Total > max {
			max = c.Score.Total
		}
	}
	assert.Equal(t, max, winner.Score.Total)
}

func TestBestOfNTieGoesToEarliest(t *testing.T) {
	gen := &scriptedGen{queue: []string{midDoc, midDoc}}
	e := NewEngine(gen, validate.New(), 1)

	winner, candidates, err := e.BestOfN(context.Background(), "p", 2, llm.GenerateOptions{})
	require.NoError(t, err)
	assert.Equal(t, candidates[0].Score, winner.Score)
	assert.Equal(t, candidates[0].HTML, winner.HTML)
}

func TestBestOfNToleratesPartialFailure(t *testing.T) {
	gen := &scriptedGen{
		queue:    []string{"", midDoc},
		errQueue: []error{errors.New("provider down"), nil},
	}
	e := NewEngine(gen, validate.New(), 1)

	winner, _, err := e.BestOfN(context.Background(), "p", 2, llm.GenerateOptions{})
	require.NoError(t, err)
	assert.Equal(t, midDoc, winner.HTML)
}

func TestBestOfNAllFailed(t *testing.T) {
	gen := &scriptedGen{errQueue: []error{errors.New("a"), errors.New("b")}}
	e := NewEngine(gen, validate.New(), 1)

	_, _, err := e.BestOfN(context.Background(), "p", 2, llm.GenerateOptions{})
	assert.ErrorIs(t, err, ErrAllProvidersFailed)
}

func TestRefineAcceptsStrictImprovement(t *testing.T) {
	e := newEngine(&scriptedGen{queue: []string{richDoc()}})
	initial := e.Validate(poorDoc)

	html, score, rounds, err := e.Refine(context.Background(), "p", poorDoc, initial, RefineOptions{Threshold: 0.9, MaxRounds: 2})
	require.NoError(t, err)
	assert.Equal(t, 1, rounds)
	assert.Greater(t, score.Total, initial.Total)
	assert.NotEqual(t, poorDoc, html)
}

func TestRefineNeverReturnsWorse(t *testing.T) {
	// The "refinement" comes back worse; the input must survive.
	e := newEngine(&scriptedGen{queue: []string{poorDoc}})
	initial := e.Validate(midDoc)

	html, score, _, err := e.Refine(context.Background(), "p", midDoc, initial, RefineOptions{Threshold: 0.99, MaxRounds: 3})
	require.NoError(t, err)
	assert.Equal(t, midDoc, html)
	assert.Equal(t, initial.Total, score.Total)
}

func TestRefineStopsAtThreshold(t *testing.T) {
	e := newEngine(&scriptedGen{})
	initial := e.Validate(richDoc())

	_, _, rounds, err := e.Refine(context.Background(), "p", richDoc(), initial, RefineOptions{Threshold: 0.5, MaxRounds: 3})
	require.NoError(t, err)
	assert.Equal(t, 0, rounds)
}

func TestChainRecordsIterations(t *testing.T) {
	gen := &scriptedGen{queue: []string{poorDoc, richDoc()}}
	e := NewEngine(gen, validate.New(), 1)

	html, score, records, err := e.Chain(context.Background(), "p", ChainOptions{Threshold: 0.7, MaxRounds: 2})
	require.NoError(t, err)

	require.Len(t, records, 2)
	assert.Equal(t, 0, records[0].Iteration)
	assert.True(t, records[0].Improved)
	assert.Equal(t, 1, records[1].Iteration)
	assert.True(t, records[1].Improved)

	assert.GreaterOrEqual(t, score.Total, records[0].Score.Total)
	assert.NotEqual(t, poorDoc, html)
}

func TestChainFinalNeverBelowInitial(t *testing.T) {
	gen := &scriptedGen{queue: []string{midDoc, poorDoc, poorDoc}}
	e := NewEngine(gen, validate.New(), 1)

	_, score, _, err := e.Chain(context.Background(), "p", ChainOptions{Threshold: 0.99, MaxRounds: 3, Patience: 2})
	require.NoError(t, err)

	initial := e.Validate(midDoc)
	assert.GreaterOrEqual(t, score.Total, initial.Total)
}

func TestChainPatienceStopsEarly(t *testing.T) {
	gen := &scriptedGen{queue: []string{midDoc, poorDoc, poorDoc, poorDoc, poorDoc}}
	e := NewEngine(gen, validate.New(), 1)

	_, _, records, err := e.Chain(context.Background(), "p", ChainOptions{Threshold: 0.99, MaxRounds: 10, Patience: 2})
	require.NoError(t, err)
	// Initial + two stale refinement rounds.
	assert.Len(t, records, 3)
}

func TestABTestPicksHighestScore(t *testing.T) {
	gen := &scriptedGen{byModel: map[string]string{
		"p1": midDoc,
		"p2": richDoc(),
		"p3": poorDoc,
	}}
	e := newEngine(gen)

	result, err := e.ABTest(context.Background(), "p", []string{"p1", "p2", "p3"}, llm.GenerateOptions{})
	require.NoError(t, err)

	assert.Equal(t, "p2", result.Winner.Label)
	require.Len(t, result.Variants, 3)
	for i := 1; i < len(result.Variants); i++ {
		assert.GreaterOrEqual(t, result.Variants[i-1].Score.Total, result.Variants[i].Score.Total)
		assert.NotEmpty(t, result.Variants[i].Reason)
	}
}

func TestABTestOmitsFailedProviders(t *testing.T) {
	gen := &scriptedGen{
		byModel:  map[string]string{"ok": midDoc},
		errModel: map[string]error{"down": errors.New("502")},
	}
	e := newEngine(gen)

	result, err := e.ABTest(context.Background(), "p", []string{"down", "ok"}, llm.GenerateOptions{})
	require.NoError(t, err)
	assert.Len(t, result.Variants, 1)
	assert.Equal(t, "ok", result.Winner.Label)
}

func TestABTestAllProvidersFailed(t *testing.T) {
	gen := &scriptedGen{errModel: map[string]error{
		"a": errors.New("x"), "b": errors.New("y"),
	}}
	e := newEngine(gen)

	_, err := e.ABTest(context.Background(), "p", []string{"a", "b"}, llm.GenerateOptions{})
	assert.ErrorIs(t, err, ErrAllProvidersFailed)
}

func TestPromptDuel(t *testing.T) {
	gen := &scriptedGen{queue: []string{poorDoc, richDoc()}}
	e := NewEngine(gen, validate.New(), 1)

	result, err := e.PromptDuel(context.Background(), []string{"short", "long"}, llm.GenerateOptions{})
	require.NoError(t, err)
	assert.Equal(t, "variant-2", result.Winner.Label)
}

func TestFallbackTestUsesFallbackOnFailure(t *testing.T) {
	gen := &scriptedGen{
		byModel:  map[string]string{"backup": midDoc},
		errModel: map[string]error{"primary": errors.New("unreachable")},
	}
	e := newEngine(gen)

	v, err := e.FallbackTest(context.Background(), "p", "primary", "backup", 0.7, llm.GenerateOptions{})
	require.NoError(t, err)
	assert.Equal(t, "backup", v.Label)
}

func TestFallbackTestKeepsHigherOfTwo(t *testing.T) {
	gen := &scriptedGen{byModel: map[string]string{
		"primary": midDoc,
		"backup":  richDoc(),
	}}
	e := newEngine(gen)

	v, err := e.FallbackTest(context.Background(), "p", "primary", "backup", 0.95, llm.GenerateOptions{})
	require.NoError(t, err)
	assert.Equal(t, "backup", v.Label)
}

func TestFallbackTestSkipsFallbackAboveThreshold(t *testing.T) {
	gen := &scriptedGen{byModel: map[string]string{"primary": richDoc()}}
	e := newEngine(gen)

	v, err := e.FallbackTest(context.Background(), "p", "primary", "backup", 0.5, llm.GenerateOptions{})
	require.NoError(t, err)
	assert.Equal(t, "primary", v.Label)
	assert.Equal(t, 1, gen.calls)
}
