package strategy

import (
	"context"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neurabytelabs/modus-forge/internal/llm"
	"github.com/neurabytelabs/modus-forge/internal/validate"
)

func TestSplitGenesDropsShortTokens(t *testing.T) {
	genes := splitGenes("Track runs. Go! A log of every session, daily.\nShow a chart")
	assert.Equal(t, []string{"Track runs", "A log of every session, daily", "Show a chart"}, genes)
}

func TestCrossoverCombinesParents(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	a := []string{"alpha gene", "beta gene"}
	b := []string{"gamma gene", "delta gene"}

	child := crossover(rng, a, b)
	assert.NotEmpty(t, child)
	// The head comes from a, the tail from b.
	assert.Contains(t, a, child[0])
	assert.Contains(t, b, child[len(child)-1])
}

func TestCrossoverHandlesEmptyParent(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	assert.Equal(t, []string{"only gene"}, crossover(rng, nil, []string{"only gene"}))
	assert.Equal(t, []string{"only gene"}, crossover(rng, []string{"only gene"}, nil))
}

func TestMutateIsSeedDeterministic(t *testing.T) {
	genes := []string{"first gene here", "second gene here", "third gene here"}
	a := mutate(rand.New(rand.NewSource(42)), genes, 0.5)
	b := mutate(rand.New(rand.NewSource(42)), genes, 0.5)
	assert.Equal(t, a, b)
}

func TestMutateRateZeroChangesNothing(t *testing.T) {
	genes := []string{"first gene here", "second gene here"}
	assert.Equal(t, genes, mutate(rand.New(rand.NewSource(1)), genes, 0))
}

func TestEvolveImprovesOverGenerations(t *testing.T) {
	// The script returns progressively better documents, so later
	// generations must not regress below earlier bests.
	gen := &scriptedGen{queue: []string{
		poorDoc, poorDoc, poorDoc, poorDoc,
		midDoc, midDoc, midDoc,
		richDoc(), richDoc(), richDoc(),
		richDoc(), richDoc(), richDoc(), richDoc(), richDoc(), richDoc(),
	}}
	e := NewEngine(gen, validate.New(), 1)

	result, err := e.Evolve(context.Background(), "Track my cardio. Show weekly charts. Persist everything locally.", EvolveOptions{
		PopulationSize: 4,
		Generations:    3,
		EliteCount:     1,
		MutationRate:   0.5,
		Threshold:      0.99,
		Seed:           42,
	})
	require.NoError(t, err)

	require.NotEmpty(t, result.History)
	for i := 1; i < len(result.History); i++ {
		assert.GreaterOrEqual(t, fitnessOf(result.History[i]), fitnessOf(result.History[i-1]),
			"elites keep the best fitness monotone")
	}
	assert.Equal(t, fitnessOf(result.History[len(result.History)-1]), fitnessOf(result.Best))
}

func TestEvolveStopsAtThreshold(t *testing.T) {
	gen := &scriptedGen{queue: []string{richDoc(), richDoc(), richDoc(), richDoc()}}
	e := NewEngine(gen, validate.New(), 1)

	result, err := e.Evolve(context.Background(), "Build a tracker. Make it lovely.", EvolveOptions{
		PopulationSize: 4,
		Generations:    5,
		Threshold:      0.5,
		Seed:           1,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Generations)
	assert.GreaterOrEqual(t, fitnessOf(result.Best), 0.5)
}

func TestEvolveSurvivesFailedEvaluations(t *testing.T) {
	gen := &scriptedGen{
		queue:    []string{midDoc, "", midDoc, midDoc},
		errQueue: []error{nil, assert.AnError, nil, nil},
	}
	e := NewEngine(gen, validate.New(), 1)

	result, err := e.Evolve(context.Background(), "Build a tracker. Keep it simple.", EvolveOptions{
		PopulationSize: 4,
		Generations:    1,
		Seed:           1,
		Threshold:      0.99,
	})
	require.NoError(t, err)
	assert.NotNil(t, result.Best.Fitness)
	assert.Greater(t, fitnessOf(result.Best), 0.0)
}

func TestEngineTreatsFailureAsZeroScore(t *testing.T) {
	e := NewEngine(&scriptedGen{errQueue: []error{assert.AnError}}, validate.New(), 1)
	c := e.generate(context.Background(), "p", llm.GenerateOptions{})
	assert.Error(t, c.Err)
	assert.Zero(t, c.Score.Total)
}
