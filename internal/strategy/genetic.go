package strategy

import (
	"context"
	"math/rand"
	"regexp"
	"sort"
	"strings"

	"github.com/neurabytelabs/modus-forge/internal/llm"
	"github.com/neurabytelabs/modus-forge/internal/validate"
	"github.com/neurabytelabs/modus-forge/pkg/logger"
)

// Individual is one member of an evolving population. It lives only
// within a single Evolve call.
type Individual struct {
	Prompt     string          `json:"prompt"`
	HTML       string          `json:"-"`
	Fitness    *validate.Score `json:"fitness,omitempty"`
	Generation int             `json:"generation"`
}

// EvolveOptions tune genetic evolution.
type EvolveOptions struct {
	PopulationSize int
	Generations    int
	EliteCount     int
	MutationRate   float64
	Threshold      float64
	// Seed makes mutation and selection reproducible; zero seeds from
	// the default source.
	Seed     int64
	Generate llm.GenerateOptions
}

// EvolveResult is the outcome of an evolution run.
type EvolveResult struct {
	Best        Individual   `json:"best"`
	Generations int          `json:"generations"`
	History     []Individual `json:"history"`
}

const tournamentSize = 3

// mutations is the fixed list of textual gene mutations.
var mutations = []string{
	"Make it more visually striking.",
	"Add a small touch of motion or animation.",
	"Persist every piece of user state.",
	"Tighten the layout for small screens.",
	"Add one delightful micro-interaction.",
	"Use bolder, more confident typography.",
	"Surface a summary statistic prominently.",
	"Reduce visual noise; remove one element.",
}

var geneSplitRe = regexp.MustCompile(`[.!?\n]+`)

// splitGenes tokenizes a prompt into sentence genes. Genes shorter
// than five characters are dropped.
func splitGenes(prompt string) []string {
	raw := geneSplitRe.Split(prompt, -1)
	genes := make([]string, 0, len(raw))
	for _, g := range raw {
		g = strings.TrimSpace(g)
		if len(g) >= 5 {
			genes = append(genes, g)
		}
	}
	return genes
}

func joinGenes(genes []string) string {
	return strings.Join(genes, ". ")
}

// crossover performs single-point crossover on two parents' genes.
func crossover(rng *rand.Rand, a, b []string) []string {
	if len(a) == 0 {
		return append([]string(nil), b...)
	}
	if len(b) == 0 {
		return append([]string(nil), a...)
	}
	cutA := rng.Intn(len(a))
	cutB := rng.Intn(len(b))
	child := append([]string(nil), a[:cutA+1]...)
	return append(child, b[cutB:]...)
}

// mutate rewrites each gene with probability rate by appending a
// mutation directive.
func mutate(rng *rand.Rand, genes []string, rate float64) []string {
	out := make([]string, len(genes))
	for i, g := range genes {
		if rng.Float64() < rate {
			out[i] = g + " — " + mutations[rng.Intn(len(mutations))]
		} else {
			out[i] = g
		}
	}
	return out
}

// tournament picks the fittest of tournamentSize random individuals.
func tournament(rng *rand.Rand, population []Individual) Individual {
	best := population[rng.Intn(len(population))]
	for i := 1; i < tournamentSize; i++ {
		challenger := population[rng.Intn(len(population))]
		if fitnessOf(challenger) > fitnessOf(best) {
			best = challenger
		}
	}
	return best
}

func fitnessOf(ind Individual) float64 {
	if ind.Fitness == nil {
		return 0
	}
	return ind.Fitness.Total
}

// Evolve runs a genetic search over prompt space. The population is
// seeded with the base prompt unchanged plus mutated variants; each
// generation is evaluated in parallel (bounded), elites survive
// unchanged, and the remainder is bred by tournament selection,
// crossover and mutation. Evolution stops early once the best
// individual reaches the threshold.
func (e *Engine) Evolve(ctx context.Context, prompt string, opts EvolveOptions) (*EvolveResult, error) {
	if opts.PopulationSize < 2 {
		opts.PopulationSize = 4
	}
	if opts.Generations < 1 {
		opts.Generations = 3
	}
	if opts.EliteCount < 1 || opts.EliteCount >= opts.PopulationSize {
		opts.EliteCount = 1
	}
	if opts.MutationRate <= 0 {
		opts.MutationRate = 0.3
	}

	var rng *rand.Rand
	if opts.Seed != 0 {
		rng = rand.New(rand.NewSource(opts.Seed))
	} else {
		rng = rand.New(rand.NewSource(rand.Int63()))
	}

	// Seed: the base prompt unchanged plus N-1 mutated variants.
	population := make([]Individual, opts.PopulationSize)
	population[0] = Individual{Prompt: prompt}
	baseGenes := splitGenes(prompt)
	for i := 1; i < opts.PopulationSize; i++ {
		population[i] = Individual{Prompt: joinGenes(mutate(rng, baseGenes, opts.MutationRate))}
	}

	result := &EvolveResult{}
	for gen := 0; gen < opts.Generations; gen++ {
		if ctx.Err() != nil {
			break
		}

		// Evaluate unscored individuals in parallel.
		unscored := make([]int, 0, len(population))
		for i := range population {
			population[i].Generation = gen
			if population[i].Fitness == nil {
				unscored = append(unscored, i)
			}
		}
		candidates := e.parallelMap(ctx, len(unscored), func(ctx context.Context, i int) Candidate {
			return e.generate(ctx, population[unscored[i]].Prompt, opts.Generate)
		})
		for i, c := range candidates {
			idx := unscored[i]
			if c.Err != nil {
				// A failed evaluation scores zero and stays in the pool.
				population[idx].Fitness = &validate.Score{Grade: validate.GradeD}
				continue
			}
			population[idx].HTML = c.HTML
			score := c.Score
			population[idx].Fitness = &score
		}

		sort.SliceStable(population, func(i, j int) bool {
			return fitnessOf(population[i]) > fitnessOf(population[j])
		})

		result.Best = population[0]
		result.Generations = gen + 1
		result.History = append(result.History, population[0])
		logger.Debug("[Evolve] generation %d best %.2f", gen, fitnessOf(population[0]))

		if fitnessOf(population[0]) >= opts.Threshold && opts.Threshold > 0 {
			break
		}
		if gen == opts.Generations-1 {
			break
		}

		// Breed the next generation: elites survive, the rest are bred.
		next := make([]Individual, 0, opts.PopulationSize)
		next = append(next, population[:opts.EliteCount]...)
		for len(next) < opts.PopulationSize {
			p1 := tournament(rng, population)
			p2 := tournament(rng, population)
			childGenes := crossover(rng, splitGenes(p1.Prompt), splitGenes(p2.Prompt))
			childGenes = mutate(rng, childGenes, opts.MutationRate)
			next = append(next, Individual{Prompt: joinGenes(childGenes)})
		}
		population = next
	}

	return result, nil
}
