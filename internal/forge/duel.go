package forge

import (
	"fmt"
	"strings"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/neurabytelabs/modus-forge/internal/enhance"
	"github.com/neurabytelabs/modus-forge/internal/llm"
	"github.com/neurabytelabs/modus-forge/internal/render"
	"github.com/neurabytelabs/modus-forge/internal/strategy"
)

func newDuelCommand() *cobra.Command {
	var (
		providers []string
		style     string
		output    string
	)

	cmd := &cobra.Command{
		Use:   "duel <intent>",
		Short: "Generate the same intent across providers and keep the winner",
		Example: heredoc.Doc(`
			forge duel "a habit tracker" --provider gemini --provider claude
			forge duel "a kanban board" --provider gemini --provider gpt --provider local
		`),
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(providers) < 2 {
				return &usageError{err: fmt.Errorf("duel needs at least two --provider values")}
			}
			d, err := buildDeps(cmd)
			if err != nil {
				return err
			}
			intent := strings.Join(args, " ")

			enhanceOpts := enhance.Options{Style: style}
			prompt := enhance.Enhance(intent, enhanceOpts)
			system := enhance.BuildSystemInstruction(enhanceOpts)

			result, err := d.Engine.ABTest(cmd.Context(), prompt, providers, llm.GenerateOptions{System: system})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for i, v := range result.Variants {
				marker := " "
				if i == 0 {
					marker = color.GreenString("★")
				}
				fmt.Fprintf(out, "%s %-12s grade %s  %s\n", marker, v.Label, v.Score.Grade, v.Reason)
			}

			dir := output
			if dir == "" {
				dir = d.Config.OutputDir
			}
			path, err := render.Write(dir, intent, result.Winner.HTML)
			if err != nil {
				return err
			}
			color.New(color.FgGreen, color.Bold).Fprintf(out, "✓ winner %s → %s\n", result.Winner.Label, path)
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&providers, "provider", nil, "Provider/model alias to enter into the duel (repeatable).")
	cmd.Flags().StringVarP(&style, "style", "s", "", "Style preset for all variants.")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output directory.")
	return cmd
}

func newEvolveCommand() *cobra.Command {
	var (
		model       string
		population  int
		generations int
		elite       int
		mutation    float64
		threshold   float64
		output      string
	)

	cmd := &cobra.Command{
		Use:   "evolve <intent>",
		Short: "Breed prompt variants genetically and keep the fittest app",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := buildDeps(cmd)
			if err != nil {
				return err
			}
			intent := strings.Join(args, " ")

			system := enhance.BuildSystemInstruction(enhance.Options{})
			result, err := d.Engine.Evolve(cmd.Context(), intent, strategy.EvolveOptions{
				PopulationSize: population,
				Generations:    generations,
				EliteCount:     elite,
				MutationRate:   mutation,
				Threshold:      threshold,
				Generate:       llm.GenerateOptions{Model: model, System: system},
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for i, best := range result.History {
				fmt.Fprintf(out, "gen %d  best %.2f (%s)\n", i, best.Fitness.Total, best.Fitness.Grade)
			}
			if result.Best.HTML == "" {
				return fmt.Errorf("evolution produced no usable document")
			}

			dir := output
			if dir == "" {
				dir = d.Config.OutputDir
			}
			path, err := render.Write(dir, intent, result.Best.HTML)
			if err != nil {
				return err
			}
			color.New(color.FgGreen, color.Bold).Fprintf(out, "✓ fittest after %d generation(s) → %s\n", result.Generations, path)
			return nil
		},
	}

	cmd.Flags().StringVarP(&model, "model", "m", "", "Model alias used for every evaluation.")
	cmd.Flags().IntVar(&population, "population", 4, "Population size.")
	cmd.Flags().IntVar(&generations, "generations", 3, "Maximum generations.")
	cmd.Flags().IntVar(&elite, "elite", 1, "Individuals that survive unchanged.")
	cmd.Flags().Float64Var(&mutation, "mutation-rate", 0.3, "Per-gene mutation probability.")
	cmd.Flags().Float64Var(&threshold, "threshold", 0.85, "Early-stop fitness threshold.")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output directory.")
	return cmd
}
