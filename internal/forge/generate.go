package forge

import (
	"fmt"
	"os"
	"strings"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/fatih/color"
	"github.com/mitchellh/go-wordwrap"
	"github.com/spf13/cobra"

	"github.com/neurabytelabs/modus-forge/internal/llm"
	"github.com/neurabytelabs/modus-forge/internal/pipeline"
	"github.com/neurabytelabs/modus-forge/internal/render"
	"github.com/neurabytelabs/modus-forge/internal/validate"
	"github.com/neurabytelabs/modus-forge/internal/workspace"
	"github.com/neurabytelabs/modus-forge/pkg/logger"
)

func newGenerateCommand() *cobra.Command {
	var (
		model    string
		style    string
		language string
		persona  string
		theme    string
		iterate  bool
		strict   bool
		inscribe bool
		stream   bool
		output   string
		tags     []string
	)

	cmd := &cobra.Command{
		Use:   "generate <intent>",
		Short: "Generate an HTML application from an intent",
		Example: heredoc.Doc(`
			forge generate "track my cardio for 8 weeks"
			forge generate "a pomodoro timer" --style terminal --iterate
			forge generate "shopping list" --model claude --stream
		`),
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := buildDeps(cmd)
			if err != nil {
				return err
			}
			intent := strings.Join(args, " ")

			opts := pipeline.RunOptions{
				Model:    model,
				Style:    style,
				Language: language,
				Persona:  persona,
				Theme:    theme,
				Iterate:  iterate,
				Inscribe: inscribe,
				Tags:     tags,
				Stream:   stream,
			}
			if stream {
				opts.Sink = llm.ChunkFunc(func(chunk string) {
					fmt.Fprint(cmd.OutOrStdout(), chunk)
				})
			}

			result, err := d.Pipeline.Run(cmd.Context(), intent, opts)
			if err != nil {
				return err
			}
			if stream {
				fmt.Fprintln(cmd.OutOrStdout())
			}

			if strict && result.Score.Grade != validate.GradeS && result.Score.Grade != validate.GradeA {
				return fmt.Errorf("strict mode: grade %s below A", result.Score.Grade)
			}

			dir := output
			if dir == "" {
				dir = d.Config.OutputDir
			}
			path, err := render.Write(dir, intent, result.HTML)
			if err != nil {
				return err
			}

			if err := d.Profile.Observe(opts.Style, tags); err != nil {
				logger.Debug("[Forge] profile observe: %v", err)
			}
			versions := workspace.NewVersionStore(d.Config.DataDir)
			if err := versions.Append(render.Slug(intent), workspace.Version{
				Hash:     llm.HashPrompt(result.EnhancedPrompt),
				Enhanced: result.EnhancedPrompt,
				Model:    result.Model,
				Score:    result.Score.Total,
			}); err != nil {
				logger.Debug("[Forge] version snapshot: %v", err)
			}

			printScore(cmd, result)
			color.New(color.FgGreen, color.Bold).Fprintf(cmd.OutOrStdout(), "✓ wrote %s\n", path)
			return nil
		},
	}

	cmd.Flags().StringVarP(&model, "model", "m", "", "Model alias or id (gemini, claude, gpt, local, ...).")
	cmd.Flags().StringVarP(&style, "style", "s", "", "Style preset: cyberpunk, minimal or terminal.")
	cmd.Flags().StringVar(&language, "language", "", "UI copy language.")
	cmd.Flags().StringVar(&persona, "persona", "", "Voice the generated app speaks with.")
	cmd.Flags().StringVar(&theme, "theme", "", "Color scheme preference.")
	cmd.Flags().BoolVar(&iterate, "iterate", false, "Refine below-threshold results iteratively.")
	cmd.Flags().BoolVar(&strict, "strict", false, "Exit non-zero unless the result grades S or A.")
	cmd.Flags().BoolVar(&inscribe, "inscribe", false, "Save the prompt into the grimoire.")
	cmd.Flags().BoolVar(&stream, "stream", false, "Stream generation output to the terminal.")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output directory (default from config).")
	cmd.Flags().StringSliceVar(&tags, "tag", nil, "Tags recorded with the run.")
	return cmd
}

func printScore(cmd *cobra.Command, result *pipeline.Result) {
	out := cmd.OutOrStdout()
	score := result.Score

	gradeColor := color.New(color.FgGreen, color.Bold)
	switch score.Grade {
	case validate.GradeC:
		gradeColor = color.New(color.FgYellow, color.Bold)
	case validate.GradeD:
		gradeColor = color.New(color.FgRed, color.Bold)
	}

	fmt.Fprintf(out, "\n%s  total %.2f  (conatus %.2f · ratio %.2f · laetitia %.2f · natura %.2f)\n",
		gradeColor.Sprintf("grade %s", score.Grade),
		score.Total, score.Conatus, score.Ratio, score.Laetitia, score.Natura)

	if result.Provider != "" {
		fmt.Fprintf(out, "model %s/%s · %d iteration(s) · %dms\n",
			result.Provider, result.Model, len(result.Iterations), result.DurationMs)
	}
	if len(score.Issues) > 0 {
		issues := "missing: " + strings.Join(score.Issues, ", ")
		fmt.Fprintln(out, wordwrap.WrapString(issues, 78))
	}
	if len(result.Removed) > 0 {
		color.New(color.FgYellow).Fprintf(out, "sanitized: %s\n", strings.Join(result.Removed, ", "))
	}
}

func newValidateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <file.html>",
		Short: "Score an HTML file against the quality rubric",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			setupLogging(cmd)
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			score := validate.New().Validate(string(data))
			printScore(cmd, &pipeline.Result{Score: score})
			return nil
		},
	}
	return cmd
}
