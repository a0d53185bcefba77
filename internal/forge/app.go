// Package forge assembles the forge CLI: the command tree, the shared
// dependency container and the process exit-code policy.
package forge

import (
	"errors"
	"fmt"
	"os"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/spf13/cobra"

	"github.com/neurabytelabs/modus-forge/internal/llm"
	"github.com/neurabytelabs/modus-forge/internal/strategy"
	"github.com/neurabytelabs/modus-forge/pkg/logger"
)

// Exit codes.
const (
	ExitOK         = 0
	ExitGeneration = 1
	ExitUsage      = 2
	ExitProvider   = 3
)

// usageError marks argument-parsing failures so Run can exit 2.
type usageError struct{ err error }

func (e *usageError) Error() string { return e.err.Error() }

func (e *usageError) Unwrap() error { return e.err }

// NewRootCommand builds the forge command tree.
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "forge",
		Short: "Turn a one-line intent into a complete HTML application",
		Long: heredoc.Doc(`
			modus-forge orchestrates LLM providers into a generation
			pipeline: ambient context, prompt enhancement, quality
			scoring, iterative refinement and a local API surface.
		`),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &usageError{err: err}
	})

	root.PersistentFlags().String("config-dir", "", "Project directory holding .forgerc.json (default: cwd).")
	root.PersistentFlags().String("log-level", "info", "Log level: debug, info, warn, error.")

	root.AddCommand(
		newGenerateCommand(),
		newServeCommand(),
		newWatchCommand(),
		newDuelCommand(),
		newEvolveCommand(),
		newHistoryCommand(),
		newGrimoireCommand(),
		newValidateCommand(),
		newSanitizeCommand(),
		newPluginsCommand(),
		newMigrateCommand(),
		newModelsCommand(),
	)
	return root
}

// Run executes the CLI and returns the process exit code.
func Run() int {
	root := NewRootCommand()
	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return exitCodeFor(err)
	}
	return ExitOK
}

func exitCodeFor(err error) int {
	var usage *usageError
	switch {
	case errors.As(err, &usage):
		return ExitUsage
	case errors.Is(err, llm.ErrProviderUnavailable),
		errors.Is(err, strategy.ErrAllProvidersFailed):
		return ExitProvider
	default:
		return ExitGeneration
	}
}

func setupLogging(cmd *cobra.Command) {
	if level, err := cmd.Flags().GetString("log-level"); err == nil {
		logger.SetLevel(level)
	}
}
