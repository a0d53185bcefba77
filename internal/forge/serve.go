package forge

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/spf13/cobra"

	"github.com/neurabytelabs/modus-forge/internal/server"
	"github.com/neurabytelabs/modus-forge/internal/server/handler"
)

func newServeCommand() *cobra.Command {
	var (
		port  int
		token string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the REST + SSE API server",
		Long: heredoc.Doc(`
			Serves the generation pipeline over HTTP: /api/generate,
			/api/validate, grimoire and history endpoints, and an SSE
			progress feed on /api/progress.
		`),
		RunE: func(cmd *cobra.Command, _ []string) error {
			d, err := buildDeps(cmd)
			if err != nil {
				return err
			}
			if port > 0 {
				d.Config.Server.BindPort = port
			}
			if token != "" {
				d.Config.Server.AuthToken = token
			}

			h := handler.New()
			h.Pipeline = d.Pipeline
			h.Router = d.Router
			h.Validator = d.Validator
			h.History = d.History
			h.Grimoire = d.Grimoire

			cfg := &server.Config{
				Options:  d.Config.Server,
				Handler:  h,
				Progress: d.Progress,
			}
			srv := cfg.Complete().New()

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return srv.Run(ctx)
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 0, "Override the configured listen port.")
	cmd.Flags().StringVar(&token, "token", "", "Require this bearer token on API endpoints.")
	return cmd
}

func newWatchCommand() *cobra.Command {
	var (
		debounceMs int
		port       int
		model      string
		style      string
	)

	cmd := &cobra.Command{
		Use:   "watch <file-or-dir>",
		Short: "Regenerate on prompt-file changes and live-preview the result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := buildDeps(cmd)
			if err != nil {
				return err
			}

			opts := watchOptions(d, args[0], debounceMs, port, model, style)
			w := newPipelineWatcher(d, opts)

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			err = w.Run(ctx)
			if err == context.Canceled {
				return nil
			}
			return err
		},
	}

	cmd.Flags().IntVar(&debounceMs, "debounce-ms", 0, "Debounce interval (default from config).")
	cmd.Flags().IntVar(&port, "port", 0, "Dashboard port (default from config).")
	cmd.Flags().StringVarP(&model, "model", "m", "", "Model alias for regenerations.")
	cmd.Flags().StringVarP(&style, "style", "s", "", "Style preset for regenerations.")
	return cmd
}
