package forge

import (
	"fmt"
	"os"
	"sort"

	"github.com/fatih/color"
	"github.com/gosuri/uitable"
	"github.com/spf13/cobra"

	"github.com/neurabytelabs/modus-forge/internal/migrate"
	"github.com/neurabytelabs/modus-forge/internal/sanitize"
)

func newSanitizeCommand() *cobra.Command {
	var (
		write        bool
		stripScripts bool
		stripStyles  bool
	)
	cmd := &cobra.Command{
		Use:   "sanitize <file.html>",
		Short: "Scan an HTML file and optionally rewrite dangerous patterns",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			setupLogging(cmd)
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}

			report := sanitize.Scan(string(data))
			out := cmd.OutOrStdout()
			if report.Safe {
				color.New(color.FgGreen).Fprintf(out, "safe: %d medium- or low-severity finding(s)\n", len(report.Issues))
			} else {
				color.New(color.FgRed, color.Bold).Fprintf(out, "unsafe: %d finding(s)\n", len(report.Issues))
			}
			for _, issue := range report.Issues {
				fmt.Fprintf(out, "  [%s] %-16s line %d  %s\n", issue.Severity, issue.Name, issue.Line, issue.Match)
			}

			if !write {
				return nil
			}
			cleaned, removed := sanitize.Sanitize(string(data), sanitize.Options{
				StripScripts: stripScripts,
				StripStyles:  stripStyles,
			})
			if err := os.WriteFile(args[0], []byte(cleaned), 0o644); err != nil {
				return err
			}
			fmt.Fprintf(out, "rewrote %s (%d rule(s) applied)\n", args[0], len(removed))
			return nil
		},
	}
	cmd.Flags().BoolVarP(&write, "write", "w", false, "Rewrite the file in place.")
	cmd.Flags().BoolVar(&stripScripts, "strip-scripts", false, "Also strip <script> blocks.")
	cmd.Flags().BoolVar(&stripStyles, "strip-styles", false, "Also strip inline style attributes.")
	return cmd
}

func newPluginsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plugins",
		Short: "List, enable or disable plugins",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "Show plugin load state",
		RunE: func(cmd *cobra.Command, _ []string) error {
			d, err := buildDeps(cmd)
			if err != nil {
				return err
			}
			table := uitable.New()
			table.AddRow("ID", "STATE", "DETAIL")
			for _, report := range d.Plugins.Reports() {
				state := color.GreenString("enabled")
				if !report.Enabled {
					state = color.YellowString("disabled")
				}
				table.AddRow(report.ID, state, report.Error)
			}
			fmt.Fprintln(cmd.OutOrStdout(), table)
			return nil
		},
	}

	enable := &cobra.Command{
		Use:   "enable <id>",
		Short: "Enable a plugin",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := buildDeps(cmd)
			if err != nil {
				return err
			}
			if err := d.Plugins.Enable(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "enabled %s\n", args[0])
			return nil
		},
	}

	disable := &cobra.Command{
		Use:   "disable <id>",
		Short: "Disable a plugin",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := buildDeps(cmd)
			if err != nil {
				return err
			}
			if err := d.Plugins.Disable(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "disabled %s\n", args[0])
			return nil
		},
	}

	cmd.AddCommand(list, enable, disable)
	return cmd
}

func newMigrateCommand() *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "migrate [workspace-root]",
		Short: "Apply pending workspace migrations",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			setupLogging(cmd)
			root := "."
			if len(args) == 1 {
				root = args[0]
			}
			runner := migrate.NewRunner(root, migrate.Defaults)

			applied, err := runner.Upgrade(dryRun)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(applied) == 0 {
				fmt.Fprintln(out, "nothing to do")
				return nil
			}
			for _, a := range applied {
				fmt.Fprintf(out, "%s  %s (%s)\n", a.Version, a.Description, a.Result)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Show the plan without writing anything.")
	return cmd
}

func newModelsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List providers, models and availability",
		RunE: func(cmd *cobra.Command, _ []string) error {
			d, err := buildDeps(cmd)
			if err != nil {
				return err
			}
			available := d.Router.Available()
			models := d.Router.Models()

			providers := make([]string, 0, len(models))
			for name := range models {
				providers = append(providers, name)
			}
			sort.Strings(providers)

			table := uitable.New()
			table.AddRow("PROVIDER", "STATE", "MODEL", "CONTEXT")
			for _, name := range providers {
				state := color.GreenString("ready")
				if !available[name] {
					state = color.RedString("no key")
				}
				for _, m := range models[name] {
					table.AddRow(name, state, m.ID, m.ContextWindow)
				}
			}
			fmt.Fprintln(cmd.OutOrStdout(), table)
			return nil
		},
	}
}
