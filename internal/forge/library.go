package forge

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/gosuri/uitable"
	"github.com/spf13/cobra"

	"github.com/neurabytelabs/modus-forge/internal/grimoire"
	"github.com/neurabytelabs/modus-forge/internal/history"
	"github.com/neurabytelabs/modus-forge/internal/validate"
)

func newHistoryCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect past generation runs",
	}
	cmd.AddCommand(newHistoryListCommand(), newHistorySearchCommand(), newHistoryStatsCommand(), newHistoryShowCommand())
	return cmd
}

func newHistoryListCommand() *cobra.Command {
	var (
		provider string
		limit    int
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List runs, newest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			d, err := buildDeps(cmd)
			if err != nil {
				return err
			}
			entries, err := d.History.List(history.ListOptions{Provider: provider, Limit: limit})
			if err != nil {
				return err
			}
			printHistoryTable(cmd, entries)
			return nil
		},
	}
	cmd.Flags().StringVar(&provider, "provider", "", "Only runs from this provider.")
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum rows.")
	return cmd
}

func newHistorySearchCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "search <query>",
		Short: "Search runs by prompt text or tag",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := buildDeps(cmd)
			if err != nil {
				return err
			}
			entries, err := d.History.Search(args[0])
			if err != nil {
				return err
			}
			printHistoryTable(cmd, entries)
			return nil
		},
	}
}

func newHistoryShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Print a run's generated HTML",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := buildDeps(cmd)
			if err != nil {
				return err
			}
			code, err := d.History.GetCode(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), code)
			return nil
		},
	}
}

func newHistoryStatsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Aggregate run statistics",
		RunE: func(cmd *cobra.Command, _ []string) error {
			d, err := buildDeps(cmd)
			if err != nil {
				return err
			}
			stats, err := d.History.Stats()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "runs: %d\n", stats.Total)
			for provider, n := range stats.ByProvider {
				fmt.Fprintf(out, "  %-12s %d\n", provider, n)
			}
			for _, grade := range []validate.Grade{validate.GradeS, validate.GradeA, validate.GradeB, validate.GradeC, validate.GradeD} {
				if n := stats.ByGrade[grade]; n > 0 {
					fmt.Fprintf(out, "  grade %s: %d\n", grade, n)
				}
			}
			return nil
		},
	}
}

func printHistoryTable(cmd *cobra.Command, entries []history.Entry) {
	if len(entries) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "no runs recorded")
		return
	}
	table := uitable.New()
	table.MaxColWidth = 48
	table.AddRow("ID", "WHEN", "GRADE", "PROVIDER", "PROMPT")
	for _, e := range entries {
		table.AddRow(e.ID, e.At.Format("2006-01-02 15:04"), string(e.Grade), e.Provider, e.Prompt)
	}
	fmt.Fprintln(cmd.OutOrStdout(), table)
}

func newGrimoireCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "grimoire",
		Short: "Manage the curated prompt library",
	}
	cmd.AddCommand(newGrimoireListCommand(), newGrimoireSaveCommand(), newGrimoireFavoriteCommand())
	return cmd
}

func newGrimoireListCommand() *cobra.Command {
	var (
		query string
		tag   string
		limit int
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List or search spells",
		RunE: func(cmd *cobra.Command, _ []string) error {
			d, err := buildDeps(cmd)
			if err != nil {
				return err
			}
			entries, err := d.Grimoire.Search(grimoire.SearchOptions{Query: query, Tag: tag, Limit: limit})
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "the grimoire is empty")
				return nil
			}
			table := uitable.New()
			table.MaxColWidth = 56
			table.AddRow("ID", "FAV", "SCORE", "USED", "PROMPT")
			for _, e := range entries {
				fav := ""
				if e.Favorite {
					fav = color.YellowString("★")
				}
				table.AddRow(e.ID, fav, fmt.Sprintf("%.2f", e.Score), e.UsedCount, e.Prompt)
			}
			fmt.Fprintln(cmd.OutOrStdout(), table)
			return nil
		},
	}
	cmd.Flags().StringVarP(&query, "query", "q", "", "Free-text filter.")
	cmd.Flags().StringVar(&tag, "tag", "", "Tag filter.")
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum rows.")
	return cmd
}

func newGrimoireSaveCommand() *cobra.Command {
	var (
		tags     []string
		category string
	)
	cmd := &cobra.Command{
		Use:   "save <prompt>",
		Short: "Inscribe a prompt into the grimoire",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := buildDeps(cmd)
			if err != nil {
				return err
			}
			id, err := d.Grimoire.Inscribe(grimoire.Entry{
				Prompt:   strings.Join(args, " "),
				Tags:     tags,
				Category: category,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "inscribed %s\n", id)
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&tags, "tag", nil, "Tags for the spell.")
	cmd.Flags().StringVar(&category, "category", "", "Category for the spell.")
	return cmd
}

func newGrimoireFavoriteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "favorite <id>",
		Short: "Toggle a spell's favorite flag",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := buildDeps(cmd)
			if err != nil {
				return err
			}
			fav, err := d.Grimoire.ToggleFavorite(args[0])
			if err != nil {
				return err
			}
			if fav {
				fmt.Fprintln(cmd.OutOrStdout(), "★ favorited")
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), "unfavorited")
			}
			return nil
		},
	}
}
