package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nao1215/pluginlinks/internal/config"
	"github.com/nao1215/pluginlinks/internal/database"
	"github.com/nao1215/pluginlinks/internal/model"
	"github.com/nao1215/pluginlinks/internal/report"
)

const defaultHistoryLimit = 20

// NewHistoryCmd creates the history command.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [page-url]",
		Short: "Show recorded enhancement passes",
		Long: `History lists recent enhancement passes from the run history database,
newest first. Give a page URL to see only the passes for that page.

Examples:
  # Last 20 passes
  pluginlinks history

  # All passes for one page as JSON
  pluginlinks history --limit 0 --json http://localhost:9999/settings

  # Pages with recorded passes
  pluginlinks history --pages`,
		Args: cobra.MaximumNArgs(1),
		RunE: runHistoryCmd,
	}

	cmd.Flags().IntP("limit", "n", defaultHistoryLimit,
		"Maximum number of runs to show (0 = all)")
	cmd.Flags().Bool("pages", false,
		"List the pages that have recorded runs")
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown (mutually exclusive with --json)")
	cmd.Flags().String("db-dir", "",
		"Run history directory (default: XDG data directory)")

	return cmd
}

func runHistoryCmd(cmd *cobra.Command, args []string) error {
	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return err
	}
	listPages, err := cmd.Flags().GetBool("pages")
	if err != nil {
		return err
	}
	jsonOut, err := cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}
	markdownOut, err := cmd.Flags().GetBool("markdown")
	if err != nil {
		return err
	}
	dbDir, err := cmd.Flags().GetString("db-dir")
	if err != nil {
		return err
	}
	if jsonOut && markdownOut {
		return fmt.Errorf("configuration error: %w", config.ErrConflictingReportFormats)
	}
	if dbDir == "" {
		dbDir = config.XDGDataDir()
	}

	format := report.FormatText
	switch {
	case jsonOut:
		format = report.FormatJSON
	case markdownOut:
		format = report.FormatMarkdown
	}
	out := cmd.OutOrStdout()

	db, err := database.Open(dbDir, database.Options{CreateIfNotExists: false})
	if errors.Is(err, database.ErrNotFound) {
		if listPages {
			fmt.Fprintln(out, "No runs recorded.")
			return nil
		}
		w, werr := report.New(format, out)
		if werr != nil {
			return werr
		}
		_, werr = w.WriteRuns([]model.Run{})
		return werr
	}
	if err != nil {
		return fmt.Errorf("failed to open run history: %w", err)
	}
	defer db.Close()

	ctx := cmd.Context()

	if listPages {
		pages, err := db.ListPages(ctx)
		if err != nil {
			return err
		}
		if len(pages) == 0 {
			fmt.Fprintln(out, "No runs recorded.")
			return nil
		}
		for _, p := range pages {
			fmt.Fprintln(out, p)
		}
		return nil
	}

	var pageURL string
	if len(args) == 1 {
		pageURL = args[0]
	}

	runs, err := db.ListRuns(ctx, pageURL, limit)
	if err != nil {
		return err
	}

	w, err := report.New(format, out)
	if err != nil {
		return err
	}
	_, err = w.WriteRuns(runs)
	return err
}
