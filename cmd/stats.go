package cmd

import (
	"errors"
	"fmt"
	"io"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/sadopc/apomodoro/internal/export"
	"github.com/sadopc/apomodoro/internal/stats"
)

const reportWeeks = 4

var (
	statsDays    int
	resetYes     bool
	exportFormat string
	exportOut    string
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show pomodoro statistics",
	Args:  cobra.NoArgs,
	RunE:  runStats,
}

var statsResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Delete all recorded statistics",
	Args:  cobra.NoArgs,
	RunE:  runStatsReset,
}

var statsRepairCmd = &cobra.Command{
	Use:   "repair",
	Short: "Drop malformed statistics records",
	Args:  cobra.NoArgs,
	RunE:  runStatsRepair,
}

var statsExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export every recorded session",
	Args:  cobra.NoArgs,
	RunE:  runStatsExport,
}

func init() {
	statsCmd.Flags().IntVar(&statsDays, "days", 7, "number of days to list")
	statsResetCmd.Flags().BoolVarP(&resetYes, "yes", "y", false, "skip the confirmation prompt")
	statsExportCmd.Flags().StringVar(&exportFormat, "format", export.FormatCSV, "output format: csv, json")
	statsExportCmd.Flags().StringVar(&exportOut, "out", "-", "output file, - for stdout")

	statsCmd.AddCommand(statsResetCmd)
	statsCmd.AddCommand(statsRepairCmd)
	statsCmd.AddCommand(statsExportCmd)
}

// withStats opens the configured statistics store for the duration of fn.
func withStats(cmd *cobra.Command, fn func(stats.Store) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := cliLogger(cmd, cfg)
	if err != nil {
		return err
	}
	store, err := openStats(cfg, logger)
	if err != nil {
		return err
	}
	return errors.Join(fn(store), store.Close())
}

func runStats(cmd *cobra.Command, args []string) error {
	if statsDays < 1 {
		return errors.New("--days must be at least 1")
	}
	return withStats(cmd, func(store stats.Store) error {
		return printStats(cmd.OutOrStdout(), store, statsDays)
	})
}

func runStatsReset(cmd *cobra.Command, args []string) error {
	if !resetYes {
		confirmed := false
		err := huh.NewConfirm().
			Title("Reset all statistics?").
			Description("Every recorded pomodoro will be deleted.").
			Affirmative("Reset").
			Negative("Cancel").
			Value(&confirmed).
			Run()
		if err != nil {
			return err
		}
		if !confirmed {
			fmt.Fprintln(cmd.OutOrStdout(), "Cancelled.")
			return nil
		}
	}
	return withStats(cmd, func(store stats.Store) error {
		if err := store.ResetAll(); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Statistics reset.")
		return nil
	})
}

func runStatsRepair(cmd *cobra.Command, args []string) error {
	return withStats(cmd, func(store stats.Store) error {
		if err := store.Repair(); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Statistics repaired.")
		return nil
	})
}

func runStatsExport(cmd *cobra.Command, args []string) error {
	return withStats(cmd, func(store stats.Store) error {
		days, err := store.All()
		if err != nil {
			return err
		}
		sessions := export.Sessions(days)
		if exportOut == "" || exportOut == "-" {
			return export.Write(cmd.OutOrStdout(), exportFormat, sessions)
		}
		if err := export.ToFile(exportOut, exportFormat, sessions); err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Exported %d sessions to %s\n", len(sessions), exportOut)
		return nil
	})
}

func printStats(w io.Writer, store stats.Store, days int) error {
	sum, err := store.Summary()
	if err != nil {
		return err
	}
	daily, err := store.Days(days)
	if err != nil {
		return err
	}
	weeks, err := store.Weeks(reportWeeks)
	if err != nil {
		return err
	}
	general, err := store.General()
	if err != nil {
		return err
	}

	fmt.Fprintln(w, "Summary:")
	printTotals(w, "Today", sum.Today)
	printTotals(w, "Last 7 days", sum.Last7Days)
	printTotals(w, "This month", sum.ThisMonth)

	fmt.Fprintf(w, "\nLast %d days:\n", days)
	for _, d := range daily {
		marker := ""
		if d.IsToday {
			marker = "  (today)"
		}
		fmt.Fprintf(w, "  %s %s  %3d  %8s%s\n",
			d.Date.Format(stats.DayLayout), d.Date.Format("Mon"),
			d.Totals.CompletedPomodoros, formatWorkTime(d.Totals.TotalWorkTime), marker)
	}

	fmt.Fprintln(w, "\nWeeks:")
	if len(weeks) == 0 {
		fmt.Fprintln(w, "  (none)")
	}
	for _, wk := range weeks {
		fmt.Fprintf(w, "  %s  %3d  %8s  %d active days\n",
			wk.Week, wk.Totals.CompletedPomodoros, formatWorkTime(wk.Totals.TotalWorkTime), wk.ActiveDays)
	}

	fmt.Fprintln(w, "\nOverall:")
	fmt.Fprintf(w, "  Total pomodoros:  %d\n", general.TotalPomodoros)
	fmt.Fprintf(w, "  Total time:       %s\n", formatWorkTime(general.TotalTime))
	fmt.Fprintf(w, "  Active days:      %d\n", general.ActiveDays)
	fmt.Fprintf(w, "  Average per day:  %.1f\n", general.AvgPerDay)
	return nil
}

func printTotals(w io.Writer, label string, t stats.Totals) {
	fmt.Fprintf(w, "  %-12s %3d pomodoros  %8s\n", label, t.CompletedPomodoros, formatWorkTime(t.TotalWorkTime))
}

// formatWorkTime renders seconds as "1h 05m" or "25m".
func formatWorkTime(secs int) string {
	h := secs / 3600
	m := (secs % 3600) / 60
	if h == 0 {
		return fmt.Sprintf("%dm", m)
	}
	return fmt.Sprintf("%dh %02dm", h, m)
}
