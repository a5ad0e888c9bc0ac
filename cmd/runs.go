package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/aurora-qa/internal/config"
	"github.com/sells-group/aurora-qa/internal/model"
	"github.com/sells-group/aurora-qa/internal/store"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect cache fetch-run history",
	Long:  "Commands for listing, viewing, and summarizing recorded cache population attempts.",
}

// openRunStore validates the config for history access and opens the store.
func openRunStore(ctx context.Context) (store.Store, error) {
	if err := cfg.Validate(config.ModeRuns); err != nil {
		return nil, err
	}
	return initStore(ctx)
}

// -- runs list --

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent fetch runs, newest first",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := openRunStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		limit, _ := cmd.Flags().GetInt("limit")
		runs, err := st.ListFetchRuns(ctx, limit)
		if err != nil {
			return eris.Wrap(err, "runs list")
		}

		if len(runs) == 0 {
			fmt.Fprintln(os.Stderr, "No fetch runs found.")
			return nil
		}

		formatRunsList(os.Stdout, runs)
		return nil
	},
}

// -- runs show --

var runsShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show full details of a fetch run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		format, _ := cmd.Flags().GetString("output")

		st, err := openRunStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		run, err := st.GetFetchRun(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "runs show")
		}
		return writeStructured(os.Stdout, format, run)
	},
}

// -- runs stats --

var runsStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show aggregate fetch-run statistics",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := openRunStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		since, _ := cmd.Flags().GetDuration("since")
		runs, err := st.ListFetchRuns(ctx, store.MaxListLimit)
		if err != nil {
			return eris.Wrap(err, "runs stats")
		}

		var cutoff time.Time
		if since > 0 {
			cutoff = time.Now().Add(-since)
		}
		formatRunStats(os.Stdout, computeRunStats(runs, cutoff))
		return nil
	},
}

func init() {
	runsListCmd.Flags().Int("limit", store.DefaultListLimit, "max number of runs to display")
	runsShowCmd.Flags().StringP("output", "o", outputYAML, "output format: yaml or json")
	runsStatsCmd.Flags().Duration("since", 24*time.Hour, "time window for stats (e.g. 24h, 72h, 168h); 0 for all history")

	runsCmd.AddCommand(runsListCmd)
	runsCmd.AddCommand(runsShowCmd)
	runsCmd.AddCommand(runsStatsCmd)
	rootCmd.AddCommand(runsCmd)
}

// runStats holds aggregate statistics computed from a set of fetch runs.
type runStats struct {
	Total       int
	Complete    int
	Partial     int
	Failed      int
	AvgDurSecs  float64
	AvgMessages float64
}

// computeRunStats aggregates runs started at or after cutoff. A zero cutoff
// includes every run.
func computeRunStats(runs []model.FetchRun, cutoff time.Time) runStats {
	var s runStats

	var totalDur time.Duration
	var totalMsgs, okCount int

	for _, r := range runs {
		if !cutoff.IsZero() && r.StartedAt.Before(cutoff) {
			continue
		}
		s.Total++
		switch r.Outcome {
		case model.FetchOutcomeComplete:
			s.Complete++
		case model.FetchOutcomePartial:
			s.Partial++
		default:
			s.Failed++
			continue
		}
		totalDur += r.Duration()
		totalMsgs += r.MessageCount
		okCount++
	}

	if okCount > 0 {
		s.AvgDurSecs = totalDur.Seconds() / float64(okCount)
		s.AvgMessages = float64(totalMsgs) / float64(okCount)
	}
	return s
}

// formatRunsList writes a tabular list of fetch runs to w.
func formatRunsList(out io.Writer, runs []model.FetchRun) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tOUTCOME\tPAGES\tMESSAGES\tTOTAL\tSTARTED\tDURATION\tERROR")
	_, _ = fmt.Fprintln(w, "--\t-------\t-----\t--------\t-----\t-------\t--------\t-----")

	for _, r := range runs {
		errMsg := r.Error
		if len(errMsg) > 40 {
			errMsg = errMsg[:37] + "..."
		}

		_, _ = fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\t%s\t%s\t%s\n",
			truncateID(r.ID),
			r.Outcome,
			r.Pages,
			r.MessageCount,
			r.Total,
			r.StartedAt.Format("2006-01-02 15:04"),
			r.Duration().Round(time.Millisecond).String(),
			errMsg,
		)
	}
	_ = w.Flush()
}

// formatRunStats writes aggregate stats to w.
func formatRunStats(out io.Writer, s runStats) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Total runs:\t%d\n", s.Total)
	_, _ = fmt.Fprintf(w, "Complete:\t%d\n", s.Complete)
	_, _ = fmt.Fprintf(w, "Partial:\t%d\n", s.Partial)
	_, _ = fmt.Fprintf(w, "Failed:\t%d\n", s.Failed)
	if s.AvgDurSecs > 0 {
		_, _ = fmt.Fprintf(w, "Avg duration:\t%.1fs\n", s.AvgDurSecs)
	}
	if s.AvgMessages > 0 {
		_, _ = fmt.Fprintf(w, "Avg messages:\t%.0f\n", s.AvgMessages)
	}
	_ = w.Flush()
}

// truncateID returns the first 8 characters of a UUID for compact display.
func truncateID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
