package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/aurora-qa/internal/cache"
	"github.com/sells-group/aurora-qa/internal/config"
	"github.com/sells-group/aurora-qa/internal/model"
)

// fetchSummary is what `fetch` reports after one population.
type fetchSummary struct {
	Messages    int             `json:"messages" yaml:"messages"`
	Users       int             `json:"users" yaml:"users"`
	Elapsed     string          `json:"elapsed" yaml:"elapsed"`
	LastFetched *time.Time      `json:"last_fetched,omitempty" yaml:"last_fetched,omitempty"`
	Matches     []model.Message `json:"matches,omitempty" yaml:"matches,omitempty"`
}

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Fetch every message from the upstream API and report what was loaded",
	Long:  "Runs one full paginated fetch, records it in the fetch-run history, and optionally lists the messages of one user or matching a search term.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		format, _ := cmd.Flags().GetString("output")
		user, _ := cmd.Flags().GetString("user")
		userID, _ := cmd.Flags().GetString("user-id")
		search, _ := cmd.Flags().GetString("search")

		env, err := initApp(ctx, config.ModeFetch)
		if err != nil {
			return err
		}
		defer env.Close()

		start := time.Now()
		msgs, err := env.Cache.Populate(ctx)
		if err != nil {
			return eris.Wrap(err, "fetch")
		}

		summary := summarize(env.Cache, msgs, time.Since(start))
		switch {
		case user != "":
			summary.Matches = env.Cache.ByUserName(user)
		case userID != "":
			summary.Matches = env.Cache.ByUserID(userID)
		case search != "":
			summary.Matches = env.Cache.Search(search)
		}

		if format == outputText {
			formatFetchSummary(os.Stdout, summary)
			return nil
		}
		return writeStructured(os.Stdout, format, summary)
	},
}

func summarize(c *cache.Cache, msgs []model.Message, elapsed time.Duration) fetchSummary {
	users := make(map[string]struct{})
	for _, m := range msgs {
		users[m.UserID] = struct{}{}
	}
	return fetchSummary{
		Messages:    len(msgs),
		Users:       len(users),
		Elapsed:     elapsed.Round(time.Millisecond).String(),
		LastFetched: c.Stats().LastFetched,
	}
}

// formatFetchSummary writes a human-readable summary to out.
func formatFetchSummary(out io.Writer, s fetchSummary) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Messages:\t%d\n", s.Messages)
	_, _ = fmt.Fprintf(w, "Users:\t%d\n", s.Users)
	_, _ = fmt.Fprintf(w, "Elapsed:\t%s\n", s.Elapsed)
	_ = w.Flush()

	if len(s.Matches) == 0 {
		return
	}
	_, _ = fmt.Fprintln(out)
	w = tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "USER\tTIMESTAMP\tMESSAGE")
	for _, m := range s.Matches {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\n", m.UserName, m.Timestamp, truncate(m.Message, 80))
	}
	_ = w.Flush()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

func init() {
	fetchCmd.Flags().StringP("output", "o", outputText, "output format: text, yaml or json")
	fetchCmd.Flags().String("user", "", "list messages whose user name contains this text")
	fetchCmd.Flags().String("user-id", "", "list messages with exactly this user id")
	fetchCmd.Flags().String("search", "", "list messages whose text contains this term")
	fetchCmd.MarkFlagsMutuallyExclusive("user", "user-id", "search")
	rootCmd.AddCommand(fetchCmd)
}
