package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/example/retype/internal/stats"
)

var (
	statsWeek    int
	statsRefresh bool
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show today's, total and weekly word counts",
	RunE:  runStats,
}

func init() {
	statsCmd.Flags().IntVar(&statsWeek, "week", 0, "Week offset, 0 for the current week and -1 for the previous one")
	statsCmd.Flags().BoolVar(&statsRefresh, "refresh", false, "Bypass cached values")
}

var weekdays = []string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"}

func runStats(cmd *cobra.Command, args []string) error {
	if statsWeek > 0 {
		return fmt.Errorf("--week must be 0 or negative")
	}
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.Close()

	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	snap := s.Stats.Snapshot(ctx, statsRefresh)
	fmt.Fprintf(out, "Today: %d words\n", snap.Today)
	fmt.Fprintf(out, "Total: %d words\n\n", snap.Total)

	week, err := s.Stats.Weekly(ctx, statsWeek, statsRefresh)
	if err != nil {
		return err
	}
	printWeek(cmd, week)
	return nil
}

func printWeek(cmd *cobra.Command, week stats.Week) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Week %s .. %s", week.Start, week.End)
	if week.LocalOnly {
		fmt.Fprint(out, " (offline, local counts only)")
	}
	fmt.Fprintln(out)

	for i, d := range week.Days {
		marker := " "
		if i == week.MostProductiveDay {
			marker = "*"
		}
		bar := strings.Repeat("#", week.Scores[i]/5)
		fmt.Fprintf(out, "%s %s %s %6d %s\n", marker, weekdays[i], d.Date, d.Words, bar)
	}
	fmt.Fprintf(out, "\nWeek total: %d words, streak: %d days\n", week.Total, week.Streak)
}
