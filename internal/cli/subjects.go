package cli

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var leaderboardLimit int

// subjectsCmd lists tracked subjects
var subjectsCmd = &cobra.Command{
	Use:   "subjects",
	Short: "List tracked subjects",
	RunE:  runSubjects,
}

// leaderboardCmd ranks subjects by simulated profit
var leaderboardCmd = &cobra.Command{
	Use:   "leaderboard",
	Short: "Rank subjects by total simulated profit",
	Long: `Print the subject scorecard ordered by total simulated profit across
all settled positions. Metrics are derived aggregates; rerun 'resolve'
to rebuild them from the full claim and position history.`,
	RunE: runLeaderboard,
}

func init() {
	leaderboardCmd.Flags().IntVar(&leaderboardLimit, "limit", 20, "number of subjects to show")
	rootCmd.AddCommand(subjectsCmd)
	rootCmd.AddCommand(leaderboardCmd)
}

func runSubjects(cmd *cobra.Command, args []string) error {
	app, err := openApp()
	if err != nil {
		return err
	}
	defer app.close()

	subjects, err := app.store.ListSubjects(context.Background())
	if err != nil {
		return fmt.Errorf("list subjects: %w", err)
	}
	if len(subjects) == 0 {
		fmt.Println("No subjects tracked yet. Run 'trackrecord ingest' or 'trackrecord activate'.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "HANDLE\tNAME\tTITLE\tVERIFIED\tID")
	for _, s := range subjects {
		fmt.Fprintf(w, "%s\t%s\t%s\t%v\t%s\n", s.Handle, s.Name, s.Title, s.Verified, s.ID)
	}
	return w.Flush()
}

func runLeaderboard(cmd *cobra.Command, args []string) error {
	app, err := openApp()
	if err != nil {
		return err
	}
	defer app.close()
	ctx := context.Background()

	metrics, err := app.store.Leaderboard(ctx, leaderboardLimit)
	if err != nil {
		return fmt.Errorf("load leaderboard: %w", err)
	}
	if len(metrics) == 0 {
		fmt.Println("No metrics yet. Run 'trackrecord resolve' after some claims settle.")
		return nil
	}

	names := make(map[string]string)
	subjects, err := app.store.ListSubjects(ctx)
	if err != nil {
		return fmt.Errorf("list subjects: %w", err)
	}
	for _, s := range subjects {
		names[s.ID] = s.Name
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "RANK\tNAME\tCLAIMS\tRESOLVED\tWIN RATE\tTOTAL PNL\t30D\t90D\tAVG QUALITY")
	for _, m := range metrics {
		fmt.Fprintf(w, "%d\t%s\t%d\t%d\t%.0f%%\t%+.2f\t%+.2f\t%+.2f\t%.1f\n",
			m.Rank, names[m.SubjectID], m.TotalClaims, m.ResolvedClaims,
			m.WinRate*100, m.TotalPnL, m.Rolling30d, m.Rolling90d, m.AvgQuality)
	}
	return w.Flush()
}
