package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ppiankov/trackrecord/internal/model"
)

var (
	resolveOutcome string
	resolveNotes   string
)

// resolveCmd checks unresolved claims against their matched markets
var resolveCmd = &cobra.Command{
	Use:   "resolve [claim-id]",
	Short: "Run one resolution cycle, or resolve a single claim manually",
	Long: `Without arguments, check every unresolved claim whose deadline has
passed against its matched market, settle positions where the market
has decided, flag claims whose timeframe expired unmatched, and rebuild
subject metrics.

With a claim ID and --outcome, record a manual resolution for a claim
no market could settle.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runResolve,
}

func init() {
	resolveCmd.Flags().StringVar(&resolveOutcome, "outcome", "", "manual outcome: yes or no")
	resolveCmd.Flags().StringVar(&resolveNotes, "notes", "", "resolution notes")
	rootCmd.AddCommand(resolveCmd)
}

func runResolve(cmd *cobra.Command, args []string) error {
	app, err := openApp()
	if err != nil {
		return err
	}
	defer app.close()
	ctx := context.Background()

	if len(args) == 1 {
		if resolveOutcome == "" {
			return fmt.Errorf("manual resolution requires --outcome yes|no")
		}
		outcome := model.Outcome(resolveOutcome)
		if err := app.engine.ResolveClaimManually(ctx, args[0], outcome, resolveNotes); err != nil {
			return fmt.Errorf("resolve claim %s: %w", args[0], err)
		}
		fmt.Printf("Claim %s resolved: %s\n", args[0], outcome)
		return nil
	}

	if budget := app.cfg.Cycle.ResolutionBudget; budget > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, budget)
		defer cancel()
	}
	summary, err := app.engine.RunCycle(ctx)
	if err != nil {
		return fmt.Errorf("resolution cycle: %w", err)
	}

	fmt.Printf("Checked:           %d\n", summary.Checked)
	fmt.Printf("Market resolved:   %d\n", summary.MarketResolved)
	fmt.Printf("Timeframe flagged: %d\n", summary.TimeframeFlagged)
	fmt.Printf("Inconclusive:      %d\n", summary.Inconclusive)
	if summary.TimedOut {
		fmt.Println("Cycle hit its time budget; remaining claims carry to the next run")
	}
	for _, msg := range summary.Errors {
		fmt.Fprintf(os.Stderr, "warning: %s\n", msg)
	}
	return nil
}
