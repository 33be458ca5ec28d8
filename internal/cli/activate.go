package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	activateTitle string
	activateURLs  []string
)

// activateCmd begins tracking a subject and backfills their history
var activateCmd = &cobra.Command{
	Use:   "activate <name>",
	Short: "Start tracking a person and backfill their prediction history",
	Long: `Create a tracked subject for the named person, then fetch the given
article URLs and extract their past predictions. Matches made during
backfill are tagged historical so simulated returns from hindsight are
never mixed into the live record.

Example:
  trackrecord activate "Jim Cramer" --title "Television host" \
    --url https://example.com/cramer-2024-calls`,
	Args: cobra.ExactArgs(1),
	RunE: runActivate,
}

func init() {
	activateCmd.Flags().StringVar(&activateTitle, "title", "", "subject's title or affiliation")
	activateCmd.Flags().StringArrayVar(&activateURLs, "url", nil, "article URL to backfill from (repeatable)")
	rootCmd.AddCommand(activateCmd)
}

func runActivate(cmd *cobra.Command, args []string) error {
	app, err := openApp()
	if err != nil {
		return err
	}
	defer app.close()

	summary, err := app.pipeline.ActivateSubject(context.Background(), args[0], activateTitle, activateURLs)
	if err != nil {
		return fmt.Errorf("activate %q: %w", args[0], err)
	}

	fmt.Printf("Subject:           %s\n", args[0])
	fmt.Printf("Articles searched: %d\n", summary.ArticlesSearched)
	fmt.Printf("Claims extracted:  %d\n", summary.ClaimsExtracted)
	fmt.Printf("Claims stored:     %d\n", summary.ClaimsStored)
	for _, msg := range summary.Errors {
		fmt.Fprintf(os.Stderr, "warning: %s\n", msg)
	}
	return nil
}
