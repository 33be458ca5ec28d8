package cli

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ppiankov/trackrecord/internal/model"
)

var reviewNotes string

// reviewCmd manages the suggested-match review queue
var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Manage the market match review queue",
	Long: `Matches scored between the review and auto thresholds wait here for a
human decision. Approving links the market and opens a simulated
position at the market's current price; rejecting flags the claim
unmatched.`,
}

var reviewListCmd = &cobra.Command{
	Use:   "list",
	Short: "List pending review entries",
	RunE:  runReviewList,
}

var reviewApproveCmd = &cobra.Command{
	Use:   "approve <review-id>",
	Short: "Approve a suggested match",
	Args:  cobra.ExactArgs(1),
	RunE:  runReviewApprove,
}

var reviewRejectCmd = &cobra.Command{
	Use:   "reject <review-id>",
	Short: "Reject a suggested match",
	Args:  cobra.ExactArgs(1),
	RunE:  runReviewReject,
}

func init() {
	reviewApproveCmd.Flags().StringVar(&reviewNotes, "notes", "", "reviewer notes")
	reviewRejectCmd.Flags().StringVar(&reviewNotes, "notes", "", "reviewer notes")
	reviewCmd.AddCommand(reviewListCmd)
	reviewCmd.AddCommand(reviewApproveCmd)
	reviewCmd.AddCommand(reviewRejectCmd)
	rootCmd.AddCommand(reviewCmd)
}

func runReviewList(cmd *cobra.Command, args []string) error {
	app, err := openApp()
	if err != nil {
		return err
	}
	defer app.close()

	entries, err := app.store.ListReviewQueue(context.Background(), model.ReviewPending)
	if err != nil {
		return fmt.Errorf("list review queue: %w", err)
	}
	if len(entries) == 0 {
		fmt.Println("Review queue is empty.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSIMILARITY\tMARKET QUESTION\tCLAIM ID")
	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%.2f\t%s\t%s\n", e.ID, e.Similarity, e.Question, e.ClaimID)
	}
	return w.Flush()
}

func runReviewApprove(cmd *cobra.Command, args []string) error {
	app, err := openApp()
	if err != nil {
		return err
	}
	defer app.close()

	if err := app.pipeline.ApproveReview(context.Background(), args[0], reviewNotes); err != nil {
		return fmt.Errorf("approve review: %w", err)
	}
	fmt.Printf("Review %s approved; market linked and position opened\n", args[0])
	return nil
}

func runReviewReject(cmd *cobra.Command, args []string) error {
	app, err := openApp()
	if err != nil {
		return err
	}
	defer app.close()

	if err := app.pipeline.RejectReview(context.Background(), args[0], reviewNotes); err != nil {
		return fmt.Errorf("reject review: %w", err)
	}
	fmt.Printf("Review %s rejected; claim returned to unmatched\n", args[0])
	return nil
}
