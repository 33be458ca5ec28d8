package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// verifyCmd checks the integrity of the claim hash chain
var verifyCmd = &cobra.Command{
	Use:   "verify [claim-id]",
	Short: "Verify the claim chain's integrity",
	Long: `Recompute every stored claim's content hash and chain linkage. Any
edit, deletion, or reordering of recorded claims shows up here as a
broken link at a specific chain index.

With a claim ID, check only that claim's content hash and stored link.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runVerify,
}

func init() {
	rootCmd.AddCommand(verifyCmd)
}

func runVerify(cmd *cobra.Command, args []string) error {
	app, err := openApp()
	if err != nil {
		return err
	}
	defer app.close()
	ctx := context.Background()

	if len(args) == 1 {
		claim, err := app.store.GetClaim(ctx, args[0])
		if err != nil {
			return fmt.Errorf("load claim %s: %w", args[0], err)
		}
		verdict := app.ledger.VerifyClaim(claim)
		fmt.Printf("Claim %s (chain index %d)\n", claim.ID, claim.ChainIndex)
		fmt.Printf("  content hash valid: %v\n", verdict.ContentValid)
		fmt.Printf("  chain link valid:   %v\n", verdict.ChainValid)
		if !verdict.Valid() {
			return fmt.Errorf("claim verification failed")
		}
		return nil
	}

	result, err := app.ledger.VerifyAll(ctx)
	if err != nil {
		return fmt.Errorf("verify chain: %w", err)
	}

	fmt.Printf("Claims checked: %d\n", result.Checked)
	if result.IsValid {
		fmt.Println("Chain intact: every content hash and link verifies")
		return nil
	}

	fmt.Println("CHAIN BROKEN")
	fmt.Printf("  content hashes valid: %v\n", result.ContentValid)
	fmt.Printf("  chain links valid:    %v\n", result.ChainValid)
	fmt.Printf("  first bad index:      %d\n", result.FirstBadIdx)
	if result.Detail != "" {
		fmt.Printf("  detail: %s\n", result.Detail)
	}
	return fmt.Errorf("chain verification failed")
}
