package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ppiankov/trackrecord/internal/worker"
)

// serveCmd runs ingestion and resolution on their configured intervals
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run ingestion and resolution cycles continuously",
	Long: `Run both background cycles on their configured intervals until
interrupted. Each cycle also runs once at startup. SIGINT or SIGTERM
stops the scheduler after in-flight cycles finish.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	app, err := openApp()
	if err != nil {
		return err
	}
	defer app.close()

	if len(app.cfg.Feeds) == 0 {
		return fmt.Errorf("no feeds configured; add a feeds section to the config file")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sched := worker.NewScheduler(app.log)
	sched.Add(worker.Task{
		Name:     "ingestion",
		Interval: app.cfg.Cycle.IngestionInterval,
		Run: func(ctx context.Context) error {
			summary, err := app.pipeline.RunCycle(ctx)
			if err != nil {
				return err
			}
			app.log.Info("ingestion cycle",
				zap.Int("stored", summary.Stored),
				zap.Int("matched", summary.Matched),
				zap.Int("rejected", summary.Rejected),
			)
			return nil
		},
	})
	sched.Add(worker.Task{
		Name:     "resolution",
		Interval: app.cfg.Cycle.ResolutionInterval,
		Run: func(ctx context.Context) error {
			if budget := app.cfg.Cycle.ResolutionBudget; budget > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, budget)
				defer cancel()
			}
			summary, err := app.engine.RunCycle(ctx)
			if err != nil {
				return err
			}
			app.log.Info("resolution cycle",
				zap.Int("checked", summary.Checked),
				zap.Int("resolved", summary.MarketResolved),
				zap.Int("flagged", summary.TimeframeFlagged),
			)
			return nil
		},
	})

	app.log.Info("scheduler running",
		zap.Duration("ingestion_interval", app.cfg.Cycle.IngestionInterval),
		zap.Duration("resolution_interval", app.cfg.Cycle.ResolutionInterval),
	)
	sched.Start(ctx)
	app.log.Info("scheduler stopped")
	return nil
}
