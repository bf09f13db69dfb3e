package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Kumar-Saurabh-Tiwari/pan-global-backend/internal/domain"
)

type reconcileFlags struct {
	dryRun bool
}

func newReconcileCmd() *cobra.Command {
	var flags reconcileFlags

	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Recompute cached counters and repair drift",
		Long: "Recomputes category topic counts and resource comment roll-ups from their\n" +
			"source records. With --dry-run the drift is reported but not repaired.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd.Context(), func(a *app) error {
				drifts, err := reconcileOnce(cmd.Context(), a, flags.dryRun)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				for _, d := range drifts {
					fmt.Fprintf(out, "%-24s %s stored=%d actual=%d\n", d.Counter, d.EntityID, d.Stored, d.Actual)
				}
				verb := "repaired"
				if flags.dryRun {
					verb = "found"
				}
				fmt.Fprintf(out, "%d drifted counters %s\n", len(drifts), verb)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&flags.dryRun, "dry-run", false, "Report drift without repairing it")

	return cmd
}

// reconcileOnce runs both engines' reconciliation and records the drift gauges
func reconcileOnce(ctx context.Context, a *app, dryRun bool) ([]domain.Drift, error) {
	forumDrift, err := a.forum.ReconcileCategoryCounts(ctx, dryRun)
	if err != nil {
		return nil, fmt.Errorf("reconcile categories: %w", err)
	}
	resourceDrift, err := a.resources.ReconcileResources(ctx, dryRun)
	if err != nil {
		return nil, fmt.Errorf("reconcile resources: %w", err)
	}

	drifts := append(forumDrift, resourceDrift...)
	a.collector.RecordDrift(drifts)
	return drifts, nil
}

// reconcileWorker repairs counter drift on every tick until ctx is done
func reconcileWorker(ctx context.Context, a *app, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	a.logger.Info("reconcile worker started", zap.Duration("interval", interval))
	for {
		select {
		case <-ctx.Done():
			a.logger.Info("reconcile worker stopped")
			return
		case <-ticker.C:
			drifts, err := reconcileOnce(ctx, a, false)
			if err != nil {
				a.logger.Error("reconcile failed", zap.Error(err))
				continue
			}
			if len(drifts) > 0 {
				a.logger.Warn("repaired counter drift", zap.Int("count", len(drifts)))
			}
		}
	}
}
