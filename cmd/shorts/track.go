package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/franz/faceless-shorts/internal/pipeline"
	"github.com/franz/faceless-shorts/internal/util"
)

var trackCmd = &cobra.Command{
	Use:   "track",
	Short: "Refresh view, like and comment counts of uploaded videos",
	Long: `Fetch current statistics for every uploaded ledger entry.

New views are attributed to the thumbnail the video was published with and
its score is recomputed. Videos growing faster than tracking.growth_alert
views per hour since the previous check raise a growth alert. Each check is
also recorded in the history database.

A video whose stats cannot be fetched is reported and skipped.`,
	RunE: runTrack,
}

func init() {
	rootCmd.AddCommand(trackCmd)
}

func runTrack(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	lock, err := acquireRunLock(cfg.Ledger)
	if err != nil {
		return err
	}
	defer lock.Release()

	yt, err := newYouTube(ctx, cfg)
	if err != nil {
		return err
	}

	history, err := openHistory(cfg.HistoryDB)
	if err != nil {
		return err
	}
	if history != nil {
		defer history.Close()
	}

	logger := openEventLogger(cfg)
	defer logger.Close()

	p := pipeline.New(&pipeline.Config{
		Ledger:  newLedger(cfg),
		Tracker: newTracker(cfg, yt, history, logger),
		Logger:  logger,
	})

	result, err := p.Track(ctx)
	if err != nil {
		return fmt.Errorf("track failed: %w", err)
	}

	util.SuccessLog("Tracking complete: %d checked, %d updated", result.Checked, result.Updated)
	for _, a := range result.Alerts {
		util.WarnLog("  🚀 %s (%s): +%d views in %.1fh = %.1f views/h",
			a.ScriptID, a.VideoID, a.NewViews, a.Hours, a.Rate)
	}

	return reportErrors("track", result.Errors)
}
