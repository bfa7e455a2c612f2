package main

import (
	"context"
	"errors"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/franz/faceless-shorts/internal/pipeline"
	"github.com/franz/faceless-shorts/internal/util"
)

var uploadCmd = &cobra.Command{
	Use:   "upload",
	Short: "Publish the next pending ledger entry",
	Long: `Publish the first pending ledger entry to YouTube.

The thumbnail is chosen from the entry's candidates: locked top performers
first, then reusable thumbnails under the reuse limit, then any enabled
thumbnail. After a successful upload the usage is recorded and a thumbnail
whose score reaches the lock score is promoted to the top performers archive.

Nothing pending is not an error. A rejected upload leaves the ledger as it was.`,
	RunE: runUpload,
}

func init() {
	rootCmd.AddCommand(uploadCmd)
}

func runUpload(cmd *cobra.Command, args []string) error {
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

	pcfg := &pipeline.Config{
		Dirs:       pipelineDirs(cfg),
		Background: cfg.Video.Background,
		Ledger:     newLedger(cfg),
		Uploader:   yt,
		CategoryID: cfg.Upload.CategoryID,
		Privacy:    cfg.Upload.Privacy,
		Engine:     newEngine(cfg, logger),
		Rand:       newRand(),
		MaxReuse:   cfg.Thumbnails.MaxReuse,
		Logger:     logger,
	}
	if history != nil {
		pcfg.History = history
	}

	result, err := pipeline.New(pcfg).UploadNext(ctx)
	if errors.Is(err, pipeline.ErrNothingPending) {
		util.InfoLog("Nothing to upload: every ledger entry is published")
		return nil
	}
	if err != nil {
		return err
	}

	util.InfoLog("  Title:     %s", result.Entry.Title)
	util.InfoLog("  Video:     https://youtu.be/%s", result.VideoID)
	util.InfoLog("  Thumbnail: %s (%s)", result.Selection.Thumbnail, result.Selection.Tier)
	if result.Usage != nil {
		util.InfoLog("  Uses:      %d (score %.2f)", result.Usage.Uses, result.Usage.Score)
		if result.Usage.Promoted {
			util.SuccessLog("  Promoted %s to top performers", result.Usage.Thumbnail)
		}
	}

	return nil
}
