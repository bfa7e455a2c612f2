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

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Render every script that has no video yet and add it to the ledger",
	Long: `Render narrated videos from markdown scripts.

For each scripts/*.md without a matching video this command:
1. Synthesizes narration with ElevenLabs (reuses existing audio)
2. Renders a vertical video over the background image with ffmpeg
3. Generates title, description and tags with OpenAI
4. Discovers candidate thumbnails (thumbnails/<script_id>_*.png)
5. Appends a pending entry to the ledger

A failing script is reported and the batch continues. Re-running is safe:
existing videos are skipped and ledger entries are never duplicated.`,
	RunE: runRender,
}

func init() {
	rootCmd.AddCommand(renderCmd)
}

func runRender(cmd *cobra.Command, args []string) error {
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

	speaker, renderer, gen, err := newRenderStage(cfg)
	if err != nil {
		return err
	}

	logger := openEventLogger(cfg)
	defer logger.Close()

	p := pipeline.New(&pipeline.Config{
		Dirs:       pipelineDirs(cfg),
		Background: cfg.Video.Background,
		Ledger:     newLedger(cfg),
		Speaker:    speaker,
		Renderer:   renderer,
		Metadata:   gen,
		Logger:     logger,
	})

	util.InfoLog("=== Rendering scripts from %s ===", cfg.Paths.Scripts)

	result, err := p.RenderAll(ctx)
	if err != nil {
		return fmt.Errorf("render failed: %w", err)
	}

	util.InfoLog("")
	util.SuccessLog("Render complete!")
	util.InfoLog("  Scripts:  %d", result.Scripts)
	util.InfoLog("  Rendered: %d", result.Rendered)
	util.InfoLog("  Skipped:  %d (video exists)", result.Skipped)
	util.InfoLog("  Appended: %d ledger entries", result.Appended)
	if len(result.Errors) > 0 {
		util.WarnLog("  Errors:   %d", len(result.Errors))
	}
	if logger != nil {
		util.InfoLog("Event log: %s", logger.Path())
	}

	return reportErrors("render", result.Errors)
}
