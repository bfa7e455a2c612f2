package main

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/franz/faceless-shorts/internal/report"
	"github.com/franz/faceless-shorts/internal/score"
	"github.com/franz/faceless-shorts/internal/store"
	"github.com/franz/faceless-shorts/internal/util"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Generate a summary report from the ledger, history and event logs",
	Long: `Generate a summary report in Markdown format.

The report includes:
- Uploaded and pending entries with total views, likes and comments
- Top videos by views and videos over the growth alert threshold
- The thumbnail leaderboard and locked thumbnails
- Upload attempts and stats checks from the history database
- Top errors from an event log (--event-log)

The report is saved to <artifacts>/reports/<timestamp>/summary.md`,
	RunE: runReport,
}

func init() {
	rootCmd.AddCommand(reportCmd)

	// Report-specific flags
	reportCmd.Flags().String("out", "", "Output directory for report (default: <artifacts>/reports/<timestamp>)")
	reportCmd.Flags().String("event-log", "", "Path to event log file (optional)")
}

func runReport(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	util.InfoLog("=== Generating Summary Report ===")
	util.InfoLog("Ledger: %s", cfg.Ledger)

	loaded, err := newLedger(cfg).Load()
	if err != nil {
		return fmt.Errorf("failed to load ledger: %w", err)
	}

	var history *store.Store
	if cfg.HistoryDB != "" && fileExists(cfg.HistoryDB) {
		history, err = store.Open(cfg.HistoryDB)
		if err != nil {
			return fmt.Errorf("failed to open history database: %w", err)
		}
		defer history.Close()
	}

	eventLogPath, _ := cmd.Flags().GetString("event-log")

	util.InfoLog("Analyzing data...")
	summaryReport, err := report.GenerateSummaryReport(loaded.Entries, report.SummaryOptions{
		History:        history,
		EventLogPath:   eventLogPath,
		Thumbnails:     thumbnailRows(score.Leaderboard(loaded.Entries, 0)),
		MalformedLines: len(loaded.Skipped),
		GrowthAlert:    cfg.Tracking.GrowthAlert,
	})
	if err != nil {
		return fmt.Errorf("failed to generate report: %w", err)
	}
	summaryReport.LedgerPath = cfg.Ledger
	if history != nil {
		summaryReport.DatabasePath = cfg.HistoryDB
	}

	// Determine output path
	outputDir, _ := cmd.Flags().GetString("out")
	if outputDir == "" {
		timestamp := time.Now().Format("20060102-150405")
		outputDir = filepath.Join(cfg.Paths.Artifacts, "reports", timestamp)
	}
	outputPath := filepath.Join(outputDir, "summary.md")

	util.InfoLog("Writing report to: %s", outputPath)
	if err := report.WriteMarkdownReport(summaryReport, outputPath); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	util.SuccessLog("Report generated successfully!")
	util.InfoLog("")
	util.InfoLog("Summary:")
	util.InfoLog("  Entries: %d (%d uploaded, %d pending)", summaryReport.Entries, summaryReport.Uploaded, summaryReport.Pending)
	util.InfoLog("  Views: %d", summaryReport.TotalViews)
	if summaryReport.MalformedLines > 0 {
		util.WarnLog("  Malformed ledger lines: %d", summaryReport.MalformedLines)
	}
	if summaryReport.LockedThumbnails > 0 {
		util.InfoLog("  Locked thumbnails: %d", summaryReport.LockedThumbnails)
	}
	if len(summaryReport.Alerts) > 0 {
		util.InfoLog("  Growth alerts: %d", len(summaryReport.Alerts))
	}

	return nil
}

// thumbnailRows converts leaderboard standings into report rows
func thumbnailRows(standings []score.Standing) []report.ThumbnailRow {
	rows := make([]report.ThumbnailRow, 0, len(standings))
	for _, s := range standings {
		rows = append(rows, report.ThumbnailRow{
			Thumbnail: s.Thumbnail,
			Uses:      s.Uses,
			Views:     s.Views,
			Score:     s.Score,
			Locked:    s.Locked,
		})
	}
	return rows
}
