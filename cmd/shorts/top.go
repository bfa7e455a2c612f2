package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/franz/faceless-shorts/internal/score"
	"github.com/franz/faceless-shorts/internal/util"
)

var topCmd = &cobra.Command{
	Use:   "top",
	Short: "Show the thumbnail leaderboard",
	Long: `Rank thumbnails by views per use across every ledger entry.

Locked thumbnails are marked with 🔒. With --archive the top performers
archive is listed instead, oldest promotion first.`,
	RunE: runTop,
}

func init() {
	rootCmd.AddCommand(topCmd)

	topCmd.Flags().IntP("limit", "n", 10, "number of thumbnails to show (0 = all)")
	topCmd.Flags().Bool("archive", false, "list the top performers archive")
}

func runTop(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if showArchive, _ := cmd.Flags().GetBool("archive"); showArchive {
		records, err := score.NewArchive(cfg.TopPerformers, nil).Load()
		if err != nil {
			return fmt.Errorf("failed to read top performers: %w", err)
		}
		if len(records) == 0 {
			util.InfoLog("No thumbnail has been promoted yet")
			return nil
		}
		fmt.Fprintln(cmd.OutOrStdout(), archiveTable(records))
		return nil
	}

	loaded, err := newLedger(cfg).Load()
	if err != nil {
		return fmt.Errorf("failed to load ledger: %w", err)
	}
	for _, skipped := range loaded.Skipped {
		util.WarnLog("%v", skipped)
	}

	limit, _ := cmd.Flags().GetInt("limit")
	standings := score.Leaderboard(loaded.Entries, limit)
	if len(standings) == 0 {
		util.InfoLog("No thumbnail stats in %s", cfg.Ledger)
		return nil
	}

	fmt.Fprintln(cmd.OutOrStdout(), leaderboardTable(standings))
	return nil
}

func leaderboardTable(standings []score.Standing) string {
	rows := make([][]string, 0, len(standings))
	for i, s := range standings {
		mark := ""
		if s.Locked {
			mark = "🔒"
		}
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			s.Thumbnail,
			strconv.FormatInt(s.Uses, 10),
			strconv.FormatInt(s.Views, 10),
			fmt.Sprintf("%.2f", s.Score),
			strconv.Itoa(s.Entries),
			mark,
		})
	}
	return renderTable(
		[]string{"#", "Thumbnail", "Uses", "Views", "Score", "Entries", "Locked"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignRight, alignRight, alignRight, alignRight, alignLeft},
	)
}

func archiveTable(records []score.TopPerformer) string {
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		rows = append(rows, []string{
			r.Timestamp.Format("2006-01-02 15:04"),
			r.Thumbnail,
			fmt.Sprintf("%.2f", r.Score),
			strconv.FormatInt(r.Views, 10),
			strconv.FormatInt(r.Uses, 10),
			r.VideoID,
			r.Title,
		})
	}
	return renderTable(
		[]string{"Promoted", "Thumbnail", "Score", "Views", "Uses", "Video", "Title"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignRight, alignLeft, alignLeft},
	)
}
