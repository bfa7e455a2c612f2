package report

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/franz/faceless-shorts/internal/ledger"
	"github.com/franz/faceless-shorts/internal/store"
	"github.com/franz/faceless-shorts/internal/util"
)

// SummaryReport is a point-in-time view of the ledger and run history
type SummaryReport struct {
	GeneratedAt time.Time

	// Ledger statistics
	Entries        int
	Uploaded       int
	Pending        int
	MalformedLines int
	TotalViews     int64
	TotalLikes     int64
	TotalComments  int64

	// Thumbnail statistics
	LockedThumbnails int
	Thumbnails       []ThumbnailRow

	// History statistics
	UploadAttempts int
	FailedUploads  int
	StatChecks24h  int

	// Details
	TopVideos []VideoRow
	Alerts    []VideoRow // entries whose last growth rate crossed the alert threshold
	TopErrors []ErrorSummary

	// Metadata
	LedgerPath   string
	DatabasePath string
	EventLogPath string
}

// VideoRow is one uploaded video in the report
type VideoRow struct {
	ScriptID   string
	Title      string
	VideoID    string
	Views      int64
	Likes      int64
	GrowthRate float64
}

// ThumbnailRow is one thumbnail's aggregate performance
type ThumbnailRow struct {
	Thumbnail string
	Uses      int64
	Views     int64
	Score     float64
	Locked    bool
}

// ErrorSummary represents an error with its count
type ErrorSummary struct {
	Error string
	Count int
}

// SummaryOptions are the optional inputs of GenerateSummaryReport
type SummaryOptions struct {
	History        *store.Store
	EventLogPath   string
	Thumbnails     []ThumbnailRow
	MalformedLines int
	GrowthAlert    float64
	TopN           int
	Now            func() time.Time
}

// GenerateSummaryReport aggregates ledger entries, upload history and an
// optional event log
func GenerateSummaryReport(entries []*ledger.Entry, opts SummaryOptions) (*SummaryReport, error) {
	if opts.TopN <= 0 {
		opts.TopN = 10
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	report := &SummaryReport{
		GeneratedAt:    opts.Now(),
		EventLogPath:   opts.EventLogPath,
		MalformedLines: opts.MalformedLines,
		Thumbnails:     opts.Thumbnails,
		TopVideos:      make([]VideoRow, 0),
		Alerts:         make([]VideoRow, 0),
		TopErrors:      make([]ErrorSummary, 0),
	}

	var uploaded []VideoRow
	for _, e := range entries {
		report.Entries++
		if !e.Uploaded {
			report.Pending++
			continue
		}
		report.Uploaded++
		report.TotalViews += e.Views
		report.TotalLikes += e.Likes
		report.TotalComments += e.Comments

		row := VideoRow{
			ScriptID:   e.ID(),
			Title:      e.Title,
			VideoID:    e.PlatformVideoID,
			Views:      e.Views,
			Likes:      e.Likes,
			GrowthRate: e.GrowthRate,
		}
		uploaded = append(uploaded, row)
		if opts.GrowthAlert > 0 && e.GrowthRate > opts.GrowthAlert {
			report.Alerts = append(report.Alerts, row)
		}
	}

	sort.SliceStable(uploaded, func(i, j int) bool { return uploaded[i].Views > uploaded[j].Views })
	if len(uploaded) > opts.TopN {
		uploaded = uploaded[:opts.TopN]
	}
	report.TopVideos = append(report.TopVideos, uploaded...)

	for _, t := range opts.Thumbnails {
		if t.Locked {
			report.LockedThumbnails++
		}
	}

	if opts.History != nil {
		report.FailedUploads, _ = opts.History.CountFailedUploads()
		report.UploadAttempts, _ = opts.History.CountUploadAttempts()
		report.StatChecks24h, _ = opts.History.CountSnapshotsSince(report.GeneratedAt.Add(-24 * time.Hour))
	}

	if opts.EventLogPath != "" {
		errs, err := gatherTopErrors(opts.EventLogPath, opts.TopN)
		if err != nil {
			util.WarnLog("Failed to read event log %s: %v", opts.EventLogPath, err)
		} else {
			report.TopErrors = errs
		}
	}

	return report, nil
}

// ReadEvents parses a JSONL event log. Unparseable lines are skipped.
func ReadEvents(path string) ([]Event, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var events []Event
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		var ev Event
		if err := json.Unmarshal(scanner.Bytes(), &ev); err != nil {
			continue
		}
		events = append(events, ev)
	}
	return events, scanner.Err()
}

// gatherTopErrors counts identical error messages in an event log
func gatherTopErrors(eventLogPath string, limit int) ([]ErrorSummary, error) {
	events, err := ReadEvents(eventLogPath)
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int)
	for _, ev := range events {
		if ev.Error != "" {
			counts[ev.Error]++
		}
	}

	summaries := make([]ErrorSummary, 0, len(counts))
	for msg, n := range counts {
		summaries = append(summaries, ErrorSummary{Error: msg, Count: n})
	}
	sort.Slice(summaries, func(i, j int) bool {
		if summaries[i].Count != summaries[j].Count {
			return summaries[i].Count > summaries[j].Count
		}
		return summaries[i].Error < summaries[j].Error
	})
	if len(summaries) > limit {
		summaries = summaries[:limit]
	}
	return summaries, nil
}

// WriteMarkdownReport renders the report as Markdown to outputPath
func WriteMarkdownReport(report *SummaryReport, outputPath string) error {
	var md strings.Builder

	md.WriteString("# Faceless Shorts - Summary Report\n\n")
	md.WriteString(fmt.Sprintf("**Generated:** %s\n\n", report.GeneratedAt.Format("2006-01-02 15:04:05")))
	if report.LedgerPath != "" {
		md.WriteString(fmt.Sprintf("**Ledger:** `%s`\n\n", report.LedgerPath))
	}
	if report.DatabasePath != "" {
		md.WriteString(fmt.Sprintf("**History:** `%s`\n\n", report.DatabasePath))
	}
	if report.EventLogPath != "" {
		md.WriteString(fmt.Sprintf("**Event Log:** `%s`\n\n", report.EventLogPath))
	}
	md.WriteString("---\n\n")

	md.WriteString("## 📊 Overview\n\n")
	md.WriteString("| Metric | Value |\n")
	md.WriteString("|--------|-------|\n")
	md.WriteString(fmt.Sprintf("| Entries | %d |\n", report.Entries))
	md.WriteString(fmt.Sprintf("| Uploaded | %d |\n", report.Uploaded))
	md.WriteString(fmt.Sprintf("| Pending | %d |\n", report.Pending))
	if report.MalformedLines > 0 {
		md.WriteString(fmt.Sprintf("| Malformed Ledger Lines | %d |\n", report.MalformedLines))
	}
	md.WriteString(fmt.Sprintf("| Total Views | %d |\n", report.TotalViews))
	md.WriteString(fmt.Sprintf("| Total Likes | %d |\n", report.TotalLikes))
	md.WriteString(fmt.Sprintf("| Total Comments | %d |\n", report.TotalComments))
	md.WriteString("\n")

	if report.UploadAttempts > 0 || report.StatChecks24h > 0 {
		md.WriteString("## 🗄️ History\n\n")
		md.WriteString("| Metric | Value |\n")
		md.WriteString("|--------|-------|\n")
		md.WriteString(fmt.Sprintf("| Upload Attempts | %d |\n", report.UploadAttempts))
		if report.FailedUploads > 0 {
			md.WriteString(fmt.Sprintf("| Failed Uploads | %d |\n", report.FailedUploads))
		}
		md.WriteString(fmt.Sprintf("| Stats Checks (24h) | %d |\n", report.StatChecks24h))
		md.WriteString("\n")
	}

	if len(report.TopVideos) > 0 {
		md.WriteString("## 🎬 Top Videos\n\n")
		md.WriteString("| # | Title | Video | Views | Likes | Views/h |\n")
		md.WriteString("|---|-------|-------|-------|-------|---------|\n")
		for i, v := range report.TopVideos {
			md.WriteString(fmt.Sprintf("| %d | %s | `%s` | %d | %d | %.1f |\n",
				i+1, escapeCell(truncate(v.Title, 60)), v.VideoID, v.Views, v.Likes, v.GrowthRate))
		}
		md.WriteString("\n")
	}

	if len(report.Alerts) > 0 {
		md.WriteString("## 🚀 Growth Alerts\n\n")
		for _, v := range report.Alerts {
			md.WriteString(fmt.Sprintf("- `%s` %s: %.1f views/h\n", v.VideoID, escapeCell(v.Title), v.GrowthRate))
		}
		md.WriteString("\n")
	}

	if len(report.Thumbnails) > 0 {
		md.WriteString("## 🖼️ Thumbnails\n\n")
		md.WriteString(fmt.Sprintf("*%d locked*\n\n", report.LockedThumbnails))
		md.WriteString("| Thumbnail | Uses | Views | Score | Locked |\n")
		md.WriteString("|-----------|------|-------|-------|--------|\n")
		for _, t := range report.Thumbnails {
			locked := ""
			if t.Locked {
				locked = "🔒"
			}
			md.WriteString(fmt.Sprintf("| `%s` | %d | %d | %.2f | %s |\n",
				truncate(t.Thumbnail, 50), t.Uses, t.Views, t.Score, locked))
		}
		md.WriteString("\n")
	}

	if len(report.TopErrors) > 0 {
		md.WriteString("## ⚠️ Top Errors\n\n")
		md.WriteString("| Count | Error |\n")
		md.WriteString("|-------|-------|\n")
		for _, err := range report.TopErrors {
			md.WriteString(fmt.Sprintf("| %d | %s |\n", err.Count, escapeCell(err.Error)))
		}
		md.WriteString("\n")
	}

	md.WriteString("---\n\n")
	md.WriteString("*Generated by shorts*\n")

	if err := util.WriteFileAtomic(outputPath, []byte(md.String()), 0644, nil); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

// truncate shortens s to maxLen runes, keeping the start and the end
func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	start := maxLen/2 - 2
	end := len(r) - (maxLen/2 - 2)
	return string(r[:start]) + "..." + string(r[end:])
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}
