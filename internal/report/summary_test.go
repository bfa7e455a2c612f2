package report

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/franz/faceless-shorts/internal/ledger"
	"github.com/franz/faceless-shorts/internal/store"
)

var reportNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func testEntries() []*ledger.Entry {
	return []*ledger.Entry{
		{Script: "scripts/a.md", Title: "Alpha", Uploaded: true, PlatformVideoID: "va", Views: 100, Likes: 5, GrowthRate: 10},
		{Script: "scripts/b.md", Title: "Beta | pipes", Uploaded: true, PlatformVideoID: "vb", Views: 900, Comments: 2, GrowthRate: 120},
		{Script: "scripts/c.md", Title: "Gamma"},
	}
}

func TestGenerateSummaryReport(t *testing.T) {
	history, err := store.Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer history.Close()

	history.InsertUploadAttempt(&store.UploadAttempt{ScriptID: "a", VideoPath: "a.mp4", VideoID: "va", StartedAt: reportNow, CompletedAt: reportNow})
	history.InsertUploadAttempt(&store.UploadAttempt{ScriptID: "c", VideoPath: "c.mp4", StartedAt: reportNow, CompletedAt: reportNow, Error: "quota"})
	history.InsertSnapshot(&store.Snapshot{ScriptID: "a", VideoID: "va", Views: 100, CheckedAt: reportNow.Add(-time.Hour)})
	history.InsertSnapshot(&store.Snapshot{ScriptID: "a", VideoID: "va", Views: 50, CheckedAt: reportNow.Add(-48 * time.Hour)})

	report, err := GenerateSummaryReport(testEntries(), SummaryOptions{
		History:        history,
		Thumbnails:     []ThumbnailRow{{Thumbnail: "x.png", Uses: 2, Views: 9, Score: 4.5, Locked: true}, {Thumbnail: "y.png"}},
		MalformedLines: 1,
		GrowthAlert:    50,
		Now:            func() time.Time { return reportNow },
	})
	if err != nil {
		t.Fatalf("GenerateSummaryReport failed: %v", err)
	}

	if report.Entries != 3 || report.Uploaded != 2 || report.Pending != 1 || report.MalformedLines != 1 {
		t.Errorf("unexpected counts: %+v", report)
	}
	if report.TotalViews != 1000 || report.TotalLikes != 5 || report.TotalComments != 2 {
		t.Errorf("unexpected totals: views=%d likes=%d comments=%d", report.TotalViews, report.TotalLikes, report.TotalComments)
	}
	if len(report.TopVideos) != 2 || report.TopVideos[0].VideoID != "vb" {
		t.Errorf("expected vb first, got %+v", report.TopVideos)
	}
	if len(report.Alerts) != 1 || report.Alerts[0].VideoID != "vb" {
		t.Errorf("expected one alert for vb, got %+v", report.Alerts)
	}
	if report.LockedThumbnails != 1 {
		t.Errorf("expected 1 locked thumbnail, got %d", report.LockedThumbnails)
	}
	if report.UploadAttempts != 2 || report.FailedUploads != 1 || report.StatChecks24h != 1 {
		t.Errorf("unexpected history stats: attempts=%d failed=%d checks=%d",
			report.UploadAttempts, report.FailedUploads, report.StatChecks24h)
	}
	if !report.GeneratedAt.Equal(reportNow) {
		t.Errorf("expected GeneratedAt %v, got %v", reportNow, report.GeneratedAt)
	}
}

func TestTopErrorsFromEventLog(t *testing.T) {
	dir := t.TempDir()
	logger, err := NewEventLogger(dir, LevelDebug)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 3; i++ {
		logger.LogStats("a", "va", 0, 0, errTest("quota exceeded"))
	}
	logger.LogError(EventRender, "b", errTest("ffmpeg failed"))
	logger.LogRender("c", "c.mp4", time.Second, nil)
	logger.Close()

	// A truncated trailing line must not break reading
	f, _ := os.OpenFile(logger.Path(), os.O_APPEND|os.O_WRONLY, 0644)
	f.WriteString(`{"event":"upl`)
	f.Close()

	report, err := GenerateSummaryReport(nil, SummaryOptions{EventLogPath: logger.Path()})
	if err != nil {
		t.Fatal(err)
	}
	if len(report.TopErrors) != 2 {
		t.Fatalf("expected 2 distinct errors, got %+v", report.TopErrors)
	}
	if report.TopErrors[0].Error != "quota exceeded" || report.TopErrors[0].Count != 3 {
		t.Errorf("unexpected top error: %+v", report.TopErrors[0])
	}
}

type errTest string

func (e errTest) Error() string { return string(e) }

func TestWriteMarkdownReport(t *testing.T) {
	report, _ := GenerateSummaryReport(testEntries(), SummaryOptions{
		Thumbnails:  []ThumbnailRow{{Thumbnail: "thumbnails/a_1.png", Uses: 2, Views: 9, Score: 4.5, Locked: true}},
		GrowthAlert: 50,
		Now:         func() time.Time { return reportNow },
	})
	report.LedgerPath = "videos/metadata.jsonl"

	outputPath := filepath.Join(t.TempDir(), "reports", "summary.md")
	if err := WriteMarkdownReport(report, outputPath); err != nil {
		t.Fatalf("WriteMarkdownReport failed: %v", err)
	}

	data, err := os.ReadFile(outputPath)
	if err != nil {
		t.Fatal(err)
	}
	content := string(data)
	for _, want := range []string{
		"# Faceless Shorts - Summary Report",
		"**Ledger:** `videos/metadata.jsonl`",
		"| Uploaded | 2 |",
		"| Pending | 1 |",
		"## 🎬 Top Videos",
		`Beta \| pipes`,
		"## 🚀 Growth Alerts",
		"| `thumbnails/a_1.png` | 2 | 9 | 4.50 | 🔒 |",
	} {
		if !strings.Contains(content, want) {
			t.Errorf("report missing %q", want)
		}
	}
	if strings.Contains(content, "## 🗄️ History") {
		t.Error("history section should be omitted without history data")
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		max  int
		want string
	}{
		{"short", 10, "short"},
		{"abcdefghijklmnopqrstuvwxyz", 10, "abc...xyz"},
	}
	for _, tt := range tests {
		if got := truncate(tt.in, tt.max); got != tt.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.in, tt.max, got, tt.want)
		}
	}
}
