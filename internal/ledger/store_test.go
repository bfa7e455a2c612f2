package ledger

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return New(&Config{Path: filepath.Join(t.TempDir(), "video", "metadata.jsonl")})
}

func TestLoadMissingLedgerIsEmpty(t *testing.T) {
	s := newTestStore(t)

	res, err := s.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(res.Entries) != 0 || len(res.Skipped) != 0 {
		t.Errorf("expected empty ledger, got %d entries %d skipped", len(res.Entries), len(res.Skipped))
	}
}

func TestLoadSkipsMalformedLines(t *testing.T) {
	s := newTestStore(t)
	if err := os.MkdirAll(filepath.Dir(s.Path()), 0755); err != nil {
		t.Fatal(err)
	}

	lines := []string{
		`{"script":"scripts/a.md","video":"video/a.mp4","title":"A"}`,
		`{"script":"scripts/b.md","video":"video/b.mp4","title":"B"}`,
		`{"script":"scripts/c.md","video":`,
		``,
		`{"script":"scripts/d.md","video":"video/d.mp4","title":"D"}`,
		`{"script":"scripts/e.md","video":"video/e.mp4","title":"E"}`,
	}
	if err := os.WriteFile(s.Path(), []byte(strings.Join(lines, "\n")+"\n"), 0644); err != nil {
		t.Fatal(err)
	}

	res, err := s.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(res.Entries) != 4 {
		t.Fatalf("expected 4 entries, got %d", len(res.Entries))
	}
	if len(res.Skipped) != 1 {
		t.Fatalf("expected 1 skipped line, got %d", len(res.Skipped))
	}
	if !errors.Is(res.Skipped[0], ErrMalformedRecord) {
		t.Errorf("skip error should wrap ErrMalformedRecord: %v", res.Skipped[0])
	}

	want := []string{"A", "B", "D", "E"}
	for i, e := range res.Entries {
		if e.Title != want[i] {
			t.Errorf("entry %d: expected title %s, got %s", i, want[i], e.Title)
		}
	}
	if res.Entries[0].ScriptID != "a" {
		t.Errorf("expected derived script_id 'a', got %q", res.Entries[0].ScriptID)
	}
}

func TestSaveRoundTripPreservesOrder(t *testing.T) {
	s := newTestStore(t)

	entries := []*Entry{
		{Script: "scripts/z.md", Video: "video/z.mp4", Title: "Z", Tags: []string{"ai", "gpt"}},
		{Script: "scripts/a.md", Video: "video/a.mp4", Title: "A & <B>"},
		{Script: "scripts/m.md", Video: "video/m.mp4", Title: "M", Uploaded: true, PlatformVideoID: "vid-m"},
	}
	entries[0].Stat("thumbnails/z_A.png").Uses = 3

	if err := s.Save(entries); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := s.LoadEntries()
	if err != nil {
		t.Fatalf("LoadEntries failed: %v", err)
	}
	if len(loaded) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(loaded))
	}
	for i, e := range loaded {
		if e.Title != entries[i].Title {
			t.Errorf("entry %d: expected %q, got %q", i, entries[i].Title, e.Title)
		}
	}
	if got := loaded[0].ThumbnailStats["thumbnails/z_A.png"].Uses; got != 3 {
		t.Errorf("expected uses=3 after round trip, got %d", got)
	}

	raw, err := os.ReadFile(s.Path())
	if err != nil {
		t.Fatal(err)
	}
	if n := strings.Count(string(raw), "\n"); n != 3 {
		t.Errorf("expected 3 lines, got %d", n)
	}
	if !strings.Contains(string(raw), "A & <B>") {
		t.Errorf("expected unescaped title in ledger, got %s", raw)
	}
}

func TestSaveLeavesNoTempFiles(t *testing.T) {
	s := newTestStore(t)

	for i := 0; i < 3; i++ {
		if err := s.Save([]*Entry{{Script: "s.md", Video: "v.mp4"}}); err != nil {
			t.Fatalf("Save failed: %v", err)
		}
	}

	files, err := os.ReadDir(filepath.Dir(s.Path()))
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 1 {
		names := make([]string, 0, len(files))
		for _, f := range files {
			names = append(names, f.Name())
		}
		t.Errorf("expected only the ledger file, found %v", names)
	}
}

func TestAppendIfAbsentIsIdempotent(t *testing.T) {
	s := newTestStore(t)

	entry := &Entry{Script: "scripts/script_001.md", Video: "video/script_001.mp4", Title: "First"}
	appended, err := s.AppendIfAbsent(entry)
	if err != nil {
		t.Fatalf("AppendIfAbsent failed: %v", err)
	}
	if !appended {
		t.Fatal("expected first append to write")
	}

	before, err := os.ReadFile(s.Path())
	if err != nil {
		t.Fatal(err)
	}

	dup := &Entry{Script: "scripts/script_001.md", Video: "video/script_001.mp4", Title: "Different title"}
	appended, err = s.AppendIfAbsent(dup)
	if err != nil {
		t.Fatalf("AppendIfAbsent failed: %v", err)
	}
	if appended {
		t.Error("expected duplicate append to be a no-op")
	}

	after, err := os.ReadFile(s.Path())
	if err != nil {
		t.Fatal(err)
	}
	if string(before) != string(after) {
		t.Errorf("ledger changed on duplicate append:\nbefore: %s\nafter:  %s", before, after)
	}

	// Same script, different video is a new entry
	other := &Entry{Script: "scripts/script_001.md", Video: "video/script_001_v2.mp4"}
	appended, err = s.AppendIfAbsent(other)
	if err != nil {
		t.Fatalf("AppendIfAbsent failed: %v", err)
	}
	if !appended {
		t.Error("expected different video path to append")
	}

	entries, _ := s.LoadEntries()
	if len(entries) != 2 {
		t.Errorf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].ScriptID != "script_001" {
		t.Errorf("expected script_id script_001, got %q", entries[0].ScriptID)
	}
}

func TestAppendIfAbsentKeepsMalformedLines(t *testing.T) {
	s := newTestStore(t)
	if err := os.MkdirAll(filepath.Dir(s.Path()), 0755); err != nil {
		t.Fatal(err)
	}
	content := `{"script":"a.md","video":"a.mp4"}` + "\n" + `not json`
	if err := os.WriteFile(s.Path(), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	appended, err := s.AppendIfAbsent(&Entry{Script: "b.md", Video: "b.mp4"})
	if err != nil {
		t.Fatalf("AppendIfAbsent failed: %v", err)
	}
	if !appended {
		t.Fatal("expected append")
	}

	raw, _ := os.ReadFile(s.Path())
	if !strings.Contains(string(raw), "not json") {
		t.Error("hand-edited line was dropped")
	}

	res, err := s.Load()
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Entries) != 2 || len(res.Skipped) != 1 {
		t.Errorf("expected 2 entries and 1 skipped, got %d and %d", len(res.Entries), len(res.Skipped))
	}
	if strings.Index(string(raw), "not json") > strings.Index(string(raw), `"script":"b.md"`) {
		t.Errorf("appended entry should follow the kept line, got %s", raw)
	}

	files, _ := os.ReadDir(filepath.Dir(s.Path()))
	if len(files) != 1 {
		t.Errorf("expected only the ledger file after append, found %d files", len(files))
	}
}

func TestLoadAcceptsNaiveTimestamps(t *testing.T) {
	s := newTestStore(t)
	if err := os.MkdirAll(filepath.Dir(s.Path()), 0755); err != nil {
		t.Fatal(err)
	}
	line := `{"script":"a.md","video":"a.mp4","last_checked_at":"2025-03-01T12:00:00.123456",` +
		`"thumbnail_stats":{"t.png":{"uses":1,"locked_at":"2025-03-01 08:30:00"}}}`
	if err := os.WriteFile(s.Path(), []byte(line+"\n"), 0644); err != nil {
		t.Fatal(err)
	}

	res, err := s.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(res.Entries) != 1 || len(res.Skipped) != 0 {
		t.Fatalf("expected 1 entry and no skips, got %d and %v", len(res.Entries), res.Skipped)
	}
	e := res.Entries[0]
	want := time.Date(2025, 3, 1, 12, 0, 0, 123456000, time.UTC)
	if e.LastCheckedAt == nil || !e.LastCheckedAt.Equal(want) {
		t.Errorf("expected last_checked_at %v, got %v", want, e.LastCheckedAt)
	}
	locked := e.ThumbnailStats["t.png"].LockedAt
	if locked == nil || !locked.Equal(time.Date(2025, 3, 1, 8, 30, 0, 0, time.UTC)) {
		t.Errorf("unexpected locked_at %v", locked)
	}

	if err := s.SaveLoaded(res); err != nil {
		t.Fatal(err)
	}
	raw, _ := os.ReadFile(s.Path())
	if !strings.Contains(string(raw), `"last_checked_at":"2025-03-01T12:00:00.123456Z"`) {
		t.Errorf("expected RFC 3339 on save, got %s", raw)
	}
}

func TestTimestampUnmarshal(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    time.Time
		wantErr bool
	}{
		{"rfc3339", `"2025-03-01T12:00:00Z"`, time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC), false},
		{"rfc3339 with offset", `"2025-03-01T14:00:00+02:00"`, time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC), false},
		{"naive with micros", `"2025-03-01T12:00:00.123456"`, time.Date(2025, 3, 1, 12, 0, 0, 123456000, time.UTC), false},
		{"naive without fraction", `"2025-03-01T12:00:00"`, time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC), false},
		{"space separated", `"2025-03-01 12:00:00"`, time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC), false},
		{"empty string", `""`, time.Time{}, false},
		{"date only", `"2025-03-01"`, time.Time{}, true},
		{"number", `1740830400`, time.Time{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var ts Timestamp
			err := json.Unmarshal([]byte(tt.input), &ts)
			if (err != nil) != tt.wantErr {
				t.Fatalf("expected error=%v, got %v", tt.wantErr, err)
			}
			if !ts.Equal(tt.want) {
				t.Errorf("expected %v, got %v", tt.want, ts.Time)
			}
		})
	}
}

func TestSaveLoadedKeepsMalformedLinesInPlace(t *testing.T) {
	s := newTestStore(t)
	if err := os.MkdirAll(filepath.Dir(s.Path()), 0755); err != nil {
		t.Fatal(err)
	}
	lines := []string{
		`# hand note`,
		`{"script":"a.md","video":"a.mp4","title":"A"}`,
		`{"script":"b.md",`,
		`{"script":"c.md","video":"c.mp4","title":"C"}`,
		`not json`,
	}
	if err := os.WriteFile(s.Path(), []byte(strings.Join(lines, "\n")+"\n"), 0644); err != nil {
		t.Fatal(err)
	}

	res, err := s.Load()
	if err != nil {
		t.Fatal(err)
	}
	res.Entries[1].Title = "C2"
	res.Entries = append(res.Entries, &Entry{Script: "d.md", Video: "d.mp4", Title: "D"})
	if err := s.SaveLoaded(res); err != nil {
		t.Fatalf("SaveLoaded failed: %v", err)
	}

	raw, err := os.ReadFile(s.Path())
	if err != nil {
		t.Fatal(err)
	}
	got := strings.Split(strings.TrimSuffix(string(raw), "\n"), "\n")
	if len(got) != 6 {
		t.Fatalf("expected 6 lines, got %d:\n%s", len(got), raw)
	}
	checks := []string{`# hand note`, `"title":"A"`, `{"script":"b.md",`, `"title":"C2"`, `not json`, `"title":"D"`}
	for i, want := range checks {
		if !strings.Contains(got[i], want) {
			t.Errorf("line %d: expected %q, got %q", i+1, want, got[i])
		}
	}

	files, _ := os.ReadDir(filepath.Dir(s.Path()))
	if len(files) != 1 {
		t.Errorf("expected only the ledger file, found %d files", len(files))
	}
}
