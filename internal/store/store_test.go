package store

import (
	"path/filepath"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestStoreOpenAndMigrate(t *testing.T) {
	store := openTestStore(t)

	version, err := store.getSchemaVersion()
	if err != nil {
		t.Fatalf("failed to get schema version: %v", err)
	}
	if version != currentSchemaVersion {
		t.Errorf("expected schema version %d, got %d", currentSchemaVersion, version)
	}

	tables := []string{"stat_snapshots", "upload_attempts", "schema_version"}
	for _, table := range tables {
		var count int
		err := store.db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&count)
		if err != nil {
			t.Fatalf("failed to query table %s: %v", table, err)
		}
		if count != 1 {
			t.Errorf("expected table %s to exist", table)
		}
	}

	for _, index := range []string{"idx_snapshots_video_checked", "idx_uploads_script"} {
		var count int
		err := store.db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='index' AND name=?", index).Scan(&count)
		if err != nil {
			t.Fatalf("failed to query index %s: %v", index, err)
		}
		if count != 1 {
			t.Errorf("expected index %s to exist (schema v2)", index)
		}
	}

	if err := store.CheckIntegrity(); err != nil {
		t.Errorf("integrity check failed: %v", err)
	}
}

func TestReopenKeepsVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	for i := 0; i < 2; i++ {
		store, err := Open(path)
		if err != nil {
			t.Fatalf("open #%d failed: %v", i+1, err)
		}
		var rows int
		if err := store.db.QueryRow("SELECT COUNT(*) FROM schema_version").Scan(&rows); err != nil {
			t.Fatal(err)
		}
		if rows != currentSchemaVersion {
			t.Errorf("open #%d: expected %d version rows, got %d", i+1, currentSchemaVersion, rows)
		}
		store.Close()
	}
}

func TestSnapshotInsertAndRetrieve(t *testing.T) {
	store := openTestStore(t)
	base := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	first := &Snapshot{ScriptID: "s1", VideoID: "v1", Views: 100, CheckedAt: base}
	second := &Snapshot{ScriptID: "s1", VideoID: "v1", Views: 300, Likes: 4, GrowthRate: 100, CheckedAt: base.Add(2 * time.Hour)}
	other := &Snapshot{ScriptID: "s2", VideoID: "v2", Views: 7, CheckedAt: base}
	for _, snap := range []*Snapshot{first, second, other} {
		if err := store.InsertSnapshot(snap); err != nil {
			t.Fatalf("InsertSnapshot failed: %v", err)
		}
		if snap.ID == 0 {
			t.Error("expected snapshot ID to be set")
		}
	}

	snaps, err := store.GetSnapshots("v1")
	if err != nil {
		t.Fatalf("GetSnapshots failed: %v", err)
	}
	if len(snaps) != 2 {
		t.Fatalf("expected 2 snapshots, got %d", len(snaps))
	}
	if snaps[0].Views != 100 || snaps[1].Views != 300 {
		t.Errorf("snapshots out of order: %d, %d", snaps[0].Views, snaps[1].Views)
	}

	latest, err := store.GetLatestSnapshot("v1")
	if err != nil {
		t.Fatalf("GetLatestSnapshot failed: %v", err)
	}
	if latest == nil || latest.GrowthRate != 100 || latest.Likes != 4 {
		t.Errorf("unexpected latest snapshot: %+v", latest)
	}
	if !latest.CheckedAt.Equal(second.CheckedAt) {
		t.Errorf("expected checked_at %v, got %v", second.CheckedAt, latest.CheckedAt)
	}

	missing, err := store.GetLatestSnapshot("nope")
	if err != nil || missing != nil {
		t.Errorf("expected nil snapshot for unknown video, got %+v, %v", missing, err)
	}

	count, err := store.CountSnapshotsSince(base.Add(time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Errorf("expected 1 snapshot since +1h, got %d", count)
	}
}

func TestUploadAttempts(t *testing.T) {
	store := openTestStore(t)
	start := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	failed := &UploadAttempt{
		ScriptID:    "s1",
		VideoPath:   "videos/s1.mp4",
		StartedAt:   start,
		CompletedAt: start.Add(time.Second),
		Error:       "quota exceeded",
	}
	ok := &UploadAttempt{
		ScriptID:    "s1",
		VideoPath:   "videos/s1.mp4",
		Thumbnail:   "thumbnails/s1_a.png",
		VideoID:     "yt123",
		StartedAt:   start.Add(time.Minute),
		CompletedAt: start.Add(2 * time.Minute),
	}
	for _, a := range []*UploadAttempt{failed, ok} {
		if err := store.InsertUploadAttempt(a); err != nil {
			t.Fatalf("InsertUploadAttempt failed: %v", err)
		}
	}

	attempts, err := store.GetUploadAttempts("s1")
	if err != nil {
		t.Fatalf("GetUploadAttempts failed: %v", err)
	}
	if len(attempts) != 2 {
		t.Fatalf("expected 2 attempts, got %d", len(attempts))
	}
	if attempts[0].Error != "quota exceeded" || attempts[1].VideoID != "yt123" {
		t.Errorf("unexpected attempts: %+v, %+v", attempts[0], attempts[1])
	}

	failures, err := store.CountFailedUploads()
	if err != nil {
		t.Fatal(err)
	}
	if failures != 1 {
		t.Errorf("expected 1 failed upload, got %d", failures)
	}
}
