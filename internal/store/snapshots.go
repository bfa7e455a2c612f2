package store

import (
	"database/sql"
	"time"
)

// InsertSnapshot records a stats check
func (s *Store) InsertSnapshot(snap *Snapshot) error {
	res, err := s.db.Exec(`
		INSERT INTO stat_snapshots
		(script_id, video_id, views, likes, comments, growth_rate, checked_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, snap.ScriptID, snap.VideoID, snap.Views, snap.Likes, snap.Comments, snap.GrowthRate, snap.CheckedAt.UTC())
	if err != nil {
		return err
	}

	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	snap.ID = id
	return nil
}

// GetSnapshots returns every check of a video, oldest first
func (s *Store) GetSnapshots(videoID string) ([]*Snapshot, error) {
	rows, err := s.db.Query(`
		SELECT id, script_id, video_id, views, likes, comments, growth_rate, checked_at
		FROM stat_snapshots
		WHERE video_id = ?
		ORDER BY checked_at ASC, id ASC
	`, videoID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var snaps []*Snapshot
	for rows.Next() {
		var snap Snapshot
		if err := rows.Scan(&snap.ID, &snap.ScriptID, &snap.VideoID, &snap.Views, &snap.Likes,
			&snap.Comments, &snap.GrowthRate, &snap.CheckedAt); err != nil {
			return nil, err
		}
		snaps = append(snaps, &snap)
	}
	return snaps, rows.Err()
}

// GetLatestSnapshot returns the most recent check of a video, or nil
func (s *Store) GetLatestSnapshot(videoID string) (*Snapshot, error) {
	var snap Snapshot
	err := s.db.QueryRow(`
		SELECT id, script_id, video_id, views, likes, comments, growth_rate, checked_at
		FROM stat_snapshots
		WHERE video_id = ?
		ORDER BY checked_at DESC, id DESC
		LIMIT 1
	`, videoID).Scan(&snap.ID, &snap.ScriptID, &snap.VideoID, &snap.Views, &snap.Likes,
		&snap.Comments, &snap.GrowthRate, &snap.CheckedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &snap, nil
}

// CountSnapshotsSince returns how many checks happened at or after t
func (s *Store) CountSnapshotsSince(t time.Time) (int, error) {
	var count int
	err := s.db.QueryRow(`
		SELECT COUNT(*) FROM stat_snapshots WHERE checked_at >= ?
	`, t.UTC()).Scan(&count)
	return count, err
}
