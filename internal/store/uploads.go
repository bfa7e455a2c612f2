package store

// InsertUploadAttempt records an upload try
func (s *Store) InsertUploadAttempt(a *UploadAttempt) error {
	res, err := s.db.Exec(`
		INSERT INTO upload_attempts
		(script_id, video_path, thumbnail, video_id, started_at, completed_at, error)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, a.ScriptID, a.VideoPath, a.Thumbnail, a.VideoID, a.StartedAt.UTC(), a.CompletedAt.UTC(), a.Error)
	if err != nil {
		return err
	}

	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	a.ID = id
	return nil
}

// GetUploadAttempts returns the attempts for a script, oldest first
func (s *Store) GetUploadAttempts(scriptID string) ([]*UploadAttempt, error) {
	rows, err := s.db.Query(`
		SELECT id, script_id, video_path, COALESCE(thumbnail, ''), COALESCE(video_id, ''),
		       started_at, completed_at, COALESCE(error, '')
		FROM upload_attempts
		WHERE script_id = ?
		ORDER BY started_at ASC, id ASC
	`, scriptID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var attempts []*UploadAttempt
	for rows.Next() {
		var a UploadAttempt
		if err := rows.Scan(&a.ID, &a.ScriptID, &a.VideoPath, &a.Thumbnail, &a.VideoID,
			&a.StartedAt, &a.CompletedAt, &a.Error); err != nil {
			return nil, err
		}
		attempts = append(attempts, &a)
	}
	return attempts, rows.Err()
}

// CountFailedUploads returns the number of attempts that ended in an error
func (s *Store) CountFailedUploads() (int, error) {
	var count int
	err := s.db.QueryRow(`
		SELECT COUNT(*) FROM upload_attempts WHERE error IS NOT NULL AND error != ''
	`).Scan(&count)
	return count, err
}

// CountUploadAttempts returns the number of recorded attempts
func (s *Store) CountUploadAttempts() (int, error) {
	var count int
	err := s.db.QueryRow("SELECT COUNT(*) FROM upload_attempts").Scan(&count)
	return count, err
}
