package score

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/franz/faceless-shorts/internal/util"
)

// TopPerformer is a snapshot taken when a thumbnail is first locked
type TopPerformer struct {
	Thumbnail string    `json:"thumbnail"`
	Score     float64   `json:"score"`
	Views     int64     `json:"views"`
	Uses      int64     `json:"uses"`
	Title     string    `json:"title"`
	VideoID   string    `json:"video_id"`
	Timestamp time.Time `json:"timestamp"`
}

// Archive is the append-only top-performers file: one JSON array, rewritten
// wholesale on every append. Records are never changed or removed.
type Archive struct {
	path        string
	retryConfig *util.RetryConfig
}

// NewArchive returns the archive stored at path
func NewArchive(path string, retryConfig *util.RetryConfig) *Archive {
	return &Archive{path: path, retryConfig: retryConfig}
}

// Path returns the archive file location
func (a *Archive) Path() string {
	return a.path
}

// Load returns all records in append order. A missing file is empty.
func (a *Archive) Load() ([]TopPerformer, error) {
	data, err := os.ReadFile(a.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read top performers: %w", err)
	}
	if len(data) == 0 {
		return nil, nil
	}

	var records []TopPerformer
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to parse top performers %s: %w", a.path, err)
	}
	return records, nil
}

// Append adds rec at the end of the archive
func (a *Archive) Append(rec TopPerformer) error {
	records, err := a.Load()
	if err != nil {
		return err
	}
	records = append(records, rec)

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode top performers: %w", err)
	}
	if err := util.WriteFileAtomic(a.path, append(data, '\n'), 0644, a.retryConfig); err != nil {
		return fmt.Errorf("failed to write top performers: %w", err)
	}
	return nil
}
