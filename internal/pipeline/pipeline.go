package pipeline

import (
	"errors"
	"time"

	"github.com/franz/faceless-shorts/internal/ledger"
	"github.com/franz/faceless-shorts/internal/metadata"
	"github.com/franz/faceless-shorts/internal/platform"
	"github.com/franz/faceless-shorts/internal/render"
	"github.com/franz/faceless-shorts/internal/report"
	"github.com/franz/faceless-shorts/internal/score"
	"github.com/franz/faceless-shorts/internal/store"
	"github.com/franz/faceless-shorts/internal/tracker"
)

var (
	// ErrNothingPending means every ledger entry is already uploaded
	ErrNothingPending = errors.New("no pending entries")

	// ErrUploadFailed wraps collaborator upload errors. The entry stays
	// pending so the next run retries it.
	ErrUploadFailed = errors.New("upload failed")
)

// UploadHistory records upload attempts; *store.Store satisfies it
type UploadHistory interface {
	InsertUploadAttempt(a *store.UploadAttempt) error
}

// Dirs are the working directories the pipeline reads and writes
type Dirs struct {
	Scripts    string
	Audio      string
	Video      string
	Thumbnails string
}

// Config wires the pipeline's collaborators. Collaborators a stage does not
// use may be nil: render needs Speaker, Renderer and Metadata; upload needs
// Uploader and Engine; track needs Tracker.
type Config struct {
	Dirs       Dirs
	Background string
	Ledger     *ledger.Store

	Speaker  render.Speaker
	Renderer render.Renderer
	Metadata metadata.Generator

	Uploader   platform.Uploader
	CategoryID string
	Privacy    string
	Engine     *score.Engine
	Rand       score.Rand
	MaxReuse   int

	Tracker *tracker.Tracker
	History UploadHistory // optional

	Logger *report.EventLogger
	Now    func() time.Time
}

// Pipeline runs the render, upload and track stages over the ledger
type Pipeline struct {
	cfg Config
	now func() time.Time
}

// New creates a pipeline
func New(cfg *Config) *Pipeline {
	c := *cfg
	if c.Now == nil {
		c.Now = time.Now
	}
	if c.MaxReuse <= 0 {
		c.MaxReuse = score.DefaultMaxReuse
	}
	if c.CategoryID == "" {
		c.CategoryID = "28"
	}
	if c.Privacy == "" {
		c.Privacy = "public"
	}
	return &Pipeline{cfg: c, now: c.Now}
}
