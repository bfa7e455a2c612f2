package tracker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/franz/faceless-shorts/internal/ledger"
	"github.com/franz/faceless-shorts/internal/report"
	"github.com/franz/faceless-shorts/internal/store"
	"github.com/franz/faceless-shorts/internal/util"
)

// DefaultGrowthAlert is the views-per-hour rate above which a video is flagged
const DefaultGrowthAlert = 50.0

// ErrTransientFetch wraps any failure of the stats collaborator. It is
// isolated to the entry it happened on and never retried here.
var ErrTransientFetch = errors.New("stats fetch failed")

// Stats are the public counters of one uploaded video
type Stats struct {
	Views    int64
	Likes    int64
	Comments int64
}

// StatsFetcher reads current counters from the video platform
type StatsFetcher interface {
	FetchStats(ctx context.Context, videoID string) (Stats, error)
}

// History records stats checks; *store.Store satisfies it
type History interface {
	InsertSnapshot(snap *store.Snapshot) error
}

// Config holds tracker configuration
type Config struct {
	Fetcher     StatsFetcher
	GrowthAlert float64
	History     History // optional
	Logger      *report.EventLogger
	Now         func() time.Time
}

// Tracker refreshes stats for uploaded entries
type Tracker struct {
	fetcher     StatsFetcher
	growthAlert float64
	history     History
	logger      *report.EventLogger
	now         func() time.Time
}

// New creates a tracker
func New(cfg *Config) *Tracker {
	if cfg.GrowthAlert <= 0 {
		cfg.GrowthAlert = DefaultGrowthAlert
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = report.NullLogger()
	}
	return &Tracker{
		fetcher:     cfg.Fetcher,
		growthAlert: cfg.GrowthAlert,
		history:     cfg.History,
		logger:      cfg.Logger,
		now:         cfg.Now,
	}
}

// Alert is a growth rate above the configured threshold
type Alert struct {
	ScriptID string
	VideoID  string
	NewViews int64
	Hours    float64
	Rate     float64
}

// Result summarises one tracking pass
type Result struct {
	Checked int
	Updated int
	Alerts  []Alert
	Errors  []error
}

// Update refreshes every uploaded entry in place. A failed fetch is recorded
// in Result.Errors and the remaining entries are still processed.
func (t *Tracker) Update(ctx context.Context, entries []*ledger.Entry) *Result {
	result := &Result{}

	for _, entry := range entries {
		if !entry.Uploaded || entry.PlatformVideoID == "" {
			continue
		}
		if ctx.Err() != nil {
			result.Errors = append(result.Errors, fmt.Errorf("tracking interrupted: %w", ctx.Err()))
			return result
		}
		result.Checked++

		alert, err := t.updateEntry(ctx, entry)
		if err != nil {
			util.WarnLog("Stats for %s (%s): %v", entry.ID(), entry.PlatformVideoID, err)
			t.logger.LogStats(entry.ID(), entry.PlatformVideoID, 0, 0, err)
			result.Errors = append(result.Errors, err)
			continue
		}
		result.Updated++
		if alert != nil {
			result.Alerts = append(result.Alerts, *alert)
		}
	}

	return result
}

func (t *Tracker) updateEntry(ctx context.Context, entry *ledger.Entry) (*Alert, error) {
	videoID := entry.PlatformVideoID

	stats, err := t.fetcher.FetchStats(ctx, videoID)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrTransientFetch, videoID, err)
	}
	if stats.Views < 0 || stats.Likes < 0 || stats.Comments < 0 {
		return nil, fmt.Errorf("%w: %s: negative counters", ErrTransientFetch, videoID)
	}

	now := t.now().UTC()
	prevViews := entry.Views
	prevCheck := entry.LastCheckedAt

	entry.Views = stats.Views
	entry.Likes = stats.Likes
	entry.Comments = stats.Comments
	entry.LastCheckedAt = ledger.At(now)

	delta := stats.Views - prevViews
	if delta > 0 && entry.ThumbnailUsed != "" {
		stat := entry.Stat(entry.ThumbnailUsed)
		stat.Views += delta
		stat.RecomputeScore()
	}

	var alert *Alert
	var rate float64
	if prevCheck != nil {
		hours := now.Sub(prevCheck.Time).Hours()
		if hours > 0 {
			rate = float64(delta) / hours
			entry.GrowthRate = rate
			if rate > t.growthAlert {
				alert = &Alert{
					ScriptID: entry.ID(),
					VideoID:  videoID,
					NewViews: delta,
					Hours:    hours,
					Rate:     rate,
				}
				util.WarnLog("Growth alert: %s gained %d views in %.2fh (%.1f/h)", videoID, delta, hours, rate)
				t.logger.LogGrowthAlert(entry.ID(), videoID, delta, hours, rate)
			}
		}
	}

	util.DebugLog("Stats for %s: views=%d likes=%d comments=%d", videoID, stats.Views, stats.Likes, stats.Comments)
	t.logger.LogStats(entry.ID(), videoID, stats.Views, rate, nil)

	if t.history != nil {
		snap := &store.Snapshot{
			ScriptID:   entry.ID(),
			VideoID:    videoID,
			Views:      stats.Views,
			Likes:      stats.Likes,
			Comments:   stats.Comments,
			GrowthRate: rate,
			CheckedAt:  now,
		}
		if err := t.history.InsertSnapshot(snap); err != nil {
			// Non-fatal: the ledger already holds the counts.
			util.WarnLog("Failed to record stats snapshot for %s: %v", videoID, err)
		}
	}

	return alert, nil
}
