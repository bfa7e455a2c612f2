package score

import (
	"fmt"
	"time"

	"github.com/franz/faceless-shorts/internal/ledger"
	"github.com/franz/faceless-shorts/internal/report"
	"github.com/franz/faceless-shorts/internal/util"
)

// DefaultLockScore is the views-per-use score at which a thumbnail is locked
const DefaultLockScore = 4.5

// Engine records thumbnail usage and promotes thumbnails that perform well
type Engine struct {
	lockScore float64
	archive   *Archive
	logger    *report.EventLogger
	now       func() time.Time
}

// EngineConfig holds promotion engine configuration
type EngineConfig struct {
	LockScore float64 // 0 = DefaultLockScore
	Archive   *Archive
	Logger    *report.EventLogger
	Now       func() time.Time // nil = time.Now().UTC()
}

// NewEngine creates a promotion Engine
func NewEngine(cfg *EngineConfig) *Engine {
	if cfg.LockScore <= 0 {
		cfg.LockScore = DefaultLockScore
	}
	if cfg.Now == nil {
		cfg.Now = func() time.Time { return time.Now().UTC() }
	}
	return &Engine{
		lockScore: cfg.LockScore,
		archive:   cfg.Archive,
		logger:    cfg.Logger,
		now:       cfg.Now,
	}
}

// Usage describes the effect of one RecordUsage call
type Usage struct {
	Thumbnail string
	Uses      int64
	Score     float64
	Promoted  bool
	Record    *TopPerformer // set when Promoted
}

// RecordUsage books one upload of thumb for entry under videoID, recomputes
// the score and locks the thumbnail when it reaches the lock score.
//
// The score uses the views already attributed to the thumbnail by the stats
// tracker, so a thumbnail can only be promoted on an upload that follows a
// tracking pass. Locking is one-way.
//
// The archive record is written before the lock is set: if the archive write
// fails the usage is still counted, the thumbnail stays unlocked and the
// error is returned, so a later usage can promote it again.
func (e *Engine) RecordUsage(entry *ledger.Entry, thumb, videoID string) (*Usage, error) {
	if thumb == "" {
		return nil, ErrNoCandidates
	}
	now := e.now()

	stat := entry.Stat(thumb)
	stat.Uses++
	stat.LastUsedVideoID = videoID
	stat.LastUsedAt = ledger.At(now)
	stat.RecomputeScore()

	usage := &Usage{
		Thumbnail: thumb,
		Uses:      stat.Uses,
		Score:     stat.Score,
	}

	if stat.Locked || stat.Score < e.lockScore {
		return usage, nil
	}

	rec := TopPerformer{
		Thumbnail: thumb,
		Score:     stat.Score,
		Views:     stat.Views,
		Uses:      stat.Uses,
		Title:     entry.Title,
		VideoID:   videoID,
		Timestamp: now,
	}
	if e.archive != nil {
		if err := e.archive.Append(rec); err != nil {
			return usage, fmt.Errorf("failed to archive top performer %s: %w", thumb, err)
		}
	}

	stat.Locked = true
	stat.LockedAt = ledger.At(now)
	usage.Promoted = true
	usage.Record = &rec

	util.SuccessLog("Thumbnail locked: %s (score %.2f >= %.2f)", thumb, stat.Score, e.lockScore)
	e.logger.LogPromote(entry.ID(), videoID, thumb, stat.Score)

	return usage, nil
}

// LockScore returns the promotion threshold in use
func (e *Engine) LockScore() float64 {
	return e.lockScore
}
