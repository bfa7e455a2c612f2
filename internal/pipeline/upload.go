package pipeline

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"time"

	"github.com/franz/faceless-shorts/internal/ledger"
	"github.com/franz/faceless-shorts/internal/platform"
	"github.com/franz/faceless-shorts/internal/report"
	"github.com/franz/faceless-shorts/internal/score"
	"github.com/franz/faceless-shorts/internal/store"
	"github.com/franz/faceless-shorts/internal/util"
)

// processRand draws from the process-wide math/rand/v2 source
type processRand struct{}

func (processRand) IntN(n int) int { return rand.IntN(n) }

// UploadResult describes a completed upload
type UploadResult struct {
	Entry     *ledger.Entry
	VideoID   string
	Selection score.Selection
	Usage     *score.Usage
}

// UploadNext publishes the first pending ledger entry with a selected
// thumbnail, records the usage and saves the ledger. It returns
// ErrNothingPending when every entry is uploaded, and an ErrUploadFailed
// error, leaving the ledger untouched, when the platform rejects the video.
func (p *Pipeline) UploadNext(ctx context.Context) (*UploadResult, error) {
	loaded, err := p.cfg.Ledger.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load ledger: %w", err)
	}
	entries := loaded.Entries
	if len(loaded.Skipped) > 0 {
		util.WarnLog("%d malformed ledger lines are kept as is", len(loaded.Skipped))
	}

	idx := ledger.NextPending(entries)
	if idx < 0 {
		return nil, ErrNothingPending
	}
	entry := entries[idx]
	id := entry.ID()

	rng := p.cfg.Rand
	if rng == nil {
		rng = processRand{}
	}
	sel, err := score.SelectForEntry(entry, rng, p.cfg.MaxReuse)
	if err != nil {
		p.cfg.Logger.LogError(report.EventSelect, id, err)
		return nil, fmt.Errorf("%s: %w", id, err)
	}
	util.InfoLog("Selected thumbnail %s for %s (%s, %d candidates in tier)", sel.Thumbnail, id, sel.Tier, sel.Pool)
	p.cfg.Logger.LogSelect(id, sel.Thumbnail, string(sel.Tier), len(entry.Candidates()))

	started := p.now()
	videoID, err := p.cfg.Uploader.Upload(ctx, platform.UploadRequest{
		VideoPath:   entry.Video,
		Title:       entry.Title,
		Description: entry.Description,
		Tags:        entry.Tags,
		CategoryID:  p.cfg.CategoryID,
		Privacy:     p.cfg.Privacy,
	})
	if err != nil {
		p.cfg.Logger.LogUpload(id, entry.Video, "", p.now().Sub(started), err)
		p.recordAttempt(entry, sel.Thumbnail, "", started, err)
		return nil, fmt.Errorf("%w: %s: %w", ErrUploadFailed, id, err)
	}
	p.cfg.Logger.LogUpload(id, entry.Video, videoID, p.now().Sub(started), nil)
	util.SuccessLog("Uploaded %s as %s", id, videoID)

	if _, statErr := os.Stat(sel.Thumbnail); statErr != nil {
		util.WarnLog("Thumbnail %s: %v", sel.Thumbnail, statErr)
		p.cfg.Logger.LogThumbnailSet(videoID, sel.Thumbnail, statErr)
	} else if err := p.cfg.Uploader.SetThumbnail(ctx, videoID, sel.Thumbnail); err != nil {
		util.WarnLog("Failed to set thumbnail for %s: %v", videoID, err)
		p.cfg.Logger.LogThumbnailSet(videoID, sel.Thumbnail, err)
	} else {
		p.cfg.Logger.LogThumbnailSet(videoID, sel.Thumbnail, nil)
	}

	if err := entry.MarkUploaded(videoID); err != nil {
		return nil, err
	}
	now := p.now().UTC()
	entry.ThumbnailUsed = sel.Thumbnail
	entry.ThumbnailUsedAt = ledger.At(now)

	var usage *score.Usage
	var usageErr error
	if p.cfg.Engine != nil {
		usage, usageErr = p.cfg.Engine.RecordUsage(entry, sel.Thumbnail, videoID)
		if usageErr != nil {
			util.WarnLog("Usage for %s: %v", sel.Thumbnail, usageErr)
		}
	}

	if err := p.cfg.Ledger.SaveLoaded(loaded); err != nil {
		// The video is live but the ledger does not know it yet.
		util.ErrorLog("Video %s uploaded but ledger save failed; add youtube_video_id by hand", videoID)
		return nil, fmt.Errorf("save ledger after uploading %s: %w", videoID, errors.Join(err, usageErr))
	}
	p.recordAttempt(entry, sel.Thumbnail, videoID, started, nil)

	return &UploadResult{
		Entry:     entry,
		VideoID:   videoID,
		Selection: sel,
		Usage:     usage,
	}, nil
}

func (p *Pipeline) recordAttempt(entry *ledger.Entry, thumb, videoID string, started time.Time, uploadErr error) {
	if p.cfg.History == nil {
		return
	}
	a := &store.UploadAttempt{
		ScriptID:    entry.ID(),
		VideoPath:   entry.Video,
		Thumbnail:   thumb,
		VideoID:     videoID,
		StartedAt:   started,
		CompletedAt: p.now(),
	}
	if uploadErr != nil {
		a.Error = uploadErr.Error()
	}
	if err := p.cfg.History.InsertUploadAttempt(a); err != nil {
		util.WarnLog("Failed to record upload attempt for %s: %v", entry.ID(), err)
	}
}
