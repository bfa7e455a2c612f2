package ledger

import (
	"fmt"

	"github.com/franz/faceless-shorts/internal/util"
)

// Entry is one script/video unit in the ledger. JSON names match the
// hand-editable metadata.jsonl written by earlier versions of the pipeline.
type Entry struct {
	ScriptID    string   `json:"script_id,omitempty"`
	Script      string   `json:"script"`
	Video       string   `json:"video"`
	Audio       string   `json:"audio,omitempty"`
	Background  string   `json:"background,omitempty"`
	Thumbnail   string   `json:"thumbnail,omitempty"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
	Timestamp   string   `json:"timestamp,omitempty"`

	Thumbnails     []string                  `json:"thumbnails,omitempty"`
	ThumbnailStats map[string]*ThumbnailStat `json:"thumbnail_stats,omitempty"`

	Uploaded        bool   `json:"uploaded"`
	PlatformVideoID string `json:"youtube_video_id,omitempty"`

	Views         int64      `json:"views"`
	Likes         int64      `json:"likes"`
	Comments      int64      `json:"comments"`
	LastCheckedAt *Timestamp `json:"last_checked_at,omitempty"`
	GrowthRate    float64    `json:"growth_rate,omitempty"`

	ThumbnailUsed   string     `json:"thumbnail_used,omitempty"`
	ThumbnailUsedAt *Timestamp `json:"thumbnail_used_at,omitempty"`
}

// ThumbnailStat tracks how one thumbnail variant performed for an entry
type ThumbnailStat struct {
	Uses            int64      `json:"uses"`
	Views           int64      `json:"views"`
	Score           float64    `json:"score"`
	Locked          bool       `json:"locked,omitempty"`
	LockedAt        *Timestamp `json:"locked_at,omitempty"`
	Reuse           bool       `json:"reuse,omitempty"`
	Disabled        bool       `json:"disabled,omitempty"`
	LastUsedVideoID string     `json:"last_used_video_id,omitempty"`
	LastUsedAt      *Timestamp `json:"last_used_at,omitempty"`
}

// RecomputeScore sets Score to views per use, or 0 when unused
func (s *ThumbnailStat) RecomputeScore() {
	if s.Uses > 0 {
		s.Score = float64(s.Views) / float64(s.Uses)
		return
	}
	s.Score = 0.0
}

// Key returns the uniqueness key used by AppendIfAbsent
func (e *Entry) Key() (script, video string) {
	return e.Script, e.Video
}

// ID returns the stable script identifier, deriving it from the script path
// when the record predates the script_id field
func (e *Entry) ID() string {
	if e.ScriptID != "" {
		return e.ScriptID
	}
	return util.ScriptID(e.Script)
}

// Stat returns the stats for thumb, creating a zero record on first access
func (e *Entry) Stat(thumb string) *ThumbnailStat {
	if e.ThumbnailStats == nil {
		e.ThumbnailStats = make(map[string]*ThumbnailStat)
	}
	s, ok := e.ThumbnailStats[thumb]
	if !ok || s == nil {
		s = &ThumbnailStat{}
		e.ThumbnailStats[thumb] = s
	}
	return s
}

// Candidates returns the thumbnail identifiers eligible for this entry in
// ledger order, without duplicates. Entries written before multi-thumbnail
// support only carry the single thumbnail field.
func (e *Entry) Candidates() []string {
	seen := make(map[string]bool)
	var out []string
	add := func(t string) {
		if t == "" || seen[t] {
			return
		}
		seen[t] = true
		out = append(out, t)
	}
	for _, t := range e.Thumbnails {
		add(t)
	}
	if len(out) == 0 {
		add(e.Thumbnail)
	}
	return out
}

// MarkUploaded performs the one-way pending -> uploaded transition
func (e *Entry) MarkUploaded(videoID string) error {
	if e.Uploaded {
		return fmt.Errorf("entry %s already uploaded as %s", e.ID(), e.PlatformVideoID)
	}
	if videoID == "" {
		return fmt.Errorf("entry %s: empty platform video id", e.ID())
	}
	e.Uploaded = true
	e.PlatformVideoID = videoID
	return nil
}

// Validate checks the per-entry invariants
func (e *Entry) Validate() error {
	if e.Uploaded != (e.PlatformVideoID != "") {
		return fmt.Errorf("entry %s: uploaded=%t but youtube_video_id=%q", e.ID(), e.Uploaded, e.PlatformVideoID)
	}
	if e.Views < 0 || e.Likes < 0 || e.Comments < 0 {
		return fmt.Errorf("entry %s: negative counters", e.ID())
	}
	return nil
}

// NextPending returns the index of the first entry not yet uploaded, or -1
func NextPending(entries []*Entry) int {
	for i, e := range entries {
		if !e.Uploaded {
			return i
		}
	}
	return -1
}
