package score

import (
	"math"
	"sort"

	"github.com/franz/faceless-shorts/internal/ledger"
)

// Standing is one thumbnail's performance summed over every entry using it
type Standing struct {
	Thumbnail string
	Uses      int64
	Views     int64
	Score     float64 // views per use rounded to 2 decimals
	Locked    bool
	Entries   int
}

// Leaderboard aggregates thumbnail stats across all entries and ranks them.
// Ties are broken by views, then fewer uses, then thumbnail name so the
// ranking is deterministic. limit <= 0 returns every thumbnail.
func Leaderboard(entries []*ledger.Entry, limit int) []Standing {
	byThumb := make(map[string]*Standing)
	for _, e := range entries {
		for thumb, s := range e.ThumbnailStats {
			if s == nil {
				continue
			}
			st, ok := byThumb[thumb]
			if !ok {
				st = &Standing{Thumbnail: thumb}
				byThumb[thumb] = st
			}
			st.Uses += s.Uses
			st.Views += s.Views
			st.Locked = st.Locked || s.Locked
			st.Entries++
		}
	}

	out := make([]Standing, 0, len(byThumb))
	for _, st := range byThumb {
		if st.Uses > 0 {
			st.Score = math.Round(float64(st.Views)/float64(st.Uses)*100) / 100
		}
		out = append(out, *st)
	}

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.Views != b.Views {
			return a.Views > b.Views
		}
		if a.Uses != b.Uses {
			return a.Uses < b.Uses
		}
		return a.Thumbnail < b.Thumbnail
	})

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
