package score

import (
	"errors"

	"github.com/franz/faceless-shorts/internal/ledger"
)

// ErrNoCandidates is returned when an entry has no thumbnail to choose from.
// The caller must not attempt an upload.
var ErrNoCandidates = errors.New("no thumbnail candidates")

// DefaultMaxReuse is how many times a reuse-flagged thumbnail is preferred
const DefaultMaxReuse = 2

// Rand is the randomness the selector needs. *math/rand/v2.Rand satisfies it.
type Rand interface {
	IntN(n int) int
}

// Tier names the rule that produced a selection
type Tier string

const (
	TierLocked   Tier = "locked"
	TierReuse    Tier = "reuse"
	TierFresh    Tier = "enabled"
	TierFallback Tier = "fallback"
)

// Selection is the outcome of choosing a thumbnail
type Selection struct {
	Thumbnail string
	Tier      Tier
	Pool      int // size of the tier the thumbnail was drawn from
}

// Select picks a thumbnail from candidates. Rules are applied in order and the
// first non-empty pool wins; the pick inside a pool is uniform:
//  1. locked thumbnails
//  2. reuse && !disabled && uses < maxReuse
//  3. !disabled
//  4. every candidate
//
// Thumbnails missing from stats behave as a zero ThumbnailStat.
func Select(candidates []string, stats map[string]*ledger.ThumbnailStat, rng Rand, maxReuse int) (Selection, error) {
	if len(candidates) == 0 {
		return Selection{}, ErrNoCandidates
	}
	if maxReuse <= 0 {
		maxReuse = DefaultMaxReuse
	}

	lookup := func(thumb string) ledger.ThumbnailStat {
		if s, ok := stats[thumb]; ok && s != nil {
			return *s
		}
		return ledger.ThumbnailStat{}
	}

	var locked, reusable, enabled []string
	for _, c := range candidates {
		s := lookup(c)
		if s.Locked {
			locked = append(locked, c)
		}
		if s.Reuse && !s.Disabled && s.Uses < int64(maxReuse) {
			reusable = append(reusable, c)
		}
		if !s.Disabled {
			enabled = append(enabled, c)
		}
	}

	tiers := []struct {
		tier Tier
		pool []string
	}{
		{TierLocked, locked},
		{TierReuse, reusable},
		{TierFresh, enabled},
		{TierFallback, candidates},
	}
	for _, t := range tiers {
		if len(t.pool) > 0 {
			return Selection{
				Thumbnail: t.pool[rng.IntN(len(t.pool))],
				Tier:      t.tier,
				Pool:      len(t.pool),
			}, nil
		}
	}

	// unreachable: the fallback tier is never empty
	return Selection{}, ErrNoCandidates
}

// SelectForEntry runs Select over an entry's candidate thumbnails
func SelectForEntry(entry *ledger.Entry, rng Rand, maxReuse int) (Selection, error) {
	return Select(entry.Candidates(), entry.ThumbnailStats, rng, maxReuse)
}
