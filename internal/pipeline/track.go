package pipeline

import (
	"context"
	"fmt"

	"github.com/franz/faceless-shorts/internal/tracker"
	"github.com/franz/faceless-shorts/internal/util"
)

// Track refreshes stats for every uploaded entry and saves the ledger.
// Per-entry fetch failures are in the result, not the error.
func (p *Pipeline) Track(ctx context.Context) (*tracker.Result, error) {
	loaded, err := p.cfg.Ledger.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load ledger: %w", err)
	}
	if len(loaded.Skipped) > 0 {
		util.WarnLog("%d malformed ledger lines are kept as is", len(loaded.Skipped))
	}

	result := p.cfg.Tracker.Update(ctx, loaded.Entries)
	if result.Updated == 0 {
		return result, nil
	}

	if err := p.cfg.Ledger.SaveLoaded(loaded); err != nil {
		return result, fmt.Errorf("failed to save ledger: %w", err)
	}
	return result, nil
}
