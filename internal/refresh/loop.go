// Package refresh drives the periodic re-fetch of a nearby board
package refresh

import (
	"context"
	"log/slog"
	"time"

	"github.com/randytsao24/ventra/internal/models"
	"github.com/randytsao24/ventra/internal/nearby"
)

const DefaultInterval = 30 * time.Second

// Fetcher produces a fresh snapshot around center
type Fetcher func(ctx context.Context, center models.Coordinate) (nearby.Snapshot, error)

// Loop re-fetches on a fixed interval. The next tick is armed only after
// the previous fetch returns, so fetches never overlap.
type Loop struct {
	interval time.Duration
	fetch    Fetcher
	now      func() time.Time
}

// New creates a refresh loop
func New(interval time.Duration, fetch Fetcher) *Loop {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Loop{interval: interval, fetch: fetch, now: time.Now}
}

// Run fetches around center immediately and then on every tick, calling
// emit with each new board. A coordinate received on moves becomes the new
// center: estimates are recomputed from the last snapshot right away and
// the next fetch uses it. Run returns when ctx is done or emit fails.
func (l *Loop) Run(ctx context.Context, center models.Coordinate, moves <-chan models.Coordinate, emit func(nearby.Board) error) error {
	var (
		snap nearby.Snapshot
		have bool
	)

	tick := func() error {
		s, err := l.fetch(ctx, center)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			slog.Warn("refresh failed", "error", err)
			return nil
		}
		snap, have = s, true
		return emit(snap.Board(center, l.now()))
	}

	if err := tick(); err != nil {
		return err
	}

	timer := time.NewTimer(l.interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case c, ok := <-moves:
			if !ok {
				moves = nil
				continue
			}
			if !c.Valid() {
				continue
			}
			center = c
			if have {
				if err := emit(snap.Board(center, l.now())); err != nil {
					return err
				}
			}

		case <-timer.C:
			if err := tick(); err != nil {
				return err
			}
			timer.Reset(l.interval)
		}
	}
}
