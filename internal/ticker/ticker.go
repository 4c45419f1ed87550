// Package ticker drives the periodic refresh of live view sessions.
package ticker

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/digiheadway/easy-call-track-cloud-sub003/internal/metrics"
)

// Refresher refetches the current page of every live session and returns
// how many failed
type Refresher interface {
	RefreshAll(ctx context.Context) int
}

// Ticker periodically refreshes sessions without resetting their page
type Ticker struct {
	refresher Refresher
	interval  time.Duration
	logger    zerolog.Logger
}

// NewTicker creates a new Ticker
func NewTicker(refresher Refresher, interval time.Duration, logger zerolog.Logger) *Ticker {
	return &Ticker{
		refresher: refresher,
		interval:  interval,
		logger:    logger.With().Str("component", "ticker").Logger(),
	}
}

// Start refreshes on every tick until ctx is cancelled
func (t *Ticker) Start(ctx context.Context) {
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	t.logger.Info().Dur("interval", t.interval).Msg("ticker started")

	for {
		select {
		case <-ctx.Done():
			t.logger.Info().Msg("ticker stopped")
			return

		case <-ticker.C:
			tickCtx, cancel := context.WithTimeout(ctx, t.interval)
			failed := t.refresher.RefreshAll(tickCtx)
			cancel()

			metrics.Get().RecordAutoRefresh(failed)
			if failed > 0 {
				t.logger.Warn().Int("failed", failed).Msg("auto refresh had failures")
			} else {
				t.logger.Debug().Msg("auto refresh completed")
			}
		}
	}
}
