// Package poll provides the fixed-interval refresh primitive each view owns.
// One Poller drives one view; pollers never share state, so a failing view
// cannot stall its neighbours.
package poll

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/barbosa7/bookdesk/internal/metrics"
)

// RefreshFunc performs one fetch-and-apply cycle. seq is the cycle number,
// starting at 1 and strictly increasing; views use it to discard a slow
// response that arrives after a later cycle already landed. A non-nil return
// is logged and counted but never stops the schedule; the next tick is the
// retry.
type RefreshFunc func(ctx context.Context, seq uint64) error

// Poller invokes a RefreshFunc immediately and then on a fixed period until
// stopped. There is no back-off on failure; the interval is the retry.
type Poller struct {
	name     string
	interval time.Duration
	logger   *slog.Logger
}

// New creates a Poller. name labels log lines and metrics for the owning view.
func New(name string, interval time.Duration, logger *slog.Logger) *Poller {
	if interval <= 0 {
		interval = time.Second
	}
	return &Poller{
		name:     name,
		interval: interval,
		logger:   logger.With(slog.String("poller", name)),
	}
}

// Handle controls a running poll loop.
type Handle struct {
	cancel   context.CancelFunc
	done     chan struct{}
	stopOnce sync.Once
}

// Stop halts the schedule. It cancels the loop's context and waits for the
// loop goroutine to exit, so no new refresh invocation can start after Stop
// returns; a refresh already in flight is allowed to finish first (its context
// is cancelled, so network calls unwind promptly). Safe to call more than
// once.
func (h *Handle) Stop() {
	h.stopOnce.Do(func() {
		h.cancel()
		<-h.done
	})
}

// Stopped reports whether the loop has exited.
func (h *Handle) Stopped() bool {
	select {
	case <-h.done:
		return true
	default:
		return false
	}
}

// Start launches the poll loop: one immediate refresh, then one per interval.
// The loop also exits when ctx is cancelled.
func (p *Poller) Start(ctx context.Context, fn RefreshFunc) *Handle {
	ctx, cancel := context.WithCancel(ctx)
	h := &Handle{cancel: cancel, done: make(chan struct{})}

	go func() {
		defer close(h.done)

		var seq uint64

		run := func() {
			seq++
			start := time.Now()
			err := fn(ctx, seq)
			metrics.PollDuration.WithLabelValues(p.name).Observe(time.Since(start).Seconds())
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				metrics.PollCycles.WithLabelValues(p.name, "error").Inc()
				p.logger.Warn("refresh failed",
					slog.Uint64("seq", seq),
					slog.String("error", err.Error()),
				)
				return
			}
			metrics.PollCycles.WithLabelValues(p.name, "ok").Inc()
		}

		run()

		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				run()
			}
		}
	}()

	return h
}
