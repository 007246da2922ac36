package backfill

import (
	"context"
	"math/rand"
	"time"

	"github.com/tonearc/chartpulse/internal/metrics"
)

// Sleeper pauses between outbound requests so the chart site is never
// hammered.
type Sleeper interface {
	Sleep(ctx context.Context)
}

type randomSleeper struct {
	min time.Duration
	max time.Duration
}

// NewRandomSleeper builds a Sleeper drawing uniformly from [min, max].
// Swapped bounds are corrected rather than rejected.
func NewRandomSleeper(min, max time.Duration) Sleeper {
	if min < 0 {
		min = 0
	}
	if max < min {
		min, max = max, min
	}
	return &randomSleeper{min: min, max: max}
}

// Sleep blocks for a randomized delay or until the context finishes.
func (s *randomSleeper) Sleep(ctx context.Context) {
	delay := s.min
	if span := s.max - s.min; span > 0 {
		delay += time.Duration(rand.Int63n(int64(span) + 1))
	}
	if delay <= 0 {
		return
	}
	metrics.ObservePolitenessDelay(delay)

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

// noopSleeper is used in tests to keep runs fast.
type noopSleeper struct{}

func (noopSleeper) Sleep(context.Context) {}
