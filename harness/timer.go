package harness

import (
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
	"github.com/cockroachdb/errors"
)

// timerMinNanos/timerMaxNanos bound the histogram's tracked range: from
// one microsecond to one hour, wide enough to cover a single query
// against one block up to a full num_runs sweep without losing
// resolution at the low end, which is where most per-block calls land.
const (
	timerMinNanos = int64(time.Microsecond)
	timerMaxNanos = int64(time.Hour)
	timerSigFigs  = 3
)

// Timer measures wall-clock elapsed time across repeated start/stop
// cycles, accumulating every recorded interval into an HdrHistogram so
// the driver can report latency distributions across num_runs, the Go
// counterpart of Timer.hpp's RunStats/getElapsed pairing (minus the
// Intel PCM cache-miss fields, now CacheCounters's responsibility).
type Timer struct {
	hist      *hdrhistogram.Histogram
	startedAt time.Time
}

// NewTimer builds a Timer with an empty histogram.
func NewTimer() *Timer {
	return &Timer{hist: hdrhistogram.New(timerMinNanos, timerMaxNanos, timerSigFigs)}
}

// Start begins timing an interval, mirroring Timer::start().
func (t *Timer) Start() {
	t.startedAt = time.Now()
}

// Stop ends the interval begun by the last Start call, recording it into
// the histogram, and returns the elapsed duration, mirroring
// Timer::stop()/getElapsed().
func (t *Timer) Stop() (time.Duration, error) {
	elapsed := time.Since(t.startedAt)
	if err := t.hist.RecordValue(elapsed.Nanoseconds()); err != nil {
		return elapsed, errors.Wrap(err, "harness: record timer value")
	}
	return elapsed, nil
}

// Mean returns the mean of every interval recorded so far.
func (t *Timer) Mean() time.Duration {
	return time.Duration(t.hist.Mean())
}

// ValueAtQuantile returns the duration at the given quantile (0-100),
// matching hdrhistogram's own percentile convention.
func (t *Timer) ValueAtQuantile(q float64) time.Duration {
	return time.Duration(t.hist.ValueAtQuantile(q))
}

// Max returns the longest interval recorded so far.
func (t *Timer) Max() time.Duration {
	return time.Duration(t.hist.Max())
}
