package harness

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTimerRecordsElapsedAboveZero(t *testing.T) {
	timer := NewTimer()
	timer.Start()
	time.Sleep(time.Millisecond)
	elapsed, err := timer.Stop()
	require.NoError(t, err)
	require.Greater(t, elapsed, time.Duration(0))
	require.Greater(t, timer.Mean(), time.Duration(0))
}

func TestTimerMaxTracksLongestInterval(t *testing.T) {
	timer := NewTimer()
	for i := 0; i < 3; i++ {
		timer.Start()
		time.Sleep(time.Millisecond)
		_, err := timer.Stop()
		require.NoError(t, err)
	}
	require.GreaterOrEqual(t, timer.Max(), timer.Mean())
}
