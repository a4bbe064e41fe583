package campusAuth

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestSweeperRunsUntilStopped(t *testing.T) {
	var calls atomic.Int64
	s := startSweeper(5*time.Millisecond, func(context.Context) (int, error) {
		if calls.Add(1) == 2 {
			return 0, errors.New("store down")
		}
		return 1, nil
	}, discardLogger())

	deadline := time.Now().Add(2 * time.Second)
	for calls.Load() < 3 {
		if time.Now().After(deadline) {
			t.Fatalf("sweeper ran %d times, want at least 3", calls.Load())
		}
		time.Sleep(time.Millisecond)
	}

	s.stop()
	s.stop()
	after := calls.Load()
	time.Sleep(20 * time.Millisecond)
	if calls.Load() != after {
		t.Fatal("sweeper kept running after stop")
	}
}
