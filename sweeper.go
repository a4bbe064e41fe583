package campusAuth

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// sweeper periodically purges the refresh store from one goroutine.
type sweeper struct {
	interval time.Duration
	sweep    func(ctx context.Context) (int, error)
	logger   *slog.Logger

	cancel   context.CancelFunc
	done     chan struct{}
	stopOnce sync.Once
}

func startSweeper(interval time.Duration, sweep func(ctx context.Context) (int, error), logger *slog.Logger) *sweeper {
	ctx, cancel := context.WithCancel(context.Background())
	s := &sweeper{
		interval: interval,
		sweep:    sweep,
		logger:   logger,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	go s.run(ctx)
	return s
}

func (s *sweeper) run(ctx context.Context) {
	defer close(s.done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.sweep(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				s.logger.Warn("campusAuth: refresh sweep failed", "error", err)
				continue
			}
			if n > 0 {
				s.logger.Debug("campusAuth: refresh sweep", "removed", n)
			}
		}
	}
}

// stop cancels the loop and waits for an in-flight sweep to return.
func (s *sweeper) stop() {
	s.stopOnce.Do(func() {
		s.cancel()
		<-s.done
	})
}
