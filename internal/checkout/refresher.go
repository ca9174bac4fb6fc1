package checkout

import (
	"context"
	"time"

	"go.uber.org/zap"
)

func (s *Session) startRefresherLocked() {
	ctx, cancel := context.WithCancel(context.Background())
	s.stop = cancel
	s.done = make(chan struct{})
	go s.runRefresher(ctx, s.opts.RefreshInterval, s.done)
}

// runRefresher re-checks the calculation every interval until the session closes.
func (s *Session) runRefresher(ctx context.Context, interval time.Duration, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.Dispatch(ctx, refreshTick{}); err != nil {
				s.log.Debug("Refresh tick rejected", zap.Error(err))
			}
		}
	}
}

func (s *Session) waitRefresher() {
	s.mu.Lock()
	done := s.done
	s.mu.Unlock()
	if done != nil {
		<-done
	}
}
