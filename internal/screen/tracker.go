package screen

import (
	"context"
	"sync"
	"time"
)

// workTracker counts outstanding fetch flows and scheduled alerts so that
// shutdown and tests can wait for the screen to settle.
type workTracker struct {
	mu    sync.Mutex
	count int64
}

func (t *workTracker) Add(n int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.count += n
}

func (t *workTracker) Done() {
	t.Add(-1)
}

func (t *workTracker) Count() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.count
}

// WaitForZero blocks until the count reaches zero or ctx is cancelled.
// checkInterval is how often to re-check the count.
func (t *workTracker) WaitForZero(ctx context.Context, checkInterval time.Duration) error {
	ticker := time.NewTicker(checkInterval)
	defer ticker.Stop()
	for {
		if t.Count() == 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
