package devserver

import (
	"log/slog"
	"sync"
	"time"

	"github.com/kkookk/kkookk/internal/api"
)

const defaultSweepInterval = 5 * time.Second

// ExpirePending marks lapsed pending issuance requests as expired and
// returns how many changed.
func (s *Store) ExpirePending() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	n := 0
	for _, req := range s.st.Issuances {
		if req.Status == statusPending && !req.ExpiresAt.After(now) {
			req.Status = statusExpired
			req.ProcessedAt = api.At(now)
			n++
		}
	}
	return n
}

// Sweeper periodically expires lapsed requests so pollers observe EXPIRED
// without an approver touching them.
type Sweeper struct {
	store    *Store
	interval time.Duration

	mu      sync.RWMutex
	stopCh  chan struct{}
	stopped chan struct{}
	running bool
}

// NewSweeper creates a sweeper for store.
func NewSweeper(store *Store, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = defaultSweepInterval
	}
	return &Sweeper{store: store, interval: interval}
}

// IsRunning returns true when the sweep loop is active.
func (w *Sweeper) IsRunning() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.running
}

// Start launches the sweep loop.
func (w *Sweeper) Start() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return
	}
	w.stopCh = make(chan struct{})
	w.stopped = make(chan struct{})
	w.running = true

	ticker := w.store.Clock().NewTicker(w.interval)
	go w.loop(ticker.Chan(), ticker.Stop, w.stopCh, w.stopped)
	slog.Debug("expiry sweeper started", "interval", w.interval.String())
}

// Stop halts the sweep loop and waits for it to exit.
func (w *Sweeper) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	stopCh := w.stopCh
	stopped := w.stopped
	w.running = false
	w.stopCh = nil
	w.stopped = nil
	w.mu.Unlock()

	close(stopCh)
	<-stopped
	slog.Debug("expiry sweeper stopped")
}

func (w *Sweeper) loop(tick <-chan time.Time, stopTicker func(), stopCh <-chan struct{}, stopped chan<- struct{}) {
	defer close(stopped)
	defer stopTicker()

	for {
		select {
		case <-stopCh:
			return
		case <-tick:
			if n := w.store.ExpirePending(); n > 0 {
				slog.Info("expired pending requests", "count", n)
			}
		}
	}
}
