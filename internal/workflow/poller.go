package workflow

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// Snapshot is what a requester view renders.
type Snapshot struct {
	Request Request
	// Loaded is set once a request has been observed.
	Loaded    bool
	Remaining int
	Percent   float64
	// Err is the last recoverable fetch error; cleared by the next success.
	Err error
	// Fatal stops polling and renders the error view.
	Fatal   error
	Fetches int
}

// View returns the page for this snapshot.
func (s Snapshot) View() View {
	if s.Fatal != nil {
		return ViewError
	}
	if !s.Loaded {
		return ViewWaiting
	}
	return ViewFor(s.Request.Status)
}

// Done reports whether polling has ended for good.
func (s Snapshot) Done() bool {
	if s.Fatal != nil {
		return true
	}
	return s.Loaded && s.Request.Status.IsTerminal()
}

// Poller fetches one request on a fixed interval until it is terminal, and
// runs an independent one-second countdown against its expiry.
type Poller struct {
	flow     Flow
	fetcher  Fetcher
	id       string
	clock    clockwork.Clock
	interval time.Duration

	mu      sync.RWMutex
	snap    Snapshot
	forced  bool
	updates chan Snapshot
}

// PollerOption configures a Poller.
type PollerOption func(*Poller)

// WithClock injects the clock used for both cadences.
func WithClock(c clockwork.Clock) PollerOption {
	return func(p *Poller) {
		if c != nil {
			p.clock = c
		}
	}
}

// WithInterval overrides the poll interval.
func WithInterval(d time.Duration) PollerOption {
	return func(p *Poller) {
		if d > 0 {
			p.interval = d
		}
	}
}

// WithInitial seeds the snapshot, typically with the creation response, so
// the countdown is visible before the first poll returns.
func WithInitial(req Request) PollerOption {
	return func(p *Poller) {
		p.snap.Request = req
		p.snap.Loaded = true
	}
}

// NewPoller creates a poller for request id.
func NewPoller(flow Flow, fetcher Fetcher, id string, opts ...PollerOption) *Poller {
	p := &Poller{
		flow:     flow,
		fetcher:  fetcher,
		id:       id,
		clock:    clockwork.NewRealClock(),
		interval: flow.pollInterval(),
		updates:  make(chan Snapshot, 1),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.mu.Lock()
	p.recomputeLocked()
	p.mu.Unlock()
	return p
}

// ID returns the polled request id.
func (p *Poller) ID() string { return p.id }

// Flow returns the flow configuration.
func (p *Poller) Flow() Flow { return p.flow }

// Updates delivers snapshots, latest wins. The channel is never closed;
// check Snapshot.Done.
func (p *Poller) Updates() <-chan Snapshot { return p.updates }

// Snapshot returns the current snapshot.
func (p *Poller) Snapshot() Snapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.snap
}

// Run polls until the request is terminal, a fatal error occurs or ctx is
// done. Cancelling ctx only stops local timers; the server-side request keeps
// its own lifecycle.
func (p *Poller) Run(ctx context.Context) error {
	p.Poll(ctx)
	if err := p.finished(ctx); err != nil || p.Snapshot().Done() {
		return err
	}

	pollTicker := p.clock.NewTicker(p.interval)
	defer pollTicker.Stop()

	var countdown <-chan time.Time
	if p.flow.Window > 0 {
		countdownTicker := p.clock.NewTicker(CountdownTick)
		defer countdownTicker.Stop()
		countdown = countdownTicker.Chan()
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-pollTicker.Chan():
			p.Poll(ctx)
		case <-countdown:
			p.Tick(ctx)
		}
		if err := p.finished(ctx); err != nil || p.Snapshot().Done() {
			return err
		}
	}
}

func (p *Poller) finished(ctx context.Context) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	snap := p.Snapshot()
	if snap.Fatal != nil {
		return snap.Fatal
	}
	return nil
}

// Poll performs one scheduled fetch. It is a no-op once polling is done.
func (p *Poller) Poll(ctx context.Context) {
	if p.Snapshot().Done() {
		return
	}
	p.fetch(ctx)
}

// Tick advances the countdown. When the remaining time first reaches zero
// while the request is still pending, it fires exactly one immediate fetch
// so the server's expiry decision is observed without waiting for the next
// poll.
func (p *Poller) Tick(ctx context.Context) {
	p.mu.Lock()
	if p.snap.Done() {
		p.mu.Unlock()
		return
	}
	p.recomputeLocked()
	force := p.snap.Loaded &&
		p.snap.Request.HasExpiry() &&
		p.snap.Remaining == 0 &&
		!p.snap.Request.Status.IsTerminal() &&
		!p.forced
	if force {
		p.forced = true
	}
	p.mu.Unlock()
	p.publish()

	if force {
		slog.Debug("countdown reached zero, refetching", "kind", p.flow.Kind, "id", p.id)
		p.fetch(ctx)
	}
}

func (p *Poller) fetch(ctx context.Context) {
	req, err := p.fetcher.Fetch(ctx, p.id)
	class := Classify(err)
	if class == ClassCanceled || (err != nil && errors.Is(ctx.Err(), context.Canceled)) {
		return
	}

	p.mu.Lock()
	p.snap.Fetches++
	switch class {
	case ClassNone:
		if p.snap.Loaded && p.snap.Request.Status.IsTerminal() {
			break
		}
		p.snap.Request = req
		p.snap.Loaded = true
		p.snap.Err = nil
	case ClassNotFound, ClassLocal:
		p.snap.Fatal = err
	default:
		p.snap.Err = err
	}
	p.recomputeLocked()
	snap := p.snap
	p.mu.Unlock()

	switch {
	case snap.Fatal != nil:
		slog.Warn("polling stopped", "class", class.String(), "kind", p.flow.Kind, "id", p.id, "error", snap.Fatal)
	case err != nil:
		slog.Debug("poll failed, will retry", "kind", p.flow.Kind, "id", p.id, "class", class.String(), "error", err)
	case snap.Request.Status.IsTerminal():
		slog.Info("request resolved", "kind", p.flow.Kind, "id", p.id, "status", snap.Request.Status)
	}
	p.publish()
}

func (p *Poller) recomputeLocked() {
	if !p.snap.Request.HasExpiry() {
		p.snap.Remaining = 0
		p.snap.Percent = 0
		return
	}
	p.snap.Remaining = Remaining(p.snap.Request.ExpiresAt, p.clock.Now())
	p.snap.Percent = Percent(p.snap.Remaining, p.flow.Window)
}

func (p *Poller) publish() {
	snap := p.Snapshot()
	select {
	case <-p.updates:
	default:
	}
	select {
	case p.updates <- snap:
	default:
	}
}
