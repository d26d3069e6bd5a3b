package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jonboulle/clockwork"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

type countInput struct {
	ApprovedCount int `validate:"gte=0"`
}

// ValidateApprovedCount blocks negative counts before any network call.
// Zero is a valid count.
func ValidateApprovedCount(n int) error {
	if err := validate.Struct(countInput{ApprovedCount: n}); err != nil {
		return fmt.Errorf("%w: got %d", ErrInvalidCount, n)
	}
	return nil
}

// Row is one pending request in the approver queue.
type Row struct {
	Request
	InFlight bool
}

// QueueSnapshot is what an approver view renders.
type QueueSnapshot struct {
	StoreID     string
	Rows        []Row
	Err         error
	RefreshedAt time.Time
	Refreshes   int
}

// Decision is one approver action and how it ended.
type Decision struct {
	Time    time.Time
	Kind    Kind
	StoreID string
	ID      string
	Action  string
	Count   *int
	Reason  string
	Class   Class
	Err     error
}

// Recorder keeps a trail of approver decisions.
type Recorder interface {
	Record(d Decision) error
}

// Queue keeps the list of pending requests for one store and resolves them.
type Queue struct {
	flow     Flow
	source   Source
	storeID  string
	clock    clockwork.Clock
	interval time.Duration
	notifier Notifier
	recorder Recorder

	mu        sync.Mutex
	rows      []Request
	inFlight  map[string]bool
	seen      map[string]bool
	baseline  bool
	lastErr   error
	refreshed time.Time
	refreshes int
	// listSeq numbers refreshes as they start; applied is the newest one
	// whose result reached rows. Older results landing late are dropped.
	listSeq uint64
	applied uint64

	updates chan QueueSnapshot
	toasts  chan Toast
}

// QueueOption configures a Queue.
type QueueOption func(*Queue)

// WithQueueClock injects the clock driving the refresh cadence.
func WithQueueClock(c clockwork.Clock) QueueOption {
	return func(q *Queue) {
		if c != nil {
			q.clock = c
		}
	}
}

// WithQueueInterval overrides the refresh interval.
func WithQueueInterval(d time.Duration) QueueOption {
	return func(q *Queue) {
		if d > 0 {
			q.interval = d
		}
	}
}

// WithNotifier reports newly arrived requests.
func WithNotifier(n Notifier) QueueOption {
	return func(q *Queue) { q.notifier = n }
}

// WithRecorder logs every approve and reject outcome.
func WithRecorder(r Recorder) QueueOption {
	return func(q *Queue) { q.recorder = r }
}

// NewQueue creates an approver queue scoped to storeID.
func NewQueue(flow Flow, source Source, storeID string, opts ...QueueOption) *Queue {
	q := &Queue{
		flow:     flow,
		source:   source,
		storeID:  strings.TrimSpace(storeID),
		clock:    clockwork.NewRealClock(),
		interval: flow.pollInterval(),
		inFlight: make(map[string]bool),
		seen:     make(map[string]bool),
		updates:  make(chan QueueSnapshot, 1),
		toasts:   make(chan Toast, 16),
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Flow returns the flow configuration.
func (q *Queue) Flow() Flow { return q.flow }

// Updates delivers queue snapshots, latest wins.
func (q *Queue) Updates() <-chan QueueSnapshot { return q.updates }

// Toasts delivers notices. When nobody reads them, the oldest are dropped.
func (q *Queue) Toasts() <-chan Toast { return q.toasts }

// Snapshot returns the current queue state.
func (q *Queue) Snapshot() QueueSnapshot {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.snapshotLocked()
}

func (q *Queue) snapshotLocked() QueueSnapshot {
	rows := make([]Row, 0, len(q.rows))
	for _, r := range q.rows {
		rows = append(rows, Row{Request: r, InFlight: q.inFlight[r.ID]})
	}
	return QueueSnapshot{
		StoreID:     q.storeID,
		Rows:        rows,
		Err:         q.lastErr,
		RefreshedAt: q.refreshed,
		Refreshes:   q.refreshes,
	}
}

// Run refreshes immediately and then on every interval until ctx is done.
// Without a store id the queue stays suspended and makes no calls.
func (q *Queue) Run(ctx context.Context) error {
	if q.storeID == "" {
		return ErrNoStore
	}
	_ = q.Refresh(ctx)

	ticker := q.clock.NewTicker(q.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.Chan():
			_ = q.Refresh(ctx)
		}
	}
}

// Refresh re-lists the pending requests, replacing the whole set.
func (q *Queue) Refresh(ctx context.Context) error {
	if q.storeID == "" {
		return ErrNoStore
	}
	q.mu.Lock()
	q.listSeq++
	seq := q.listSeq
	q.mu.Unlock()

	rows, err := q.source.ListPending(ctx, q.storeID)
	if Classify(err) == ClassCanceled {
		return err
	}

	var arrived []Request
	q.mu.Lock()
	if seq < q.applied {
		q.mu.Unlock()
		slog.Debug("dropping stale queue refresh", "kind", q.flow.Kind, "store_id", q.storeID, "seq", seq)
		return err
	}
	q.applied = seq
	q.refreshes++
	if err != nil {
		q.lastErr = err
	} else {
		q.lastErr = nil
		q.rows = rows
		q.refreshed = q.clock.Now()
		for _, r := range rows {
			if !q.seen[r.ID] {
				q.seen[r.ID] = true
				if q.baseline {
					arrived = append(arrived, r)
				}
			}
		}
		q.baseline = true
	}
	q.mu.Unlock()

	if err != nil {
		slog.Debug("queue refresh failed", "kind", q.flow.Kind, "store_id", q.storeID, "error", err)
	}
	q.publish()

	if q.notifier != nil {
		for _, r := range arrived {
			if nerr := q.notifier.Notify(ctx, r); nerr != nil {
				slog.Warn("failed to notify new request", "kind", q.flow.Kind, "id", r.ID, "error", nerr)
			}
		}
	}
	return err
}

// Approve resolves a request positively. Counted flows must use ApproveCount.
func (q *Queue) Approve(ctx context.Context, id string) error {
	if q.flow.CountedApproval {
		q.toast(ToastFor("approve", id, ErrCountRequired))
		return ErrCountRequired
	}
	return q.act(ctx, Decision{ID: id, Action: "approve"}, func(ctx context.Context) error {
		return q.source.Approve(ctx, id, Approval{})
	})
}

// ApproveCount approves with a stamp count. A negative count is rejected
// locally without a network call.
func (q *Queue) ApproveCount(ctx context.Context, id string, count int) error {
	if err := ValidateApprovedCount(count); err != nil {
		q.toast(ToastFor("approve", id, err))
		return err
	}
	n := count
	return q.act(ctx, Decision{ID: id, Action: "approve", Count: &n}, func(ctx context.Context) error {
		return q.source.Approve(ctx, id, Approval{Count: &n})
	})
}

// Reject declines a request. A blank reason is replaced by the flow's
// default so the wire never carries an empty reason.
func (q *Queue) Reject(ctx context.Context, id, reason string) error {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = q.flow.DefaultRejectReason
	}
	return q.act(ctx, Decision{ID: id, Action: "reject", Reason: reason}, func(ctx context.Context) error {
		return q.source.Reject(ctx, id, reason)
	})
}

// InFlight reports whether id has an action running.
func (q *Queue) InFlight(id string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.inFlight[id]
}

func (q *Queue) act(ctx context.Context, d Decision, call func(context.Context) error) error {
	id, verb := d.ID, d.Action
	if !q.begin(id) {
		return ErrInFlight
	}
	q.publish()

	err := call(ctx)

	class := Classify(err)
	if class == ClassCanceled {
		q.end(id)
		q.publish()
		return err
	}

	q.toast(ToastFor(verb, id, err))
	if class != ClassLocal {
		q.record(d, class, err)
	}
	switch class {
	case ClassNone:
		slog.Info("request resolved from queue", "kind", q.flow.Kind, "id", id, "action", verb)
	case ClassConflict:
		slog.Info("request already resolved elsewhere", "kind", q.flow.Kind, "id", id, "action", verb, "error", err)
	default:
		slog.Warn("queue action failed", "kind", q.flow.Kind, "id", id, "action", verb, "class", class.String(), "error", err)
	}

	// The guard holds until the re-list lands so the resolved row cannot be
	// acted on again in between.
	if class == ClassNone || class == ClassConflict {
		if rerr := q.Refresh(ctx); rerr != nil && !errors.Is(rerr, context.Canceled) {
			slog.Debug("refresh after action failed", "kind", q.flow.Kind, "error", rerr)
		}
	}
	q.end(id)
	q.publish()
	return err
}

func (q *Queue) record(d Decision, class Class, err error) {
	if q.recorder == nil {
		return
	}
	d.Time = q.clock.Now()
	d.Kind = q.flow.Kind
	d.StoreID = q.storeID
	d.Class = class
	d.Err = err
	if rerr := q.recorder.Record(d); rerr != nil {
		slog.Warn("failed to record decision", "kind", q.flow.Kind, "id", d.ID, "error", rerr)
	}
}

func (q *Queue) begin(id string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.inFlight[id] {
		return false
	}
	q.inFlight[id] = true
	return true
}

func (q *Queue) end(id string) {
	q.mu.Lock()
	delete(q.inFlight, id)
	q.mu.Unlock()
}

func (q *Queue) publish() {
	snap := q.Snapshot()
	select {
	case <-q.updates:
	default:
	}
	select {
	case q.updates <- snap:
	default:
	}
}

func (q *Queue) toast(t Toast) {
	for {
		select {
		case q.toasts <- t:
			return
		default:
		}
		select {
		case <-q.toasts:
		default:
		}
	}
}
