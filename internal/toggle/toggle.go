// Package toggle implements optimistic on/off state for likes and follows.
//
// A Toggle moves Idle -> Pending(desired) -> Committed | RolledBack. While a request
// is pending further toggles of the same entity are refused, so a late response can
// never overwrite a newer intent.
package toggle

import (
	"context"
	"log/slog"
	"sync"

	"github.com/bloggera/bloggera/internal/domain"
	"github.com/bloggera/bloggera/internal/metrics"
)

// Phase of a Toggle.
type Phase int

const (
	Idle Phase = iota
	Pending
	Committed
	RolledBack
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case Pending:
		return "pending"
	case Committed:
		return "committed"
	case RolledBack:
		return "rolled_back"
	default:
		return "unknown"
	}
}

// State is the boolean and its dependent counter, e.g. liked and likeCount.
type State struct {
	Active bool `json:"active"`
	Count  int  `json:"count"`
}

// Flip returns the state after toggling, keeping Count non-negative.
func (s State) Flip() State {
	if s.Active {
		s.Active = false
		if s.Count > 0 {
			s.Count--
		}
		return s
	}
	s.Active = true
	s.Count++
	return s
}

// ApplyFunc sends the desired value to the server.
type ApplyFunc func(ctx context.Context, desired bool) error

// Listener observes every state change.
type Listener func(state State, phase Phase)

// Toggle is the optimistic state of one entity.
type Toggle struct {
	mu sync.Mutex

	kind  string
	id    string
	apply ApplyFunc

	state State
	phase Phase
	token uint64

	listeners []Listener
	logger    *slog.Logger
}

// New creates an idle toggle at initial.
func New(kind, id string, initial State, apply ApplyFunc, logger *slog.Logger) *Toggle {
	if logger == nil {
		logger = slog.Default()
	}
	return &Toggle{
		kind:   kind,
		id:     id,
		apply:  apply,
		state:  initial,
		logger: logger.With("toggle", kind, "entity_id", id),
	}
}

// ID returns the entity id.
func (t *Toggle) ID() string {
	return t.id
}

// State returns the current, possibly optimistic, state.
func (t *Toggle) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Phase returns the current phase.
func (t *Toggle) Phase() Phase {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.phase
}

// OnChange registers l for every subsequent change.
func (t *Toggle) OnChange(l Listener) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.listeners = append(t.listeners, l)
}

// Toggle flips the state immediately and sends the request in the background.
// It returns domain.ErrTogglePending while an earlier request is unresolved.
func (t *Toggle) Toggle(ctx context.Context) (*Result, error) {
	t.mu.Lock()
	if t.phase == Pending {
		t.mu.Unlock()
		return nil, domain.ErrTogglePending
	}
	prev := t.state
	next := prev.Flip()
	t.state = next
	t.phase = Pending
	t.token++
	token := t.token
	t.mu.Unlock()

	t.notify(next, Pending)

	res := &Result{optimistic: next, done: make(chan struct{})}
	go func() {
		err := t.apply(ctx, next.Active)
		res.final, res.err = t.settle(token, prev, err)
		close(res.done)
	}()
	return res, nil
}

func (t *Toggle) settle(token uint64, prev State, err error) (State, error) {
	t.mu.Lock()
	if token != t.token {
		// Reset replaced the state while the request was out.
		state := t.state
		t.mu.Unlock()
		return state, err
	}

	phase := Committed
	if err != nil {
		t.state = prev
		phase = RolledBack
	}
	t.phase = phase
	state := t.state
	t.mu.Unlock()

	if err != nil {
		metrics.RecordToggle(t.kind, "rolled_back")
		t.logger.Warn("toggle rolled back", "desired", !prev.Active, "error", err)
	} else {
		metrics.RecordToggle(t.kind, "committed")
	}
	t.notify(state, phase)
	return state, err
}

// Reset replaces the state with server truth and abandons any pending request.
func (t *Toggle) Reset(state State) {
	t.mu.Lock()
	t.state = state
	t.phase = Idle
	t.token++
	t.mu.Unlock()

	t.notify(state, Idle)
}

func (t *Toggle) notify(state State, phase Phase) {
	t.mu.Lock()
	listeners := append([]Listener(nil), t.listeners...)
	t.mu.Unlock()

	for _, l := range listeners {
		l(state, phase)
	}
}

// Result is the outcome of one Toggle call.
type Result struct {
	optimistic State
	final      State
	err        error
	done       chan struct{}
}

// Optimistic is the state shown before the server answered.
func (r *Result) Optimistic() State {
	return r.optimistic
}

// Done is closed once the request settled.
func (r *Result) Done() <-chan struct{} {
	return r.done
}

// Wait blocks until the request settles and returns the final state. On failure the
// state is the pre-toggle value and the error is the request's.
func (r *Result) Wait(ctx context.Context) (State, error) {
	select {
	case <-r.done:
		return r.final, r.err
	case <-ctx.Done():
		return r.optimistic, ctx.Err()
	}
}
