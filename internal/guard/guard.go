// Package guard gates views behind the presence of a session.
package guard

import (
	"context"
	"log/slog"
	"sync"

	"github.com/bloggera/bloggera/internal/domain"
	"github.com/bloggera/bloggera/internal/session"
)

// Landing is the unauthenticated landing view.
const Landing = "/start"

// Outcome of a guard decision.
type Outcome int

const (
	// Allow renders the guarded view.
	Allow Outcome = iota
	// Redirect sends the viewer to the landing view.
	Redirect
)

func (o Outcome) String() string {
	if o == Allow {
		return "allow"
	}
	return "redirect"
}

// Decision is the single outcome committed for a guarded view.
type Decision struct {
	Outcome  Outcome
	Session  *domain.Session
	Location string
}

// SessionSource is the session store as seen by the guard.
type SessionSource interface {
	Current() (*domain.Session, bool)
	Subscribe(fn session.Listener) func()
}

// Guard decides whether guarded views may render.
type Guard struct {
	src     SessionSource
	landing string
	logger  *slog.Logger
}

// New creates a guard redirecting to landing ("" means Landing).
func New(src SessionSource, landing string, logger *slog.Logger) *Guard {
	if landing == "" {
		landing = Landing
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Guard{src: src, landing: landing, logger: logger.With("component", "guard")}
}

// Landing returns the redirect target.
func (g *Guard) Landing() string {
	return g.landing
}

// Resolve decides from the current session.
func (g *Guard) Resolve(_ context.Context) Decision {
	if sess, ok := g.src.Current(); ok && sess.IsValid() {
		return Decision{Outcome: Allow, Session: sess}
	}
	return Decision{Outcome: Redirect, Location: g.landing}
}

// View is a guarded view. Its callbacks are never invoked concurrently.
type View interface {
	// Render draws the view for sess. It is called again only when the user changes.
	Render(ctx context.Context, sess *domain.Session)
	// Redirect abandons the view in favor of location.
	Redirect(ctx context.Context, location string)
}

// Mounted is a view under guard supervision.
type Mounted struct {
	guard *Guard
	view  View
	ctx   context.Context

	mu       sync.Mutex
	rendered string
	done     bool
	running  bool
	pending  bool
	doneCh   chan struct{}
	decision Decision

	unsubscribe func()
}

// Mount evaluates the session and renders or redirects view, then keeps re-evaluating
// on every session change until the view is redirected or Unmount is called.
func (g *Guard) Mount(ctx context.Context, view View) *Mounted {
	m := &Mounted{
		guard:  g,
		view:   view,
		ctx:    ctx,
		doneCh: make(chan struct{}),
	}

	// Subscribe before the first read so a login landing mid-mount is not lost.
	cancel := g.src.Subscribe(func(*domain.Session) { m.evaluate() })
	var once sync.Once
	unsubscribe := func() { once.Do(cancel) }
	m.mu.Lock()
	m.unsubscribe = unsubscribe
	m.mu.Unlock()

	m.evaluate()

	// A redirect during Subscribe ran before unsubscribe was recorded.
	m.mu.Lock()
	finished := m.done
	m.mu.Unlock()
	if finished {
		unsubscribe()
	}
	return m
}

// evaluate reads the live session rather than the notified value so that out-of-order
// notifications cannot commit a stale outcome. Callbacks run outside m.mu; a
// notification arriving while one is running is folded into a re-evaluation by the
// goroutine already running.
func (m *Mounted) evaluate() {
	m.mu.Lock()
	if m.running {
		m.pending = true
		m.mu.Unlock()
		return
	}
	m.running = true

	for {
		m.pending = false
		if m.done {
			break
		}

		d := m.guard.Resolve(m.ctx)
		m.decision = d

		var callback func()
		switch d.Outcome {
		case Allow:
			if m.rendered != d.Session.UserID {
				m.rendered = d.Session.UserID
				sess := d.Session
				callback = func() {
					m.guard.logger.DebugContext(m.ctx, "rendering guarded view", "user_id", sess.UserID)
					m.view.Render(m.ctx, sess)
				}
			}
		case Redirect:
			m.done = true
			close(m.doneCh)
			wasRendered := m.rendered != ""
			unsubscribe := m.unsubscribe
			callback = func() {
				m.guard.logger.DebugContext(m.ctx, "redirecting guarded view", "location", d.Location, "was_rendered", wasRendered)
				m.view.Redirect(m.ctx, d.Location)
				if unsubscribe != nil {
					unsubscribe()
				}
			}
		}

		if callback != nil {
			m.mu.Unlock()
			callback()
			m.mu.Lock()
		}
		if !m.pending {
			break
		}
	}

	m.running = false
	m.mu.Unlock()
}

// Decision returns the latest committed decision.
func (m *Mounted) Decision() Decision {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.decision
}

// Done is closed once the view has been redirected or unmounted.
func (m *Mounted) Done() <-chan struct{} {
	return m.doneCh
}

// Unmount stops watching the session. The view receives no further callbacks.
func (m *Mounted) Unmount() {
	m.mu.Lock()
	unsubscribe := m.unsubscribe
	if !m.done {
		m.done = true
		close(m.doneCh)
	}
	m.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
}
