// Package readiness approximates "caught up with the event backlog" by
// watching for quiescence on the consumed topics. The bus exposes no explicit
// end-of-backlog marker, so a quiet window is the best signal available; a
// stricter design would compare consumed offsets against the topic
// high-water-mark at subscribe time.
package readiness

import (
	"sync"
	"time"
)

// DefaultQuietWindow is how long the consumed topics must stay silent before
// the gate declares the replay complete.
const DefaultQuietWindow = 5 * time.Second

// Gate transitions once from waiting to ready after a quiet window with no
// observed messages. The transition is terminal: later messages do not revert
// it.
type Gate struct {
	mu     sync.Mutex
	timer  *time.Timer
	window time.Duration
	done   chan struct{}
	ready  bool
}

// NewGate starts the idle timer immediately, so an empty backlog still
// converges to ready after one quiet window. A non-positive window selects
// DefaultQuietWindow.
func NewGate(window time.Duration) *Gate {
	if window <= 0 {
		window = DefaultQuietWindow
	}
	g := &Gate{
		window: window,
		done:   make(chan struct{}),
	}
	g.timer = time.AfterFunc(window, g.fire)
	return g
}

// Observe records message arrival, deferring the quiet window. Calls after the
// gate is ready are no-ops.
func (g *Gate) Observe() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.ready {
		return
	}
	g.timer.Reset(g.window)
}

// Ready reports whether the gate has fired.
func (g *Gate) Ready() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.ready
}

// Done returns a channel closed exactly once, when the gate becomes ready.
func (g *Gate) Done() <-chan struct{} {
	return g.done
}

// Stop cancels the idle timer without marking the gate ready. Used on
// shutdown while still waiting.
func (g *Gate) Stop() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.timer.Stop()
}

func (g *Gate) fire() {
	g.mu.Lock()
	defer g.mu.Unlock()
	// Reset may race with an expiring timer; the ready check keeps the
	// transition single-shot.
	if g.ready {
		return
	}
	g.ready = true
	close(g.done)
}
