package wasm

import (
	"sync"

	"go.uber.org/zap"
)

// State is the progress of a single load.
type State int32

const (
	StateIdle State = iota
	StateFetching
	StateCompiling
	StateInstantiating
	StateReady
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateFetching:
		return "fetching"
	case StateCompiling:
		return "compiling"
	case StateInstantiating:
		return "instantiating"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transition can happen.
func (s State) Terminal() bool {
	return s == StateReady || s == StateFailed
}

// Pending is the future handed out by Loader.InitAsync. Besides the handle it
// records the states the load went through.
type Pending struct {
	*Future[*Handle]

	mu      sync.Mutex
	history []State
	logger  *zap.Logger
}

func newPending(logger *zap.Logger) *Pending {
	return &Pending{
		Future:  NewFuture[*Handle](),
		history: []State{StateIdle},
		logger:  logger,
	}
}

// State returns the current state.
func (p *Pending) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.history[len(p.history)-1]
}

// History returns every state entered so far, starting with StateIdle.
func (p *Pending) History() []State {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]State, len(p.history))
	copy(out, p.history)
	return out
}

func (p *Pending) enter(s State) {
	p.mu.Lock()
	cur := p.history[len(p.history)-1]
	if cur.Terminal() || cur == s {
		p.mu.Unlock()
		return
	}
	p.history = append(p.history, s)
	p.mu.Unlock()

	p.logger.Debug("Load state changed",
		zap.Stringer("from", cur),
		zap.Stringer("to", s),
	)
}

// settle moves to the terminal state matching err and settles the future.
func (p *Pending) settle(h *Handle, err error) {
	if err != nil {
		p.enter(StateFailed)
		p.Reject(err)
		return
	}
	p.enter(StateReady)
	p.Resolve(h)
}
