package triage

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
)

// State is the cached readiness of a service's model.
type State int32

const (
	StateUnattempted State = iota
	StateProbing
	StateReady
	StateUnavailable
)

func (s State) String() string {
	switch s {
	case StateUnattempted:
		return "unattempted"
	case StateProbing:
		return "probing"
	case StateReady:
		return "ready"
	case StateUnavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}

// probe loads a model at most once per process. A failed load is cached and
// never retried.
type probe struct {
	mu    sync.Mutex
	state atomic.Int32
}

func (p *probe) current() State { return State(p.state.Load()) }

func (p *probe) set(s State) { p.state.Store(int32(s)) }

func (p *probe) ensure(ctx context.Context, logger *slog.Logger, kind, model string, load func(context.Context) error) State {
	if s := p.current(); s == StateReady || s == StateUnavailable {
		return s
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if s := p.current(); s == StateReady || s == StateUnavailable {
		return s
	}
	p.set(StateProbing)
	// The probe outcome outlives the request that triggered it.
	if err := load(context.WithoutCancel(ctx)); err != nil {
		logger.Warn("model unavailable, using heuristics", "kind", kind, "model", model, "err", err)
		p.set(StateUnavailable)
		return StateUnavailable
	}
	logger.Info("model ready", "kind", kind, "model", model)
	p.set(StateReady)
	return StateReady
}
