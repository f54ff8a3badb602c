package session

import (
	"context"

	"github.com/andjpython/Estacionamento-Free/pkg/model"
)

// State returns a copy of the current SessionState. A supervisor session
// whose credential has passed its expiry is invalidated before returning.
func (g *Gateway) State() model.SessionState {
	g.mu.Lock()
	state := g.state
	g.mu.Unlock()

	if state.SupervisorActive && !g.clock.Now().Before(state.TokenExpiry) {
		g.invalidate(context.Background(), "credential expired")
		g.mu.Lock()
		state = g.state
		g.mu.Unlock()
	}
	return state
}

// Subscribe registers fn to receive every SessionState change. The returned
// function removes the subscription.
func (g *Gateway) Subscribe(fn func(model.SessionState)) (cancel func()) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.nextSub++
	id := g.nextSub
	g.subs = append(g.subs, subscriber{id: id, fn: fn})
	return func() {
		g.mu.Lock()
		defer g.mu.Unlock()
		for i, s := range g.subs {
			if s.id == id {
				g.subs = append(g.subs[:i], g.subs[i+1:]...)
				return
			}
		}
	}
}

// update applies mutate and notifies subscribers if the state changed.
// Subscribers run without the lock held.
func (g *Gateway) update(mutate func(*model.SessionState)) {
	g.mu.Lock()
	prev := g.state
	mutate(&g.state)
	next := g.state
	subs := append([]subscriber(nil), g.subs...)
	g.mu.Unlock()

	if prev == next {
		return
	}
	for _, s := range subs {
		s.fn(next)
	}
}
