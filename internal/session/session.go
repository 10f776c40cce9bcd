// Package session is the authentication signal shared by the cart, address
// book and order engines. AuthState values are passed explicitly into every
// engine operation instead of being read from a global.
package session

import (
	"context"
	"sync"
)

// AuthState is a snapshot of who is shopping. The zero value is an anonymous
// visitor.
type AuthState struct {
	Identity string `json:"identity"`
	Token    string `json:"token"`
}

func Anonymous() AuthState { return AuthState{} }

func (a AuthState) Authenticated() bool { return a.Identity != "" }

type EventKind int

const (
	LoggedIn EventKind = iota + 1
	LoggedOut
)

func (k EventKind) String() string {
	switch k {
	case LoggedIn:
		return "logged_in"
	case LoggedOut:
		return "logged_out"
	}
	return "unknown"
}

type Event struct {
	Kind  EventKind
	State AuthState
}

// Listener receives lifecycle events synchronously, on the goroutine that
// called Login or Logout.
type Listener func(ctx context.Context, ev Event)

// Provider holds the current AuthState and fans out login/logout events.
type Provider struct {
	mu        sync.RWMutex
	current   AuthState
	listeners []Listener
}

func NewProvider(initial AuthState) *Provider {
	return &Provider{current: initial}
}

func (p *Provider) Current() AuthState {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.current
}

func (p *Provider) Subscribe(l Listener) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.listeners = append(p.listeners, l)
}

// Login records the new identity and notifies listeners once they can
// observe it through Current.
func (p *Provider) Login(ctx context.Context, state AuthState) {
	p.mu.Lock()
	p.current = state
	listeners := append([]Listener(nil), p.listeners...)
	p.mu.Unlock()

	for _, l := range listeners {
		l(ctx, Event{Kind: LoggedIn, State: state})
	}
}

func (p *Provider) Logout(ctx context.Context) {
	p.mu.Lock()
	p.current = Anonymous()
	listeners := append([]Listener(nil), p.listeners...)
	p.mu.Unlock()

	for _, l := range listeners {
		l(ctx, Event{Kind: LoggedOut, State: Anonymous()})
	}
}
