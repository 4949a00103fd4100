package client

import (
	"context"
	"sync"
)

// Guard serializes token refresh so that any number of requests
// failing authorization at the same time trigger exactly one refresh
// call.  The first caller becomes the leader and runs the refresh;
// every caller arriving while it is in flight enqueues and waits for
// the leader's result.  On success all waiters receive the new token;
// on failure they all receive the error, so no queued call is ever
// silently dropped.
type Guard struct {
	mu       sync.Mutex
	inFlight bool
	waiters  []chan refreshResult
}

type refreshResult struct {
	token string
	err   error
}

// NewGuard returns a ready Guard.  Each Client owns its own instance,
// so tests can construct several guards without cross-test leakage.
func NewGuard() *Guard { return &Guard{} }

// Do runs fn (the refresh call) unless one is already in flight, in
// which case the call blocks until that refresh settles and shares its
// outcome.  At most one fn runs at a time per Guard.
func (g *Guard) Do(ctx context.Context, fn func() (string, error)) (string, error) {
	g.mu.Lock()
	if g.inFlight {
		ch := make(chan refreshResult, 1)
		g.waiters = append(g.waiters, ch)
		g.mu.Unlock()
		select {
		case r := <-ch:
			return r.token, r.err
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	g.inFlight = true
	g.mu.Unlock()

	tok, err := fn()

	g.mu.Lock()
	waiters := g.waiters
	g.waiters = nil
	g.inFlight = false
	g.mu.Unlock()

	for _, ch := range waiters {
		ch <- refreshResult{token: tok, err: err}
	}
	return tok, err
}
