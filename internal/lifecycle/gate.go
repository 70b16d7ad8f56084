package lifecycle

import (
	"context"
	"sync"
)

// refreshGate serializes runs of one refresh. Requests made while a run is
// in flight are folded into a single follow-up run and wait for it, so at
// most one request per resource is outstanding and every requester returns
// after a run that started after its request.
type refreshGate struct {
	mu      sync.Mutex
	running bool
	waiters []chan error
}

// do runs fn, or waits for the follow-up run if a run is in progress. It
// reports whether the caller performed the run. The error is that of the
// last run the caller performed or waited for, or ctx's error if the caller
// stopped waiting.
func (g *refreshGate) do(ctx context.Context, fn func() error) (bool, error) {
	g.mu.Lock()
	if g.running {
		ch := make(chan error, 1)
		g.waiters = append(g.waiters, ch)
		g.mu.Unlock()

		select {
		case err := <-ch:
			return false, err
		case <-ctx.Done():
			return false, ctx.Err()
		}
	}
	g.running = true
	g.mu.Unlock()

	var served []chan error
	for {
		err := fn()

		g.mu.Lock()
		for _, ch := range served {
			ch <- err
		}
		if len(g.waiters) == 0 {
			g.running = false
			g.mu.Unlock()
			return true, err
		}
		served = g.waiters
		g.waiters = nil
		g.mu.Unlock()
	}
}
