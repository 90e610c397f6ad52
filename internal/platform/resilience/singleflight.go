package resilience

import "sync"

// SingleFlight deduplicates concurrent calls for the same key and keeps each
// successful result, so later calls for that key return it without running fn.
// Failed calls are not kept.
type SingleFlight[T any] struct {
	mu    sync.Mutex
	calls map[string]*call[T]
	done  map[string]T
}

type call[T any] struct {
	wg  sync.WaitGroup
	val T
	err error
}

// Do reports shared=true when the value came from another caller or from the
// kept results.
func (g *SingleFlight[T]) Do(key string, fn func() (T, error)) (T, error, bool) {
	g.mu.Lock()
	if g.calls == nil {
		g.calls = make(map[string]*call[T])
		g.done = make(map[string]T)
	}
	if val, ok := g.done[key]; ok {
		g.mu.Unlock()
		return val, nil, true
	}
	if c, ok := g.calls[key]; ok {
		g.mu.Unlock()
		c.wg.Wait()
		return c.val, c.err, true
	}

	c := &call[T]{}
	c.wg.Add(1)
	g.calls[key] = c
	g.mu.Unlock()

	c.val, c.err = fn()
	c.wg.Done()

	g.mu.Lock()
	delete(g.calls, key)
	if c.err == nil {
		g.done[key] = c.val
	}
	g.mu.Unlock()

	return c.val, c.err, false
}
