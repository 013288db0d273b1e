package gemini

import "context"

// limiter hands out a fixed number of call slots. A caller blocks until a
// slot frees up or its context ends.
type limiter struct {
	slots chan struct{}
}

func newLimiter(n int) *limiter {
	if n < 1 {
		n = 1
	}
	return &limiter{slots: make(chan struct{}, n)}
}

// acquire takes a slot. The returned func gives it back and must be called
// exactly once.
func (l *limiter) acquire(ctx context.Context) (func(), error) {
	select {
	case l.slots <- struct{}{}:
		return func() { <-l.slots }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// inFlight reports how many slots are taken.
func (l *limiter) inFlight() int {
	return len(l.slots)
}
