package reliable

import "sync/atomic"

// Counter hands out strictly increasing sequence numbers starting at 1.
type Counter struct {
	last atomic.Int64
}

func NewCounter() *Counter {
	return &Counter{}
}

func (c *Counter) Next() int64 {
	return c.last.Add(1)
}

// Last returns the most recently issued number, 0 if none.
func (c *Counter) Last() int64 {
	return c.last.Load()
}
