package event

import "sync"

// Counter counts received events per type.
type Counter struct {
	mu     sync.Mutex
	counts map[Type]int
}

func NewCounter() *Counter {
	return &Counter{counts: make(map[Type]int)}
}

func (c *Counter) Increment(t Type) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counts[t]++
}

func (c *Counter) Get(t Type) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counts[t]
}

// Handle makes the counter usable as a plain handler counting every event.
func (c *Counter) Handle(event Event) {
	c.Increment(event.Type)
}
