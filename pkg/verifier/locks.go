package verifier

import (
	"context"
	"sync"
)

// PortLocks hands out one exclusive slot per host port so two deployments
// publishing the same port never overlap.
type PortLocks struct {
	mu    sync.Mutex
	slots map[string]chan struct{}
}

func NewPortLocks() *PortLocks {
	return &PortLocks{slots: make(map[string]chan struct{})}
}

// Acquire blocks until the port is free or ctx is done. The returned release
// func is safe to call more than once.
func (p *PortLocks) Acquire(ctx context.Context, port string) (func(), error) {
	slot := p.slot(port)
	select {
	case slot <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() { <-slot })
	}, nil
}

func (p *PortLocks) slot(port string) chan struct{} {
	p.mu.Lock()
	defer p.mu.Unlock()
	s, ok := p.slots[port]
	if !ok {
		s = make(chan struct{}, 1)
		p.slots[port] = s
	}
	return s
}
