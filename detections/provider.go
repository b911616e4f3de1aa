package detections

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// Provider is a single-slot memo for the process-wide backend. The slot is
// filled at most once; a failed construction leaves it empty so the next
// caller retries.
type Provider struct {
	factory Factory

	mu      sync.Mutex
	backend Backend
	loading chan struct{}
	loads   int
}

func NewProvider(factory Factory) *Provider {
	return &Provider{factory: factory}
}

// GetOrCreate returns the cached backend, constructing it on the first call.
// Concurrent cold starts wait for a single construction; a waiter whose ctx
// ends first returns without the backend.
func (p *Provider) GetOrCreate(ctx context.Context) (Backend, error) {
	for {
		p.mu.Lock()
		if p.backend != nil {
			backend := p.backend
			p.mu.Unlock()
			return backend, nil
		}
		if err := ctx.Err(); err != nil {
			p.mu.Unlock()
			return nil, modelLoadError(err)
		}
		if p.loading == nil {
			break
		}

		loading := p.loading
		p.mu.Unlock()
		select {
		case <-loading:
		case <-ctx.Done():
			return nil, modelLoadError(ctx.Err())
		}
	}

	loading := make(chan struct{})
	p.loading = loading
	p.mu.Unlock()

	backend, err := p.construct(ctx)

	p.mu.Lock()
	p.loading = nil
	if err == nil {
		p.backend = backend
		p.loads++
	}
	p.mu.Unlock()
	close(loading)

	if err != nil {
		return nil, modelLoadError(err)
	}
	return backend, nil
}

func (p *Provider) construct(ctx context.Context) (backend Backend, err error) {
	defer func() {
		if r := recover(); r != nil {
			backend, err = nil, fmt.Errorf("backend construction panicked: %v", r)
		}
	}()

	backend, err = p.factory(ctx)
	if err == nil && backend == nil {
		err = errors.New("factory returned no backend")
	}
	return backend, err
}

// Peek returns the cached backend without constructing one.
func (p *Provider) Peek() Backend {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.backend
}

// Loads reports how many backends have been constructed.
func (p *Provider) Loads() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.loads
}

// Reset drops and closes the cached backend. The next GetOrCreate builds a
// fresh one.
func (p *Provider) Reset() error {
	p.mu.Lock()
	backend := p.backend
	p.backend = nil
	p.mu.Unlock()

	if backend == nil {
		return nil
	}
	return backend.Close()
}

func (p *Provider) Close() error {
	return p.Reset()
}
