package detections

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

const (
	AcquireTimeout    = 5 * time.Second
	HealthCheckPeriod = 60 * time.Second
)

var ErrPoolClosed = errors.New("pool is closed")

// sessionHandle is the unit the pool hands out.
type sessionHandle interface {
	Destroy()
}

// SessionPool bounds concurrent inference to a fixed number of pre-built
// sessions.
type SessionPool[S sessionHandle] struct {
	sessions   chan S
	size       int
	newSession func() (S, error)
	mu         sync.Mutex
	live       int
	closed     bool
	done       chan struct{}
	metrics    *PoolMetrics
	lastErrors []error
}

type PoolMetrics struct {
	mu              sync.RWMutex
	InUse           int
	TotalAcquired   int64
	TotalReleased   int64
	AcquireFailures int64
	WaitTime        time.Duration
}

func NewSessionPool[S sessionHandle](size int, newSession func() (S, error)) (*SessionPool[S], error) {
	if size <= 0 {
		size = DefaultPoolSize
	}

	pool := &SessionPool[S]{
		sessions:   make(chan S, size),
		size:       size,
		newSession: newSession,
		done:       make(chan struct{}),
		metrics:    &PoolMetrics{},
	}

	for i := 0; i < size; i++ {
		session, err := newSession()
		if err != nil {
			pool.Destroy()
			return nil, fmt.Errorf("failed to initialize session %d: %w", i, err)
		}
		pool.sessions <- session
		pool.live++
	}

	go pool.healthCheck()

	return pool, nil
}

func (p *SessionPool[S]) Acquire(ctx context.Context) (S, error) {
	var zero S
	if p.isClosed() {
		return zero, ErrPoolClosed
	}

	start := time.Now()
	defer func() {
		p.metrics.mu.Lock()
		p.metrics.WaitTime += time.Since(start)
		p.metrics.mu.Unlock()
	}()

	timer := time.NewTimer(AcquireTimeout)
	defer timer.Stop()

	select {
	case session, ok := <-p.sessions:
		if !ok {
			return zero, ErrPoolClosed
		}
		p.metrics.mu.Lock()
		p.metrics.InUse++
		p.metrics.TotalAcquired++
		p.metrics.mu.Unlock()
		return session, nil
	case <-timer.C:
		p.metrics.mu.Lock()
		p.metrics.AcquireFailures++
		p.metrics.mu.Unlock()
		return zero, fmt.Errorf("timeout waiting for available session")
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

func (p *SessionPool[S]) Release(session S) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.metrics.mu.Lock()
	p.metrics.InUse--
	p.metrics.TotalReleased++
	p.metrics.mu.Unlock()

	if p.closed {
		session.Destroy()
		return
	}
	p.offer(session)
}

// offer returns session to the idle channel, destroying it if the channel is
// already full. Callers hold p.mu.
func (p *SessionPool[S]) offer(session S) {
	select {
	case p.sessions <- session:
	default:
		session.Destroy()
		p.live--
	}
}

// Discard destroys a session that failed and lets the health check replace it.
func (p *SessionPool[S]) Discard(session S, cause error) {
	p.metrics.mu.Lock()
	p.metrics.InUse--
	p.metrics.mu.Unlock()

	session.Destroy()
	p.mu.Lock()
	p.live--
	p.mu.Unlock()
	p.recordError(cause)
}

func (p *SessionPool[S]) Destroy() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return
	}

	p.closed = true
	close(p.done)
	close(p.sessions)

	for session := range p.sessions {
		session.Destroy()
		p.live--
	}
}

func (p *SessionPool[S]) isClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

func (p *SessionPool[S]) healthCheck() {
	ticker := time.NewTicker(HealthCheckPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-p.done:
			return
		case <-ticker.C:
			p.replenish()
		}
	}
}

// replenish rebuilds sessions lost through Discard. Sessions checked out by
// callers count as live, so only discarded ones are replaced.
func (p *SessionPool[S]) replenish() {
	p.mu.Lock()
	missing := p.size - p.live
	p.mu.Unlock()

	for i := 0; i < missing; i++ {
		session, err := p.newSession()
		if err != nil {
			p.recordError(err)
			continue
		}

		p.mu.Lock()
		if p.closed || p.live >= p.size {
			p.mu.Unlock()
			session.Destroy()
			return
		}
		p.live++
		p.offer(session)
		p.mu.Unlock()
	}
}

func (p *SessionPool[S]) recordError(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.lastErrors = append(p.lastErrors, err)
	if len(p.lastErrors) > 10 {
		p.lastErrors = p.lastErrors[1:]
	}
}

func (p *SessionPool[S]) Stats() map[string]interface{} {
	p.mu.Lock()
	recentErrors := len(p.lastErrors)
	live := p.live
	p.mu.Unlock()

	p.metrics.mu.RLock()
	defer p.metrics.mu.RUnlock()

	return map[string]interface{}{
		"pool_size":        p.size,
		"live_sessions":    live,
		"sessions_in_use":  p.metrics.InUse,
		"total_acquired":   p.metrics.TotalAcquired,
		"total_released":   p.metrics.TotalReleased,
		"acquire_failures": p.metrics.AcquireFailures,
		"wait_time_ms":     p.metrics.WaitTime.Milliseconds(),
		"recent_errors":    recentErrors,
	}
}
