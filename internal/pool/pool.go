// Package pool implements the bounded, lazily-populated connection pool
// described in spec.md §4.E, adapted from a multi-tenant SQL connection
// pool's Acquire/Return/reap skeleton to a single-endpoint Bolt pool.
package pool

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/neo4j-labs/neo4rs-sub001/internal/boltdb"
	"github.com/neo4j-labs/neo4rs-sub001/log"
)

// ErrClosed is returned by Acquire once the pool has been closed.
var ErrClosed = errors.New("pool: closed")

// Factory creates and connects a new connection. A creation failure must
// not consume a pool slot, per spec.md §4.E.
type Factory func(ctx context.Context) (boltdb.Connection, error)

// Slot wraps a pooled connection with its idle bookkeeping.
type Slot struct {
	Conn     boltdb.Connection
	idleSince time.Time
}

// Stats is a snapshot of pool occupancy, in the style of db-bouncer's
// TenantPool.Stats.
type Stats struct {
	Active         int
	Idle           int
	Total          int
	Waiting        int
	MaxConnections int
}

// Pool is a fixed-capacity set of Bolt connections. Creation is lazy: a
// slot is only dialed the first time it's needed, up to capacity.
type Pool struct {
	mu   sync.Mutex
	cond *sync.Cond

	factory Factory
	max     int

	idle    []*Slot
	active  map[*Slot]struct{}
	total   int
	waiting int
	closed  bool

	idleTimeout time.Duration
	stopCh      chan struct{}
	log         log.Logger
	id          string
}

// New creates a pool with the given capacity. idleTimeout of 0 disables
// idle reaping.
func New(max int, factory Factory, idleTimeout time.Duration, logger log.Logger) *Pool {
	if logger == nil {
		logger = log.Void{}
	}
	p := &Pool{
		factory:     factory,
		max:         max,
		active:      map[*Slot]struct{}{},
		idleTimeout: idleTimeout,
		stopCh:      make(chan struct{}),
		log:         logger,
		id:          log.NewID(),
	}
	p.cond = sync.NewCond(&p.mu)
	if idleTimeout > 0 {
		go p.reapLoop()
	}
	return p
}

// Acquire blocks until a connection is available, creating one lazily if
// the pool has not reached capacity, per spec.md §4.E / §5.
func (p *Pool) Acquire(ctx context.Context) (*Slot, error) {
	// One watcher goroutine per Acquire call wakes the condvar if the
	// caller's context ends or the pool closes while waiting, so a
	// cancelled caller does not block forever behind cond.Wait.
	watchDone := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			p.cond.Broadcast()
		case <-p.stopCh:
		case <-watchDone:
		}
	}()
	defer close(watchDone)

	p.mu.Lock()
	for {
		if p.closed {
			p.mu.Unlock()
			return nil, ErrClosed
		}
		select {
		case <-ctx.Done():
			p.mu.Unlock()
			return nil, ctx.Err()
		default:
		}
		if n := len(p.idle); n > 0 {
			s := p.idle[n-1]
			p.idle = p.idle[:n-1]
			if !s.Conn.IsAlive() {
				p.total--
				continue
			}
			p.active[s] = struct{}{}
			p.mu.Unlock()
			return s, nil
		}
		if p.total < p.max {
			p.total++
			p.mu.Unlock()
			conn, err := p.factory(ctx)
			if err != nil {
				p.mu.Lock()
				p.total--
				p.mu.Unlock()
				return nil, err
			}
			s := &Slot{Conn: conn}
			p.mu.Lock()
			p.active[s] = struct{}{}
			p.mu.Unlock()
			return s, nil
		}
		p.waiting++
		p.cond.Wait()
		p.waiting--
	}
}

// Return hands a connection back to the pool after a RESET-based recycle
// step. Recycle failure discards the connection and frees the slot, per
// spec.md §4.E/§4.D.
func (p *Pool) Return(ctx context.Context, s *Slot) {
	recycled := s.Conn.IsAlive() && s.Conn.Reset(ctx) == nil

	p.mu.Lock()
	delete(p.active, s)
	if p.closed || !recycled {
		s.Conn.Close(ctx)
		p.total--
		p.cond.Signal()
		p.mu.Unlock()
		return
	}
	s.idleSince = time.Now()
	p.idle = append(p.idle, s)
	// Signal (not Broadcast) avoids waking every waiter for one freed
	// slot; Broadcast is reserved for Close and timeout wakeups.
	p.cond.Signal()
	p.mu.Unlock()
}

// Discard removes a slot from the pool outright without attempting
// recycle, e.g. after a fatal connection error observed by the caller.
func (p *Pool) Discard(ctx context.Context, s *Slot) {
	s.Conn.Close(ctx)
	p.mu.Lock()
	delete(p.active, s)
	p.total--
	p.cond.Signal()
	p.mu.Unlock()
}

// Stats returns a snapshot of pool occupancy.
func (p *Pool) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Stats{
		Active:         len(p.active),
		Idle:           len(p.idle),
		Total:          p.total,
		Waiting:        p.waiting,
		MaxConnections: p.max,
	}
}

// Close closes every idle connection and marks the pool closed; active
// connections close as they're returned.
func (p *Pool) Close(ctx context.Context) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.stopCh)
	idle := p.idle
	p.idle = nil
	p.total -= len(idle)
	p.cond.Broadcast()
	p.mu.Unlock()

	for _, s := range idle {
		s.Conn.Close(ctx)
	}
}

func (p *Pool) reapLoop() {
	ticker := time.NewTicker(p.idleTimeout)
	defer ticker.Stop()
	for {
		select {
		case <-p.stopCh:
			return
		case <-ticker.C:
			p.reapIdle()
		}
	}
}

func (p *Pool) reapIdle() {
	p.mu.Lock()
	cutoff := time.Now().Add(-p.idleTimeout)
	kept := p.idle[:0]
	var toClose []*Slot
	for _, s := range p.idle {
		if s.idleSince.Before(cutoff) {
			toClose = append(toClose, s)
			p.total--
		} else {
			kept = append(kept, s)
		}
	}
	p.idle = kept
	p.mu.Unlock()

	for _, s := range toClose {
		s.Conn.Close(context.Background())
	}
}
