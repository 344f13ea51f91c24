/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package pool

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
)

// DefaultAcquireTimeout is used when Config.AcquireTimeout is not positive.
const DefaultAcquireTimeout = 30 * time.Second

// Resource is a pooled handle. Resources are tracked by identity, so they
// must be comparable (pointer types in practice).
type Resource interface {
	comparable
	Close() error
}

// Factory creates a new live resource.
type Factory[R Resource] func(ctx context.Context) (R, error)

// Validator reports whether a held resource is still usable. It should be cheap.
type Validator[R Resource] func(R) bool

// Config fixes the pool capacity and the acquire timeout for the lifetime of
// the pool.
type Config struct {
	MaxSize        int
	AcquireTimeout time.Duration
}

// Stats is a point-in-time snapshot of pool counts and lifetime counters.
type Stats struct {
	MaxSize          int           `json:"max_size"`
	Active           int           `json:"active"`
	Available        int           `json:"available"`
	InUse            int           `json:"in_use"`
	AcquireTimeout   time.Duration `json:"acquire_timeout"`
	Acquires         uint64        `json:"acquires"`
	AcquireSuccesses uint64        `json:"acquire_successes"`
	Exhausted        uint64        `json:"exhausted"`
	CreationFailures uint64        `json:"creation_failures"`
	Replaced         uint64        `json:"replaced"`
	Releases         uint64        `json:"releases"`
}

// Pool lends a fixed number of resources to borrowers. Every live resource
// is either available, in use, or briefly held by the pool while it is
// validated or replaced; active counts all of them and never exceeds MaxSize.
type Pool[R Resource] struct {
	factory  Factory[R]
	validate Validator[R]
	config   Config
	logger   Logger

	mu        sync.Mutex
	cond      *sync.Cond
	available []R
	inUse     map[R]struct{}
	active    int
	closed    bool

	acquires         atomic.Uint64
	acquireSuccesses atomic.Uint64
	exhausted        atomic.Uint64
	creationFailures atomic.Uint64
	replaced         atomic.Uint64
	releases         atomic.Uint64
}

// New creates a pool and eagerly fills it with cfg.MaxSize resources. If any
// of them cannot be created the ones already created are closed and an error
// matching ErrPoolInitialization is returned.
func New[R Resource](cfg Config, factory Factory[R], validate Validator[R]) (*Pool[R], error) {
	if factory == nil {
		return nil, initializationError(errors.New("resource factory is nil"))
	}
	if cfg.MaxSize <= 0 {
		return nil, initializationError(fmt.Errorf("max size must be positive, got %d", cfg.MaxSize))
	}
	if cfg.AcquireTimeout <= 0 {
		cfg.AcquireTimeout = DefaultAcquireTimeout
	}

	p := &Pool[R]{
		factory:   factory,
		validate:  validate,
		config:    cfg,
		logger:    GetLogger(),
		available: make([]R, 0, cfg.MaxSize),
		inUse:     make(map[R]struct{}, cfg.MaxSize),
	}
	p.cond = sync.NewCond(&p.mu)

	start := time.Now()
	created := make([]R, cfg.MaxSize)
	g, ctx := errgroup.WithContext(context.Background())
	for i := range created {
		g.Go(func() error {
			r, err := factory(ctx)
			if err != nil {
				return err
			}
			created[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		var zero R
		for _, r := range created {
			if r != zero {
				p.destroy(r)
			}
		}
		return nil, initializationError(err)
	}

	p.available = append(p.available, created...)
	p.active = len(created)
	p.logger.Info("Resource pool initialized", "max_size", cfg.MaxSize, "acquire_timeout", cfg.AcquireTimeout, "elapsed", time.Since(start))
	return p, nil
}

// SetLogger replaces the pool logger. Call it before the pool is shared.
func (p *Pool[R]) SetLogger(logger Logger) {
	if logger != nil {
		p.logger = logger
	}
}

// Config returns the configuration the pool was built with.
func (p *Pool[R]) Config() Config {
	return p.config
}

// Acquire borrows a resource, blocking until one is available or the
// configured acquire timeout elapses. Wake-up order among waiters is
// unspecified. A resource that fails validation is closed and replaced
// before being handed out; if the replacement cannot be created the error
// matches ErrPoolCreation and the caller may retry.
func (p *Pool[R]) Acquire() (R, error) {
	var zero R
	p.acquires.Add(1)

	deadline := time.Now().Add(p.config.AcquireTimeout)
	timer := time.AfterFunc(p.config.AcquireTimeout, func() {
		p.mu.Lock()
		p.cond.Broadcast()
		p.mu.Unlock()
	})
	defer timer.Stop()

	p.mu.Lock()
	for {
		if p.closed {
			p.mu.Unlock()
			return zero, ErrPoolClosed
		}

		if n := len(p.available); n > 0 {
			r := p.available[n-1]
			p.available[n-1] = zero
			p.available = p.available[:n-1]
			p.mu.Unlock()
			return p.checkout(r)
		}

		// A slot lost to an earlier failed replacement is refilled here.
		if p.active < p.config.MaxSize {
			p.active++
			p.mu.Unlock()
			return p.create()
		}

		if !time.Now().Before(deadline) {
			active := p.active
			p.mu.Unlock()
			p.exhausted.Add(1)
			p.logger.Warn("Timeout waiting for resource", "active", active, "timeout", p.config.AcquireTimeout)
			return zero, &ExhaustedError{ActiveCount: active, Timeout: p.config.AcquireTimeout}
		}

		p.cond.Wait()
	}
}

// checkout validates r, whose slot is reserved by the caller, and hands it
// out or replaces it.
func (p *Pool[R]) checkout(r R) (R, error) {
	if p.isValid(r) {
		return p.track(r)
	}
	p.logger.Info("Resource invalid on checkout, creating a new one")
	p.destroy(r)
	p.replaced.Add(1)
	return p.create()
}

// create fills a reserved slot with a new resource and hands it out.
func (p *Pool[R]) create() (R, error) {
	var zero R
	r, err := p.factory(context.Background())
	if err != nil {
		p.creationFailures.Add(1)
		p.loseSlot()
		p.logger.Error("Failed to create resource", "error", err)
		return zero, creationError(err)
	}
	return p.track(r)
}

func (p *Pool[R]) track(r R) (R, error) {
	var zero R
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		p.destroy(r)
		return zero, ErrPoolClosed
	}
	p.inUse[r] = struct{}{}
	p.mu.Unlock()
	p.acquireSuccesses.Add(1)
	return r, nil
}

// Release returns a borrowed resource. It never fails: a resource that is
// closed or invalid is destroyed and replaced, and problems are only logged.
// Releasing the zero value or a resource that is not in use is a no-op.
func (p *Pool[R]) Release(r R) {
	var zero R
	if r == zero {
		return
	}
	p.releases.Add(1)

	p.mu.Lock()
	if _, ok := p.inUse[r]; !ok {
		closed := p.closed
		p.mu.Unlock()
		if !closed {
			p.logger.Warn("Ignoring release of a resource that is not in use")
		}
		return
	}
	delete(p.inUse, r)
	p.mu.Unlock()

	if p.isValid(r) {
		p.putBack(r)
		return
	}

	p.logger.Info("Resource invalid on release, replacing it")
	p.destroy(r)
	p.replaced.Add(1)
	nr, err := p.factory(context.Background())
	if err != nil {
		p.creationFailures.Add(1)
		p.loseSlot()
		p.logger.Error("Failed to replace released resource", "error", err)
		return
	}
	p.putBack(nr)
}

func (p *Pool[R]) putBack(r R) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		p.destroy(r)
		return
	}
	p.available = append(p.available, r)
	p.cond.Signal()
	p.mu.Unlock()
}

// loseSlot gives back a reserved slot whose resource could not be created.
func (p *Pool[R]) loseSlot() {
	p.mu.Lock()
	if !p.closed {
		p.active--
	}
	p.cond.Signal()
	p.mu.Unlock()
}

func (p *Pool[R]) isValid(r R) bool {
	return p.validate == nil || p.validate(r)
}

func (p *Pool[R]) destroy(r R) {
	if err := r.Close(); err != nil {
		p.logger.Warn("Error closing resource", "error", err)
	}
}

// Shutdown closes every available and in-use resource and empties the pool.
// Subsequent Acquire calls fail with ErrPoolClosed. Callers already blocked
// in Acquire are not woken; they observe the shutdown when their timeout
// fires. Shutdown does not wait for borrowers, so it should only run once
// request handling has stopped.
func (p *Pool[R]) Shutdown() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	available := p.available
	inUse := p.inUse
	p.available = make([]R, 0)
	p.inUse = make(map[R]struct{})
	p.active = 0
	p.mu.Unlock()

	for r := range inUse {
		p.destroy(r)
	}
	for _, r := range available {
		p.destroy(r)
	}
	p.logger.Info("Resource pool shut down", "closed_in_use", len(inUse), "closed_available", len(available))
}

// ActiveCount returns the number of live resources owned by the pool,
// whether available or borrowed.
func (p *Pool[R]) ActiveCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.active
}

// AvailableCount returns the number of idle resources ready to be borrowed.
func (p *Pool[R]) AvailableCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.available)
}

// InUseCount returns the number of resources currently lent out.
func (p *Pool[R]) InUseCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.inUse)
}

func (p *Pool[R]) MaxSize() int {
	return p.config.MaxSize
}

func (p *Pool[R]) Stats() Stats {
	p.mu.Lock()
	s := Stats{
		MaxSize:        p.config.MaxSize,
		Active:         p.active,
		Available:      len(p.available),
		InUse:          len(p.inUse),
		AcquireTimeout: p.config.AcquireTimeout,
	}
	p.mu.Unlock()

	s.Acquires = p.acquires.Load()
	s.AcquireSuccesses = p.acquireSuccesses.Load()
	s.Exhausted = p.exhausted.Load()
	s.CreationFailures = p.creationFailures.Load()
	s.Replaced = p.replaced.Load()
	s.Releases = p.releases.Load()
	return s
}
