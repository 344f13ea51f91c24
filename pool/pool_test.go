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
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func newTestPool(t *testing.T, size int, timeout time.Duration) (*Pool[*mockResource], *mockFactory) {
	t.Helper()
	f := &mockFactory{}
	p, err := New(Config{MaxSize: size, AcquireTimeout: timeout}, f.create, validMock)
	require.NoError(t, err)
	return p, f
}

func assertBalanced(t *testing.T, p *Pool[*mockResource]) {
	t.Helper()
	s := p.Stats()
	assert.Equal(t, s.Active, s.Available+s.InUse, "available + in use must equal active")
	assert.LessOrEqual(t, s.Active, s.MaxSize)
}

func TestNewFillsPool(t *testing.T) {
	p, f := newTestPool(t, 3, time.Second)
	defer p.Shutdown()

	assert.Equal(t, 3, p.ActiveCount())
	assert.Equal(t, 3, p.AvailableCount())
	assert.Equal(t, 0, p.InUseCount())
	assert.Len(t, f.all(), 3)
	assertBalanced(t, p)
}

func TestNewDefaultsAcquireTimeout(t *testing.T) {
	p, _ := newTestPool(t, 1, 0)
	defer p.Shutdown()
	assert.Equal(t, DefaultAcquireTimeout, p.Config().AcquireTimeout)
}

func TestNewFailsWhenAnyCreationFails(t *testing.T) {
	f := &mockFactory{failAt: 2}
	p, err := New(Config{MaxSize: 4, AcquireTimeout: time.Second}, f.create, validMock)
	require.Error(t, err)
	assert.Nil(t, p)
	assert.ErrorIs(t, err, ErrPoolInitialization)
	assert.ErrorIs(t, err, errFactory)

	for _, r := range f.all() {
		assert.True(t, r.isClosed(), "resource %d should be closed after failed init", r.id)
	}
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	f := &mockFactory{}
	_, err := New(Config{MaxSize: 0}, f.create, validMock)
	assert.ErrorIs(t, err, ErrPoolInitialization)

	_, err = New[*mockResource](Config{MaxSize: 1}, nil, validMock)
	assert.ErrorIs(t, err, ErrPoolInitialization)
	assert.Empty(t, f.all())
}

func TestAcquireTimesOutWhenExhausted(t *testing.T) {
	defer goleak.VerifyNone(t)
	p, _ := newTestPool(t, 2, time.Second)
	defer p.Shutdown()

	var wg sync.WaitGroup
	got := make([]*mockResource, 2)
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got[i], errs[i] = p.Acquire()
		}()
	}
	wg.Wait()
	require.NoError(t, errs[0])
	require.NoError(t, errs[1])
	assert.NotSame(t, got[0], got[1])

	start := time.Now()
	r, err := p.Acquire()
	elapsed := time.Since(start)

	assert.Nil(t, r)
	require.ErrorIs(t, err, ErrPoolExhausted)
	var exhausted *ExhaustedError
	require.True(t, errors.As(err, &exhausted))
	assert.Equal(t, 2, exhausted.ActiveCount)
	assert.GreaterOrEqual(t, elapsed, time.Second)
	assert.Less(t, elapsed, 2*time.Second)
	assert.EqualValues(t, 1, p.Stats().Exhausted)

	p.Release(got[0])
	p.Release(got[1])
	assertBalanced(t, p)
}

func TestAcquireWakesOnRelease(t *testing.T) {
	defer goleak.VerifyNone(t)
	p, _ := newTestPool(t, 1, 2*time.Second)
	defer p.Shutdown()

	held, err := p.Acquire()
	require.NoError(t, err)

	done := make(chan *mockResource)
	go func() {
		r, err := p.Acquire()
		assert.NoError(t, err)
		done <- r
	}()

	time.Sleep(50 * time.Millisecond)
	p.Release(held)

	select {
	case r := <-done:
		assert.Same(t, held, r)
		p.Release(r)
	case <-time.After(time.Second):
		t.Fatal("waiter was not woken by release")
	}
	assertBalanced(t, p)
}

func TestValidateOnCheckoutReplacesInvalidResource(t *testing.T) {
	p, f := newTestPool(t, 2, time.Second)
	defer p.Shutdown()

	stale := f.all()
	for _, r := range stale {
		r.invalidate()
	}
	before := p.ActiveCount()

	r, err := p.Acquire()
	require.NoError(t, err)
	assert.Greater(t, r.id, 2, "expected a freshly created resource")
	assert.True(t, validMock(r))
	assert.Equal(t, before, p.ActiveCount())

	closed := 0
	for _, s := range stale {
		if s.isClosed() {
			closed++
		}
	}
	assert.Equal(t, 1, closed)
	assert.EqualValues(t, 1, p.Stats().Replaced)

	p.Release(r)
	assertBalanced(t, p)
}

func TestValidateOnCheckoutCreationFailure(t *testing.T) {
	p, f := newTestPool(t, 1, 100*time.Millisecond)
	defer p.Shutdown()

	f.all()[0].invalidate()
	f.failing.Store(true)

	r, err := p.Acquire()
	assert.Nil(t, r)
	require.ErrorIs(t, err, ErrPoolCreation)
	assert.ErrorIs(t, err, errFactory)
	assert.NotErrorIs(t, err, ErrPoolExhausted)
	assert.Equal(t, 0, p.ActiveCount())
	assertBalanced(t, p)

	// a retry after the factory recovers refills the lost slot
	f.failing.Store(false)
	r, err = p.Acquire()
	require.NoError(t, err)
	assert.Equal(t, 1, p.ActiveCount())
	p.Release(r)
	assert.Equal(t, 1, p.AvailableCount())
}

func TestReleaseReplacesInvalidResource(t *testing.T) {
	p, _ := newTestPool(t, 2, time.Second)
	defer p.Shutdown()

	r, err := p.Acquire()
	require.NoError(t, err)
	r.invalidate()

	p.Release(r)
	assert.True(t, r.isClosed())
	assert.Equal(t, 2, p.AvailableCount())
	assert.Equal(t, 2, p.ActiveCount())
	assertBalanced(t, p)

	for i := 0; i < 2; i++ {
		got, err := p.Acquire()
		require.NoError(t, err)
		assert.NotSame(t, r, got)
		defer p.Release(got)
	}
}

func TestReleaseClosedResourceIsReplaced(t *testing.T) {
	p, _ := newTestPool(t, 1, time.Second)
	defer p.Shutdown()

	r, err := p.Acquire()
	require.NoError(t, err)
	require.NoError(t, r.Close())

	p.Release(r)
	assert.Equal(t, 1, p.AvailableCount())
	next, err := p.Acquire()
	require.NoError(t, err)
	assert.NotSame(t, r, next)
	p.Release(next)
}

func TestReleaseReplacementFailureIsSilent(t *testing.T) {
	p, f := newTestPool(t, 2, 100*time.Millisecond)
	defer p.Shutdown()

	r, err := p.Acquire()
	require.NoError(t, err)
	r.invalidate()
	f.failing.Store(true)

	assert.NotPanics(t, func() { p.Release(r) })
	assert.Equal(t, 1, p.ActiveCount())
	assert.Equal(t, 1, p.AvailableCount())
	assert.EqualValues(t, 1, p.Stats().CreationFailures)
	assertBalanced(t, p)
}

func TestReleaseZeroAndUntrackedAreNoops(t *testing.T) {
	p, _ := newTestPool(t, 2, time.Second)
	defer p.Shutdown()

	p.Release(nil)
	p.Release(&mockResource{id: 99})
	assert.Equal(t, 2, p.AvailableCount())

	r, err := p.Acquire()
	require.NoError(t, err)
	p.Release(r)
	p.Release(r)
	assert.Equal(t, 2, p.AvailableCount())
	assert.Equal(t, 2, p.ActiveCount())
	assertBalanced(t, p)
}

func TestShutdownIdlePool(t *testing.T) {
	p, f := newTestPool(t, 3, time.Second)

	p.Shutdown()
	assert.Equal(t, 0, p.AvailableCount())
	assert.Equal(t, 0, p.ActiveCount())
	assert.Equal(t, 0, p.InUseCount())
	for _, r := range f.all() {
		assert.True(t, r.isClosed())
	}

	_, err := p.Acquire()
	assert.ErrorIs(t, err, ErrPoolClosed)
	assert.NotPanics(t, p.Shutdown)
}

func TestShutdownClosesBorrowedResources(t *testing.T) {
	p, _ := newTestPool(t, 2, time.Second)

	r, err := p.Acquire()
	require.NoError(t, err)

	p.Shutdown()
	assert.True(t, r.isClosed())
	assert.Equal(t, 0, p.InUseCount())

	p.Release(r)
	assert.Equal(t, 0, p.AvailableCount())
	assert.Equal(t, 0, p.ActiveCount())
}

func TestConcurrentAcquireRelease(t *testing.T) {
	defer goleak.VerifyNone(t)
	const maxSize = 3
	p, _ := newTestPool(t, maxSize, 5*time.Second)
	defer p.Shutdown()

	stop := make(chan struct{})
	var workers sync.WaitGroup
	for i := 0; i < 12; i++ {
		workers.Add(1)
		go func() {
			defer workers.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				r, err := p.Acquire()
				if !assert.NoError(t, err) {
					return
				}
				time.Sleep(time.Millisecond)
				p.Release(r)
			}
		}()
	}

	var sampler sync.WaitGroup
	sampler.Add(1)
	go func() {
		defer sampler.Done()
		for {
			select {
			case <-stop:
				return
			default:
			}
			s := p.Stats()
			assert.LessOrEqual(t, s.InUse, maxSize)
			assert.LessOrEqual(t, s.Active, maxSize)
			time.Sleep(100 * time.Microsecond)
		}
	}()

	time.Sleep(300 * time.Millisecond)
	close(stop)
	workers.Wait()
	sampler.Wait()

	assert.Equal(t, maxSize, p.AvailableCount())
	assert.Equal(t, 0, p.InUseCount())
	assertBalanced(t, p)
	assert.Equal(t, p.Stats().AcquireSuccesses, p.Stats().Releases)
}
