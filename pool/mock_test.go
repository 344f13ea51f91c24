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
	"sync"
	"sync/atomic"
)

type mockResource struct {
	id int

	mu          sync.Mutex
	closed      bool
	invalid     bool
	autoCommit  bool
	begins      int
	commits     int
	rollbacks   int
	beginErr    error
	commitErr   error
	rollbackErr error
}

func (m *mockResource) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return errors.New("already closed")
	}
	m.closed = true
	return nil
}

func (m *mockResource) SetAutoCommit(_ context.Context, autoCommit bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !autoCommit && m.beginErr != nil {
		return m.beginErr
	}
	if !autoCommit {
		m.begins++
	}
	m.autoCommit = autoCommit
	return nil
}

func (m *mockResource) Commit() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.commits++
	return m.commitErr
}

func (m *mockResource) Rollback() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rollbacks++
	return m.rollbackErr
}

func (m *mockResource) isClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

func (m *mockResource) invalidate() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.invalid = true
}

func (m *mockResource) snapshot() (begins, commits, rollbacks int, autoCommit bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.begins, m.commits, m.rollbacks, m.autoCommit
}

func validMock(m *mockResource) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return !m.closed && !m.invalid
}

// mockFactory hands out numbered resources and can be switched to failing.
type mockFactory struct {
	counter atomic.Int32
	failing atomic.Bool
	failAt  int32

	mu      sync.Mutex
	created []*mockResource
}

var errFactory = errors.New("connection refused")

func (f *mockFactory) create(context.Context) (*mockResource, error) {
	n := f.counter.Add(1)
	if f.failing.Load() || (f.failAt > 0 && n == f.failAt) {
		return nil, errFactory
	}
	r := &mockResource{id: int(n), autoCommit: true}
	f.mu.Lock()
	f.created = append(f.created, r)
	f.mu.Unlock()
	return r, nil
}

func (f *mockFactory) all() []*mockResource {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*mockResource, len(f.created))
	copy(out, f.created)
	return out
}
