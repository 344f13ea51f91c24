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

package database

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tomoncle/connpool/pool"
	"github.com/uptrace/bun"
)

type testBook struct {
	bun.BaseModel `bun:"table:books"`

	ID    int64  `bun:"id,pk"`
	Title string `bun:"title,notnull"`
}

func sqliteConfig(t *testing.T, size int) *ConnectionConfig {
	t.Helper()
	return &ConnectionConfig{
		Type:                  TypeSQLite,
		DBName:                filepath.Join(t.TempDir(), "library"),
		MaxPoolSize:           size,
		AcquireTimeoutSeconds: 1,
		ConnectTimeoutSeconds: 5,
	}
}

func openTestManager(t *testing.T, size int) (*Manager, *pool.Pool[*Conn]) {
	t.Helper()
	m := NewManager()
	p, err := m.Open(sqliteConfig(t, size))
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Shutdown() })

	_, err = pool.ExecuteTransaction(context.Background(), p, func(c *Conn) (struct{}, error) {
		return struct{}{}, CreateTables(context.Background(), c.IDB(), []SQLModel{NewModelAdapter((*testBook)(nil), 0)})
	})
	require.NoError(t, err)
	return m, p
}

func countBooks(t *testing.T, p *pool.Pool[*Conn]) int {
	t.Helper()
	n, err := pool.WithResource(p, func(c *Conn) (int, error) {
		return c.IDB().NewSelect().Model((*testBook)(nil)).Count(context.Background())
	})
	require.NoError(t, err)
	return n
}

func TestManagerOpenFillsPool(t *testing.T) {
	_, p := openTestManager(t, 2)
	assert.Equal(t, 2, p.MaxSize())
	assert.Equal(t, 2, p.ActiveCount())
	assert.Equal(t, 2, p.AvailableCount())
}

func TestManagerFirstConfigWins(t *testing.T) {
	m, first := openTestManager(t, 2)

	second, err := m.Open(sqliteConfig(t, 5))
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Equal(t, 2, second.MaxSize())

	cfg, ok := m.Config()
	require.True(t, ok)
	assert.Equal(t, 2, cfg.MaxPoolSize)
}

func TestManagerRetriesAfterFailedOpen(t *testing.T) {
	m := NewManager()
	defer m.Shutdown()

	_, err := m.Open(&ConnectionConfig{Type: "oracle", MaxPoolSize: 1})
	assert.ErrorIs(t, err, pool.ErrPoolInitialization)
	assert.Nil(t, m.Pool())

	p, err := m.Open(sqliteConfig(t, 1))
	require.NoError(t, err)
	assert.Same(t, p, m.Pool())
}

func TestManagerShutdown(t *testing.T) {
	m, p := openTestManager(t, 2)

	held, err := p.Acquire()
	require.NoError(t, err)

	require.NoError(t, m.Shutdown())
	assert.True(t, held.IsClosed())
	assert.Equal(t, 0, p.ActiveCount())
	assert.NoError(t, m.Shutdown())

	_, err = p.Acquire()
	assert.ErrorIs(t, err, pool.ErrPoolClosed)
	_, err = m.Open(sqliteConfig(t, 1))
	assert.ErrorIs(t, err, ErrManagerClosed)
	assert.False(t, m.HealthCheck(context.Background()).Healthy)
}

func TestExecuteTransactionCommitsOnConn(t *testing.T) {
	_, p := openTestManager(t, 2)
	ctx := context.Background()

	id, err := pool.ExecuteTransaction(ctx, p, func(c *Conn) (int64, error) {
		assert.False(t, c.AutoCommit())
		b := &testBook{ID: 1, Title: "The Go Programming Language"}
		_, err := c.IDB().NewInsert().Model(b).Exec(ctx)
		return b.ID, err
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), id)
	assert.Equal(t, 1, countBooks(t, p))
	assert.Equal(t, 2, p.AvailableCount())
}

func TestExecuteTransactionRollsBackOnConn(t *testing.T) {
	_, p := openTestManager(t, 2)
	ctx := context.Background()
	errNotAvailable := errors.New("copy not available")

	_, err := pool.ExecuteTransaction(ctx, p, func(c *Conn) (struct{}, error) {
		if _, err := c.IDB().NewInsert().Model(&testBook{ID: 7, Title: "SICP"}).Exec(ctx); err != nil {
			return struct{}{}, err
		}
		return struct{}{}, errNotAvailable
	})
	assert.Same(t, errNotAvailable, err)
	assert.Equal(t, 0, countBooks(t, p))
}

func TestDuplicateKeyIsClassified(t *testing.T) {
	_, p := openTestManager(t, 1)
	ctx := context.Background()

	insert := func(c *Conn) (struct{}, error) {
		_, err := c.IDB().NewInsert().Model(&testBook{ID: 1, Title: "dup"}).Exec(ctx)
		return struct{}{}, err
	}
	_, err := pool.ExecuteTransaction(ctx, p, insert)
	require.NoError(t, err)
	_, err = pool.ExecuteTransaction(ctx, p, insert)
	assert.True(t, IsDuplicateKey(err))
	assert.Equal(t, 1, p.ActiveCount())
}

func TestManagerHealthAndStats(t *testing.T) {
	m := NewManager()
	assert.Equal(t, "Database not initialized", m.HealthCheck(context.Background()).LastError)
	assert.Equal(t, &PoolStats{}, m.Stats())
	_, err := m.Collector("library")
	assert.Error(t, err)
	_ = m.Shutdown()

	m, p := openTestManager(t, 2)
	held, err := p.Acquire()
	require.NoError(t, err)
	defer p.Release(held)

	status := m.HealthCheck(context.Background())
	assert.True(t, status.Healthy)
	assert.Equal(t, 2, status.MaxSize)
	assert.Equal(t, 1, status.InUseConns)
	assert.Equal(t, 1, status.IdleConns)

	stats := m.Stats()
	assert.Equal(t, 1, stats.Pool.InUse)
	assert.GreaterOrEqual(t, stats.DB.OpenConns, 2)

	c, err := m.Collector("library")
	require.NoError(t, err)
	assert.Equal(t, 9, testutil.CollectAndCount(c))
}
