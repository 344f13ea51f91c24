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
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/tomoncle/connpool/pool"
	"github.com/uptrace/bun"
)

// ErrManagerClosed is returned by Open after Shutdown.
var ErrManagerClosed = errors.New("database: manager is shut down")

// Manager owns the single connection pool of the process. Create one at
// startup and hand it to whatever needs connections.
type Manager struct {
	mu     sync.Mutex
	config *ConnectionConfig
	db     *bun.DB
	pool   *pool.Pool[*Conn]
	logger Logger
	closed bool
}

func NewManager() *Manager {
	return &Manager{logger: GetLogger()}
}

// SetLogger replaces the manager logger. Pools opened afterwards use it too.
func (m *Manager) SetLogger(logger Logger) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if logger != nil {
		m.logger = logger
	}
}

// Open returns the manager's pool, creating it on the first successful call.
// cfg is copied and DB_* environment variables override it. Later calls
// return the existing pool whatever their configuration; a differing one is
// only logged. If creation fails nothing is kept and a later call retries.
func (m *Manager) Open(cfg *ConnectionConfig) (*pool.Pool[*Conn], error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, ErrManagerClosed
	}

	if cfg == nil {
		cfg = DefaultConnectionConfig()
	}
	c := *cfg
	c.normalize()
	OverrideFromEnv(&c)

	if m.pool != nil {
		if c != *m.config {
			m.logger.Warn("Pool already created, ignoring new configuration",
				"type", c.Type, "max_pool_size", c.MaxPoolSize)
		}
		return m.pool, nil
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", pool.ErrPoolInitialization, err)
	}

	db, err := openDB(&c, m.logger)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", pool.ErrPoolInitialization, err)
	}

	p, err := pool.New(pool.Config{
		MaxSize:        c.MaxPoolSize,
		AcquireTimeout: c.AcquireTimeout(),
	}, newConnFactory(db, c.ConnectTimeout()), ValidateConn)
	if err != nil {
		_ = db.Close()
		m.logger.Error("Failed to create connection pool", "type", c.Type, "error", err)
		return nil, err
	}

	m.config = &c
	m.db = db
	m.pool = p
	m.logger.Info("Database connection pool ready", "type", c.Type, "host", c.Host,
		"dbname", c.DBName, "max_pool_size", c.MaxPoolSize)
	return p, nil
}

// Pool returns the pool, or nil before the first successful Open.
func (m *Manager) Pool() *pool.Pool[*Conn] {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pool
}

// Config returns a copy of the configuration the pool was opened with.
func (m *Manager) Config() (ConnectionConfig, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.config == nil {
		return ConnectionConfig{}, false
	}
	return *m.config, true
}

// Shutdown closes every pooled connection and the shared handle. Later
// calls, and Open after it, do nothing but report the closed state.
func (m *Manager) Shutdown() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true
	if m.pool == nil {
		return nil
	}

	m.pool.Shutdown()
	err := m.db.Close()
	if err != nil {
		m.logger.Error("Failed to close database handle", "error", err)
	} else {
		m.logger.Info("Database connection pool closed")
	}
	return err
}

// HealthCheck pings the database on a fresh connection and reports the
// pool counts.
func (m *Manager) HealthCheck(ctx context.Context) *HealthStatus {
	m.mu.Lock()
	db, p, closed := m.db, m.pool, m.closed
	m.mu.Unlock()

	start := time.Now()
	status := &HealthStatus{LastCheckTime: start}
	switch {
	case closed:
		status.LastError = ErrManagerClosed.Error()
		return status
	case p == nil:
		status.LastError = "Database not initialized"
		return status
	}

	s := p.Stats()
	status.MaxSize = s.MaxSize
	status.ActiveConns = s.Active
	status.IdleConns = s.Available
	status.InUseConns = s.InUse

	ctx, cancel := context.WithTimeout(ctx, validateTimeout)
	defer cancel()
	err := db.PingContext(ctx)
	status.ResponseTime = time.Since(start)
	if err != nil {
		status.LastError = err.Error()
		m.logger.Warn("Database health check failed", "error", err)
		return status
	}
	status.Healthy = true
	status.Connected = true
	return status
}

// Stats returns pool counters and driver statistics. Before Open it is
// all zero.
func (m *Manager) Stats() *PoolStats {
	m.mu.Lock()
	db, p := m.db, m.pool
	m.mu.Unlock()

	if p == nil {
		return &PoolStats{}
	}
	ds := db.Stats()
	return &PoolStats{
		Pool: p.Stats(),
		DB: DBStats{
			OpenConns:    ds.OpenConnections,
			InUse:        ds.InUse,
			Idle:         ds.Idle,
			WaitCount:    ds.WaitCount,
			WaitDuration: ds.WaitDuration,
		},
	}
}

// Collector exports the pool statistics under namespace, labelled with the
// database type.
func (m *Manager) Collector(namespace string) (prometheus.Collector, error) {
	m.mu.Lock()
	p, cfg := m.pool, m.config
	m.mu.Unlock()
	if p == nil {
		return nil, errors.New("database: pool not opened")
	}
	return pool.NewCollector(p, namespace, prometheus.Labels{"db_type": cfg.Type}), nil
}

// CreateSchema creates the tables of all registered models inside one
// transaction.
func (m *Manager) CreateSchema(ctx context.Context) error {
	p := m.Pool()
	if p == nil {
		return errors.New("database: pool not opened")
	}
	_, err := pool.ExecuteTransaction(ctx, p, func(c *Conn) (struct{}, error) {
		return struct{}{}, CreateTables(ctx, c.IDB(), GetRegisteredModels())
	})
	return err
}
