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
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// validateTimeout bounds the liveness check run on checkout and release.
const validateTimeout = 5 * time.Second

var errConnClosed = errors.New("database: connection is closed")

// Conn is one physical database connection lent out by the pool. Statements
// run through IDB, which is the open transaction while autocommit is off
// and the bare connection otherwise.
type Conn struct {
	id        string
	createdAt time.Time
	conn      bun.Conn

	mu     sync.Mutex
	tx     bun.Tx
	inTx   bool
	closed bool
	broken bool
}

func newConn(bc bun.Conn) *Conn {
	return &Conn{
		id:        uuid.NewString(),
		createdAt: time.Now(),
		conn:      bc,
	}
}

func (c *Conn) ID() string {
	return c.id
}

func (c *Conn) CreatedAt() time.Time {
	return c.createdAt
}

func (c *Conn) String() string {
	return fmt.Sprintf("Conn(%s)", c.id)
}

// IDB returns the handle statements should run against.
func (c *Conn) IDB() bun.IDB {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.inTx {
		return c.tx
	}
	return c.conn
}

// AutoCommit reports whether statements commit individually.
func (c *Conn) AutoCommit() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.inTx
}

// SetAutoCommit(false) begins a transaction, SetAutoCommit(true) ends any
// transaction still open by rolling it back. A connection whose leftover
// transaction cannot be ended is marked broken and fails validation.
func (c *Conn) SetAutoCommit(ctx context.Context, autoCommit bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errConnClosed
	}

	if !autoCommit {
		if c.inTx {
			return nil
		}
		tx, err := c.conn.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		c.tx = tx
		c.inTx = true
		return nil
	}

	if !c.inTx {
		return nil
	}
	c.inTx = false
	if err := c.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		c.broken = true
		return err
	}
	return nil
}

// Commit commits the open transaction. The transaction is finished
// afterwards whether or not the commit succeeded.
func (c *Conn) Commit() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.inTx {
		return errors.New("database: commit without an open transaction")
	}
	c.inTx = false
	return c.tx.Commit()
}

// Rollback discards the open transaction. Without one it does nothing.
func (c *Conn) Rollback() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.inTx {
		return nil
	}
	c.inTx = false
	if err := c.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return err
	}
	return nil
}

func (c *Conn) Ping(ctx context.Context) error {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return errConnClosed
	}
	return c.conn.PingContext(ctx)
}

func (c *Conn) IsClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Close closes the physical connection. Closing twice is a no-op.
func (c *Conn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	if c.inTx {
		c.inTx = false
		_ = c.tx.Rollback()
	}
	if err := c.conn.Close(); err != nil && !errors.Is(err, sql.ErrConnDone) {
		return err
	}
	return nil
}

// ValidateConn is the pool validator: a connection is usable when it is
// open, not broken and answers a ping within five seconds.
func ValidateConn(c *Conn) bool {
	c.mu.Lock()
	unusable := c.closed || c.broken
	c.mu.Unlock()
	if unusable {
		return false
	}
	ctx, cancel := context.WithTimeout(context.Background(), validateTimeout)
	defer cancel()
	return c.Ping(ctx) == nil
}
