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
)

// TxResource is a Resource that can run statements inside a transaction by
// switching autocommit off and on.
type TxResource interface {
	Resource
	SetAutoCommit(ctx context.Context, autoCommit bool) error
	Commit() error
	Rollback() error
}

// txContext tracks one transaction on a borrowed resource. It lives from
// begin until autocommit is restored, which always happens before the
// resource goes back to the pool.
type txContext[R TxResource] struct {
	resource           R
	autoCommitDisabled bool
	logger             Logger
}

func (tc *txContext[R]) begin(ctx context.Context) error {
	if err := tc.resource.SetAutoCommit(ctx, false); err != nil {
		return transactionError("begin", err)
	}
	tc.autoCommitDisabled = true
	tc.logger.Debug("Transaction started")
	return nil
}

func (tc *txContext[R]) commit() error {
	if err := tc.resource.Commit(); err != nil {
		return transactionError("commit", err)
	}
	tc.logger.Debug("Transaction committed")
	return nil
}

// rollback never fails the caller; the error that caused it must win.
func (tc *txContext[R]) rollback() {
	if err := tc.resource.Rollback(); err != nil {
		tc.logger.Error("Error while rolling back transaction", "error", err)
		return
	}
	tc.logger.Debug("Transaction rolled back")
}

func (tc *txContext[R]) restore(ctx context.Context) {
	if !tc.autoCommitDisabled {
		return
	}
	tc.autoCommitDisabled = false
	if err := tc.resource.SetAutoCommit(context.WithoutCancel(ctx), true); err != nil {
		tc.logger.Warn("Failed to restore autocommit", "error", err)
	}
}

// ExecuteTransaction borrows a resource from p, runs fn inside a transaction
// and releases the resource on every exit path, panics included.
//
// When fn fails the transaction is rolled back and fn's error is returned
// unchanged; rollback problems are only logged. When fn succeeds the
// transaction is committed, and a commit failure is returned as an error
// matching ErrTransaction. Acquire errors are returned as is.
func ExecuteTransaction[R TxResource, T any](ctx context.Context, p *Pool[R], fn func(R) (T, error)) (T, error) {
	var zero T
	if fn == nil {
		return zero, transactionError("begin", errors.New("unit of work is nil"))
	}

	resource, err := p.Acquire()
	if err != nil {
		return zero, err
	}
	defer p.Release(resource)

	tc := &txContext[R]{resource: resource, logger: p.logger}
	defer func() {
		if r := recover(); r != nil {
			if tc.autoCommitDisabled {
				tc.rollback()
				tc.restore(ctx)
			}
			panic(r)
		}
	}()

	if err := tc.begin(ctx); err != nil {
		return zero, err
	}

	result, err := fn(resource)
	if err != nil {
		tc.rollback()
		tc.restore(ctx)
		return zero, err
	}

	if err := tc.commit(); err != nil {
		tc.rollback()
		tc.restore(ctx)
		return zero, err
	}
	tc.restore(ctx)
	return result, nil
}

// WithResource borrows a resource for fn without a transaction and
// releases it when fn returns or panics.
func WithResource[R Resource, T any](p *Pool[R], fn func(R) (T, error)) (T, error) {
	resource, err := p.Acquire()
	if err != nil {
		var zero T
		return zero, err
	}
	defer p.Release(resource)
	return fn(resource)
}
