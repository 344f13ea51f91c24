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
	"fmt"
	"time"
)

var (
	// ErrPoolInitialization is returned by New when the pool cannot be filled.
	ErrPoolInitialization = errors.New("pool: initialization failed")
	// ErrPoolExhausted is returned when no resource frees up within the acquire timeout.
	ErrPoolExhausted = errors.New("pool: resource pool exhausted")
	// ErrPoolCreation is returned when a replacement resource cannot be created.
	ErrPoolCreation = errors.New("pool: resource creation failed")
	// ErrTransaction is returned when a transaction cannot be started or committed.
	ErrTransaction = errors.New("pool: transaction failed")
	// ErrPoolClosed is returned by Acquire after Shutdown.
	ErrPoolClosed = errors.New("pool: pool is shut down")
)

// ExhaustedError carries diagnostics for an acquire that timed out.
type ExhaustedError struct {
	ActiveCount int
	Timeout     time.Duration
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("%s: no resource available after %s (active resources: %d)",
		ErrPoolExhausted.Error(), e.Timeout, e.ActiveCount)
}

func (e *ExhaustedError) Is(target error) bool {
	return target == ErrPoolExhausted
}

func initializationError(cause error) error {
	return fmt.Errorf("%w: %w", ErrPoolInitialization, cause)
}

func creationError(cause error) error {
	return fmt.Errorf("%w: %w", ErrPoolCreation, cause)
}

func transactionError(op string, cause error) error {
	return fmt.Errorf("%w: %s: %w", ErrTransaction, op, cause)
}
