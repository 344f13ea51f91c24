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

package connpool

import (
	"context"

	"github.com/tomoncle/connpool/database"
	"github.com/tomoncle/connpool/pool"
	"github.com/tomoncle/connpool/repository"
	"github.com/tomoncle/connpool/types"
	"github.com/uptrace/bun"
)

// Service exposes repository operations on a connection pool. Reads borrow
// a connection for the duration of the call; writes run in their own
// transaction.
type Service[T any] interface {
	// Get returns a single entity by its identifier.
	Get(ctx context.Context, id any) (*T, error)

	// All returns all entities.
	All(ctx context.Context) ([]*T, error)

	// List returns entities that match the provided filter.
	List(ctx context.Context, filter *types.QueryFilter) ([]*T, error)

	// Query selects entities with a raw WHERE clause.
	Query(ctx context.Context, query string, args ...interface{}) ([]*T, error)

	// Count returns the number of entities matching filter, or all of them.
	Count(ctx context.Context, filter *types.QueryFilter) (int, error)

	// Page returns a paginated list of entities.
	Page(ctx context.Context, page *types.PageRequest) (*types.Pagination[T], error)

	// Save inserts one or more new entities.
	Save(ctx context.Context, model ...*T) error

	// SaveOrUpdate upserts entities based on fields and duplicate keys.
	SaveOrUpdate(ctx context.Context, fields []string, duplicateKeys []string, model ...*T) error

	// Update modifies an existing entity.
	Update(ctx context.Context, model *T) error

	// Delete removes an entity by its identifier.
	Delete(ctx context.Context, id any) error

	// InTx runs fn in one transaction on one borrowed connection. It commits
	// when fn returns nil and rolls back otherwise.
	InTx(ctx context.Context, fn func(ctx context.Context, db bun.IDB) error) error

	// Repository returns the repository, for use inside InTx.
	Repository() repository.Repository[T]
}

type baseServiceImpl[T any] struct {
	pool *pool.Pool[*database.Conn]
	repo repository.Repository[T]
}

// NewService returns a Service backed by the generic repository and p.
func NewService[T any](p *pool.Pool[*database.Conn]) Service[T] {
	return &baseServiceImpl[T]{pool: p, repo: repository.NewRepository[T]()}
}

func read[T, V any](s *baseServiceImpl[T], fn func(db bun.IDB) (V, error)) (V, error) {
	return pool.WithResource(s.pool, func(c *database.Conn) (V, error) {
		return fn(c.IDB())
	})
}

func (s *baseServiceImpl[T]) Repository() repository.Repository[T] {
	return s.repo
}

func (s *baseServiceImpl[T]) Get(ctx context.Context, id any) (*T, error) {
	return read(s, func(db bun.IDB) (*T, error) { return s.repo.GetOne(ctx, db, id) })
}

func (s *baseServiceImpl[T]) All(ctx context.Context) ([]*T, error) {
	return read(s, func(db bun.IDB) ([]*T, error) { return s.repo.GetAll(ctx, db) })
}

func (s *baseServiceImpl[T]) List(ctx context.Context, filter *types.QueryFilter) ([]*T, error) {
	return read(s, func(db bun.IDB) ([]*T, error) { return s.repo.List(ctx, db, filter) })
}

func (s *baseServiceImpl[T]) Query(ctx context.Context, query string, args ...interface{}) ([]*T, error) {
	return read(s, func(db bun.IDB) ([]*T, error) { return s.repo.Query(ctx, db, query, args...) })
}

func (s *baseServiceImpl[T]) Count(ctx context.Context, filter *types.QueryFilter) (int, error) {
	return read(s, func(db bun.IDB) (int, error) { return s.repo.Count(ctx, db, filter) })
}

func (s *baseServiceImpl[T]) Page(ctx context.Context, page *types.PageRequest) (*types.Pagination[T], error) {
	return read(s, func(db bun.IDB) (*types.Pagination[T], error) { return s.repo.Page(ctx, db, page) })
}

func (s *baseServiceImpl[T]) Save(ctx context.Context, model ...*T) error {
	return s.InTx(ctx, func(ctx context.Context, db bun.IDB) error {
		return s.repo.Create(ctx, db, model...)
	})
}

func (s *baseServiceImpl[T]) SaveOrUpdate(ctx context.Context, fields []string, duplicateKeys []string, model ...*T) error {
	return s.InTx(ctx, func(ctx context.Context, db bun.IDB) error {
		return s.repo.Upsert(ctx, db, fields, duplicateKeys, model...)
	})
}

func (s *baseServiceImpl[T]) Update(ctx context.Context, model *T) error {
	return s.InTx(ctx, func(ctx context.Context, db bun.IDB) error {
		return s.repo.Update(ctx, db, model)
	})
}

func (s *baseServiceImpl[T]) Delete(ctx context.Context, id any) error {
	return s.InTx(ctx, func(ctx context.Context, db bun.IDB) error {
		return s.repo.Delete(ctx, db, id)
	})
}

func (s *baseServiceImpl[T]) InTx(ctx context.Context, fn func(ctx context.Context, db bun.IDB) error) error {
	_, err := pool.ExecuteTransaction(ctx, s.pool, func(c *database.Conn) (struct{}, error) {
		return struct{}{}, fn(ctx, c.IDB())
	})
	return err
}
