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

package repository

import (
	"context"

	"github.com/tomoncle/connpool/types"
	"github.com/uptrace/bun"
)

// CrudRepository defines basic CRUD operations for a generic entity type.
// Every call runs on db, which is a borrowed connection or its open
// transaction.
type CrudRepository[T any] interface {
	GetOne(ctx context.Context, db bun.IDB, id any) (*T, error)

	GetAll(ctx context.Context, db bun.IDB) ([]*T, error)

	List(ctx context.Context, db bun.IDB, filter *types.QueryFilter) ([]*T, error)

	Query(ctx context.Context, db bun.IDB, query string, args ...interface{}) ([]*T, error)

	Count(ctx context.Context, db bun.IDB, filter *types.QueryFilter) (int, error)

	Create(ctx context.Context, db bun.IDB, entity ...*T) error

	Upsert(ctx context.Context, db bun.IDB, fields []string, duplicateKeys []string, entity ...*T) error

	Update(ctx context.Context, db bun.IDB, entity *T) error

	Delete(ctx context.Context, db bun.IDB, id any) error
}

// PageQueryRepository defines pagination functionality for listing entities.
type PageQueryRepository[T any] interface {
	Page(ctx context.Context, db bun.IDB, page *types.PageRequest) (*types.Pagination[T], error)
}

// Repository combines CRUD and pagination.
type Repository[T any] interface {
	CrudRepository[T]
	PageQueryRepository[T]
}
