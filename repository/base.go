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
	"fmt"
	"strings"

	"github.com/tomoncle/connpool/types"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/feature"
)

type baseRepositoryImpl[T any] struct{}

// NewRepository returns a generic repository. It holds no connection; the
// caller passes one to every call.
func NewRepository[T any]() Repository[T] {
	return &baseRepositoryImpl[T]{}
}

func (r *baseRepositoryImpl[T]) GetOne(ctx context.Context, db bun.IDB, id any) (*T, error) {
	var entity T
	err := db.NewSelect().Model(&entity).Where("id = ?", id).Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &entity, nil
}

func (r *baseRepositoryImpl[T]) GetAll(ctx context.Context, db bun.IDB) ([]*T, error) {
	entities := make([]*T, 0)
	err := db.NewSelect().Model(&entities).Scan(ctx)
	return entities, err
}

func (r *baseRepositoryImpl[T]) List(ctx context.Context, db bun.IDB, filter *types.QueryFilter) ([]*T, error) {
	entities := make([]*T, 0)
	query := db.NewSelect().Model(&entities)
	if filter != nil {
		query = query.Where(filter.Schema, filter.Args...)
	}
	if err := query.Scan(ctx); err != nil {
		return nil, err
	}
	return entities, nil
}

func (r *baseRepositoryImpl[T]) Query(ctx context.Context, db bun.IDB, query string, args ...interface{}) ([]*T, error) {
	entities := make([]*T, 0)
	err := db.NewSelect().Model(&entities).Where(query, args...).Scan(ctx)
	return entities, err
}

func (r *baseRepositoryImpl[T]) Count(ctx context.Context, db bun.IDB, filter *types.QueryFilter) (int, error) {
	query := db.NewSelect().Model((*T)(nil))
	if filter != nil {
		query = query.Where(filter.Schema, filter.Args...)
	}
	return query.Count(ctx)
}

func (r *baseRepositoryImpl[T]) Page(ctx context.Context, db bun.IDB, pageRequest *types.PageRequest) (*types.Pagination[T], error) {
	entities := make([]*T, 0)
	query := db.NewSelect().Model(&entities)
	if pageRequest.GetFilter() != nil {
		query = query.Where(pageRequest.GetFilter().Schema, pageRequest.GetFilter().Args...)
	}
	pagination := types.NewDefaultPagination[T](pageRequest.GetPage(), pageRequest.GetPageSize())
	total, err := query.Count(ctx)
	if err != nil || total == 0 {
		return pagination, err
	}
	err = query.
		Offset(pageRequest.GetOffset()).
		Limit(pageRequest.GetPageSize()).
		Order(pageRequest.GetOrders()...).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	pagination.Total = total
	pagination.Items = entities
	return pagination, nil
}

func (r *baseRepositoryImpl[T]) Create(ctx context.Context, db bun.IDB, entity ...*T) error {
	if len(entity) == 0 {
		return nil
	}
	entities := append(make([]*T, 0, len(entity)), entity...)
	_, err := db.NewInsert().Model(&entities).Exec(ctx)
	return err
}

func (r *baseRepositoryImpl[T]) Update(ctx context.Context, db bun.IDB, entity *T) error {
	_, err := db.NewUpdate().Model(entity).WherePK().Exec(ctx)
	return err
}

func (r *baseRepositoryImpl[T]) Delete(ctx context.Context, db bun.IDB, id any) error {
	_, err := db.NewDelete().Model((*T)(nil)).Where("id = ?", id).Exec(ctx)
	return err
}

// Upsert inserts entities and, on a key conflict, updates fields. The
// statement follows the dialect: ON CONFLICT for postgres and sqlite, ON
// DUPLICATE KEY for mysql, insert-then-update otherwise.
func (r *baseRepositoryImpl[T]) Upsert(ctx context.Context, db bun.IDB, fields []string, duplicateKeys []string, entity ...*T) error {
	if len(fields) == 0 {
		return fmt.Errorf("fields cannot be empty")
	}
	if len(entity) == 0 {
		return nil
	}
	entities := append(make([]*T, 0, len(entity)), entity...)

	features := db.Dialect().Features()
	switch {
	case features.Has(feature.InsertOnConflict):
		return r.upsertOnConflict(ctx, db, fields, duplicateKeys, entities)
	case features.Has(feature.InsertOnDuplicateKey):
		return r.upsertOnDuplicateKey(ctx, db, fields, entities)
	default:
		return r.upsertFallback(ctx, db, entities)
	}
}

func (r *baseRepositoryImpl[T]) upsertOnDuplicateKey(ctx context.Context, db bun.IDB, fields []string, entities []*T) error {
	var sets []string
	for _, field := range fields {
		sets = append(sets, fmt.Sprintf("%s = VALUES(%s)", field, field))
	}
	_, err := db.NewInsert().
		Model(&entities).
		On("DUPLICATE KEY UPDATE " + strings.Join(sets, ", ")).
		Exec(ctx)
	return err
}

func (r *baseRepositoryImpl[T]) upsertOnConflict(ctx context.Context, db bun.IDB, fields []string, duplicateKeys []string, entities []*T) error {
	if len(duplicateKeys) == 0 {
		duplicateKeys = []string{"id"}
	}
	var sets []string
	for _, field := range fields {
		sets = append(sets, fmt.Sprintf("%s = EXCLUDED.%s", field, field))
	}
	_, err := db.NewInsert().
		Model(&entities).
		On("CONFLICT (" + strings.Join(duplicateKeys, ",") + ") DO UPDATE").
		Set(strings.Join(sets, ", ")).
		Exec(ctx)
	return err
}

func (r *baseRepositoryImpl[T]) upsertFallback(ctx context.Context, db bun.IDB, entities []*T) error {
	for _, entity := range entities {
		if _, err := db.NewInsert().Model(entity).Exec(ctx); err != nil {
			if _, updateErr := db.NewUpdate().Model(entity).WherePK().Exec(ctx); updateErr != nil {
				return fmt.Errorf("upsert failed for entity: insert error: %v, update error: %v", err, updateErr)
			}
		}
	}
	return nil
}
