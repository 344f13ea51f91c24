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

package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPageRequestBounds(t *testing.T) {
	p := NewDefaultPageRequest(0, 0)
	assert.Equal(t, 1, p.GetPage())
	assert.Equal(t, DefaultPageSize, p.GetPageSize())
	assert.Equal(t, 0, p.GetOffset())

	p = NewDefaultPageRequest(3, 5000)
	assert.Equal(t, MaxPageSize, p.GetPageSize())
	assert.Equal(t, 2*MaxPageSize, p.GetOffset())
}

func TestQueryFilterAnd(t *testing.T) {
	var f *QueryFilter
	f = f.And("copies > ?", 0)
	assert.Equal(t, "copies > ?", f.Schema)

	f = f.And("author = ?", "Austen")
	assert.Equal(t, "(copies > ?) AND (author = ?)", f.Schema)
	assert.Equal(t, []interface{}{0, "Austen"}, f.Args)
}

func TestPaginationPages(t *testing.T) {
	p := &Pagination[struct{}]{Page: 2, PageSize: 2, Total: 5}
	assert.Equal(t, 3, p.TotalPages())
	assert.True(t, p.HasNext())

	p.Page = 3
	assert.False(t, p.HasNext())
	assert.Equal(t, 0, NewDefaultPagination[struct{}](1, 10).TotalPages())
}
