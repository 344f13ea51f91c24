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

// Package connpool lends pooled database connections to generic entity
// services. Reads borrow a connection for one call and writes run in a
// transaction on a borrowed connection.
//
// Typical wiring:
//
//	m := database.NewManager()
//	p, err := m.Open(cfg)
//	...
//	defer m.Shutdown()
//	books := connpool.NewService[Book](p)
package connpool
