/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package editor

import (
	"context"

	"pagecomposer/internal/domain"
)

// Persistence loads and saves whole documents. Implementations own storage
// details; ids and order values must round-trip unchanged.
type Persistence interface {
	Load(ctx context.Context, documentID string) (domain.Document, error)
	Save(ctx context.Context, documentID string, doc domain.Document) error
}

// NavigationResolver looks up navigation entities referenced by navbar
// nodes. A missing entity is (nil, nil).
type NavigationResolver interface {
	Resolve(ctx context.Context, navigationID string) (*domain.Navigation, error)
}

// StaticNavigations resolves from an in-memory map.
type StaticNavigations map[string]domain.Navigation

func (s StaticNavigations) Resolve(_ context.Context, id string) (*domain.Navigation, error) {
	nav, ok := s[id]
	if !ok {
		return nil, nil
	}
	nav.Items = append([]domain.NavItem(nil), nav.Items...)
	return &nav, nil
}
