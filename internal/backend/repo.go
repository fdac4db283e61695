/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package backend

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"sync"
	"time"

	"pagecomposer/internal/domain"
)

var (
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a conditional write sees a newer version.
	ErrConflict = errors.New("version conflict")
)

// DocumentRecord is a stored document with its revision metadata.
type DocumentRecord struct {
	ID        string          `json:"id"`
	Version   int64           `json:"version"`
	UpdatedBy string          `json:"updated_by"`
	UpdatedAt time.Time       `json:"updated_at"`
	Body      json.RawMessage `json:"document,omitempty"`
}

// Repository is the server's storage. ifVersion 0 writes unconditionally.
type Repository interface {
	Ping(ctx context.Context) error
	GetDocument(ctx context.Context, id string) (DocumentRecord, error)
	PutDocument(ctx context.Context, id string, body json.RawMessage, ifVersion int64, subject string) (int64, error)
	ListDocuments(ctx context.Context) ([]DocumentRecord, error)
	GetNavigation(ctx context.Context, id string) (domain.Navigation, error)
	PutNavigation(ctx context.Context, nav domain.Navigation) error
	DeleteNavigation(ctx context.Context, id string) error
}

// MemoryRepository keeps everything in process memory; used for local
// development and tests.
type MemoryRepository struct {
	mu   sync.Mutex
	docs map[string]DocumentRecord
	navs map[string]domain.Navigation
	now  func() time.Time
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{docs: map[string]DocumentRecord{}, navs: map[string]domain.Navigation{}, now: time.Now}
}

func (m *MemoryRepository) Ping(context.Context) error { return nil }

func (m *MemoryRepository) GetDocument(_ context.Context, id string) (DocumentRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.docs[id]
	if !ok {
		return DocumentRecord{}, ErrNotFound
	}
	rec.Body = append(json.RawMessage(nil), rec.Body...)
	return rec, nil
}

func (m *MemoryRepository) PutDocument(_ context.Context, id string, body json.RawMessage, ifVersion int64, subject string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, exists := m.docs[id]
	if ifVersion != 0 && (!exists || cur.Version != ifVersion) {
		return 0, ErrConflict
	}
	next := cur.Version + 1
	m.docs[id] = DocumentRecord{
		ID:        id,
		Version:   next,
		UpdatedBy: subject,
		UpdatedAt: m.now().UTC(),
		Body:      append(json.RawMessage(nil), body...),
	}
	return next, nil
}

func (m *MemoryRepository) ListDocuments(context.Context) ([]DocumentRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]DocumentRecord, 0, len(m.docs))
	for _, rec := range m.docs {
		rec.Body = nil
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MemoryRepository) GetNavigation(_ context.Context, id string) (domain.Navigation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	nav, ok := m.navs[id]
	if !ok {
		return domain.Navigation{}, ErrNotFound
	}
	nav.Items = append([]domain.NavItem{}, nav.Items...)
	return nav, nil
}

func (m *MemoryRepository) PutNavigation(_ context.Context, nav domain.Navigation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	nav.Items = append([]domain.NavItem{}, nav.Items...)
	m.navs[nav.ID] = nav
	return nil
}

func (m *MemoryRepository) DeleteNavigation(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.navs[id]; !ok {
		return ErrNotFound
	}
	delete(m.navs, id)
	return nil
}
