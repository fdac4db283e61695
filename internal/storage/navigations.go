/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"pagecomposer/internal/domain"
)

// language=SQL
// dialect=SQLite
const upsertNavigationSQL = `INSERT INTO navigations(id, name, items_json, updated_at) VALUES (?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET name=excluded.name, items_json=excluded.items_json, updated_at=excluded.updated_at`

// language=SQL
// dialect=SQLite
const selectNavigationSQL = `SELECT name, items_json FROM navigations WHERE id = ?`

// language=SQL
// dialect=SQLite
const listNavigationsSQL = `SELECT id, name, items_json FROM navigations ORDER BY id`

// NavigationStore keeps navigation entities in the document index and
// satisfies editor.NavigationResolver.
type NavigationStore struct {
	db *sql.DB
}

// OpenNavigationStore opens the index under root.
func OpenNavigationStore(root string) (*NavigationStore, error) {
	db, err := InitOrOpenIndex(root)
	if err != nil {
		return nil, err
	}
	return &NavigationStore{db: db}, nil
}

func (s *NavigationStore) Close() error { return s.db.Close() }

// Put inserts or replaces a navigation.
func (s *NavigationStore) Put(ctx context.Context, nav domain.Navigation) error {
	if nav.ID == "" {
		return errors.New("navigation id is required")
	}
	items := nav.Items
	if items == nil {
		items = []domain.NavItem{}
	}
	b, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("marshal items: %w", err)
	}
	_, err = s.db.ExecContext(ctx, upsertNavigationSQL, nav.ID, nav.Name, string(b), time.Now().UTC().Format(time.RFC3339))
	return err
}

// Resolve returns the navigation with id, or nil when it does not exist.
func (s *NavigationStore) Resolve(ctx context.Context, id string) (*domain.Navigation, error) {
	var name, items string
	err := s.db.QueryRowContext(ctx, selectNavigationSQL, id).Scan(&name, &items)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	nav := &domain.Navigation{ID: id, Name: name}
	if err := json.Unmarshal([]byte(items), &nav.Items); err != nil {
		return nil, fmt.Errorf("decode navigation %s: %w", id, err)
	}
	return nav, nil
}

// Delete removes a navigation and reports whether it existed. Callers
// holding an editing session must follow up with InvalidateNavigation.
func (s *NavigationStore) Delete(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM navigations WHERE id = ?`, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// List returns every navigation ordered by id.
func (s *NavigationStore) List(ctx context.Context) ([]domain.Navigation, error) {
	rows, err := s.db.QueryContext(ctx, listNavigationsSQL)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.Navigation
	for rows.Next() {
		var nav domain.Navigation
		var items string
		if err := rows.Scan(&nav.ID, &nav.Name, &items); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(items), &nav.Items); err != nil {
			return nil, fmt.Errorf("decode navigation %s: %w", nav.ID, err)
		}
		out = append(out, nav)
	}
	return out, rows.Err()
}
