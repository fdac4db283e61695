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
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"sort"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"pagecomposer/internal/domain"
	applog "pagecomposer/internal/log"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// OpenPostgres connects through the pgx stdlib driver, pings the server and
// applies pending migrations.
func OpenPostgres(ctx context.Context, dsn string) (*PGRepository, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	pctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	if err := applyMigrations(pctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &PGRepository{db: db}, nil
}

// applyMigrations applies embedded SQL migrations in filename order and
// records each one in schema_migrations.
func applyMigrations(ctx context.Context, db *sql.DB) error {
	l := applog.WithOperation(applog.WithComponent("backend"), "migrate")
	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("read migrations: %w", err)
	}
	files := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(strings.ToLower(e.Name()), ".sql") {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)

	// dialect=PostgreSQL
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version BIGINT PRIMARY KEY,
		name TEXT NOT NULL,
		applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`); err != nil {
		return fmt.Errorf("ensure schema_migrations: %w", err)
	}

	applied := map[int64]bool{}
	rows, err := db.QueryContext(ctx, `SELECT version FROM schema_migrations`)
	if err != nil {
		return fmt.Errorf("select schema_migrations: %w", err)
	}
	for rows.Next() {
		var v int64
		if err := rows.Scan(&v); err != nil {
			_ = rows.Close()
			return err
		}
		applied[v] = true
	}
	if err := rows.Close(); err != nil {
		return err
	}

	for _, fname := range files {
		version, err := parseVersion(fname)
		if err != nil {
			return err
		}
		if applied[version] {
			continue
		}
		b, err := migrationsFS.ReadFile(path.Join("migrations", fname))
		if err != nil {
			return err
		}
		if strings.TrimSpace(string(b)) == "" {
			continue
		}
		l.Info("applying migration", slog.String("file", fname))
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, string(b)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("apply %s: %w", fname, err)
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO schema_migrations(version, name) VALUES ($1, $2)`, version, fname); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record %s: %w", fname, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit %s: %w", fname, err)
		}
	}
	return nil
}

func parseVersion(name string) (int64, error) {
	base := path.Base(name)
	parts := strings.SplitN(base, "_", 2)
	if len(parts) < 2 {
		return 0, errors.New("invalid migration filename: " + name)
	}
	v, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse version from %s: %w", name, err)
	}
	return v, nil
}

// PGRepository stores documents and navigations in Postgres.
type PGRepository struct {
	db *sql.DB
}

func (p *PGRepository) Close() error { return p.db.Close() }

func (p *PGRepository) Ping(ctx context.Context) error { return p.db.PingContext(ctx) }

// language=PostgreSQL
const selectDocumentSQL = `SELECT version, updated_by, updated_at, body FROM documents WHERE id = $1`

func (p *PGRepository) GetDocument(ctx context.Context, id string) (DocumentRecord, error) {
	rec := DocumentRecord{ID: id}
	var body []byte
	err := p.db.QueryRowContext(ctx, selectDocumentSQL, id).Scan(&rec.Version, &rec.UpdatedBy, &rec.UpdatedAt, &body)
	if errors.Is(err, sql.ErrNoRows) {
		return DocumentRecord{}, ErrNotFound
	}
	if err != nil {
		return DocumentRecord{}, err
	}
	rec.Body = body
	return rec, nil
}

// language=PostgreSQL
const upsertDocumentSQL = `INSERT INTO documents(id, body, version, updated_by, updated_at)
VALUES ($1, $2, 1, $3, now())
ON CONFLICT (id) DO UPDATE SET body = EXCLUDED.body, version = documents.version + 1,
	updated_by = EXCLUDED.updated_by, updated_at = now()
RETURNING version`

// language=PostgreSQL
const conditionalUpdateDocumentSQL = `UPDATE documents SET body = $2, version = version + 1, updated_by = $3, updated_at = now()
WHERE id = $1 AND version = $4
RETURNING version`

func (p *PGRepository) PutDocument(ctx context.Context, id string, body json.RawMessage, ifVersion int64, subject string) (int64, error) {
	var v int64
	var err error
	if ifVersion == 0 {
		err = p.db.QueryRowContext(ctx, upsertDocumentSQL, id, string(body), subject).Scan(&v)
	} else {
		err = p.db.QueryRowContext(ctx, conditionalUpdateDocumentSQL, id, string(body), subject, ifVersion).Scan(&v)
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrConflict
		}
	}
	return v, err
}

func (p *PGRepository) ListDocuments(ctx context.Context) ([]DocumentRecord, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT id, version, updated_by, updated_at FROM documents ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []DocumentRecord
	for rows.Next() {
		var rec DocumentRecord
		if err := rows.Scan(&rec.ID, &rec.Version, &rec.UpdatedBy, &rec.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (p *PGRepository) GetNavigation(ctx context.Context, id string) (domain.Navigation, error) {
	nav := domain.Navigation{ID: id}
	var items []byte
	err := p.db.QueryRowContext(ctx, `SELECT name, items FROM navigations WHERE id = $1`, id).Scan(&nav.Name, &items)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Navigation{}, ErrNotFound
	}
	if err != nil {
		return domain.Navigation{}, err
	}
	if err := json.Unmarshal(items, &nav.Items); err != nil {
		return domain.Navigation{}, fmt.Errorf("decode navigation %s: %w", id, err)
	}
	return nav, nil
}

// language=PostgreSQL
const upsertNavigationSQL = `INSERT INTO navigations(id, name, items, updated_at) VALUES ($1, $2, $3, now())
ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, items = EXCLUDED.items, updated_at = now()`

func (p *PGRepository) PutNavigation(ctx context.Context, nav domain.Navigation) error {
	items := nav.Items
	if items == nil {
		items = []domain.NavItem{}
	}
	b, err := json.Marshal(items)
	if err != nil {
		return err
	}
	_, err = p.db.ExecContext(ctx, upsertNavigationSQL, nav.ID, nav.Name, string(b))
	return err
}

func (p *PGRepository) DeleteNavigation(ctx context.Context, id string) error {
	res, err := p.db.ExecContext(ctx, `DELETE FROM navigations WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
