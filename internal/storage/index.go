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
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"pagecomposer/internal/domain"
	applog "pagecomposer/internal/log"
	"pagecomposer/internal/tree"
	"pagecomposer/internal/version"

	// Pure-Go SQLite driver (CGO-free)
	_ "modernc.org/sqlite"
)

const (
	// IndexDirName holds per-document index data under the document root.
	IndexDirName  = ".pce"
	IndexFileName = "index.sqlite"

	// schemaVersion tracks the local SQLite schema. Bump it together with a
	// new step in runMigrations.
	schemaVersion = 2
)

// IndexPath returns the full path to the document's index database file.
func IndexPath(root string) string {
	return filepath.Join(root, IndexDirName, IndexFileName)
}

// InitOrOpenIndex ensures that the SQLite index exists at .pce/index.sqlite,
// opens it in WAL mode and brings the schema up to date.
func InitOrOpenIndex(root string) (*sql.DB, error) {
	l := applog.WithOperation(applog.WithComponent("storage"), "index_init").With(
		slog.String("root", root),
	)
	if strings.TrimSpace(root) == "" {
		return nil, errors.New("document root is required")
	}
	if err := os.MkdirAll(filepath.Join(root, IndexDirName), 0o755); err != nil {
		l.Error("create .pce dir failed", slog.Any("err", err))
		return nil, fmt.Errorf("create .pce dir: %w", err)
	}

	path := IndexPath(root)
	dsn := fmt.Sprintf("file:%s?cache=shared&_pragma=busy_timeout(5000)", filepath.ToSlash(path))
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		l.Error("sqlite open failed", slog.Any("err", err))
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL;"); err != nil {
		_ = db.Close()
		l.Error("enable WAL failed", slog.Any("err", err))
		return nil, fmt.Errorf("enable WAL: %w", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys=ON;"); err != nil {
		l.Warn("enable foreign_keys failed", slog.Any("err", err))
	}
	if err := ensureMetaAndVersion(ctx, db); err != nil {
		_ = db.Close()
		l.Error("ensure meta/version failed", slog.Any("err", err))
		return nil, err
	}
	if err := ensureIndexSchema(ctx, db); err != nil {
		_ = db.Close()
		l.Error("ensure index schema failed", slog.Any("err", err))
		return nil, err
	}
	if err := runMigrations(ctx, db); err != nil {
		_ = db.Close()
		l.Error("run migrations failed", slog.Any("err", err))
		return nil, err
	}
	l.Debug("index ready", slog.String("path", path))
	return db, nil
}

func ensureMetaAndVersion(ctx context.Context, db *sql.DB) error {
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS version (
			id          INTEGER PRIMARY KEY CHECK(id=1),
			schema      INTEGER NOT NULL,
			app         TEXT,
			created_at  TEXT NOT NULL,
			updated_at  TEXT NOT NULL
		);`,
	}
	for _, q := range ddl {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("create table: %w", err)
		}
	}
	now := time.Now().UTC().Format(time.RFC3339)
	appv := version.String()
	var curSchema int
	err := db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&curSchema)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		// A fresh database starts at schema 1 and migrates forward.
		if _, err := db.ExecContext(ctx, `INSERT INTO version (id, schema, app, created_at, updated_at) VALUES(1, 1, ?, ?, ?)`, appv, now, now); err != nil {
			return fmt.Errorf("insert version: %w", err)
		}
	case err != nil:
		return fmt.Errorf("read version: %w", err)
	default:
		if _, err := db.ExecContext(ctx, `UPDATE version SET app=?, updated_at=? WHERE id=1`, appv, now); err != nil {
			return fmt.Errorf("update version: %w", err)
		}
	}
	return nil
}

// ensureIndexSchema creates the schema-1 tables.
func ensureIndexSchema(ctx context.Context, db *sql.DB) error {
	ddl := []string{
		// Derived node catalog, rebuilt from document.json.
		`CREATE TABLE IF NOT EXISTS nodes (
			node_id   TEXT PRIMARY KEY,
			page_id   TEXT NOT NULL,
			parent_id TEXT,
			type      TEXT NOT NULL,
			position  INTEGER NOT NULL,
			text      TEXT
		);`,
		`CREATE INDEX IF NOT EXISTS idx_nodes_page ON nodes(page_id);`,

		// Persisted history snapshots, one JSON document per row.
		`CREATE TABLE IF NOT EXISTS history_snapshots (
			id       INTEGER PRIMARY KEY,
			label    TEXT NOT NULL DEFAULT '',
			ts       TEXT NOT NULL,
			doc_blob BLOB NOT NULL
		);`,

		// Navigation entities referenced by navbar nodes.
		`CREATE TABLE IF NOT EXISTS navigations (
			id         TEXT PRIMARY KEY,
			name       TEXT NOT NULL,
			items_json TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
	}
	for _, q := range ddl {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// runMigrations applies incremental schema migrations up to schemaVersion.
func runMigrations(ctx context.Context, db *sql.DB) error {
	var cur int
	if err := db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&cur); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if cur > schemaVersion {
		// Never downgrade a newer index.
		return nil
	}
	for cur < schemaVersion {
		next := cur + 1
		var stmts []string
		switch next {
		case 2:
			stmts = []string{
				`CREATE INDEX IF NOT EXISTS idx_nodes_type ON nodes(type);`,
				`CREATE INDEX IF NOT EXISTS idx_history_ts ON history_snapshots(ts);`,
			}
		}
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", next, err)
		}
		for _, q := range stmts {
			if _, err := tx.ExecContext(ctx, q); err != nil {
				_ = tx.Rollback()
				return fmt.Errorf("migration %d stmt failed: %w", next, err)
			}
		}
		if _, err := tx.ExecContext(ctx, `UPDATE version SET schema=?, updated_at=? WHERE id=1`, next, time.Now().UTC().Format(time.RFC3339)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d update version: %w", next, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("migration %d commit: %w", next, err)
		}
		cur = next
	}
	return nil
}

// SchemaVersion reads the schema version recorded in the index.
func SchemaVersion(ctx context.Context, db *sql.DB) (int, error) {
	var v int
	err := db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&v)
	return v, err
}

// IndexedNode is one row of the derived node catalog.
type IndexedNode struct {
	NodeID   string
	PageID   string
	ParentID string
	Type     string
	Position int
	Text     string
}

// UpdateIndex replaces the node catalog with the contents of doc.
func UpdateIndex(ctx context.Context, root string, doc domain.Document) error {
	db, err := InitOrOpenIndex(root)
	if err != nil {
		return err
	}
	defer db.Close()
	return rebuildNodes(ctx, db, doc)
}

func rebuildNodes(ctx context.Context, db *sql.DB, doc domain.Document) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM nodes;`); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("clear nodes: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO nodes(node_id, page_id, parent_id, type, position, text) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()
	var werr error
	tree.Walk(doc.Pages, func(ref tree.ListRef, idx int, n *domain.Node) bool {
		parent := ""
		if ref.Column != nil {
			parent = ref.Column.ID
		} else if ref.Owner != nil {
			parent = ref.Owner.ID
		}
		_, werr = stmt.ExecContext(ctx, n.ID, doc.Pages[ref.Page].ID, parent, n.Type, idx, NodeText(n.Config))
		return werr == nil
	})
	if werr != nil {
		_ = tx.Rollback()
		return fmt.Errorf("insert node: %w", werr)
	}
	return tx.Commit()
}

// NodeText collects the string leaves of a node's own config, skipping child
// lists, in key order.
func NodeText(cfg domain.Config) string {
	var parts []string
	var visit func(v any)
	visit = func(v any) {
		switch t := v.(type) {
		case string:
			if t != "" {
				parts = append(parts, t)
			}
		case []any:
			for _, e := range t {
				visit(e)
			}
		case map[string]any:
			keys := make([]string, 0, len(t))
			for k := range t {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				visit(t[k])
			}
		}
	}
	keys := make([]string, 0, len(cfg))
	for k := range cfg {
		switch k {
		case domain.KeyElements, domain.KeyColumns, domain.KeyContainerID:
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		visit(cfg[k])
	}
	return strings.Join(parts, " ")
}

// language=SQL
// dialect=SQLite
const findNodesSQL = `SELECT node_id, page_id, COALESCE(parent_id, ''), type, position, COALESCE(text, '')
FROM nodes
WHERE (? = '' OR type = ?) AND (? = '' OR text LIKE '%' || ? || '%' ESCAPE '\')
ORDER BY page_id, node_id
LIMIT ?`

// FindNodes searches the catalog by type and text substring; empty filters
// match everything.
func FindNodes(ctx context.Context, root, typ, text string, limit int) ([]IndexedNode, error) {
	if limit <= 0 {
		limit = 50
	}
	db, err := InitOrOpenIndex(root)
	if err != nil {
		return nil, err
	}
	defer db.Close()
	esc := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(text)
	rows, err := db.QueryContext(ctx, findNodesSQL, typ, typ, esc, esc, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []IndexedNode
	for rows.Next() {
		var n IndexedNode
		if err := rows.Scan(&n.NodeID, &n.PageID, &n.ParentID, &n.Type, &n.Position, &n.Text); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// DetectAndRebuildIndex checks the index for corruption or missing tables
// and rebuilds it from doc when needed. Persisted history and navigations
// are lost on rebuild; the old file is kept under .pce/backups. It returns
// true when a rebuild was performed.
func DetectAndRebuildIndex(ctx context.Context, root string, doc domain.Document) (bool, error) {
	path := IndexPath(root)
	db, err := InitOrOpenIndex(root)
	if err != nil {
		backupIndexFile(path)
		removeIndexFiles(path)
		if rbErr := UpdateIndex(ctx, root, doc); rbErr != nil {
			return false, fmt.Errorf("rebuild after open failure: %w (open err: %v)", rbErr, err)
		}
		return true, nil
	}
	needs := false
	var chk string
	if err := db.QueryRowContext(ctx, `PRAGMA quick_check;`).Scan(&chk); err != nil || !strings.Contains(strings.ToLower(chk), "ok") {
		needs = true
	}
	if !needs {
		for _, t := range []string{"nodes", "history_snapshots", "navigations"} {
			if _, err := db.ExecContext(ctx, `SELECT 1 FROM `+t+` LIMIT 1;`); err != nil {
				needs = true
				break
			}
		}
	}
	_ = db.Close()
	if !needs {
		return false, nil
	}
	backupIndexFile(path)
	removeIndexFiles(path)
	if err := UpdateIndex(ctx, root, doc); err != nil {
		return false, err
	}
	return true, nil
}

func removeIndexFiles(path string) {
	for _, p := range []string{path, path + "-wal", path + "-shm"} {
		_ = os.Remove(p)
	}
}

// backupIndexFile copies the current index file into .pce/backups.
func backupIndexFile(indexPath string) {
	bdir := filepath.Join(filepath.Dir(indexPath), "backups")
	_ = os.MkdirAll(bdir, 0o755)
	stamp := time.Now().Format("20060102-150405")
	bak := filepath.Join(bdir, fmt.Sprintf("%s.%s.bak", filepath.Base(indexPath), stamp))
	if data, err := os.ReadFile(indexPath); err == nil {
		_ = os.WriteFile(bak, data, 0o644)
	}
}

// marshalBlob stores documents compactly in the index.
func marshalBlob(doc domain.Document) ([]byte, error) {
	return json.Marshal(doc)
}
