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
	"errors"
	"fmt"
	"time"

	"pagecomposer/internal/domain"
)

// language=SQL
// dialect=SQLite
const insertHistorySnapshotSQL = `INSERT INTO history_snapshots(label, ts, doc_blob) VALUES (?, ?, ?)`

// language=SQL
// dialect=SQLite
const selectLatestHistorySnapshotSQL = `SELECT label, ts, doc_blob FROM history_snapshots ORDER BY ts DESC, id DESC LIMIT 1`

// language=SQL
// dialect=SQLite
const listHistorySnapshotsSQL = `SELECT label, ts, doc_blob FROM history_snapshots ORDER BY ts DESC, id DESC LIMIT ?`

// language=SQL
// dialect=SQLite
const pruneHistorySnapshotsSQL = `DELETE FROM history_snapshots WHERE id NOT IN (
	SELECT id FROM history_snapshots ORDER BY ts DESC, id DESC LIMIT ?
)`

// HistorySnapshot is one persisted document version.
type HistorySnapshot struct {
	Label    string
	TS       time.Time
	Document domain.Document
}

// SaveHistorySnapshot persists doc with a label and timestamp in the
// document's index.
func SaveHistorySnapshot(ctx context.Context, dh *DocumentHandle, label string, doc domain.Document, ts time.Time) error {
	if dh == nil {
		return errors.New("nil DocumentHandle")
	}
	blob, err := marshalBlob(doc)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	db, err := InitOrOpenIndex(dh.Root)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()
	_, err = db.ExecContext(ctx, insertHistorySnapshotSQL, label, ts.UTC().Format(time.RFC3339Nano), blob)
	return err
}

// GetLatestHistorySnapshot returns the newest snapshot, or nil if none.
func GetLatestHistorySnapshot(ctx context.Context, dh *DocumentHandle) (*HistorySnapshot, error) {
	if dh == nil {
		return nil, errors.New("nil DocumentHandle")
	}
	db, err := InitOrOpenIndex(dh.Root)
	if err != nil {
		return nil, err
	}
	defer func() { _ = db.Close() }()
	var (
		label, tsStr string
		blob         []byte
	)
	err = db.QueryRowContext(ctx, selectLatestHistorySnapshotSQL).Scan(&label, &tsStr, &blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return decodeSnapshot(label, tsStr, blob)
}

// ListHistorySnapshots returns up to limit snapshots, newest first.
func ListHistorySnapshots(ctx context.Context, dh *DocumentHandle, limit int) ([]HistorySnapshot, error) {
	if dh == nil {
		return nil, errors.New("nil DocumentHandle")
	}
	if limit <= 0 {
		limit = 50
	}
	db, err := InitOrOpenIndex(dh.Root)
	if err != nil {
		return nil, err
	}
	defer func() { _ = db.Close() }()
	rows, err := db.QueryContext(ctx, listHistorySnapshotsSQL, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []HistorySnapshot
	for rows.Next() {
		var (
			label, tsStr string
			blob         []byte
		)
		if err := rows.Scan(&label, &tsStr, &blob); err != nil {
			return nil, err
		}
		s, err := decodeSnapshot(label, tsStr, blob)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

// PruneHistorySnapshots keeps the newest keepLast snapshots and deletes the
// rest.
func PruneHistorySnapshots(ctx context.Context, dh *DocumentHandle, keepLast int) (int64, error) {
	if dh == nil {
		return 0, errors.New("nil DocumentHandle")
	}
	if keepLast <= 0 {
		return 0, nil
	}
	db, err := InitOrOpenIndex(dh.Root)
	if err != nil {
		return 0, err
	}
	defer func() { _ = db.Close() }()
	res, err := db.ExecContext(ctx, pruneHistorySnapshotsSQL, keepLast)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func decodeSnapshot(label, tsStr string, blob []byte) (*HistorySnapshot, error) {
	doc, err := decode(blob)
	if err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	ts, _ := time.Parse(time.RFC3339Nano, tsStr)
	return &HistorySnapshot{Label: label, TS: ts, Document: doc}, nil
}
