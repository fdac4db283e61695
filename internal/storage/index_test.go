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
	"os"
	"testing"
)

func TestInitOrOpenIndexMigrates(t *testing.T) {
	root := t.TempDir()
	db, err := InitOrOpenIndex(root)
	if err != nil {
		t.Fatalf("InitOrOpenIndex: %v", err)
	}
	defer db.Close()
	v, err := SchemaVersion(context.Background(), db)
	if err != nil || v != schemaVersion {
		t.Fatalf("schema version = %d err=%v", v, err)
	}
	var name string
	if err := db.QueryRow(`SELECT name FROM sqlite_master WHERE type='index' AND name='idx_nodes_type'`).Scan(&name); err != nil {
		t.Fatalf("migration 2 index missing: %v", err)
	}
}

func TestUpdateIndexAndFindNodes(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	if err := UpdateIndex(ctx, root, sampleDocument()); err != nil {
		t.Fatalf("UpdateIndex: %v", err)
	}
	all, err := FindNodes(ctx, root, "", "", 0)
	if err != nil || len(all) != 4 {
		t.Fatalf("expected 4 indexed nodes, got %d err=%v", len(all), err)
	}
	hits, err := FindNodes(ctx, root, "heading", "welcome", 10)
	if err != nil || len(hits) != 1 || hits[0].NodeID != "h1" || hits[0].ParentID != "s1" {
		t.Fatalf("heading search = %+v err=%v", hits, err)
	}
	hits, err = FindNodes(ctx, root, "", "Sign", 10)
	if err != nil || len(hits) != 1 || hits[0].ParentID != "col-a" {
		t.Fatalf("column child search = %+v err=%v", hits, err)
	}
	if hits, _ := FindNodes(ctx, root, "", "100%", 10); len(hits) != 0 {
		t.Fatalf("wildcards must be escaped, got %+v", hits)
	}
}

func TestDetectAndRebuildIndexOnCorruption(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	rebuilt, err := DetectAndRebuildIndex(ctx, root, sampleDocument())
	if err != nil || rebuilt {
		t.Fatalf("healthy index: rebuilt=%v err=%v", rebuilt, err)
	}
	if err := os.WriteFile(IndexPath(root), []byte("garbage, not sqlite"), 0o644); err != nil {
		t.Fatalf("corrupt index: %v", err)
	}
	_ = os.Remove(IndexPath(root) + "-wal")
	_ = os.Remove(IndexPath(root) + "-shm")
	rebuilt, err = DetectAndRebuildIndex(ctx, root, sampleDocument())
	if err != nil || !rebuilt {
		t.Fatalf("expected rebuild, got rebuilt=%v err=%v", rebuilt, err)
	}
	hits, err := FindNodes(ctx, root, "button", "", 10)
	if err != nil || len(hits) != 1 {
		t.Fatalf("rebuilt index missing nodes: %+v err=%v", hits, err)
	}
}
