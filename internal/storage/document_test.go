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
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func TestInitDocumentCreatesStructureAndManifest(t *testing.T) {
	root := t.TempDir()
	dh, err := InitDocument(root, sampleDocument())
	if err != nil {
		t.Fatalf("InitDocument error: %v", err)
	}
	if dh.ManifestPath != filepath.Join(root, ManifestFileName) {
		t.Fatalf("ManifestPath = %q", dh.ManifestPath)
	}
	for _, d := range []string{BackupsDirName, AutosaveDirName} {
		if fi, err := os.Stat(filepath.Join(root, d)); err != nil || !fi.IsDir() {
			t.Fatalf("expected directory %s to exist", d)
		}
	}
	opened, err := Open(root)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if !reflect.DeepEqual(opened.Document, sampleDocument()) {
		t.Fatalf("round trip changed the document:\n%+v", opened.Document)
	}
}

func TestSaveCreatesTimestampedBackup(t *testing.T) {
	root := t.TempDir()
	dh, err := InitDocument(root, sampleDocument())
	if err != nil {
		t.Fatalf("InitDocument error: %v", err)
	}
	dh.Document.Pages[0].Name = "Start"
	if err := Save(dh); err != nil {
		t.Fatalf("Save error: %v", err)
	}
	baks, err := Backups(root)
	if err != nil || len(baks) == 0 {
		t.Fatalf("expected at least one backup, got %v err=%v", baks, err)
	}
	if !strings.HasSuffix(baks[0], ".bak") {
		t.Fatalf("unexpected backup name %q", baks[0])
	}
}

func TestOpenFallsBackToLatestBackupOnCorruption(t *testing.T) {
	root := t.TempDir()
	dh, err := InitDocument(root, sampleDocument())
	if err != nil {
		t.Fatalf("InitDocument error: %v", err)
	}
	if err := Save(dh); err != nil {
		t.Fatalf("Save error: %v", err)
	}
	if err := os.WriteFile(dh.ManifestPath, []byte("{ this is not json"), 0o644); err != nil {
		t.Fatalf("corrupt manifest: %v", err)
	}
	opened, err := Open(root)
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	if len(opened.Document.Pages) != 2 || opened.Document.Pages[0].Slug != "home" {
		t.Fatalf("backup content mismatch: %+v", opened.Document.Pages)
	}
}

func TestOpenMissingIsNotFound(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "nope"))
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSaveRefusesInvalidDocument(t *testing.T) {
	root := t.TempDir()
	doc := sampleDocument()
	doc.Pages[1].ID = "p1"
	if _, err := InitDocument(root, doc); !errors.Is(err, ErrInvalidDocument) {
		t.Fatalf("duplicate page id must be refused, got %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, ManifestFileName)); err == nil {
		t.Fatalf("invalid document was written")
	}
}

func TestSaveAs(t *testing.T) {
	root := t.TempDir()
	dh, err := InitDocument(root, sampleDocument())
	if err != nil {
		t.Fatalf("InitDocument: %v", err)
	}
	newRoot := filepath.Join(root, "copy")
	if err := SaveAs(dh, newRoot); err != nil {
		t.Fatalf("SaveAs: %v", err)
	}
	if dh.Root != newRoot || dh.ManifestPath != filepath.Join(newRoot, ManifestFileName) {
		t.Fatalf("handle paths not updated: %+v", dh)
	}
	if _, err := Open(newRoot); err != nil {
		t.Fatalf("open copy: %v", err)
	}
}

func TestAutosaveCrashSnapshotWritesFile(t *testing.T) {
	root := t.TempDir()
	dh, err := InitDocument(root, sampleDocument())
	if err != nil {
		t.Fatalf("InitDocument error: %v", err)
	}
	path, err := AutosaveCrashSnapshot(dh)
	if err != nil {
		t.Fatalf("AutosaveCrashSnapshot error: %v", err)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read snapshot: %v", err)
	}
	got, err := decode(b)
	if err != nil || !reflect.DeepEqual(got, sampleDocument()) {
		t.Fatalf("snapshot content mismatch, err=%v", err)
	}
}

func TestFileStore(t *testing.T) {
	ctx := context.Background()
	fs := FileStore{Dir: t.TempDir()}
	if err := fs.Save(ctx, "landing", sampleDocument()); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := fs.Load(ctx, "landing")
	if err != nil || !reflect.DeepEqual(got, sampleDocument()) {
		t.Fatalf("Load mismatch, err=%v", err)
	}
	ids, err := fs.List()
	if err != nil || !reflect.DeepEqual(ids, []string{"landing"}) {
		t.Fatalf("List = %v err=%v", ids, err)
	}
	if _, err := fs.Load(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing document: %v", err)
	}
	for _, bad := range []string{"", "../x", "a/b", ".pce"} {
		if err := fs.Save(ctx, bad, sampleDocument()); err == nil {
			t.Fatalf("id %q accepted", bad)
		}
	}
}

func TestFileStoreIndexesAndKeepsHistory(t *testing.T) {
	ctx := context.Background()
	fs := FileStore{Dir: t.TempDir(), Index: true, KeepHistory: 2}
	for i := 0; i < 3; i++ {
		if err := fs.Save(ctx, "landing", sampleDocument()); err != nil {
			t.Fatalf("Save %d: %v", i, err)
		}
	}
	root := fs.Root("landing")
	found, err := FindNodes(ctx, root, "button", "", 10)
	if err != nil || len(found) != 1 || found[0].NodeID != "b1" {
		t.Fatalf("FindNodes = %+v err=%v", found, err)
	}
	snaps, err := ListHistorySnapshots(ctx, &DocumentHandle{Root: root}, 0)
	if err != nil {
		t.Fatalf("ListHistorySnapshots: %v", err)
	}
	if len(snaps) != 2 {
		t.Fatalf("expected 2 kept snapshots, got %d", len(snaps))
	}
}
