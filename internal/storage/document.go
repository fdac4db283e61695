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
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"pagecomposer/internal/domain"
	applog "pagecomposer/internal/log"
)

const (
	ManifestFileName = "document.json"
	BackupsDirName   = "backups"
	AutosaveDirName  = "autosave"
)

// ErrNotFound is returned when neither the manifest nor any backup exists.
var ErrNotFound = errors.New("document not found")

var standardSubDirs = []string{
	BackupsDirName,
	AutosaveDirName,
}

// DocumentHandle keeps track of a document loaded from or saved to disk.
// Root is the document directory containing document.json, backups/ and
// the .pce index.
type DocumentHandle struct {
	Root         string
	ManifestPath string
	Document     domain.Document
}

// InitDocument creates the document directory, scaffolds its subfolders and
// writes doc transactionally.
func InitDocument(root string, doc domain.Document) (*DocumentHandle, error) {
	if strings.TrimSpace(root) == "" {
		return nil, errors.New("root path is required")
	}
	if err := scaffold(root); err != nil {
		return nil, err
	}
	dh := &DocumentHandle{
		Root:         root,
		ManifestPath: filepath.Join(root, ManifestFileName),
		Document:     doc,
	}
	if err := Save(dh); err != nil {
		return nil, err
	}
	return dh, nil
}

func scaffold(root string) error {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return fmt.Errorf("create document root: %w", err)
	}
	for _, d := range standardSubDirs {
		if err := os.MkdirAll(filepath.Join(root, d), 0o755); err != nil {
			return fmt.Errorf("create subdir %s: %w", d, err)
		}
	}
	return nil
}

// Open loads the document stored under root. An unreadable or unparsable
// manifest falls back to the newest backup.
func Open(root string) (*DocumentHandle, error) {
	mpath := filepath.Join(root, ManifestFileName)
	b, err := os.ReadFile(mpath)
	if err != nil {
		doc, berr := openFromLatestBackup(root)
		if berr != nil {
			if errors.Is(err, fs.ErrNotExist) && errors.Is(berr, fs.ErrNotExist) {
				return nil, fmt.Errorf("%w: %s", ErrNotFound, root)
			}
			return nil, fmt.Errorf("open manifest: %w; backup attempt: %v", err, berr)
		}
		return &DocumentHandle{Root: root, ManifestPath: mpath, Document: *doc}, nil
	}
	doc, uerr := decode(b)
	if uerr != nil {
		bdoc, berr := openFromLatestBackup(root)
		if berr != nil {
			return nil, fmt.Errorf("parse manifest: %w; backup attempt: %v", uerr, berr)
		}
		return &DocumentHandle{Root: root, ManifestPath: mpath, Document: *bdoc}, nil
	}
	return &DocumentHandle{Root: root, ManifestPath: mpath, Document: doc}, nil
}

func decode(b []byte) (domain.Document, error) {
	var d domain.Document
	if err := json.Unmarshal(b, &d); err != nil {
		return domain.Document{}, err
	}
	d.Normalize()
	return d, nil
}

// Marshal renders a document the way it is stored on disk.
func Marshal(doc domain.Document) ([]byte, error) {
	doc = doc.Clone()
	doc.Normalize()
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal manifest: %w", err)
	}
	return append(data, '\n'), nil
}

// Save validates the handle's document and writes it with transactional
// semantics, keeping a timestamped backup of the previous manifest.
func Save(dh *DocumentHandle) error {
	if dh == nil {
		return errors.New("nil DocumentHandle")
	}
	if dh.Root == "" || dh.ManifestPath == "" {
		return errors.New("invalid DocumentHandle: missing paths")
	}
	data, err := Marshal(dh.Document)
	if err != nil {
		return err
	}
	if err := Validate(data); err != nil {
		return err
	}

	bdir := filepath.Join(dh.Root, BackupsDirName)
	if err := os.MkdirAll(bdir, 0o755); err != nil {
		return fmt.Errorf("ensure backups dir: %w", err)
	}
	if _, statErr := os.Stat(dh.ManifestPath); statErr == nil {
		stamp := time.Now().Format("20060102-150405")
		bpath := filepath.Join(bdir, fmt.Sprintf("%s.%s.bak", ManifestFileName, stamp))
		if cerr := copyFile(dh.ManifestPath, bpath); cerr != nil {
			return fmt.Errorf("backup current manifest: %w", cerr)
		}
	}
	return replaceFile(dh.ManifestPath, data)
}

// replaceFile writes data to a temp file next to path and renames it over
// path.
func replaceFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	base := filepath.Base(path)
	temp := filepath.Join(dir, fmt.Sprintf(".%s.tmp-%d-%d", base, os.Getpid(), rand.Int()))
	if werr := writeFileSync(temp, data); werr != nil {
		return fmt.Errorf("write temp %s: %w", base, werr)
	}
	// Windows cannot rename over an existing file.
	if _, err := os.Stat(path); err == nil {
		_ = os.Remove(path)
	}
	if rerr := os.Rename(temp, path); rerr != nil {
		_ = os.Remove(temp)
		return fmt.Errorf("replace %s: %w", base, rerr)
	}
	return nil
}

// SaveAs writes the manifest under a new root and updates the handle.
func SaveAs(dh *DocumentHandle, newRoot string) error {
	if dh == nil {
		return errors.New("nil DocumentHandle")
	}
	if newRoot == "" {
		return errors.New("new root is empty")
	}
	if err := scaffold(newRoot); err != nil {
		return err
	}
	dh.Root = newRoot
	dh.ManifestPath = filepath.Join(newRoot, ManifestFileName)
	return Save(dh)
}

// AutosaveCrashSnapshot writes the current document to a timestamped file
// under autosave/ without touching the manifest or its backups, and returns
// the path written.
func AutosaveCrashSnapshot(dh *DocumentHandle) (string, error) {
	if dh == nil || dh.Root == "" {
		return "", errors.New("invalid DocumentHandle")
	}
	data, err := Marshal(dh.Document)
	if err != nil {
		return "", err
	}
	adir := filepath.Join(dh.Root, AutosaveDirName)
	if err := os.MkdirAll(adir, 0o755); err != nil {
		return "", fmt.Errorf("ensure autosave dir: %w", err)
	}
	stamp := time.Now().Format("20060102-150405.000")
	path := filepath.Join(adir, fmt.Sprintf("%s.%s.crash", ManifestFileName, stamp))
	if err := writeFileSync(path, data); err != nil {
		return "", fmt.Errorf("write crash snapshot: %w", err)
	}
	return path, nil
}

func writeFileSync(path string, data []byte) (err error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	if _, err := f.Write(data); err != nil {
		return err
	}
	return f.Sync()
}

func copyFile(src, dst string) (err error) {
	sf, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := sf.Close(); err == nil {
			err = cerr
		}
	}()
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	df, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := df.Close(); err == nil {
			err = cerr
		}
	}()
	if _, err := io.Copy(df, sf); err != nil {
		return err
	}
	return df.Sync()
}

// Backups lists backup files of root's manifest, oldest first.
func Backups(root string) ([]string, error) {
	bdir := filepath.Join(root, BackupsDirName)
	ents, err := os.ReadDir(bdir)
	if err != nil {
		return nil, fmt.Errorf("read backups dir: %w", err)
	}
	var out []string
	for _, e := range ents {
		name := e.Name()
		if strings.HasPrefix(name, ManifestFileName+".") && strings.HasSuffix(name, ".bak") {
			out = append(out, filepath.Join(bdir, name))
		}
	}
	sort.Strings(out) // timestamp in name yields lexicographic order
	return out, nil
}

func openFromLatestBackup(root string) (*domain.Document, error) {
	candidates, err := Backups(root)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, fmt.Errorf("no backups found: %w", fs.ErrNotExist)
	}
	b, err := os.ReadFile(candidates[len(candidates)-1])
	if err != nil {
		return nil, fmt.Errorf("read latest backup: %w", err)
	}
	d, err := decode(b)
	if err != nil {
		return nil, fmt.Errorf("parse latest backup: %w", err)
	}
	return &d, nil
}

// FileStore keeps one directory per document under Dir and satisfies
// editor.Persistence.
type FileStore struct {
	Dir string
	// Index refreshes the node catalog after every save.
	Index bool
	// KeepHistory > 0 records each save as a history snapshot and keeps
	// the newest KeepHistory of them.
	KeepHistory int
}

// Root returns the directory holding documentID.
func (s FileStore) Root(documentID string) string {
	return filepath.Join(s.Dir, documentID)
}

func (s FileStore) checkID(documentID string) error {
	if documentID == "" || documentID != filepath.Base(documentID) || strings.HasPrefix(documentID, ".") {
		return fmt.Errorf("invalid document id %q", documentID)
	}
	return nil
}

func (s FileStore) Load(ctx context.Context, documentID string) (domain.Document, error) {
	if err := s.checkID(documentID); err != nil {
		return domain.Document{}, err
	}
	if err := ctx.Err(); err != nil {
		return domain.Document{}, err
	}
	dh, err := Open(s.Root(documentID))
	if err != nil {
		return domain.Document{}, err
	}
	return dh.Document, nil
}

func (s FileStore) Save(ctx context.Context, documentID string, doc domain.Document) error {
	if err := s.checkID(documentID); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	root := s.Root(documentID)
	if err := scaffold(root); err != nil {
		return err
	}
	dh := &DocumentHandle{Root: root, ManifestPath: filepath.Join(root, ManifestFileName), Document: doc}
	if err := Save(dh); err != nil {
		return err
	}
	// The manifest is authoritative; catalog and history failures only warn.
	l := applog.WithComponent("storage").With(slog.String("document", documentID))
	if s.Index {
		if err := UpdateIndex(ctx, root, doc); err != nil {
			l.Warn("index update failed", slog.Any("err", err))
		}
	}
	if s.KeepHistory > 0 {
		if err := SaveHistorySnapshot(ctx, dh, "save", doc, time.Now()); err != nil {
			l.Warn("history snapshot failed", slog.Any("err", err))
		} else if _, err := PruneHistorySnapshots(ctx, dh, s.KeepHistory); err != nil {
			l.Warn("history prune failed", slog.Any("err", err))
		}
	}
	return nil
}

// List returns the ids of every stored document.
func (s FileStore) List() ([]string, error) {
	ents, err := os.ReadDir(s.Dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var ids []string
	for _, e := range ents {
		if !e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		if _, err := os.Stat(filepath.Join(s.Dir, e.Name(), ManifestFileName)); err == nil {
			ids = append(ids, e.Name())
		}
	}
	return ids, nil
}
