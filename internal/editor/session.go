/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package editor drives one editing session: it holds the current document,
// the active page and selection, the undo history and the save status, and
// funnels every user intent through the tree operations into exactly one
// history commit.
package editor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"pagecomposer/internal/domain"
	"pagecomposer/internal/drag"
	"pagecomposer/internal/history"
	applog "pagecomposer/internal/log"
	"pagecomposer/internal/registry"
	"pagecomposer/internal/tree"
)

var (
	ErrSaveInProgress = errors.New("save already in progress")
	ErrNoStore        = errors.New("no persistence configured")
)

// Options wires the session's collaborators. Registry defaults to the
// builtin registry and IDs to tree.UUIDs.
type Options struct {
	Registry    *registry.Registry
	Navigations NavigationResolver
	Store       Persistence
	DocumentID  string
	IDs         tree.IDGenerator
	History     history.Config
	Logger      *slog.Logger
}

// Session is the single writer of a document. Every method is safe to call
// from multiple goroutines, but intents are applied one at a time.
type Session struct {
	mu       sync.Mutex
	opts     Options
	log      *slog.Logger
	drag     *drag.Engine
	hist     *history.Manager
	doc      domain.Document
	page     int
	selected string
	status   domain.SaveStatus
	rev      int
}

// New starts a session on doc.
func New(doc domain.Document, opts Options) *Session {
	if opts.Registry == nil {
		opts.Registry = registry.Default()
	}
	if opts.IDs == nil {
		opts.IDs = tree.UUIDs
	}
	l := opts.Logger
	if l == nil {
		l = applog.WithComponent("editor")
	}
	s := &Session{opts: opts, log: l, drag: drag.NewEngine(opts.Registry, opts.IDs)}
	s.resetLocked(doc)
	s.status = domain.StatusIdle
	return s
}

// resetLocked installs doc as the only history entry. Stored order values
// are not trusted, so lists are renumbered.
func (s *Session) resetLocked(doc domain.Document) {
	doc = doc.Clone()
	doc.Normalize()
	if len(doc.Pages) == 0 {
		doc.Pages = []domain.Page{{ID: s.opts.IDs.NewID(), Name: "Home", Slug: "home", Elements: []*domain.Node{}}}
	}
	tree.Renumber(doc.Pages)
	s.doc = doc
	s.page = 0
	s.selected = ""
	s.hist = history.New(doc, s.opts.History)
}

// Document returns a copy of the current document.
func (s *Session) Document() domain.Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.Clone()
}

// Page returns the active page index.
func (s *Session) Page() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.page
}

// SelectPage makes page i active.
func (s *Session) SelectPage(i int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i < 0 || i >= len(s.doc.Pages) {
		return false
	}
	s.page = i
	s.selected = ""
	return true
}

// Selected is the id of the selected node, or "".
func (s *Session) Selected() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selected
}

// Select selects a node; "" clears the selection.
func (s *Session) Select(nodeID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if nodeID == "" {
		s.selected = ""
		return true
	}
	if tree.FindNode(s.doc.Pages, nodeID) == nil {
		return false
	}
	s.selected = nodeID
	return true
}

// Status is the current save status.
func (s *Session) Status() domain.SaveStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

func (s *Session) CanUndo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hist.CanUndo()
}

func (s *Session) CanRedo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hist.CanRedo()
}

// History returns the session's history manager.
func (s *Session) History() *history.Manager {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hist
}

// commitLocked replaces the current document and records one history entry
// that never merges with its neighbours.
func (s *Session) commitLocked(doc domain.Document, label string) {
	s.commitKeyedLocked(doc, label, "")
}

// commitKeyedLocked is commitLocked for edits that may coalesce with an
// immediately preceding edit carrying the same key.
func (s *Session) commitKeyedLocked(doc domain.Document, label, key string) {
	s.doc = doc
	s.hist.CommitKeyed(doc, label, key)
	s.rev++
	s.status = domain.StatusUnsavedChanges
	s.log.Debug("commit", slog.String("action", label), slog.Int("history", s.hist.Len()))
}

func (s *Session) commitPagesLocked(pages []domain.Page, label string) {
	s.commitPagesKeyedLocked(pages, label, "")
}

func (s *Session) commitPagesKeyedLocked(pages []domain.Page, label, key string) {
	doc := domain.Document{Pages: pages, GlobalSettings: s.doc.GlobalSettings}
	if doc.GlobalSettings != nil {
		doc.GlobalSettings, _ = domain.CloneValue(doc.GlobalSettings).(map[string]any)
	}
	s.commitKeyedLocked(doc, label, key)
}

// Insert adds a new component of typ at target (container id, sibling id or
// tree.RootContainerID) on the active page and returns its id.
func (s *Session) Insert(typ, target string, position int) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, err := s.opts.Registry.NewNode(typ)
	if err != nil {
		s.log.Warn("insert rejected", slog.String("type", typ), slog.Any("err", err))
		return "", false
	}
	n.ID = s.opts.IDs.NewID()
	pages, changed := tree.Insert(s.doc.Pages, s.page, n, target, position, s.opts.IDs)
	if !changed {
		return "", false
	}
	s.commitPagesLocked(pages, "insert "+typ)
	return n.ID, true
}

// Delete removes a node and deselects it when it, or its ancestor, was
// selected.
func (s *Session) Delete(nodeID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	pages, changed := tree.Delete(s.doc.Pages, nodeID)
	if !changed {
		return false
	}
	s.commitPagesLocked(pages, "delete")
	s.dropStaleSelectionLocked()
	return true
}

// Duplicate clones a node next to itself and returns the clone's id.
func (s *Session) Duplicate(nodeID string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pages, changed := tree.Duplicate(s.doc.Pages, nodeID, s.opts.IDs)
	if !changed {
		return "", false
	}
	loc, _ := tree.FindOwningList(pages, nodeID)
	clone := loc.List.Nodes(pages)[loc.Index+1]
	s.commitPagesLocked(pages, "duplicate")
	return clone.ID, true
}

// Move re-parents or reorders a node.
func (s *Session) Move(nodeID, target string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	pages, changed := tree.Move(s.doc.Pages, s.page, nodeID, target, -1)
	if !changed {
		return false
	}
	s.commitPagesLocked(pages, "move")
	return true
}

// DragEnd applies a drop gesture on the active page.
func (s *Session) DragEnd(src drag.Source, target string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, changed := s.drag.OnDragEnd(s.doc, s.page, src, target)
	if !changed {
		s.log.Debug("drop discarded", slog.String("target", target))
		return false
	}
	label := "move"
	if src.IsPalette() {
		label = "insert " + src.Type
	}
	s.commitLocked(doc, label)
	return true
}

// SetGlobalSetting writes a document-level setting at path.
func (s *Session) SetGlobalSetting(path string, value any) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(tree.SplitPath(path)) == 0 {
		return false
	}
	doc := s.doc.Clone()
	if doc.GlobalSettings == nil {
		doc.GlobalSettings = map[string]any{}
	}
	if !tree.SetAtPath(doc.GlobalSettings, path, value) {
		s.log.Warn("setting rejected", slog.String("path", path))
		return false
	}
	s.commitKeyedLocked(doc, "settings "+path, "settings "+path)
	return true
}

// Undo restores the previous snapshot.
func (s *Session) Undo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.hist.Undo()
	if !ok {
		return false
	}
	s.restoreLocked(doc)
	return true
}

// Redo re-applies the next snapshot.
func (s *Session) Redo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.hist.Redo()
	if !ok {
		return false
	}
	s.restoreLocked(doc)
	return true
}

func (s *Session) restoreLocked(doc domain.Document) {
	s.doc = doc
	s.rev++
	s.status = domain.StatusUnsavedChanges
	if s.page >= len(doc.Pages) {
		s.page = len(doc.Pages) - 1
	}
	s.dropStaleSelectionLocked()
}

func (s *Session) dropStaleSelectionLocked() {
	if s.selected != "" && tree.FindNode(s.doc.Pages, s.selected) == nil {
		s.selected = ""
	}
}

// Save hands a snapshot of the document to the store. Only one save may be
// outstanding; edits made while it runs keep the status at unsaved_changes.
func (s *Session) Save(ctx context.Context) error {
	s.mu.Lock()
	if s.opts.Store == nil {
		s.mu.Unlock()
		return ErrNoStore
	}
	if s.status.InFlight() {
		s.mu.Unlock()
		return ErrSaveInProgress
	}
	s.status = domain.StatusSaving
	snapshot := s.doc.Clone()
	rev := s.rev
	id := s.opts.DocumentID
	s.mu.Unlock()

	l := applog.WithOperation(s.log, "save").With(slog.String("document", id))
	err := s.opts.Store.Save(ctx, id, snapshot)

	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case err != nil:
		s.status = domain.StatusError
		l.Error("save failed", slog.Any("err", err))
		return fmt.Errorf("save document %s: %w", id, err)
	case s.rev != rev:
		s.status = domain.StatusUnsavedChanges
	default:
		s.status = domain.StatusSaved
	}
	l.Info("document saved", slog.Int("pages", len(snapshot.Pages)))
	return nil
}

// Load replaces the session's document with the stored one and resets
// history.
func (s *Session) Load(ctx context.Context, documentID string) error {
	s.mu.Lock()
	store := s.opts.Store
	busy := s.status.InFlight()
	s.mu.Unlock()
	if store == nil {
		return ErrNoStore
	}
	if busy {
		return ErrSaveInProgress
	}
	doc, err := store.Load(ctx, documentID)
	if err != nil {
		return fmt.Errorf("load document %s: %w", documentID, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.opts.DocumentID = documentID
	s.resetLocked(doc)
	s.rev++
	s.status = domain.StatusSaved
	return nil
}

// sortedKeys returns the keys of m in a stable order.
func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
