/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package history

import (
	"encoding/json"
	"sync"
	"time"

	"pagecomposer/internal/domain"
)

// Entry is one immutable document snapshot in the history list.
type Entry struct {
	Doc   domain.Document
	Label string
	TS    time.Time
	key   string
	size  int
}

// Config controls memory and depth caps and coalescing behavior.
type Config struct {
	// MaxBytes is a soft cap on the estimated size of all snapshots; the
	// oldest entries are pruned when exceeded. 0 means 16 MiB.
	MaxBytes int
	// MaxEntries limits the number of snapshots kept (0 means unlimited).
	MaxEntries int
	// MinInterval coalesces a keyed commit into the previous entry when
	// both carry the same key and arrive within the interval. 0 disables
	// coalescing.
	MinInterval time.Duration
}

// Manager is a snapshot-based undo/redo list with a current index.
// It is safe for concurrent use.
type Manager struct {
	cfg     Config
	mu      sync.Mutex
	entries []Entry
	index   int
	// accounting
	totalBytes int
	now        func() time.Time
}

// New starts a history whose first entry is a copy of initial.
func New(initial domain.Document, cfg Config) *Manager {
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = 16 * 1024 * 1024 // 16 MiB
	}
	m := &Manager{cfg: cfg, now: time.Now}
	m.resetLocked(initial)
	return m
}

// Reset discards all history and starts over from doc.
func (m *Manager) Reset(doc domain.Document) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resetLocked(doc)
}

func (m *Manager) resetLocked(doc domain.Document) {
	e := m.entry(doc, "")
	m.entries = []Entry{e}
	m.index = 0
	m.totalBytes = e.size
}

func (m *Manager) entry(doc domain.Document, label string) Entry {
	cp := doc.Clone()
	size := 0
	if b, err := json.Marshal(cp); err == nil {
		size = len(b)
	}
	return Entry{Doc: cp, Label: label, TS: m.now(), size: size}
}

// Commit records doc as the new current state, discarding any redo branch.
func (m *Manager) Commit(doc domain.Document) { m.CommitKeyed(doc, "", "") }

// CommitLabeled commits with a label naming the action. Consecutive commits
// with the same non-empty label inside MinInterval replace each other.
func (m *Manager) CommitLabeled(doc domain.Document, label string) {
	m.CommitKeyed(doc, label, label)
}

// CommitKeyed commits with a display label and a separate coalescing key.
// Consecutive commits with the same non-empty key inside MinInterval
// replace each other; an empty key always records a new entry.
func (m *Manager) CommitKeyed(doc domain.Document, label, key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e := m.entry(doc, label)
	e.key = key
	m.truncateLocked()
	if last := m.entries[m.index]; m.index > 0 && m.cfg.MinInterval > 0 && key != "" &&
		last.key == key && e.TS.Sub(last.TS) < m.cfg.MinInterval {
		// Coalesce: adjust accounting and replace
		m.totalBytes += e.size - last.size
		m.entries[m.index] = e
		m.enforceCapsLocked()
		return
	}
	m.entries = append(m.entries, e)
	m.index = len(m.entries) - 1
	m.totalBytes += e.size
	m.enforceCapsLocked()
}

// truncateLocked drops every entry after the current index.
func (m *Manager) truncateLocked() {
	for _, e := range m.entries[m.index+1:] {
		m.totalBytes -= e.size
	}
	m.entries = m.entries[:m.index+1]
}

// Undo steps back one entry and returns a copy of it.
func (m *Manager) Undo() (domain.Document, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.index == 0 {
		return domain.Document{}, false
	}
	m.index--
	return m.entries[m.index].Doc.Clone(), true
}

// Redo steps forward one entry and returns a copy of it.
func (m *Manager) Redo() (domain.Document, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.index >= len(m.entries)-1 {
		return domain.Document{}, false
	}
	m.index++
	return m.entries[m.index].Doc.Clone(), true
}

// Current returns a copy of the snapshot at the current index.
func (m *Manager) Current() domain.Document {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.entries[m.index].Doc.Clone()
}

func (m *Manager) CanUndo() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.index > 0
}

func (m *Manager) CanRedo() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.index < len(m.entries)-1
}

// Len is the number of entries, Index the current position.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

func (m *Manager) Index() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.index
}

// Labels returns the entry labels in order, for history listings.
func (m *Manager) Labels() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.entries))
	for i, e := range m.entries {
		out[i] = e.Label
	}
	return out
}

// Stats returns current sizes for diagnostics.
func (m *Manager) Stats() (totalBytes int, entries int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.totalBytes, len(m.entries)
}

// enforceCapsLocked prunes from the oldest end. The current entry is never
// pruned.
func (m *Manager) enforceCapsLocked() {
	drop := 0
	if m.cfg.MaxEntries > 0 && len(m.entries) > m.cfg.MaxEntries {
		drop = len(m.entries) - m.cfg.MaxEntries
	}
	bytes := m.totalBytes
	for i := 0; i < drop; i++ {
		bytes -= m.entries[i].size
	}
	for bytes > m.cfg.MaxBytes && drop < m.index {
		bytes -= m.entries[drop].size
		drop++
	}
	if drop > m.index {
		drop = m.index
	}
	if drop == 0 {
		return
	}
	for _, e := range m.entries[:drop] {
		m.totalBytes -= e.size
	}
	m.entries = append([]Entry(nil), m.entries[drop:]...)
	m.index -= drop
}
