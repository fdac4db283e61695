/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package drag turns drag-and-drop gestures into structural edits.
package drag

import (
	"pagecomposer/internal/domain"
	"pagecomposer/internal/registry"
	"pagecomposer/internal/tree"
)

// Source describes what is being dragged: a palette entry (a component type
// not yet in the tree) or an existing node.
type Source struct {
	Type   string
	NodeID string
}

// Palette is a create-drag of a new component of typ.
func Palette(typ string) Source { return Source{Type: typ} }

// Existing is a move-drag of a node already in the tree.
func Existing(nodeID string) Source { return Source{NodeID: nodeID} }

// IsPalette reports whether the source creates a new node.
func (s Source) IsPalette() bool { return s.NodeID == "" && s.Type != "" }

// Engine applies drop policy on top of the structural editor.
type Engine struct {
	Registry *registry.Registry
	IDs      tree.IDGenerator
}

// NewEngine returns an engine minting ids with ids (tree.UUIDs when nil).
func NewEngine(reg *registry.Registry, ids tree.IDGenerator) *Engine {
	if ids == nil {
		ids = tree.UUIDs
	}
	return &Engine{Registry: reg, IDs: ids}
}

// OnDragEnd resolves a drop onto targetID on the given page and returns the
// resulting document. The input is never modified. Unknown palette types,
// unknown sources and unresolvable targets discard the gesture and return
// doc unchanged with changed=false.
func (e *Engine) OnDragEnd(doc domain.Document, page int, src Source, targetID string) (domain.Document, bool) {
	if targetID == "" {
		return doc, false
	}
	var (
		pages   []domain.Page
		changed bool
	)
	switch {
	case src.IsPalette():
		n, err := e.Registry.NewNode(src.Type)
		if err != nil {
			return doc, false
		}
		pages, changed = tree.Insert(doc.Pages, page, n, targetID, -1, e.IDs)
	case src.NodeID != "":
		pages, changed = tree.Move(doc.Pages, page, src.NodeID, targetID, -1)
	}
	if !changed {
		return doc, false
	}
	out := domain.Document{Pages: pages}
	if doc.GlobalSettings != nil {
		out.GlobalSettings, _ = domain.CloneValue(doc.GlobalSettings).(map[string]any)
	}
	return out, true
}
