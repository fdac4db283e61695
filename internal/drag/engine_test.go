/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package drag

import (
	"reflect"
	"testing"

	"pagecomposer/internal/domain"
	"pagecomposer/internal/registry"
	"pagecomposer/internal/tree"
)

func newEngine() *Engine {
	return NewEngine(registry.Default(), &tree.Sequence{Prefix: "id"})
}

func emptyDoc() domain.Document {
	return domain.Document{
		Pages:          []domain.Page{{ID: "p1", Name: "Home", Slug: "home", Elements: []*domain.Node{}}},
		GlobalSettings: map[string]any{"font": "Inter"},
	}
}

func TestPaletteDropIntoRootAndSection(t *testing.T) {
	e := newEngine()
	doc, changed := e.OnDragEnd(emptyDoc(), 0, Palette("section"), tree.RootContainerID)
	if !changed || len(doc.Pages[0].Elements) != 1 {
		t.Fatalf("palette drop to root failed")
	}
	sec := doc.Pages[0].Elements[0]
	if sec.Label != "Section" || sec.ID == "" || sec.ContainerID() == "" {
		t.Fatalf("section not built from registry: %+v", sec)
	}
	doc, changed = e.OnDragEnd(doc, 0, Palette("heading"), sec.ContainerID())
	if !changed {
		t.Fatalf("palette drop into section failed")
	}
	els, _ := doc.Pages[0].Elements[0].Elements()
	if len(els) != 1 || els[0].Config["text"] != "Heading" {
		t.Fatalf("section contents = %+v", els)
	}
	if doc.GlobalSettings["font"] != "Inter" {
		t.Fatalf("global settings lost")
	}
}

func TestExistingDropContainerThenSibling(t *testing.T) {
	e := newEngine()
	doc, _ := e.OnDragEnd(emptyDoc(), 0, Palette("columns"), tree.RootContainerID)
	doc, _ = e.OnDragEnd(doc, 0, Palette("text"), tree.RootContainerID)
	doc, _ = e.OnDragEnd(doc, 0, Palette("image"), tree.RootContainerID)
	cols, _ := doc.Pages[0].Elements[0].Columns()
	text := doc.Pages[0].Elements[1].ID
	image := doc.Pages[0].Elements[2].ID

	doc, changed := e.OnDragEnd(doc, 0, Existing(text), cols[1].ID)
	if !changed {
		t.Fatalf("drop into column failed")
	}
	cols, _ = doc.Pages[0].Elements[0].Columns()
	if len(cols[1].Elements) != 1 || cols[1].Elements[0].ID != text {
		t.Fatalf("text not in second column")
	}
	doc, changed = e.OnDragEnd(doc, 0, Existing(image), text)
	if !changed {
		t.Fatalf("drop next to sibling failed")
	}
	cols, _ = doc.Pages[0].Elements[0].Columns()
	if len(cols[1].Elements) != 2 || cols[1].Elements[1].ID != image || cols[1].Elements[1].Order != 1 {
		t.Fatalf("image not placed after text: %+v", cols[1].Elements)
	}
	if len(doc.Pages[0].Elements) != 1 {
		t.Fatalf("root should only hold the columns node")
	}
}

func TestDiscardedGestures(t *testing.T) {
	e := newEngine()
	base, _ := e.OnDragEnd(emptyDoc(), 0, Palette("text"), tree.RootContainerID)
	snapshot := base.Clone()
	cases := []struct {
		name   string
		src    Source
		target string
	}{
		{"unknown palette type", Palette("nope"), tree.RootContainerID},
		{"unknown target", Palette("text"), "ghost"},
		{"unknown source", Existing("ghost"), tree.RootContainerID},
		{"empty target", Existing(base.Pages[0].Elements[0].ID), ""},
		{"empty source", Source{}, tree.RootContainerID},
	}
	for _, c := range cases {
		out, changed := e.OnDragEnd(base, 0, c.src, c.target)
		if changed {
			t.Fatalf("%s: gesture should be discarded", c.name)
		}
		if !reflect.DeepEqual(out, snapshot) {
			t.Fatalf("%s: document changed", c.name)
		}
	}
}

func TestSourceKinds(t *testing.T) {
	if !Palette("x").IsPalette() || Existing("n").IsPalette() || (Source{}).IsPalette() {
		t.Fatalf("IsPalette misclassifies sources")
	}
}
