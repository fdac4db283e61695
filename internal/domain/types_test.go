/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package domain

import (
	"encoding/json"
	"testing"
)

func sampleDocument() Document {
	heading := &Node{ID: "h1", Type: "heading", Config: Config{"text": "Hi", "level": float64(2)}, Order: 0, Label: "Heading"}
	section := &Node{ID: "s1", Type: "section", Config: Config{KeyContainerID: "c-s1"}, Order: 0}
	section.SetElements([]*Node{heading})
	cols := &Node{ID: "k1", Type: "columns", Config: Config{}, Order: 1}
	cols.SetColumns([]*Column{{ID: "col-a", Elements: []*Node{}}, {ID: "col-b", Elements: []*Node{}}})
	return Document{
		Pages:          []Page{{ID: "p1", Name: "Home", Slug: "home", Elements: []*Node{section, cols}}},
		GlobalSettings: map[string]any{"theme": "light"},
	}
}

func TestDocumentJSONRoundTrip(t *testing.T) {
	doc := sampleDocument()
	b, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var got Document
	if err := json.Unmarshal(b, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(got.Pages) != 1 || len(got.Pages[0].Elements) != 2 {
		t.Fatalf("unexpected shape after round trip: %+v", got)
	}
	sec := got.Pages[0].Elements[0]
	els, ok := sec.Elements()
	if !ok || len(els) != 1 || els[0].ID != "h1" {
		t.Fatalf("section elements not restored as nodes: %#v", sec.Config[KeyElements])
	}
	if sec.ContainerID() != "c-s1" {
		t.Fatalf("container id = %q", sec.ContainerID())
	}
	cols, ok := got.Pages[0].Elements[1].Columns()
	if !ok || len(cols) != 2 || cols[1].ID != "col-b" || cols[1].Elements == nil {
		t.Fatalf("columns not restored: %#v", got.Pages[0].Elements[1].Config[KeyColumns])
	}
	if got.Pages[0].Elements[1].Order != 1 {
		t.Fatalf("order did not round trip")
	}
}

func TestCloneIsDeep(t *testing.T) {
	doc := sampleDocument()
	cp := doc.Clone()
	els, _ := cp.Pages[0].Elements[0].Elements()
	els[0].Config["text"] = "changed"
	cp.GlobalSettings["theme"] = "dark"
	orig, _ := doc.Pages[0].Elements[0].Elements()
	if orig[0].Config["text"] != "Hi" {
		t.Fatalf("clone shares node config with original")
	}
	if doc.GlobalSettings["theme"] != "light" {
		t.Fatalf("clone shares global settings")
	}
}

func TestNormalizeFillsEmptyLists(t *testing.T) {
	n := &Node{ID: "s", Type: "section", Config: Config{KeyElements: []*Node(nil)}}
	doc := Document{Pages: []Page{{ID: "p"}, {ID: "q", Elements: []*Node{n, {ID: "x", Type: "text"}}}}}
	doc.Normalize()
	if doc.Pages[0].Elements == nil {
		t.Fatalf("page elements still nil")
	}
	if els, ok := n.Elements(); !ok || els == nil {
		t.Fatalf("section elements still nil")
	}
	if doc.Pages[1].Elements[1].Config == nil {
		t.Fatalf("nil config not replaced")
	}
	b, _ := json.Marshal(doc)
	if string(b) == "" {
		t.Fatalf("empty json")
	}
}

func TestSaveStatusString(t *testing.T) {
	cases := map[SaveStatus]string{
		StatusIdle:           "idle",
		StatusSaving:         "saving",
		StatusSaved:          "saved",
		StatusError:          "error",
		StatusUnsavedChanges: "unsaved_changes",
	}
	for s, want := range cases {
		if s.String() != want {
			t.Fatalf("%d.String() = %q, want %q", int(s), s.String(), want)
		}
	}
	if !StatusSaving.InFlight() || StatusSaved.InFlight() {
		t.Fatalf("InFlight misreports")
	}
}
