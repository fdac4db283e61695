/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package tree

import (
	"fmt"
	"math/rand"
	"reflect"
	"testing"

	"pagecomposer/internal/domain"
)

func section() *domain.Node {
	n := &domain.Node{Type: "section", Config: domain.Config{}}
	n.SetElements(nil)
	return n
}

func columns(k int) *domain.Node {
	n := &domain.Node{Type: "columns", Config: domain.Config{"gap": float64(16)}}
	cols := make([]*domain.Column, k)
	for i := range cols {
		cols[i] = &domain.Column{Elements: []*domain.Node{}}
	}
	n.SetColumns(cols)
	return n
}

func leaf(typ string) *domain.Node {
	return &domain.Node{Type: typ, Config: domain.Config{"text": typ}}
}

func onePage() []domain.Page {
	return []domain.Page{{ID: "page-1", Name: "Home", Slug: "home", Elements: []*domain.Node{}}}
}

func checkOrder(t *testing.T, pages []domain.Page) {
	t.Helper()
	for _, ref := range Lists(pages) {
		for i, n := range ref.Nodes(pages) {
			if n.Order != i {
				t.Fatalf("node %s has order %d at index %d", n.ID, n.Order, i)
			}
		}
	}
}

func checkUniqueIDs(t *testing.T, pages []domain.Page) {
	t.Helper()
	seen := map[string]bool{}
	for _, id := range AllIDs(pages) {
		if id == "" {
			t.Fatalf("empty id in tree")
		}
		if seen[id] {
			t.Fatalf("duplicate id %q", id)
		}
		seen[id] = true
	}
}

func TestInsertSectionThenHeading(t *testing.T) {
	ids := &Sequence{Prefix: "n"}
	pages, changed := Insert(onePage(), 0, section(), RootContainerID, -1, ids)
	if !changed || len(pages[0].Elements) != 1 || pages[0].Elements[0].Order != 0 {
		t.Fatalf("section not inserted at root: %+v", pages[0].Elements)
	}
	sec := pages[0].Elements[0]
	if sec.ContainerID() == "" {
		t.Fatalf("section has no container id")
	}
	pages, changed = Insert(pages, 0, leaf("heading"), sec.ContainerID(), -1, ids)
	if !changed {
		t.Fatalf("heading insert reported no change")
	}
	els, _ := pages[0].Elements[0].Elements()
	if len(els) != 1 || els[0].Type != "heading" || els[0].Order != 0 {
		t.Fatalf("heading not inside section: %+v", els)
	}
	if len(pages[0].Elements) != 1 {
		t.Fatalf("root should still hold one node, got %d", len(pages[0].Elements))
	}
}

func TestInsertNextToSibling(t *testing.T) {
	ids := &Sequence{Prefix: "n"}
	pages, _ := Insert(onePage(), 0, leaf("a"), RootContainerID, -1, ids)
	pages, _ = Insert(pages, 0, leaf("c"), RootContainerID, -1, ids)
	first := pages[0].Elements[0].ID
	pages, _ = Insert(pages, 0, leaf("b"), first, -1, ids)
	var got []string
	for _, n := range pages[0].Elements {
		got = append(got, n.Type)
	}
	if !reflect.DeepEqual(got, []string{"a", "b", "c"}) {
		t.Fatalf("order = %v", got)
	}
	checkOrder(t, pages)
}

func TestInsertAtPositionAndIntoColumn(t *testing.T) {
	ids := &Sequence{Prefix: "n"}
	pages, _ := Insert(onePage(), 0, columns(2), RootContainerID, -1, ids)
	cols, _ := pages[0].Elements[0].Columns()
	if cols[0].ID == "" || cols[0].ID == cols[1].ID {
		t.Fatalf("columns not minted: %q %q", cols[0].ID, cols[1].ID)
	}
	target := cols[1].ID
	pages, _ = Insert(pages, 0, leaf("x"), target, -1, ids)
	pages, _ = Insert(pages, 0, leaf("y"), target, 0, ids)
	cols, _ = pages[0].Elements[0].Columns()
	if len(cols[1].Elements) != 2 || cols[1].Elements[0].Type != "y" || cols[1].Elements[1].Order != 1 {
		t.Fatalf("column contents = %+v", cols[1].Elements)
	}
	if len(cols[0].Elements) != 0 {
		t.Fatalf("first column should stay empty")
	}
}

func TestInsertUnknownTargetIsNoop(t *testing.T) {
	in := onePage()
	out, changed := Insert(in, 0, leaf("x"), "missing", -1, &Sequence{})
	if changed || len(out[0].Elements) != 0 {
		t.Fatalf("insert with stale target changed the tree")
	}
}

func TestInsertDoesNotModifyInput(t *testing.T) {
	ids := &Sequence{Prefix: "n"}
	in, _ := Insert(onePage(), 0, section(), RootContainerID, -1, ids)
	cid := in[0].Elements[0].ContainerID()
	_, _ = Insert(in, 0, leaf("h"), cid, -1, ids)
	els, _ := in[0].Elements[0].Elements()
	if len(els) != 0 {
		t.Fatalf("input tree was mutated")
	}
}

func TestDuplicateRegeneratesIDs(t *testing.T) {
	ids := &Sequence{Prefix: "n"}
	pages, _ := Insert(onePage(), 0, section(), RootContainerID, -1, ids)
	orig := pages[0].Elements[0]
	pages, _ = Insert(pages, 0, leaf("heading"), orig.ContainerID(), -1, ids)
	pages, changed := Duplicate(pages, orig.ID, ids)
	if !changed || len(pages[0].Elements) != 2 {
		t.Fatalf("duplicate failed: %+v", pages[0].Elements)
	}
	a, b := pages[0].Elements[0], pages[0].Elements[1]
	if a.ID == b.ID || a.ContainerID() == b.ContainerID() {
		t.Fatalf("duplicated section shares ids")
	}
	ae, _ := a.Elements()
	be, _ := b.Elements()
	if ae[0].ID == be[0].ID {
		t.Fatalf("nested heading id not regenerated")
	}
	if ae[0].Order != 0 || be[0].Order != 0 {
		t.Fatalf("nested orders = %d, %d", ae[0].Order, be[0].Order)
	}
	checkUniqueIDs(t, pages)
}

func TestDuplicateColumnsMintsColumnIDs(t *testing.T) {
	ids := &Sequence{Prefix: "n"}
	pages, _ := Insert(onePage(), 0, columns(3), RootContainerID, -1, ids)
	pages, _ = Duplicate(pages, pages[0].Elements[0].ID, ids)
	checkUniqueIDs(t, pages)
}

func TestMoveHeadingToRoot(t *testing.T) {
	ids := &Sequence{Prefix: "n"}
	pages, _ := Insert(onePage(), 0, section(), RootContainerID, -1, ids)
	pages, _ = Insert(pages, 0, leaf("heading"), pages[0].Elements[0].ContainerID(), -1, ids)
	pages, _ = Duplicate(pages, pages[0].Elements[0].ID, ids)
	dup := pages[0].Elements[1]
	dupEls, _ := dup.Elements()
	heading := dupEls[0].ID

	pages, changed := Move(pages, 0, heading, RootContainerID, -1)
	if !changed {
		t.Fatalf("move reported no change")
	}
	if len(pages[0].Elements) != 3 {
		t.Fatalf("root should hold 3 nodes, got %d", len(pages[0].Elements))
	}
	els, ok := pages[0].Elements[1].Elements()
	if !ok || els == nil || len(els) != 0 {
		t.Fatalf("emptied section should have [] elements, got %#v", pages[0].Elements[1].Config[domain.KeyElements])
	}
	if pages[0].Elements[2].ID != heading {
		t.Fatalf("moved heading should be last at root")
	}
	for i, n := range pages[0].Elements {
		if n.Order != i {
			t.Fatalf("root order %d at %d", n.Order, i)
		}
	}
}

func TestMoveIntoOwnSubtreeIsNoop(t *testing.T) {
	ids := &Sequence{Prefix: "n"}
	pages, _ := Insert(onePage(), 0, section(), RootContainerID, -1, ids)
	sec := pages[0].Elements[0]
	out, changed := Move(pages, 0, sec.ID, sec.ContainerID(), -1)
	if changed || len(out[0].Elements) != 1 {
		t.Fatalf("moving a section into itself must be refused")
	}
}

func TestMoveStaleTargetKeepsNode(t *testing.T) {
	ids := &Sequence{Prefix: "n"}
	pages, _ := Insert(onePage(), 0, leaf("a"), RootContainerID, -1, ids)
	out, changed := Move(pages, 0, pages[0].Elements[0].ID, "gone", -1)
	if changed || len(out[0].Elements) != 1 {
		t.Fatalf("move to a stale target dropped the node")
	}
}

func TestDeleteAtDepthAndAbsent(t *testing.T) {
	ids := &Sequence{Prefix: "n"}
	pages, _ := Insert(onePage(), 0, columns(2), RootContainerID, -1, ids)
	cols, _ := pages[0].Elements[0].Columns()
	pages, _ = Insert(pages, 0, section(), cols[0].ID, -1, ids)
	cols, _ = pages[0].Elements[0].Columns()
	inner := cols[0].Elements[0]
	pages, _ = Insert(pages, 0, leaf("a"), inner.ContainerID(), -1, ids)
	pages, _ = Insert(pages, 0, leaf("b"), inner.ContainerID(), -1, ids)
	cols, _ = pages[0].Elements[0].Columns()
	innerEls, _ := cols[0].Elements[0].Elements()
	victim := innerEls[0].ID

	before := domain.ClonePages(pages)
	same, changed := Delete(pages, "nope")
	if changed || !reflect.DeepEqual(same, before) {
		t.Fatalf("deleting an absent id changed the tree")
	}

	pages, changed = Delete(pages, victim)
	if !changed {
		t.Fatalf("delete reported no change")
	}
	cols, _ = pages[0].Elements[0].Columns()
	innerEls, _ = cols[0].Elements[0].Elements()
	if len(innerEls) != 1 || innerEls[0].Type != "b" || innerEls[0].Order != 0 {
		t.Fatalf("nested delete left %+v", innerEls)
	}
}

func TestRandomEditsKeepInvariants(t *testing.T) {
	rnd := rand.New(rand.NewSource(7))
	ids := &Sequence{Prefix: "n"}
	pages := []domain.Page{
		{ID: "p1", Elements: []*domain.Node{}},
		{ID: "p2", Elements: []*domain.Node{}},
	}
	targets := func() []string {
		out := []string{RootContainerID}
		return append(out, AllIDs(pages)...)
	}
	nodes := func() []string {
		var out []string
		Walk(pages, func(_ ListRef, _ int, n *domain.Node) bool {
			out = append(out, n.ID)
			return true
		})
		return out
	}
	pick := func(list []string) string {
		if len(list) == 0 {
			return ""
		}
		return list[rnd.Intn(len(list))]
	}
	for step := 0; step < 400; step++ {
		page := rnd.Intn(len(pages))
		switch rnd.Intn(5) {
		case 0:
			pages, _ = Insert(pages, page, section(), pick(targets()), rnd.Intn(4)-1, ids)
		case 1:
			pages, _ = Insert(pages, page, columns(1+rnd.Intn(3)), pick(targets()), -1, ids)
		case 2:
			pages, _ = Insert(pages, page, leaf(fmt.Sprintf("t%d", step)), pick(targets()), -1, ids)
		case 3:
			pages, _ = Duplicate(pages, pick(nodes()), ids)
		case 4:
			if rnd.Intn(3) == 0 {
				pages, _ = Delete(pages, pick(nodes()))
			} else {
				pages, _ = Move(pages, page, pick(nodes()), pick(targets()), -1)
			}
		}
		checkOrder(t, pages)
		checkUniqueIDs(t, pages)
	}
}
