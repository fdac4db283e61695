/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package tree

import "pagecomposer/internal/domain"

// Structural edits take a page list and return a new one plus whether
// anything changed. The input is never modified. A stale or unknown id is
// not an error: the input is returned unchanged with changed=false.

// Insert places node into the tree on the given page. target is resolved
// first as a container id (the node is spliced at position, or appended
// when position is negative or past the end), then as a sibling node id
// (the node goes right after it). The inserted node gets an id if it has
// none and fresh container markers and column ids.
func Insert(pages []domain.Page, page int, node *domain.Node, target string, position int, ids IDGenerator) ([]domain.Page, bool) {
	if node == nil {
		return pages, false
	}
	n := node.Clone()
	Mint(n, ids)
	out := domain.ClonePages(pages)
	if !place(out, page, n, target, position) {
		return pages, false
	}
	Renumber(out)
	return out, true
}

// place splices n at the resolved destination inside pages, in place.
func place(pages []domain.Page, page int, n *domain.Node, target string, position int) bool {
	if ref, ok := FindContainerList(pages, page, target); ok {
		ref.set(pages, spliceAt(ref.Nodes(pages), position, n))
		return true
	}
	if loc, ok := FindOwningList(pages, target); ok {
		loc.List.set(pages, spliceAt(loc.List.Nodes(pages), loc.Index+1, n))
		return true
	}
	return false
}

func spliceAt(list []*domain.Node, pos int, n *domain.Node) []*domain.Node {
	if pos < 0 || pos > len(list) {
		pos = len(list)
	}
	out := make([]*domain.Node, 0, len(list)+1)
	out = append(out, list[:pos]...)
	out = append(out, n)
	return append(out, list[pos:]...)
}

// Delete removes the node and its subtree from whatever list owns it.
func Delete(pages []domain.Page, nodeID string) ([]domain.Page, bool) {
	if _, ok := FindOwningList(pages, nodeID); !ok {
		return pages, false
	}
	out := domain.ClonePages(pages)
	for i := range out {
		out[i].Elements = filterOut(out[i].Elements, nodeID)
	}
	Renumber(out)
	return out, true
}

// filterOut drops nodeID from list and, recursively, from every nested list
// of the remaining members.
func filterOut(list []*domain.Node, nodeID string) []*domain.Node {
	out := make([]*domain.Node, 0, len(list))
	for _, n := range list {
		if n == nil || n.ID == nodeID {
			continue
		}
		if els, ok := n.Elements(); ok {
			n.SetElements(filterOut(els, nodeID))
		}
		if cols, ok := n.Columns(); ok {
			for _, c := range cols {
				c.Elements = filterOut(c.Elements, nodeID)
			}
		}
		out = append(out, n)
	}
	return out
}

// Duplicate clones the subtree rooted at nodeID with fresh ids throughout
// and places the clone right after the original.
func Duplicate(pages []domain.Page, nodeID string, ids IDGenerator) ([]domain.Page, bool) {
	out := domain.ClonePages(pages)
	loc, ok := FindOwningList(out, nodeID)
	if !ok {
		return pages, false
	}
	cp := loc.Node.Clone()
	Regenerate(cp, ids)
	loc.List.set(out, spliceAt(loc.List.Nodes(out), loc.Index+1, cp))
	Renumber(out)
	return out, true
}

// Move detaches nodeID and re-inserts the same node, ids intact, at target
// resolved as in Insert. Moving a node into itself or its own subtree, or to
// a target that cannot be resolved, leaves the tree unchanged.
func Move(pages []domain.Page, page int, nodeID, target string, position int) ([]domain.Page, bool) {
	if nodeID == "" || nodeID == target {
		return pages, false
	}
	out := domain.ClonePages(pages)
	loc, ok := FindOwningList(out, nodeID)
	if !ok || Contains(loc.Node, target) {
		return pages, false
	}
	list := loc.List.Nodes(out)
	rest := make([]*domain.Node, 0, len(list)-1)
	rest = append(rest, list[:loc.Index]...)
	rest = append(rest, list[loc.Index+1:]...)
	loc.List.set(out, rest)
	if !place(out, page, loc.Node, target, position) {
		return pages, false
	}
	Renumber(out)
	return out, true
}

// Renumber rewrites Order in every list to match array position.
func Renumber(pages []domain.Page) {
	for _, ref := range Lists(pages) {
		for i, n := range ref.Nodes(pages) {
			if n != nil {
				n.Order = i
			}
		}
	}
}
