/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package tree

import "pagecomposer/internal/domain"

// RootContainerID is the sentinel drop target addressing the active page's
// root list.
const RootContainerID = "root"

// ListRef addresses one ordered child list: a page root list, the elements
// of a single-list container, or one column of a multi-list container.
type ListRef struct {
	Page   int
	Owner  *domain.Node
	Column *domain.Column
}

// Nodes returns the current members of the referenced list.
func (r ListRef) Nodes(pages []domain.Page) []*domain.Node {
	switch {
	case r.Column != nil:
		return r.Column.Elements
	case r.Owner != nil:
		els, _ := r.Owner.Elements()
		return els
	case r.Page >= 0 && r.Page < len(pages):
		return pages[r.Page].Elements
	}
	return nil
}

func (r ListRef) set(pages []domain.Page, nodes []*domain.Node) {
	if nodes == nil {
		nodes = []*domain.Node{}
	}
	switch {
	case r.Column != nil:
		r.Column.Elements = nodes
	case r.Owner != nil:
		r.Owner.SetElements(nodes)
	case r.Page >= 0 && r.Page < len(pages):
		pages[r.Page].Elements = nodes
	}
}

// Location is where a node lives in the tree.
type Location struct {
	List  ListRef
	Index int
	Node  *domain.Node
}

// FindOwningList locates the list that holds nodeID, searching every page
// and every nested container.
func FindOwningList(pages []domain.Page, nodeID string) (Location, bool) {
	if nodeID == "" {
		return Location{}, false
	}
	var (
		found Location
		ok    bool
	)
	Walk(pages, func(ref ListRef, idx int, n *domain.Node) bool {
		if n.ID == nodeID {
			found, ok = Location{List: ref, Index: idx, Node: n}, true
			return false
		}
		return true
	})
	return found, ok
}

// FindContainerList resolves a drop target addressed by container identity:
// the root sentinel (the root list of page), a section's container id, or a
// column id.
func FindContainerList(pages []domain.Page, page int, containerID string) (ListRef, bool) {
	if containerID == "" {
		return ListRef{}, false
	}
	if containerID == RootContainerID {
		if page < 0 || page >= len(pages) {
			return ListRef{}, false
		}
		return ListRef{Page: page}, true
	}
	var (
		found ListRef
		ok    bool
	)
	Walk(pages, func(ref ListRef, _ int, n *domain.Node) bool {
		if _, isList := n.Elements(); isList && n.ContainerID() == containerID {
			found, ok = ListRef{Page: ref.Page, Owner: n}, true
			return false
		}
		if cols, isCols := n.Columns(); isCols {
			for _, c := range cols {
				if c.ID == containerID {
					found, ok = ListRef{Page: ref.Page, Owner: n, Column: c}, true
					return false
				}
			}
		}
		return true
	})
	return found, ok
}

// Walk visits every node depth-first in list order. The visitor receives the
// owning list, the node's index in it, and the node; returning false stops
// the walk.
func Walk(pages []domain.Page, visit func(ref ListRef, idx int, n *domain.Node) bool) {
	for p := range pages {
		if !walkList(pages, ListRef{Page: p}, visit) {
			return
		}
	}
}

func walkList(pages []domain.Page, ref ListRef, visit func(ListRef, int, *domain.Node) bool) bool {
	for i, n := range ref.Nodes(pages) {
		if n == nil {
			continue
		}
		if !visit(ref, i, n) {
			return false
		}
		if _, ok := n.Elements(); ok {
			if !walkList(pages, ListRef{Page: ref.Page, Owner: n}, visit) {
				return false
			}
		}
		if cols, ok := n.Columns(); ok {
			for _, c := range cols {
				if !walkList(pages, ListRef{Page: ref.Page, Owner: n, Column: c}, visit) {
					return false
				}
			}
		}
	}
	return true
}

// Lists returns every list in the tree: page roots first within each page,
// then nested lists in depth-first order.
func Lists(pages []domain.Page) []ListRef {
	var out []ListRef
	for p := range pages {
		out = append(out, ListRef{Page: p})
	}
	Walk(pages, func(ref ListRef, _ int, n *domain.Node) bool {
		if _, ok := n.Elements(); ok {
			out = append(out, ListRef{Page: ref.Page, Owner: n})
		}
		if cols, ok := n.Columns(); ok {
			for _, c := range cols {
				out = append(out, ListRef{Page: ref.Page, Owner: n, Column: c})
			}
		}
		return true
	})
	return out
}

// AllIDs returns every identifier in the tree: node ids, container markers
// and column ids.
func AllIDs(pages []domain.Page) []string {
	var ids []string
	Walk(pages, func(_ ListRef, _ int, n *domain.Node) bool {
		ids = append(ids, n.ID)
		if cid := n.ContainerID(); cid != "" {
			ids = append(ids, cid)
		}
		if cols, ok := n.Columns(); ok {
			for _, c := range cols {
				ids = append(ids, c.ID)
			}
		}
		return true
	})
	return ids
}

// FindNode returns the node with the given id.
func FindNode(pages []domain.Page, nodeID string) *domain.Node {
	loc, ok := FindOwningList(pages, nodeID)
	if !ok {
		return nil
	}
	return loc.Node
}

// Contains reports whether id names n itself or anything inside its subtree
// (node, container marker or column).
func Contains(n *domain.Node, id string) bool {
	if n == nil || id == "" {
		return false
	}
	if n.ID == id || n.ContainerID() == id {
		return true
	}
	if els, ok := n.Elements(); ok {
		for _, c := range els {
			if Contains(c, id) {
				return true
			}
		}
	}
	if cols, ok := n.Columns(); ok {
		for _, col := range cols {
			if col.ID == id {
				return true
			}
			for _, c := range col.Elements {
				if Contains(c, id) {
					return true
				}
			}
		}
	}
	return false
}
