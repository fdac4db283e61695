/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package editor

import (
	"context"
	"log/slog"
	"reflect"
	"strings"

	"pagecomposer/internal/domain"
	"pagecomposer/internal/tree"
)

const (
	navbarType      = "navbar"
	navigationIDKey = "navigationId"
	linksKey        = "links"
)

// reservedKey reports whether path addresses structural state that only the
// structural editor may touch.
func reservedKey(path string) bool {
	segs := tree.SplitPath(path)
	if len(segs) == 0 {
		return true
	}
	switch segs[0] {
	case domain.KeyElements, domain.KeyColumns, domain.KeyContainerID:
		return true
	}
	return false
}

// SetProperty writes value at path inside the config of nodeID and commits
// once. Writes to container keys and unknown nodes are ignored.
func (s *Session) SetProperty(ctx context.Context, nodeID, path string, value any) bool {
	return s.SetProperties(ctx, nodeID, map[string]any{path: value})
}

// SetProperties applies several path writes to one node as a single commit.
// Paths are applied in sorted order so overlapping paths resolve the same
// way every time.
func (s *Session) SetProperties(ctx context.Context, nodeID string, values map[string]any) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(values) == 0 {
		return false
	}
	pages := domain.ClonePages(s.doc.Pages)
	n := tree.FindNode(pages, nodeID)
	if n == nil {
		return false
	}
	if n.Config == nil {
		n.Config = domain.Config{}
	}
	l := s.log.With(slog.String("node", nodeID), slog.String("type", n.Type))
	applied := 0
	navTouched := false
	for _, path := range sortedKeys(values) {
		if reservedKey(path) {
			l.Warn("refusing write to structural key", slog.String("path", path))
			continue
		}
		if err := s.opts.Registry.ValidatePath(n.Type, path); err != nil {
			l.Warn("path not in component defaults", slog.String("path", path), slog.Any("err", err))
		}
		if !tree.SetAtPath(n.Config, path, domain.CloneValue(values[path])) {
			l.Warn("path rejected", slog.String("path", path), slog.Int("maxIndex", tree.MaxArrayIndex))
			continue
		}
		applied++
		if n.Type == navbarType && tree.SplitPath(path)[0] == navigationIDKey {
			navTouched = true
		}
	}
	if applied == 0 {
		return false
	}
	if navTouched {
		s.refreshLinksLocked(ctx, n)
	}
	keys := sortedKeys(values)
	label := "edit"
	if len(keys) == 1 {
		label = "edit " + keys[0]
	}
	s.commitPagesKeyedLocked(pages, label, "edit "+nodeID+" "+strings.Join(keys, ","))
	return true
}

// refreshLinksLocked recomputes the cached links of a navbar from the
// navigation it references. An empty reference, a missing navigation or a
// resolver failure falls back to the component's default links.
func (s *Session) refreshLinksLocked(ctx context.Context, n *domain.Node) {
	navID, _ := n.Config[navigationIDKey].(string)
	if navID == "" || s.opts.Navigations == nil {
		s.resetLinks(n)
		return
	}
	nav, err := s.opts.Navigations.Resolve(ctx, navID)
	if err != nil {
		s.log.Warn("navigation lookup failed", slog.String("navigation", navID), slog.Any("err", err))
		s.resetLinks(n)
		return
	}
	if nav == nil {
		s.resetLinks(n)
		return
	}
	links := make([]any, 0, len(nav.Items))
	for _, it := range nav.Items {
		links = append(links, map[string]any{"label": it.Label, "url": it.URL, "type": it.Type})
	}
	n.Config[linksKey] = links
}

func (s *Session) resetLinks(n *domain.Node) {
	def, ok := s.opts.Registry.DefaultValue(n.Type, linksKey)
	if !ok {
		def = []any{}
	}
	n.Config[linksKey] = def
}

// InvalidateNavigation detaches every navbar that references navID, which
// must be called after the navigation entity was deleted. It commits once
// when at least one navbar changed.
func (s *Session) InvalidateNavigation(navID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if navID == "" {
		return 0
	}
	pages := domain.ClonePages(s.doc.Pages)
	count := 0
	tree.Walk(pages, func(_ tree.ListRef, _ int, n *domain.Node) bool {
		if n.Type == navbarType {
			if ref, _ := n.Config[navigationIDKey].(string); ref == navID {
				n.Config[navigationIDKey] = ""
				s.resetLinks(n)
				count++
			}
		}
		return true
	})
	if count > 0 {
		s.commitPagesLocked(pages, "navigation removed")
		s.log.Info("navbars detached", slog.String("navigation", navID), slog.Int("count", count))
	}
	return count
}

// RefreshNavigation re-reads navID and rewrites the cached links of every
// navbar that references it. It commits once when any links changed and
// returns how many navbars did.
func (s *Session) RefreshNavigation(ctx context.Context, navID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if navID == "" {
		return 0
	}
	pages := domain.ClonePages(s.doc.Pages)
	count := 0
	tree.Walk(pages, func(_ tree.ListRef, _ int, n *domain.Node) bool {
		if n.Type != navbarType {
			return true
		}
		if ref, _ := n.Config[navigationIDKey].(string); ref != navID {
			return true
		}
		before := domain.CloneValue(n.Config[linksKey])
		s.refreshLinksLocked(ctx, n)
		if !reflect.DeepEqual(before, n.Config[linksKey]) {
			count++
		}
		return true
	})
	if count > 0 {
		s.commitPagesLocked(pages, "navigation updated")
	}
	return count
}
