/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package editor

import (
	"strconv"
	"strings"
	"unicode"

	"pagecomposer/internal/domain"
)

// Slugify lowers name and joins its letter and digit runs with dashes.
func Slugify(name string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(name) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if dash && b.Len() > 0 {
				b.WriteByte('-')
			}
			b.WriteRune(r)
			dash = false
			continue
		}
		dash = true
	}
	if b.Len() == 0 {
		return "page"
	}
	return b.String()
}

func (s *Session) uniqueSlugLocked(slug, skipID string) string {
	taken := map[string]bool{}
	for _, p := range s.doc.Pages {
		if p.ID != skipID {
			taken[p.Slug] = true
		}
	}
	if !taken[slug] {
		return slug
	}
	for i := 2; ; i++ {
		cand := slug + "-" + strconv.Itoa(i)
		if !taken[cand] {
			return cand
		}
	}
}

func (s *Session) pageIndexLocked(pageID string) int {
	for i, p := range s.doc.Pages {
		if p.ID == pageID {
			return i
		}
	}
	return -1
}

// AddPage appends an empty page, makes it active and returns its id. An
// empty slug is derived from name; slugs are kept unique.
func (s *Session) AddPage(name, slug string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if slug == "" {
		slug = Slugify(name)
	}
	p := domain.Page{
		ID:       s.opts.IDs.NewID(),
		Name:     name,
		Slug:     s.uniqueSlugLocked(slug, ""),
		Elements: []*domain.Node{},
	}
	pages := append(domain.ClonePages(s.doc.Pages), p)
	s.commitPagesLocked(pages, "add page")
	s.page = len(pages) - 1
	s.selected = ""
	return p.ID
}

// DeletePage removes a page. The last remaining page cannot be deleted.
func (s *Session) DeletePage(pageID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.pageIndexLocked(pageID)
	if i < 0 || len(s.doc.Pages) == 1 {
		return false
	}
	pages := domain.ClonePages(s.doc.Pages)
	pages = append(pages[:i], pages[i+1:]...)
	s.commitPagesLocked(pages, "delete page")
	if s.page >= len(pages) {
		s.page = len(pages) - 1
	}
	s.dropStaleSelectionLocked()
	return true
}

// RenamePage changes name and, when slug is non-empty, the slug.
func (s *Session) RenamePage(pageID, name, slug string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.pageIndexLocked(pageID)
	if i < 0 {
		return false
	}
	cur := s.doc.Pages[i]
	if slug != "" {
		slug = s.uniqueSlugLocked(slug, pageID)
	} else {
		slug = cur.Slug
	}
	if name == "" {
		name = cur.Name
	}
	if name == cur.Name && slug == cur.Slug {
		return false
	}
	pages := domain.ClonePages(s.doc.Pages)
	pages[i].Name = name
	pages[i].Slug = slug
	s.commitPagesLocked(pages, "rename page")
	return true
}

// SetPageSEO updates the page's search metadata.
func (s *Session) SetPageSEO(pageID, title, description string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.pageIndexLocked(pageID)
	if i < 0 {
		return false
	}
	cur := s.doc.Pages[i]
	if cur.SEOTitle == title && cur.SEODescription == description {
		return false
	}
	pages := domain.ClonePages(s.doc.Pages)
	pages[i].SEOTitle = title
	pages[i].SEODescription = description
	s.commitPagesLocked(pages, "page seo")
	return true
}
