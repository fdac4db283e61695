package storage

import "pagecomposer/internal/domain"

// sampleDocument is a small, invariant-respecting document with a section
// and a two-column container.
func sampleDocument() domain.Document {
	head := &domain.Node{ID: "h1", Type: "heading", Order: 0, Config: domain.Config{"text": "Welcome home", "level": 1.0}}
	sec := &domain.Node{ID: "s1", Type: "section", Order: 0, Config: domain.Config{domain.KeyContainerID: "s1-body"}}
	sec.SetElements([]*domain.Node{head})
	btn := &domain.Node{ID: "b1", Type: "button", Order: 0, Config: domain.Config{"text": "Sign up", "url": "/join"}}
	cols := &domain.Node{ID: "c1", Type: "columns", Order: 1, Config: domain.Config{}}
	cols.SetColumns([]*domain.Column{{ID: "col-a", Elements: []*domain.Node{btn}}, {ID: "col-b", Elements: []*domain.Node{}}})
	return domain.Document{
		Pages: []domain.Page{
			{ID: "p1", Name: "Home", Slug: "home", Elements: []*domain.Node{sec, cols}},
			{ID: "p2", Name: "About", Slug: "about", Elements: []*domain.Node{}},
		},
		GlobalSettings: map[string]any{"font": "Inter"},
	}
}
