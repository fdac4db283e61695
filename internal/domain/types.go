/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package domain

// This file defines the composition tree data model: documents own pages,
// pages own a root list of nodes, and container nodes own further lists.

import (
	"encoding/json"
	"fmt"
)

// Reserved config keys holding container structure.
const (
	KeyElements    = "elements"
	KeyColumns     = "columns"
	KeyContainerID = "containerId"
)

// Config is the open, type-dependent property bag of a node.
type Config map[string]any

// Node is one component instance in the composition tree.
// Container kinds hold their children inside Config under KeyElements
// ([]*Node) or KeyColumns ([]*Column).
type Node struct {
	ID     string `json:"id"`
	Type   string `json:"type"`
	Config Config `json:"config"`
	Order  int    `json:"order"`
	Label  string `json:"label,omitempty"`
}

// Column is one addressable child list of a multi-list container.
type Column struct {
	ID       string  `json:"id"`
	Elements []*Node `json:"elements"`
}

// Page is a named page with its root-level node list.
type Page struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	Slug           string  `json:"slug"`
	Elements       []*Node `json:"elements"`
	SEOTitle       string  `json:"seoTitle,omitempty"`
	SEODescription string  `json:"seoDescription,omitempty"`
}

// Document is the ordered collection of pages plus document-level settings.
type Document struct {
	Pages          []Page         `json:"pages"`
	GlobalSettings map[string]any `json:"globalSettings,omitempty"`
}

// Elements returns the child list of a single-list container.
func (n *Node) Elements() ([]*Node, bool) {
	if n == nil || n.Config == nil {
		return nil, false
	}
	v, ok := n.Config[KeyElements]
	if !ok {
		return nil, false
	}
	els, ok := v.([]*Node)
	return els, ok
}

// SetElements replaces the child list of a single-list container.
func (n *Node) SetElements(els []*Node) {
	if n.Config == nil {
		n.Config = Config{}
	}
	if els == nil {
		els = []*Node{}
	}
	n.Config[KeyElements] = els
}

// Columns returns the column lists of a multi-list container.
func (n *Node) Columns() ([]*Column, bool) {
	if n == nil || n.Config == nil {
		return nil, false
	}
	v, ok := n.Config[KeyColumns]
	if !ok {
		return nil, false
	}
	cols, ok := v.([]*Column)
	return cols, ok
}

// SetColumns replaces the column lists of a multi-list container.
func (n *Node) SetColumns(cols []*Column) {
	if n.Config == nil {
		n.Config = Config{}
	}
	if cols == nil {
		cols = []*Column{}
	}
	n.Config[KeyColumns] = cols
}

// ContainerID is the drop-target identity of a single-list container's list.
func (n *Node) ContainerID() string {
	if n == nil || n.Config == nil {
		return ""
	}
	s, _ := n.Config[KeyContainerID].(string)
	return s
}

// IsContainer reports whether the node currently carries a container shape.
func (n *Node) IsContainer() bool {
	if _, ok := n.Elements(); ok {
		return true
	}
	_, ok := n.Columns()
	return ok
}

// UnmarshalJSON decodes the config bag, restoring typed container lists.
func (n *Node) UnmarshalJSON(b []byte) error {
	var aux struct {
		ID     string                     `json:"id"`
		Type   string                     `json:"type"`
		Config map[string]json.RawMessage `json:"config"`
		Order  int                        `json:"order"`
		Label  string                     `json:"label,omitempty"`
	}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	n.ID, n.Type, n.Order, n.Label = aux.ID, aux.Type, aux.Order, aux.Label
	n.Config = make(Config, len(aux.Config))
	for k, raw := range aux.Config {
		switch k {
		case KeyElements:
			var els []*Node
			if err := json.Unmarshal(raw, &els); err == nil {
				n.SetElements(els)
				continue
			}
		case KeyColumns:
			var cols []*Column
			if err := json.Unmarshal(raw, &cols); err == nil {
				n.SetColumns(cols)
				continue
			}
		}
		var v any
		if err := json.Unmarshal(raw, &v); err != nil {
			return fmt.Errorf("node %s config %q: %w", aux.ID, k, err)
		}
		n.Config[k] = v
	}
	return nil
}

// UnmarshalJSON keeps a decoded column list non-nil.
func (c *Column) UnmarshalJSON(b []byte) error {
	var aux struct {
		ID       string  `json:"id"`
		Elements []*Node `json:"elements"`
	}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	c.ID = aux.ID
	c.Elements = aux.Elements
	if c.Elements == nil {
		c.Elements = []*Node{}
	}
	return nil
}
