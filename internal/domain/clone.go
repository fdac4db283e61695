/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package domain

// Clone returns a deep copy of the node and its whole subtree.
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	return &Node{
		ID:     n.ID,
		Type:   n.Type,
		Config: n.Config.Clone(),
		Order:  n.Order,
		Label:  n.Label,
	}
}

// Clone returns a deep copy of the column and its nodes.
func (c *Column) Clone() *Column {
	if c == nil {
		return nil
	}
	return &Column{ID: c.ID, Elements: CloneNodes(c.Elements)}
}

// Clone returns a deep copy of the config bag.
func (c Config) Clone() Config {
	if c == nil {
		return nil
	}
	out := make(Config, len(c))
	for k, v := range c {
		out[k] = CloneValue(v)
	}
	return out
}

// CloneNodes deep-copies a node list, preserving nil vs empty.
func CloneNodes(nodes []*Node) []*Node {
	if nodes == nil {
		return nil
	}
	out := make([]*Node, len(nodes))
	for i, n := range nodes {
		out[i] = n.Clone()
	}
	return out
}

// CloneValue deep-copies values found in a config bag. Maps, slices and
// container lists are copied; any other value is treated as immutable.
func CloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, vv := range t {
			out[k] = CloneValue(vv)
		}
		return out
	case Config:
		return t.Clone()
	case []any:
		out := make([]any, len(t))
		for i, vv := range t {
			out[i] = CloneValue(vv)
		}
		return out
	case []map[string]any:
		out := make([]map[string]any, len(t))
		for i, vv := range t {
			out[i], _ = CloneValue(vv).(map[string]any)
		}
		return out
	case []string:
		return append([]string(nil), t...)
	case []*Node:
		out := CloneNodes(t)
		if out == nil {
			out = []*Node{}
		}
		return out
	case []*Column:
		out := make([]*Column, len(t))
		for i, c := range t {
			out[i] = c.Clone()
		}
		return out
	case *Node:
		return t.Clone()
	default:
		return v
	}
}

// Clone returns a deep copy of the page.
func (p Page) Clone() Page {
	out := p
	out.Elements = CloneNodes(p.Elements)
	return out
}

// ClonePages deep-copies a page list.
func ClonePages(pages []Page) []Page {
	if pages == nil {
		return nil
	}
	out := make([]Page, len(pages))
	for i, p := range pages {
		out[i] = p.Clone()
	}
	return out
}

// Clone returns a deep copy of the document.
func (d Document) Clone() Document {
	out := Document{Pages: ClonePages(d.Pages)}
	if d.GlobalSettings != nil {
		out.GlobalSettings, _ = CloneValue(d.GlobalSettings).(map[string]any)
	}
	return out
}

// Normalize replaces nil lists and bags with empty ones so the document
// serializes every container shape explicitly.
func (d *Document) Normalize() {
	if d.Pages == nil {
		d.Pages = []Page{}
	}
	for i := range d.Pages {
		if d.Pages[i].Elements == nil {
			d.Pages[i].Elements = []*Node{}
		}
		normalizeNodes(d.Pages[i].Elements)
	}
}

func normalizeNodes(nodes []*Node) {
	for _, n := range nodes {
		if n == nil {
			continue
		}
		if n.Config == nil {
			n.Config = Config{}
		}
		if els, ok := n.Elements(); ok {
			if els == nil {
				n.SetElements(nil)
			}
			normalizeNodes(els)
		}
		if cols, ok := n.Columns(); ok {
			if cols == nil {
				n.SetColumns(nil)
			}
			for _, c := range cols {
				if c.Elements == nil {
					c.Elements = []*Node{}
				}
				normalizeNodes(c.Elements)
			}
		}
	}
}
