/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package registry holds the component kinds the editor can place: their
// display labels, default configurations and container shapes.
package registry

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"pagecomposer/internal/domain"
	"pagecomposer/internal/tree"
)

//go:embed components.yaml
var builtinYAML []byte

var (
	ErrUnknownType = errors.New("unknown component type")
	ErrUnknownPath = errors.New("path not in component defaults")
)

// Shape is the container shape of a component kind.
type Shape int

const (
	ShapeNone Shape = iota
	ShapeElements
	ShapeColumns
)

func parseShape(s string) (Shape, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return ShapeNone, nil
	case domain.KeyElements:
		return ShapeElements, nil
	case domain.KeyColumns:
		return ShapeColumns, nil
	}
	return ShapeNone, fmt.Errorf("invalid container shape %q", s)
}

// Component describes one kind.
type Component struct {
	Type        string
	Label       string
	Shape       Shape
	ColumnCount int
	Defaults    map[string]any
}

type fileComponent struct {
	Type        string         `yaml:"type"`
	Label       string         `yaml:"label"`
	Container   string         `yaml:"container"`
	ColumnCount int            `yaml:"columnCount"`
	Defaults    map[string]any `yaml:"defaults"`
}

type fileRegistry struct {
	Components []fileComponent `yaml:"components"`
}

// Registry maps type tags to component kinds.
type Registry struct {
	byType map[string]Component
}

// Default returns the built-in registry.
func Default() *Registry {
	r, err := Parse(builtinYAML)
	if err != nil {
		panic(fmt.Sprintf("registry: builtin components: %v", err))
	}
	return r
}

// Load reads a registry definition from YAML.
func Load(rd io.Reader) (*Registry, error) {
	b, err := io.ReadAll(rd)
	if err != nil {
		return nil, fmt.Errorf("read registry: %w", err)
	}
	return Parse(b)
}

// LoadFile reads a registry definition file.
func LoadFile(path string) (*Registry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open registry: %w", err)
	}
	defer func() { _ = f.Close() }()
	return Load(f)
}

// Parse decodes a YAML registry definition.
func Parse(b []byte) (*Registry, error) {
	var fr fileRegistry
	if err := yaml.Unmarshal(b, &fr); err != nil {
		return nil, fmt.Errorf("parse registry: %w", err)
	}
	r := &Registry{byType: make(map[string]Component, len(fr.Components))}
	for _, fc := range fr.Components {
		if strings.TrimSpace(fc.Type) == "" {
			return nil, errors.New("parse registry: component without type")
		}
		shape, err := parseShape(fc.Container)
		if err != nil {
			return nil, fmt.Errorf("component %s: %w", fc.Type, err)
		}
		defaults, err := normalize(fc.Defaults)
		if err != nil {
			return nil, fmt.Errorf("component %s defaults: %w", fc.Type, err)
		}
		for _, k := range []string{domain.KeyElements, domain.KeyColumns, domain.KeyContainerID} {
			if _, reserved := defaults[k]; reserved {
				return nil, fmt.Errorf("component %s: default key %q is reserved", fc.Type, k)
			}
		}
		c := Component{Type: fc.Type, Label: fc.Label, Shape: shape, ColumnCount: fc.ColumnCount, Defaults: defaults}
		if c.Label == "" {
			c.Label = fc.Type
		}
		if c.Shape == ShapeColumns && c.ColumnCount <= 0 {
			c.ColumnCount = 2
		}
		r.byType[c.Type] = c
	}
	return r, nil
}

// normalize converts YAML-decoded values to the shapes JSON decoding
// produces (map[string]any, []any, float64), so defaults and loaded
// documents compare alike.
func normalize(m map[string]any) (map[string]any, error) {
	if m == nil {
		return map[string]any{}, nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Merge overlays other on top of r; entries in other replace same-typed ones.
func (r *Registry) Merge(other *Registry) {
	if other == nil {
		return
	}
	for k, c := range other.byType {
		r.byType[k] = c
	}
}

// Lookup returns the component for a type tag.
func (r *Registry) Lookup(typ string) (Component, bool) {
	c, ok := r.byType[typ]
	return c, ok
}

// Types lists the registered type tags in sorted order.
func (r *Registry) Types() []string {
	out := make([]string, 0, len(r.byType))
	for k := range r.byType {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Label is the display name of a type, or the tag itself when unknown.
func (r *Registry) Label(typ string) string {
	if c, ok := r.byType[typ]; ok {
		return c.Label
	}
	return typ
}

// IsContainerKind reports whether nodes of typ own child nodes.
func (r *Registry) IsContainerKind(typ string) bool {
	return r.ContainerShape(typ) != ShapeNone
}

// ContainerShape returns the container shape of typ.
func (r *Registry) ContainerShape(typ string) Shape {
	return r.byType[typ].Shape
}

// DefaultConfig returns a fresh copy of the defaults for typ with the
// container shape populated (empty lists, unminted ids).
func (r *Registry) DefaultConfig(typ string) (domain.Config, error) {
	c, ok := r.byType[typ]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownType, typ)
	}
	cfg := domain.Config(c.Defaults).Clone()
	n := &domain.Node{Config: cfg}
	switch c.Shape {
	case ShapeElements:
		n.SetElements(nil)
		cfg[domain.KeyContainerID] = ""
	case ShapeColumns:
		cols := make([]*domain.Column, c.ColumnCount)
		for i := range cols {
			cols[i] = &domain.Column{Elements: []*domain.Node{}}
		}
		n.SetColumns(cols)
	}
	return n.Config, nil
}

// DefaultValue returns a copy of the default at path for typ.
func (r *Registry) DefaultValue(typ, path string) (any, bool) {
	c, ok := r.byType[typ]
	if !ok {
		return nil, false
	}
	v, ok := tree.GetAtPath(c.Defaults, path)
	if !ok {
		return nil, false
	}
	return domain.CloneValue(v), true
}

// NewNode builds an unminted node of typ from its defaults.
func (r *Registry) NewNode(typ string) (*domain.Node, error) {
	cfg, err := r.DefaultConfig(typ)
	if err != nil {
		return nil, err
	}
	return &domain.Node{Type: typ, Label: r.Label(typ), Config: cfg}, nil
}

// ValidatePath checks path against the default shape of typ. Object keys
// must exist in the defaults; array segments must be indices. Below an
// empty array or object, or a value the defaults leave open, anything is
// accepted.
func (r *Registry) ValidatePath(typ, path string) error {
	c, ok := r.byType[typ]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownType, typ)
	}
	segs := tree.SplitPath(path)
	if len(segs) == 0 {
		return fmt.Errorf("%w: empty path", ErrUnknownPath)
	}
	var cur any = c.Defaults
	for i, seg := range segs {
		switch t := cur.(type) {
		case map[string]any:
			if len(t) == 0 && i > 0 {
				return nil
			}
			v, ok := t[seg]
			if !ok {
				return fmt.Errorf("%w: %s.%s", ErrUnknownPath, typ, strings.Join(segs[:i+1], "."))
			}
			cur = v
		case []any:
			if _, isIdx := tree.ArrayIndex(seg); !isIdx {
				return fmt.Errorf("%w: %s: %q is not an index", ErrUnknownPath, typ, seg)
			}
			if len(t) == 0 {
				return nil
			}
			cur = t[0]
		default:
			return fmt.Errorf("%w: %s: %s is a scalar", ErrUnknownPath, typ, strings.Join(segs[:i], "."))
		}
	}
	return nil
}
