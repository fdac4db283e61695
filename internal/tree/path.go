/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package tree

import (
	"errors"
	"math"
	"reflect"
	"strconv"
	"strings"

	"pagecomposer/internal/domain"
)

// SplitPath breaks an address such as "items.2.title" or "items[2].title"
// into its segments.
func SplitPath(path string) []string {
	path = strings.NewReplacer("[", ".", "]", "").Replace(path)
	parts := strings.Split(path, ".")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// ArrayIndex reports whether a path segment addresses an array element.
func ArrayIndex(seg string) (int, bool) {
	if seg == "" || seg[0] == '-' || seg[0] == '+' {
		return 0, false
	}
	i, err := strconv.Atoi(seg)
	if err != nil {
		// All digits but out of range still addresses an element.
		if errors.Is(err, strconv.ErrRange) {
			return math.MaxInt, true
		}
		return 0, false
	}
	return i, true
}

// MaxArrayIndex bounds numeric path segments. Writes addressing a larger
// index are refused, since missing elements are padded with nil.
const MaxArrayIndex = 9999

// SetAtPath writes value at path inside cfg, in place, and reports whether it
// did. Missing intermediate containers are created: an array when the
// following segment is numeric, an object otherwise. Typed slices and
// string-keyed maps along the path are converted to []any and
// map[string]any, keeping their contents. A scalar in the way is replaced by
// a fresh container of the needed kind. The first segment always names a
// key of cfg.
//
// SetAtPath never copies; callers edit a cloned node.
func SetAtPath(cfg domain.Config, path string, value any) bool {
	segs := SplitPath(path)
	if cfg == nil || len(segs) == 0 {
		return false
	}
	for _, seg := range segs[1:] {
		if idx, ok := ArrayIndex(seg); ok && idx > MaxArrayIndex {
			return false
		}
	}
	cfg[segs[0]] = setIn(cfg[segs[0]], segs[1:], value)
	return true
}

func setIn(cur any, segs []string, value any) any {
	if len(segs) == 0 {
		return value
	}
	seg := segs[0]
	if idx, ok := ArrayIndex(seg); ok {
		arr, isArr := asSlice(cur)
		if !isArr {
			arr = []any{}
		}
		for len(arr) <= idx {
			arr = append(arr, nil)
		}
		arr[idx] = setIn(arr[idx], segs[1:], value)
		return arr
	}
	m, isMap := asMap(cur)
	if !isMap {
		m = map[string]any{}
	}
	m[seg] = setIn(m[seg], segs[1:], value)
	return m
}

// asSlice returns v as []any. Other slice types are copied element by
// element.
func asSlice(v any) ([]any, bool) {
	if t, ok := v.([]any); ok {
		return t, true
	}
	rv := reflect.ValueOf(v)
	if !rv.IsValid() || rv.Kind() != reflect.Slice {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}

// asMap returns v as map[string]any. Other maps keyed by strings are copied.
func asMap(v any) (map[string]any, bool) {
	switch t := v.(type) {
	case map[string]any:
		return t, true
	case domain.Config:
		return t, true
	}
	rv := reflect.ValueOf(v)
	if !rv.IsValid() || rv.Kind() != reflect.Map || rv.Type().Key().Kind() != reflect.String {
		return nil, false
	}
	out := make(map[string]any, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		out[iter.Key().String()] = iter.Value().Interface()
	}
	return out, true
}

// GetAtPath reads the value at path, reporting whether it exists.
func GetAtPath(cfg domain.Config, path string) (any, bool) {
	segs := SplitPath(path)
	if cfg == nil || len(segs) == 0 {
		return nil, false
	}
	cur, ok := cfg[segs[0]]
	if !ok {
		return nil, false
	}
	for _, seg := range segs[1:] {
		if idx, isIdx := ArrayIndex(seg); isIdx {
			arr, isArr := asSlice(cur)
			if !isArr || idx >= len(arr) {
				return nil, false
			}
			cur = arr[idx]
			continue
		}
		m, isMap := asMap(cur)
		if !isMap {
			return nil, false
		}
		if cur, ok = m[seg]; !ok {
			return nil, false
		}
	}
	return cur, true
}
