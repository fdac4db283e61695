/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	_ "embed"
	"errors"
	"fmt"
	"strings"

	gojsonschema "github.com/xeipuuv/gojsonschema"

	"pagecomposer/internal/domain"
	"pagecomposer/internal/tree"
)

//go:embed schema/document.schema.json
var documentSchema []byte

// ErrInvalidDocument wraps every validation failure.
var ErrInvalidDocument = errors.New("invalid document")

var schemaLoader = gojsonschema.NewBytesLoader(documentSchema)

// Schema returns the embedded JSON schema of the manifest.
func Schema() []byte { return append([]byte(nil), documentSchema...) }

// Validate checks manifest bytes against the document schema and the tree
// invariants the schema cannot express: identifiers are unique and every
// list's order values match array positions.
func Validate(data []byte) error {
	result, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewBytesLoader(data))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return fmt.Errorf("%w: %s", ErrInvalidDocument, strings.Join(msgs, "; "))
	}
	doc, err := decode(data)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	return CheckInvariants(doc)
}

// CheckInvariants verifies id uniqueness and dense ordering in doc.
func CheckInvariants(doc domain.Document) error {
	seen := map[string]bool{}
	for _, p := range doc.Pages {
		if seen[p.ID] {
			return fmt.Errorf("%w: duplicate page id %q", ErrInvalidDocument, p.ID)
		}
		seen[p.ID] = true
	}
	for _, id := range tree.AllIDs(doc.Pages) {
		if id == "" {
			return fmt.Errorf("%w: empty identifier", ErrInvalidDocument)
		}
		if seen[id] {
			return fmt.Errorf("%w: duplicate id %q", ErrInvalidDocument, id)
		}
		seen[id] = true
	}
	for _, ref := range tree.Lists(doc.Pages) {
		for i, n := range ref.Nodes(doc.Pages) {
			if n == nil {
				return fmt.Errorf("%w: null node in page %d", ErrInvalidDocument, ref.Page)
			}
			if n.Order != i {
				return fmt.Errorf("%w: node %q has order %d at position %d", ErrInvalidDocument, n.ID, n.Order, i)
			}
		}
	}
	return nil
}
