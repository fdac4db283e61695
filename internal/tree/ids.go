/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package tree

import (
	"strconv"

	"github.com/google/uuid"

	"pagecomposer/internal/domain"
)

// IDGenerator mints document-unique identifiers.
type IDGenerator interface {
	NewID() string
}

type uuidGenerator struct{}

func (uuidGenerator) NewID() string { return uuid.NewString() }

// UUIDs is the default generator backed by random UUIDs.
var UUIDs IDGenerator = uuidGenerator{}

// Sequence is a deterministic generator producing Prefix1, Prefix2, ...
type Sequence struct {
	Prefix string
	n      int
}

func (s *Sequence) NewID() string {
	s.n++
	return s.Prefix + strconv.Itoa(s.n)
}

// Mint prepares a node about to enter the tree: it assigns an id when none
// is set and fresh container markers and column ids for it and any nested
// containers. Existing descendant node ids are kept.
func Mint(n *domain.Node, ids IDGenerator) {
	if n == nil {
		return
	}
	if n.ID == "" {
		n.ID = ids.NewID()
	}
	mintContainer(n, ids, false)
}

// Regenerate assigns fresh ids to the node, every descendant node, every
// container marker and every column in the subtree.
func Regenerate(n *domain.Node, ids IDGenerator) {
	if n == nil {
		return
	}
	n.ID = ids.NewID()
	mintContainer(n, ids, true)
}

func mintContainer(n *domain.Node, ids IDGenerator, deep bool) {
	if els, ok := n.Elements(); ok {
		n.Config[domain.KeyContainerID] = ids.NewID()
		if els == nil {
			n.SetElements(nil)
		}
		for _, c := range els {
			if deep {
				Regenerate(c, ids)
			} else {
				Mint(c, ids)
			}
		}
	}
	if cols, ok := n.Columns(); ok {
		if cols == nil {
			n.SetColumns(nil)
		}
		for _, col := range cols {
			col.ID = ids.NewID()
			if col.Elements == nil {
				col.Elements = []*domain.Node{}
			}
			for _, c := range col.Elements {
				if deep {
					Regenerate(c, ids)
				} else {
					Mint(c, ids)
				}
			}
		}
	}
}
