/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package domain

import "fmt"

// SaveStatus is the save affordance state exposed to the UI.
type SaveStatus int

const (
	StatusIdle SaveStatus = iota
	StatusSaving
	StatusSaved
	StatusError
	StatusUnsavedChanges
)

func (s SaveStatus) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusSaving:
		return "saving"
	case StatusSaved:
		return "saved"
	case StatusError:
		return "error"
	case StatusUnsavedChanges:
		return "unsaved_changes"
	default:
		return fmt.Sprintf("SaveStatus(%d)", int(s))
	}
}

// InFlight reports whether a save is outstanding.
func (s SaveStatus) InFlight() bool { return s == StatusSaving }

// Navigation is an externally managed menu referenced by navbar nodes.
type Navigation struct {
	ID    string    `json:"id"`
	Name  string    `json:"name"`
	Items []NavItem `json:"items"`
}

// NavItem is one navigation entry.
type NavItem struct {
	Label string `json:"label"`
	URL   string `json:"url"`
	Type  string `json:"type"`
}
