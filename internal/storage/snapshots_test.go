/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"context"
	"path/filepath"
	"strconv"
	"testing"
	"time"
)

func TestHistorySnapshotsCRUD(t *testing.T) {
	root := t.TempDir()
	dh := &DocumentHandle{Root: root, ManifestPath: filepath.Join(root, ManifestFileName)}
	ctx := context.Background()

	latest, err := GetLatestHistorySnapshot(ctx, dh)
	if err != nil || latest != nil {
		t.Fatalf("empty index: %+v err=%v", latest, err)
	}
	base := time.Now()
	for i := 0; i < 6; i++ {
		doc := sampleDocument()
		doc.Pages[0].Name = "v" + strconv.Itoa(i)
		if err := SaveHistorySnapshot(ctx, dh, "edit "+strconv.Itoa(i), doc, base.Add(time.Duration(i)*time.Millisecond)); err != nil {
			t.Fatalf("SaveHistorySnapshot %d: %v", i, err)
		}
	}
	latest, err = GetLatestHistorySnapshot(ctx, dh)
	if err != nil || latest == nil || latest.Document.Pages[0].Name != "v5" || latest.Label != "edit 5" {
		t.Fatalf("GetLatestHistorySnapshot got %+v err %v", latest, err)
	}
	list, err := ListHistorySnapshots(ctx, dh, 10)
	if err != nil || len(list) != 6 {
		t.Fatalf("ListHistorySnapshots got %d err %v", len(list), err)
	}
	if list[0].Label != "edit 5" || list[5].Label != "edit 0" {
		t.Fatalf("snapshots not newest first: %q .. %q", list[0].Label, list[5].Label)
	}
	n, err := PruneHistorySnapshots(ctx, dh, 3)
	if err != nil || n != 3 {
		t.Fatalf("PruneHistorySnapshots = %d err %v", n, err)
	}
	list, err = ListHistorySnapshots(ctx, dh, 10)
	if err != nil || len(list) != 3 || list[2].Label != "edit 3" {
		t.Fatalf("after prune got %d err %v", len(list), err)
	}
}
