/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"pagecomposer/internal/domain"
	"pagecomposer/internal/editor"
	"pagecomposer/internal/export"
	"pagecomposer/internal/storage"
)

func documentCommands(a *app) []*cobra.Command {
	initCmd := &cobra.Command{
		Use:   "init <document> [page-name]",
		Short: "Create a new document with one page",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]
			if _, err := os.Stat(filepath.Join(a.store.Root(id), storage.ManifestFileName)); err == nil {
				return fmt.Errorf("document %s already exists", id)
			}
			sess := editor.New(domain.Document{}, editor.Options{Registry: a.reg, Store: a.store, DocumentID: id})
			if len(args) == 2 {
				doc := sess.Document()
				sess.RenamePage(doc.Pages[0].ID, args[1], editor.Slugify(args[1]))
			}
			if err := sess.Save(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Created document at", a.store.Root(id))
			return nil
		},
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List stored documents",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := a.store.List()
			if err != nil {
				return err
			}
			for _, id := range ids {
				fmt.Fprintln(cmd.OutOrStdout(), id)
			}
			return nil
		},
	}

	var showJSON bool
	showCmd := &cobra.Command{
		Use:   "show <document>",
		Short: "Print the pages and component tree of a document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.open(cmd.Context(), args[0]); err != nil {
				return err
			}
			doc := a.sess.Document()
			if showJSON {
				b, err := storage.Marshal(doc)
				if err != nil {
					return err
				}
				_, err = cmd.OutOrStdout().Write(b)
				return err
			}
			printDocument(cmd.OutOrStdout(), a, doc)
			return nil
		},
	}
	showCmd.Flags().BoolVar(&showJSON, "json", false, "print the raw manifest")

	validateCmd := &cobra.Command{
		Use:   "validate <document>",
		Short: "Check a manifest against the document schema and tree invariants",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := filepath.Join(a.store.Root(args[0]), storage.ManifestFileName)
			b, err := os.ReadFile(path)
			if err != nil {
				return err
			}
			if err := storage.Validate(b); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "OK", path)
			return nil
		},
	}

	var outlineTitle string
	outlineCmd := &cobra.Command{
		Use:   "outline <document> [out.pdf]",
		Short: "Export the component tree as a PDF outline",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.open(cmd.Context(), args[0]); err != nil {
				return err
			}
			out := args[0] + "-outline.pdf"
			if len(args) == 2 {
				out = args[1]
			}
			title := outlineTitle
			if title == "" {
				title = args[0]
			}
			if err := export.OutlinePDF(a.sess.Document(), a.dh.Root, out, export.OutlineOptions{Title: title, Registry: a.reg}); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Wrote outline", out)
			return nil
		},
	}
	outlineCmd.Flags().StringVar(&outlineTitle, "title", "", "PDF title")

	var histLimit int
	var histRestore int
	historyCmd := &cobra.Command{
		Use:   "history <document>",
		Short: "List persisted save snapshots, optionally restoring one",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.open(cmd.Context(), args[0]); err != nil {
				return err
			}
			snaps, err := storage.ListHistorySnapshots(cmd.Context(), a.dh, histLimit)
			if err != nil {
				return err
			}
			if histRestore > 0 {
				if histRestore > len(snaps) {
					return fmt.Errorf("snapshot %d not found (%d listed)", histRestore, len(snaps))
				}
				return restoreSnapshot(cmd, a, args[0], snaps[histRestore-1])
			}
			for i, s := range snaps {
				fmt.Fprintf(cmd.OutOrStdout(), "%3d  %s  %-12s %d pages\n", i+1, s.TS.Local().Format(time.DateTime), s.Label, len(s.Document.Pages))
			}
			return nil
		},
	}
	historyCmd.Flags().IntVar(&histLimit, "limit", 20, "maximum snapshots to list")
	historyCmd.Flags().IntVar(&histRestore, "restore", 0, "restore the n-th listed snapshot (1 = newest)")

	var findType string
	var findLimit int
	findCmd := &cobra.Command{
		Use:   "find <document> [text]",
		Short: "Search the node catalog by type and text",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.open(cmd.Context(), args[0]); err != nil {
				return err
			}
			rebuilt, err := storage.DetectAndRebuildIndex(cmd.Context(), a.dh.Root, a.dh.Document)
			if err != nil {
				return err
			}
			if rebuilt {
				a.log.Info("node catalog rebuilt", "document", args[0])
			}
			var text string
			if len(args) == 2 {
				text = args[1]
			}
			found, err := storage.FindNodes(cmd.Context(), a.dh.Root, findType, text, findLimit)
			if err != nil {
				return err
			}
			for _, n := range found {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\tpage=%s parent=%s pos=%d\t%s\n", n.NodeID, n.Type, n.PageID, n.ParentID, n.Position, n.Text)
			}
			return nil
		},
	}
	findCmd.Flags().StringVar(&findType, "type", "", "component type filter")
	findCmd.Flags().IntVar(&findLimit, "limit", 50, "maximum results")

	return []*cobra.Command{initCmd, listCmd, showCmd, validateCmd, outlineCmd, historyCmd, findCmd}
}

func restoreSnapshot(cmd *cobra.Command, a *app, id string, snap storage.HistorySnapshot) error {
	a.sess = editor.New(snap.Document, editor.Options{Registry: a.reg, Store: a.store, DocumentID: id})
	if err := a.sess.Save(cmd.Context()); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Restored snapshot from %s\n", snap.TS.Local().Format(time.DateTime))
	return nil
}

func printDocument(w io.Writer, a *app, doc domain.Document) {
	for i, pg := range doc.Pages {
		fmt.Fprintf(w, "[%d] %s /%s (%s)\n", i, pg.Name, pg.Slug, pg.ID)
		for _, ln := range export.Outline(pg, a.reg, 60) {
			fmt.Fprintf(w, "%s%s\n", strings.Repeat("  ", ln.Depth+1), ln.Text)
		}
	}
	if len(doc.GlobalSettings) > 0 {
		b, _ := json.MarshalIndent(doc.GlobalSettings, "", "  ")
		fmt.Fprintf(w, "globalSettings: %s\n", b)
	}
}

// parseValue reads a CLI value as JSON, falling back to a plain string.
func parseValue(s string) any {
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return s
	}
	return v
}

var errNoChange = errors.New("nothing changed")
