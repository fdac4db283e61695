/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package export renders read-only views of a document.
package export

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jung-kurt/gofpdf"

	"pagecomposer/internal/domain"
	"pagecomposer/internal/registry"
	"pagecomposer/internal/storage"
)

// OutlineOptions controls the outline PDF.
// Units are points (pt).
type OutlineOptions struct {
	Title    string
	Registry *registry.Registry // labels; defaults to registry.Default()
	Pages    []int              // if empty, export all pages
	// MaxText truncates each node's text summary; 0 means 80 runes.
	MaxText int
}

const (
	outlineMargin   = 48.0
	outlineIndent   = 16.0
	outlineLineH    = 14.0
	outlineFontSize = 10.0
)

// OutlineLine is one row of the outline: a node at a nesting depth, or a
// column header inside a columns container.
type OutlineLine struct {
	Depth int
	Text  string
}

// Outline flattens a page into indented rows in render order.
func Outline(pg domain.Page, reg *registry.Registry, maxText int) []OutlineLine {
	if reg == nil {
		reg = registry.Default()
	}
	if maxText <= 0 {
		maxText = 80
	}
	var out []OutlineLine
	var walk func(nodes []*domain.Node, depth int)
	walk = func(nodes []*domain.Node, depth int) {
		for _, n := range nodes {
			if n == nil {
				continue
			}
			label := n.Label
			if label == "" {
				label = reg.Label(n.Type)
			}
			line := fmt.Sprintf("%d. %s [%s]", n.Order+1, label, n.Type)
			if txt := truncate(storage.NodeText(n.Config), maxText); txt != "" {
				line += ": " + txt
			}
			out = append(out, OutlineLine{Depth: depth, Text: line})
			if els, ok := n.Elements(); ok {
				walk(els, depth+1)
			}
			if cols, ok := n.Columns(); ok {
				for i, c := range cols {
					out = append(out, OutlineLine{Depth: depth + 1, Text: fmt.Sprintf("column %d", i+1)})
					walk(c.Elements, depth+2)
				}
			}
		}
	}
	walk(pg.Elements, 0)
	return out
}

func truncate(s string, max int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-1]) + "…"
}

// OutlinePDF writes one A4 page per document page listing its composition
// tree. A relative outPath is placed under <root>/exports when root is set.
func OutlinePDF(doc domain.Document, root, outPath string, opt OutlineOptions) error {
	if len(doc.Pages) == 0 {
		return fmt.Errorf("document has no pages")
	}
	title := opt.Title
	if title == "" {
		title = "Document outline"
	}
	pdf := gofpdf.New("P", "pt", "A4", "")
	pdf.SetTitle(title, true)
	pdf.SetAuthor("pagecomposer", false)
	pdf.SetAutoPageBreak(true, outlineMargin)
	pdf.SetMargins(outlineMargin, outlineMargin, outlineMargin)
	// Core fonts are cp1252; translate so non-ASCII text does not garble.
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	for _, pidx := range pageIndexes(len(doc.Pages), opt.Pages) {
		if pidx < 0 || pidx >= len(doc.Pages) {
			continue
		}
		pg := doc.Pages[pidx]
		pdf.AddPage()
		pdf.SetFont("Helvetica", "B", 16)
		pdf.CellFormat(0, 24, tr(fmt.Sprintf("%s  /%s", pg.Name, pg.Slug)), "", 1, "L", false, 0, "")
		if pg.SEOTitle != "" || pg.SEODescription != "" {
			pdf.SetFont("Helvetica", "I", outlineFontSize)
			pdf.MultiCell(0, outlineLineH, tr(strings.TrimSpace(pg.SEOTitle+"\n"+pg.SEODescription)), "", "L", false)
		}
		pdf.Ln(6)
		pdf.SetFont("Helvetica", "", outlineFontSize)
		lines := Outline(pg, opt.Registry, opt.MaxText)
		if len(lines) == 0 {
			pdf.CellFormat(0, outlineLineH, "(empty page)", "", 1, "L", false, 0, "")
		}
		for _, ln := range lines {
			pdf.SetX(outlineMargin + float64(ln.Depth)*outlineIndent)
			pdf.MultiCell(0, outlineLineH, tr(ln.Text), "", "L", false)
		}
	}

	if !filepath.IsAbs(outPath) && root != "" {
		outPath = filepath.Join(root, "exports", outPath)
	}
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("ensure out dir: %w", err)
	}
	if err := pdf.OutputFileAndClose(outPath); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

func pageIndexes(total int, specific []int) []int {
	if len(specific) == 0 {
		out := make([]int, total)
		for i := range out {
			out[i] = i
		}
		return out
	}
	return specific
}
