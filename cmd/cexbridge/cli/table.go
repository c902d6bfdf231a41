// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"io"
	"strings"

	"github.com/charmbracelet/x/ansi"
)

// Table aligns rows of cells that may contain ANSI styling. Widths
// are measured in terminal cells with escape sequences ignored, which
// text/tabwriter cannot do for styled text.
type Table struct {
	Indent string
	rows   [][]string
}

// Row appends one row.
func (t *Table) Row(cells ...string) {
	t.rows = append(t.rows, cells)
}

// Write renders the rows to w, separating columns by two spaces. The
// last cell of a row is never padded.
func (t *Table) Write(w io.Writer) error {
	var widths []int
	for _, row := range t.rows {
		for i, cell := range row {
			if i >= len(widths) {
				widths = append(widths, 0)
			}
			widths[i] = max(widths[i], ansi.StringWidth(cell))
		}
	}

	var builder strings.Builder
	for _, row := range t.rows {
		builder.WriteString(t.Indent)
		for i, cell := range row {
			builder.WriteString(cell)
			if i == len(row)-1 {
				break
			}
			builder.WriteString(strings.Repeat(" ", widths[i]-ansi.StringWidth(cell)+2))
		}
		builder.WriteByte('\n')
	}
	_, err := io.WriteString(w, builder.String())
	return err
}
