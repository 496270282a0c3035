// Package table renders simple box-drawing tables, used by the dis package
// to print disassembled bytecode in a fixed-width, readable layout.
package table

import (
	"fmt"
	"io"
	"regexp"
	"strings"
)

// Alignment controls how a cell's text is padded to column width.
type Alignment int

const (
	AlignLeft Alignment = iota
	AlignRight
	AlignCenter
)

// Table accumulates a header and rows, then renders them as an ASCII
// box-drawing table. ANSI color codes in cell content are stripped only
// for width calculation, so colored cells still line up.
type Table struct {
	w           io.Writer
	header      []string
	headerAlign []Alignment
	colAlign    []Alignment
	rows        [][]string
}

// NewTable creates a Table that renders to w.
func NewTable(w io.Writer) *Table {
	return &Table{w: w}
}

// WithHeader sets the column headers.
func (t *Table) WithHeader(header []string) *Table {
	t.header = header
	return t
}

// WithColumnAlignment sets per-column alignment for data rows.
func (t *Table) WithColumnAlignment(align []Alignment) *Table {
	t.colAlign = align
	return t
}

// WithHeaderAlignment sets per-column alignment for the header row.
func (t *Table) WithHeaderAlignment(align []Alignment) *Table {
	t.headerAlign = align
	return t
}

// Append adds a single data row.
func (t *Table) Append(row []string) *Table {
	t.rows = append(t.rows, row)
	return t
}

// WithRows appends a batch of data rows.
func (t *Table) WithRows(rows [][]string) *Table {
	t.rows = append(t.rows, rows...)
	return t
}

var ansiPattern = regexp.MustCompile("\x1b\\[[0-9;]*m")

func stripAnsi(s string) string {
	return ansiPattern.ReplaceAllString(s, "")
}

func visibleWidth(s string) int {
	return len([]rune(stripAnsi(s)))
}

func pad(s string, width int, align Alignment) string {
	gap := width - visibleWidth(s)
	if gap <= 0 {
		return s
	}
	switch align {
	case AlignRight:
		return strings.Repeat(" ", gap) + s
	case AlignCenter:
		left := gap / 2
		right := gap - left
		return strings.Repeat(" ", left) + s + strings.Repeat(" ", right)
	default:
		return s + strings.Repeat(" ", gap)
	}
}

func alignFor(aligns []Alignment, col int) Alignment {
	if col < len(aligns) {
		return aligns[col]
	}
	return AlignLeft
}

// Render writes the accumulated header and rows to the underlying writer.
func (t *Table) Render() {
	cols := len(t.header)
	for _, row := range t.rows {
		if len(row) > cols {
			cols = len(row)
		}
	}

	widths := make([]int, cols)
	for i := 0; i < cols; i++ {
		if i < len(t.header) {
			widths[i] = visibleWidth(t.header[i])
		}
	}
	for _, row := range t.rows {
		for i, cell := range row {
			if w := visibleWidth(cell); w > widths[i] {
				widths[i] = w
			}
		}
	}

	var border strings.Builder
	border.WriteByte('+')
	for _, w := range widths {
		border.WriteString(strings.Repeat("-", w+2))
		border.WriteByte('+')
	}
	borderLine := border.String()

	fmt.Fprintln(t.w, borderLine)
	if len(t.header) > 0 {
		var line strings.Builder
		line.WriteByte('|')
		for i := 0; i < cols; i++ {
			var cell string
			if i < len(t.header) {
				cell = t.header[i]
			}
			line.WriteString(" " + pad(cell, widths[i], alignFor(t.headerAlign, i)) + " |")
		}
		fmt.Fprintln(t.w, line.String())
		fmt.Fprintln(t.w, borderLine)
	}

	for _, row := range t.rows {
		var line strings.Builder
		line.WriteByte('|')
		for i := 0; i < cols; i++ {
			var cell string
			if i < len(row) {
				cell = row[i]
			}
			line.WriteString(" " + pad(cell, widths[i], alignFor(t.colAlign, i)) + " |")
		}
		fmt.Fprintln(t.w, line.String())
	}
	fmt.Fprintln(t.w, borderLine)
}
