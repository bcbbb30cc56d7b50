package types

import (
	"strings"

	"github.com/mattn/go-runewidth"
)

// RowKind labels a grid row after classification.
type RowKind int

const (
	RowIgnored RowKind = iota
	RowHeader
	RowData
	RowDataContinuation
	RowBlockStart
	RowBlockEnd
)

func (k RowKind) String() string {
	switch k {
	case RowHeader:
		return "header"
	case RowData:
		return "data"
	case RowDataContinuation:
		return "continuation"
	case RowBlockStart:
		return "block-start"
	case RowBlockEnd:
		return "block-end"
	default:
		return "ignored"
	}
}

// Cell is one payload cell of a classified row.
type Cell struct {
	Text      string
	Inherited bool
}

// Row is a classified grid row. Index is the 0-based position in the source
// grid and Offset the grid column of the first payload cell.
type Row struct {
	Kind      RowKind
	Continued bool
	Index     int
	Offset    int
	Cells     []Cell
}

// Grid is a plain 2-D array of text cells. Rows may be ragged.
type Grid [][]string

// Width returns the length of the longest row.
func (g Grid) Width() int {
	width := 0
	for _, row := range g {
		if len(row) > width {
			width = len(row)
		}
	}
	return width
}

// Cell returns the text at (row, col), or "" when out of range.
func (g Grid) Cell(row, col int) string {
	if row < 0 || row >= len(g) || col < 0 || col >= len(g[row]) {
		return ""
	}
	return g[row][col]
}

// Preview renders up to maxRows rows as width-aligned columns, truncating
// each cell to maxCell display columns. Wide (CJK) characters count double.
func (g Grid) Preview(maxRows, maxCell int) string {
	rows := g
	if maxRows > 0 && len(rows) > maxRows {
		rows = rows[:maxRows]
	}

	width := rows.Width()
	widths := make([]int, width)
	cells := make([][]string, len(rows))
	for i, row := range rows {
		cells[i] = make([]string, width)
		for j := 0; j < width; j++ {
			text := ""
			if j < len(row) {
				text = row[j]
			}
			if maxCell > 0 && runewidth.StringWidth(text) > maxCell {
				text = runewidth.Truncate(text, maxCell, "...")
			}
			cells[i][j] = text
			if w := runewidth.StringWidth(text); w > widths[j] {
				widths[j] = w
			}
		}
	}

	var s strings.Builder
	for _, row := range cells {
		for j, text := range row {
			if j > 0 {
				s.WriteString(" │ ")
			}
			s.WriteString(runewidth.FillRight(text, widths[j]))
		}
		s.WriteString("\n")
	}
	return s.String()
}

type ConversionResult struct {
	InputFile     string
	OutputFile    string
	ColumnsFound  []string
	RowsProcessed int
	Warnings      int
}

// FileData summarises an input file for review before conversion.
type FileData struct {
	Table       bool
	ColumnPaths []string
	HeaderRows  int
	DataRows    int
	Preview     Grid
}
