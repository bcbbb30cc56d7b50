package layout

import (
	"strings"

	"github.com/nconklindev/treegrid/internal/types"
)

// Classify labels every grid row. The result has one entry per grid row in
// order; rows that carry nothing are RowIgnored.
func Classify(grid types.Grid, tok Tokens) ([]types.Row, error) {
	rows := make([]types.Row, 0, len(grid))
	start := tok.payloadStart()

	blockRow := -1
	seenHeader := false

	for i, raw := range grid {
		leading := strings.TrimSpace(grid.Cell(i, 0))
		kind, known := tok.Kind(leading)
		if leading == tok.Continuation {
			kind, known = types.RowDataContinuation, true
		}

		switch {
		case !known:
			kind = types.RowIgnored
			if blockRow >= 0 {
				kind = types.RowData
			}
		case kind == types.RowBlockStart:
			if blockRow >= 0 {
				return nil, gridError(ErrUnterminatedBlock, blockRow, 0,
					"block opened here is still open when another starts on row %d", i+1)
			}
			blockRow = i
		case kind == types.RowBlockEnd:
			if blockRow < 0 {
				return nil, gridError(ErrUnterminatedBlock, i, 0, "%q without an open block", leading)
			}
			blockRow = -1
		case kind == types.RowHeader:
			seenHeader = true
		}

		row := types.Row{Kind: kind, Index: i, Offset: start}

		if kind == types.RowData || kind == types.RowDataContinuation {
			if strings.TrimSpace(grid.Cell(i, tok.MarkerColumn)) == tok.Continuation {
				kind = types.RowDataContinuation
			}
			if !seenHeader {
				kind = types.RowIgnored
			}
			row.Kind = kind
			row.Continued = kind == types.RowDataContinuation
		}

		if row.Kind == types.RowHeader || row.Kind == types.RowData || row.Kind == types.RowDataContinuation {
			row.Cells = payload(raw, start, tok.Inherit)
			if row.Kind != types.RowHeader && blankCells(row.Cells) {
				row = types.Row{Kind: types.RowIgnored, Index: i, Offset: start}
			}
		}

		rows = append(rows, row)
	}

	if blockRow >= 0 {
		return nil, gridError(ErrUnterminatedBlock, blockRow, 0, "block is never closed")
	}
	return rows, nil
}

func payload(raw []string, start int, inherit string) []types.Cell {
	if start >= len(raw) {
		return nil
	}
	cells := make([]types.Cell, len(raw)-start)
	for j, text := range raw[start:] {
		cells[j] = types.Cell{
			Text:      text,
			Inherited: strings.TrimSpace(text) == inherit,
		}
	}
	return cells
}

func blankCells(cells []types.Cell) bool {
	for _, c := range cells {
		if strings.TrimSpace(c.Text) != "" {
			return false
		}
	}
	return true
}

// CountKinds tallies classified rows by kind.
func CountKinds(rows []types.Row) map[types.RowKind]int {
	counts := make(map[types.RowKind]int)
	for _, r := range rows {
		counts[r.Kind]++
	}
	return counts
}
