package converter

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/nconklindev/treegrid/internal/layout"
	"github.com/nconklindev/treegrid/internal/types"
)

// headerFills cycle across merged header groups.
var headerFills = []string{"FFCCCC", "CCFFCC", "CCCCFF", "FFFFCC", "FFCCFF", "CCFFFF"}

func readSheet(path, want string, tok layout.Tokens) (types.Grid, string, []mergeRange, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, "", nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheet, err := pickSheet(f, want, tok)
	if err != nil {
		return nil, "", nil, err
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, "", nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}

	cells, err := f.GetMergeCells(sheet)
	if err != nil {
		return nil, "", nil, fmt.Errorf("failed to read merged cells of %q: %w", sheet, err)
	}
	merges := make([]mergeRange, 0, len(cells))
	for _, mc := range cells {
		left, top, err := excelize.CellNameToCoordinates(mc.GetStartAxis())
		if err != nil {
			return nil, "", nil, err
		}
		right, bottom, err := excelize.CellNameToCoordinates(mc.GetEndAxis())
		if err != nil {
			return nil, "", nil, err
		}
		merges = append(merges, mergeRange{
			top: top - 1, left: left - 1,
			bottom: bottom - 1, right: right - 1,
			value: mc.GetCellValue(),
		})
	}

	return types.Grid(rows), sheet, merges, nil
}

// pickSheet chooses the named sheet, the only sheet, a sheet named after
// the header token, or the active sheet, in that order.
func pickSheet(f *excelize.File, want string, tok layout.Tokens) (string, error) {
	sheets := f.GetSheetList()
	if want != "" {
		for _, s := range sheets {
			if strings.EqualFold(s, want) {
				return s, nil
			}
		}
		return "", fmt.Errorf("%w: %q (have %s)", ErrSheetNotFound, want, strings.Join(sheets, ", "))
	}
	if len(sheets) == 1 {
		return sheets[0], nil
	}
	for _, s := range sheets {
		if kind, ok := tok.Kind(s); ok && kind == types.RowHeader {
			return s, nil
		}
	}
	return f.GetSheetName(f.GetActiveSheetIndex()), nil
}

func writeSheet(path string, grid types.Grid, tok layout.Tokens, opts Options) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := opts.Sheet
	if sheet == "" {
		sheet = tok.Header
	}
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return err
	}

	col, row := 1, 1
	if opts.Start != "" {
		var err error
		if col, row, err = excelize.CellNameToCoordinates(opts.Start); err != nil {
			return fmt.Errorf("start cell %q: %w", opts.Start, err)
		}
	}

	for i, r := range grid {
		cell, err := excelize.CoordinatesToCellName(col, row+i)
		if err != nil {
			return err
		}
		values := make([]any, len(r))
		for j, s := range r {
			values[j] = s
		}
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+1, err)
		}
	}

	if !opts.Separate {
		if err := mergeHeaderCells(f, sheet, grid, tok, col, row, opts.NoColor); err != nil {
			return err
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save %s: %w", path, err)
	}
	return nil
}

// mergeHeaderCells merges each header segment with the inherit markers to
// its right.
func mergeHeaderCells(f *excelize.File, sheet string, grid types.Grid, tok layout.Tokens, col, row int, noColor bool) error {
	fill := 0
	for i, r := range grid {
		if len(r) == 0 {
			continue
		}
		if kind, ok := tok.Kind(r[0]); !ok || kind != types.RowHeader {
			continue
		}

		for j := tok.MarkerColumn + 1; j < len(r); j++ {
			if r[j] == "" || r[j] == tok.Inherit {
				continue
			}
			end := j
			for end+1 < len(r) && r[end+1] == tok.Inherit {
				end++
			}
			if end == j {
				continue
			}

			first, err := excelize.CoordinatesToCellName(col+j, row+i)
			if err != nil {
				return err
			}
			last, err := excelize.CoordinatesToCellName(col+end, row+i)
			if err != nil {
				return err
			}
			if err := f.MergeCell(sheet, first, last); err != nil {
				return fmt.Errorf("failed to merge %s:%s: %w", first, last, err)
			}

			style := &excelize.Style{Alignment: &excelize.Alignment{Horizontal: "center"}}
			if !noColor {
				style.Fill = excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{headerFills[fill%len(headerFills)]}}
				fill++
			}
			id, err := f.NewStyle(style)
			if err != nil {
				return err
			}
			if err := f.SetCellStyle(sheet, first, last, id); err != nil {
				return err
			}
			j = end
		}
	}
	return nil
}
