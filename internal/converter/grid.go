package converter

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/nconklindev/treegrid/internal/layout"
	"github.com/nconklindev/treegrid/internal/types"
)

// RowDetectionLimit bounds the search for the first header token when no
// start cell is given.
const RowDetectionLimit = 20

// GridSource is a grid read from a file and where in the file it starts.
type GridSource struct {
	Grid      types.Grid
	Sheet     string
	RowOffset int
	ColOffset int
}

// ReadGrid loads a delimited file or a worksheet as a grid of text cells.
// Merged worksheet cells are unfolded: a horizontal merge in a header row
// becomes inherit markers, one in a data row repeats its value, and cells
// below the top of a vertical merge stay blank.
func ReadGrid(path string, opts Options) (*GridSource, error) {
	tok := opts.Layout.Tokens

	var (
		src    = &GridSource{}
		merges []mergeRange
		err    error
	)
	switch DetectFormat(path) {
	case FormatCSV, FormatTSV:
		src.Grid, err = readDelimited(path, opts.Encoding)
	case FormatXLSX:
		src.Grid, src.Sheet, merges, err = readSheet(path, opts.Sheet, tok)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(path))
	}
	if err != nil {
		return nil, err
	}

	if opts.Start != "" {
		col, row, err := excelize.CellNameToCoordinates(opts.Start)
		if err != nil {
			return nil, fmt.Errorf("start cell %q: %w", opts.Start, err)
		}
		src.RowOffset, src.ColOffset = row-1, col-1
	} else {
		src.ColOffset = findHeaderColumn(src.Grid, tok)
	}

	src.Grid = crop(src.Grid, src.RowOffset, src.ColOffset)
	for _, m := range merges {
		m.unfold(src.Grid, src.RowOffset, src.ColOffset, tok)
	}
	return src, nil
}

// WriteGrid saves a grid by the output file's extension.
func WriteGrid(path string, grid types.Grid, tok layout.Tokens, opts Options) error {
	switch DetectFormat(path) {
	case FormatCSV, FormatTSV:
		return writeDelimited(path, grid, opts.Encoding)
	case FormatXLSX:
		return writeSheet(path, grid, tok, opts)
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(path))
	}
}

// findHeaderColumn locates the column holding row tokens: the column of
// the first header token within the first rows, or 0.
func findHeaderColumn(rows types.Grid, tok layout.Tokens) int {
	searchLimit := len(rows)
	if searchLimit > RowDetectionLimit {
		searchLimit = RowDetectionLimit
	}

	for i := 0; i < searchLimit; i++ {
		for j, cell := range rows[i] {
			if kind, ok := tok.Kind(cell); ok && kind == types.RowHeader {
				return j
			}
		}
	}
	return 0
}

func crop(g types.Grid, rowOffset, colOffset int) types.Grid {
	if rowOffset == 0 && colOffset == 0 {
		return g
	}
	if rowOffset >= len(g) {
		return types.Grid{}
	}

	out := make(types.Grid, 0, len(g)-rowOffset)
	for _, row := range g[rowOffset:] {
		if colOffset >= len(row) {
			out = append(out, []string{})
			continue
		}
		out = append(out, row[colOffset:])
	}
	return out
}

// mergeRange is a merged worksheet area in zero-based sheet coordinates.
type mergeRange struct {
	top, left, bottom, right int
	value                    string
}

func (m mergeRange) unfold(g types.Grid, rowOffset, colOffset int, tok layout.Tokens) {
	top, left := m.top-rowOffset, m.left-colOffset
	bottom, right := m.bottom-rowOffset, m.right-colOffset
	if top < 0 || top >= len(g) {
		return
	}

	header := false
	if kind, ok := tok.Kind(g.Cell(top, 0)); ok && kind == types.RowHeader {
		header = true
	}

	for r := top; r <= bottom && r < len(g); r++ {
		for c := left; c <= right; c++ {
			if c < 0 || (r == top && c == left) {
				continue
			}
			switch {
			case r > top:
				setCell(g, r, c, "")
			case header:
				setCell(g, r, c, tok.Inherit)
			default:
				setCell(g, r, c, m.value)
			}
		}
	}
}

func setCell(g types.Grid, r, c int, text string) {
	if c >= len(g[r]) {
		if strings.TrimSpace(text) == "" {
			return
		}
		row := make([]string, c+1)
		copy(row, g[r])
		g[r] = row
	}
	g[r][c] = text
}
