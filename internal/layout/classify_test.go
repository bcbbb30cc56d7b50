package layout

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nconklindev/treegrid/internal/types"
)

func kinds(rows []types.Row) []types.RowKind {
	out := make([]types.RowKind, len(rows))
	for i, r := range rows {
		out[i] = r.Kind
	}
	return out
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		grid     types.Grid
		expected []types.RowKind
	}{
		{
			name: "Header then data",
			grid: types.Grid{
				{"HEAD", "", "a"},
				{"DATA", "", "1"},
				{"DATA", "*", "2"},
			},
			expected: []types.RowKind{types.RowHeader, types.RowData, types.RowDataContinuation},
		},
		{
			name: "Tokens are trimmed and case-insensitive",
			grid: types.Grid{
				{" head ", "", "a"},
				{"data", "", "1"},
				{"Layout", "", "b"},
			},
			expected: []types.RowKind{types.RowHeader, types.RowData, types.RowHeader},
		},
		{
			name: "Leading continuation token",
			grid: types.Grid{
				{"HEAD", "", "a"},
				{"DATA", "", "1"},
				{"*", "", "2"},
			},
			expected: []types.RowKind{types.RowHeader, types.RowData, types.RowDataContinuation},
		},
		{
			name: "Unknown tokens are ignored outside blocks",
			grid: types.Grid{
				{"note", "", "x"},
				{"HEAD", "", "a"},
				{"", "", "1"},
				{"NONE", "", "2"},
			},
			expected: []types.RowKind{types.RowIgnored, types.RowHeader, types.RowIgnored, types.RowIgnored},
		},
		{
			name: "Block rows are data",
			grid: types.Grid{
				{"HEAD", "", "a"},
				{"DATA_START"},
				{"", "", "1"},
				{"anything", "*", "2"},
				{"NO", "", "3"},
				{"DATA_END"},
			},
			expected: []types.RowKind{
				types.RowHeader, types.RowBlockStart, types.RowData,
				types.RowDataContinuation, types.RowIgnored, types.RowBlockEnd,
			},
		},
		{
			name: "Data before any header is ignored",
			grid: types.Grid{
				{"DATA", "", "1"},
				{"HEAD", "", "a"},
				{"DATA", "", "2"},
			},
			expected: []types.RowKind{types.RowIgnored, types.RowHeader, types.RowData},
		},
		{
			name: "Blank data rows are dropped",
			grid: types.Grid{
				{"HEAD", "", "a"},
				{"DATA", "", "  "},
				{"DATA"},
			},
			expected: []types.RowKind{types.RowHeader, types.RowIgnored, types.RowIgnored},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows, err := Classify(tt.grid, DefaultTokens())
			require.NoError(t, err)
			assert.Equal(t, tt.expected, kinds(rows))
		})
	}
}

func TestClassifyPayload(t *testing.T) {
	grid := types.Grid{
		{"HEAD", "", "a", "b"},
		{"DATA", "*", "1", " < "},
	}

	rows, err := Classify(grid, DefaultTokens())
	require.NoError(t, err)
	require.Len(t, rows, 2)

	data := rows[1]
	assert.True(t, data.Continued)
	assert.Equal(t, 2, data.Offset)
	assert.Equal(t, 1, data.Index)
	assert.Equal(t, []types.Cell{{Text: "1"}, {Text: " < ", Inherited: true}}, data.Cells)
}

func TestClassifyMarkerColumn(t *testing.T) {
	tok := DefaultTokens()
	tok.MarkerColumn = 2

	grid := types.Grid{
		{"HEAD", "note", "", "a"},
		{"DATA", "x", "*", "1"},
	}

	rows, err := Classify(grid, tok)
	require.NoError(t, err)
	assert.Equal(t, types.RowDataContinuation, rows[1].Kind)
	assert.Equal(t, 3, rows[1].Offset)
	assert.Equal(t, "1", rows[1].Cells[0].Text)
}

func TestClassifyUnterminatedBlock(t *testing.T) {
	tests := []struct {
		name string
		grid types.Grid
		row  int
	}{
		{"Never closed", types.Grid{{"HEAD", "", "a"}, {"START"}, {"", "", "1"}}, 1},
		{"Stray end", types.Grid{{"HEAD", "", "a"}, {"END"}}, 1},
		{"Nested start", types.Grid{{"START"}, {"START"}, {"END"}}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Classify(tt.grid, DefaultTokens())
			require.ErrorIs(t, err, ErrUnterminatedBlock)

			var pe *PositionError
			require.ErrorAs(t, err, &pe)
			assert.Equal(t, tt.row, pe.Row)
		})
	}
}

func TestCountKinds(t *testing.T) {
	rows := []types.Row{{Kind: types.RowHeader}, {Kind: types.RowData}, {Kind: types.RowData}}
	counts := CountKinds(rows)
	assert.Equal(t, 1, counts[types.RowHeader])
	assert.Equal(t, 2, counts[types.RowData])
	assert.Equal(t, 0, counts[types.RowBlockEnd])
}
