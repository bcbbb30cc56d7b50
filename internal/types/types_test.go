package types

import (
	"strings"
	"testing"

	"github.com/mattn/go-runewidth"
	"github.com/stretchr/testify/assert"
)

func TestGridWidthAndCell(t *testing.T) {
	g := Grid{
		{"HEAD", "", "a"},
		{"DATA"},
		{"DATA", "*", "x", "y"},
	}

	assert.Equal(t, 4, g.Width())
	assert.Equal(t, "y", g.Cell(2, 3))
	assert.Equal(t, "", g.Cell(1, 2))
	assert.Equal(t, "", g.Cell(-1, 0))
	assert.Equal(t, "", g.Cell(5, 0))
}

func TestRowKindString(t *testing.T) {
	tests := []struct {
		kind     RowKind
		expected string
	}{
		{RowHeader, "header"},
		{RowData, "data"},
		{RowDataContinuation, "continuation"},
		{RowBlockStart, "block-start"},
		{RowBlockEnd, "block-end"},
		{RowIgnored, "ignored"},
		{RowKind(42), "ignored"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.kind.String())
		})
	}
}

func TestGridPreview(t *testing.T) {
	g := Grid{
		{"HEAD", "", "colors[]", "<"},
		{"HEAD", "", "name", "code"},
		{"DATA", "", "赤", "#FF0000"},
		{"DATA", "*", "青", "#0000FF"},
	}

	out := g.Preview(3, 0)
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	assert.Len(t, lines, 3)
	// "赤" is two columns wide; every line still pads to the same width.
	assert.Equal(t, runewidth.StringWidth(lines[1]), runewidth.StringWidth(lines[2]))
	assert.Contains(t, lines[2], "赤")
}

func TestGridPreviewTruncates(t *testing.T) {
	g := Grid{{"a-very-long-cell-value"}}

	out := g.Preview(0, 6)
	assert.Equal(t, "a-v...\n", out)
}
