package converter

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/japanese"

	"github.com/nconklindev/treegrid/internal/layout"
	"github.com/nconklindev/treegrid/internal/types"
	"github.com/nconklindev/treegrid/internal/value"
)

const colorsCSV = "HEAD,,colors[],<\nHEAD,,name,code\nDATA,,赤,#FF0000\nDATA,*,青,#0000FF\n"

func colorsTree() value.Value {
	return value.Object(
		value.F("colors", value.Array(
			value.Object(value.F("name", value.Str("赤")), value.F("code", value.Str("#FF0000"))),
			value.Object(value.F("name", value.Str("青")), value.F("code", value.Str("#0000FF"))),
		)),
	)
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func assertTreeFile(t *testing.T, expected value.Value, path string) {
	t.Helper()
	got, err := ReadTree(path)
	require.NoError(t, err)
	assert.True(t, value.Equal(expected, got), "want %s\n got %s", expected, got)
}

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		path     string
		expected Format
	}{
		{"a.csv", FormatCSV},
		{"a.TSV", FormatTSV},
		{"a.txt", FormatTSV},
		{"book.xlsx", FormatXLSX},
		{"book.xlsm", FormatXLSX},
		{"doc.json", FormatJSON},
		{"doc.yml", FormatYAML},
		{"doc.yaml", FormatYAML},
		{"doc.xml", FormatUnknown},
		{"noext", FormatUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.expected, DetectFormat(tt.path))
		})
	}

	assert.True(t, FormatXLSX.IsTable())
	assert.False(t, FormatXLSX.IsTree())
	assert.True(t, FormatYAML.IsTree())
}

func TestDefaultOutput(t *testing.T) {
	assert.Equal(t, "dir/colors.json", DefaultOutput("dir/colors.csv"))
	assert.Equal(t, "dir/colors.json", DefaultOutput("dir/colors.xlsx"))
	assert.Equal(t, "dir/colors.xlsx", DefaultOutput("dir/colors.yaml"))
}

func TestConvertToTreeCSV(t *testing.T) {
	input := writeFile(t, "colors.csv", colorsCSV)

	result, err := ConvertToTree(input, "", DefaultOptions(), nil)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(filepath.Dir(input), "colors.json"), result.OutputFile)
	assert.Equal(t, 2, result.RowsProcessed)
	assert.Equal(t, []string{"colors[].name", "colors[].code"}, result.ColumnsFound)
	assertTreeFile(t, colorsTree(), result.OutputFile)
}

func TestConvertToTreeYAML(t *testing.T) {
	input := writeFile(t, "colors.csv", colorsCSV)
	output := filepath.Join(t.TempDir(), "colors.yaml")

	_, err := ConvertToTree(input, output, DefaultOptions(), nil)
	require.NoError(t, err)
	assertTreeFile(t, colorsTree(), output)
}

func TestConvertYAMLThroughTSV(t *testing.T) {
	input := writeFile(t, "servers.yaml", `
mailServers:
  - serverName: mockServer
    auth:
      user: apikey
  - serverName: relay
    auth:
      user: bot
`)
	dir := t.TempDir()
	table := filepath.Join(dir, "servers.tsv")
	back := filepath.Join(dir, "servers.json")

	_, err := ConvertToTable(input, table, DefaultOptions(), nil)
	require.NoError(t, err)
	_, err = ConvertToTree(table, back, DefaultOptions(), nil)
	require.NoError(t, err)

	original, err := ReadTree(input)
	require.NoError(t, err)
	assertTreeFile(t, original, back)
}

func TestConvertToTableXLSXRoundTrip(t *testing.T) {
	input := writeFile(t, "colors.json",
		`{"colors":[{"name":"赤","code":"#FF0000"},{"name":"青","code":"#0000FF"}]}`)
	dir := t.TempDir()
	book := filepath.Join(dir, "colors.xlsx")
	back := filepath.Join(dir, "colors.json")

	result, err := ConvertToTable(input, book, DefaultOptions(), nil)
	require.NoError(t, err)
	assert.Equal(t, 2, result.RowsProcessed)

	f, err := excelize.OpenFile(book)
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, []string{"HEAD"}, f.GetSheetList())
	merges, err := f.GetMergeCells("HEAD")
	require.NoError(t, err)
	require.Len(t, merges, 1)
	assert.Equal(t, "C1", merges[0].GetStartAxis())
	assert.Equal(t, "D1", merges[0].GetEndAxis())

	_, err = ConvertToTree(book, back, DefaultOptions(), nil)
	require.NoError(t, err)
	assertTreeFile(t, colorsTree(), back)
}

func TestConvertToTableSeparate(t *testing.T) {
	input := writeFile(t, "colors.json",
		`{"colors":[{"name":"赤","code":"#FF0000"}]}`)
	book := filepath.Join(t.TempDir(), "colors.xlsx")

	opts := DefaultOptions()
	opts.Separate = true
	opts.Sheet = "Colors"
	_, err := ConvertToTable(input, book, opts, nil)
	require.NoError(t, err)

	f, err := excelize.OpenFile(book)
	require.NoError(t, err)
	defer f.Close()
	merges, err := f.GetMergeCells("Colors")
	require.NoError(t, err)
	assert.Empty(t, merges)

	v, err := f.GetCellValue("Colors", "D1")
	require.NoError(t, err)
	assert.Equal(t, "<", v)
}

func TestReadGridMergedSheet(t *testing.T) {
	f := excelize.NewFile()
	cells := map[string]string{
		"B2": "HEAD", "D2": "colors[]",
		"B3": "HEAD", "D3": "name", "E3": "code",
		"B4": "DATA", "D4": "赤", "E4": "#FF0000",
		"B5": "DATA", "C5": "*", "D5": "青", "E5": "#0000FF",
	}
	for cell, v := range cells {
		require.NoError(t, f.SetCellValue("Sheet1", cell, v))
	}
	require.NoError(t, f.MergeCell("Sheet1", "D2", "E2"))
	path := filepath.Join(t.TempDir(), "colors.xlsx")
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	src, err := ReadGrid(path, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, "Sheet1", src.Sheet)
	assert.Equal(t, 1, src.ColOffset)
	assert.Contains(t, src.Grid, []string{"HEAD", "", "colors[]", "<"})

	output := filepath.Join(t.TempDir(), "colors.json")
	_, err = ConvertToTree(path, output, DefaultOptions(), nil)
	require.NoError(t, err)
	assertTreeFile(t, colorsTree(), output)
}

func TestMergeRangeUnfold(t *testing.T) {
	tok := layout.DefaultTokens()
	grid := types.Grid{
		{"HEAD", "", "a[]", "", ""},
		{"DATA", "", "x", ""},
		{"DATA", "", "y", "stale"},
	}

	mergeRange{top: 0, left: 2, bottom: 0, right: 4, value: "a[]"}.unfold(grid, 0, 0, tok)
	mergeRange{top: 1, left: 2, bottom: 1, right: 4, value: "x"}.unfold(grid, 0, 0, tok)
	mergeRange{top: 1, left: 3, bottom: 2, right: 3, value: ""}.unfold(grid, 0, 0, tok)

	assert.Equal(t, types.Grid{
		{"HEAD", "", "a[]", "<", "<"},
		{"DATA", "", "x", "x", "x"},
		{"DATA", "", "y", ""},
	}, grid)
}

func TestReadGridSheetSelection(t *testing.T) {
	f := excelize.NewFile()
	require.NoError(t, f.SetSheetName("Sheet1", "Notes"))
	_, err := f.NewSheet("LAYOUT")
	require.NoError(t, err)
	require.NoError(t, f.SetSheetRow("LAYOUT", "A1", &[]any{"LAYOUT", "", "id"}))
	require.NoError(t, f.SetSheetRow("LAYOUT", "A2", &[]any{"DATA", "", "7"}))
	path := filepath.Join(t.TempDir(), "book.xlsx")
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	src, err := ReadGrid(path, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, "LAYOUT", src.Sheet)

	opts := DefaultOptions()
	opts.Sheet = "notes"
	src, err = ReadGrid(path, opts)
	require.NoError(t, err)
	assert.Equal(t, "Notes", src.Sheet)

	opts.Sheet = "missing"
	_, err = ReadGrid(path, opts)
	assert.ErrorIs(t, err, ErrSheetNotFound)
}

func TestReadGridStartCell(t *testing.T) {
	input := writeFile(t, "offset.csv", "title row\n,HEAD,,id\n,DATA,,7\n")

	opts := DefaultOptions()
	opts.Start = "B2"
	src, err := ReadGrid(input, opts)
	require.NoError(t, err)
	assert.Equal(t, 1, src.RowOffset)
	assert.Equal(t, 1, src.ColOffset)
	assert.Equal(t, types.Grid{{"HEAD", "", "id"}, {"DATA", "", "7"}}, src.Grid)

	opts.Start = "not a cell"
	_, err = ReadGrid(input, opts)
	assert.Error(t, err)
}

func TestConvertReportsSheetPositions(t *testing.T) {
	input := writeFile(t, "bad.csv", ",HEAD,,colors[]\n,HEAD,,name\n,DATA,*,青\n")

	_, err := ConvertToTree(input, "", DefaultOptions(), nil)
	require.ErrorIs(t, err, layout.ErrContinuationWithoutArrayContext)

	var pe *layout.PositionError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "D3", pe.Cell())
}

func TestDelimitedEncoding(t *testing.T) {
	grid := types.Grid{{"HEAD", "", "名前"}, {"DATA", "", "赤"}}
	path := filepath.Join(t.TempDir(), "sjis.csv")

	require.NoError(t, writeDelimited(path, grid, "Shift_JIS"))
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.False(t, utf8.Valid(raw))

	got, err := readDelimited(path, "sjis")
	require.NoError(t, err)
	assert.Equal(t, grid, got)

	_, err = readDelimited(path, "klingon")
	assert.ErrorIs(t, err, ErrUnsupportedEncoding)
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) {
	return 0, errors.New("disk full")
}

func TestEncodeDelimited(t *testing.T) {
	grid := types.Grid{{"HEAD", "", "id"}, {"DATA", "", "1"}}

	var buf bytes.Buffer
	require.NoError(t, encodeDelimited(&buf, grid, '\t', nil))
	assert.Equal(t, "HEAD\t\tid\nDATA\t\t1\n", buf.String())

	assert.EqualError(t, encodeDelimited(failingWriter{}, grid, ',', nil), "disk full")
	assert.Error(t, encodeDelimited(failingWriter{}, grid, ',', japanese.ShiftJIS))
}

func TestWriteDelimitedErrors(t *testing.T) {
	grid := types.Grid{{"HEAD", "", "id"}}
	dir := t.TempDir()

	err := writeDelimited(filepath.Join(dir, "missing", "out.csv"), grid, "")
	assert.ErrorIs(t, err, os.ErrNotExist)

	err = writeDelimited(filepath.Join(dir, "out.csv"), grid, "klingon")
	assert.ErrorIs(t, err, ErrUnsupportedEncoding)
	assert.NoFileExists(t, filepath.Join(dir, "out.csv"))
}

func TestReadDelimitedStripsBOM(t *testing.T) {
	input := writeFile(t, "bom.csv", "\ufeffHEAD,,id\nDATA,,1\n")

	got, err := readDelimited(input, "")
	require.NoError(t, err)
	assert.Equal(t, "HEAD", got[0][0])
}

func TestConvertErrors(t *testing.T) {
	dir := t.TempDir()
	csvFile := writeFile(t, "colors.csv", colorsCSV)

	_, err := ConvertToTree(filepath.Join(dir, "missing.csv"), "", DefaultOptions(), nil)
	assert.ErrorIs(t, err, ErrSourceNotFound)

	_, err = ConvertToTree(csvFile, filepath.Join(dir, "out.xlsx"), DefaultOptions(), nil)
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	_, err = ConvertToTable(csvFile, "", DefaultOptions(), nil)
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	xml := writeFile(t, "doc.xml", "<a/>")
	_, err = Convert(xml, "", DefaultOptions(), nil)
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestConvertProgress(t *testing.T) {
	input := writeFile(t, "colors.csv", colorsCSV)
	progress := make(chan float64, 100)

	_, err := Convert(input, "", DefaultOptions(), progress)
	require.NoError(t, err)
	close(progress)

	var last float64
	for p := range progress {
		assert.GreaterOrEqual(t, p, last)
		last = p
	}
	assert.Equal(t, 1.0, last)
}

func TestInspect(t *testing.T) {
	table := writeFile(t, "colors.csv", colorsCSV)
	data, err := Inspect(table, DefaultOptions())
	require.NoError(t, err)
	assert.True(t, data.Table)
	assert.Equal(t, 2, data.HeaderRows)
	assert.Equal(t, 2, data.DataRows)
	assert.Equal(t, []string{"colors[].name", "colors[].code"}, data.ColumnPaths)
	assert.Len(t, data.Preview, 4)

	tree := writeFile(t, "colors.json", `{"colors":[{"name":"赤"},{"name":"青"}]}`)
	data, err = Inspect(tree, DefaultOptions())
	require.NoError(t, err)
	assert.False(t, data.Table)
	assert.Equal(t, []string{"colors[].name"}, data.ColumnPaths)
	assert.Equal(t, 2, data.DataRows)
}
