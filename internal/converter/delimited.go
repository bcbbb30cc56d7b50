package converter

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/nconklindev/treegrid/internal/types"
)

var ErrUnsupportedEncoding = errors.New("unsupported text encoding")

var encodings = map[string]encoding.Encoding{
	"shift_jis":    japanese.ShiftJIS,
	"sjis":         japanese.ShiftJIS,
	"cp932":        japanese.ShiftJIS,
	"euc-jp":       japanese.EUCJP,
	"iso-2022-jp":  japanese.ISO2022JP,
	"iso-8859-1":   charmap.ISO8859_1,
	"latin1":       charmap.ISO8859_1,
	"windows-1252": charmap.Windows1252,
	"cp1252":       charmap.Windows1252,
}

// Encoding resolves an encoding name. Empty and UTF-8 names return nil.
func Encoding(name string) (encoding.Encoding, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	switch key {
	case "", "utf-8", "utf8":
		return nil, nil
	}
	if enc, ok := encodings[key]; ok {
		return enc, nil
	}
	enc, err := htmlindex.Get(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedEncoding, name)
	}
	return enc, nil
}

func separator(path string) rune {
	if DetectFormat(path) == FormatTSV {
		return '\t'
	}
	return ','
}

func readDelimited(path, encodingName string) (types.Grid, error) {
	enc, err := Encoding(encodingName)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var r io.Reader = transform.NewReader(file, unicode.BOMOverride(unicode.UTF8.NewDecoder()))
	if enc != nil {
		r = transform.NewReader(file, enc.NewDecoder())
	}

	reader := csv.NewReader(r)
	reader.Comma = separator(path)
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return types.Grid(records), nil
}

func writeDelimited(path string, grid types.Grid, encodingName string) error {
	enc, err := Encoding(encodingName)
	if err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := encodeDelimited(file, grid, separator(path), enc); err != nil {
		file.Close()
		return fmt.Errorf("%s: %w", path, err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

// encodeDelimited writes grid as comma- or tab-separated records, through
// enc when it is set.
func encodeDelimited(out io.Writer, grid types.Grid, comma rune, enc encoding.Encoding) error {
	var w io.Writer = out
	var tw io.WriteCloser
	if enc != nil {
		tw = transform.NewWriter(out, enc.NewEncoder())
		w = tw
	}

	writer := csv.NewWriter(w)
	writer.Comma = comma
	if err := writer.WriteAll(grid); err != nil {
		return err
	}
	if tw != nil {
		return tw.Close()
	}
	return nil
}
