package layout

import (
	"fmt"
	"strings"

	"github.com/nconklindev/treegrid/internal/types"
)

// Tokens is the vocabulary of the tabular encoding: which leading cell
// tokens select which row kind, and the cell syntax markers.
type Tokens struct {
	// Kinds maps an upper-cased leading token to its row kind.
	Kinds map[string]types.RowKind

	// Header and Data are written on rows emitted by the flattener.
	Header string
	Data   string

	Continuation   string
	ArraySuffix    string
	OptionalPrefix string
	Inherit        string
	// KeyPrefix is stripped from header cells when present ("#name").
	KeyPrefix string
	// RootArray names the single top-level array segment that stands for a
	// root-level array document.
	RootArray string

	// MarkerColumn is the grid column holding the continuation marker.
	// Payload cells start in the column after it.
	MarkerColumn int
}

// HeadVocabulary is the HEAD / DATA / DATA_START / DATA_END / NONE token set.
func HeadVocabulary() Tokens {
	t := baseTokens()
	t.Header = "HEAD"
	t.Kinds = map[string]types.RowKind{
		"HEAD":       types.RowHeader,
		"DATA":       types.RowData,
		"DATA_START": types.RowBlockStart,
		"DATA_END":   types.RowBlockEnd,
		"NONE":       types.RowIgnored,
	}
	return t
}

// LayoutVocabulary is the LAYOUT / DATA / START / END token set.
func LayoutVocabulary() Tokens {
	t := baseTokens()
	t.Header = "LAYOUT"
	t.Kinds = map[string]types.RowKind{
		"LAYOUT": types.RowHeader,
		"DATA":   types.RowData,
		"START":  types.RowBlockStart,
		"END":    types.RowBlockEnd,
		"FINISH": types.RowBlockEnd,
		"FIN":    types.RowBlockEnd,
		"NONE":   types.RowIgnored,
		"NOT":    types.RowIgnored,
		"NO":     types.RowIgnored,
	}
	return t
}

// DefaultTokens reads both vocabularies and writes HEAD / DATA.
func DefaultTokens() Tokens {
	t := HeadVocabulary()
	for k, v := range LayoutVocabulary().Kinds {
		t.Kinds[k] = v
	}
	return t
}

// Vocabulary returns a named preset: "head", "layout" or "default".
func Vocabulary(name string) (Tokens, error) {
	switch strings.ToLower(name) {
	case "", "default":
		return DefaultTokens(), nil
	case "head":
		return HeadVocabulary(), nil
	case "layout":
		return LayoutVocabulary(), nil
	default:
		return Tokens{}, fmt.Errorf("unknown vocabulary %q", name)
	}
}

func baseTokens() Tokens {
	return Tokens{
		Data:           "DATA",
		Continuation:   "*",
		ArraySuffix:    "[]",
		OptionalPrefix: "?",
		Inherit:        "<",
		KeyPrefix:      "#",
		RootArray:      "ROOT",
		MarkerColumn:   1,
	}
}

// Kind looks up a leading token.
func (t Tokens) Kind(token string) (types.RowKind, bool) {
	k, ok := t.Kinds[strings.ToUpper(strings.TrimSpace(token))]
	return k, ok
}

// Validate checks that the table can both read and write grids.
func (t Tokens) Validate() error {
	if t.MarkerColumn < 1 {
		return fmt.Errorf("marker column must be at least 1, got %d", t.MarkerColumn)
	}
	for name, s := range map[string]string{
		"continuation": t.Continuation,
		"array suffix": t.ArraySuffix,
		"inherit":      t.Inherit,
	} {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s marker must not be empty", name)
		}
	}
	if k, ok := t.Kind(t.Header); !ok || k != types.RowHeader {
		return fmt.Errorf("header token %q is not mapped to header rows", t.Header)
	}
	if k, ok := t.Kind(t.Data); !ok || k != types.RowData {
		return fmt.Errorf("data token %q is not mapped to data rows", t.Data)
	}
	return nil
}

func (t Tokens) payloadStart() int {
	return t.MarkerColumn + 1
}

// ParseSegment reads one header cell. ok is false for blank cells.
func (t Tokens) ParseSegment(text string) (seg Segment, ok bool) {
	s := strings.TrimSpace(text)
	if t.KeyPrefix != "" {
		s = strings.TrimSpace(strings.TrimPrefix(s, t.KeyPrefix))
	}
	if s == "" {
		return Segment{}, false
	}
	if t.OptionalPrefix != "" && strings.HasPrefix(s, t.OptionalPrefix) {
		seg.IsOptional = true
		s = strings.TrimPrefix(s, t.OptionalPrefix)
	}
	switch {
	case strings.HasSuffix(s, t.ArraySuffix):
		seg.IsArray = true
		s = strings.TrimSuffix(s, t.ArraySuffix)
	case strings.HasPrefix(s, t.ArraySuffix):
		seg.IsArray = true
		s = strings.TrimPrefix(s, t.ArraySuffix)
	}
	seg.Name = strings.TrimSpace(s)
	return seg, true
}

// FormatSegment is the inverse of ParseSegment.
func (t Tokens) FormatSegment(seg Segment) string {
	s := seg.Name
	if seg.IsOptional {
		s = t.OptionalPrefix + s
	}
	if seg.IsArray {
		s += t.ArraySuffix
	}
	return s
}
