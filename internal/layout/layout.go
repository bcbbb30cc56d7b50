// Package layout maps between nested tree documents and the stacked-header
// tabular encoding: header rows spell column key-paths, "[]" marks arrays,
// "?" marks optional fields, "*" continues the previous array element and
// "<" repeats a merged neighbour.
package layout

import (
	"github.com/nconklindev/treegrid/internal/types"
	"github.com/nconklindev/treegrid/internal/value"
)

// Logger receives advisories. *logging.Logger satisfies it.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Warn(string, ...any)  {}

// Options configure both directions of the mapping.
type Options struct {
	Tokens Tokens
	Logger Logger

	// MergeHeaders collapses repeated header segments into the inherit
	// marker when flattening.
	MergeHeaders bool

	// RowOffset and ColOffset shift reported positions when the grid was
	// read from somewhere other than the top-left cell.
	RowOffset int
	ColOffset int

	// Progress, when set, is called after each grid row is consumed.
	Progress func(done, total int)
}

// DefaultOptions reads either vocabulary and merges headers.
func DefaultOptions() Options {
	return Options{Tokens: DefaultTokens(), MergeHeaders: true}
}

func (o Options) logger() Logger {
	if o.Logger == nil {
		return nopLogger{}
	}
	return o.Logger
}

// Stats describes a finished conversion.
type Stats struct {
	HeaderRows int
	DataRows   int
	Columns    []string
	Warnings   int
}

// ToTree runs the whole grid-to-tree pipeline.
func ToTree(grid types.Grid, opts Options) (value.Value, Stats, error) {
	var stats Stats
	if err := opts.Tokens.Validate(); err != nil {
		return value.Value{}, stats, err
	}

	rows, err := Classify(grid, opts.Tokens)
	if err != nil {
		return value.Value{}, stats, shift(err, opts.RowOffset, opts.ColOffset)
	}
	cols, err := ResolveHeaders(rows, opts.Tokens)
	if err != nil {
		return value.Value{}, stats, shift(err, opts.RowOffset, opts.ColOffset)
	}

	b := NewBuilder(cols, opts)
	for i, r := range rows {
		if err := b.Add(r); err != nil {
			return value.Value{}, stats, shift(err, opts.RowOffset, opts.ColOffset)
		}
		if opts.Progress != nil {
			opts.Progress(i+1, len(rows))
		}
	}

	stats.HeaderRows = cols.HeaderRows
	stats.DataRows = b.Rows()
	stats.Columns = cols.Paths(opts.Tokens)
	stats.Warnings = b.Warnings()
	return b.Value(), stats, nil
}

// ToTable flattens a tree and reports what was written.
func ToTable(tree value.Value, opts Options) (types.Grid, Stats, error) {
	var stats Stats
	if err := opts.Tokens.Validate(); err != nil {
		return nil, stats, err
	}

	f, err := newFlattener(tree, opts)
	if err != nil {
		return nil, stats, err
	}
	grid, err := f.grid()
	if err != nil {
		return nil, stats, err
	}

	stats.HeaderRows = f.depth
	stats.DataRows = len(grid) - f.depth
	stats.Columns = f.paths()
	stats.Warnings = f.warnings
	return grid, stats, nil
}
