package converter

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/nconklindev/treegrid/internal/layout"
	"github.com/nconklindev/treegrid/internal/logging"
	"github.com/nconklindev/treegrid/internal/types"
	"github.com/nconklindev/treegrid/internal/value"
)

const PreviewRows = 12

var (
	ErrSourceNotFound    = errors.New("source file not found")
	ErrSheetNotFound     = errors.New("sheet not found")
	ErrUnsupportedFormat = errors.New("unsupported file format")
)

// Format is a file kind recognised by extension.
type Format int

const (
	FormatUnknown Format = iota
	FormatCSV
	FormatTSV
	FormatXLSX
	FormatJSON
	FormatYAML
)

// DetectFormat maps a file extension to its format.
func DetectFormat(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return FormatCSV
	case ".tsv", ".txt":
		return FormatTSV
	case ".xlsx", ".xlsm":
		return FormatXLSX
	case ".json":
		return FormatJSON
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatUnknown
	}
}

// IsTable reports whether the format holds a grid.
func (f Format) IsTable() bool {
	return f == FormatCSV || f == FormatTSV || f == FormatXLSX
}

// IsTree reports whether the format holds a tree document.
func (f Format) IsTree() bool {
	return f == FormatJSON || f == FormatYAML
}

// Options carry everything a conversion needs besides the file names.
type Options struct {
	Layout layout.Options
	Logger *logging.Logger

	// Sheet and Start select where the grid lives in a workbook; Start
	// also crops delimited files.
	Sheet string
	Start string
	// Encoding names the text encoding of delimited files.
	Encoding string

	Indent int
	// Separate writes "<" cells instead of merging header cells.
	Separate bool
	NoColor  bool
}

// DefaultOptions mirror the built-in configuration.
func DefaultOptions() Options {
	return Options{Layout: layout.DefaultOptions(), Logger: logging.Null(), Indent: 2}
}

func (o Options) logger() *logging.Logger {
	if o.Logger == nil {
		return logging.Null()
	}
	return o.Logger
}

// DefaultOutput names the output next to the input: a JSON document for
// tables, a workbook for trees.
func DefaultOutput(inputFile string) string {
	base := strings.TrimSuffix(inputFile, filepath.Ext(inputFile))
	if DetectFormat(inputFile).IsTable() {
		return base + ".json"
	}
	return base + ".xlsx"
}

func checkSource(path string) error {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrSourceNotFound, path)
		}
		return err
	}
	return nil
}

// ConvertToTree reads a grid file and writes the tree document it encodes.
func ConvertToTree(inputFile, outputFile string, opts Options, progressChan chan<- float64) (*types.ConversionResult, error) {
	if err := checkSource(inputFile); err != nil {
		return nil, err
	}
	if !DetectFormat(inputFile).IsTable() {
		return nil, fmt.Errorf("%w: %s is not a table", ErrUnsupportedFormat, inputFile)
	}
	if outputFile == "" {
		outputFile = DefaultOutput(inputFile)
	}
	if !DetectFormat(outputFile).IsTree() {
		return nil, fmt.Errorf("%w: %s is not a tree document", ErrUnsupportedFormat, outputFile)
	}

	log := opts.logger().WithComponent("converter")
	log.Debug("reading %s", inputFile)

	src, err := ReadGrid(inputFile, opts)
	if err != nil {
		return nil, err
	}
	reportProgress(progressChan, 0.2)

	lo := opts.Layout
	lo.Logger = opts.logger().WithComponent("layout").WithField("file", filepath.Base(inputFile))
	lo.RowOffset, lo.ColOffset = src.RowOffset, src.ColOffset
	lo.Progress = func(done, total int) {
		reportProgress(progressChan, 0.2+0.7*float64(done)/float64(total))
	}

	tree, stats, err := layout.ToTree(src.Grid, lo)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", inputFile, err)
	}

	if err := WriteTree(outputFile, tree, opts.Indent); err != nil {
		return nil, err
	}
	reportProgress(progressChan, 1)
	log.Info("wrote %s (%d data rows, %d columns)", outputFile, stats.DataRows, len(stats.Columns))

	return &types.ConversionResult{
		InputFile:     inputFile,
		OutputFile:    outputFile,
		ColumnsFound:  stats.Columns,
		RowsProcessed: stats.DataRows,
		Warnings:      stats.Warnings,
	}, nil
}

// ConvertToTable reads a tree document and writes it as a grid file.
func ConvertToTable(inputFile, outputFile string, opts Options, progressChan chan<- float64) (*types.ConversionResult, error) {
	if err := checkSource(inputFile); err != nil {
		return nil, err
	}
	if !DetectFormat(inputFile).IsTree() {
		return nil, fmt.Errorf("%w: %s is not a tree document", ErrUnsupportedFormat, inputFile)
	}
	if outputFile == "" {
		outputFile = DefaultOutput(inputFile)
	}
	if !DetectFormat(outputFile).IsTable() {
		return nil, fmt.Errorf("%w: %s is not a table", ErrUnsupportedFormat, outputFile)
	}

	log := opts.logger().WithComponent("converter")
	log.Debug("reading %s", inputFile)

	tree, err := ReadTree(inputFile)
	if err != nil {
		return nil, err
	}
	reportProgress(progressChan, 0.3)

	lo := opts.Layout
	lo.Logger = opts.logger().WithComponent("layout").WithField("file", filepath.Base(inputFile))
	grid, stats, err := layout.ToTable(tree, lo)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", inputFile, err)
	}
	reportProgress(progressChan, 0.7)

	if err := WriteGrid(outputFile, grid, lo.Tokens, opts); err != nil {
		return nil, err
	}
	reportProgress(progressChan, 1)
	log.Info("wrote %s (%d data rows, %d columns)", outputFile, stats.DataRows, len(stats.Columns))

	return &types.ConversionResult{
		InputFile:     inputFile,
		OutputFile:    outputFile,
		ColumnsFound:  stats.Columns,
		RowsProcessed: stats.DataRows,
		Warnings:      stats.Warnings,
	}, nil
}

// Convert picks the direction from the input file's extension.
func Convert(inputFile, outputFile string, opts Options, progressChan chan<- float64) (*types.ConversionResult, error) {
	format := DetectFormat(inputFile)
	switch {
	case format.IsTable():
		return ConvertToTree(inputFile, outputFile, opts, progressChan)
	case format.IsTree():
		return ConvertToTable(inputFile, outputFile, opts, progressChan)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(inputFile))
	}
}

// Inspect summarises a file before conversion: its column paths, row
// counts and the grid it reads as or flattens to.
func Inspect(filePath string, opts Options) (*types.FileData, error) {
	if err := checkSource(filePath); err != nil {
		return nil, err
	}

	format := DetectFormat(filePath)
	switch {
	case format.IsTable():
		src, err := ReadGrid(filePath, opts)
		if err != nil {
			return nil, err
		}
		tok := opts.Layout.Tokens
		rows, err := layout.Classify(src.Grid, tok)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filePath, err)
		}
		cols, err := layout.ResolveHeaders(rows, tok)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filePath, err)
		}
		counts := layout.CountKinds(rows)
		return &types.FileData{
			Table:       true,
			ColumnPaths: cols.Paths(tok),
			HeaderRows:  counts[types.RowHeader],
			DataRows:    counts[types.RowData] + counts[types.RowDataContinuation],
			Preview:     head(src.Grid, PreviewRows),
		}, nil

	case format.IsTree():
		tree, err := ReadTree(filePath)
		if err != nil {
			return nil, err
		}
		lo := opts.Layout
		lo.Logger = opts.logger().WithComponent("layout")
		grid, stats, err := layout.ToTable(tree, lo)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filePath, err)
		}
		return &types.FileData{
			ColumnPaths: stats.Columns,
			HeaderRows:  stats.HeaderRows,
			DataRows:    stats.DataRows,
			Preview:     head(grid, PreviewRows),
		}, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(filePath))
}

func head(g types.Grid, n int) types.Grid {
	if len(g) > n {
		return g[:n]
	}
	return g
}

// ReadTree parses a JSON or YAML document.
func ReadTree(path string) (value.Value, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return value.Value{}, err
	}

	var v value.Value
	switch DetectFormat(path) {
	case FormatJSON:
		v, err = value.ParseJSON(data)
	case FormatYAML:
		v, err = value.ParseYAML(data)
	default:
		return value.Value{}, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(path))
	}
	if err != nil {
		return value.Value{}, fmt.Errorf("%s: %w", path, err)
	}
	return v, nil
}

// WriteTree encodes a tree by the output file's extension.
func WriteTree(path string, v value.Value, indent int) error {
	var (
		data []byte
		err  error
	)
	switch DetectFormat(path) {
	case FormatJSON:
		data, err = value.MarshalJSON(v, indent)
	case FormatYAML:
		data, err = value.MarshalYAML(v, indent)
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(path))
	}
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// reportProgress sends without blocking; a slow reader just misses updates.
func reportProgress(progressChan chan<- float64, v float64) {
	if progressChan == nil {
		return
	}
	select {
	case progressChan <- v:
	default:
	}
}
