package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nconklindev/treegrid/internal/config"
	"github.com/nconklindev/treegrid/internal/converter"
	"github.com/nconklindev/treegrid/internal/logging"
	"github.com/nconklindev/treegrid/internal/types"
	"github.com/nconklindev/treegrid/internal/ui"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const usage = `treegrid - convert between nested documents and stacked-header tables

Usage:
  treegrid [options]                                  Launch the interactive picker
  treegrid [options] convert-to-tree <input> [output] Table (csv, tsv, xlsx) to JSON/YAML
  treegrid [options] convert-to-table <input> [output] JSON/YAML to table
  treegrid [options] inspect <input>                  Show column paths and a preview
  treegrid version

Options:
`

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("treegrid", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "Path to configuration file (default treegrid.toml)")
	logLevel := fs.String("log-level", "", "Log level (debug, info, warn, error)")
	showVersion := fs.Bool("version", false, "Show version information")
	fs.BoolVar(showVersion, "v", false, "Show version information (shorthand)")
	fs.Usage = func() {
		fmt.Fprint(stderr, usage)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 1
	}

	rest := fs.Args()
	if *showVersion || (len(rest) > 0 && rest[0] == "version") {
		fmt.Fprintf(stdout, "treegrid %s\ncommit: %s\nbuilt: %s\n", version, commit, date)
		return 0
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	if *logLevel != "" {
		cfg.Log.Level = *logLevel
		if err := cfg.Validate(); err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
	}

	log := logging.New(logging.Config{
		Level:  logging.ParseLevel(cfg.Log.Level),
		Output: stderr,
		Prefix: "treegrid",
	})
	opts, err := converterOptions(cfg, log)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	if len(rest) == 0 {
		opts.Logger = logging.Null()
		p := tea.NewProgram(ui.InitialModel(opts), tea.WithAltScreen(), tea.WithMouseCellMotion())
		if _, err := p.Run(); err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		return 0
	}

	switch rest[0] {
	case "convert-to-tree":
		return cmdConvert(rest[0], rest[1:], opts, converter.ConvertToTree, stdout, stderr)
	case "convert-to-table":
		return cmdConvert(rest[0], rest[1:], opts, converter.ConvertToTable, stdout, stderr)
	case "inspect":
		return cmdInspect(rest[1:], opts, stdout, stderr)
	case "help":
		fs.Usage()
		return 0
	default:
		fmt.Fprintf(stderr, "Error: unknown command %q\n\n", rest[0])
		fs.Usage()
		return 1
	}
}

// converterOptions turns loaded settings into conversion options.
func converterOptions(cfg *config.Config, log *logging.Logger) (converter.Options, error) {
	lo, err := cfg.LayoutOptions()
	if err != nil {
		return converter.Options{}, err
	}

	opts := converter.DefaultOptions()
	opts.Layout = lo
	opts.Logger = log
	opts.Sheet = cfg.Input.Sheet
	opts.Start = cfg.Input.Start
	opts.Encoding = cfg.Input.Encoding
	opts.Indent = cfg.Output.Indent
	opts.NoColor = !cfg.Output.Colors
	return opts, nil
}

type convertFunc func(inputFile, outputFile string, opts converter.Options, progressChan chan<- float64) (*types.ConversionResult, error)

func cmdConvert(name string, args []string, opts converter.Options, convert convertFunc, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.Sheet, "sheet", opts.Sheet, "Worksheet to read or write")
	fs.StringVar(&opts.Start, "start", opts.Start, "Top-left cell of the table, e.g. B2")
	fs.StringVar(&opts.Encoding, "encoding", opts.Encoding, "Text encoding of csv/tsv files")
	fs.IntVar(&opts.Indent, "indent", opts.Indent, "Indent width of JSON/YAML output")
	fs.BoolVar(&opts.Separate, "separate", false, "Write '<' cells instead of merging header cells")
	noColor := fs.Bool("no-color", opts.NoColor, "Do not fill merged header cells")
	noMerge := fs.Bool("no-merge", !opts.Layout.MergeHeaders, "Repeat header segments instead of writing '<'")

	positional, err := parseInterspersed(fs, args)
	if err != nil {
		return 1
	}
	if len(positional) < 1 || len(positional) > 2 {
		fmt.Fprintf(stderr, "Usage: treegrid %s <input> [output] [flags]\n", name)
		fs.PrintDefaults()
		return 1
	}
	opts.NoColor = *noColor
	opts.Layout.MergeHeaders = !*noMerge

	output := ""
	if len(positional) == 2 {
		output = positional[1]
	}

	result, err := convert(positional[0], output, opts, nil)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	fmt.Fprintf(stdout, "%s → %s\n", result.InputFile, result.OutputFile)
	fmt.Fprintf(stdout, "  columns:   %d\n", len(result.ColumnsFound))
	fmt.Fprintf(stdout, "  data rows: %d\n", result.RowsProcessed)
	if result.Warnings > 0 {
		fmt.Fprintf(stdout, "  warnings:  %d\n", result.Warnings)
	}
	return 0
}

func cmdInspect(args []string, opts converter.Options, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("inspect", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.Sheet, "sheet", opts.Sheet, "Worksheet to read")
	fs.StringVar(&opts.Start, "start", opts.Start, "Top-left cell of the table, e.g. B2")
	fs.StringVar(&opts.Encoding, "encoding", opts.Encoding, "Text encoding of csv/tsv files")
	rows := fs.Int("rows", converter.PreviewRows, "Preview rows to show")

	positional, err := parseInterspersed(fs, args)
	if err != nil {
		return 1
	}
	if len(positional) != 1 {
		fmt.Fprintln(stderr, "Usage: treegrid inspect <input> [flags]")
		fs.PrintDefaults()
		return 1
	}

	data, err := converter.Inspect(positional[0], opts)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	kind := "tree"
	if data.Table {
		kind = "table"
	}
	fmt.Fprintf(stdout, "%s (%s): %d header row(s), %d data row(s)\n", positional[0], kind, data.HeaderRows, data.DataRows)
	for _, p := range data.ColumnPaths {
		fmt.Fprintf(stdout, "  %s\n", p)
	}
	if *rows > 0 && len(data.Preview) > 0 {
		fmt.Fprintln(stdout)
		fmt.Fprint(stdout, data.Preview.Preview(*rows, 24))
	}
	return 0
}

// parseInterspersed lets flags follow positional arguments.
func parseInterspersed(fs *flag.FlagSet, args []string) ([]string, error) {
	var positional []string
	for {
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
		args = fs.Args()
		if len(args) == 0 {
			return positional, nil
		}
		positional = append(positional, args[0])
		args = args[1:]
	}
}
