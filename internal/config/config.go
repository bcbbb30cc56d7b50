// Package config loads treegrid settings from a TOML file and TREEGRID_*
// environment variables.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/xuri/excelize/v2"

	"github.com/nconklindev/treegrid/internal/layout"
	"github.com/nconklindev/treegrid/internal/types"
)

// DefaultFile is looked up in the working directory when no path is given.
const DefaultFile = "treegrid.toml"

// Config is the full settings tree.
type Config struct {
	Tokens  TokenSettings  `toml:"tokens"`
	Markers MarkerSettings `toml:"markers"`
	Input   InputSettings  `toml:"input"`
	Output  OutputSettings `toml:"output"`
	Log     LogSettings    `toml:"log"`
}

// TokenSettings choose a vocabulary preset and extend it.
type TokenSettings struct {
	Vocabulary string   `toml:"vocabulary"`
	Header     []string `toml:"header"`
	Data       []string `toml:"data"`
	BlockStart []string `toml:"block_start"`
	BlockEnd   []string `toml:"block_end"`
	Ignore     []string `toml:"ignore"`
	EmitHeader string   `toml:"emit_header"`
	EmitData   string   `toml:"emit_data"`
}

type MarkerSettings struct {
	Continuation string `toml:"continuation"`
	Array        string `toml:"array"`
	Optional     string `toml:"optional"`
	Inherit      string `toml:"inherit"`
	KeyPrefix    string `toml:"key_prefix"`
	RootArray    string `toml:"root_array"`
	Column       int    `toml:"column"`
}

type InputSettings struct {
	Encoding string `toml:"encoding"`
	Sheet    string `toml:"sheet"`
	Start    string `toml:"start"`
}

type OutputSettings struct {
	Indent       int  `toml:"indent"`
	MergeHeaders bool `toml:"merge_headers"`
	Colors       bool `toml:"colors"`
}

type LogSettings struct {
	Level string `toml:"level"`
}

// Default returns the built-in settings.
func Default() *Config {
	tok := layout.DefaultTokens()
	return &Config{
		Tokens: TokenSettings{Vocabulary: "default"},
		Markers: MarkerSettings{
			Continuation: tok.Continuation,
			Array:        tok.ArraySuffix,
			Optional:     tok.OptionalPrefix,
			Inherit:      tok.Inherit,
			KeyPrefix:    tok.KeyPrefix,
			RootArray:    tok.RootArray,
			Column:       tok.MarkerColumn,
		},
		Output: OutputSettings{Indent: 2, MergeHeaders: true, Colors: true},
		Log:    LogSettings{Level: "info"},
	}
}

// Load reads path over the defaults and applies environment overrides.
// An empty path falls back to $TREEGRID_CONFIG, then to DefaultFile if it
// exists.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		if env, ok := os.LookupEnv(envPrefix + "CONFIG"); ok && env != "" {
			path, explicit = env, true
		} else {
			path = DefaultFile
		}
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := cfg.decode(path, data); err != nil {
			return nil, err
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
	case errors.Is(err, os.ErrNotExist):
		return nil, fmt.Errorf("%w: %s", ErrFileNotFound, path)
	default:
		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	}

	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromReader decodes TOML from r over the defaults.
func LoadFromReader(r io.Reader) (*Config, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	cfg := Default()
	if err := cfg.decode("<reader>", data); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) decode(source string, data []byte) error {
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(c); err != nil {
		pe := &ParseError{Path: source, Message: err.Error(), Err: err}
		var derr *toml.DecodeError
		if errors.As(err, &derr) {
			pe.Line, pe.Column = derr.Position()
		}
		var serr *toml.StrictMissingError
		if errors.As(err, &serr) && len(serr.Errors) > 0 {
			pe.Line, pe.Column = serr.Errors[0].Position()
			pe.Message = "unknown setting " + strings.Join(serr.Errors[0].Key(), ".")
		}
		return pe
	}
	return nil
}

const envPrefix = "TREEGRID_"

// ApplyEnv overrides settings from TREEGRID_* variables.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	str := map[string]*string{
		"LOG_LEVEL":    &c.Log.Level,
		"ENCODING":     &c.Input.Encoding,
		"SHEET":        &c.Input.Sheet,
		"START":        &c.Input.Start,
		"VOCABULARY":   &c.Tokens.Vocabulary,
		"CONTINUATION": &c.Markers.Continuation,
	}
	for name, dst := range str {
		if v, ok := lookup(envPrefix + name); ok {
			*dst = v
		}
	}

	if v, ok := lookup(envPrefix + "INDENT"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return &ValidationError{Path: envPrefix + "INDENT", Message: "must be an integer", Value: v}
		}
		c.Output.Indent = n
	}
	for name, dst := range map[string]*bool{
		"MERGE_HEADERS": &c.Output.MergeHeaders,
		"COLORS":        &c.Output.Colors,
	} {
		v, ok := lookup(envPrefix + name)
		if !ok {
			continue
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return &ValidationError{Path: envPrefix + name, Message: "must be a boolean", Value: v}
		}
		*dst = b
	}
	if _, ok := lookup("NO_COLOR"); ok {
		c.Output.Colors = false
	}
	return nil
}

// Validate checks every setting that can be checked without opening files.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return &ValidationError{Path: "log.level", Message: "must be debug, info, warn or error", Value: c.Log.Level}
	}
	if c.Output.Indent < 0 || c.Output.Indent > 8 {
		return &ValidationError{Path: "output.indent", Message: "must be between 0 and 8", Value: c.Output.Indent}
	}
	if c.Input.Start != "" {
		if _, _, err := excelize.CellNameToCoordinates(c.Input.Start); err != nil {
			return &ValidationError{Path: "input.start", Message: "must be a cell name such as A1", Value: c.Input.Start}
		}
	}
	if _, err := c.LayoutTokens(); err != nil {
		return err
	}
	return nil
}

// LayoutTokens builds the token table.
func (c *Config) LayoutTokens() (layout.Tokens, error) {
	tok, err := layout.Vocabulary(c.Tokens.Vocabulary)
	if err != nil {
		return tok, &ValidationError{Path: "tokens.vocabulary", Message: "must be default, head or layout", Value: c.Tokens.Vocabulary}
	}

	extra := []struct {
		names []string
		kind  types.RowKind
	}{
		{c.Tokens.Header, types.RowHeader},
		{c.Tokens.Data, types.RowData},
		{c.Tokens.BlockStart, types.RowBlockStart},
		{c.Tokens.BlockEnd, types.RowBlockEnd},
		{c.Tokens.Ignore, types.RowIgnored},
	}
	for _, e := range extra {
		for _, name := range e.names {
			tok.Kinds[strings.ToUpper(strings.TrimSpace(name))] = e.kind
		}
	}
	if c.Tokens.EmitHeader != "" {
		tok.Header = c.Tokens.EmitHeader
	}
	if c.Tokens.EmitData != "" {
		tok.Data = c.Tokens.EmitData
	}

	m := c.Markers
	tok.Continuation = m.Continuation
	tok.ArraySuffix = m.Array
	tok.OptionalPrefix = m.Optional
	tok.Inherit = m.Inherit
	tok.KeyPrefix = m.KeyPrefix
	tok.RootArray = m.RootArray
	tok.MarkerColumn = m.Column

	if err := tok.Validate(); err != nil {
		return tok, &ValidationError{Path: "tokens", Message: err.Error(), Value: c.Tokens.Vocabulary}
	}
	return tok, nil
}

// LayoutOptions builds the options for both conversion directions.
func (c *Config) LayoutOptions() (layout.Options, error) {
	tok, err := c.LayoutTokens()
	if err != nil {
		return layout.Options{}, err
	}
	return layout.Options{Tokens: tok, MergeHeaders: c.Output.MergeHeaders}, nil
}
