package layout

import (
	"errors"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

var (
	ErrMissingHeader                   = errors.New("no header rows")
	ErrInvalidSegment                  = errors.New("invalid header segment")
	ErrInconsistentColumnDepth         = errors.New("inconsistent column depth")
	ErrDuplicateColumnPath             = errors.New("duplicate column path")
	ErrContinuationWithoutArrayContext = errors.New("continuation without array context")
	ErrUnterminatedBlock               = errors.New("unterminated data block")
	ErrAmbiguousScalarType             = errors.New("ambiguous scalar type")
	ErrUnsupportedTreeShape            = errors.New("unsupported tree shape")
)

// PositionError locates a failure in the grid or in the tree. Row and Col
// are zero-based grid coordinates; either is -1 when unknown.
type PositionError struct {
	Err     error
	Row     int
	Col     int
	Path    string
	Message string
}

func (e *PositionError) Error() string {
	var b strings.Builder
	b.WriteString(e.Err.Error())
	if at := e.Cell(); at != "" {
		b.WriteString(" at ")
		b.WriteString(at)
	}
	if e.Path != "" {
		fmt.Fprintf(&b, " [%s]", e.Path)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	return b.String()
}

func (e *PositionError) Unwrap() error {
	return e.Err
}

// Cell names the grid position in spreadsheet notation ("C5"), or "row 5"
// when only the row is known.
func (e *PositionError) Cell() string {
	switch {
	case e.Row < 0:
		return ""
	case e.Col < 0:
		return fmt.Sprintf("row %d", e.Row+1)
	}
	name, err := excelize.CoordinatesToCellName(e.Col+1, e.Row+1)
	if err != nil {
		return fmt.Sprintf("row %d, column %d", e.Row+1, e.Col+1)
	}
	return name
}

func gridError(err error, row, col int, format string, args ...any) *PositionError {
	return &PositionError{Err: err, Row: row, Col: col, Message: fmt.Sprintf(format, args...)}
}

func treeError(err error, path string, format string, args ...any) *PositionError {
	return &PositionError{Err: err, Row: -1, Col: -1, Path: path, Message: fmt.Sprintf(format, args...)}
}

// shift moves a grid position by the origin the grid was read from.
func shift(err error, rowOffset, colOffset int) error {
	var pe *PositionError
	if rowOffset == 0 && colOffset == 0 || !errors.As(err, &pe) || pe.Row < 0 {
		return err
	}
	moved := *pe
	moved.Row += rowOffset
	if moved.Col >= 0 {
		moved.Col += colOffset
	}
	return &moved
}
