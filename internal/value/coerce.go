package value

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Boolean cell literals.
const (
	TrueLiteral  = "TRUE"
	FalseLiteral = "FALSE"
)

var (
	intLiteral   = regexp.MustCompile(`^[+-]?(0|[1-9][0-9]*)$`)
	floatLiteral = regexp.MustCompile(`^[+-]?([0-9]+\.?[0-9]*|\.[0-9]+)([eE][+-]?[0-9]+)?$`)
	leadingZero  = regexp.MustCompile(`^[+-]?0[0-9]+(\.[0-9]*)?([eE][+-]?[0-9]+)?$`)
)

// Coerce classifies raw cell text. Blank is Null, TRUE/FALSE are Bool, an
// integer literal without a leading zero is Int, a decimal float literal
// without a leading zero is Float, anything else is Str. Either number may
// carry a sign; a float may omit the digits on one side of its point.
func Coerce(raw string) Value {
	s := strings.TrimSpace(raw)
	switch s {
	case "":
		return Null()
	case TrueLiteral:
		return Bool(true)
	case FalseLiteral:
		return Bool(false)
	}

	if intLiteral.MatchString(s) {
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return Int(i)
		}
	}
	if floatLiteral.MatchString(s) && !leadingZero.MatchString(s) {
		if f, err := strconv.ParseFloat(s, 64); err == nil && !math.IsInf(f, 0) {
			return Float(f)
		}
	}
	return Str(s)
}

// IsAmbiguous reports whether raw looks numeric but carries a leading zero,
// so Coerce keeps it as a string.
func IsAmbiguous(raw string) bool {
	return leadingZero.MatchString(strings.TrimSpace(raw))
}

// FormatScalar renders a scalar as cell text such that Coerce reads it back
// as the same kind, with the exception of strings that themselves look like
// numbers or booleans.
func FormatScalar(v Value) (string, error) {
	switch v.kind {
	case KindNull:
		return "", nil
	case KindBool:
		if v.b {
			return TrueLiteral, nil
		}
		return FalseLiteral, nil
	case KindInt:
		return strconv.FormatInt(v.i, 10), nil
	case KindFloat:
		return formatFloat(v.f)
	case KindString:
		return v.s, nil
	default:
		return "", fmt.Errorf("%s is not a scalar", v.kind)
	}
}

func formatFloat(f float64) (string, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return "", fmt.Errorf("non-finite float %v", f)
	}
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s, nil
}
