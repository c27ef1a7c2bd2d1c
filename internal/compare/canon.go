// Package compare aligns actual and expected row-sets and compares them
// field-by-field under type-aware equivalence: absolute tolerance for
// numerics, canonical string form for dates, normalized null-like sentinels,
// exact equality for everything else.
package compare

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// numericText matches strings that carry a decimal value - the form
// fixed-point columns arrive in from drivers that return NUMERIC as text.
var numericText = regexp.MustCompile(`^[+-]?[0-9]+(\.[0-9]+)?([eE][+-]?[0-9]+)?$`)

// canonKind tags a canonicalized scalar.
type canonKind int

const (
	kindAbsent canonKind = iota
	kindNumber
	kindBool
	kindText
)

// canonValue is a scalar reduced to its comparison form.
type canonValue struct {
	kind canonKind
	num  float64
	b    bool
	text string
}

// canonicalize reduces a driver value to its comparison form:
//   - nil and the null-like sentinels ("", "N/A", "NULL") become Absent
//   - integers, floats, and decimal-looking strings become numbers
//   - timestamps become their canonical date or RFC 3339 string
//   - booleans stay booleans, everything else is text
func canonicalize(v any) canonValue {
	switch val := v.(type) {
	case nil:
		return canonValue{kind: kindAbsent}
	case bool:
		return canonValue{kind: kindBool, b: val}
	case int:
		return canonValue{kind: kindNumber, num: float64(val)}
	case int32:
		return canonValue{kind: kindNumber, num: float64(val)}
	case int64:
		return canonValue{kind: kindNumber, num: float64(val)}
	case float32:
		return canonValue{kind: kindNumber, num: float64(val)}
	case float64:
		return canonValue{kind: kindNumber, num: val}
	case time.Time:
		return canonValue{kind: kindText, text: canonicalTime(val)}
	case []byte:
		return canonicalizeText(string(val))
	case string:
		return canonicalizeText(val)
	default:
		// Unknown driver types go through the same text canonicalization so
		// a valueless Stringer still normalizes to Absent.
		return canonicalizeText(toString(val))
	}
}

func canonicalizeText(s string) canonValue {
	trimmed := strings.TrimSpace(s)
	switch strings.ToUpper(trimmed) {
	case "", "N/A", "NULL":
		return canonValue{kind: kindAbsent}
	}
	if numericText.MatchString(trimmed) {
		if n, err := strconv.ParseFloat(trimmed, 64); err == nil {
			return canonValue{kind: kindNumber, num: n}
		}
	}
	return canonValue{kind: kindText, text: trimmed}
}

// canonicalTime renders a timestamp in canonical string form: a bare date
// when the clock is exactly midnight, RFC 3339 otherwise.
func canonicalTime(t time.Time) string {
	if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0 {
		return t.Format("2006-01-02")
	}
	return t.Format(time.RFC3339)
}

func toString(v any) string {
	if s, ok := v.(interface{ String() string }); ok {
		return s.String()
	}
	return ""
}

// equal compares two canonical values; numbers within the absolute
// tolerance are equal, everything else must match exactly.
func (a canonValue) equal(b canonValue, tolerance float64) bool {
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case kindAbsent:
		return true
	case kindNumber:
		return math.Abs(a.num-b.num) <= tolerance
	case kindBool:
		return a.b == b.b
	default:
		return a.text == b.text
	}
}

// compareOrder orders two canonical values for sortedness verification.
func (a canonValue) compareOrder(b canonValue) int {
	if a.kind == kindNumber && b.kind == kindNumber {
		switch {
		case a.num < b.num:
			return -1
		case a.num > b.num:
			return 1
		}
		return 0
	}
	return strings.Compare(a.render(), b.render())
}

// render produces the canonical string used for set-mode tuples and for
// diagnostics.
func (a canonValue) render() string {
	switch a.kind {
	case kindAbsent:
		return "<absent>"
	case kindNumber:
		return strconv.FormatFloat(a.num, 'g', -1, 64)
	case kindBool:
		return strconv.FormatBool(a.b)
	default:
		return a.text
	}
}
