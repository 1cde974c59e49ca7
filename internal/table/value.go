package table

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
)

// Kind tags the variant held by a Value.
type Kind uint8

const (
	KindEmpty Kind = iota
	KindString
	KindNumber
	KindBool
	KindDate
	KindFormula
	KindRichText
	KindHyperlink
	KindError
)

var kindNames = [...]string{"empty", "string", "number", "bool", "date", "formula", "richtext", "hyperlink", "error"}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// Run is one formatted segment of a rich text cell.
type Run struct {
	Text   string
	Bold   bool
	Italic bool
}

// Value is a single cell. The zero Value is KindEmpty, which stands for an
// absent or null cell and is distinct from an empty string.
type Value struct {
	Kind Kind

	// Str holds the string, error text, hyperlink display text or formula
	// expression depending on Kind.
	Str    string
	Num    float64
	Bool   bool
	Time   time.Time
	Runs   []Run
	Target string
	Cached *Value
}

// Date layouts used for canonical text. Workbook dates carry no zone.
const (
	DateLayout     = "2006-01-02"
	DateTimeLayout = "2006-01-02T15:04:05"
)

func Empty() Value               { return Value{} }
func String(s string) Value      { return Value{Kind: KindString, Str: s} }
func Number(f float64) Value     { return Value{Kind: KindNumber, Num: f} }
func Bool(b bool) Value          { return Value{Kind: KindBool, Bool: b} }
func Date(t time.Time) Value     { return Value{Kind: KindDate, Time: t} }
func Error(text string) Value    { return Value{Kind: KindError, Str: text} }
func RichText(runs ...Run) Value { return Value{Kind: KindRichText, Runs: runs} }

// Hyperlink builds a link cell; text may be empty, in which case the target is
// used wherever plain text is needed.
func Hyperlink(text, target string) Value {
	return Value{Kind: KindHyperlink, Str: text, Target: target}
}

// Formula builds a formula cell whose displayed result is cached.
func Formula(expr string, cached Value) Value {
	c := cached
	return Value{Kind: KindFormula, Str: expr, Cached: &c}
}

// Of converts a decoded JSON or Go scalar to a Value.
func Of(v any) Value {
	switch x := v.(type) {
	case nil:
		return Empty()
	case Value:
		return x
	case string:
		return String(x)
	case bool:
		return Bool(x)
	case float64:
		return Number(x)
	case float32:
		return Number(float64(x))
	case int:
		return Number(float64(x))
	case int64:
		return Number(float64(x))
	case int32:
		return Number(float64(x))
	case uint:
		return Number(float64(x))
	case uint64:
		return Number(float64(x))
	case json.Number:
		if f, err := x.Float64(); err == nil {
			return Number(f)
		}
		return String(x.String())
	case time.Time:
		return Date(x)
	default:
		b, err := json.Marshal(x)
		if err != nil {
			return String("")
		}
		return String(string(b))
	}
}

// IsEmpty reports whether the cell is absent or null.
func (v Value) IsEmpty() bool { return v.Kind == KindEmpty }

// Text is the canonical stringification used by comparisons and renderers.
func (v Value) Text() string {
	switch v.Kind {
	case KindEmpty:
		return ""
	case KindString, KindError:
		return v.Str
	case KindNumber:
		return FormatNumber(v.Num)
	case KindBool:
		if v.Bool {
			return "TRUE"
		}
		return "FALSE"
	case KindDate:
		return FormatDate(v.Time)
	case KindFormula:
		if v.Cached == nil {
			return ""
		}
		return v.Cached.Text()
	case KindRichText:
		var b strings.Builder
		for _, r := range v.Runs {
			b.WriteString(r.Text)
		}
		return b.String()
	case KindHyperlink:
		if v.Str != "" {
			return v.Str
		}
		return v.Target
	}
	return ""
}

// Float returns the numeric interpretation of the cell. Numeric strings count,
// blank strings do not.
func (v Value) Float() (float64, bool) {
	switch v.Kind {
	case KindNumber:
		return v.Num, true
	case KindString:
		return ParseNumber(v.Str)
	case KindFormula:
		if v.Cached == nil {
			return 0, false
		}
		return v.Cached.Float()
	}
	return 0, false
}

// Textual reports whether the cell is representable as a string for
// substring matching.
func (v Value) Textual() bool {
	switch v.Kind {
	case KindString, KindRichText, KindHyperlink, KindDate:
		return true
	case KindFormula:
		return v.Cached != nil && v.Cached.Textual()
	}
	return false
}

// Native is the JSON-facing scalar: numbers and booleans keep their type, an
// empty cell becomes "" and everything else its Text.
func (v Value) Native() any {
	switch v.Kind {
	case KindEmpty:
		return ""
	case KindNumber:
		return v.Num
	case KindBool:
		return v.Bool
	case KindFormula:
		if v.Cached == nil {
			return ""
		}
		return v.Cached.Native()
	}
	return v.Text()
}

func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Native())
}

// FormatNumber renders f as the shortest decimal that round-trips.
func FormatNumber(f float64) string {
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return strconv.FormatFloat(f, 'g', -1, 64)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// FormatDate renders t as an ISO-8601 date, with a time part only when set.
func FormatDate(t time.Time) string {
	if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0 {
		return t.Format(DateLayout)
	}
	return t.Format(DateTimeLayout)
}

// ParseNumber parses a trimmed decimal string. Blank input is not a number.
func ParseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
