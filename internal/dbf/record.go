package dbf

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Record is one decoded table row keyed by upper-case field name.
//
// Value types by field type:
//   - C             : string, trailing blanks removed
//   - N, F, I, Y, B : decimal.Decimal, or nil when blank
//   - D, T          : time.Time, nil when blank, raw string when not a date
//   - L             : bool, nil when unknown
type Record map[string]any

// Value returns the raw decoded value of a field, nil when absent.
func (r Record) Value(name string) any {
	return r[strings.ToUpper(name)]
}

// Has reports whether the field is present and non-nil.
func (r Record) Has(name string) bool {
	return r.Value(name) != nil
}

// String renders a field as text. Absent and nil fields yield "".
func (r Record) String(name string) string {
	return Stringify(r.Value(name))
}

// Float returns a field as a number. Absent, nil and blank values yield 0;
// text that is not a number is an error.
func (r Record) Float(name string) (float64, error) {
	switch v := r.Value(name).(type) {
	case nil:
		return 0, nil
	case decimal.Decimal:
		return v.InexactFloat64(), nil
	case float64:
		return v, nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return 0, nil
		}
		f, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", "."), 64)
		if err != nil {
			return 0, fmt.Errorf("%q is not a number", v)
		}
		return f, nil
	case bool:
		return 0, fmt.Errorf("logical value is not a number")
	default:
		return 0, fmt.Errorf("unsupported value type %T", v)
	}
}

// Stringify renders any decoded field value as text.
func Stringify(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case decimal.Decimal:
		return x.String()
	case time.Time:
		return x.Format("2006-01-02")
	case bool:
		if x {
			return "T"
		}
		return "F"
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	default:
		return fmt.Sprint(x)
	}
}

// =============================================================================
// FIELD DECODING
// =============================================================================

// decodeValue maps a value produced by go-dbase to the Record value types.
func decodeValue(f Field, v any) (any, error) {
	switch f.Type {
	case Character:
		switch x := v.(type) {
		case nil:
			return "", nil
		case []byte:
			return strings.TrimRight(string(x), " \x00"), nil
		default:
			return strings.TrimRight(Stringify(x), " \x00"), nil
		}

	case Numeric, Float, Integer, Currency, Double:
		switch x := v.(type) {
		case nil:
			return nil, nil
		case int32:
			return decimal.NewFromInt32(x), nil
		case int64:
			return decimal.NewFromInt(x), nil
		case int:
			return decimal.NewFromInt(int64(x)), nil
		case float32:
			return decimal.NewFromFloat32(x), nil
		case float64:
			return decimal.NewFromFloat(x), nil
		case []byte:
			return parseNumber(string(x))
		case string:
			return parseNumber(x)
		default:
			return nil, fmt.Errorf("unexpected numeric value %T", v)
		}

	case Date, DateTime:
		switch x := v.(type) {
		case nil:
			return nil, nil
		case time.Time:
			if x.IsZero() {
				return nil, nil
			}
			return x, nil
		default:
			s := strings.TrimSpace(Stringify(x))
			if s == "" || strings.Trim(s, "0") == "" {
				return nil, nil
			}
			if t, err := time.Parse("20060102", s); err == nil {
				return t, nil
			}
			return s, nil
		}

	case Logical:
		if b, ok := v.(bool); ok {
			return b, nil
		}
		return nil, nil

	default:
		if b, ok := v.([]byte); ok {
			return strings.TrimSpace(string(b)), nil
		}
		return v, nil
	}
}

func parseNumber(s string) (any, error) {
	s = strings.TrimSpace(strings.Trim(s, "\x00"))
	if s == "" || strings.Trim(s, "*") == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(strings.ReplaceAll(s, ",", "."))
	if err != nil {
		return nil, fmt.Errorf("invalid numeric value %q", s)
	}
	return d, nil
}
