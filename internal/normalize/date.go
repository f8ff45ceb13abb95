package normalize

import (
	"strings"
	"time"
)

// CanonicalDateLayout is the display and storage layout of ledger dates.
const CanonicalDateLayout = "2006-01-02"

// dateLayouts are tried in order after '.', '/' and ' ' are unified to '-'.
// First match wins. Day and month accept one or two digits. Two digit years
// 69-99 map to the 1900s.
//
//	YYYY-MM-DD, DD-MM-YYYY, DD-MM-YY, YYYYMMDD
var dateLayouts = []string{
	"2006-1-2",
	"2-1-2006",
	"2-1-06",
	"20060102",
}

var separatorReplacer = strings.NewReplacer(".", "-", "/", "-", " ", "-")

// ParseDate interprets a stored date value.
//
// PARAMETERS:
//   - v: A time.Time, a *time.Time or a string in one of the known formats.
//
// RETURNS:
//   - The calendar date (UTC midnight).
//   - false for empty or unparseable input. This is never an error.
func ParseDate(v any) (time.Time, bool) {
	switch x := v.(type) {
	case time.Time:
		if x.IsZero() {
			return time.Time{}, false
		}
		return time.Date(x.Year(), x.Month(), x.Day(), 0, 0, 0, 0, time.UTC), true
	case *time.Time:
		if x == nil {
			return time.Time{}, false
		}
		return ParseDate(*x)
	case string:
		return parseDateText(x)
	default:
		return time.Time{}, false
	}
}

func parseDateText(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	s = separatorReplacer.Replace(s)

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// FormatDate renders a stored date value as YYYY-MM-DD. Values that are not
// dates render as "".
func FormatDate(v any) string {
	t, ok := ParseDate(v)
	if !ok {
		return ""
	}
	return t.Format(CanonicalDateLayout)
}
