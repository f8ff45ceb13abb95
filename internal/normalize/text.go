package normalize

import "strings"

// RuneMapper is a single-byte code page, such as *charmap.Charmap or
// *dbf.CodePage.
type RuneMapper interface {
	EncodeRune(r rune) (byte, bool)
	DecodeByte(b byte) rune
}

// Sanitizer makes text representable in the store's code page. Characters
// the code page cannot hold are replaced with '?', the same lossy policy the
// point-of-sale tools apply.
type Sanitizer struct {
	cp RuneMapper
}

// NewSanitizer returns a sanitizer for the given code page.
func NewSanitizer(cp RuneMapper) *Sanitizer {
	return &Sanitizer{cp: cp}
}

// String round-trips s through the code page.
func (s *Sanitizer) String(v string) string {
	var sb strings.Builder
	sb.Grow(len(v))
	for _, r := range v {
		b, ok := s.cp.EncodeRune(r)
		if !ok {
			sb.WriteByte('?')
			continue
		}
		sb.WriteRune(s.cp.DecodeByte(b))
	}
	return sb.String()
}

// Value sanitizes strings and passes every other value through unchanged.
func (s *Sanitizer) Value(v any) any {
	if str, ok := v.(string); ok {
		return s.String(str)
	}
	return v
}

// Row sanitizes every string value of a row in place and returns it.
func (s *Sanitizer) Row(row map[string]any) map[string]any {
	for k, v := range row {
		row[k] = s.Value(v)
	}
	return row
}
