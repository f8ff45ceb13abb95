package dbf

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/Valentin-Kaiser/go-dbase/dbase"
	"golang.org/x/text/encoding/charmap"
)

// ReplacementChar is written in place of characters the code page cannot hold.
const ReplacementChar = '?'

// CodePage is a single-byte character set used for every C field of a table.
type CodePage struct {
	name string
	cm   *charmap.Charmap
}

var codePages = map[string]*CodePage{
	"cp437":  {name: "cp437", cm: charmap.CodePage437},
	"cp850":  {name: "cp850", cm: charmap.CodePage850},
	"cp1252": {name: "cp1252", cm: charmap.Windows1252},
	"cp852":  {name: "cp852", cm: charmap.CodePage852},
	"cp865":  {name: "cp865", cm: charmap.CodePage865},
	"latin1": {name: "latin1", cm: charmap.ISO8859_1},
}

var codePageAliases = map[string]string{
	"437":          "cp437",
	"850":          "cp850",
	"ibm850":       "cp850",
	"1252":         "cp1252",
	"windows-1252": "cp1252",
	"852":          "cp852",
	"865":          "cp865",
	"iso-8859-1":   "latin1",
	"iso8859-1":    "latin1",
}

// LookupCodePage resolves a code page by name ("cp850", "IBM850", "850" ...).
func LookupCodePage(name string) (*CodePage, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if alias, ok := codePageAliases[key]; ok {
		key = alias
	}
	cp, ok := codePages[key]
	if !ok {
		return nil, fmt.Errorf("unsupported code page %q", name)
	}
	return cp, nil
}

// MustCodePage is LookupCodePage for names known at compile time.
func MustCodePage(name string) *CodePage {
	cp, err := LookupCodePage(name)
	if err != nil {
		panic(err)
	}
	return cp
}

// Name returns the canonical code page name.
func (cp *CodePage) Name() string { return cp.name }

// EncodeRune maps r to its single byte. ok is false for unmappable runes.
func (cp *CodePage) EncodeRune(r rune) (byte, bool) {
	return cp.cm.EncodeRune(r)
}

// DecodeByte maps a stored byte back to a rune.
func (cp *CodePage) DecodeByte(b byte) rune {
	return cp.cm.DecodeByte(b)
}

// Encode converts s to code page bytes, substituting ReplacementChar for
// every rune the code page cannot represent.
func (cp *CodePage) Encode(s string) []byte {
	out := make([]byte, 0, utf8.RuneCountInString(s))
	for _, r := range s {
		b, ok := cp.cm.EncodeRune(r)
		if !ok {
			b = ReplacementChar
		}
		out = append(out, b)
	}
	return out
}

// Decode converts code page bytes to a UTF-8 string.
func (cp *CodePage) Decode(b []byte) string {
	var sb strings.Builder
	sb.Grow(len(b))
	for _, c := range b {
		sb.WriteRune(cp.cm.DecodeByte(c))
	}
	return sb.String()
}

// Fit returns s as it reads back from a C field of the given width:
// unmappable characters replaced, cut to width, trailing blanks removed.
func (cp *CodePage) Fit(s string, width int) string {
	raw := cp.Encode(s)
	if width >= 0 && len(raw) > width {
		raw = raw[:width]
	}
	return strings.TrimRight(cp.Decode(raw), " ")
}

// tableConfig is the go-dbase configuration shared by every open.
func (cp *CodePage) tableConfig(path string) *dbase.Config {
	return &dbase.Config{
		Filename:   path,
		Converter:  dbase.NewDefaultConverter(cp.cm),
		TrimSpaces: true,
		Untested:   true,
	}
}
