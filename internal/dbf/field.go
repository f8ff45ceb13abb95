// =============================================================================
// Ventas Histórico - dBase Tables: Field Descriptors
// =============================================================================
//
// This module describes the columns of a dBase table. Schemas are written in
// the compact notation used by the legacy point-of-sale tooling:
//
//   "EERR C(20); FECHA C(20); CANT N(6,0); P_UNIT N(12,2)"
//
// FIELD TYPES:
//   - C : Character, fixed width, space padded on the right
//   - N : Numeric, ASCII digits right aligned, fixed decimals
//   - F : Float, stored exactly like N
//   - D : Date, 8 characters YYYYMMDD
//   - L : Logical, one character (T/F/Y/N/?)
//
// Read only (FoxPro exports):
//   - I : Integer, 4 bytes binary
//   - Y : Currency, 8 bytes binary
//   - T : DateTime, 8 bytes binary
//   - B : Double, 8 bytes binary
//
// =============================================================================

package dbf

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/Valentin-Kaiser/go-dbase/dbase"
)

// FieldType is the one-letter dBase column type.
type FieldType byte

const (
	Character FieldType = 'C'
	Numeric   FieldType = 'N'
	Float     FieldType = 'F'
	Date      FieldType = 'D'
	Logical   FieldType = 'L'
	Integer   FieldType = 'I'
	Currency  FieldType = 'Y'
	DateTime  FieldType = 'T'
	Double    FieldType = 'B'
)

// maxFieldNameLength is the width of the name slot in a field descriptor.
const maxFieldNameLength = 10

// Field describes one column of a table.
type Field struct {
	// Name is the column name, upper case, at most 10 characters.
	Name string

	// Type is the dBase column type.
	Type FieldType

	// Length is the width of the column in bytes.
	Length int

	// Decimals is the number of digits after the decimal point (N and F only).
	Decimals int
}

// String renders the field in schema notation, e.g. "P_UNIT N(12,2)".
func (f Field) String() string {
	switch f.Type {
	case Numeric, Float:
		return fmt.Sprintf("%s %c(%d,%d)", f.Name, f.Type, f.Length, f.Decimals)
	case Date, Logical:
		return fmt.Sprintf("%s %c", f.Name, f.Type)
	default:
		return fmt.Sprintf("%s %c(%d)", f.Name, f.Type, f.Length)
	}
}

// IsNumeric reports whether the field holds numbers.
func (f Field) IsNumeric() bool {
	switch f.Type {
	case Numeric, Float, Integer, Currency, Double:
		return true
	}
	return false
}

// column converts the field to a go-dbase column for table creation.
func (f Field) column() (*dbase.Column, error) {
	col, err := dbase.NewColumn(f.Name, dbase.DataType(f.Type), uint8(f.Length), uint8(f.Decimals), false)
	if err != nil {
		return nil, fmt.Errorf("field %s: %w", f, err)
	}
	return col, nil
}

// fieldOf describes a column read from an existing table.
func fieldOf(col *dbase.Column) Field {
	return Field{
		Name:     strings.ToUpper(col.Name()),
		Type:     FieldType(col.DataType),
		Length:   int(col.Length),
		Decimals: int(col.Decimals),
	}
}

// =============================================================================
// SCHEMA PARSING
// =============================================================================

var fieldSpecPattern = regexp.MustCompile(`^([A-Za-z_][A-Za-z0-9_]*)\s+([CNFDLcnfdl])\s*(?:\(\s*(\d+)\s*(?:,\s*(\d+)\s*)?\))?$`)

// ParseSchema parses a semicolon separated schema declaration.
//
// PARAMETERS:
//   - spec: The schema declaration, e.g. "EERR C(20);CANT N(6,0);FECHA D".
//
// RETURNS:
//   - The field list in declaration order.
//   - An error describing the first malformed or duplicated field.
func ParseSchema(spec string) ([]Field, error) {
	var fields []Field
	seen := make(map[string]bool)

	for _, part := range strings.Split(spec, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		field, err := parseFieldSpec(part)
		if err != nil {
			return nil, err
		}
		if seen[field.Name] {
			return nil, fmt.Errorf("duplicate field %s in schema", field.Name)
		}
		seen[field.Name] = true
		fields = append(fields, field)
	}

	if len(fields) == 0 {
		return nil, fmt.Errorf("schema declares no fields")
	}

	return fields, nil
}

func parseFieldSpec(spec string) (Field, error) {
	m := fieldSpecPattern.FindStringSubmatch(spec)
	if m == nil {
		return Field{}, fmt.Errorf("invalid field declaration %q", spec)
	}

	field := Field{
		Name: strings.ToUpper(m[1]),
		Type: FieldType(strings.ToUpper(m[2])[0]),
	}
	if len(field.Name) > maxFieldNameLength {
		return Field{}, fmt.Errorf("field name %s is longer than %d characters", field.Name, maxFieldNameLength)
	}

	switch field.Type {
	case Date:
		field.Length = 8
		return field, nil
	case Logical:
		field.Length = 1
		return field, nil
	}

	if m[3] == "" {
		return Field{}, fmt.Errorf("field %s needs a length", field.Name)
	}
	field.Length, _ = strconv.Atoi(m[3])
	if m[4] != "" {
		field.Decimals, _ = strconv.Atoi(m[4])
	}

	switch field.Type {
	case Character:
		if field.Decimals != 0 {
			return Field{}, fmt.Errorf("character field %s cannot have decimals", field.Name)
		}
		if field.Length < 1 || field.Length > 254 {
			return Field{}, fmt.Errorf("character field %s length must be 1-254", field.Name)
		}
	case Numeric, Float:
		if field.Length < 1 || field.Length > 20 {
			return Field{}, fmt.Errorf("numeric field %s length must be 1-20", field.Name)
		}
		if field.Decimals > 0 && field.Decimals > field.Length-2 {
			return Field{}, fmt.Errorf("numeric field %s has too many decimals", field.Name)
		}
	}

	return field, nil
}

// FieldByName returns the named field and whether it exists.
func FieldByName(fields []Field, name string) (Field, bool) {
	name = strings.ToUpper(name)
	for _, f := range fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}
