// =============================================================================
// Ventas Histórico - dBase Tables: Writer
// =============================================================================
//
// Creation and append-only writes over go-dbase. Existing records are never
// rewritten.
//
// APPEND STRATEGY:
//   1. Encode and check every row before any file is touched
//   2. Copy the table next to itself
//   3. Append the rows to the copy
//   4. Rename the copy over the original
//
// A failure before the rename removes the copy, so a batch is either fully
// present or not present at all.
//
// =============================================================================

package dbf

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Valentin-Kaiser/go-dbase/dbase"
	"github.com/shopspring/decimal"
)

// Create writes an empty table with the given fields. It fails with an error
// wrapping fs.ErrExist if the file already exists.
func Create(path string, fields []Field, cp *CodePage) error {
	if len(fields) == 0 {
		return fmt.Errorf("cannot create table without fields")
	}
	if _, err := os.Stat(path); err == nil {
		return &fs.PathError{Op: "create", Path: path, Err: fs.ErrExist}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return err
	}

	columns := make([]*dbase.Column, len(fields))
	for i, f := range fields {
		col, err := f.column()
		if err != nil {
			return err
		}
		columns[i] = col
	}

	table, err := dbase.NewTable(dbase.FoxPro, cp.tableConfig(path), columns, 0, nil)
	if err != nil {
		os.Remove(path)
		return fmt.Errorf("failed to create table: %w", err)
	}
	return table.Close()
}

// Append adds rows to the end of an existing table.
//
// PARAMETERS:
//   - path: The table to extend.
//   - cp: The code page used for character fields.
//   - rows: Values keyed by field name. Missing fields are written empty.
//
// RETURNS:
//   - The live record count after the append.
//   - A *FieldError if any row cannot be encoded, or the write error. In
//     both cases the table is left unchanged.
func Append(path string, cp *CodePage, rows []map[string]any) (int, error) {
	fields, live, err := layout(path, cp)
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return live, nil
	}

	encoded := make([]map[string]any, len(rows))
	for i, row := range rows {
		values, err := EncodeRecord(fields, cp, row)
		if err != nil {
			return 0, fmt.Errorf("row %d: %w", i+1, err)
		}
		encoded[i] = values
	}

	tmp, err := copyBeside(path)
	if err != nil {
		return 0, fmt.Errorf("failed to copy table: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			os.Remove(tmp)
		}
	}()

	if err := appendRows(tmp, cp, encoded); err != nil {
		return 0, err
	}
	if err := os.Rename(tmp, path); err != nil {
		return 0, fmt.Errorf("failed to replace table: %w", err)
	}
	committed = true

	return live + len(rows), nil
}

// layout returns the fields and live record count of a table.
func layout(path string, cp *CodePage) ([]Field, int, error) {
	table, err := Open(path, cp)
	if err != nil {
		return nil, 0, err
	}
	defer table.Close()

	n := 0
	for table.Next() {
		n++
	}
	return table.Fields(), n, table.Err()
}

func appendRows(path string, cp *CodePage, rows []map[string]any) error {
	table, err := dbase.OpenTable(cp.tableConfig(path))
	if err != nil {
		return fmt.Errorf("failed to open table copy: %w", err)
	}

	for i, values := range rows {
		row, err := table.RowFromMap(values)
		if err != nil {
			table.Close()
			return fmt.Errorf("row %d: %w", i+1, err)
		}
		if err := row.Add(); err != nil {
			table.Close()
			return fmt.Errorf("failed to write row %d: %w", i+1, err)
		}
	}

	if err := table.Close(); err != nil {
		return fmt.Errorf("failed to close table copy: %w", err)
	}
	return nil
}

// copyBeside copies path to a new file in the same directory and returns
// the copy's path. The copy keeps the .DBF extension.
func copyBeside(path string) (string, error) {
	src, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer src.Close()

	info, err := src.Stat()
	if err != nil {
		return "", err
	}

	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	dst, err := os.CreateTemp(filepath.Dir(path), "."+stem+"-*.DBF")
	if err != nil {
		return "", err
	}

	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		os.Remove(dst.Name())
		return "", err
	}
	if err := dst.Sync(); err != nil {
		dst.Close()
		os.Remove(dst.Name())
		return "", err
	}
	if err := dst.Close(); err != nil {
		os.Remove(dst.Name())
		return "", err
	}
	if err := os.Chmod(dst.Name(), info.Mode().Perm()); err != nil {
		os.Remove(dst.Name())
		return "", err
	}
	return dst.Name(), nil
}

// =============================================================================
// RECORD ENCODING
// =============================================================================

// EncodeRecord converts one row to the values go-dbase writes, keyed by
// field name. Every field gets a value.
func EncodeRecord(fields []Field, cp *CodePage, row map[string]any) (map[string]any, error) {
	values := make(map[string]any, len(row))
	for k, v := range row {
		values[strings.ToUpper(k)] = v
	}

	out := make(map[string]any, len(fields))
	for _, f := range fields {
		v, err := EncodeValue(f, cp, values[f.Name])
		if err != nil {
			return nil, &FieldError{Field: f.Name, Err: err}
		}
		if v != nil {
			out[f.Name] = v
		}
	}
	return out, nil
}

// EncodeValue converts a single value for the field. Character values are
// made representable in the code page and cut to the field width; numbers
// are rounded to the field's decimals and must fit its width.
func EncodeValue(f Field, cp *CodePage, v any) (any, error) {
	switch f.Type {
	case Character:
		return cp.Fit(Stringify(v), f.Length), nil

	case Numeric, Float:
		d, err := toDecimal(v)
		if err != nil {
			return nil, err
		}
		d = d.Round(int32(f.Decimals))
		if text := d.StringFixed(int32(f.Decimals)); len(text) > f.Length {
			return nil, fmt.Errorf("value %s does not fit in %d characters", text, f.Length)
		}
		if f.Type == Numeric && f.Decimals == 0 {
			return d.IntPart(), nil
		}
		return d.InexactFloat64(), nil

	case Date:
		switch x := v.(type) {
		case nil:
			return nil, nil
		case time.Time:
			if x.IsZero() {
				return nil, nil
			}
			return x, nil
		case string:
			s := strings.TrimSpace(x)
			if s == "" {
				return nil, nil
			}
			t, err := time.Parse("2006-01-02", s)
			if err != nil {
				t, err = time.Parse("20060102", s)
			}
			if err != nil {
				return nil, fmt.Errorf("invalid date %q", x)
			}
			return t, nil
		default:
			return nil, fmt.Errorf("unsupported date value %T", v)
		}

	case Logical:
		switch x := v.(type) {
		case nil:
			return false, nil
		case bool:
			return x, nil
		default:
			return nil, fmt.Errorf("unsupported logical value %T", v)
		}

	default:
		return nil, fmt.Errorf("writing field type %c is not supported", f.Type)
	}
}

func toDecimal(v any) (decimal.Decimal, error) {
	switch x := v.(type) {
	case nil:
		return decimal.Zero, nil
	case decimal.Decimal:
		return x, nil
	case float64:
		return decimal.NewFromFloat(x), nil
	case float32:
		return decimal.NewFromFloat32(x), nil
	case int:
		return decimal.NewFromInt(int64(x)), nil
	case int64:
		return decimal.NewFromInt(x), nil
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return decimal.Zero, nil
		}
		d, err := decimal.NewFromString(s)
		if err != nil {
			return decimal.Zero, fmt.Errorf("%q is not a number", x)
		}
		return d, nil
	default:
		return decimal.Zero, fmt.Errorf("unsupported numeric value %T", v)
	}
}
