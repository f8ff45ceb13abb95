// =============================================================================
// Ventas Histórico - dBase Tables: Reader
// =============================================================================
//
// Streaming reader over go-dbase. Rows are decoded one at a time so a large
// detail table never has to be held in memory.
//
// USAGE:
//   table, err := dbf.Open(path, dbf.MustCodePage("cp850"))
//   if err != nil {
//       return err
//   }
//   defer table.Close()
//
//   for table.Next() {
//       rec := table.Record()
//       // Process the record...
//   }
//
//   if err := table.Err(); err != nil {
//       return err
//   }
//
// =============================================================================

package dbf

import (
	"fmt"
	"os"

	"github.com/Valentin-Kaiser/go-dbase/dbase"
)

// FieldError reports a value that could not be decoded or encoded.
type FieldError struct {
	// Row is the 1-based record number, 0 when not tied to a stored row.
	Row int

	// Field is the column name, empty when the row could not be read at all.
	Field string

	// Err is the underlying cause.
	Err error
}

func (e *FieldError) Error() string {
	switch {
	case e.Row > 0 && e.Field != "":
		return fmt.Sprintf("record %d, field %s: %v", e.Row, e.Field, e.Err)
	case e.Row > 0:
		return fmt.Sprintf("record %d: %v", e.Row, e.Err)
	default:
		return fmt.Sprintf("field %s: %v", e.Field, e.Err)
	}
}

func (e *FieldError) Unwrap() error { return e.Err }

// Table is an open dBase table positioned before its first record.
type Table struct {
	file    *dbase.File
	fields  []Field
	row     int
	current Record
	err     error
}

// Open opens a table for reading.
//
// PARAMETERS:
//   - path: The path to the .DBF file.
//   - cp: The code page used to decode character fields.
//
// RETURNS:
//   - The open table; the caller must Close it.
//   - An error wrapping fs.ErrNotExist when the file is missing, or
//     describing why it is not a readable dBase table.
func Open(path string, cp *CodePage) (*Table, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}

	file, err := dbase.OpenTable(cp.tableConfig(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	columns := file.Columns()
	fields := make([]Field, len(columns))
	for i, col := range columns {
		fields[i] = fieldOf(col)
	}

	return &Table{file: file, fields: fields}, nil
}

// Fields returns the table columns in stored order.
func (t *Table) Fields() []Field { return t.fields }

// Next advances to the next live record. It returns false at the end of the
// table or on error.
func (t *Table) Next() bool {
	for t.err == nil && !t.file.EOF() {
		row, err := t.file.Next()
		t.row++
		if err != nil {
			t.err = &FieldError{Row: t.row, Err: err}
			return false
		}
		if row.Deleted {
			continue
		}

		values, err := row.ToMap()
		if err != nil {
			t.err = &FieldError{Row: t.row, Err: err}
			return false
		}

		rec := make(Record, len(t.fields))
		for _, f := range t.fields {
			value, err := decodeValue(f, values[f.Name])
			if err != nil {
				t.err = &FieldError{Row: t.row, Field: f.Name, Err: err}
				return false
			}
			rec[f.Name] = value
		}
		t.current = rec
		return true
	}
	return false
}

// Record returns the current record.
func (t *Table) Record() Record { return t.current }

// RowNumber returns the 1-based physical number of the current record.
func (t *Table) RowNumber() int { return t.row }

// Err returns the first error met while reading.
func (t *Table) Err() error { return t.err }

// Close closes the underlying file.
func (t *Table) Close() error { return t.file.Close() }

// ReadAll loads every live record of a table.
func ReadAll(path string, cp *CodePage) ([]Record, []Field, error) {
	table, err := Open(path, cp)
	if err != nil {
		return nil, nil, err
	}
	defer table.Close()

	var records []Record
	for table.Next() {
		records = append(records, table.Record())
	}
	if err := table.Err(); err != nil {
		return nil, nil, err
	}
	return records, table.Fields(), nil
}

// Count returns the number of live records in a table.
func Count(path string, cp *CodePage) (int, error) {
	table, err := Open(path, cp)
	if err != nil {
		return 0, err
	}
	defer table.Close()

	n := 0
	for table.Next() {
		n++
	}
	return n, table.Err()
}

// ReadFields returns the column layout of a table.
func ReadFields(path string, cp *CodePage) ([]Field, error) {
	table, err := Open(path, cp)
	if err != nil {
		return nil, err
	}
	defer table.Close()
	return table.Fields(), nil
}
