// Package dbftest builds dBase fixture tables for tests.
package dbftest

import (
	"path/filepath"
	"testing"

	"github.com/ginjaninja78/ventas-historico/internal/dbf"
)

// Schemas of the point-of-sale tables, as exported by the legacy system.
const (
	HeaderSchema     = "NUMCHK C(10);CUSNAM C(50);TYPPAG C(5);FECCHK C(20)"
	DetailSchema     = "NUMCHK C(10);PRONUM C(10);QTYPRO N(6,0);PRIPRO C(12)"
	ProductSchema    = "PRONUM C(10);DESCRI C(50);ULCOSREP C(12)"
	ProductExtSchema = "PRONUM C(10);EERR C(20);CATEGORIA C(20);SUB_CAT C(20)"
)

// WriteTable creates dir/name with the given schema and rows in cp850 and
// returns its path.
func WriteTable(t testing.TB, dir, name, schema string, rows ...map[string]any) string {
	t.Helper()

	fields, err := dbf.ParseSchema(schema)
	if err != nil {
		t.Fatalf("parse schema %q: %v", schema, err)
	}

	cp := dbf.MustCodePage("cp850")
	path := filepath.Join(dir, name)
	if err := dbf.Create(path, fields, cp); err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	if len(rows) > 0 {
		if _, err := dbf.Append(path, cp, rows); err != nil {
			t.Fatalf("append to %s: %v", path, err)
		}
	}
	return path
}
