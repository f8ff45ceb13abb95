package types

import "fmt"

// MissingFileError reports a mandatory input table that does not exist.
type MissingFileError struct {
	// Name is the file name as configured, e.g. "ZETH51T.DBF".
	Name string

	// Path is the resolved location that was checked.
	Path string
}

func (e *MissingFileError) Error() string {
	return fmt.Sprintf("No se encontró %s", e.Name)
}

// StoreNotFoundError reports that the historical store has not been created yet.
type StoreNotFoundError struct {
	Path string
}

func (e *StoreNotFoundError) Error() string {
	return "El archivo histórico aún no existe."
}

// ParseError reports a record whose values cannot be interpreted.
type ParseError struct {
	Table string
	Row   int
	Field string
	Err   error
}

func (e *ParseError) Error() string {
	if e.Row > 0 {
		return fmt.Sprintf("%s, registro %d, campo %s: %v", e.Table, e.Row, e.Field, e.Err)
	}
	return fmt.Sprintf("%s, campo %s: %v", e.Table, e.Field, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// IOError reports a file system failure while working on a table.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }
