// =============================================================================
// Ventas Histórico - Validation Engine
// =============================================================================
//
// This module checks merged ledger entries against the field layout of the
// historical store before a batch is written. The store is a fixed-width
// table, so every value must fit the width and type of its column.
//
// VALIDATION STRATEGY:
//   1. Schema-level: the store declares every ledger column (ValidateSchema)
//   2. Field-level: each value against its column (ValidateEntry)
//   3. Batch-level: every entry of a batch (ValidateBatch)
//
// SEVERITY:
//   - "error"   : the value cannot be stored; the batch is rejected
//   - "warning" : the value is stored with a loss (e.g. text cut to width)
//
// Errors are collected, not returned at the first failure, so a rejected
// batch reports every offending entry at once.
//
// =============================================================================

package validation

import (
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"github.com/ginjaninja78/ventas-historico/internal/dbf"
	"github.com/ginjaninja78/ventas-historico/internal/types"
)

// Severity levels.
const (
	SeverityError   = "error"
	SeverityWarning = "warning"
)

// Rule names.
const (
	RuleMissingColumn = "missing_column"
	RuleColumnType    = "column_type"
	RuleMaxLength     = "max_length"
	RuleNumericRange  = "numeric_range"
	RuleNotANumber    = "not_a_number"
	RuleRequired      = "required"
)

// =============================================================================
// VALIDATION ERROR TYPES
// =============================================================================

// ValidationError represents a single validation finding.
type ValidationError struct {
	// Severity is SeverityError or SeverityWarning.
	Severity string

	// Field is the store column.
	Field string

	// Value is the offending value as text.
	Value string

	// Rule is the violated rule.
	Rule string

	// Message is a human-readable description.
	Message string

	// Index is the 0-based position of the entry in its batch, -1 for
	// schema findings.
	Index int

	// Key identifies the entry.
	Key types.Key
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("[%s] Field '%s': %s", strings.ToUpper(e.Severity), e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] Entry %d (%s), Field '%s': %s (value: '%s')",
		strings.ToUpper(e.Severity),
		e.Index+1,
		e.Key,
		e.Field,
		e.Message,
		e.Value,
	)
}

// =============================================================================
// VALIDATION RESULT
// =============================================================================

// ValidationResult contains the results of validation.
type ValidationResult struct {
	// IsValid is true if there are no errors.
	IsValid bool

	// Errors contains all findings, warnings included.
	Errors []*ValidationError

	// ErrorCount is the number of errors.
	ErrorCount int

	// WarningCount is the number of warnings.
	WarningCount int

	// EntriesValidated is the number of entries checked.
	EntriesValidated int
}

func (r *ValidationResult) add(e *ValidationError) {
	r.Errors = append(r.Errors, e)
	if e.Severity == SeverityError {
		r.ErrorCount++
		r.IsValid = false
	} else {
		r.WarningCount++
	}
}

// Warnings returns only the warnings.
func (r *ValidationResult) Warnings() []*ValidationError {
	var out []*ValidationError
	for _, e := range r.Errors {
		if e.Severity == SeverityWarning {
			out = append(out, e)
		}
	}
	return out
}

// Err returns a *BatchError when the result holds errors, nil otherwise.
func (r *ValidationResult) Err() error {
	if r.IsValid {
		return nil
	}
	var errs []*ValidationError
	for _, e := range r.Errors {
		if e.Severity == SeverityError {
			errs = append(errs, e)
		}
	}
	return &BatchError{Errors: errs}
}

// BatchError rejects a batch that does not fit the store.
type BatchError struct {
	Errors []*ValidationError
}

func (e *BatchError) Error() string {
	if len(e.Errors) == 0 {
		return "batch rejected"
	}
	if len(e.Errors) == 1 {
		return "batch rejected: " + e.Errors[0].Error()
	}
	return fmt.Sprintf("batch rejected: %s (and %d more)", e.Errors[0].Error(), len(e.Errors)-1)
}

// =============================================================================
// VALIDATOR
// =============================================================================

// Validator checks entries against a store layout.
type Validator struct {
	fields  map[string]dbf.Field
	options ValidationOptions
}

// ValidationOptions contains options for validation.
type ValidationOptions struct {
	// TreatWarningsAsErrors rejects a batch on any warning: text cut to
	// its column width or an empty key part.
	// Default: false
	TreatWarningsAsErrors bool
}

// DefaultValidationOptions returns the default validation options.
func DefaultValidationOptions() ValidationOptions {
	return ValidationOptions{}
}

// NewValidator creates a validator for the given store fields.
func NewValidator(fields []dbf.Field) *Validator {
	return NewValidatorWithOptions(fields, DefaultValidationOptions())
}

// NewValidatorWithOptions creates a validator with custom options.
func NewValidatorWithOptions(fields []dbf.Field, options ValidationOptions) *Validator {
	byName := make(map[string]dbf.Field, len(fields))
	for _, f := range fields {
		byName[f.Name] = f
	}
	return &Validator{fields: byName, options: options}
}

// =============================================================================
// SCHEMA VALIDATION
// =============================================================================

// ValidateSchema checks that a store layout declares every ledger column with
// a compatible type: numeric for CANT, P_UNIT and COST_UNIT, character for
// the rest.
func ValidateSchema(fields []dbf.Field) *ValidationResult {
	result := &ValidationResult{IsValid: true}

	for _, col := range types.LedgerColumns {
		f, ok := dbf.FieldByName(fields, col)
		if !ok {
			result.add(&ValidationError{
				Severity: SeverityError,
				Field:    col,
				Rule:     RuleMissingColumn,
				Message:  "column is missing from the store",
				Index:    -1,
			})
			continue
		}

		wantNumeric := numericColumn(col)
		if wantNumeric != f.IsNumeric() || (!wantNumeric && f.Type != dbf.Character) {
			result.add(&ValidationError{
				Severity: SeverityError,
				Field:    col,
				Value:    f.String(),
				Rule:     RuleColumnType,
				Message:  "column has an incompatible type",
				Index:    -1,
			})
		}
	}

	return result
}

func numericColumn(name string) bool {
	switch name {
	case types.ColCantidad, types.ColPrecioUnit, types.ColCostoUnit:
		return true
	}
	return false
}

// =============================================================================
// ENTRY VALIDATION
// =============================================================================

// ValidateBatch validates every entry of a batch.
func (v *Validator) ValidateBatch(entries []types.HistoricalEntry) *ValidationResult {
	result := &ValidationResult{IsValid: true, EntriesValidated: len(entries)}

	for i := range entries {
		for _, e := range v.ValidateEntry(i, entries[i]) {
			if v.options.TreatWarningsAsErrors {
				e.Severity = SeverityError
			}
			result.add(e)
		}
	}

	return result
}

// ValidateEntry validates one entry.
//
// PARAMETERS:
//   - index: The entry's position in its batch, used in messages.
//   - entry: The entry to check.
//
// RETURNS:
//   - The findings, empty when the entry fits.
func (v *Validator) ValidateEntry(index int, entry types.HistoricalEntry) []*ValidationError {
	var errs []*ValidationError
	key := entry.Key()

	if key.Ticket == "" || key.Product == "" {
		errs = append(errs, &ValidationError{
			Severity: SeverityWarning,
			Field:    types.ColTicket + "/" + types.ColProducto,
			Value:    key.String(),
			Rule:     RuleRequired,
			Message:  "key has an empty part",
			Index:    index,
			Key:      key,
		})
	}

	for name, value := range entry.Row() {
		f, ok := v.fields[name]
		if !ok {
			continue
		}
		if e := validateValue(f, value); e != nil {
			e.Index = index
			e.Key = key
			errs = append(errs, e)
		}
	}

	return errs
}

func validateValue(f dbf.Field, value any) *ValidationError {
	switch f.Type {
	case dbf.Character:
		s := dbf.Stringify(value)
		if n := utf8.RuneCountInString(s); n > f.Length {
			return &ValidationError{
				Severity: SeverityWarning,
				Field:    f.Name,
				Value:    s,
				Rule:     RuleMaxLength,
				Message:  fmt.Sprintf("%d characters exceed width %d and will be cut", n, f.Length),
			}
		}

	case dbf.Numeric, dbf.Float:
		x, ok := value.(float64)
		if !ok {
			return nil
		}
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return &ValidationError{
				Severity: SeverityError,
				Field:    f.Name,
				Value:    fmt.Sprint(x),
				Rule:     RuleNotANumber,
				Message:  "value is not a finite number",
			}
		}
		text := decimal.NewFromFloat(x).StringFixed(int32(f.Decimals))
		if len(text) > f.Length {
			return &ValidationError{
				Severity: SeverityError,
				Field:    f.Name,
				Value:    text,
				Rule:     RuleNumericRange,
				Message:  fmt.Sprintf("value does not fit in %s", f),
			}
		}
	}
	return nil
}
