package core

// validation.go provides header resolution and row-level validation for
// imported CSV data.
//
// Validation happens at two levels:
//  1. Header validation: every required field must match a column, either by
//     name or by one of its aliases (case- and accent-insensitive)
//  2. Row validation: each cell is checked against its FieldSpec type
//
// The RowValidator can return all errors (for the repair preview) or just
// the first error (for imports).

import (
	"fmt"
	"strings"
)

// FieldType represents the expected data type for a CSV field.
type FieldType int

const (
	FieldText FieldType = iota
	FieldDate
	FieldClock
	FieldBool
	FieldStatus
)

// FieldSpec defines validation rules for a single CSV column.
type FieldSpec struct {
	Name     string    // Canonical column name
	Aliases  []string  // Alternative headers accepted for this column
	Type     FieldType // Expected data type
	Required bool      // Column must exist and cells must be non-empty
}

// HeaderIndex maps folded column names to their position in the CSV row.
type HeaderIndex map[string]int

// studentFields are the columns of a roster import.
var studentFields = []FieldSpec{
	{Name: "matricula", Aliases: []string{"id", "id alumno", "clave", "numero de control", "no. control", "num. control", "enrollment"}, Required: true},
	{Name: "nombre", Aliases: []string{"name", "nombre completo", "alumno", "estudiante", "student"}, Required: true},
	{Name: "grupo", Aliases: []string{"group", "salon", "seccion", "clase"}},
	{Name: "activo", Aliases: []string{"active", "vigente"}, Type: FieldBool},
}

// attendanceFields are the columns of a historical attendance import.
var attendanceFields = []FieldSpec{
	{Name: "matricula", Aliases: []string{"id", "id alumno", "clave", "numero de control", "no. control", "num. control", "enrollment"}, Required: true},
	{Name: "fecha", Aliases: []string{"date", "dia"}, Type: FieldDate, Required: true},
	{Name: "hora", Aliases: []string{"time", "hora de entrada", "entrada"}, Type: FieldClock},
	{Name: "estado", Aliases: []string{"status", "asistencia", "estatus"}, Type: FieldStatus},
	{Name: "nombre", Aliases: []string{"name", "nombre completo", "alumno", "estudiante", "student"}},
	{Name: "grupo", Aliases: []string{"group", "salon", "seccion", "clase"}},
}

// ValidationError represents a single validation error for a field.
type ValidationError struct {
	Field   string `json:"field"`
	Value   string `json:"value,omitempty"`
	Message string `json:"message"`
}

func (e ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return e.Message
}

// Columns maps canonical field names to row positions for one file.
type Columns map[string]int

// Cell returns the cleaned value of field in row, or "" if the column is
// absent or the row is short.
func (c Columns) Cell(row []string, field string) string {
	pos, ok := c[field]
	if !ok || pos >= len(row) {
		return ""
	}
	return CleanCell(row[pos])
}

// ResolveHeaders matches a header row against specs. It returns the
// position of every field found, or an error listing missing required
// columns.
func ResolveHeaders(header []string, specs []FieldSpec) (Columns, error) {
	idx := MakeHeaderIndex(header)
	cols := make(Columns, len(specs))
	var missing []string

	for _, spec := range specs {
		pos, ok := lookupField(idx, spec)
		if ok {
			cols[spec.Name] = pos
			continue
		}
		if spec.Required {
			missing = append(missing, spec.Name)
		}
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required column: %s", strings.Join(missing, ", "))
	}
	return cols, nil
}

func lookupField(idx HeaderIndex, spec FieldSpec) (int, bool) {
	if pos, ok := idx[FoldKey(spec.Name)]; ok {
		return pos, true
	}
	for _, alias := range spec.Aliases {
		if pos, ok := idx[FoldKey(alias)]; ok {
			return pos, true
		}
	}
	return 0, false
}

// RowValidator validates rows against a set of field specifications.
type RowValidator struct {
	specs []FieldSpec
	cols  Columns
}

// NewRowValidator creates a validator for the given specs and resolved columns.
func NewRowValidator(specs []FieldSpec, cols Columns) *RowValidator {
	return &RowValidator{specs: specs, cols: cols}
}

// ValidateRow validates a single CSV row and returns all validation errors.
func (v *RowValidator) ValidateRow(row []string) []ValidationError {
	var errs []ValidationError
	for _, spec := range v.specs {
		if err, ok := v.check(row, spec); !ok {
			errs = append(errs, err)
		}
	}
	return errs
}

// ValidateRowFirst validates a row and returns the first error only.
func (v *RowValidator) ValidateRowFirst(row []string) error {
	for _, spec := range v.specs {
		if err, ok := v.check(row, spec); !ok {
			return err
		}
	}
	return nil
}

func (v *RowValidator) check(row []string, spec FieldSpec) (ValidationError, bool) {
	raw := v.cols.Cell(row, spec.Name)
	if raw == "" {
		if spec.Required {
			return ValidationError{Field: spec.Name, Message: "required field is empty"}, false
		}
		return ValidationError{}, true
	}
	if err := ValidateCell(raw, spec); err != nil {
		return ValidationError{Field: spec.Name, Value: raw, Message: err.Error()}, false
	}
	return ValidationError{}, true
}

// ValidateCell validates a single non-empty cell against its specification.
func ValidateCell(value string, spec FieldSpec) error {
	switch spec.Type {
	case FieldDate:
		if _, ok := ParseDate(value); !ok {
			return fmt.Errorf("invalid date format (use YYYY-MM-DD or DD/MM/YYYY)")
		}
	case FieldClock:
		if _, ok := ParseClock(value); !ok {
			return fmt.Errorf("invalid time format (use HH:MM)")
		}
	case FieldBool:
		if _, ok := ParseBool(value); !ok {
			return fmt.Errorf("invalid enum: must be sí/no, true/false or 1/0")
		}
	case FieldStatus:
		if _, ok := ParseStatus(value); !ok {
			return fmt.Errorf("invalid enum: must be presente or retardo")
		}
	}
	return nil
}
