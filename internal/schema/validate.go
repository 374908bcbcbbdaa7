package schema

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ViolationError reports a document that does not satisfy its table's
// declared schema. Field names the offending field.
type ViolationError struct {
	Table   string
	Field   string
	Message string
}

func (e *ViolationError) Error() string {
	return fmt.Sprintf("table %q, field %q: %s", e.Table, e.Field, e.Message)
}

// NewViolation builds a ViolationError for one field of one table.
func NewViolation(table, field, message string) *ViolationError {
	return &ViolationError{Table: table, Field: field, Message: message}
}

// IsViolation reports whether err is a schema violation.
func IsViolation(err error) bool {
	var ve *ViolationError
	return errors.As(err, &ve)
}

// Validate checks fields against the table's declared schema. Every
// required field must be present, and every declared field that is
// present must carry a value of the declared type. Undeclared fields
// pass unchecked. Declared fields are visited in sorted name order so
// the first violation reported is deterministic.
func Validate(tbl Table, fields map[string]any) error {
	for _, name := range tbl.FieldNames() {
		decl := tbl.Fields[name]
		value, present := fields[name]
		if !present {
			if decl.Required {
				return NewViolation(tbl.Name, name, "required field is missing")
			}
			continue
		}
		if got := kindOf(value); got != decl.Type {
			return NewViolation(tbl.Name, name, fmt.Sprintf("expected %s, got %s", decl.Type, got))
		}
	}
	return nil
}

// kindOf maps a decoded JSON value onto the declared type vocabulary.
// Numbers may arrive as json.Number from the wire or as native Go
// numerics from in-process callers.
func kindOf(v any) FieldType {
	switch v.(type) {
	case nil:
		return FieldNull
	case string:
		return FieldString
	case bool:
		return FieldBoolean
	case json.Number, float64, float32, int, int32, int64:
		return FieldNumber
	case map[string]any:
		return FieldObject
	case []any:
		return FieldArray
	default:
		return FieldType(fmt.Sprintf("%T", v))
	}
}
