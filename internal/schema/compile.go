package schema

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
)

// CompileSchema parses a CUE value into a Schema.
// Uses CUE SDK's Go API directly (not CLI subprocess).
//
// The CUE value should be the root struct with a tables field, e.g.:
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(`tables: users: {name: string, email?: string}`)
//	s, err := CompileSchema(v)
//
// Optional fields (marked with ?) compile to Required: false. Hidden
// fields and definitions are skipped, so schema files can use _helpers
// and #Defs without them becoming tables.
func CompileSchema(v cue.Value) (Schema, error) {
	s := Schema{Tables: map[string]Table{}}

	if err := v.Err(); err != nil {
		return s, formatCUEError(err)
	}

	// Parse tables (required)
	tablesVal := v.LookupPath(cue.ParsePath("tables"))
	if !tablesVal.Exists() {
		return s, &CompileError{
			Field:   "tables",
			Message: "tables is required",
			Pos:     v.Pos(),
		}
	}

	iter, err := tablesVal.Fields()
	if err != nil {
		return s, formatCUEError(err)
	}

	for iter.Next() {
		tableName := iter.Label()
		tbl, err := parseTable(tableName, iter.Value())
		if err != nil {
			return s, err
		}
		s.Tables[tableName] = tbl
	}

	return s, nil
}

// parseTable extracts one table's field declarations.
func parseTable(name string, v cue.Value) (Table, error) {
	tbl := Table{
		Name:   name,
		Fields: make(map[string]Field),
	}

	// Optional fields compile to Required: false
	fieldIter, err := v.Fields(cue.Optional(true))
	if err != nil {
		return tbl, formatCUEError(err)
	}

	for fieldIter.Next() {
		fieldName := fieldIter.Label()
		fieldType, err := extractFieldType(name, fieldName, fieldIter.Value())
		if err != nil {
			return tbl, err
		}
		tbl.Fields[fieldName] = Field{
			Type:     fieldType,
			Required: !fieldIter.IsOptional(),
		}
	}

	return tbl, nil
}

// extractFieldType converts a CUE type to a declared field type.
// Ints and floats both map to number; documents carry JSON numbers.
func extractFieldType(table, field string, v cue.Value) (FieldType, error) {
	switch v.IncompleteKind() {
	case cue.StringKind:
		return FieldString, nil
	case cue.IntKind, cue.FloatKind, cue.NumberKind:
		return FieldNumber, nil
	case cue.BoolKind:
		return FieldBoolean, nil
	case cue.StructKind:
		return FieldObject, nil
	case cue.ListKind:
		return FieldArray, nil
	case cue.NullKind:
		return FieldNull, nil
	default:
		return "", &CompileError{
			Field:   fmt.Sprintf("tables.%s.%s", table, field),
			Message: fmt.Sprintf("unsupported type kind: %v", v.IncompleteKind()),
			Pos:     v.Pos(),
		}
	}
}

// CompileError represents a schema compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	// CUE errors may contain multiple errors
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	// Return first error with position info
	firstErr := errs[0]
	positions := errors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
