// Package schema holds the declared shape of tables: field types and
// required flags, the structural validator applied before every write, and
// the CUE compiler/loader that turns schema files into a Schema.
package schema

import "sort"

// FieldType is a declared primitive type for a table field.
type FieldType string

const (
	FieldString  FieldType = "string"
	FieldNumber  FieldType = "number"
	FieldBoolean FieldType = "boolean"
	FieldObject  FieldType = "object"
	FieldArray   FieldType = "array"
	FieldNull    FieldType = "null"
)

// ValidFieldType reports whether t is one of the declared primitive types.
func ValidFieldType(t FieldType) bool {
	switch t {
	case FieldString, FieldNumber, FieldBoolean, FieldObject, FieldArray, FieldNull:
		return true
	}
	return false
}

// Field is one declared table field.
type Field struct {
	Type     FieldType `json:"type"`
	Required bool      `json:"required"`
}

// Table is a named collection with a fixed set of declared fields.
// Fields not declared here are still accepted on write (open schema);
// declaration only adds presence and type constraints.
type Table struct {
	Name   string           `json:"name"`
	Fields map[string]Field `json:"fields"`
}

// FieldNames returns the declared field names in sorted order.
// Validation iterates in this order so error messages are deterministic.
func (t Table) FieldNames() []string {
	names := make([]string, 0, len(t.Fields))
	for name := range t.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Schema is the full set of declared tables.
type Schema struct {
	Tables map[string]Table `json:"tables"`
}

// Table looks up a declared table by name.
func (s Schema) Table(name string) (Table, bool) {
	t, ok := s.Tables[name]
	return t, ok
}

// TableNames returns the declared table names in sorted order.
func (s Schema) TableNames() []string {
	names := make([]string, 0, len(s.Tables))
	for name := range s.Tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
