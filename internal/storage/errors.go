package storage

import (
	"errors"
	"fmt"
)

// Error represents a storage failure the caller can act on.
//
// Storage errors include:
//   - Table exists: CreateTable for a name already taken
//   - Table not found: operation against an unknown table
//   - Document not found: get or delete for a missing id
//
// Kind carries the category; Table and ID name what was affected.
type Error struct {
	// Kind identifies the error category.
	Kind ErrorKind

	// Table is the affected table name.
	Table string

	// ID is the affected document id (empty for table-level errors).
	ID string

	// Message is a human-readable description.
	Message string
}

// ErrorKind categorizes storage errors.
type ErrorKind string

const (
	// KindTableExists indicates CreateTable for an existing table.
	KindTableExists ErrorKind = "TABLE_EXISTS"

	// KindTableNotFound indicates an operation against an unknown table.
	KindTableNotFound ErrorKind = "TABLE_NOT_FOUND"

	// KindDocumentNotFound indicates a get or delete for a missing id.
	KindDocumentNotFound ErrorKind = "DOCUMENT_NOT_FOUND"
)

// Error implements the error interface.
func (e *Error) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("%s: %s (table=%s, id=%s)", e.Kind, e.Message, e.Table, e.ID)
	}
	if e.Table != "" {
		return fmt.Sprintf("%s: %s (table=%s)", e.Kind, e.Message, e.Table)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// NewTableExists creates an Error for a duplicate table.
func NewTableExists(table string) *Error {
	return &Error{
		Kind:    KindTableExists,
		Table:   table,
		Message: fmt.Sprintf("table %q already exists", table),
	}
}

// NewTableNotFound creates an Error for an unknown table.
func NewTableNotFound(table string) *Error {
	return &Error{
		Kind:    KindTableNotFound,
		Table:   table,
		Message: fmt.Sprintf("table %q does not exist", table),
	}
}

// NewDocumentNotFound creates an Error for a missing document.
func NewDocumentNotFound(table, id string) *Error {
	return &Error{
		Kind:    KindDocumentNotFound,
		Table:   table,
		ID:      id,
		Message: fmt.Sprintf("document %q not found in table %q", id, table),
	}
}

// IsTableExists returns true if the error is a duplicate-table error.
// Uses errors.As to handle wrapped errors.
func IsTableExists(err error) bool {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind == KindTableExists
	}
	return false
}

// IsTableNotFound returns true if the error is an unknown-table error.
// Uses errors.As to handle wrapped errors.
func IsTableNotFound(err error) bool {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind == KindTableNotFound
	}
	return false
}

// IsDocumentNotFound returns true if the error is a missing-document
// error. Uses errors.As to handle wrapped errors.
func IsDocumentNotFound(err error) bool {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind == KindDocumentNotFound
	}
	return false
}
