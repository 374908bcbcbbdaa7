// Package storage defines the document storage contract shared by the
// in-memory and sqlite adapters. Writes are batched and atomic: a batch
// either fully applies or leaves the table untouched. Failures surface
// as typed errors the engine maps onto wire error codes.
package storage

import (
	"context"

	"github.com/roach88/shoal/internal/document"
	"github.com/roach88/shoal/internal/schema"
)

// BatchOp is one operation inside a write batch.
// Implementations are Put and Delete.
type BatchOp interface {
	batchOp()
}

// Put inserts the document, replacing any existing document with the
// same id.
type Put struct {
	Document document.Document
}

// Delete removes the document with ID. Deleting a missing id fails the
// whole batch.
type Delete struct {
	ID string
}

func (Put) batchOp()    {}
func (Delete) batchOp() {}

// Adapter stores documents grouped into named tables. Tables must be
// created before they are written or read; operations against unknown
// tables fail with a TABLE_NOT_FOUND error.
type Adapter interface {
	// CreateTable registers tbl under its name. Creating a table that
	// already exists fails with TABLE_EXISTS.
	CreateTable(ctx context.Context, tbl schema.Table) error

	// WriteBatch applies ops in order as a single atomic unit and
	// returns the documents written by Put ops, in op order. If any
	// op fails the table is left exactly as it was.
	WriteBatch(ctx context.Context, table string, ops []BatchOp) ([]document.Document, error)

	// Get returns the document with id, or DOCUMENT_NOT_FOUND.
	Get(ctx context.Context, table, id string) (document.Document, error)

	// List returns every document in the table sorted by id.
	// The slice is never nil.
	List(ctx context.Context, table string) ([]document.Document, error)

	// ListTables returns per-table document counts sorted by name.
	ListTables(ctx context.Context) ([]document.TableState, error)

	// MaxRevision returns the highest revision stored across all
	// tables, or 0 when no documents exist. Callers use it to resume
	// the revision counter when reopening a durable store.
	MaxRevision(ctx context.Context) (int64, error)
}
