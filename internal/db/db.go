// Package db coordinates schema validation, id and revision assignment,
// and adapter writes behind one facade. It owns the global revision
// counter; storage adapters never mint revisions themselves.
package db

import (
	"context"
	"fmt"

	"github.com/roach88/shoal/internal/document"
	"github.com/roach88/shoal/internal/schema"
	"github.com/roach88/shoal/internal/storage"
)

// Database binds a storage adapter to a declared schema. The declared
// schema is the authority on which tables exist; operations against
// undeclared tables fail before touching the adapter.
type Database struct {
	adapter   storage.Adapter
	schema    schema.Schema
	revisions *RevisionCounter
	idGen     IDGenerator
	resume    bool
}

// Option configures a Database.
type Option func(*Database)

// WithIDGenerator overrides the document id source.
// Tests use this for deterministic ids.
func WithIDGenerator(gen IDGenerator) Option {
	return func(d *Database) {
		d.idGen = gen
	}
}

// WithResume lets Init tolerate tables that already exist, so a
// durable store can be reopened across restarts. Without it, Init on
// initialized storage fails, guarding live state against accidental
// re-initialization.
func WithResume() Option {
	return func(d *Database) {
		d.resume = true
	}
}

// New builds a Database over adapter serving the declared schema.
// Call Init before use.
func New(adapter storage.Adapter, s schema.Schema, opts ...Option) *Database {
	d := &Database{
		adapter:   adapter,
		schema:    s,
		revisions: NewRevisionCounter(),
		idGen:     UUIDv7Generator{},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Init declares every schema table on the adapter and seeds the
// revision counter past the highest stored revision. Initializing
// storage that already holds the tables fails with TABLE_EXISTS
// unless the Database was built with WithResume.
func (d *Database) Init(ctx context.Context) error {
	for _, name := range d.schema.TableNames() {
		tbl := d.schema.Tables[name]
		err := d.adapter.CreateTable(ctx, tbl)
		if err != nil {
			if d.resume && storage.IsTableExists(err) {
				continue
			}
			return fmt.Errorf("init table %q: %w", name, err)
		}
	}

	max, err := d.adapter.MaxRevision(ctx)
	if err != nil {
		return fmt.Errorf("init revisions: %w", err)
	}
	d.revisions = NewRevisionCounterAt(max)

	return nil
}

// Insert validates fields against the declared schema, assigns an id
// when the caller did not provide one, stamps the next revision, and
// writes through the adapter. Inserting an existing id replaces the
// document under a fresh revision.
//
// A failed write burns the revision it drew; observed revisions may
// have gaps.
func (d *Database) Insert(ctx context.Context, table, id string, fields map[string]any) (document.Document, error) {
	tbl, ok := d.schema.Table(table)
	if !ok {
		return document.Document{}, storage.NewTableNotFound(table)
	}

	if fields == nil {
		fields = map[string]any{}
	}
	if err := schema.Validate(tbl, fields); err != nil {
		return document.Document{}, err
	}

	if id == "" {
		id = d.idGen.Generate()
	}

	doc := document.Document{
		ID:       id,
		Revision: d.revisions.Next(),
		Fields:   fields,
	}

	written, err := d.adapter.WriteBatch(ctx, table, []storage.BatchOp{
		storage.Put{Document: doc},
	})
	if err != nil {
		return document.Document{}, err
	}
	return written[0], nil
}

// Delete removes the document with id from table.
func (d *Database) Delete(ctx context.Context, table, id string) error {
	if _, ok := d.schema.Table(table); !ok {
		return storage.NewTableNotFound(table)
	}

	_, err := d.adapter.WriteBatch(ctx, table, []storage.BatchOp{
		storage.Delete{ID: id},
	})
	return err
}

// Get returns the document with id from table.
func (d *Database) Get(ctx context.Context, table, id string) (document.Document, error) {
	if _, ok := d.schema.Table(table); !ok {
		return document.Document{}, storage.NewTableNotFound(table)
	}
	return d.adapter.Get(ctx, table, id)
}

// List returns every document in table sorted by id.
func (d *Database) List(ctx context.Context, table string) ([]document.Document, error) {
	if _, ok := d.schema.Table(table); !ok {
		return nil, storage.NewTableNotFound(table)
	}
	return d.adapter.List(ctx, table)
}

// ListTables returns per-table document counts sorted by name.
func (d *Database) ListTables(ctx context.Context) ([]document.TableState, error) {
	return d.adapter.ListTables(ctx)
}

// Revision returns the last issued revision.
func (d *Database) Revision() int64 {
	return d.revisions.Current()
}
