package sqlite

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/roach88/shoal/internal/document"
	"github.com/roach88/shoal/internal/schema"
	"github.com/roach88/shoal/internal/storage"
)

// CreateTable registers a declared table in the catalog.
// The declared field schema is kept alongside the name so the database
// file documents itself.
func (s *Store) CreateTable(ctx context.Context, tbl schema.Table) error {
	fieldJSON, err := json.Marshal(tbl.Fields)
	if err != nil {
		return fmt.Errorf("create table: marshal fields: %w", err)
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO tables (name, field_schema)
		VALUES (?, ?)
		ON CONFLICT(name) DO NOTHING
	`, tbl.Name, string(fieldJSON))
	if err != nil {
		return fmt.Errorf("create table: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("create table: rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return storage.NewTableExists(tbl.Name)
	}

	return nil
}

// WriteBatch applies ops in order inside one transaction. A failing op
// rolls the whole batch back, leaving the table untouched.
func (s *Store) WriteBatch(ctx context.Context, table string, ops []storage.BatchOp) ([]document.Document, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("write batch: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	var exists int
	err = tx.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM tables WHERE name = ?
	`, table).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("write batch: check table: %w", err)
	}
	if exists == 0 {
		return nil, storage.NewTableNotFound(table)
	}

	written := make([]document.Document, 0, len(ops))
	for _, op := range ops {
		switch op := op.(type) {
		case storage.Put:
			fieldsJSON, err := document.MarshalCanonical(op.Document.Fields)
			if err != nil {
				return nil, fmt.Errorf("write batch: marshal fields: %w", err)
			}

			_, err = tx.ExecContext(ctx, `
				INSERT INTO documents (table_name, id, revision, fields)
				VALUES (?, ?, ?, ?)
				ON CONFLICT(table_name, id) DO UPDATE
				SET revision = excluded.revision, fields = excluded.fields
			`, table, op.Document.ID, op.Document.Revision, string(fieldsJSON))
			if err != nil {
				return nil, fmt.Errorf("write batch: put %q: %w", op.Document.ID, err)
			}
			written = append(written, op.Document)

		case storage.Delete:
			result, err := tx.ExecContext(ctx, `
				DELETE FROM documents WHERE table_name = ? AND id = ?
			`, table, op.ID)
			if err != nil {
				return nil, fmt.Errorf("write batch: delete %q: %w", op.ID, err)
			}

			rowsAffected, err := result.RowsAffected()
			if err != nil {
				return nil, fmt.Errorf("write batch: rows affected: %w", err)
			}
			if rowsAffected == 0 {
				return nil, storage.NewDocumentNotFound(table, op.ID)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("write batch: commit: %w", err)
	}

	return written, nil
}
