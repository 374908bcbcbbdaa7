package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/shoal/internal/document"
	"github.com/roach88/shoal/internal/storage"
)

// Get returns the document with id from table.
func (s *Store) Get(ctx context.Context, table, id string) (document.Document, error) {
	if err := s.requireTable(ctx, table); err != nil {
		return document.Document{}, err
	}

	var revision int64
	var fieldsJSON string
	err := s.db.QueryRowContext(ctx, `
		SELECT revision, fields FROM documents
		WHERE table_name = ? AND id = ?
	`, table, id).Scan(&revision, &fieldsJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return document.Document{}, storage.NewDocumentNotFound(table, id)
	}
	if err != nil {
		return document.Document{}, fmt.Errorf("get %q: %w", id, err)
	}

	fields, err := document.UnmarshalFields([]byte(fieldsJSON))
	if err != nil {
		return document.Document{}, fmt.Errorf("get %q: decode fields: %w", id, err)
	}

	return document.Document{ID: id, Revision: revision, Fields: fields}, nil
}

// List returns every document in table sorted by id. SQLite's default
// BINARY collation matches Go's byte-wise string order, so adapters
// agree on snapshot order.
func (s *Store) List(ctx context.Context, table string) ([]document.Document, error) {
	if err := s.requireTable(ctx, table); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, revision, fields FROM documents
		WHERE table_name = ?
		ORDER BY id ASC
	`, table)
	if err != nil {
		return nil, fmt.Errorf("list %q: %w", table, err)
	}
	defer rows.Close()

	docs := make([]document.Document, 0)
	for rows.Next() {
		var id string
		var revision int64
		var fieldsJSON string
		if err := rows.Scan(&id, &revision, &fieldsJSON); err != nil {
			return nil, fmt.Errorf("list %q: scan: %w", table, err)
		}

		fields, err := document.UnmarshalFields([]byte(fieldsJSON))
		if err != nil {
			return nil, fmt.Errorf("list %q: decode fields: %w", table, err)
		}

		docs = append(docs, document.Document{ID: id, Revision: revision, Fields: fields})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list %q: %w", table, err)
	}

	return docs, nil
}

// ListTables returns per-table document counts sorted by name.
func (s *Store) ListTables(ctx context.Context) ([]document.TableState, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT t.name, COUNT(d.id)
		FROM tables t
		LEFT JOIN documents d ON d.table_name = t.name
		GROUP BY t.name
		ORDER BY t.name ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	defer rows.Close()

	tables := make([]document.TableState, 0)
	for rows.Next() {
		var ts document.TableState
		if err := rows.Scan(&ts.Name, &ts.DocumentCount); err != nil {
			return nil, fmt.Errorf("list tables: scan: %w", err)
		}
		tables = append(tables, ts)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}

	return tables, nil
}

// MaxRevision returns the highest stored revision, or 0 for an empty
// database. Used to resume the revision counter on reopen.
func (s *Store) MaxRevision(ctx context.Context) (int64, error) {
	var max int64
	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(MAX(revision), 0) FROM documents
	`).Scan(&max)
	if err != nil {
		return 0, fmt.Errorf("max revision: %w", err)
	}
	return max, nil
}

// requireTable fails with TABLE_NOT_FOUND when the table is not in the
// catalog.
func (s *Store) requireTable(ctx context.Context, table string) error {
	var exists int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM tables WHERE name = ?
	`, table).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check table %q: %w", table, err)
	}
	if exists == 0 {
		return storage.NewTableNotFound(table)
	}
	return nil
}
