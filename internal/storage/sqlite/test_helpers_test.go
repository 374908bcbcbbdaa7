package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/roach88/shoal/internal/document"
	"github.com/roach88/shoal/internal/schema"
	"github.com/roach88/shoal/internal/storage"
)

// createTestStore creates a store backed by a throwaway database file.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createUsersTable declares a minimal users table on the store.
func createUsersTable(t *testing.T, s *Store) {
	t.Helper()
	tbl := schema.Table{
		Name: "users",
		Fields: map[string]schema.Field{
			"name": {Type: schema.FieldString, Required: true},
		},
	}
	if err := s.CreateTable(context.Background(), tbl); err != nil {
		t.Fatalf("CreateTable() failed: %v", err)
	}
}

// putUser writes one user document in its own batch.
func putUser(t *testing.T, s *Store, id string, rev int64, name string) {
	t.Helper()
	_, err := s.WriteBatch(context.Background(), "users", []storage.BatchOp{
		storage.Put{Document: document.Document{
			ID:       id,
			Revision: rev,
			Fields:   map[string]any{"name": name},
		}},
	})
	if err != nil {
		t.Fatalf("WriteBatch() failed: %v", err)
	}
}
