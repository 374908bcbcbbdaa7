package sqlite

import (
	"context"
	"testing"

	"github.com/roach88/shoal/internal/schema"
	"github.com/roach88/shoal/internal/storage"
)

func TestGet_MissingDocument(t *testing.T) {
	s := createTestStore(t)
	createUsersTable(t, s)

	_, err := s.Get(context.Background(), "users", "nope")
	if !storage.IsDocumentNotFound(err) {
		t.Errorf("expected DOCUMENT_NOT_FOUND, got %v", err)
	}
}

func TestGet_UnknownTable(t *testing.T) {
	s := createTestStore(t)

	_, err := s.Get(context.Background(), "ghosts", "u1")
	if !storage.IsTableNotFound(err) {
		t.Errorf("expected TABLE_NOT_FOUND, got %v", err)
	}
}

func TestList_SortedByID(t *testing.T) {
	s := createTestStore(t)
	createUsersTable(t, s)

	putUser(t, s, "u3", 1, "cora")
	putUser(t, s, "u1", 2, "ada")
	putUser(t, s, "u2", 3, "bea")

	docs, err := s.List(context.Background(), "users")
	if err != nil {
		t.Fatalf("List() failed: %v", err)
	}
	if len(docs) != 3 {
		t.Fatalf("len(docs) = %d, expected 3", len(docs))
	}
	for i, want := range []string{"u1", "u2", "u3"} {
		if docs[i].ID != want {
			t.Errorf("docs[%d].ID = %q, expected %q", i, docs[i].ID, want)
		}
	}
}

func TestList_EmptyNotNil(t *testing.T) {
	s := createTestStore(t)
	createUsersTable(t, s)

	docs, err := s.List(context.Background(), "users")
	if err != nil {
		t.Fatalf("List() failed: %v", err)
	}
	if docs == nil {
		t.Error("List() returned nil slice, expected empty")
	}
	if len(docs) != 0 {
		t.Errorf("len(docs) = %d, expected 0", len(docs))
	}
}

func TestList_UnknownTable(t *testing.T) {
	s := createTestStore(t)

	_, err := s.List(context.Background(), "ghosts")
	if !storage.IsTableNotFound(err) {
		t.Errorf("expected TABLE_NOT_FOUND, got %v", err)
	}
}

func TestMaxRevision(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	max, err := s.MaxRevision(ctx)
	if err != nil {
		t.Fatalf("MaxRevision() failed: %v", err)
	}
	if max != 0 {
		t.Errorf("max = %d, expected 0 for empty database", max)
	}

	createUsersTable(t, s)
	putUser(t, s, "u1", 3, "ada")
	putUser(t, s, "u2", 7, "bea")

	max, err = s.MaxRevision(ctx)
	if err != nil {
		t.Fatalf("MaxRevision() failed: %v", err)
	}
	if max != 7 {
		t.Errorf("max = %d, expected 7", max)
	}
}

func TestListTables_CountsAndOrder(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	createUsersTable(t, s)
	if err := s.CreateTable(ctx, schema.Table{Name: "orders"}); err != nil {
		t.Fatalf("CreateTable() failed: %v", err)
	}
	putUser(t, s, "u1", 1, "ada")
	putUser(t, s, "u2", 2, "bea")

	tables, err := s.ListTables(ctx)
	if err != nil {
		t.Fatalf("ListTables() failed: %v", err)
	}
	if len(tables) != 2 {
		t.Fatalf("len(tables) = %d, expected 2", len(tables))
	}
	if tables[0].Name != "orders" || tables[0].DocumentCount != 0 {
		t.Errorf("tables[0] = %+v, expected orders with 0 documents", tables[0])
	}
	if tables[1].Name != "users" || tables[1].DocumentCount != 2 {
		t.Errorf("tables[1] = %+v, expected users with 2 documents", tables[1])
	}
}
