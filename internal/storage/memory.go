package storage

import (
	"context"
	"sort"
	"sync"

	"github.com/roach88/shoal/internal/document"
	"github.com/roach88/shoal/internal/schema"
)

// Memory is an in-process Adapter backed by maps. WriteBatch applies
// ops to a copy of the table and swaps it in only when every op
// succeeded, so a failing batch never leaves partial writes behind.
type Memory struct {
	mu     sync.RWMutex
	tables map[string]map[string]document.Document
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		tables: make(map[string]map[string]document.Document),
	}
}

func (m *Memory) CreateTable(ctx context.Context, tbl schema.Table) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.tables[tbl.Name]; ok {
		return NewTableExists(tbl.Name)
	}
	m.tables[tbl.Name] = make(map[string]document.Document)
	return nil
}

func (m *Memory) WriteBatch(ctx context.Context, table string, ops []BatchOp) ([]document.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	current, ok := m.tables[table]
	if !ok {
		return nil, NewTableNotFound(table)
	}

	// Apply to a copy so a failing op leaves the table untouched.
	next := make(map[string]document.Document, len(current)+len(ops))
	for id, doc := range current {
		next[id] = doc
	}

	written := make([]document.Document, 0, len(ops))
	for _, op := range ops {
		switch op := op.(type) {
		case Put:
			next[op.Document.ID] = op.Document
			written = append(written, op.Document)
		case Delete:
			if _, ok := next[op.ID]; !ok {
				return nil, NewDocumentNotFound(table, op.ID)
			}
			delete(next, op.ID)
		}
	}

	m.tables[table] = next
	return written, nil
}

func (m *Memory) Get(ctx context.Context, table, id string) (document.Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	docs, ok := m.tables[table]
	if !ok {
		return document.Document{}, NewTableNotFound(table)
	}
	doc, ok := docs[id]
	if !ok {
		return document.Document{}, NewDocumentNotFound(table, id)
	}
	return doc, nil
}

func (m *Memory) List(ctx context.Context, table string) ([]document.Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	docs, ok := m.tables[table]
	if !ok {
		return nil, NewTableNotFound(table)
	}

	out := make([]document.Document, 0, len(docs))
	for _, doc := range docs {
		out = append(out, doc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) ListTables(ctx context.Context) ([]document.TableState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]document.TableState, 0, len(m.tables))
	for name, docs := range m.tables {
		out = append(out, document.TableState{Name: name, DocumentCount: len(docs)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *Memory) MaxRevision(ctx context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var max int64
	for _, docs := range m.tables {
		for _, doc := range docs {
			if doc.Revision > max {
				max = doc.Revision
			}
		}
	}
	return max, nil
}
