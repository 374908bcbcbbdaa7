// Package document defines the shared document vocabulary: the versioned
// record type stored in tables and shipped over the wire, plus the
// canonical JSON serialization used wherever byte-stable output matters
// (stored field payloads, golden traces).
package document

// Document is a versioned record in a table.
//
// ID is unique within its table. Revision is assigned by the database
// facade from a single global counter: strictly increasing across all
// documents in all tables, starting at 1, never reused. Fields holds the
// user payload; values are plain JSON values (string, json.Number, bool,
// nil, []any, map[string]any).
//
// Documents are treated as immutable once written. Fields maps are shared
// between the store and readers; callers must not mutate them.
type Document struct {
	ID       string         `json:"id"`
	Revision int64          `json:"revision"`
	Fields   map[string]any `json:"fields"`
}

// TableState describes one table for introspection: its name and how many
// documents it currently holds.
type TableState struct {
	Name          string `json:"name"`
	DocumentCount int    `json:"documentCount"`
}
