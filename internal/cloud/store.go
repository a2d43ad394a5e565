// Package cloud uploads sessions to the cloud document store and reconciles
// local state against it.
package cloud

import "context"

// Collections used in the document store.
const (
	SessionCollection = "sessions"
	SampleCollection  = "samples"
)

// DefaultBatchLimit is the store's fixed per-batch item cap.
const DefaultBatchLimit = 500

// Document is one schemaless cloud document.
type Document map[string]any

// Filter is an equality constraint on a document field.
type Filter struct {
	Field string
	Value any
}

// Query selects documents by equality filters with optional ordering.
// Every query this package issues is scoped to the owning user.
type Query struct {
	Collection string
	Filters    []Filter
	OrderBy    string
	Descending bool
}

// Batch accumulates writes and deletes committed as one atomic unit.
// Implementations reject batches above the store's item limit.
type Batch interface {
	Set(collection, key string, doc Document)
	Delete(collection, key string)
	Len() int
	Commit(ctx context.Context) error
}

// DocumentStore is the consumed cloud collaborator: deterministic-key
// upserts, capped atomic batch writes, and owner-scoped queries.
type DocumentStore interface {
	Upsert(ctx context.Context, collection, key string, doc Document) error
	Get(ctx context.Context, collection, key string) (Document, error)
	Query(ctx context.Context, q Query) ([]Document, error)
	NewBatch() Batch
}
