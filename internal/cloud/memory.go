package cloud

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// MemoryStore is an in-process DocumentStore used by tests and local dev.
// It enforces the same per-batch limit as the real store.
type MemoryStore struct {
	batchLimit int

	mu          sync.Mutex
	collections map[string]map[string]Document
	// BatchCommits records the size of every committed batch, in order.
	BatchCommits []int
	// FailAfterBatches, when >= 0, makes that many commits succeed and the
	// next one fail. Used to exercise the partial-upload gap.
	FailAfterBatches int
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore(batchLimit int) *MemoryStore {
	return &MemoryStore{
		batchLimit:       batchLimit,
		collections:      make(map[string]map[string]Document),
		FailAfterBatches: -1,
	}
}

// Upsert stores doc under key, overwriting any previous version.
func (m *MemoryStore) Upsert(_ context.Context, collection, key string, doc Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.collection(collection)[key] = cloneDoc(doc)
	return nil
}

// Get returns the document, or nil when absent.
func (m *MemoryStore) Get(_ context.Context, collection, key string) (Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.collection(collection)[key]
	if !ok {
		return nil, nil
	}
	return cloneDoc(doc), nil
}

// Query filters by equality and sorts by the requested field.
func (m *MemoryStore) Query(_ context.Context, q Query) ([]Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var results []Document
	for _, doc := range m.collection(q.Collection) {
		if matches(doc, q.Filters) {
			results = append(results, cloneDoc(doc))
		}
	}

	if q.OrderBy != "" {
		sort.Slice(results, func(i, j int) bool {
			less := compareValues(results[i][q.OrderBy], results[j][q.OrderBy])
			if q.Descending {
				return !less
			}
			return less
		})
	}
	return results, nil
}

// NewBatch starts an empty batch bound to this store.
func (m *MemoryStore) NewBatch() Batch {
	return &memoryBatch{store: m}
}

// Count reports how many documents a collection holds.
func (m *MemoryStore) Count(collection string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.collection(collection))
}

func (m *MemoryStore) collection(name string) map[string]Document {
	if m.collections[name] == nil {
		m.collections[name] = make(map[string]Document)
	}
	return m.collections[name]
}

type batchOp struct {
	delete     bool
	collection string
	key        string
	doc        Document
}

type memoryBatch struct {
	store *MemoryStore
	ops   []batchOp
}

func (b *memoryBatch) Set(collection, key string, doc Document) {
	b.ops = append(b.ops, batchOp{collection: collection, key: key, doc: cloneDoc(doc)})
}

func (b *memoryBatch) Delete(collection, key string) {
	b.ops = append(b.ops, batchOp{delete: true, collection: collection, key: key})
}

func (b *memoryBatch) Len() int { return len(b.ops) }

func (b *memoryBatch) Commit(context.Context) error {
	if len(b.ops) > b.store.batchLimit {
		return fmt.Errorf("batch of %d exceeds limit %d", len(b.ops), b.store.batchLimit)
	}

	b.store.mu.Lock()
	defer b.store.mu.Unlock()

	if b.store.FailAfterBatches >= 0 && len(b.store.BatchCommits) >= b.store.FailAfterBatches {
		return fmt.Errorf("simulated commit failure after %d batches", b.store.FailAfterBatches)
	}

	for _, op := range b.ops {
		if op.delete {
			delete(b.store.collection(op.collection), op.key)
		} else {
			b.store.collection(op.collection)[op.key] = op.doc
		}
	}
	b.store.BatchCommits = append(b.store.BatchCommits, len(b.ops))
	return nil
}

func matches(doc Document, filters []Filter) bool {
	for _, f := range filters {
		if doc[f.Field] != f.Value {
			return false
		}
	}
	return true
}

func compareValues(a, b any) bool {
	af, aok := toFloat(a)
	bf, bok := toFloat(b)
	if aok && bok {
		return af < bf
	}
	return fmt.Sprint(a) < fmt.Sprint(b)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}

func cloneDoc(doc Document) Document {
	out := make(Document, len(doc))
	for k, v := range doc {
		out[k] = v
	}
	return out
}
