package cloud

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"example.com/wearsync/internal/domain"
)

// HTTPStore talks to the hosted document store over its REST surface.
type HTTPStore struct {
	client     *resty.Client
	batchLimit int
}

// NewHTTPStore constructs an HTTPStore against baseURL. authToken, when
// non-empty, is sent as a bearer token on every call.
func NewHTTPStore(baseURL, authToken string, batchLimit int) *HTTPStore {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(30 * time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond)
	if authToken != "" {
		client.SetAuthToken(authToken)
	}
	return &HTTPStore{client: client, batchLimit: batchLimit}
}

// Upsert writes doc under its deterministic key.
func (s *HTTPStore) Upsert(ctx context.Context, collection, key string, doc Document) error {
	resp, err := s.client.R().
		SetContext(ctx).
		SetBody(doc).
		Put(fmt.Sprintf("/v1/docs/%s/%s", collection, key))
	if err != nil {
		return err
	}
	if resp.IsError() {
		return fmt.Errorf("%w: upsert %s/%s status %d", domain.ErrCloudRejected, collection, key, resp.StatusCode())
	}
	return nil
}

// Get fetches a document, returning nil when it does not exist.
func (s *HTTPStore) Get(ctx context.Context, collection, key string) (Document, error) {
	var doc Document
	resp, err := s.client.R().
		SetContext(ctx).
		SetResult(&doc).
		Get(fmt.Sprintf("/v1/docs/%s/%s", collection, key))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode() == http.StatusNotFound {
		return nil, nil
	}
	if resp.IsError() {
		return nil, fmt.Errorf("%w: get %s/%s status %d", domain.ErrCloudRejected, collection, key, resp.StatusCode())
	}
	return doc, nil
}

type queryRequest struct {
	Filters    []queryFilter `json:"filters,omitempty"`
	OrderBy    string        `json:"orderBy,omitempty"`
	Descending bool          `json:"descending,omitempty"`
}

type queryFilter struct {
	Field string `json:"field"`
	Value any    `json:"value"`
}

type queryResponse struct {
	Documents []Document `json:"documents"`
}

// Query runs an equality query with ordering.
func (s *HTTPStore) Query(ctx context.Context, q Query) ([]Document, error) {
	req := queryRequest{OrderBy: q.OrderBy, Descending: q.Descending}
	for _, f := range q.Filters {
		req.Filters = append(req.Filters, queryFilter{Field: f.Field, Value: f.Value})
	}

	var result queryResponse
	resp, err := s.client.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&result).
		Post(fmt.Sprintf("/v1/docs/%s:query", q.Collection))
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, fmt.Errorf("%w: query %s status %d", domain.ErrCloudRejected, q.Collection, resp.StatusCode())
	}
	return result.Documents, nil
}

// NewBatch starts an empty batch bound to this store.
func (s *HTTPStore) NewBatch() Batch {
	return &httpBatch{store: s}
}

type batchWriteOp struct {
	Op         string   `json:"op"` // "set" or "delete"
	Collection string   `json:"collection"`
	Key        string   `json:"key"`
	Doc        Document `json:"doc,omitempty"`
}

type batchWriteRequest struct {
	Ops []batchWriteOp `json:"ops"`
}

type httpBatch struct {
	store *HTTPStore
	ops   []batchWriteOp
}

func (b *httpBatch) Set(collection, key string, doc Document) {
	b.ops = append(b.ops, batchWriteOp{Op: "set", Collection: collection, Key: key, Doc: doc})
}

func (b *httpBatch) Delete(collection, key string) {
	b.ops = append(b.ops, batchWriteOp{Op: "delete", Collection: collection, Key: key})
}

func (b *httpBatch) Len() int { return len(b.ops) }

func (b *httpBatch) Commit(ctx context.Context) error {
	if len(b.ops) == 0 {
		return nil
	}
	if len(b.ops) > b.store.batchLimit {
		return fmt.Errorf("batch of %d exceeds limit %d", len(b.ops), b.store.batchLimit)
	}

	resp, err := b.store.client.R().
		SetContext(ctx).
		SetBody(batchWriteRequest{Ops: b.ops}).
		Post("/v1/docs:batchWrite")
	if err != nil {
		return err
	}
	if resp.IsError() {
		return fmt.Errorf("%w: batch write status %d", domain.ErrCloudRejected, resp.StatusCode())
	}
	return nil
}
