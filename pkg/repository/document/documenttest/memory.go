// Package documenttest provides an in-memory document.Executor for tests.
package documenttest

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"sync"

	"github.com/nimburion/postsvc/pkg/repository/document"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MemoryExecutor keeps documents per collection in insertion order and assigns
// ObjectID identifiers like the MongoDB server does. It mirrors MongoDB semantics the
// service depends on: a zero limit means unlimited, and an update that changes nothing
// reports zero modified documents.
type MemoryExecutor struct {
	mu          sync.Mutex
	collections map[string][]document.Document
	failure     error
	calls       map[string]int
}

// NewMemoryExecutor returns an empty store.
func NewMemoryExecutor() *MemoryExecutor {
	return &MemoryExecutor{
		collections: map[string][]document.Document{},
		calls:       map[string]int{},
	}
}

// FailWith makes every following call return err. Pass nil to recover.
func (m *MemoryExecutor) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failure = err
}

// Calls returns how many times method was invoked.
func (m *MemoryExecutor) Calls(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[method]
}

// Len returns the number of documents in collection.
func (m *MemoryExecutor) Len(collection string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.collections[collection])
}

func (m *MemoryExecutor) InsertOne(_ context.Context, collection string, doc document.Document) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("InsertOne"); err != nil {
		return "", err
	}

	stored := clone(doc)
	if _, ok := stored["_id"]; !ok {
		stored["_id"] = primitive.NewObjectID()
	}
	m.collections[collection] = append(m.collections[collection], stored)

	switch id := stored["_id"].(type) {
	case primitive.ObjectID:
		return id.Hex(), nil
	default:
		return fmt.Sprint(id), nil
	}
}

func (m *MemoryExecutor) FindOne(_ context.Context, collection string, filter document.Filter) (document.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("FindOne"); err != nil {
		return nil, err
	}

	for _, doc := range m.collections[collection] {
		if matches(doc, filter) {
			return clone(doc), nil
		}
	}
	return nil, document.ErrNoDocument
}

func (m *MemoryExecutor) Find(_ context.Context, collection string, filter document.Filter, opts document.FindOptions) ([]document.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("Find"); err != nil {
		return nil, err
	}

	var found []document.Document
	for _, doc := range m.collections[collection] {
		if matches(doc, filter) {
			found = append(found, clone(doc))
		}
	}

	if len(opts.Sort) > 0 {
		sort.SliceStable(found, func(i, j int) bool {
			for _, s := range opts.Sort {
				c := compare(found[i][s.Field], found[j][s.Field])
				if c == 0 {
					continue
				}
				if s.Order == document.SortDesc {
					return c > 0
				}
				return c < 0
			}
			return false
		})
	}

	if opts.Skip >= int64(len(found)) {
		return []document.Document{}, nil
	}
	found = found[opts.Skip:]
	if opts.Limit > 0 && opts.Limit < int64(len(found)) {
		found = found[:opts.Limit]
	}
	return found, nil
}

func (m *MemoryExecutor) UpdateOne(_ context.Context, collection string, filter document.Filter, update document.Document) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("UpdateOne"); err != nil {
		return 0, err
	}

	for _, doc := range m.collections[collection] {
		if !matches(doc, filter) {
			continue
		}
		changed := false
		for k, v := range update {
			if current, ok := doc[k]; !ok || !reflect.DeepEqual(current, v) {
				doc[k] = v
				changed = true
			}
		}
		if changed {
			return 1, nil
		}
		return 0, nil
	}
	return 0, nil
}

func (m *MemoryExecutor) DeleteOne(_ context.Context, collection string, filter document.Filter) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("DeleteOne"); err != nil {
		return 0, err
	}

	docs := m.collections[collection]
	for i, doc := range docs {
		if matches(doc, filter) {
			m.collections[collection] = append(docs[:i:i], docs[i+1:]...)
			return 1, nil
		}
	}
	return 0, nil
}

// enter must be called with m.mu held.
func (m *MemoryExecutor) enter(method string) error {
	m.calls[method]++
	return m.failure
}

func matches(doc document.Document, filter document.Filter) bool {
	for k, want := range filter {
		got, ok := doc[k]
		if !ok || !reflect.DeepEqual(got, want) {
			return false
		}
	}
	return true
}

func compare(a, b interface{}) int {
	as, bs := sortKey(a), sortKey(b)
	switch {
	case as < bs:
		return -1
	case as > bs:
		return 1
	default:
		return 0
	}
}

func sortKey(v interface{}) string {
	switch t := v.(type) {
	case primitive.ObjectID:
		return t.Hex()
	case nil:
		return ""
	default:
		return fmt.Sprint(t)
	}
}

func clone(doc document.Document) document.Document {
	out := make(document.Document, len(doc))
	for k, v := range doc {
		out[k] = v
	}
	return out
}
