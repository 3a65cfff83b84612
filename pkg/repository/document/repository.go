// Package document implements a generic CRUD service over a document store.
//
// A resource plugs in by providing a Mapper, which converts between its typed record,
// its query type and untyped documents. The Service drives the store through an Executor
// and never sees the concrete record type's fields.
package document

import (
	"context"
	"errors"
)

// Document is the untyped key-value representation a store persists.
type Document map[string]interface{}

// Filter selects documents by field equality. Absent fields are simply not present.
type Filter map[string]interface{}

// Sort specifies field and direction for sorting results.
type Sort struct {
	Field string
	Order SortOrder
}

// SortOrder defines the direction of sorting.
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// FindOptions carries the resolved skip/limit of a list query.
// A zero Limit means no limit, matching the store's own convention.
type FindOptions struct {
	Skip  int64
	Limit int64
	Sort  []Sort
}

// ErrNoDocument is returned by Executor.FindOne when nothing matches.
var ErrNoDocument = errors.New("document: no document matches filter")

// Executor is the minimal store contract the Service needs. Implementations must be
// safe for concurrent use; one instance is shared by every request.
type Executor interface {
	// InsertOne stores doc and returns the store-assigned identifier in string form.
	InsertOne(ctx context.Context, collection string, doc Document) (string, error)
	FindOne(ctx context.Context, collection string, filter Filter) (Document, error)
	Find(ctx context.Context, collection string, filter Filter, opts FindOptions) ([]Document, error)
	// UpdateOne sets the fields of update on the first match and returns the modified count.
	UpdateOne(ctx context.Context, collection string, filter Filter, update Document) (int64, error)
	// DeleteOne removes the first match and returns the deleted count.
	DeleteOne(ctx context.Context, collection string, filter Filter) (int64, error)
}

// Mapper is the capability set a resource provides to the generic Service.
// T is the record type, Q the query type used to filter it. All methods are pure.
type Mapper[T any, Q any] interface {
	// Name is the singular resource name used in error messages, e.g. "post".
	Name() string
	// Collection is the store collection holding the resource.
	Collection() string
	// ToFilter omits every absent field. An identifier that cannot be translated to the
	// store's native id type is dropped rather than reported.
	ToFilter(query Q) Filter
	// ToDocument is the insert projection of a record.
	ToDocument(record T) Document
	// ToUpdate is ToDocument without the identifier field.
	ToUpdate(record T) Document
	// FromDocument never fails: missing or mistyped fields become absent.
	FromDocument(doc Document) T
	// SetIdentifier writes a store-assigned identifier back into the record.
	SetIdentifier(record *T, id string)
}
