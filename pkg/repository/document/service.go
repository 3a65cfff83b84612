package document

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nimburion/postsvc/pkg/apperror"
	"github.com/nimburion/postsvc/pkg/observability/logger"
	"github.com/nimburion/postsvc/pkg/observability/metrics"
)

// Operation names used for logs and metrics.
const (
	OperationGetOne  = "get_one"
	OperationGetMany = "get_many"
	OperationCreate  = "create"
	OperationUpdate  = "update"
	OperationDelete  = "delete"
)

// Service maps the five CRUD verbs of one resource onto an Executor.
// It holds no per-request state and is safe for concurrent use.
type Service[T any, Q any] struct {
	executor Executor
	mapper   Mapper[T, Q]
	logger   logger.Logger
	sort     []Sort
}

// Option configures a Service.
type Option func(*serviceOptions)

type serviceOptions struct {
	sort []Sort
}

// WithSort orders GetMany results. Without it the store's natural order is used.
func WithSort(sort ...Sort) Option {
	return func(o *serviceOptions) { o.sort = append(o.sort, sort...) }
}

// NewService creates a Service for the resource described by mapper.
func NewService[T any, Q any](executor Executor, mapper Mapper[T, Q], log logger.Logger, opts ...Option) (*Service[T, Q], error) {
	if executor == nil {
		return nil, fmt.Errorf("document executor is required")
	}
	if mapper == nil {
		return nil, fmt.Errorf("document mapper is required")
	}
	if log == nil {
		return nil, fmt.Errorf("logger is required")
	}

	o := &serviceOptions{}
	for _, opt := range opts {
		opt(o)
	}

	return &Service[T, Q]{
		executor: executor,
		mapper:   mapper,
		logger:   log.With("collection", mapper.Collection()),
		sort:     o.sort,
	}, nil
}

// Name returns the resource name.
func (s *Service[T, Q]) Name() string {
	return s.mapper.Name()
}

// GetOne returns the first record matching query, or a NotFound error.
func (s *Service[T, Q]) GetOne(ctx context.Context, query Q) (result T, err error) {
	defer s.observe(ctx, OperationGetOne, time.Now(), &err)
	return s.findOne(ctx, OperationGetOne, query)
}

// GetMany returns one page of records matching query. Zero matches is an empty slice.
func (s *Service[T, Q]) GetMany(ctx context.Context, query Q, page Pagination) (results []T, err error) {
	defer s.observe(ctx, OperationGetMany, time.Now(), &err)

	opts := page.FindOptions(s.sort...)
	docs, err := s.executor.Find(ctx, s.mapper.Collection(), s.mapper.ToFilter(query), opts)
	if err != nil {
		return nil, s.storeError(OperationGetMany, err)
	}

	results = make([]T, 0, len(docs))
	for _, doc := range docs {
		results = append(results, s.mapper.FromDocument(doc))
	}
	return results, nil
}

// Create inserts record and returns it carrying the store-assigned identifier.
func (s *Service[T, Q]) Create(ctx context.Context, record T) (result T, err error) {
	defer s.observe(ctx, OperationCreate, time.Now(), &err)

	id, err := s.executor.InsertOne(ctx, s.mapper.Collection(), s.mapper.ToDocument(record))
	if err != nil {
		return result, s.storeError(OperationCreate, err)
	}
	if id == "" {
		return result, apperror.Internal(fmt.Sprintf("store returned an empty identifier for new %s", s.mapper.Name()), nil)
	}

	s.mapper.SetIdentifier(&record, id)
	return record, nil
}

// Update sets the mutable fields of record on the first document matching query, then
// re-reads it with the same query. Zero modified documents is NotFound.
//
// The re-read only finds the document again if query still matches after the update,
// which always holds when query selects by identifier alone.
func (s *Service[T, Q]) Update(ctx context.Context, query Q, record T) (result T, err error) {
	defer s.observe(ctx, OperationUpdate, time.Now(), &err)

	update := s.mapper.ToUpdate(record)
	if len(update) == 0 {
		return result, apperror.BadRequest(fmt.Sprintf("update of %s has no fields to set", s.mapper.Name()), nil)
	}

	modified, err := s.executor.UpdateOne(ctx, s.mapper.Collection(), s.mapper.ToFilter(query), update)
	if err != nil {
		return result, s.storeError(OperationUpdate, err)
	}
	if modified == 0 {
		return result, s.notFound(query)
	}

	return s.findOne(ctx, OperationUpdate, query)
}

// Delete removes the first document matching query. Zero deleted documents is NotFound,
// so a repeated delete of the same identifier fails.
func (s *Service[T, Q]) Delete(ctx context.Context, query Q) (err error) {
	defer s.observe(ctx, OperationDelete, time.Now(), &err)

	deleted, err := s.executor.DeleteOne(ctx, s.mapper.Collection(), s.mapper.ToFilter(query))
	if err != nil {
		return s.storeError(OperationDelete, err)
	}
	if deleted == 0 {
		return s.notFound(query)
	}
	return nil
}

func (s *Service[T, Q]) findOne(ctx context.Context, operation string, query Q) (result T, err error) {
	doc, err := s.executor.FindOne(ctx, s.mapper.Collection(), s.mapper.ToFilter(query))
	if errors.Is(err, ErrNoDocument) {
		return result, s.notFound(query)
	}
	if err != nil {
		return result, s.storeError(operation, err)
	}
	return s.mapper.FromDocument(doc), nil
}

// notFound renders the attempted query as JSON so the caller can see what was searched.
func (s *Service[T, Q]) notFound(query Q) error {
	encoded, err := json.Marshal(query)
	if err != nil {
		return apperror.Internal(fmt.Sprintf("failed to serialize %s query", s.mapper.Name()), err)
	}
	return apperror.NotFound(fmt.Sprintf("A %s with given filter: '%s' not found", s.mapper.Name(), encoded)).
		WithDetails(map[string]interface{}{
			"resource": s.mapper.Name(),
			"filter":   json.RawMessage(encoded),
		})
}

func (s *Service[T, Q]) storeError(operation string, err error) error {
	s.logger.Error("document store operation failed", "operation", operation, "error", err)
	return apperror.Store(err)
}

func (s *Service[T, Q]) observe(ctx context.Context, operation string, start time.Time, errp *error) {
	elapsed := time.Since(start)
	outcome := outcomeOf(*errp)
	metrics.RecordDocumentOperation(s.mapper.Collection(), operation, outcome, elapsed)
	s.logger.WithContext(ctx).Debug("document operation",
		"operation", operation,
		"outcome", outcome,
		"duration_ms", elapsed.Milliseconds(),
	)
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeSuccess
	case apperror.IsNotFound(err):
		return metrics.OutcomeNotFound
	case apperror.HasCode(err, apperror.CodeBadRequest):
		return metrics.OutcomeBadRequest
	default:
		return metrics.OutcomeError
	}
}
