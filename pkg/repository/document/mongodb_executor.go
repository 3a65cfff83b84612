package document

import (
	"context"
	"errors"
	"fmt"

	"github.com/nimburion/postsvc/pkg/observability/tracing"
	mongostore "github.com/nimburion/postsvc/pkg/store/mongodb"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.opentelemetry.io/otel/trace"
)

// MongoDBExecutor adapts the shared MongoDB adapter to the Executor contract.
// Every call is traced as a client span.
type MongoDBExecutor struct {
	adapter *mongostore.Adapter
}

// NewMongoDBExecutor creates a new MongoDBExecutor instance.
func NewMongoDBExecutor(adapter *mongostore.Adapter) (*MongoDBExecutor, error) {
	if adapter == nil {
		return nil, fmt.Errorf("mongodb adapter is required")
	}
	return &MongoDBExecutor{adapter: adapter}, nil
}

// InsertOne inserts doc and returns the generated _id as a hex string.
func (e *MongoDBExecutor) InsertOne(ctx context.Context, collection string, doc Document) (id string, err error) {
	ctx, span := e.span(ctx, tracing.SpanOperationInsert, collection)
	defer func() { tracing.End(span, err) }()

	result, err := e.adapter.InsertOne(ctx, collection, bson.M(doc))
	if err != nil {
		return "", err
	}
	return identifierString(result.InsertedID), nil
}

// FindOne returns ErrNoDocument when nothing matches.
func (e *MongoDBExecutor) FindOne(ctx context.Context, collection string, filter Filter) (doc Document, err error) {
	ctx, span := e.span(ctx, tracing.SpanOperationFind, collection)
	defer func() {
		if errors.Is(err, ErrNoDocument) {
			tracing.End(span, nil)
			return
		}
		tracing.End(span, err)
	}()

	out := bson.M{}
	if err := e.adapter.FindOne(ctx, collection, bson.M(filter), &out); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNoDocument
		}
		return nil, err
	}
	return Document(out), nil
}

// Find returns the documents of one page in the requested order.
func (e *MongoDBExecutor) Find(ctx context.Context, collection string, filter Filter, opts FindOptions) (docs []Document, err error) {
	ctx, span := e.span(ctx, tracing.SpanOperationFind, collection)
	defer func() { tracing.End(span, err) }()

	var out []bson.M
	if err := e.adapter.Find(ctx, collection, bson.M(filter), findOptions(opts), &out); err != nil {
		return nil, err
	}

	docs = make([]Document, 0, len(out))
	for _, d := range out {
		docs = append(docs, Document(d))
	}
	return docs, nil
}

// UpdateOne wraps update in $set and returns the modified count.
func (e *MongoDBExecutor) UpdateOne(ctx context.Context, collection string, filter Filter, update Document) (modified int64, err error) {
	ctx, span := e.span(ctx, tracing.SpanOperationUpdate, collection)
	defer func() { tracing.End(span, err) }()

	result, err := e.adapter.UpdateOne(ctx, collection, bson.M(filter), bson.M{"$set": bson.M(update)})
	if err != nil {
		return 0, err
	}
	return result.ModifiedCount, nil
}

// DeleteOne deletes a single document matching the filter.
func (e *MongoDBExecutor) DeleteOne(ctx context.Context, collection string, filter Filter) (deleted int64, err error) {
	ctx, span := e.span(ctx, tracing.SpanOperationDelete, collection)
	defer func() { tracing.End(span, err) }()

	result, err := e.adapter.DeleteOne(ctx, collection, bson.M(filter))
	if err != nil {
		return 0, err
	}
	return result.DeletedCount, nil
}

func (e *MongoDBExecutor) span(ctx context.Context, op tracing.SpanOperation, collection string) (context.Context, trace.Span) {
	return tracing.StartStoreSpan(ctx, op,
		tracing.WithCollection(collection),
		tracing.WithDatabase(e.adapter.DatabaseName()),
	)
}

func findOptions(opts FindOptions) *options.FindOptions {
	fo := options.Find().SetSkip(opts.Skip).SetLimit(opts.Limit)
	if len(opts.Sort) > 0 {
		sort := bson.D{}
		for _, s := range opts.Sort {
			dir := 1
			if s.Order == SortDesc {
				dir = -1
			}
			sort = append(sort, bson.E{Key: s.Field, Value: dir})
		}
		fo.SetSort(sort)
	}
	return fo
}

// identifierString renders an InsertedID. Only ObjectIDs are generated by the server;
// other types come from documents that carried their own _id.
func identifierString(id interface{}) string {
	switch v := id.(type) {
	case primitive.ObjectID:
		return v.Hex()
	case string:
		return v
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}
