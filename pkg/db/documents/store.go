package documents

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/case-framework/survey-engine/pkg/docstore"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var _ docstore.Store = (*DocumentDBService)(nil)

func (dbService *DocumentDBService) FindByID(ctx context.Context, collection string, id string) (bson.Raw, error) {
	ctx, cancel := dbService.getContext(ctx)
	defer cancel()

	raw, err := dbService.collection(collection).FindOne(ctx, bson.M{"_id": id}).Raw()
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, docstore.ErrNotFound
	}
	return raw, err
}

func (dbService *DocumentDBService) Find(ctx context.Context, collection string, q docstore.Query) ([]bson.Raw, error) {
	ctx, cancel := dbService.getContext(ctx)
	defer cancel()

	filter, err := filterFromConditions(q.Conditions)
	if err != nil {
		return nil, err
	}

	opts := options.Find()
	if dbService.noCursorTimeout {
		opts.SetNoCursorTimeout(true)
	}
	if q.OrderBy != "" {
		order := 1
		if q.Direction == docstore.SORT_DESC {
			order = -1
		}
		opts.SetSort(bson.D{{Key: q.OrderBy, Value: order}})
	}

	cursor, err := dbService.collection(collection).Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	docs := []bson.Raw{}
	for cursor.Next(ctx) {
		docs = append(docs, append(bson.Raw{}, cursor.Current...))
	}
	return docs, cursor.Err()
}

func (dbService *DocumentDBService) Insert(ctx context.Context, collection string, doc bson.D) (string, error) {
	ctx, cancel := dbService.getContext(ctx)
	defer cancel()

	id, ok := stringID(doc)
	if !ok {
		id = primitive.NewObjectID().Hex()
		doc = append(bson.D{{Key: "_id", Value: id}}, doc...)
	}
	_, err := dbService.collection(collection).InsertOne(ctx, doc)
	if err != nil {
		return "", err
	}
	return id, nil
}

func (dbService *DocumentDBService) Replace(ctx context.Context, collection string, id string, doc bson.D) error {
	ctx, cancel := dbService.getContext(ctx)
	defer cancel()

	_, err := dbService.collection(collection).ReplaceOne(ctx, bson.M{"_id": id}, doc, options.Replace().SetUpsert(true))
	return err
}

func (dbService *DocumentDBService) Update(ctx context.Context, collection string, id string, set bson.D) error {
	ctx, cancel := dbService.getContext(ctx)
	defer cancel()

	res, err := dbService.collection(collection).UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	if err != nil {
		return err
	}
	if res.MatchedCount < 1 {
		return docstore.ErrNotFound
	}
	return nil
}

func (dbService *DocumentDBService) Upsert(ctx context.Context, collection string, filter []docstore.Condition, set bson.D, setOnInsert bson.D) (bson.Raw, error) {
	ctx, cancel := dbService.getContext(ctx)
	defer cancel()

	f, err := filterFromConditions(filter)
	if err != nil {
		return nil, err
	}
	if _, ok := stringID(setOnInsert); !ok {
		setOnInsert = append(bson.D{{Key: "_id", Value: primitive.NewObjectID().Hex()}}, setOnInsert...)
	}
	update := updateDocument(nil, set, setOnInsert)
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	raw, err := dbService.collection(collection).FindOneAndUpdate(ctx, f, update, opts).Raw()
	if mongo.IsDuplicateKeyError(err) {
		// a concurrent upsert inserted first; the retry matches its document
		slog.Debug("retrying upsert after duplicate key", slog.String("collection", collection))
		raw, err = dbService.collection(collection).FindOneAndUpdate(ctx, f, update, opts).Raw()
	}
	return raw, err
}

func (dbService *DocumentDBService) Increment(ctx context.Context, collection string, id string, inc bson.D, set bson.D, setOnInsert bson.D, upsert bool) (bson.Raw, error) {
	ctx, cancel := dbService.getContext(ctx)
	defer cancel()

	update := updateDocument(inc, set, setOnInsert)
	opts := options.FindOneAndUpdate().SetUpsert(upsert).SetReturnDocument(options.After)

	raw, err := dbService.collection(collection).FindOneAndUpdate(ctx, bson.M{"_id": id}, update, opts).Raw()
	if mongo.IsDuplicateKeyError(err) {
		raw, err = dbService.collection(collection).FindOneAndUpdate(ctx, bson.M{"_id": id}, update, opts).Raw()
	}
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, docstore.ErrNotFound
	}
	return raw, err
}

type changeEvent struct {
	OperationType string   `bson:"operationType"`
	FullDocument  bson.Raw `bson:"fullDocument"`
}

// Watch needs a replica set; change streams are not available on standalone
// servers.
func (dbService *DocumentDBService) Watch(ctx context.Context, collection string, id string, fn func(doc bson.Raw)) error {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.D{{Key: "documentKey._id", Value: id}}}},
	}
	stream, err := dbService.collection(collection).Watch(ctx, pipeline, options.ChangeStream().SetFullDocument(options.UpdateLookup))
	if err != nil {
		return err
	}
	defer stream.Close(context.Background())

	current, err := dbService.FindByID(ctx, collection, id)
	if err != nil && !errors.Is(err, docstore.ErrNotFound) {
		return err
	}
	fn(current)

	for stream.Next(ctx) {
		var event changeEvent
		if err := stream.Decode(&event); err != nil {
			return err
		}
		switch event.OperationType {
		case "delete":
			fn(nil)
		case "insert", "update", "replace":
			fn(event.FullDocument)
		}
	}
	if ctx.Err() != nil {
		return nil
	}
	return stream.Err()
}

func filterFromConditions(conditions []docstore.Condition) (bson.M, error) {
	if len(conditions) == 0 {
		return bson.M{}, nil
	}
	terms := bson.A{}
	for _, c := range conditions {
		var term bson.M
		switch c.Operator {
		case docstore.OP_EQUAL:
			term = bson.M{c.Field: c.Value}
		case docstore.OP_NOT_EQUAL:
			term = bson.M{c.Field: bson.M{"$ne": c.Value}}
		case docstore.OP_LESS:
			term = bson.M{c.Field: bson.M{"$lt": c.Value}}
		case docstore.OP_LESS_OR_EQUAL:
			term = bson.M{c.Field: bson.M{"$lte": c.Value}}
		case docstore.OP_GREATER:
			term = bson.M{c.Field: bson.M{"$gt": c.Value}}
		case docstore.OP_GREATER_OR_EQUAL:
			term = bson.M{c.Field: bson.M{"$gte": c.Value}}
		case docstore.OP_IN:
			term = bson.M{c.Field: bson.M{"$in": c.Value}}
		default:
			return nil, fmt.Errorf("unsupported operator %q", c.Operator)
		}
		terms = append(terms, term)
	}
	if len(terms) == 1 {
		return terms[0].(bson.M), nil
	}
	return bson.M{"$and": terms}, nil
}

// updateDocument leaves out empty operators, which MongoDB rejects.
func updateDocument(inc bson.D, set bson.D, setOnInsert bson.D) bson.D {
	update := bson.D{}
	if len(inc) > 0 {
		update = append(update, bson.E{Key: "$inc", Value: inc})
	}
	if len(set) > 0 {
		update = append(update, bson.E{Key: "$set", Value: set})
	}
	if len(setOnInsert) > 0 {
		update = append(update, bson.E{Key: "$setOnInsert", Value: setOnInsert})
	}
	return update
}

func stringID(doc bson.D) (string, bool) {
	for _, e := range doc {
		if e.Key == "_id" {
			id, ok := e.Value.(string)
			return id, ok && id != ""
		}
	}
	return "", false
}
