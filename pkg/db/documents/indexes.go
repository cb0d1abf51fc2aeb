package documents

import (
	"context"
	"errors"
	"log/slog"

	"github.com/case-framework/survey-engine/pkg/survey/types"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type collectionIndex struct {
	collection string
	model      mongo.IndexModel
}

var defaultIndexes = []collectionIndex{
	{
		collection: types.COLLECTION_NAME_QUESTIONS,
		model: mongo.IndexModel{
			Keys:    bson.D{{Key: "survey_id", Value: 1}, {Key: "order_index", Value: 1}},
			Options: options.Index().SetName("survey_id_1_order_index_1"),
		},
	},
	{
		collection: types.COLLECTION_NAME_RESPONSE_SESSIONS,
		model: mongo.IndexModel{
			Keys:    bson.D{{Key: "survey_id", Value: 1}, {Key: "created_at", Value: 1}},
			Options: options.Index().SetName("survey_id_1_created_at_1"),
		},
	},
	{
		collection: types.COLLECTION_NAME_RESPONSE_SESSIONS,
		model: mongo.IndexModel{
			Keys:    bson.D{{Key: "survey_id", Value: 1}, {Key: "completed_at", Value: 1}},
			Options: options.Index().SetName("survey_id_1_completed_at_1"),
		},
	},
	{
		collection: types.COLLECTION_NAME_ANSWERS,
		model: mongo.IndexModel{
			Keys:    bson.D{{Key: "session_id", Value: 1}, {Key: "question_id", Value: 1}},
			Options: options.Index().SetName("session_id_1_question_id_1").SetUnique(true),
		},
	},
	{
		collection: types.COLLECTION_NAME_SURVEY_STATS,
		model: mongo.IndexModel{
			Keys:    bson.D{{Key: "survey_id", Value: 1}, {Key: "date", Value: 1}},
			Options: options.Index().SetName("survey_id_1_date_1").SetUnique(true),
		},
	},
}

func (dbService *DocumentDBService) ensureIndexes() error {
	slog.Debug("Ensuring indexes for survey DB")
	for _, index := range defaultIndexes {
		if err := dbService.createIndexIfMissing(index); err != nil {
			slog.Error("Error creating index", slog.String("collection", index.collection), slog.String("error", err.Error()))
			return err
		}
	}
	return nil
}

// CreateDefaultIndexes creates the indexes the survey collections rely on,
// skipping those already present.
func (dbService *DocumentDBService) CreateDefaultIndexes() error {
	return dbService.ensureIndexes()
}

// ListIndexes returns the index names of every survey collection.
func (dbService *DocumentDBService) ListIndexes() (map[string][]string, error) {
	out := map[string][]string{}
	for _, name := range types.COLLECTION_NAMES {
		ctx, cancel := dbService.getContext(context.Background())
		indexes, err := collectionIndexes(ctx, dbService.collection(name))
		cancel()
		if err != nil {
			return nil, err
		}
		names := make([]string, 0, len(indexes))
		for _, idx := range indexes {
			if n, ok := idx["name"].(string); ok {
				names = append(names, n)
			}
		}
		out[name] = names
	}
	return out, nil
}

func (dbService *DocumentDBService) createIndexIfMissing(index collectionIndex) error {
	ctx, cancel := dbService.getContext(context.Background())
	defer cancel()

	coll := dbService.collection(index.collection)
	existing, err := collectionIndexes(ctx, coll)
	if err != nil {
		return err
	}
	name := *index.model.Options.Name
	for _, idx := range existing {
		if idx["name"] == name {
			return nil
		}
	}

	_, err = coll.Indexes().CreateOne(ctx, index.model)
	if err == nil {
		slog.Info("created index", slog.String("collection", index.collection), slog.String("index", name))
	}
	return err
}

// DropIndexes removes the default indexes, or every non _id index when
// dropAll is set.
func (dbService *DocumentDBService) DropIndexes(dropAll bool) {
	for _, index := range defaultIndexes {
		ctx, cancel := dbService.getContext(context.Background())
		coll := dbService.collection(index.collection)
		var err error
		if dropAll {
			_, err = coll.Indexes().DropAll(ctx)
		} else {
			_, err = coll.Indexes().DropOne(ctx, *index.model.Options.Name)
		}
		cancel()
		if err != nil {
			slog.Error("Error dropping index", slog.String("collection", index.collection), slog.String("error", err.Error()))
		}
	}
}

// collectionIndexes lists the indexes of coll. A collection that does not
// exist yet has none.
func collectionIndexes(ctx context.Context, coll *mongo.Collection) ([]bson.M, error) {
	cursor, err := coll.Indexes().List(ctx)
	if err != nil {
		var cmdErr mongo.CommandError
		if errors.As(err, &cmdErr) && (cmdErr.Code == 26 || cmdErr.Name == "NamespaceNotFound") {
			return []bson.M{}, nil
		}
		return nil, err
	}
	defer cursor.Close(ctx)

	indexes := []bson.M{}
	if err := cursor.All(ctx, &indexes); err != nil {
		return nil, err
	}
	return indexes, nil
}
