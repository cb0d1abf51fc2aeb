package documents

import (
	"context"
	"log/slog"
	"time"

	"github.com/case-framework/survey-engine/pkg/db"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// DocumentDBService is the MongoDB backed document store of the survey engine.
type DocumentDBService struct {
	DBClient        *mongo.Client
	timeout         int
	noCursorTimeout bool
	DBName          string
}

func NewDocumentDBService(configs db.DBConfig) (*DocumentDBService, error) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(configs.Timeout)*time.Second)
	defer cancel()

	dbClient, err := mongo.Connect(ctx,
		options.Client().ApplyURI(configs.URI),
		options.Client().SetMaxConnIdleTime(time.Duration(configs.IdleConnTimeout)*time.Second),
		options.Client().SetMaxPoolSize(configs.MaxPoolSize),
	)

	if err != nil {
		return nil, err
	}

	ctx, conCancel := context.WithTimeout(context.Background(), time.Duration(configs.Timeout)*time.Second)
	err = dbClient.Ping(ctx, nil)
	defer conCancel()

	if err != nil {
		return nil, err
	}

	docDBSc := &DocumentDBService{
		DBClient:        dbClient,
		timeout:         configs.Timeout,
		noCursorTimeout: configs.NoCursorTimeout,
		DBName:          configs.DBName,
	}

	if configs.RunIndexCreation {
		if err := docDBSc.ensureIndexes(); err != nil {
			slog.Error("Error ensuring indexes for survey DB", slog.String("error", err.Error()))
		}
	}

	return docDBSc, nil
}

func (dbService *DocumentDBService) Close() error {
	ctx, cancel := dbService.getContext(context.Background())
	defer cancel()
	return dbService.DBClient.Disconnect(ctx)
}

func (dbService *DocumentDBService) collection(name string) *mongo.Collection {
	return dbService.DBClient.Database(dbService.DBName).Collection(name)
}

func (dbService *DocumentDBService) getContext(parent context.Context) (ctx context.Context, cancel context.CancelFunc) {
	return context.WithTimeout(parent, time.Duration(dbService.timeout)*time.Second)
}
