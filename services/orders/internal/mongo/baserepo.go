package mongo

import (
	"context"
	"fmt"
	"time"

	"github.com/appetiteclub/apt"
	"github.com/appetiteclub/apt/seed"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	defaultURL    = "mongodb://localhost:27017"
	defaultDBName = "orderboard"
)

// BaseRepo owns the MongoDB client shared by the repositories of the service.
type BaseRepo struct {
	client *mongo.Client
	db     *mongo.Database
	logger apt.Logger
	config *apt.Config
}

func NewBaseRepo(config *apt.Config, logger apt.Logger) *BaseRepo {
	if logger == nil {
		logger = apt.NewNoopLogger()
	}
	return &BaseRepo{
		logger: logger,
		config: config,
	}
}

func (r *BaseRepo) Start(ctx context.Context) error {
	connString := defaultURL
	dbName := defaultDBName
	if r.config != nil {
		connString = r.config.GetStringOrDef("db.mongo.url", defaultURL)
		dbName = r.config.GetStringOrDef("db.mongo.name", defaultDBName)
	}

	clientOptions := options.Client().ApplyURI(connString).
		SetConnectTimeout(10 * time.Second).
		SetServerSelectionTimeout(10 * time.Second)

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return fmt.Errorf("cannot connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		return fmt.Errorf("cannot ping MongoDB: %w", err)
	}

	r.client = client
	r.db = client.Database(dbName)

	r.logger.Info("connected to MongoDB", "database", dbName)
	return nil
}

func (r *BaseRepo) Stop(ctx context.Context) error {
	if r.client != nil {
		if err := r.client.Disconnect(ctx); err != nil {
			return fmt.Errorf("cannot disconnect from MongoDB: %w", err)
		}
		r.logger.Info("disconnected from MongoDB")
	}
	return nil
}

// Ping reports whether the server is reachable, for health checks.
func (r *BaseRepo) Ping(ctx context.Context) error {
	if r.client == nil {
		return fmt.Errorf("MongoDB client not started")
	}
	return r.client.Ping(ctx, nil)
}

func (r *BaseRepo) GetDatabase() *mongo.Database {
	return r.db
}

// SeedTracker records applied seeds in the service database.
func (r *BaseRepo) SeedTracker() seed.Tracker {
	return seed.NewMongoTracker(r.db)
}
