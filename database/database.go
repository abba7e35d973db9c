package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"threads/config"
	"threads/store"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	connectAttempts = 3
	retryDelay      = 2 * time.Second
)

type Mongo struct {
	Client *mongo.Client
	DB     *mongo.Database
	log    *slog.Logger
}

// ConnectMongo connects and pings, retrying a few times before giving up.
func ConnectMongo(ctx context.Context, cfg *config.Config, log *slog.Logger) (*Mongo, error) {
	var lastErr error
	for i := 1; i <= connectAttempts; i++ {
		client, err := connectOnce(ctx, cfg.MongoURI)
		if err == nil {
			log.Info("connected to MongoDB", "db", cfg.DBName, "attempt", i)
			return &Mongo{Client: client, DB: client.Database(cfg.DBName), log: log}, nil
		}
		lastErr = err
		log.Warn("MongoDB connection attempt failed", "attempt", i, "error", err)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(retryDelay):
		}
	}
	return nil, fmt.Errorf("failed to connect to MongoDB: %w", lastErr)
}

func connectOnce(ctx context.Context, uri string) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping: %w", err)
	}
	return client, nil
}

func (m *Mongo) EnsureIndexes(ctx context.Context) error {
	indexes := map[string][]mongo.IndexModel{
		store.UsersCollection: {
			{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true).SetCollation(store.UsernameCollation)},
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		store.PostsCollection: {
			{Keys: bson.D{{Key: "postedBy", Value: 1}, {Key: "createdAt", Value: -1}}},
			{Keys: bson.D{{Key: "taggedUsers", Value: 1}}},
			{Keys: bson.D{{Key: "createdAt", Value: -1}}},
		},
		store.SubscriptionsCollection: {
			{Keys: bson.D{{Key: "userId", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
	}

	for name, models := range indexes {
		if _, err := m.DB.Collection(name).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("create indexes on %s: %w", name, err)
		}
	}
	return nil
}

func (m *Mongo) Ping(ctx context.Context) error {
	return m.Client.Ping(ctx, nil)
}

func (m *Mongo) Disconnect() error {
	if m == nil || m.Client == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := m.Client.Disconnect(ctx); err != nil {
		return err
	}
	m.log.Info("disconnected from MongoDB")
	return nil
}
