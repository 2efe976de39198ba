package mongoadapter

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// DB wraps a connected client and the application database.
type DB struct {
	Client   *mongo.Client
	Database *mongo.Database
}

// Connect opens a client for uri and verifies it with a ping.
func Connect(ctx context.Context, uri, database string) (*DB, error) {
	client, err := mongo.NewClient(options.Client().
		ApplyURI(uri).
		SetConnectTimeout(10 * time.Second).
		SetServerSelectionTimeout(5 * time.Second))
	if err != nil {
		return nil, fmt.Errorf("mongo client: %w", err)
	}
	if err := client.Connect(ctx); err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}
	return &DB{Client: client, Database: client.Database(database)}, nil
}

// Collection returns a handle on name.
func (db *DB) Collection(name string) *mongo.Collection {
	return db.Database.Collection(name)
}

// Ping checks connectivity.
func (db *DB) Ping(ctx context.Context) error {
	return db.Client.Ping(ctx, readpref.Primary())
}

// Close disconnects the client.
func (db *DB) Close(ctx context.Context) error {
	return db.Client.Disconnect(ctx)
}
