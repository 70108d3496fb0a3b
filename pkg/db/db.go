package db

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"scrapejob/pkg/domain"
)

// Client wraps the MongoDB client and database connection. Each table name
// maps to a collection; records are keyed by _id = record id.
type Client struct {
	mongoClient *mongo.Client
	database    *mongo.Database
}

// NewClient creates a new database client
func NewClient(connectionString, databaseName string) *Client {
	clientOptions := options.Client().ApplyURI(connectionString)
	mongoClient, err := mongo.Connect(context.Background(), clientOptions)
	if err != nil {
		// Return client with nil - error will be caught during Connect()
		return &Client{}
	}

	return &Client{
		mongoClient: mongoClient,
		database:    mongoClient.Database(databaseName),
	}
}

// Connect establishes connection to MongoDB
func (c *Client) Connect(ctx context.Context) error {
	if c.mongoClient == nil {
		return fmt.Errorf("mongo client not initialized")
	}
	return c.mongoClient.Ping(ctx, nil)
}

// Close closes the MongoDB connection
func (c *Client) Close() error {
	if c.mongoClient == nil {
		return nil
	}
	return c.mongoClient.Disconnect(context.Background())
}

// PutRecord upserts rec into the collection named table.
func (c *Client) PutRecord(ctx context.Context, table string, rec domain.Record) error {
	if c.database == nil {
		return fmt.Errorf("database not initialized")
	}
	if err := checkRecord(table, rec); err != nil {
		return err
	}

	doc := bson.M{}
	for k, v := range rec {
		doc[k] = v
	}
	doc["_id"] = string(rec.ID())

	filter := bson.M{"_id": doc["_id"]}
	opts := options.Replace().SetUpsert(true)

	if _, err := c.database.Collection(table).ReplaceOne(ctx, filter, doc, opts); err != nil {
		return fmt.Errorf("upsert %s into %s: %w", rec.ID(), table, err)
	}
	return nil
}
