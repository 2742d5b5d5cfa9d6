package kv

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const mongoCollection = "kv_slots"

type mongoSlot struct {
	Key       string    `bson:"_id"`
	Value     []byte    `bson:"value"`
	UpdatedAt time.Time `bson:"updated_at"`
}

// Mongo keeps each slot as one document keyed by slot name. It does not signal other instances.
type Mongo struct {
	coll *mongo.Collection
}

// NewMongo creates a Store over database db.
func NewMongo(db *mongo.Database) *Mongo {
	return &Mongo{coll: db.Collection(mongoCollection)}
}

// ConnectMongo dials uri and verifies connectivity.
func ConnectMongo(ctx context.Context, uri string) (*mongo.Client, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}
	return client, nil
}

// Get implements Store.
func (m *Mongo) Get(ctx context.Context, key string) ([]byte, error) {
	var slot mongoSlot
	err := m.coll.FindOne(ctx, bson.M{"_id": key}).Decode(&slot)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find slot: %w", err)
	}
	return slot.Value, nil
}

// Set implements Store.
func (m *Mongo) Set(ctx context.Context, key string, value []byte) error {
	slot := mongoSlot{Key: key, Value: value, UpdatedAt: time.Now().UTC()}
	_, err := m.coll.ReplaceOne(ctx, bson.M{"_id": key}, slot, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("replace slot: %w", err)
	}
	return nil
}
