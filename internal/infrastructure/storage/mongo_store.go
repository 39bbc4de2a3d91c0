package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"NewsCurator/internal/domain"
	"NewsCurator/internal/ports"
)

// MongoStore keeps post records in a MongoDB collection.
type MongoStore struct {
	client  *mongo.Client
	records *mongo.Collection
}

var _ ports.RecordStore = (*MongoStore)(nil)

// OpenMongo connects, pings and ensures the url index.
func OpenMongo(ctx context.Context, uri, database, collection string) (*MongoStore, error) {
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	store := &MongoStore{
		client:  client,
		records: client.Database(database).Collection(collection),
	}

	_, err = store.records.Indexes().CreateMany(connectCtx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "url", Value: 1}}},
		{Keys: bson.D{{Key: "timestamp", Value: 1}}},
	})
	if err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("create mongo indexes: %w", err)
	}

	return store, nil
}

// Put inserts record with key as its document ID.
func (m *MongoStore) Put(ctx context.Context, key string, record domain.PostRecord) error {
	record.ID = key
	if _, err := m.records.InsertOne(ctx, record); err != nil {
		return fmt.Errorf("insert record: %w", err)
	}
	return nil
}

// GetAll returns every record ordered by timestamp.
func (m *MongoStore) GetAll(ctx context.Context) ([]domain.PostRecord, error) {
	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: 1}})
	cursor, err := m.records.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("find records: %w", err)
	}
	defer cursor.Close(ctx)

	var records []domain.PostRecord
	if err := cursor.All(ctx, &records); err != nil {
		return nil, fmt.Errorf("decode records: %w", err)
	}
	return records, nil
}

// ExistsByField reports whether any document has value in field.
func (m *MongoStore) ExistsByField(ctx context.Context, field domain.RecordField, value string) (bool, error) {
	if _, ok := recordColumns[field]; !ok {
		return false, fmt.Errorf("unsupported record field %q", field)
	}

	err := m.records.FindOne(ctx, bson.M{string(field): value}).Err()
	if errors.Is(err, mongo.ErrNoDocuments) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("find %s: %w", field, err)
	}
	return true, nil
}

// Close disconnects the client.
func (m *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return m.client.Disconnect(ctx)
}
