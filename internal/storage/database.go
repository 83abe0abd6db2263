package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/IshaanNene/trendscout/internal/types"
)

// MongoStore keeps product records in a MongoDB collection with a unique
// index on the natural key.
type MongoStore struct {
	client     *mongo.Client
	collection *mongo.Collection
	logger     *slog.Logger
}

// NewMongoStore connects, pings and ensures the natural-key index.
func NewMongoStore(ctx context.Context, uri, database, collection string, logger *slog.Logger) (*MongoStore, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, &types.StorageError{Backend: "mongodb", Op: "connect", Err: err}
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, &types.StorageError{Backend: "mongodb", Op: "ping", Err: err}
	}

	s := &MongoStore{
		client:     client,
		collection: client.Database(database).Collection(collection),
		logger:     logger.With("component", "mongo_storage"),
	}
	if err := s.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return s, nil
}

func (s *MongoStore) Name() string { return "mongodb" }

func (s *MongoStore) wrap(op string, err error) error {
	return &types.StorageError{Backend: s.Name(), Op: op, Err: err}
}

func (s *MongoStore) ensureIndexes(ctx context.Context) error {
	_, err := s.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "sourceUrl", Value: 1}, {Key: "sourceBrand", Value: 1}, {Key: "marketZone", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("natural_key"),
		},
		{
			Keys: bson.D{{Key: "marketZone", Value: 1}, {Key: "segment", Value: 1}, {Key: "trendScore", Value: -1}},
		},
	})
	if err != nil {
		return s.wrap("create indexes", err)
	}
	return nil
}

// mongoFilter translates f into a query document.
func mongoFilter(f Filter) bson.M {
	q := bson.M{}
	if len(f.SourceBrands) > 0 {
		in := make(bson.A, 0, len(f.SourceBrands))
		for _, b := range f.SourceBrands {
			in = append(in, primitive.Regex{Pattern: "^" + regexp.QuoteMeta(b) + "$", Options: "i"})
		}
		q["sourceBrand"] = bson.M{"$in": in}
	}
	if f.MarketZone != "" {
		q["marketZone"] = f.MarketZone
	}
	if f.Segment != "" {
		q["segment"] = f.Segment
	}
	if f.Category != "" {
		q["category"] = f.Category
	}
	if f.SourceURL != "" {
		q["sourceUrl"] = f.SourceURL
	}
	return q
}

func keyFilter(key types.RecordKey) bson.M {
	return bson.M{"sourceUrl": key.SourceURL, "sourceBrand": key.SourceBrand, "marketZone": key.MarketZone}
}

// mutableFields marshals rec without the fields an update must not touch.
func mutableFields(rec *types.ProductRecord) (bson.M, error) {
	raw, err := bson.Marshal(rec)
	if err != nil {
		return nil, err
	}
	var doc bson.M
	if err := bson.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	delete(doc, "_id")
	delete(doc, "createdAt")
	return doc, nil
}

func (s *MongoStore) FindMany(ctx context.Context, f Filter, order OrderBy, limit int) ([]*types.ProductRecord, error) {
	if !validOrder(order.Field) {
		return nil, s.wrap("find", fmt.Errorf("unsupported order field %q", order.Field))
	}
	opts := options.Find()
	if order.Field != "" {
		dir := 1
		if order.Desc {
			dir = -1
		}
		opts.SetSort(bson.D{{Key: order.Field, Value: dir}})
	}
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}

	cur, err := s.collection.Find(ctx, mongoFilter(f), opts)
	if err != nil {
		return nil, s.wrap("find", err)
	}
	defer cur.Close(ctx)

	var out []*types.ProductRecord
	if err := cur.All(ctx, &out); err != nil {
		return nil, s.wrap("decode", err)
	}
	return out, nil
}

func (s *MongoStore) Create(ctx context.Context, rec *types.ProductRecord) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	if _, err := s.collection.InsertOne(ctx, rec); err != nil {
		return s.wrap("insert", err)
	}
	return nil
}

func (s *MongoStore) Update(ctx context.Context, key types.RecordKey, rec *types.ProductRecord) error {
	set, err := mutableFields(rec)
	if err != nil {
		return s.wrap("encode", err)
	}
	res, err := s.collection.UpdateOne(ctx, keyFilter(key), bson.M{"$set": set})
	if err != nil {
		return s.wrap("update", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("update %s: %w", key, types.ErrNotFound)
	}
	return nil
}

func (s *MongoStore) Upsert(ctx context.Context, rec *types.ProductRecord) (bool, error) {
	if err := rec.Validate(); err != nil {
		return false, err
	}
	set, err := mutableFields(rec)
	if err != nil {
		return false, s.wrap("encode", err)
	}
	update := bson.M{
		"$set":         set,
		"$setOnInsert": bson.M{"_id": rec.ID, "createdAt": rec.CreatedAt},
	}
	res, err := s.collection.UpdateOne(ctx, keyFilter(rec.Key()), update, options.Update().SetUpsert(true))
	if err != nil {
		var we mongo.WriteException
		if errors.As(err, &we) && we.HasErrorCode(11000) {
			// A concurrent insert won the race; retry as a plain update.
			return false, s.Update(ctx, rec.Key(), rec)
		}
		return false, s.wrap("upsert", err)
	}
	return res.UpsertedCount > 0, nil
}

func (s *MongoStore) DeleteMany(ctx context.Context, f Filter) (int64, error) {
	res, err := s.collection.DeleteMany(ctx, mongoFilter(f))
	if err != nil {
		return 0, s.wrap("delete", err)
	}
	s.logger.Debug("records deleted", "count", res.DeletedCount)
	return res.DeletedCount, nil
}

func (s *MongoStore) Count(ctx context.Context, f Filter) (int64, error) {
	n, err := s.collection.CountDocuments(ctx, mongoFilter(f))
	if err != nil {
		return 0, s.wrap("count", err)
	}
	return n, nil
}

func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}
