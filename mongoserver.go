package manila

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoServer adapts a MongoDB database. Ids that are valid ObjectID hex are
// written as native ObjectIDs and handed back as hex strings, so documents
// shared with other MongoDB clients keep their native identifiers. Everything
// else stays a string id.
type MongoServer struct {
	client *mongo.Client
	db     *mongo.Database
}

// NewMongoServer dials the configured deployment and pings it.
func NewMongoServer(ctx context.Context, config MongoConfig) (*MongoServer, error) {
	if err := validate.Struct(config); err != nil {
		return nil, err
	}
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(config.URI()))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("mongo ping: %w", err)
	}
	return &MongoServer{client: client, db: client.Database(config.Database)}, nil
}

// Disconnect closes the underlying client.
func (s *MongoServer) Disconnect(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// handle returns the collection backing a bucket.
func (s *MongoServer) handle(bucket string) *mongo.Collection {
	return s.db.Collection(orDefaultBucket(bucket))
}

func (s *MongoServer) LoadDocument(ctx context.Context, bucket, id string) (map[string]any, error) {
	if id == "" {
		return nil, &MissingIDError{Op: "load"}
	}
	var m bson.M
	err := s.handle(bucket).FindOne(ctx, bson.M{"_id": mongoID(id)}).Decode(&m)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return normalizeMongoRecord(m)
}

func (s *MongoServer) AddDocuments(ctx context.Context, bucket string, records []map[string]any) ([]string, error) {
	if len(records) == 0 {
		return nil, nil
	}
	docs := make([]any, 0, len(records))
	for _, record := range records {
		docs = append(docs, withMongoID(record))
	}
	res, err := s.handle(bucket).InsertMany(ctx, docs)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(res.InsertedIDs))
	for _, v := range res.InsertedIDs {
		ids = append(ids, recordID(v))
	}
	return ids, nil
}

func (s *MongoServer) StoreDocument(ctx context.Context, bucket string, record map[string]any) (string, error) {
	prepared := withMongoID(record)
	id, ok := prepared["_id"]
	if !ok || id == nil || id == "" {
		oid := primitive.NewObjectID()
		out := make(map[string]any, len(prepared)+1)
		for k, v := range prepared {
			out[k] = v
		}
		out["_id"] = oid
		prepared, id = out, oid
	}
	_, err := s.handle(bucket).ReplaceOne(ctx, bson.M{"_id": id}, prepared,
		options.Replace().SetUpsert(true))
	if err != nil {
		return "", err
	}
	return recordID(id), nil
}

func (s *MongoServer) RemoveDocument(ctx context.Context, bucket, id string) error {
	if id == "" {
		return &MissingIDError{Op: "remove"}
	}
	_, err := s.handle(bucket).DeleteOne(ctx, bson.M{"_id": mongoID(id)})
	return err
}

func (s *MongoServer) FindDocuments(ctx context.Context, bucket string, query map[string]any, opts ...FindOption) ([]map[string]any, error) {
	hints := CollectHints(opts...)
	filter := bson.M{}
	for key, value := range query {
		if key == "_id" {
			filter[key] = mongoID(stringValue(value))
			continue
		}
		filter[key] = value
	}
	findOpts := options.Find()
	if hints.Skip > 0 {
		findOpts.SetSkip(int64(hints.Skip))
	}
	if hints.Count > 0 {
		findOpts.SetLimit(int64(hints.Count))
	}
	direction := 1
	if hints.Descending {
		direction = -1
	}
	if hints.SortKey != "" {
		findOpts.SetSort(bson.D{{Key: hints.SortKey, Value: direction}})
	} else if hints.Descending {
		findOpts.SetSort(bson.D{{Key: "$natural", Value: -1}})
	}
	cur, err := s.handle(bucket).Find(ctx, filter, findOpts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var records []map[string]any
	for cur.Next(ctx) {
		var m bson.M
		if err := cur.Decode(&m); err != nil {
			return nil, err
		}
		record, err := normalizeMongoRecord(m)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	if err := cur.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

// mongoID renders a contract id in the form the backend indexes it under:
// ObjectID when the string is valid hex, the string itself otherwise.
func mongoID(id string) any {
	if oid, err := primitive.ObjectIDFromHex(id); err == nil {
		return oid
	}
	return id
}

// withMongoID returns a copy of record with a hex "_id" rewritten to its
// ObjectID form. Records without a coercible id pass through untouched.
func withMongoID(record map[string]any) map[string]any {
	id, ok := record["_id"].(string)
	if !ok {
		return record
	}
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return record
	}
	out := make(map[string]any, len(record))
	for k, v := range record {
		out[k] = v
	}
	out["_id"] = oid
	return out
}

// recordID renders a backend identifier to the contract's string form.
func recordID(v any) string {
	switch t := v.(type) {
	case primitive.ObjectID:
		return t.Hex()
	case string:
		return t
	default:
		return fmt.Sprint(v)
	}
}

// normalizeMongoRecord converts a decoded BSON document into the plain JSON
// shape the contract promises, with "_id" as a string.
func normalizeMongoRecord(m bson.M) (map[string]any, error) {
	if m == nil {
		return nil, nil
	}
	if v, ok := m["_id"]; ok {
		m["_id"] = recordID(v)
	}
	return copyRecord(map[string]any(m))
}
