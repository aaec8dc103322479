package manila

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisServer stores each record as JSON under "<bucket>:<id>" and tracks a
// bucket's ids in the set "<bucket>:__ids". Queries are matched client side
// after an MGET over the tracked keys.
type RedisServer struct {
	client *redis.Client
}

// NewRedisServer dials the configured server and pings it.
func NewRedisServer(ctx context.Context, config RedisConfig) (*RedisServer, error) {
	if err := validate.Struct(config); err != nil {
		return nil, err
	}
	client := redis.NewClient(&redis.Options{
		Addr:     config.Addr(),
		Password: config.Password,
		DB:       config.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &RedisServer{client: client}, nil
}

// NewRedisServerFromClient wraps an existing client. Tests use it to run
// against miniredis.
func NewRedisServerFromClient(client *redis.Client) *RedisServer {
	return &RedisServer{client: client}
}

func (s *RedisServer) Close() error {
	return s.client.Close()
}

func (s *RedisServer) key(bucket, id string) string {
	return orDefaultBucket(bucket) + ":" + id
}

func (s *RedisServer) idsKey(bucket string) string {
	return orDefaultBucket(bucket) + ":__ids"
}

func (s *RedisServer) LoadDocument(ctx context.Context, bucket, id string) (map[string]any, error) {
	if id == "" {
		return nil, &MissingIDError{Op: "load"}
	}
	raw, err := s.client.Get(ctx, s.key(bucket, id)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}
	record := map[string]any{}
	if err := Unmarshaller.Unmarshal(raw, &record); err != nil {
		return nil, err
	}
	return record, nil
}

func (s *RedisServer) AddDocuments(ctx context.Context, bucket string, records []map[string]any) ([]string, error) {
	ids := make([]string, 0, len(records))
	for _, record := range records {
		id, err := s.put(ctx, bucket, record)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (s *RedisServer) StoreDocument(ctx context.Context, bucket string, record map[string]any) (string, error) {
	return s.put(ctx, bucket, record)
}

func (s *RedisServer) put(ctx context.Context, bucket string, record map[string]any) (string, error) {
	id := stringValue(record["_id"])
	if id == "" {
		id = uuid.NewString()
		record = withID(record, id)
	}
	raw, err := Marshaller.Marshal(record)
	if err != nil {
		return "", err
	}
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.key(bucket, id), raw, 0)
	pipe.SAdd(ctx, s.idsKey(bucket), id)
	if _, err := pipe.Exec(ctx); err != nil {
		return "", err
	}
	return id, nil
}

func (s *RedisServer) RemoveDocument(ctx context.Context, bucket, id string) error {
	if id == "" {
		return &MissingIDError{Op: "remove"}
	}
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, s.key(bucket, id))
	pipe.SRem(ctx, s.idsKey(bucket), id)
	_, err := pipe.Exec(ctx)
	return err
}

func (s *RedisServer) FindDocuments(ctx context.Context, bucket string, query map[string]any, opts ...FindOption) ([]map[string]any, error) {
	hints := CollectHints(opts...)
	q, err := copyRecord(query)
	if err != nil {
		return nil, err
	}
	ids, err := s.client.SMembers(ctx, s.idsKey(bucket)).Result()
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}
	sort.Strings(ids)
	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, s.key(bucket, id))
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}
	var records []map[string]any
	for _, v := range values {
		raw, ok := v.(string)
		if !ok {
			continue
		}
		record := map[string]any{}
		if err := Unmarshaller.Unmarshal([]byte(raw), &record); err != nil {
			continue
		}
		if matchRecord(record, q) {
			records = append(records, record)
		}
	}
	return applyHints(records, hints), nil
}
