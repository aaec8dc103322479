package manila

import (
	"context"
	"sync"

	"github.com/bwmarrin/snowflake"
)

// MemoryServer keeps every bucket in process memory. Records are deep-copied
// on the way in and out, so callers never share state with the store. Ids for
// id-less records come from a snowflake node, which keeps generated ids
// sortable in generation order.
type MemoryServer struct {
	mu      sync.RWMutex
	buckets map[string]map[string]map[string]any
	node    *snowflake.Node
}

func NewMemoryServer() (*MemoryServer, error) {
	node, err := snowflake.NewNode(1)
	if err != nil {
		return nil, err
	}
	return &MemoryServer{
		buckets: make(map[string]map[string]map[string]any),
		node:    node,
	}, nil
}

// lookup returns the bucket for reading, nil when it was never written to.
func (s *MemoryServer) lookup(bucket string) map[string]map[string]any {
	return s.buckets[orDefaultBucket(bucket)]
}

// ensure returns the bucket for writing, creating it on first use. Callers
// hold the write lock.
func (s *MemoryServer) ensure(bucket string) map[string]map[string]any {
	name := orDefaultBucket(bucket)
	b, ok := s.buckets[name]
	if !ok {
		b = make(map[string]map[string]any)
		s.buckets[name] = b
	}
	return b
}

func (s *MemoryServer) LoadDocument(ctx context.Context, bucket, id string) (map[string]any, error) {
	if id == "" {
		return nil, &MissingIDError{Op: "load"}
	}
	s.mu.RLock()
	record := s.lookup(bucket)[id]
	s.mu.RUnlock()
	return copyRecord(record)
}

func (s *MemoryServer) AddDocuments(ctx context.Context, bucket string, records []map[string]any) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b := s.ensure(bucket)
	ids := make([]string, 0, len(records))
	for _, record := range records {
		id, err := s.put(b, record)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (s *MemoryServer) StoreDocument(ctx context.Context, bucket string, record map[string]any) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.put(s.ensure(bucket), record)
}

func (s *MemoryServer) put(b map[string]map[string]any, record map[string]any) (string, error) {
	stored, err := copyRecord(record)
	if err != nil {
		return "", err
	}
	if stored == nil {
		stored = map[string]any{}
	}
	id := stringValue(stored["_id"])
	if id == "" {
		id = s.node.Generate().String()
	}
	stored["_id"] = id
	b[id] = stored
	return id, nil
}

func (s *MemoryServer) RemoveDocument(ctx context.Context, bucket, id string) error {
	if id == "" {
		return &MissingIDError{Op: "remove"}
	}
	s.mu.Lock()
	delete(s.lookup(bucket), id)
	s.mu.Unlock()
	return nil
}

func (s *MemoryServer) FindDocuments(ctx context.Context, bucket string, query map[string]any, opts ...FindOption) ([]map[string]any, error) {
	hints := CollectHints(opts...)
	q, err := copyRecord(query)
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	var records []map[string]any
	for _, record := range s.lookup(bucket) {
		if !matchRecord(record, q) {
			continue
		}
		c, err := copyRecord(record)
		if err != nil {
			s.mu.RUnlock()
			return nil, err
		}
		records = append(records, c)
	}
	s.mu.RUnlock()
	if hints.SortKey == "" {
		sortRecords(records, "_id")
	}
	return applyHints(records, hints), nil
}
