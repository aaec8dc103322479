package manila

import "context"

// Server is the five-operation contract every backend adapter implements.
// Adapters translate between backend-native identifiers and the string ids
// the rest of the module uses, return plain JSON-shaped records, and never
// hand out references to internal state.
//
// LoadDocument answers a missing record with (nil, nil) and rejects an empty
// id. AddDocuments persists a batch and returns one generated-or-extracted id
// per stored record. StoreDocument upserts and returns the authoritative id,
// echoing the record's own "_id" when it has one. RemoveDocument rejects an
// empty id rather than treating it as a wildcard. FindDocuments returns the
// records matching every entry of query, an empty result is not an error.
type Server interface {
	LoadDocument(ctx context.Context, bucket, id string) (map[string]any, error)
	AddDocuments(ctx context.Context, bucket string, records []map[string]any) ([]string, error)
	StoreDocument(ctx context.Context, bucket string, record map[string]any) (string, error)
	RemoveDocument(ctx context.Context, bucket, id string) error
	FindDocuments(ctx context.Context, bucket string, query map[string]any, opts ...FindOption) ([]map[string]any, error)
}

// BaseServer answers every operation with a NotSupportedError naming it.
// Partial adapters embed it and override just the operations they serve, so
// an unimplemented operation fails loudly instead of pretending it worked.
type BaseServer struct{}

func (BaseServer) LoadDocument(ctx context.Context, bucket, id string) (map[string]any, error) {
	return nil, &NotSupportedError{Op: "load"}
}

func (BaseServer) AddDocuments(ctx context.Context, bucket string, records []map[string]any) ([]string, error) {
	return nil, &NotSupportedError{Op: "add"}
}

func (BaseServer) StoreDocument(ctx context.Context, bucket string, record map[string]any) (string, error) {
	return "", &NotSupportedError{Op: "store"}
}

func (BaseServer) RemoveDocument(ctx context.Context, bucket, id string) error {
	return &NotSupportedError{Op: "remove"}
}

func (BaseServer) FindDocuments(ctx context.Context, bucket string, query map[string]any, opts ...FindOption) ([]map[string]any, error) {
	return nil, &NotSupportedError{Op: "find"}
}

// orDefaultBucket substitutes "default" for an empty bucket name, so direct
// server calls without a bucket still land somewhere deterministic.
func orDefaultBucket(bucket string) string {
	if bucket == "" {
		return "default"
	}
	return bucket
}
