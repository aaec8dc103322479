package manila

import "context"

// MockServer is a Server for unit testing document code without a backend.
// Each operation passes or fails according to its Can switch, find answers
// with FoundDocuments verbatim, and every call records what it was asked so
// tests can assert on it. MockServer is not safe for concurrent use.
type MockServer struct {
	CanLoad   bool
	CanAdd    bool
	CanStore  bool
	CanRemove bool
	CanFind   bool

	// LoadedDocument is what LoadDocument answers. Nil means not found.
	LoadedDocument map[string]any
	// FoundDocuments is what FindDocuments answers.
	FoundDocuments []map[string]any
	// StoreID overrides the id StoreDocument answers. Empty echoes the
	// record's own "_id".
	StoreID string
	// AddedIDs overrides the ids AddDocuments answers. Nil collects the
	// "_id" of each record that has one.
	AddedIDs []string

	LastBucket  string
	LastID      string
	LastQuery   map[string]any
	LastRecords []map[string]any
	LastHints   FindHints
}

// NewMockServer returns a mock with every capability switched on.
func NewMockServer() *MockServer {
	return &MockServer{CanLoad: true, CanAdd: true, CanStore: true, CanRemove: true, CanFind: true}
}

func (m *MockServer) LoadDocument(ctx context.Context, bucket, id string) (map[string]any, error) {
	if !m.CanLoad {
		return nil, &NotSupportedError{Op: "load"}
	}
	if id == "" {
		return nil, &MissingIDError{Op: "load"}
	}
	m.LastBucket, m.LastID = bucket, id
	return m.LoadedDocument, nil
}

func (m *MockServer) AddDocuments(ctx context.Context, bucket string, records []map[string]any) ([]string, error) {
	if !m.CanAdd {
		return nil, &NotSupportedError{Op: "add"}
	}
	m.LastBucket, m.LastRecords = bucket, records
	if m.AddedIDs != nil {
		return m.AddedIDs, nil
	}
	var ids []string
	for _, record := range records {
		if id, ok := record["_id"]; ok {
			ids = append(ids, stringValue(id))
		}
	}
	return ids, nil
}

func (m *MockServer) StoreDocument(ctx context.Context, bucket string, record map[string]any) (string, error) {
	if !m.CanStore {
		return "", &NotSupportedError{Op: "store"}
	}
	m.LastBucket, m.LastRecords = bucket, []map[string]any{record}
	if m.StoreID != "" {
		return m.StoreID, nil
	}
	return stringValue(record["_id"]), nil
}

func (m *MockServer) RemoveDocument(ctx context.Context, bucket, id string) error {
	if !m.CanRemove {
		return &NotSupportedError{Op: "remove"}
	}
	if id == "" {
		return &MissingIDError{Op: "remove"}
	}
	m.LastBucket, m.LastID = bucket, id
	return nil
}

func (m *MockServer) FindDocuments(ctx context.Context, bucket string, query map[string]any, opts ...FindOption) ([]map[string]any, error) {
	if !m.CanFind {
		return nil, &NotSupportedError{Op: "find"}
	}
	m.LastBucket, m.LastQuery = bucket, query
	m.LastHints = CollectHints(opts...)
	return m.FoundDocuments, nil
}
