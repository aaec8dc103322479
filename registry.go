package manila

import (
	"context"
	"fmt"
	"sync"
)

// binding pairs the server and bucket a document kind talks to.
type binding struct {
	server Server
	bucket string
}

// Registry maps document kind names to their server and bucket bindings.
// Construct one, hook kinds up, and hand Kind handles to the code doing CRUD.
// It is safe for concurrent use; the semantic ordering of a rebind against
// operations already in flight stays the caller's responsibility.
type Registry struct {
	mu       sync.RWMutex
	bindings map[string]*binding
}

func NewRegistry() *Registry {
	return &Registry{bindings: make(map[string]*binding)}
}

// Hookup binds kind to srv and bucket. Passing a nil srv keeps the previously
// bound server, which must exist; an empty bucket keeps the previous bucket.
// Binding a server before any bucket is legal, bound operations fail with an
// UnboundKindError until both parts are present. A rebind takes effect for
// every live Kind handle immediately.
func (r *Registry) Hookup(kind string, srv Server, bucket string) error {
	if kind == "" {
		return fmt.Errorf("cannot hook up an unnamed kind")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bindings[kind]
	if !ok {
		b = &binding{}
		r.bindings[kind] = b
	}
	if srv == nil && b.server == nil {
		return fmt.Errorf("cannot hook up kind %q without a server", kind)
	}
	if srv != nil {
		b.server = srv
	}
	if bucket != "" {
		b.bucket = bucket
	}
	return nil
}

// Kind returns a handle for name. Handles resolve their binding on every
// operation, so they can be created before Hookup and observe rebinds.
func (r *Registry) Kind(name string) *Kind {
	return &Kind{registry: r, name: name}
}

func (r *Registry) resolve(kind string) (Server, string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.bindings[kind]
	if !ok || b.server == nil {
		return nil, "", &UnboundKindError{Kind: kind, Missing: "server"}
	}
	if b.bucket == "" {
		return nil, "", &UnboundKindError{Kind: kind, Missing: "bucket"}
	}
	return b.server, b.bucket, nil
}

// Kind is a named document kind. Documents made through it carry the kind
// name as their type and use the kind's registry binding for the bound CRUD
// forms. Get handles from Registry.Kind, the zero value is not usable.
type Kind struct {
	registry *Registry
	name     string
}

func (k *Kind) Name() string { return k.name }

// New builds a document of this kind, with the kind name as document type.
func (k *Kind) New(ident string, data map[string]any) (*Document, error) {
	doc, err := NewDocument(ident, k.name, data)
	if err != nil {
		return nil, err
	}
	doc.kind = k
	return doc, nil
}

// Load fetches id from the bound bucket as a document of this kind. Loading
// an id the backend does not know yields a document holding just the id,
// since merging a missing record is a no-op.
func (k *Kind) Load(ctx context.Context, id string) (*Document, error) {
	srv, bucket, err := k.registry.resolve(k.name)
	if err != nil {
		return nil, err
	}
	return k.LoadFrom(ctx, srv, bucket, id)
}

// LoadFrom is Load against an explicit server and bucket.
func (k *Kind) LoadFrom(ctx context.Context, srv Server, bucket, id string) (*Document, error) {
	if id == "" {
		return nil, &MissingIDError{Op: "load"}
	}
	doc, err := k.New(id, nil)
	if err != nil {
		return nil, err
	}
	if err := doc.LoadFrom(ctx, srv, bucket); err != nil {
		return nil, err
	}
	return doc, nil
}

// Insert persists docs through the server's batch add and returns the ids the
// backend generated or extracted. The ids are not written back onto docs: a
// document inserted without an id keeps its empty id, callers needing it
// re-load by the returned id.
func (k *Kind) Insert(ctx context.Context, docs ...*Document) ([]string, error) {
	srv, bucket, err := k.registry.resolve(k.name)
	if err != nil {
		return nil, err
	}
	return k.InsertTo(ctx, srv, bucket, docs...)
}

// InsertTo is Insert against an explicit server and bucket.
func (k *Kind) InsertTo(ctx context.Context, srv Server, bucket string, docs ...*Document) ([]string, error) {
	records := make([]map[string]any, 0, len(docs))
	for _, doc := range docs {
		records = append(records, doc.JSON())
	}
	return srv.AddDocuments(ctx, bucket, records)
}

// Find runs query against the bound bucket and instantiates one document of
// this kind per matching record.
func (k *Kind) Find(ctx context.Context, query map[string]any, opts ...FindOption) ([]*Document, error) {
	srv, bucket, err := k.registry.resolve(k.name)
	if err != nil {
		return nil, err
	}
	return k.FindOn(ctx, srv, bucket, query, opts...)
}

// FindOn is Find against an explicit server and bucket. Every record passes
// through the document constructor, so identity extraction applies and the
// record's own "type" survives as-is.
func (k *Kind) FindOn(ctx context.Context, srv Server, bucket string, query map[string]any, opts ...FindOption) ([]*Document, error) {
	records, err := srv.FindDocuments(ctx, bucket, query, opts...)
	if err != nil {
		return nil, err
	}
	found := make([]*Document, 0, len(records))
	for _, record := range records {
		doc, err := NewDocument("", "", record)
		if err != nil {
			return nil, err
		}
		doc.kind = k
		found = append(found, doc)
	}
	return found, nil
}
