// Package manila is a thin persistence layer for schemaless JSON documents.
// A Document is an identity plus an open attribute bag, Server adapters move
// records in and out of concrete backends, and a Registry binds each document
// kind to the server and bucket its instances use. Documents stay valid plain
// JSON at every boundary, so any JSON-capable client can read what manila
// writes.
package manila

import (
	"context"

	"github.com/google/uuid"
)

// Document is the base entity for records living in a document store. The
// zero value is a document with no id, no type and no attributes; documents
// built by NewDocument always end up with an id.
//
// Attribute reads are forgiving (missing keys yield zero values), attribute
// writes go through Set and can fail for the computed names "json", "api" and
// "bucket". The identity is immutable once assigned: merges drop incoming
// identity keys unless the document has no id yet.
type Document struct {
	id    string
	typ   string
	attrs map[string]any
	kind  *Kind
}

// NewDocument builds a document from an optional explicit id, an optional
// document type and an optional data mapping. The identity comes from, in
// order: ident, data["_id"], data["id"], or a freshly generated UUID. The
// presence of "_id" decides the branch even when its value is unusable, in
// which case a UUID is generated rather than falling through to "id". Both
// identity keys are removed from the merged attributes, and doctype overrides
// any "type" arriving through data. Construction fails only when data holds a
// reserved attribute name.
func NewDocument(ident, doctype string, data map[string]any) (*Document, error) {
	if ident == "" && data != nil {
		if v, ok := data["_id"]; ok {
			ident = stringValue(v)
		} else if v, ok := data["id"]; ok {
			ident = stringValue(v)
		}
	}
	if ident == "" {
		ident = uuid.NewString()
	}
	doc := &Document{id: ident}
	if err := doc.UpdateWith(data); err != nil {
		return nil, err
	}
	if doctype != "" {
		doc.typ = doctype
	}
	return doc, nil
}

// ID returns the document's identity, empty for a zero-value document that
// has not adopted one yet.
func (d *Document) ID() string { return d.id }

// Type returns the document type tag, such as the kind name.
func (d *Document) Type() string { return d.typ }

// Kind returns the kind this document belongs to, nil for documents made
// directly with NewDocument.
func (d *Document) Kind() *Kind { return d.kind }

// Set assigns one attribute. The identity keys "_id" and "id" are never
// stored: they are adopted as the document id when there is none yet and
// dropped otherwise. "type" routes to the document type. The computed names
// "json", "api" and "bucket" are reserved and fail with a
// ReservedAttributeError naming the key.
func (d *Document) Set(key string, value any) error {
	switch key {
	case "_id", "id":
		if d.id == "" {
			d.id = stringValue(value)
		}
		return nil
	case "type":
		d.typ = stringValue(value)
		return nil
	case "json", "api", "bucket":
		return &ReservedAttributeError{Key: key}
	}
	if d.attrs == nil {
		d.attrs = make(map[string]any)
	}
	d.attrs[key] = value
	return nil
}

// UpdateWith merges data over the existing attributes, overwriting on key
// collision and leaving unmentioned attributes untouched. Every entry goes
// through Set, so identity extraction and the reserved names apply. A nil
// data is a no-op.
func (d *Document) UpdateWith(data map[string]any) error {
	for key, value := range data {
		if err := d.Set(key, value); err != nil {
			return err
		}
	}
	return nil
}

// Get returns the attribute stored under key and whether it was present.
func (d *Document) Get(key string) (any, bool) {
	v, ok := d.attrs[key]
	return v, ok
}

// Attr returns the attribute under key, or nil when it was never set. A
// missing attribute is not an error, callers tolerate absent optional fields.
func (d *Document) Attr(key string) any {
	return d.attrs[key]
}

// GetString returns the string under key, or "" when absent or another type.
func (d *Document) GetString(key string) string {
	if s, ok := d.attrs[key].(string); ok {
		return s
	}
	return ""
}

// GetInt returns the integer under key, converting the numeric forms JSON
// decoding produces. Absent or non-numeric values return 0.
func (d *Document) GetInt(key string) int {
	switch n := d.attrs[key].(type) {
	case int:
		return n
	case int32:
		return int(n)
	case int64:
		return int(n)
	case float64:
		return int(n)
	case float32:
		return int(n)
	}
	return 0
}

// GetFloat returns the float under key, converting integer forms. Absent or
// non-numeric values return 0.
func (d *Document) GetFloat(key string) float64 {
	if f, ok := toFloat(d.attrs[key]); ok {
		return f
	}
	return 0
}

// GetBool returns the boolean under key, false when absent or another type.
func (d *Document) GetBool(key string) bool {
	if b, ok := d.attrs[key].(bool); ok {
		return b
	}
	return false
}

// JSON returns the full serialization view: every attribute plus the identity
// under "_id" and the document type under "type" when set. Nested documents
// and slices of documents expand recursively. The full view is what adapters
// persist.
func (d *Document) JSON() map[string]any {
	out := make(map[string]any, len(d.attrs)+2)
	for key, value := range d.attrs {
		out[key] = expandValue(value)
	}
	if d.id != "" {
		out["_id"] = d.id
	}
	if d.typ != "" {
		out["type"] = d.typ
	}
	return out
}

// API returns the outward-facing view: the full view minus the given
// top-level keys. With no omissions it equals JSON, and the result embeds
// directly as a value inside larger payloads.
func (d *Document) API(omit ...string) map[string]any {
	out := d.JSON()
	for _, key := range omit {
		delete(out, key)
	}
	return out
}

// expandValue renders nested documents into their full views so a document
// graph serializes as plain JSON. Nil documents render as nulls.
func expandValue(v any) any {
	switch t := v.(type) {
	case *Document:
		if t == nil {
			return nil
		}
		return t.JSON()
	case []*Document:
		out := make([]any, 0, len(t))
		for _, doc := range t {
			if doc == nil {
				out = append(out, nil)
				continue
			}
			out = append(out, doc.JSON())
		}
		return out
	case []any:
		out := make([]any, 0, len(t))
		for _, item := range t {
			out = append(out, expandValue(item))
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(t))
		for key, item := range t {
			out[key] = expandValue(item)
		}
		return out
	}
	return v
}

// MarshalJSON encodes the full view through the module Marshaller.
func (d *Document) MarshalJSON() ([]byte, error) {
	return Marshaller.Marshal(d.JSON())
}

// UnmarshalJSON decodes data and rebuilds the document with constructor
// semantics: identity out of "_id" or "id", document type out of "type",
// everything else into the attribute bag. The kind survives the rebuild.
func (d *Document) UnmarshalJSON(data []byte) error {
	record := map[string]any{}
	if err := Unmarshaller.Unmarshal(data, &record); err != nil {
		return err
	}
	doc, err := NewDocument("", "", record)
	if err != nil {
		return err
	}
	kind := d.kind
	*d = *doc
	d.kind = kind
	return nil
}

// Load refreshes the document from its kind's bound server, merging the
// stored record over the current attributes. A record the backend does not
// know is a no-op, not an error.
func (d *Document) Load(ctx context.Context) error {
	srv, bucket, err := d.binding()
	if err != nil {
		return err
	}
	return d.LoadFrom(ctx, srv, bucket)
}

// LoadFrom is Load against an explicit server and bucket.
func (d *Document) LoadFrom(ctx context.Context, srv Server, bucket string) error {
	if d.id == "" {
		return &MissingIDError{Op: "load"}
	}
	record, err := srv.LoadDocument(ctx, bucket, d.id)
	if err != nil {
		return err
	}
	return d.UpdateWith(record)
}

// Insert persists the document through the server's batch add. The backend's
// generated id is not written back onto the document, use Kind.Insert when
// the returned ids matter.
func (d *Document) Insert(ctx context.Context) error {
	srv, bucket, err := d.binding()
	if err != nil {
		return err
	}
	return d.InsertTo(ctx, srv, bucket)
}

// InsertTo is Insert against an explicit server and bucket.
func (d *Document) InsertTo(ctx context.Context, srv Server, bucket string) error {
	_, err := srv.AddDocuments(ctx, bucket, []map[string]any{d.JSON()})
	return err
}

// Store upserts the document's full view. The backend answers with the
// authoritative id: a document that already has one fails with an
// IDMismatchError when the answer differs, a document without one adopts it.
func (d *Document) Store(ctx context.Context) error {
	srv, bucket, err := d.binding()
	if err != nil {
		return err
	}
	return d.StoreTo(ctx, srv, bucket)
}

// StoreTo is Store against an explicit server and bucket.
func (d *Document) StoreTo(ctx context.Context, srv Server, bucket string) error {
	id, err := srv.StoreDocument(ctx, bucket, d.JSON())
	if err != nil {
		return err
	}
	if d.id != "" && id != d.id {
		return &IDMismatchError{ID: d.id, Returned: id}
	}
	d.id = id
	return nil
}

// Remove deletes the document's record from the backend. The in-memory state
// stays intact, adapters reject an empty id.
func (d *Document) Remove(ctx context.Context) error {
	srv, bucket, err := d.binding()
	if err != nil {
		return err
	}
	return d.RemoveFrom(ctx, srv, bucket)
}

// RemoveFrom is Remove against an explicit server and bucket.
func (d *Document) RemoveFrom(ctx context.Context, srv Server, bucket string) error {
	return srv.RemoveDocument(ctx, bucket, d.id)
}

func (d *Document) binding() (Server, string, error) {
	if d.kind == nil {
		return nil, "", &UnboundKindError{}
	}
	return d.kind.registry.resolve(d.kind.name)
}
