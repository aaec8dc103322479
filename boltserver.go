package manila

import (
	"context"
	"fmt"
	"os"
	"strings"

	"go.etcd.io/bbolt"
)

// BoltServerConfiguration configures the file-backed bolt adapter.
// DeleteNoVerify skips the environment check DropBucket performs before
// destroying a bucket.
type BoltServerConfiguration struct {
	Filename       string `validate:"required"`
	DeleteNoVerify bool
}

// BoltServer stores each contract bucket in a bbolt bucket of the same name
// inside a single database file. Records are JSON values keyed by their id,
// ids for id-less records come from the bucket sequence.
type BoltServer struct {
	db     *bbolt.DB
	config *BoltServerConfiguration
}

// NewBoltServer opens the database file, creating it when missing.
func NewBoltServer(config BoltServerConfiguration) (*BoltServer, error) {
	if err := validate.Struct(config); err != nil {
		return nil, err
	}
	db, err := bbolt.Open(config.Filename, 0600, nil)
	if err != nil {
		return nil, err
	}
	return &BoltServer{db: db, config: &config}, nil
}

// Close closes the database file.
func (s *BoltServer) Close() error {
	return s.db.Close()
}

func (s *BoltServer) LoadDocument(ctx context.Context, bucket, id string) (map[string]any, error) {
	if id == "" {
		return nil, &MissingIDError{Op: "load"}
	}
	var record map[string]any
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(orDefaultBucket(bucket)))
		if b == nil {
			return nil
		}
		value := b.Get([]byte(id))
		if value == nil {
			return nil
		}
		record = map[string]any{}
		return Unmarshaller.Unmarshal(value, &record)
	})
	if err != nil {
		return nil, err
	}
	return record, nil
}

func (s *BoltServer) AddDocuments(ctx context.Context, bucket string, records []map[string]any) ([]string, error) {
	ids := make([]string, 0, len(records))
	err := s.db.Update(func(tx *bbolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(orDefaultBucket(bucket)))
		if err != nil {
			return err
		}
		for _, record := range records {
			id, err := putBoltRecord(b, record)
			if err != nil {
				return err
			}
			ids = append(ids, id)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (s *BoltServer) StoreDocument(ctx context.Context, bucket string, record map[string]any) (string, error) {
	var id string
	err := s.db.Update(func(tx *bbolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(orDefaultBucket(bucket)))
		if err != nil {
			return err
		}
		id, err = putBoltRecord(b, record)
		return err
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

// putBoltRecord writes record under its "_id", deriving one from the bucket
// sequence when absent, and returns the id used.
func putBoltRecord(b *bbolt.Bucket, record map[string]any) (string, error) {
	id := stringValue(record["_id"])
	if id == "" {
		uniqueId, err := b.NextSequence()
		if err != nil {
			return "", err
		}
		id = fmt.Sprintf("%v", uniqueId)
		record = withID(record, id)
	}
	marshal, err := Marshaller.Marshal(record)
	if err != nil {
		return "", err
	}
	return id, b.Put([]byte(id), marshal)
}

func (s *BoltServer) RemoveDocument(ctx context.Context, bucket, id string) error {
	if id == "" {
		return &MissingIDError{Op: "remove"}
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(orDefaultBucket(bucket)))
		if b == nil {
			return nil
		}
		return b.Delete([]byte(id))
	})
}

func (s *BoltServer) FindDocuments(ctx context.Context, bucket string, query map[string]any, opts ...FindOption) ([]map[string]any, error) {
	hints := CollectHints(opts...)
	q, err := copyRecord(query)
	if err != nil {
		return nil, err
	}
	var records []map[string]any
	err = s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(orDefaultBucket(bucket)))
		if b == nil {
			return nil
		}
		collect := func(k, v []byte) error {
			record := map[string]any{}
			if err := Unmarshaller.Unmarshal(v, &record); err != nil {
				return err
			}
			if matchRecord(record, q) {
				records = append(records, record)
			}
			return nil
		}
		if hints.Descending && hints.SortKey == "" {
			return (&wrappedBucket{b}).ReverseForEach(collect)
		}
		return b.ForEach(collect)
	})
	if err != nil {
		return nil, err
	}
	if hints.SortKey != "" {
		sortRecords(records, hints.SortKey)
		if hints.Descending {
			reverseRecords(records)
		}
	}
	return pageRecords(records, hints.Skip, hints.Count), nil
}

// DropBucket deletes an entire bucket and everything in it. Unless the server
// was configured with DeleteNoVerify, the environment variable
// MANILA_ALLOW_DROP_<BUCKET> must be "true" for the drop to proceed.
func (s *BoltServer) DropBucket(bucket string) error {
	name := orDefaultBucket(bucket)
	if !s.config.DeleteNoVerify {
		env := "MANILA_ALLOW_DROP_" + strings.ToUpper(name)
		if r, _ := os.LookupEnv(env); r != "true" {
			return fmt.Errorf("drop not allowed, set environment variable %v=true to allow", env)
		}
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.DeleteBucket([]byte(name))
	})
}

type wrappedBucket struct {
	*bbolt.Bucket
}

// ReverseForEach walks the bucket from the last key back to the first.
func (b *wrappedBucket) ReverseForEach(fn func(k, v []byte) error) error {
	if b.Tx().DB() == nil {
		return fmt.Errorf("tx is closed")
	}
	c := b.Cursor()
	for k, v := c.Last(); k != nil; k, v = c.Prev() {
		if err := fn(k, v); err != nil {
			return err
		}
	}
	return nil
}
