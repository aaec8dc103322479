package manila

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// SQLiteServer keeps every bucket in a single documents table inside one
// SQLite database file:
//
//	documents(bucket, id, data)  PRIMARY KEY (bucket, id)
//
// Records travel as JSON text in the data column. Queries are matched client
// side after scanning the bucket in id order.
type SQLiteServer struct {
	db *sql.DB
}

// NewSQLiteServer opens (creating when missing) the database file and makes
// sure the documents table exists.
func NewSQLiteServer(path string) (*SQLiteServer, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, err
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS documents (
		bucket TEXT NOT NULL,
		id TEXT NOT NULL,
		data TEXT NOT NULL,
		PRIMARY KEY (bucket, id)
	)`); err != nil {
		db.Close()
		return nil, err
	}
	return &SQLiteServer{db: db}, nil
}

func (s *SQLiteServer) Close() error {
	return s.db.Close()
}

func (s *SQLiteServer) LoadDocument(ctx context.Context, bucket, id string) (map[string]any, error) {
	if id == "" {
		return nil, &MissingIDError{Op: "load"}
	}
	var raw string
	err := s.db.QueryRowContext(ctx,
		"SELECT data FROM documents WHERE bucket = ? AND id = ?",
		orDefaultBucket(bucket), id,
	).Scan(&raw)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	record := map[string]any{}
	if err := Unmarshaller.Unmarshal([]byte(raw), &record); err != nil {
		return nil, err
	}
	return record, nil
}

func (s *SQLiteServer) AddDocuments(ctx context.Context, bucket string, records []map[string]any) ([]string, error) {
	ids := make([]string, 0, len(records))
	for _, record := range records {
		id, err := s.upsert(ctx, bucket, record)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (s *SQLiteServer) StoreDocument(ctx context.Context, bucket string, record map[string]any) (string, error) {
	return s.upsert(ctx, bucket, record)
}

func (s *SQLiteServer) upsert(ctx context.Context, bucket string, record map[string]any) (string, error) {
	id := stringValue(record["_id"])
	if id == "" {
		id = uuid.NewString()
		record = withID(record, id)
	}
	raw, err := Marshaller.Marshal(record)
	if err != nil {
		return "", err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO documents (bucket, id, data) VALUES (?, ?, ?)
		 ON CONFLICT(bucket, id) DO UPDATE SET data = excluded.data`,
		orDefaultBucket(bucket), id, string(raw),
	)
	if err != nil {
		return "", err
	}
	return id, nil
}

func (s *SQLiteServer) RemoveDocument(ctx context.Context, bucket, id string) error {
	if id == "" {
		return &MissingIDError{Op: "remove"}
	}
	_, err := s.db.ExecContext(ctx,
		"DELETE FROM documents WHERE bucket = ? AND id = ?",
		orDefaultBucket(bucket), id,
	)
	return err
}

func (s *SQLiteServer) FindDocuments(ctx context.Context, bucket string, query map[string]any, opts ...FindOption) ([]map[string]any, error) {
	hints := CollectHints(opts...)
	q, err := copyRecord(query)
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		"SELECT data FROM documents WHERE bucket = ? ORDER BY id",
		orDefaultBucket(bucket),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var records []map[string]any
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		record := map[string]any{}
		if err := Unmarshaller.Unmarshal([]byte(raw), &record); err != nil {
			continue
		}
		if matchRecord(record, q) {
			records = append(records, record)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return applyHints(records, hints), nil
}
