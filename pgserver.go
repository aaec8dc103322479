package manila

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresServer keeps every bucket in a single documents table with a JSONB
// payload. Queries without dotted key paths are pushed down as a JSONB
// containment prefilter; exact equality is enforced client side either way.
type PostgresServer struct {
	pool *pgxpool.Pool
}

// NewPostgresServer connects a pool, pings it and makes sure the documents
// table exists.
func NewPostgresServer(ctx context.Context, config PostgresConfig) (*PostgresServer, error) {
	if err := validate.Struct(config); err != nil {
		return nil, err
	}
	pool, err := pgxpool.New(ctx, config.DSN())
	if err != nil {
		return nil, fmt.Errorf("postgres connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres ping: %w", err)
	}
	if _, err := pool.Exec(ctx, `CREATE TABLE IF NOT EXISTS documents (
		bucket TEXT NOT NULL,
		id TEXT NOT NULL,
		data JSONB NOT NULL,
		PRIMARY KEY (bucket, id)
	)`); err != nil {
		pool.Close()
		return nil, err
	}
	return &PostgresServer{pool: pool}, nil
}

// Close releases the connection pool.
func (s *PostgresServer) Close() {
	s.pool.Close()
}

func (s *PostgresServer) LoadDocument(ctx context.Context, bucket, id string) (map[string]any, error) {
	if id == "" {
		return nil, &MissingIDError{Op: "load"}
	}
	var raw []byte
	err := s.pool.QueryRow(ctx,
		"SELECT data FROM documents WHERE bucket = $1 AND id = $2",
		orDefaultBucket(bucket), id,
	).Scan(&raw)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	record := map[string]any{}
	if err := Unmarshaller.Unmarshal(raw, &record); err != nil {
		return nil, err
	}
	return record, nil
}

func (s *PostgresServer) AddDocuments(ctx context.Context, bucket string, records []map[string]any) ([]string, error) {
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

func (s *PostgresServer) StoreDocument(ctx context.Context, bucket string, record map[string]any) (string, error) {
	return s.upsert(ctx, bucket, record)
}

func (s *PostgresServer) upsert(ctx context.Context, bucket string, record map[string]any) (string, error) {
	id := stringValue(record["_id"])
	if id == "" {
		id = uuid.NewString()
		record = withID(record, id)
	}
	raw, err := Marshaller.Marshal(record)
	if err != nil {
		return "", err
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO documents (bucket, id, data) VALUES ($1, $2, $3)
		 ON CONFLICT (bucket, id) DO UPDATE SET data = excluded.data`,
		orDefaultBucket(bucket), id, raw,
	)
	if err != nil {
		return "", err
	}
	return id, nil
}

func (s *PostgresServer) RemoveDocument(ctx context.Context, bucket, id string) error {
	if id == "" {
		return &MissingIDError{Op: "remove"}
	}
	_, err := s.pool.Exec(ctx,
		"DELETE FROM documents WHERE bucket = $1 AND id = $2",
		orDefaultBucket(bucket), id,
	)
	return err
}

func (s *PostgresServer) FindDocuments(ctx context.Context, bucket string, query map[string]any, opts ...FindOption) ([]map[string]any, error) {
	hints := CollectHints(opts...)
	q, err := copyRecord(query)
	if err != nil {
		return nil, err
	}
	stmt := "SELECT data FROM documents WHERE bucket = $1"
	args := []any{orDefaultBucket(bucket)}
	// Containment narrows the scan but over-matches nested values (a record
	// value that is a superset still contains the queried one), so every row
	// is re-checked for equality below.
	if len(q) > 0 && !hasDottedKeys(q) {
		filter, err := Marshaller.Marshal(q)
		if err != nil {
			return nil, err
		}
		stmt += " AND data @> $2"
		args = append(args, filter)
	}
	stmt += " ORDER BY id"
	rows, err := s.pool.Query(ctx, stmt, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var records []map[string]any
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		record := map[string]any{}
		if err := Unmarshaller.Unmarshal(raw, &record); err != nil {
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

// hasDottedKeys reports whether any query key is a nested path, which JSONB
// containment cannot express directly.
func hasDottedKeys(query map[string]any) bool {
	for key := range query {
		if strings.Contains(key, ".") {
			return true
		}
	}
	return false
}
