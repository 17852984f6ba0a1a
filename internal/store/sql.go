package store

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// Queries is the subset of *db.Queries the SQL store needs.
type Queries interface {
	Get(ctx context.Context, name string, dest any, args ...any) error
	Exec(ctx context.Context, name string, args ...any) (sql.Result, error)
}

// SQL stores shards in the shard_entries table through named queries.
// Works with any driver the db package opens.
type SQL struct {
	queries Queries
	now     func() time.Time
}

// NewSQL wraps loaded queries. The schema must be migrated.
func NewSQL(queries Queries) *SQL {
	return &SQL{queries: queries, now: time.Now}
}

func (s *SQL) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var payload []byte
	err := s.queries.Get(ctx, "get-shard", &payload, key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if payload == nil {
		payload = []byte{}
	}
	return payload, true, nil
}

func (s *SQL) Put(ctx context.Context, key string, value []byte) error {
	if value == nil {
		value = []byte{}
	}
	_, err := s.queries.Exec(ctx, "put-shard", key, value, s.now().UTC())
	return err
}

func (s *SQL) Exists(ctx context.Context, key string) (bool, error) {
	var count int
	if err := s.queries.Get(ctx, "count-shard", &count, key); err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *SQL) Delete(ctx context.Context, key string) error {
	_, err := s.queries.Exec(ctx, "delete-shard", key)
	return err
}

// DeletePrefix removes every key starting with prefix in one statement.
// Keys never contain LIKE wildcards.
func (s *SQL) DeletePrefix(ctx context.Context, prefix string) error {
	_, err := s.queries.Exec(ctx, "delete-shards-by-prefix", prefix+"%")
	return err
}
