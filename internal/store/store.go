// Package store holds compiled shards. Backends only move bytes; key layout
// is defined below and payload encoding lives in decorators such as
// Compressed.
package store

import (
	"context"
	"strings"

	"github.com/solatis/browscap/internal/types"
)

// Store is a flat key/value cache. Get reports a missing key as
// (nil, false, nil), never as an error. Implementations must be safe for
// concurrent use and must not retry internally.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Put(ctx context.Context, key string, value []byte) error
	Exists(ctx context.Context, key string) (bool, error)
	Delete(ctx context.Context, key string) error
}

// Key layout:
//
//	browscap.current                                  published Metadata (JSON)
//	browscap.<version>.<build>.patterns.<shard>       pattern groups
//	browscap.<version>.<build>.iniparts.<shard>       property records
const (
	KeyPrefix  = "browscap"
	CurrentKey = KeyPrefix + ".current"
)

// ShardKey addresses one shard of one dataset.
func ShardKey(meta types.Metadata, index, id string) string {
	return NamespacePrefix(meta) + index + "." + id
}

// NamespacePrefix is the common prefix of every shard key of meta.
func NamespacePrefix(meta types.Metadata) string {
	return KeyPrefix + "." + meta.Namespace() + "."
}

// IsShardKey reports whether key belongs to a dataset namespace rather than
// being the published pointer.
func IsShardKey(key string) bool {
	return key != CurrentKey && strings.HasPrefix(key, KeyPrefix+".")
}
