package types

import (
	"errors"
	"fmt"
)

// Sentinel errors for browscap operations.
var (
	// ErrInvalidArgument indicates a caller supplied a value outside the
	// closed domain of an operation.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrUnknownProperty indicates a property name missing from the typing
	// table. Wraps ErrInvalidArgument.
	ErrUnknownProperty = fmt.Errorf("%w: unknown property", ErrInvalidArgument)

	// ErrStructure indicates the definitions text cannot be split into
	// header/block pairs or a block is not flat key=value lines.
	ErrStructure = errors.New("malformed definitions")

	// ErrEncoding indicates a property record could not be serialized.
	ErrEncoding = errors.New("property record encoding failed")

	// ErrIncomplete indicates a shard stream was not drained to the end.
	ErrIncomplete = errors.New("shard stream not fully drained")

	// ErrNoMatchingRule indicates no pattern matched, not even the
	// catch-all. Only a broken dataset produces this.
	ErrNoMatchingRule = errors.New("no matching rule")

	// ErrShardMissing indicates a shard key absent from the store for a
	// published dataset.
	ErrShardMissing = errors.New("shard missing from store")

	// ErrCorruptShard indicates a shard payload line could not be decoded.
	ErrCorruptShard = errors.New("corrupt shard payload")

	// ErrNotPublished indicates no dataset has been published yet.
	ErrNotPublished = errors.New("no published dataset")

	// ErrInvalidMetadata indicates a published pointer cannot be used.
	ErrInvalidMetadata = errors.New("invalid dataset metadata")

	// ErrUpToDate indicates the definitions checksum matches the published
	// dataset and no compile was needed.
	ErrUpToDate = errors.New("dataset already up to date")

	// ErrParentLoop indicates a Parent chain that cycles or exceeds the
	// maximum depth.
	ErrParentLoop = errors.New("parent chain too deep")
)
