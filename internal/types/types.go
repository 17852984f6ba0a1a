// Package types provides domain models shared across browscap components.
//
// Kept free of storage and transport imports so the compiler, matcher and
// updater can all depend on it. ID utilities in ids.go import uuid.
package types

import (
	"encoding/json"
	"fmt"
	"time"
)

// BuildID identifies one compile run. UUIDv7, so namespaces sort by age.
type BuildID string

// VersionSection is the pseudo-pattern header carrying dataset metadata.
// It never participates in matching.
const VersionSection = "GJK_Browscap_Version"

// Metadata tags a compiled dataset. Every shard key is namespaced by it so
// two compilations never mix.
type Metadata struct {
	// Version, ReleaseDate and Type come from the definitions text itself.
	Version     int    `json:"version"`
	ReleaseDate string `json:"releaseDate"`
	Type        string `json:"type"`
	Format      string `json:"format,omitempty"`

	// Stamped by the updater when a run starts.
	BuildID    BuildID   `json:"buildId"`
	Checksum   string    `json:"checksum,omitempty"`
	CompiledAt time.Time `json:"compiledAt"`

	// PrefixLength is the literal prefix bound used for pattern hashing.
	// Matchers must use the same value.
	PrefixLength int `json:"prefixLength"`

	// DroppedRules counts rules whose property record could not be encoded.
	DroppedRules int `json:"droppedRules"`
}

// Namespace returns the key segment that isolates this dataset's shards.
func (m Metadata) Namespace() string {
	return fmt.Sprintf("%d.%s", m.Version, m.BuildID)
}

// Validate rejects metadata that cannot address shards.
func (m Metadata) Validate() error {
	if m.BuildID == "" {
		return fmt.Errorf("%w: missing build id", ErrInvalidMetadata)
	}
	if m.PrefixLength <= 0 {
		return fmt.Errorf("%w: prefix length must be positive, got %d", ErrInvalidMetadata, m.PrefixLength)
	}
	return nil
}

// MarshalMetadata encodes metadata for the published pointer.
func MarshalMetadata(m Metadata) ([]byte, error) {
	return json.Marshal(m)
}

// UnmarshalMetadata decodes and validates a published pointer.
func UnmarshalMetadata(data []byte) (Metadata, error) {
	var m Metadata
	if err := json.Unmarshal(data, &m); err != nil {
		return Metadata{}, fmt.Errorf("%w: %v", ErrInvalidMetadata, err)
	}
	if err := m.Validate(); err != nil {
		return Metadata{}, err
	}
	return m, nil
}
