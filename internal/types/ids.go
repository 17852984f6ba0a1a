package types

import (
	"time"

	"github.com/google/uuid"
)

// NewBuildID generates a UUIDv7 build identifier.
// Panics on clock regression (uuid.Must); acceptable for ID generation.
func NewBuildID() BuildID {
	return BuildID(uuid.Must(uuid.NewV7()).String())
}

// ParseBuildID validates and converts a string to BuildID.
func ParseBuildID(s string) (BuildID, error) {
	if _, err := uuid.Parse(s); err != nil {
		return "", err
	}
	return BuildID(s), nil
}

// BuildIDTime extracts the timestamp embedded in a UUIDv7 build ID.
// Returns zero time for invalid UUIDs; caller should check IsZero().
func BuildIDTime(id BuildID) time.Time {
	u, err := uuid.Parse(string(id))
	if err != nil {
		return time.Time{}
	}
	sec, nsec := u.Time().UnixTime()
	return time.Unix(sec, nsec)
}
