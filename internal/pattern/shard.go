package pattern

import (
	"fmt"
	"strings"
)

// Space is a fixed partition of the hash domain. A shard id is the first
// Width characters of a hash.
type Space struct {
	Width int

	// Reserved is an extra id outside the hex range, empty for none.
	Reserved string
}

var (
	// PatternSpace shards the pattern index: 256 hex ids plus "zz", the
	// home of CatchAllHash.
	PatternSpace = Space{Width: 2, Reserved: CatchAllHash[:2]}

	// PropertySpace shards the property index. Lookups are by exact hash,
	// so fewer, larger shards.
	PropertySpace = Space{Width: 1}
)

const hexDigits = "0123456789abcdef"

// ShardFor maps a hash to its shard id.
func (s Space) ShardFor(hash string) (string, error) {
	if len(hash) < s.Width {
		return "", fmt.Errorf("hash %q shorter than shard width %d", hash, s.Width)
	}
	id := hash[:s.Width]
	if !s.Contains(id) {
		return "", fmt.Errorf("hash %q outside shard space", hash)
	}
	return id, nil
}

// Contains reports whether id belongs to the space.
func (s Space) Contains(id string) bool {
	if len(id) != s.Width {
		return false
	}
	if s.Reserved != "" && id == s.Reserved {
		return true
	}
	for i := 0; i < len(id); i++ {
		if strings.IndexByte(hexDigits, id[i]) < 0 {
			return false
		}
	}
	return true
}

// Size returns the number of ids in the space.
func (s Space) Size() int {
	n := 1
	for i := 0; i < s.Width; i++ {
		n *= 16
	}
	if s.Reserved != "" {
		n++
	}
	return n
}

// All returns every id in ascending order.
func (s Space) All() []string {
	ids := make([]string, 0, s.Size())
	buf := make([]byte, s.Width)
	var walk func(pos int)
	walk = func(pos int) {
		if pos == s.Width {
			ids = append(ids, string(buf))
			return
		}
		for i := 0; i < len(hexDigits); i++ {
			buf[pos] = hexDigits[i]
			walk(pos + 1)
		}
	}
	walk(0)
	if s.Reserved != "" {
		ids = append(ids, s.Reserved)
	}
	return ids
}
