package matcher

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/solatis/browscap/internal/compiler"
	"github.com/solatis/browscap/internal/pattern"
	"github.com/solatis/browscap/internal/properties"
	"github.com/solatis/browscap/internal/store"
	"github.com/solatis/browscap/internal/types"
)

// group is one decoded pattern shard line.
type group struct {
	hash   string
	length int
	exprs  []string
}

// query caches decoded shards for the lifetime of one lookup.
type query struct {
	ctx      context.Context
	m        *Matcher
	patterns map[string][]group
	props    map[string][]string
}

func (m *Matcher) newQuery(ctx context.Context) *query {
	return &query{
		ctx:      ctx,
		m:        m,
		patterns: make(map[string][]group, 4),
		props:    make(map[string][]string, 2),
	}
}

func (q *query) fetch(index, id string) ([]byte, error) {
	key := store.ShardKey(q.m.meta, index, id)
	data, ok, err := q.m.store.Get(q.ctx, key)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", types.ErrShardMissing, key)
	}
	return data, nil
}

// patternGroups returns the groups stored under hash, in stored order.
func (q *query) patternGroups(hash string) ([]group, error) {
	id, err := pattern.PatternSpace.ShardFor(hash)
	if err != nil {
		return nil, err
	}
	groups, ok := q.patterns[id]
	if !ok {
		data, err := q.fetch(compiler.IndexPatterns, id)
		if err != nil {
			return nil, err
		}
		groups, err = decodeGroups(data)
		if err != nil {
			return nil, fmt.Errorf("pattern shard %s: %w", id, err)
		}
		q.patterns[id] = groups
	}

	start := sort.Search(len(groups), func(i int) bool { return groups[i].hash >= hash })
	end := start
	for end < len(groups) && groups[end].hash == hash {
		end++
	}
	return groups[start:end], nil
}

func decodeGroups(data []byte) ([]group, error) {
	if len(data) == 0 {
		return nil, nil
	}
	lines := strings.Split(string(data), "\n")
	groups := make([]group, 0, len(lines))
	for _, line := range lines {
		fields := strings.Split(line, "\t")
		if len(fields) < 3 {
			return nil, fmt.Errorf("%w: %q", types.ErrCorruptShard, line)
		}
		length, err := strconv.Atoi(fields[1])
		if err != nil {
			return nil, fmt.Errorf("%w: bad length in %q", types.ErrCorruptShard, line)
		}
		groups = append(groups, group{hash: fields[0], length: length, exprs: fields[2:]})
	}
	return groups, nil
}

// record looks up the property record of a concrete pattern.
func (q *query) record(concrete string) (*properties.Record, bool, error) {
	hash := pattern.PartsHash(concrete)
	id, err := pattern.PropertySpace.ShardFor(hash)
	if err != nil {
		return nil, false, err
	}
	lines, ok := q.props[id]
	if !ok {
		data, err := q.fetch(compiler.IndexProperties, id)
		if err != nil {
			return nil, false, err
		}
		if len(data) > 0 {
			lines = strings.Split(string(data), "\n")
		}
		q.props[id] = lines
	}

	i := sort.Search(len(lines), func(i int) bool { return lineHash(lines[i]) >= hash })
	if i == len(lines) || lineHash(lines[i]) != hash {
		return nil, false, nil
	}

	line := lines[i]
	if len(line) <= len(hash)+1 {
		return nil, false, fmt.Errorf("%w: empty record %s", types.ErrCorruptShard, hash)
	}
	var rec properties.Record
	if err := json.Unmarshal([]byte(line[len(hash)+1:]), &rec); err != nil {
		return nil, false, fmt.Errorf("%w: record %s: %v", types.ErrCorruptShard, hash, err)
	}
	return &rec, true, nil
}

func lineHash(line string) string {
	if i := strings.IndexByte(line, '\t'); i >= 0 {
		return line[:i]
	}
	return line
}
