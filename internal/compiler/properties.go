package compiler

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/solatis/browscap/internal/pattern"
	"github.com/solatis/browscap/internal/properties"
	"github.com/solatis/browscap/internal/types"
)

// Properties returns the property shard stream for text.
func (c *Compiler) Properties(text string) *Stream {
	return newStream(IndexProperties, pattern.PropertySpace, func() (buildResult, error) {
		return c.buildProperties(text)
	})
}

func (c *Compiler) buildProperties(text string) (buildResult, error) {
	sections, err := Parse(text)
	if err != nil {
		return buildResult{}, err
	}

	res := buildResult{lines: make(map[string][]string)}
	for _, sec := range sections {
		pairs, err := ParseBlock(sec.Block)
		if err != nil {
			return buildResult{}, fmt.Errorf("section [%s]: %w", sec.Header, err)
		}

		var rec properties.Record
		for _, p := range pairs {
			if err := rec.SetRaw(p.Key, p.Value); err != nil {
				return buildResult{}, fmt.Errorf("section [%s]: %w", sec.Header, err)
			}
		}

		encoded, err := json.Marshal(rec)
		if err != nil {
			if c.strict {
				return buildResult{}, fmt.Errorf("section [%s]: %w", sec.Header, err)
			}
			if !errors.Is(err, types.ErrEncoding) {
				err = fmt.Errorf("%w: %v", types.ErrEncoding, err)
			}
			c.logger.Warn("dropping rule", "pattern", sec.Header, "error", err)
			res.dropped++
			continue
		}

		hash := pattern.PartsHash(sec.Header)
		id, err := pattern.PropertySpace.ShardFor(hash)
		if err != nil {
			return buildResult{}, err
		}
		res.lines[id] = append(res.lines[id], hash+"\t"+string(encoded))
		res.rules++
	}

	// Lookups binary-search by hash. Stable so the first of two duplicate
	// headers wins, as it does in document order.
	for _, lines := range res.lines {
		sort.SliceStable(lines, func(i, j int) bool {
			return lines[i][:32] < lines[j][:32]
		})
	}
	return res, nil
}
