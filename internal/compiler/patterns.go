package compiler

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/solatis/browscap/internal/pattern"
	"github.com/solatis/browscap/internal/types"
)

// Patterns returns the pattern shard stream for text.
func (c *Compiler) Patterns(text string) *Stream {
	return newStream(IndexPatterns, pattern.PatternSpace, func() (buildResult, error) {
		return c.buildPatterns(text)
	})
}

type groupKey struct {
	hash   string
	length int
}

type group struct {
	key   groupKey
	exprs []string
	seen  map[string]bool
}

// matchablePatterns returns the headers that take part in matching:
// every wildcard header, plus exact headers without a Comment key.
// Exact headers carrying a Comment are parent groups, not User-Agents.
func matchablePatterns(sections []Section) ([]string, error) {
	var out []string
	for _, sec := range sections {
		if sec.Header == types.VersionSection {
			continue
		}
		if strings.ContainsAny(sec.Header, "*?") {
			out = append(out, sec.Header)
			continue
		}
		pairs, err := ParseBlock(sec.Block)
		if err != nil {
			return nil, fmt.Errorf("section [%s]: %w", sec.Header, err)
		}
		if !hasKey(pairs, "Comment") {
			out = append(out, sec.Header)
		}
	}
	return out, nil
}

// sortBySpecificity orders longer patterns first, then patterns with more
// literal bytes.
func sortBySpecificity(patterns []string) {
	sort.SliceStable(patterns, func(i, j int) bool {
		a, b := patterns[i], patterns[j]
		if len(a) != len(b) {
			return len(a) > len(b)
		}
		return pattern.Length(a) > pattern.Length(b)
	})
}

func (c *Compiler) buildPatterns(text string) (buildResult, error) {
	sections, err := Parse(text)
	if err != nil {
		return buildResult{}, err
	}
	patterns, err := matchablePatterns(sections)
	if err != nil {
		return buildResult{}, err
	}
	for i, p := range patterns {
		patterns[i] = pattern.Lower(p)
	}
	sortBySpecificity(patterns)

	groups := make(map[groupKey]*group)
	var order []*group
	for _, p := range patterns {
		key := groupKey{
			hash:   pattern.PatternHash(p, c.prefixLength),
			length: pattern.Length(p),
		}
		g, ok := groups[key]
		if !ok {
			g = &group{key: key, seen: make(map[string]bool)}
			groups[key] = g
			order = append(order, g)
		}
		expr, _ := pattern.Compress(pattern.Quote(p))
		if g.seen[expr] {
			continue
		}
		g.seen[expr] = true
		g.exprs = append(g.exprs, expr)
	}

	byShard := make(map[string][]*group)
	for _, g := range order {
		id, err := pattern.PatternSpace.ShardFor(g.key.hash)
		if err != nil {
			return buildResult{}, err
		}
		byShard[id] = append(byShard[id], g)
	}

	res := buildResult{lines: make(map[string][]string, len(byShard)), rules: len(patterns)}
	for id, gs := range byShard {
		sort.SliceStable(gs, func(i, j int) bool {
			if gs[i].key.hash != gs[j].key.hash {
				return gs[i].key.hash < gs[j].key.hash
			}
			return gs[i].key.length > gs[j].key.length
		})
		var lines []string
		for _, g := range gs {
			lines = append(lines, c.groupLines(g)...)
		}
		res.lines[id] = lines
	}
	return res, nil
}

// groupLines chunks a group into lines of at most batchSize expressions.
func (c *Compiler) groupLines(g *group) []string {
	prefix := g.key.hash + "\t" + strconv.Itoa(g.key.length)
	var lines []string
	for start := 0; start < len(g.exprs); start += c.batchSize {
		end := min(start+c.batchSize, len(g.exprs))
		lines = append(lines, prefix+"\t"+strings.Join(g.exprs[start:end], "\t"))
	}
	return lines
}
