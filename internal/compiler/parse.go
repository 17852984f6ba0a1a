package compiler

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/solatis/browscap/internal/types"
)

// headerRe matches a section header on its own line. The capture is the raw
// pattern between the outermost brackets.
var headerRe = regexp.MustCompile(`(?m)^[ \t]*\[([^\r\n]+)\][ \t]*\r?$`)

// Section is one header and the raw text block following it.
type Section struct {
	Header string
	Block  string
}

// Pair is one key=value line of a block.
type Pair struct {
	Key   string
	Value string
}

// Parse splits definitions text into sections in document order. Text before
// the first header is ignored.
func Parse(text string) ([]Section, error) {
	matches := headerRe.FindAllStringSubmatchIndex(text, -1)
	blocks := headerRe.Split(text, -1)
	if len(blocks) != len(matches)+1 {
		return nil, fmt.Errorf("%w: %d headers but %d blocks", types.ErrStructure, len(matches), len(blocks)-1)
	}

	sections := make([]Section, len(matches))
	for i, m := range matches {
		sections[i] = Section{
			Header: text[m[2]:m[3]],
			Block:  blocks[i+1],
		}
	}
	return sections, nil
}

// ParseBlock reads flat key=value lines. Blank lines and lines starting with
// ';' or '#' are skipped, and surrounding quotes are stripped from values.
// Repeated keys keep the last value at the position of the first.
func ParseBlock(block string) ([]Pair, error) {
	var pairs []Pair
	index := make(map[string]int)

	for n, line := range strings.Split(block, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || line[0] == ';' || line[0] == '#' {
			continue
		}
		eq := strings.IndexByte(line, '=')
		if eq <= 0 {
			return nil, fmt.Errorf("%w: line %d: expected key=value, got %q", types.ErrStructure, n+1, line)
		}
		key := strings.TrimSpace(line[:eq])
		value := unquoteValue(strings.TrimSpace(line[eq+1:]))

		if i, ok := index[key]; ok {
			pairs[i].Value = value
			continue
		}
		index[key] = len(pairs)
		pairs = append(pairs, Pair{Key: key, Value: value})
	}
	return pairs, nil
}

func unquoteValue(v string) string {
	if len(v) >= 2 {
		if (v[0] == '"' && v[len(v)-1] == '"') || (v[0] == '\'' && v[len(v)-1] == '\'') {
			return v[1 : len(v)-1]
		}
	}
	return v
}

func hasKey(pairs []Pair, key string) bool {
	for _, p := range pairs {
		if p.Key == key {
			return true
		}
	}
	return false
}
