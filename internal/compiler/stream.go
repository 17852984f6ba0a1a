package compiler

import (
	"fmt"
	"iter"
	"sort"

	"github.com/solatis/browscap/internal/pattern"
	"github.com/solatis/browscap/internal/types"
)

// Index names used in store keys.
const (
	IndexPatterns   = "patterns"
	IndexProperties = "iniparts"
)

// Shard is one unit of compiled output. An empty Payload still has to be
// written so stale data from an earlier, larger dataset is overwritten.
type Shard struct {
	ID      string
	Payload []byte
	Lines   int
}

// Summary describes a fully drained stream.
type Summary struct {
	Index     string
	Shards    int
	Populated int
	Rules     int
	Dropped   int
}

// buildResult is what a producer computes before the first shard is yielded.
type buildResult struct {
	lines   map[string][]string
	rules   int
	dropped int
}

// Stream yields every shard id of a space exactly once: populated shards in
// ascending id order, then the remaining ids with empty payloads.
//
// Usage follows bufio.Scanner:
//
//	for s.Next() {
//		shard := s.Shard()
//	}
//	summary, err := s.Summary()
//
// Summary fails with ErrIncomplete unless the stream was drained. Work starts
// on the first call to Next.
type Stream struct {
	index string
	space pattern.Space
	build func() (buildResult, error)

	started bool
	pending []Shard
	cur     Shard
	err     error
	emitted map[string]bool
	summary Summary
}

func newStream(index string, space pattern.Space, build func() (buildResult, error)) *Stream {
	return &Stream{
		index:   index,
		space:   space,
		build:   build,
		emitted: make(map[string]bool, space.Size()),
		summary: Summary{Index: index},
	}
}

// Index returns the index name used in store keys.
func (s *Stream) Index() string {
	return s.index
}

// Next advances to the next shard.
func (s *Stream) Next() bool {
	if s.err != nil {
		return false
	}
	if !s.started {
		s.started = true
		if err := s.prepare(); err != nil {
			s.err = err
			return false
		}
	}
	if len(s.pending) == 0 {
		return false
	}

	s.cur = s.pending[0]
	s.pending = s.pending[1:]
	if s.emitted[s.cur.ID] {
		s.err = fmt.Errorf("shard %s emitted twice", s.cur.ID)
		return false
	}
	s.emitted[s.cur.ID] = true
	s.summary.Shards++
	if s.cur.Lines > 0 {
		s.summary.Populated++
	}
	return true
}

// Shard returns the current shard.
func (s *Stream) Shard() Shard {
	return s.cur
}

// Err returns the error that stopped the stream, if any.
func (s *Stream) Err() error {
	return s.err
}

// Summary returns run counts once every shard id has been yielded.
func (s *Stream) Summary() (Summary, error) {
	if s.err != nil {
		return s.summary, s.err
	}
	if !s.started || len(s.pending) > 0 || len(s.emitted) != s.space.Size() {
		return s.summary, fmt.Errorf("%w: %s yielded %d of %d shards",
			types.ErrIncomplete, s.index, len(s.emitted), s.space.Size())
	}
	return s.summary, nil
}

// All adapts the stream to a range-over-func iterator. A build error is
// yielded once as the final element.
func (s *Stream) All() iter.Seq2[Shard, error] {
	return func(yield func(Shard, error) bool) {
		for s.Next() {
			if !yield(s.cur, nil) {
				return
			}
		}
		if s.err != nil {
			yield(Shard{}, s.err)
		}
	}
}

func (s *Stream) prepare() error {
	res, err := s.build()
	if err != nil {
		return err
	}
	s.summary.Rules = res.rules
	s.summary.Dropped = res.dropped

	populated := make([]string, 0, len(res.lines))
	for id := range res.lines {
		if !s.space.Contains(id) {
			return fmt.Errorf("shard id %q outside %s space", id, s.index)
		}
		populated = append(populated, id)
	}
	sort.Strings(populated)

	s.pending = make([]Shard, 0, s.space.Size())
	for _, id := range populated {
		lines := res.lines[id]
		s.pending = append(s.pending, Shard{
			ID:      id,
			Payload: joinLines(lines),
			Lines:   len(lines),
		})
	}
	for _, id := range s.space.All() {
		if _, ok := res.lines[id]; !ok {
			s.pending = append(s.pending, Shard{ID: id, Payload: []byte{}})
		}
	}
	return nil
}

func joinLines(lines []string) []byte {
	size := 0
	for _, l := range lines {
		size += len(l) + 1
	}
	out := make([]byte, 0, size)
	for i, l := range lines {
		if i > 0 {
			out = append(out, '\n')
		}
		out = append(out, l...)
	}
	return out
}
