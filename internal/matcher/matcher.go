// internal/matcher/matcher.go
package matcher

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	lru "github.com/hashicorp/golang-lru"

	"github.com/solatis/browscap/internal/pattern"
	"github.com/solatis/browscap/internal/properties"
	"github.com/solatis/browscap/internal/store"
	"github.com/solatis/browscap/internal/types"
)

/*
 * Pattern matcher.
 *
 * Lookup of one User-Agent against a published dataset:
 *
 *   1. Lower-case the query and derive candidate hashes from its literal
 *      prefix, longest prefix first, then the empty prefix, then the
 *      catch-all sentinel.
 *   2. For each candidate, read its pattern shard (once per query) and scan
 *      the groups stored under that hash. Groups are ordered by length
 *      descending, so the first hit is the most specific one. Groups longer
 *      than the query cannot match and are skipped.
 *   3. A group is tested with one alternation of all its expressions. Only
 *      on a hit are the expressions tried one by one, with digit tokens
 *      turned into captures.
 *   4. The captured digits are put back into the expression to recover the
 *      concrete pattern, whose property record is looked up by hash. Digit
 *      compression merges patterns, so a recovered pattern may not exist;
 *      the scan then continues.
 *
 * If nothing matches, not even the catch-all, the dataset is broken and
 * Match returns ErrNoMatchingRule.
 *
 * A Matcher is bound to one Metadata and never writes to the store. Shard
 * payloads are cached per query only; the optional regexp cache holds
 * compiled expressions, which do not depend on the query.
 */

// Result is the winning rule for a query.
type Result struct {
	// Pattern is the lower-cased definitions header that matched.
	Pattern string
	// Expression is the stored expression that matched, digit tokens included.
	Expression string
	// Hash is the pattern hash of the winning group.
	Hash string
	// Record holds the rule's own properties. Parent values are not merged.
	Record properties.Record
}

// Matcher resolves User-Agents against one published dataset. Safe for
// concurrent use.
type Matcher struct {
	store   store.Store
	meta    types.Metadata
	regexps *lru.Cache
	logger  *slog.Logger
}

// Option configures a Matcher.
type Option func(*Matcher) error

// WithRegexpCache memoizes up to size compiled expressions across queries.
func WithRegexpCache(size int) Option {
	return func(m *Matcher) error {
		if size <= 0 {
			return nil
		}
		c, err := lru.New(size)
		if err != nil {
			return fmt.Errorf("regexp cache: %w", err)
		}
		m.regexps = c
		return nil
	}
}

// WithLogger sets the logger for skipped compressed matches.
func WithLogger(l *slog.Logger) Option {
	return func(m *Matcher) error {
		if l != nil {
			m.logger = l
		}
		return nil
	}
}

// New binds a matcher to the dataset described by meta.
func New(s store.Store, meta types.Metadata, opts ...Option) (*Matcher, error) {
	if err := meta.Validate(); err != nil {
		return nil, err
	}
	m := &Matcher{store: s, meta: meta, logger: slog.Default()}
	for _, opt := range opts {
		if err := opt(m); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Open binds a matcher to the currently published dataset.
func Open(ctx context.Context, s store.Store, opts ...Option) (*Matcher, error) {
	meta, err := Current(ctx, s)
	if err != nil {
		return nil, err
	}
	return New(s, meta, opts...)
}

// Current reads the published dataset pointer.
func Current(ctx context.Context, s store.Store) (types.Metadata, error) {
	data, ok, err := s.Get(ctx, store.CurrentKey)
	if err != nil {
		return types.Metadata{}, err
	}
	if !ok {
		return types.Metadata{}, types.ErrNotPublished
	}
	return types.UnmarshalMetadata(data)
}

// Metadata returns the dataset this matcher reads.
func (m *Matcher) Metadata() types.Metadata {
	return m.meta
}

// Match returns the most specific rule matching ua.
func (m *Matcher) Match(ctx context.Context, ua string) (*Result, error) {
	q := m.newQuery(ctx)
	subject := pattern.Lower(ua)

	for _, hash := range pattern.Candidates(subject, m.meta.PrefixLength) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		groups, err := q.patternGroups(hash)
		if err != nil {
			return nil, err
		}
		for _, g := range groups {
			if g.length > len(subject) {
				continue
			}
			res, err := q.scanGroup(g, subject)
			if err != nil {
				return nil, err
			}
			if res != nil {
				return res, nil
			}
		}
	}
	return nil, fmt.Errorf("%w: %q", types.ErrNoMatchingRule, ua)
}

// Properties returns the record of a concrete definitions header.
func (m *Matcher) Properties(ctx context.Context, header string) (*properties.Record, bool, error) {
	return m.newQuery(ctx).record(header)
}

func (m *Matcher) compile(src string) (*regexp.Regexp, error) {
	if m.regexps != nil {
		if re, ok := m.regexps.Get(src); ok {
			return re.(*regexp.Regexp), nil
		}
	}
	re, err := regexp.Compile(pattern.RegexpSource(src))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrCorruptShard, err)
	}
	if m.regexps != nil {
		m.regexps.Add(src, re)
	}
	return re, nil
}

// scanGroup prefilters with the alternation, then finds the first
// expression in stored order that resolves to a record.
func (q *query) scanGroup(g group, subject string) (*Result, error) {
	combined, err := q.m.compile(strings.Join(g.exprs, "|"))
	if err != nil {
		return nil, err
	}
	if !combined.MatchString(subject) {
		return nil, nil
	}

	for _, expr := range g.exprs {
		re, err := q.m.compile(pattern.Capturing(expr))
		if err != nil {
			return nil, err
		}
		sub := re.FindStringSubmatch(subject)
		if sub == nil {
			continue
		}
		concrete := pattern.Unquote(expr, sub[1:])
		rec, ok, err := q.record(concrete)
		if err != nil {
			return nil, err
		}
		if !ok {
			q.m.logger.Debug("compressed match without record", "pattern", concrete)
			continue
		}
		return &Result{Pattern: concrete, Expression: expr, Hash: g.hash, Record: *rec}, nil
	}
	return nil, nil
}
