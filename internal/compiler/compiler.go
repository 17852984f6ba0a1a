// internal/compiler/compiler.go
package compiler

import (
	"log/slog"

	"github.com/solatis/browscap/internal/pattern"
)

/*
 * Definitions compiler.
 *
 * Turns browscap definitions text into two shard streams:
 *
 *   Properties  one line per section: hash(lower(header)) TAB record JSON,
 *               sharded by PropertySpace. Every value is coerced through
 *               the property schema; an unknown property aborts the run.
 *   Patterns    pattern groups: hash TAB length TAB expr [TAB expr ...],
 *               sharded by PatternSpace, ordered hash ascending then length
 *               descending so the most specific patterns come first.
 *
 * Each stream parses the text itself and shares nothing with the other, so
 * both can run concurrently. A fresh call gives a fresh stream.
 *
 * Failure policy:
 *   - structural errors and unknown properties fail the whole stream
 *   - a record that cannot be encoded drops that rule and is counted in
 *     Summary.Dropped, unless WithStrict is set
 */

// DefaultBatchSize is the maximum number of expressions in a pattern group.
const DefaultBatchSize = 50

// Compiler holds compile settings. Safe for concurrent use.
type Compiler struct {
	prefixLength int
	batchSize    int
	strict       bool
	logger       *slog.Logger
}

// Option configures a Compiler.
type Option func(*Compiler)

// WithPrefixLength sets the literal prefix bound used for hashing.
// Matchers must use the same value; it is recorded in the dataset metadata.
func WithPrefixLength(n int) Option {
	return func(c *Compiler) {
		if n > 0 {
			c.prefixLength = n
		}
	}
}

// WithBatchSize sets the maximum expressions per pattern group.
func WithBatchSize(n int) Option {
	return func(c *Compiler) {
		if n > 0 {
			c.batchSize = n
		}
	}
}

// WithStrict makes a record encoding failure abort the run.
func WithStrict() Option {
	return func(c *Compiler) {
		c.strict = true
	}
}

// WithLogger sets the logger for dropped-rule warnings.
func WithLogger(l *slog.Logger) Option {
	return func(c *Compiler) {
		if l != nil {
			c.logger = l
		}
	}
}

// New creates a Compiler.
func New(opts ...Option) *Compiler {
	c := &Compiler{
		prefixLength: pattern.DefaultPrefixLength,
		batchSize:    DefaultBatchSize,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// PrefixLength returns the literal prefix bound in effect.
func (c *Compiler) PrefixLength() int {
	return c.prefixLength
}
