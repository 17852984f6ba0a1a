// internal/browser/browser.go
package browser

import (
	"context"
	"fmt"
	"strings"

	"github.com/solatis/browscap/internal/matcher"
	"github.com/solatis/browscap/internal/pattern"
	"github.com/solatis/browscap/internal/properties"
	"github.com/solatis/browscap/internal/types"
)

/*
 * Browser resolution.
 *
 * A matched rule carries only the properties written under its own header.
 * Everything else is inherited through the Parent property: the parent's
 * header is looked up in the property index and its record merged into the
 * child, child values winning. The walk repeats up the chain until a record
 * has no parent.
 *
 * Chains in published definitions are a handful of levels deep. The walk is
 * capped at MaxParentDepth and fails with ErrParentLoop beyond it, which
 * also catches cycles. A parent header without a record ends the walk
 * silently; older definitions reference sections that were removed.
 */

// MaxParentDepth bounds the Parent chain walk.
const MaxParentDepth = 16

// Lookup is the part of a matcher the resolver needs.
type Lookup interface {
	Match(ctx context.Context, ua string) (*matcher.Result, error)
	Properties(ctx context.Context, header string) (*properties.Record, bool, error)
}

// Browser is a fully resolved lookup result.
type Browser struct {
	// Pattern is the lower-cased definitions header that matched.
	Pattern string
	// Regex is the regular expression equivalent of Pattern.
	Regex string
	// Record holds the merged properties of the rule and its ancestors.
	Record properties.Record
}

// Resolver turns User-Agents into fully inherited property records.
type Resolver struct {
	lookup Lookup
}

// NewResolver creates a resolver over lookup.
func NewResolver(lookup Lookup) *Resolver {
	return &Resolver{lookup: lookup}
}

// Resolve matches ua and merges the Parent chain of the winning rule.
func (r *Resolver) Resolve(ctx context.Context, ua string) (*Browser, error) {
	res, err := r.lookup.Match(ctx, ua)
	if err != nil {
		return nil, err
	}

	b := &Browser{
		Pattern: res.Pattern,
		Regex:   pattern.Quote(res.Pattern),
		Record:  res.Record,
	}
	if err := r.inherit(ctx, &b.Record); err != nil {
		return nil, err
	}
	return b, nil
}

func (r *Resolver) inherit(ctx context.Context, rec *properties.Record) error {
	parent := rec.String(properties.Parent)
	seen := make(map[string]bool, 4)

	for depth := 0; parent != ""; depth++ {
		key := pattern.Lower(parent)
		if depth >= MaxParentDepth || seen[key] {
			return fmt.Errorf("%w: %s", types.ErrParentLoop, parent)
		}
		seen[key] = true

		prec, ok, err := r.lookup.Properties(ctx, parent)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		rec.Merge(prec)
		parent = prec.String(properties.Parent)
	}
	return nil
}

// Map renders the browser as get_browser does. With lowerKeys every
// property name is lower-cased.
func (b *Browser) Map(lowerKeys bool) map[string]any {
	out := b.Record.Map()
	if lowerKeys {
		lowered := make(map[string]any, len(out)+2)
		for k, v := range out {
			lowered[strings.ToLower(k)] = v
		}
		out = lowered
	}
	out["browser_name_pattern"] = b.Pattern
	out["browser_name_regex"] = b.Regex
	return out
}
