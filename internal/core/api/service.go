// Package api provides the gRPC and HTTP lookup services.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/solatis/browscap/internal/browser"
	"github.com/solatis/browscap/internal/matcher"
	"github.com/solatis/browscap/internal/store"
	"github.com/solatis/browscap/internal/telemetry"
	"github.com/solatis/browscap/internal/types"
)

// snapshot pairs a dataset with the resolver reading it.
type snapshot struct {
	meta     types.Metadata
	resolver *browser.Resolver
}

// LookupService answers User-Agent lookups against the published dataset.
// Reload swaps datasets atomically; lookups in flight finish on the
// dataset they started with.
type LookupService struct {
	store   store.Store
	opts    []matcher.Option
	logger  *slog.Logger
	current atomic.Pointer[snapshot]
	onLoad  func(types.Metadata)
}

// NewLookupService creates a service reading from s. Matcher options apply
// to every dataset loaded.
func NewLookupService(s store.Store, logger *slog.Logger, opts ...matcher.Option) (*LookupService, error) {
	if s == nil {
		return nil, fmt.Errorf("store cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &LookupService{
		store:  s,
		opts:   append([]matcher.Option{matcher.WithLogger(logger)}, opts...),
		logger: logger,
	}, nil
}

// Reload follows the published pointer and swaps in its dataset when it
// changed. Reports whether a swap happened.
func (s *LookupService) Reload(ctx context.Context) (bool, error) {
	meta, err := matcher.Current(ctx, s.store)
	if err != nil {
		return false, err
	}
	if cur := s.current.Load(); cur != nil && cur.meta.BuildID == meta.BuildID {
		return false, nil
	}

	m, err := matcher.New(s.store, meta, s.opts...)
	if err != nil {
		return false, err
	}
	s.current.Store(&snapshot{meta: meta, resolver: browser.NewResolver(m)})
	telemetry.ObserveDataset(&meta)
	s.logger.Info("dataset loaded", "version", meta.Version, "build", meta.BuildID)
	if s.onLoad != nil {
		s.onLoad(meta)
	}
	return true, nil
}

// OnLoad registers fn to run after every dataset swap. Must be called before
// Reload or Run.
func (s *LookupService) OnLoad(fn func(types.Metadata)) {
	s.onLoad = fn
}

// Run reloads every interval until ctx is done. A failed reload keeps the
// current dataset.
func (s *LookupService) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.Reload(ctx); err != nil && !errors.Is(err, context.Canceled) {
				s.logger.Warn("dataset reload failed", "error", err)
			}
		}
	}
}

// Lookup resolves ua with full Parent inheritance.
func (s *LookupService) Lookup(ctx context.Context, ua string) (b *browser.Browser, err error) {
	start := time.Now()
	defer func() { telemetry.ObserveLookup(start, err) }()

	cur := s.current.Load()
	if cur == nil {
		return nil, types.ErrNotPublished
	}
	return cur.resolver.Resolve(ctx, ua)
}

// Metadata returns the dataset currently served.
func (s *LookupService) Metadata() (types.Metadata, error) {
	cur := s.current.Load()
	if cur == nil {
		return types.Metadata{}, types.ErrNotPublished
	}
	return cur.meta, nil
}
