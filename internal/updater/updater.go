// internal/updater/updater.go
package updater

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/sync/errgroup"

	"github.com/solatis/browscap/internal/compiler"
	"github.com/solatis/browscap/internal/matcher"
	"github.com/solatis/browscap/internal/pattern"
	"github.com/solatis/browscap/internal/store"
	"github.com/solatis/browscap/internal/telemetry"
	"github.com/solatis/browscap/internal/types"
)

/*
 * Definitions update.
 *
 * Publishing a new dataset:
 *   1. Extract metadata, stamp a fresh build id and the checksum of the text
 *   2. Compare the checksum with the published dataset (skip unless forced)
 *   3. Run the pattern and property producers concurrently, writing every
 *      shard under the new namespace
 *   4. Verify both streams drained and covered their whole shard space
 *   5. Write the pointer key
 *
 * Readers only follow the pointer, so until step 5 the new namespace is
 * invisible and a failed update leaves the published dataset untouched.
 * Staged keys are deleted best-effort on failure. The previous namespace is
 * kept until Prune so readers still bound to it finish their lookups.
 */

// Options tune a single Update call.
type Options struct {
	// Force publishes even when the text is unchanged.
	Force bool
	// Prune deletes the previously published namespace after publishing.
	Prune bool
}

// Updater compiles definitions and publishes them to a store.
type Updater struct {
	store    store.Store
	compiler *compiler.Compiler
	logger   *slog.Logger
	now      func() time.Time
}

// Option configures an Updater.
type Option func(*Updater)

// WithCompiler replaces the default compiler.
func WithCompiler(c *compiler.Compiler) Option {
	return func(u *Updater) { u.compiler = c }
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(u *Updater) { u.logger = l }
}

// New creates an updater writing to s.
func New(s store.Store, opts ...Option) *Updater {
	u := &Updater{
		store:  s,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(u)
	}
	if u.compiler == nil {
		u.compiler = compiler.New(compiler.WithLogger(u.logger))
	}
	return u
}

// Checksum fingerprints a definitions text.
func Checksum(text string) string {
	return fmt.Sprintf("%016x", xxhash.Sum64String(text))
}

// Current returns the published metadata.
func (u *Updater) Current(ctx context.Context) (*types.Metadata, error) {
	meta, err := matcher.Current(ctx, u.store)
	if err != nil {
		return nil, err
	}
	return &meta, nil
}

// Update compiles text and publishes it. When the text matches the published
// dataset and opts.Force is unset, the published metadata is returned along
// with ErrUpToDate.
func (u *Updater) Update(ctx context.Context, text string, opts Options) (meta *types.Metadata, err error) {
	defer func() { telemetry.ObserveUpdate(meta, err) }()

	next, err := u.compiler.Metadata(text)
	if err != nil {
		return nil, err
	}
	next.BuildID = types.NewBuildID()
	next.Checksum = Checksum(text)
	next.CompiledAt = u.now().UTC()

	prev, err := u.Current(ctx)
	switch {
	case errors.Is(err, types.ErrNotPublished):
		prev = nil
	case err != nil:
		return nil, err
	case prev.Checksum == next.Checksum && !opts.Force:
		u.logger.Info("definitions unchanged", "version", prev.Version, "build", prev.BuildID)
		return prev, types.ErrUpToDate
	}

	log := u.logger.With("version", next.Version, "build", next.BuildID)
	log.Info("publishing definitions")

	st := &staging{store: u.store}
	summaries, err := u.write(ctx, st, next, text)
	if err == nil {
		err = verify(summaries)
	}
	if err == nil {
		for _, s := range summaries {
			next.DroppedRules += s.Dropped
		}
		err = u.publish(ctx, next)
	}
	if err != nil {
		log.Error("update failed, discarding staged shards", "error", err, "staged", st.len())
		// ctx may be the reason for the failure
		if cerr := st.discard(context.WithoutCancel(ctx)); cerr != nil {
			err = errors.Join(err, cerr)
		}
		return nil, err
	}

	log.Info("definitions published", "rules", summaries[0].Rules, "dropped", next.DroppedRules)

	if opts.Prune && prev != nil && prev.Namespace() != next.Namespace() {
		if err := u.Prune(ctx, *prev); err != nil {
			log.Warn("pruning previous dataset failed", "previous", prev.Namespace(), "error", err)
		}
	}
	return &next, nil
}

// write drains both producers concurrently into the store.
func (u *Updater) write(ctx context.Context, st *staging, meta types.Metadata, text string) ([]compiler.Summary, error) {
	streams := []*compiler.Stream{u.compiler.Patterns(text), u.compiler.Properties(text)}
	summaries := make([]compiler.Summary, len(streams))

	g, gctx := errgroup.WithContext(ctx)
	for i, s := range streams {
		g.Go(func() error {
			for s.Next() {
				if err := gctx.Err(); err != nil {
					return err
				}
				shard := s.Shard()
				if err := st.put(gctx, store.ShardKey(meta, s.Index(), shard.ID), shard.Payload); err != nil {
					return fmt.Errorf("writing %s shard %s: %w", s.Index(), shard.ID, err)
				}
				telemetry.ShardsWritten.WithLabelValues(s.Index()).Inc()
			}
			sum, err := s.Summary()
			if err != nil {
				return err
			}
			summaries[i] = sum
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return summaries, nil
}

func verify(summaries []compiler.Summary) error {
	for _, s := range summaries {
		want := pattern.PatternSpace.Size()
		if s.Index == compiler.IndexProperties {
			want = pattern.PropertySpace.Size()
		}
		if s.Shards != want {
			return fmt.Errorf("%w: %s wrote %d of %d shards", types.ErrIncomplete, s.Index, s.Shards, want)
		}
	}
	return nil
}

func (u *Updater) publish(ctx context.Context, meta types.Metadata) error {
	data, err := types.MarshalMetadata(meta)
	if err != nil {
		return err
	}
	return u.store.Put(ctx, store.CurrentKey, data)
}

// Prune deletes every shard of meta's namespace. The published dataset
// cannot be pruned.
func (u *Updater) Prune(ctx context.Context, meta types.Metadata) error {
	cur, err := u.Current(ctx)
	if err != nil && !errors.Is(err, types.ErrNotPublished) {
		return err
	}
	if cur != nil && cur.Namespace() == meta.Namespace() {
		return fmt.Errorf("%w: %s is published", types.ErrInvalidArgument, meta.Namespace())
	}

	if p, ok := u.store.(prefixDeleter); ok {
		return p.DeletePrefix(ctx, store.NamespacePrefix(meta))
	}

	var errs []error
	for _, idx := range []struct {
		name  string
		space pattern.Space
	}{
		{compiler.IndexPatterns, pattern.PatternSpace},
		{compiler.IndexProperties, pattern.PropertySpace},
	} {
		for _, id := range idx.space.All() {
			if err := u.store.Delete(ctx, store.ShardKey(meta, idx.name, id)); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// prefixDeleter is implemented by stores that can drop a namespace at once.
type prefixDeleter interface {
	DeletePrefix(ctx context.Context, prefix string) error
}

// staging tracks keys written during one update.
type staging struct {
	store store.Store

	mu   sync.Mutex
	keys []string
}

// put records key before writing it, so a failed Put that left data behind is
// still discarded.
func (s *staging) put(ctx context.Context, key string, value []byte) error {
	s.mu.Lock()
	s.keys = append(s.keys, key)
	s.mu.Unlock()
	return s.store.Put(ctx, key, value)
}

func (s *staging) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.keys)
}

func (s *staging) discard(ctx context.Context) error {
	s.mu.Lock()
	keys := s.keys
	s.keys = nil
	s.mu.Unlock()

	var errs []error
	for _, key := range keys {
		if err := s.store.Delete(ctx, key); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
