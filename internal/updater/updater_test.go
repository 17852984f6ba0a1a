package updater

import (
	"context"
	"errors"
	"os"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solatis/browscap/internal/matcher"
	"github.com/solatis/browscap/internal/pattern"
	"github.com/solatis/browscap/internal/properties"
	"github.com/solatis/browscap/internal/store"
	"github.com/solatis/browscap/internal/types"
)

func fixture(t *testing.T) string {
	t.Helper()
	data, err := os.ReadFile("../compiler/testdata/browscap.ini")
	require.NoError(t, err)
	return string(data)
}

// flakyStore fails Put for keys accepted by fail. With partial set the value
// is written before the error is returned.
type flakyStore struct {
	store.Store
	fail    func(key string) bool
	partial bool
	puts    atomic.Int64
}

func (f *flakyStore) Put(ctx context.Context, key string, value []byte) error {
	f.puts.Add(1)
	if f.fail(key) {
		if f.partial {
			_ = f.Store.Put(ctx, key, value)
		}
		return errors.New("disk full")
	}
	return f.Store.Put(ctx, key, value)
}

func TestUpdate_Publishes(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	u := New(mem)

	meta, err := u.Update(ctx, fixture(t), Options{})
	require.NoError(t, err)
	require.NotNil(t, meta)

	assert.Equal(t, 6001000, meta.Version)
	assert.Equal(t, pattern.DefaultPrefixLength, meta.PrefixLength)
	assert.NotEmpty(t, meta.BuildID)
	assert.Equal(t, Checksum(fixture(t)), meta.Checksum)
	assert.Zero(t, meta.DroppedRules)

	// every shard of both spaces plus the pointer
	assert.Equal(t, pattern.PatternSpace.Size()+pattern.PropertySpace.Size()+1, mem.Len())

	cur, err := u.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, meta.BuildID, cur.BuildID)

	m, err := matcher.Open(ctx, mem)
	require.NoError(t, err)
	res, err := m.Match(ctx, "Mozilla/5.0 (compatible; Ask Jeeves/Teoma)")
	require.NoError(t, err)
	assert.Equal(t, "Teoma", res.Record.String(properties.Browser))
}

func TestUpdate_UpToDate(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	u := New(mem)

	first, err := u.Update(ctx, fixture(t), Options{})
	require.NoError(t, err)

	again, err := u.Update(ctx, fixture(t), Options{})
	require.ErrorIs(t, err, types.ErrUpToDate)
	require.NotNil(t, again)
	assert.Equal(t, first.BuildID, again.BuildID)

	forced, err := u.Update(ctx, fixture(t), Options{Force: true})
	require.NoError(t, err)
	assert.NotEqual(t, first.BuildID, forced.BuildID)

	// both namespaces are present until pruned
	assert.Equal(t, 2*(pattern.PatternSpace.Size()+pattern.PropertySpace.Size())+1, mem.Len())
}

func TestUpdate_PrunesPrevious(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	u := New(mem)

	first, err := u.Update(ctx, fixture(t), Options{})
	require.NoError(t, err)
	second, err := u.Update(ctx, fixture(t), Options{Force: true, Prune: true})
	require.NoError(t, err)

	oldPrefix := store.NamespacePrefix(*first)
	newPrefix := store.NamespacePrefix(*second)
	var fresh int
	for _, key := range mem.Keys() {
		assert.False(t, strings.HasPrefix(key, oldPrefix), "stale key %s", key)
		if strings.HasPrefix(key, newPrefix) {
			fresh++
		}
	}
	assert.Equal(t, pattern.PatternSpace.Size()+pattern.PropertySpace.Size(), fresh)
}

func TestPrune_RefusesPublished(t *testing.T) {
	ctx := context.Background()
	u := New(store.NewMemory())

	meta, err := u.Update(ctx, fixture(t), Options{})
	require.NoError(t, err)

	err = u.Prune(ctx, *meta)
	assert.ErrorIs(t, err, types.ErrInvalidArgument)
}

func TestUpdate_FailedShardWriteLeavesNothing(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	flaky := &flakyStore{
		Store: mem,
		fail:  func(key string) bool { return strings.HasSuffix(key, ".iniparts.7") },
	}
	u := New(flaky)

	meta, err := u.Update(ctx, fixture(t), Options{})
	require.Error(t, err)
	assert.Nil(t, meta)
	assert.Contains(t, err.Error(), "disk full")

	assert.Zero(t, mem.Len(), "staged keys left behind: %v", mem.Keys())
	_, err = u.Current(ctx)
	assert.ErrorIs(t, err, types.ErrNotPublished)
}

func TestUpdate_PartialShardWriteIsDiscarded(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	flaky := &flakyStore{
		Store:   mem,
		fail:    func(key string) bool { return strings.HasSuffix(key, ".patterns.zz") },
		partial: true,
	}

	_, err := New(flaky).Update(ctx, fixture(t), Options{})
	require.Error(t, err)
	assert.Zero(t, mem.Len(), "staged keys left behind: %v", mem.Keys())
}

func TestUpdate_FailedPointerWriteLeavesPrevious(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()

	first, err := New(mem).Update(ctx, fixture(t), Options{})
	require.NoError(t, err)
	before := mem.Len()

	flaky := &flakyStore{
		Store: mem,
		fail:  func(key string) bool { return key == store.CurrentKey },
	}
	_, err = New(flaky).Update(ctx, fixture(t), Options{Force: true})
	require.Error(t, err)

	assert.Equal(t, before, mem.Len())
	cur, err := New(mem).Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, first.BuildID, cur.BuildID)
}

func TestUpdate_StructureError(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()

	_, err := New(mem).Update(ctx, "[Foo*]\nthis line has no pair\n", Options{})
	require.ErrorIs(t, err, types.ErrStructure)
	assert.Zero(t, mem.Len())
}

func TestUpdate_Cancelled(t *testing.T) {
	mem := store.NewMemory()
	ctx, cancel := context.WithCancel(context.Background())
	flaky := &flakyStore{Store: mem, fail: func(string) bool { return false }}
	flaky.fail = func(string) bool {
		if flaky.puts.Load() == 10 {
			cancel()
		}
		return false
	}

	_, err := New(flaky).Update(ctx, fixture(t), Options{})
	require.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, mem.Len())
}

func TestChecksum(t *testing.T) {
	assert.Equal(t, Checksum("abc"), Checksum("abc"))
	assert.NotEqual(t, Checksum("abc"), Checksum("abd"))
	assert.Len(t, Checksum(""), 16)
}
