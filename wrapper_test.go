package transcache

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meigma/transcache/cache"
	"github.com/meigma/transcache/internal/testutil"
)

func newWrapper(t *testing.T, name string, transform Transform, opts ...Option) *Wrapper {
	t.Helper()
	w, err := New(name, transform, opts...)
	require.NoError(t, err)
	return w
}

func finalize(t *testing.T, w *Wrapper, input []byte) ([]byte, error) {
	t.Helper()
	if input != nil {
		_, err := w.Write(input)
		require.NoError(t, err)
	}
	return w.Finalize(context.Background())
}

func TestWrapperMissThenHit(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	transform := &testutil.MockTransform{Chunks: [][]byte{[]byte("const x=1;")}}
	config := map[string]any{"minify": true}

	w1 := newWrapper(t, "babel", transform, WithCacheDir(dir), WithConfig(config))
	out1, err := finalize(t, w1, []byte("const x = 1;"))
	require.NoError(t, err)
	assert.Equal(t, []byte("const x=1;"), out1)
	assert.EqualValues(t, 1, transform.Runs())

	// The entry lands at the documented path.
	key := buildKey([]byte("const x = 1;"), []byte(`{"minify":true}`), FormatVersion)
	stored, err := os.ReadFile(filepath.Join(dir, "babel-"+key))
	require.NoError(t, err)
	assert.Equal(t, []byte("const x=1;"), stored)

	// Identical invocation is served from the cache without the transform.
	w2 := newWrapper(t, "babel", transform, WithCacheDir(dir), WithConfig(config))
	out2, err := finalize(t, w2, []byte("const x = 1;"))
	require.NoError(t, err)
	assert.Equal(t, out1, out2)
	assert.EqualValues(t, 1, transform.Runs(), "hit must not invoke the transform")
}

func TestWrapperConfigChangeForcesMiss(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	transform := &testutil.MockTransform{Chunks: [][]byte{[]byte("out")}}

	w1 := newWrapper(t, "babel", transform, WithCacheDir(dir), WithConfig(map[string]any{"minify": true}))
	_, err := finalize(t, w1, []byte("const x = 1;"))
	require.NoError(t, err)

	w2 := newWrapper(t, "babel", transform, WithCacheDir(dir), WithConfig(map[string]any{"minify": false}))
	_, err = finalize(t, w2, []byte("const x = 1;"))
	require.NoError(t, err)

	assert.EqualValues(t, 2, transform.Runs(), "config change must force an independent miss")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 2, "both results cached independently")
}

func TestWrapperDistinctInputsCachedIndependently(t *testing.T) {
	t.Parallel()

	store := cache.NewMemory()
	transform := &testutil.MockTransform{Chunks: [][]byte{[]byte("out")}}

	w1 := newWrapper(t, "x", transform, WithStore(store))
	_, err := finalize(t, w1, []byte("one"))
	require.NoError(t, err)

	w2 := newWrapper(t, "x", transform, WithStore(store))
	_, err = finalize(t, w2, []byte("two"))
	require.NoError(t, err)

	assert.EqualValues(t, 2, transform.Runs())
	assert.Equal(t, 2, store.Len())
}

func TestWrapperEmptyInput(t *testing.T) {
	t.Parallel()

	store := cache.NewMemory()
	transform := &testutil.MockTransform{Chunks: [][]byte{[]byte("from empty")}}

	w1 := newWrapper(t, "empty", transform, WithStore(store))
	out, err := w1.Finalize(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []byte("from empty"), out)

	w2 := newWrapper(t, "empty", transform, WithStore(store))
	out, err = w2.Finalize(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []byte("from empty"), out)
	assert.EqualValues(t, 1, transform.Runs(), "empty input round-trips through the cache")
}

func TestWrapperChunkOrderPreserved(t *testing.T) {
	t.Parallel()

	store := cache.NewMemory()
	transform := &testutil.MockTransform{
		Chunks: [][]byte{[]byte("alpha "), []byte("beta "), []byte("gamma")},
	}

	w := newWrapper(t, "order", transform, WithStore(store))
	for _, chunk := range []string{"in-1 ", "in-2 ", "in-3"} {
		_, err := w.Write([]byte(chunk))
		require.NoError(t, err)
	}
	out, err := w.Finalize(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []byte("alpha beta gamma"), out, "output chunks concatenate in arrival order")
	require.Len(t, transform.Inputs(), 1)
	assert.Equal(t, []byte("in-1 in-2 in-3"), transform.Inputs()[0], "input chunks concatenate in arrival order")
}

func TestWrapperTransformFailure(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	boom := errors.New("parse error")
	failing := &testutil.MockTransform{Chunks: [][]byte{[]byte("partial")}, Err: boom}

	w1 := newWrapper(t, "babel", failing, WithCacheDir(dir))
	_, err := finalize(t, w1, []byte("input"))
	require.ErrorIs(t, err, boom, "transform failure propagates verbatim")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "a failed transform leaves no cache entry")

	// The next identical invocation retries the transform.
	working := &testutil.MockTransform{Chunks: [][]byte{[]byte("recovered")}}
	w2 := newWrapper(t, "babel", working, WithCacheDir(dir))
	out, err := finalize(t, w2, []byte("input"))
	require.NoError(t, err)
	assert.Equal(t, []byte("recovered"), out)
	assert.EqualValues(t, 1, working.Runs())
}

func TestWrapperWriteFailureSurfaced(t *testing.T) {
	t.Parallel()

	diskFull := errors.New("disk full")
	transform := &testutil.MockTransform{Chunks: [][]byte{[]byte("computed")}}

	w := newWrapper(t, "babel", transform, WithStore(&testutil.FailStore{PutErr: diskFull}))
	out, err := finalize(t, w, []byte("input"))
	require.ErrorIs(t, err, diskFull, "a cache that cannot persist must not pretend to have succeeded")
	assert.Nil(t, out)
	assert.EqualValues(t, 1, transform.Runs())
}

func TestWrapperVersionBumpInvalidates(t *testing.T) {
	t.Parallel()

	store := cache.NewMemory()
	transform := &testutil.MockTransform{Chunks: [][]byte{[]byte("out")}}
	w := newWrapper(t, "v", transform, WithStore(store))
	_, err := finalize(t, w, []byte("input"))
	require.NoError(t, err)

	// An entry stored under a different format version is invisible.
	oldKey := entryName("v", buildKey([]byte("input"), []byte("{}"), FormatVersion+1))
	_, ok := store.Get(oldKey)
	assert.False(t, ok)

	curKey := entryName("v", buildKey([]byte("input"), []byte("{}"), FormatVersion))
	_, ok = store.Get(curKey)
	assert.True(t, ok)
}

func TestWrapperSingleUse(t *testing.T) {
	t.Parallel()

	transform := &testutil.MockTransform{Chunks: [][]byte{[]byte("out")}}
	w := newWrapper(t, "once", transform, WithStore(cache.NewMemory()))

	_, err := finalize(t, w, []byte("input"))
	require.NoError(t, err)

	_, err = w.Finalize(context.Background())
	assert.ErrorIs(t, err, ErrFinalized)

	_, err = w.Write([]byte("more"))
	assert.ErrorIs(t, err, ErrFinalized)
}

func TestWrapperConstructionErrors(t *testing.T) {
	t.Parallel()

	transform := &testutil.MockTransform{}

	_, err := New("", transform)
	assert.ErrorIs(t, err, ErrEmptyName)

	_, err = New("x", nil)
	assert.Error(t, err)

	_, err = New("x", transform, WithStore(cache.NewMemory()), WithConfig(map[string]any{"fn": func() {}}))
	assert.ErrorIs(t, err, ErrConfigNotSerializable, "bad config surfaces at construction, not finalize")

	// A cache directory that collides with an existing file is fatal.
	file := filepath.Join(t.TempDir(), "occupied")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o600))
	_, err = New("x", transform, WithCacheDir(file))
	assert.Error(t, err)
}

func TestWrapperSharedDirectoryPerName(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	a := &testutil.MockTransform{Chunks: [][]byte{[]byte("from a")}}
	b := &testutil.MockTransform{Chunks: [][]byte{[]byte("from b")}}

	wa := newWrapper(t, "alpha", a, WithCacheDir(dir))
	outA, err := finalize(t, wa, []byte("same input"))
	require.NoError(t, err)

	wb := newWrapper(t, "beta", b, WithCacheDir(dir))
	outB, err := finalize(t, wb, []byte("same input"))
	require.NoError(t, err)

	assert.Equal(t, []byte("from a"), outA)
	assert.Equal(t, []byte("from b"), outB)
	assert.EqualValues(t, 1, a.Runs())
	assert.EqualValues(t, 1, b.Runs(), "names keep caches independent within one directory")
}
