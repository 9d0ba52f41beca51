package transcache

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"github.com/meigma/transcache/cache"
)

// Wrapper caches a single invocation of a Transform.
//
// Input is supplied as a sequence of Write calls and buffered unprocessed.
// Finalize then either serves a stored result or runs the transform and
// persists its output before returning it. A Wrapper is good for exactly one
// invocation — the input buffer and result belong to that invocation — so
// build a fresh Wrapper (or use a Factory) per payload.
//
// Wrapper makes no attempt to bound the input buffer. It targets text-sized
// build artifacts, not arbitrarily large streams.
type Wrapper struct {
	name       string
	transform  Transform
	store      cache.Store
	configJSON []byte

	// Shared across wrappers from one Factory; nil for standalone wrappers.
	flight *singleflight.Group
	hits   *atomic.Int64
	misses *atomic.Int64

	buf       bytes.Buffer
	finalized bool
}

var _ io.Writer = (*Wrapper)(nil)

// New creates a Wrapper around transform.
//
// The cache name distinguishes independent caches sharing one directory and
// prefixes every entry file. Configuration serialization and cache directory
// creation happen here, so misconfiguration surfaces immediately instead of
// after buffering a payload.
func New(name string, transform Transform, opts ...Option) (*Wrapper, error) {
	if name == "" {
		return nil, ErrEmptyName
	}
	if transform == nil {
		return nil, errors.New("transcache: transform is nil")
	}
	store, configJSON, err := resolveOptions(opts)
	if err != nil {
		return nil, err
	}
	return &Wrapper{
		name:       name,
		transform:  transform,
		store:      store,
		configJSON: configJSON,
	}, nil
}

// Write appends an input chunk to the buffer. Chunks are accumulated in
// arrival order with no processing; Write never fails during the input
// phase. Zero chunks is a valid payload.
func (w *Wrapper) Write(p []byte) (int, error) {
	if w.finalized {
		return 0, ErrFinalized
	}
	return w.buf.Write(p) // bytes.Buffer writes do not fail
}

// Finalize computes the cache key from the buffered input and either serves
// the stored result or runs the transform, persisting its output before
// returning it. On a hit the transform is never invoked. Finalize may be
// called at most once.
//
// A transform failure is returned verbatim and leaves no cache entry, so an
// identical retry runs the transform again rather than replaying the
// failure. A failure to persist a computed result is also returned, and the
// result is withheld: a cache that cannot write does not pretend the write
// happened.
//
// Finalize does not provide cancellation of its own; ctx is handed to the
// transform as-is.
func (w *Wrapper) Finalize(ctx context.Context) ([]byte, error) {
	if w.finalized {
		return nil, ErrFinalized
	}
	w.finalized = true

	key := buildKey(w.buf.Bytes(), w.configJSON, FormatVersion)
	entry := entryName(w.name, key)

	if content, ok := w.store.Get(entry); ok {
		w.countHit()
		return content, nil
	}

	if w.flight == nil {
		w.countMiss()
		return w.runAndPersist(ctx, entry)
	}

	// Wrappers from one Factory share a flight group so invocations racing
	// on the same key run the transform once and share the result.
	result, err, _ := w.flight.Do(entry, func() (any, error) {
		// Double-check: another invocation may have persisted this entry
		// between our read and acquiring the flight.
		if content, ok := w.store.Get(entry); ok {
			w.countHit()
			return content, nil
		}
		w.countMiss()
		return w.runAndPersist(ctx, entry)
	})
	if err != nil {
		return nil, err
	}
	content, _ := result.([]byte) //nolint:errcheck // assertion always succeeds when err is nil
	return content, nil
}

// runAndPersist drives the transform over the buffered input, accumulating
// output chunks in arrival order, and persists the result before returning
// it. Stores with streaming support receive the output as it is produced;
// otherwise the entry is written in one Put after the transform succeeds.
func (w *Wrapper) runAndPersist(ctx context.Context, entry string) ([]byte, error) {
	if ss, ok := w.store.(cache.StreamingStore); ok {
		if cw, err := ss.Writer(entry); err == nil {
			return w.runStreaming(ctx, cw)
		}
		// Could not stage a streaming write; fall back to a buffered Put.
	}

	var out bytes.Buffer
	if err := w.transform.Run(ctx, bytes.NewReader(w.buf.Bytes()), &out); err != nil {
		return nil, err
	}
	if err := w.store.Put(entry, out.Bytes()); err != nil {
		return nil, fmt.Errorf("transcache: persist %s entry: %w", w.name, err)
	}
	return out.Bytes(), nil
}

func (w *Wrapper) runStreaming(ctx context.Context, cw cache.Writer) ([]byte, error) {
	var out bytes.Buffer
	if err := w.transform.Run(ctx, bytes.NewReader(w.buf.Bytes()), io.MultiWriter(&out, cw)); err != nil {
		_ = cw.Discard() //nolint:errcheck // discard is best-effort
		return nil, err
	}
	if err := cw.Commit(); err != nil {
		return nil, fmt.Errorf("transcache: persist %s entry: %w", w.name, err)
	}
	return out.Bytes(), nil
}

func (w *Wrapper) countHit() {
	if w.hits != nil {
		w.hits.Add(1)
	}
}

func (w *Wrapper) countMiss() {
	if w.misses != nil {
		w.misses.Add(1)
	}
}
