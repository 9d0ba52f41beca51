// Package cache defines the storage interfaces used by transcache.
//
// Keys are entry names: a cache name joined with a content-derived key.
// Entries are immutable by name — a given name always maps to the same
// content, by the determinism assumption of the wrapped transform — so
// stores never need to version or invalidate what they hold.
package cache

import "io"

// Store persists transform results by entry name.
//
// Implementations must be safe for concurrent use.
type Store interface {
	// Get retrieves content by entry name. It returns nil, false on a miss.
	// Read failures degrade to a miss rather than surfacing an error, since
	// the caller can always recompute the result.
	Get(name string) ([]byte, bool)

	// Put stores content under the entry name, overwriting any existing
	// entry. The write must be all-or-nothing: concurrent readers,
	// including other processes sharing the same directory, never observe
	// a torn entry.
	Put(name string, content []byte) error
}

// StreamingStore extends Store with streaming write support.
//
// Implementations that can stage writes out of band (e.g. disk-based stores)
// should implement this interface so content can be persisted as it is
// produced instead of in one Put call.
type StreamingStore interface {
	Store

	// Writer returns a Writer staging content for the named entry.
	Writer(name string) (Writer, error)
}

// Writer streams content into the store.
//
// Content is written via Write calls. After all content is written:
//   - Call Commit if the content was produced successfully
//   - Call Discard if production failed or an error occurred
//
// Implementations should buffer writes to a temporary location and only make
// the entry visible via Store.Get after Commit.
type Writer interface {
	io.Writer

	// Commit finalizes the entry, making it available via Get.
	Commit() error

	// Discard aborts the write and cleans up temporary data.
	Discard() error
}
