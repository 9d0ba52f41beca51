package transcache

import (
	"fmt"

	"github.com/meigma/transcache/cache"
	"github.com/meigma/transcache/cache/disk"
)

const defaultCacheDir = ".cache"

type config struct {
	cacheDir   string
	configData any
	store      cache.Store
}

// Option configures a Wrapper or Factory.
type Option func(*config)

// WithCacheDir sets the directory used for cache entries.
// Defaults to ".cache". Ignored when a store is injected with WithStore.
func WithCacheDir(dir string) Option {
	return func(c *config) {
		c.cacheDir = dir
	}
}

// WithConfig sets the transform's configuration descriptor.
//
// The descriptor is serialized once at construction and participates in
// every cache key; it is never interpreted beyond that. It must be
// JSON-serializable — an unserializable descriptor fails construction, not
// the transform call. Defaults to an empty object.
func WithConfig(data any) Option {
	return func(c *config) {
		c.configData = data
	}
}

// WithStore injects a cache store, overriding WithCacheDir. Useful for
// in-memory stores in tests or compressed disk stores built with
// disk.WithCompression.
func WithStore(s cache.Store) Option {
	return func(c *config) {
		c.store = s
	}
}

// resolveOptions applies options and builds the shared wrapper state: the
// serialized configuration and the backing store. Both failure modes here
// are construction-time and fatal — a bad descriptor or an unusable cache
// directory is a caller bug, not something to retry at transform time.
func resolveOptions(opts []Option) (cache.Store, []byte, error) {
	cfg := config{cacheDir: defaultCacheDir}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&cfg)
	}

	configJSON, err := marshalConfig(cfg.configData)
	if err != nil {
		return nil, nil, err
	}

	store := cfg.store
	if store == nil {
		s, err := disk.New(cfg.cacheDir)
		if err != nil {
			return nil, nil, fmt.Errorf("transcache: cache dir %s: %w", cfg.cacheDir, err)
		}
		store = s
	}
	return store, configJSON, nil
}
