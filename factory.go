package transcache

import (
	"errors"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"github.com/meigma/transcache/cache"
)

// Constructor builds a fresh Transform for one invocation. The arguments are
// passed through from Factory.Wrap unchanged and do not participate in cache
// keys; argument sets that change the transform's behavior belong in the
// configuration descriptor instead.
type Constructor func(args ...any) (Transform, error)

// Factory stamps out single-use Wrappers around transforms built by a
// Constructor. The cache name, configuration, and store are fixed at
// construction and shared by every wrapper; nothing else is shared between
// successive Wrap calls beyond the cache directory itself.
//
// Wrappers from one Factory deduplicate concurrent work: Finalize calls that
// race on the same cache key within the process share a single transform run
// instead of recomputing the same entry.
type Factory struct {
	name       string
	construct  Constructor
	store      cache.Store
	configJSON []byte
	flight     singleflight.Group
	hits       atomic.Int64
	misses     atomic.Int64
}

// NewFactory creates a Factory. Configuration serialization and cache
// directory creation happen once, here, with the same failure modes as New.
func NewFactory(name string, construct Constructor, opts ...Option) (*Factory, error) {
	if name == "" {
		return nil, ErrEmptyName
	}
	if construct == nil {
		return nil, errors.New("transcache: constructor is nil")
	}
	store, configJSON, err := resolveOptions(opts)
	if err != nil {
		return nil, err
	}
	return &Factory{
		name:       name,
		construct:  construct,
		store:      store,
		configJSON: configJSON,
	}, nil
}

// Wrap builds a fresh transform via the constructor and returns it wrapped
// for caching. Constructor failures propagate unchanged.
func (f *Factory) Wrap(args ...any) (*Wrapper, error) {
	t, err := f.construct(args...)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, errors.New("transcache: constructor returned nil transform")
	}
	return &Wrapper{
		name:       f.name,
		transform:  t,
		store:      f.store,
		configJSON: f.configJSON,
		flight:     &f.flight,
		hits:       &f.hits,
		misses:     &f.misses,
	}, nil
}

// Stats reports how many Finalize lookups hit and missed the store across
// all wrappers from this factory. Deduplicated followers of an in-flight
// miss are not counted.
func (f *Factory) Stats() (hits, misses int64) {
	return f.hits.Load(), f.misses.Load()
}
