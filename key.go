package transcache

import (
	"encoding/json"
	"fmt"

	"github.com/opencontainers/go-digest"
)

// FormatVersion identifies the on-disk entry representation. It is embedded
// in every cache key, so bumping it after an incompatible representation
// change silently invalidates old entries instead of misreading them.
const FormatVersion = 1

// digestOf returns the lowercase hex SHA-256 digest of payload. It is total:
// any payload, including empty, has a well-defined digest.
func digestOf(payload []byte) string {
	return digest.FromBytes(payload).Encoded()
}

// buildKey derives the cache key for one invocation. Two invocations share a
// key exactly when their input payloads are byte-identical, their serialized
// configurations are identical, and the format version is unchanged.
func buildKey(input, configJSON []byte, version int) string {
	return fmt.Sprintf("%s-%s-v%d", digestOf(input), digestOf(configJSON), version)
}

// entryName prefixes the key with the cache name so independent caches can
// share one directory without colliding.
func entryName(name, key string) string {
	return name + "-" + key
}

// marshalConfig serializes the configuration descriptor once, at construction
// time, so a bad descriptor surfaces immediately rather than after expensive
// work. A nil descriptor serializes as an empty object.
//
// encoding/json emits map keys in sorted order, so map-shaped descriptors
// serialize deterministically. Callers supplying custom marshalers are
// responsible for stable output; unstable output costs extra misses, never
// incorrect hits.
func marshalConfig(data any) ([]byte, error) {
	if data == nil {
		return []byte("{}"), nil
	}
	b, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("transcache: %w: %v", ErrConfigNotSerializable, err)
	}
	return b, nil
}
