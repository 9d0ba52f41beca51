package transcache

import "errors"

var (
	// ErrConfigNotSerializable is returned when the configuration descriptor
	// cannot be serialized to JSON.
	ErrConfigNotSerializable = errors.New("config descriptor is not serializable")

	// ErrFinalized is returned when a Wrapper is used after Finalize.
	ErrFinalized = errors.New("wrapper already finalized")

	// ErrEmptyName is returned when the cache name is empty.
	ErrEmptyName = errors.New("cache name is empty")
)
