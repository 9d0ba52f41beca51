// Package transcache provides a persistent, content-addressed cache around
// expensive data transforms.
//
// A [Wrapper] buffers the input stream for one transform invocation, derives a
// cache key from the input content and the transform configuration, and either
// serves a previously stored result or runs the transform and persists its
// output. It targets build pipelines where a deterministic transform (a
// compiler pass, a minifier, a source-to-source translator) is applied to a
// large set of mostly-unchanged inputs.
//
// # Quick Start
//
// Wrap a transform and feed it one payload:
//
//	w, err := transcache.New("babel", minify,
//	    transcache.WithCacheDir(".cache"),
//	    transcache.WithConfig(map[string]any{"minify": true}),
//	)
//	if err != nil {
//	    return err
//	}
//	io.Copy(w, src)
//	out, err := w.Finalize(ctx)
//
// A Wrapper is good for exactly one invocation. For pipelines that process
// many files, use a [Factory] to stamp out pre-wrapped transforms that share
// one cache:
//
//	f, err := transcache.NewFactory("babel", newMinifier,
//	    transcache.WithCacheDir(".cache"),
//	)
//	for _, src := range files {
//	    w, err := f.Wrap()
//	    ...
//	}
//
// # Cache Keys
//
// Keys combine the SHA-256 digest of the input payload, the digest of the
// serialized configuration, and a format version:
// "<inputDigest>-<configDigest>-v<version>". Identical input and configuration
// always map to the same entry; any change to either forces a miss. Bumping
// [FormatVersion] invalidates every previously stored entry without touching
// the files.
//
// # Storage
//
// Entries are plain files, one per key, named "<name>-<key>" under the cache
// directory. Writes go through a temporary file and an atomic rename, so a
// directory can be shared by concurrent processes without readers ever
// observing a torn entry. The cache never evicts; clearing the directory is
// the caller's job. The cache subpackage holds the storage contract and
// cache/disk the file-backed implementation; WithStore swaps in any other
// implementation.
//
// # Determinism
//
// The cache assumes the wrapped transform is deterministic: the same input
// and configuration must produce the same output. That assumption is not
// verified. It also makes racing writers harmless, since writers of the same
// key converge on identical content.
package transcache
