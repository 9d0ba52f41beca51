// Package disk provides a disk-backed store implementation.
package disk

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"

	"github.com/meigma/transcache/cache"
)

const (
	defaultDirPerm  = 0o700
	defaultFilePerm = 0o600
)

// Store implements cache.Store and cache.StreamingStore on a filesystem
// directory: one file per entry, named exactly by entry name, content stored
// raw unless compression is enabled.
//
// A directory may be shared by concurrent wrappers and processes. Writes go
// to a temporary file and are renamed into place, so readers never observe a
// partial entry, and writers racing on the same entry converge on identical
// content.
type Store struct {
	dir      string
	dirPerm  os.FileMode
	filePerm os.FileMode
	compress bool
	enc      *zstd.Encoder
	dec      *zstd.Decoder
}

var (
	_ cache.Store          = (*Store)(nil)
	_ cache.StreamingStore = (*Store)(nil)
)

// Option configures a disk store.
type Option func(*Store)

// WithDirPerm sets the permissions used when creating the cache directory.
func WithDirPerm(mode os.FileMode) Option {
	return func(s *Store) {
		s.dirPerm = mode
	}
}

// WithFilePerm sets the permissions applied to entry files. Defaults to
// 0o600; widen for cache directories shared between users.
func WithFilePerm(mode os.FileMode) Option {
	return func(s *Store) {
		s.filePerm = mode
	}
}

// WithCompression stores entries zstd-compressed.
//
// Enabling or disabling compression over a directory with existing entries
// changes the entry representation; treat it like any other format change and
// invalidate old entries (existing entries that no longer decode are served
// as misses, never misread).
func WithCompression(enabled bool) Option {
	return func(s *Store) {
		s.compress = enabled
	}
}

// New creates a disk-backed store rooted at dir, creating the directory if
// absent. A directory that cannot be created is a fatal construction error.
func New(dir string, opts ...Option) (*Store, error) {
	if dir == "" {
		return nil, errors.New("cache dir is empty")
	}
	s := &Store{
		dir:      dir,
		dirPerm:  defaultDirPerm,
		filePerm: defaultFilePerm,
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := os.MkdirAll(dir, s.dirPerm); err != nil {
		return nil, err
	}
	if s.compress {
		enc, err := zstd.NewWriter(nil, zstd.WithEncoderConcurrency(1), zstd.WithLowerEncoderMem(true))
		if err != nil {
			return nil, err
		}
		dec, err := zstd.NewReader(nil)
		if err != nil {
			return nil, err
		}
		s.enc = enc
		s.dec = dec
	}
	return s, nil
}

// Dir returns the directory the store is rooted at.
func (s *Store) Dir() string {
	return s.dir
}

// Get retrieves content by entry name. Any read failure — absent file,
// permissions, I/O error, undecodable entry — degrades to a miss.
func (s *Store) Get(name string) ([]byte, bool) {
	path, err := s.path(name)
	if err != nil {
		return nil, false
	}
	data, err := os.ReadFile(path) //nolint:gosec // path is derived from digests, not user input
	if err != nil {
		return nil, false
	}
	if s.compress {
		plain, err := s.dec.DecodeAll(data, nil)
		if err != nil {
			return nil, false
		}
		return plain, true
	}
	return data, true
}

// Put stores content under the entry name, overwriting any existing entry.
// The content is staged in a temporary file and renamed into place.
func (s *Store) Put(name string, content []byte) error {
	path, err := s.path(name)
	if err != nil {
		return err
	}
	if s.compress {
		content = s.enc.EncodeAll(content, nil)
	}

	tmp, err := os.CreateTemp(s.dir, "entry-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	if err := tmp.Chmod(s.filePerm); err != nil {
		tmp.Close()
		_ = os.Remove(tmpPath)
		return err
	}
	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		_ = os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	return renameEntry(tmpPath, path)
}

// Writer opens a streaming writer staging content for the named entry.
func (s *Store) Writer(name string) (cache.Writer, error) {
	path, err := s.path(name)
	if err != nil {
		return nil, err
	}
	tmp, err := os.CreateTemp(s.dir, "entry-*")
	if err != nil {
		return nil, err
	}
	w := &entryWriter{
		file:      tmp,
		tmpPath:   tmp.Name(),
		finalPath: path,
	}
	if err := tmp.Chmod(s.filePerm); err != nil {
		tmp.Close()
		_ = os.Remove(w.tmpPath)
		return nil, err
	}
	if s.compress {
		enc, err := zstd.NewWriter(tmp, zstd.WithEncoderConcurrency(1), zstd.WithLowerEncoderMem(true))
		if err != nil {
			tmp.Close()
			_ = os.Remove(w.tmpPath)
			return nil, err
		}
		w.enc = enc
	}
	return w, nil
}

// path maps an entry name to its file path. Names are flat: anything that
// would escape the cache directory is rejected.
func (s *Store) path(name string) (string, error) {
	if name == "" {
		return "", errors.New("entry name is empty")
	}
	if name == "." || name == ".." ||
		strings.ContainsAny(name, `/\`) || name != filepath.Base(name) {
		return "", errors.New("entry name is not a plain file name")
	}
	return filepath.Join(s.dir, name), nil
}

// renameEntry moves a staged entry into place. Losing a rename race to
// another writer is success: entries for the same name carry identical
// content.
func renameEntry(tmpPath, finalPath string) error {
	if err := os.Rename(tmpPath, finalPath); err != nil {
		if _, statErr := os.Stat(finalPath); statErr == nil {
			_ = os.Remove(tmpPath)
			return nil
		}
		_ = os.Remove(tmpPath)
		return err
	}
	return nil
}

type entryWriter struct {
	file      *os.File
	enc       *zstd.Encoder
	tmpPath   string
	finalPath string
}

func (w *entryWriter) Write(p []byte) (int, error) {
	if w.enc != nil {
		return w.enc.Write(p)
	}
	return w.file.Write(p)
}

func (w *entryWriter) Commit() error {
	if w.enc != nil {
		if err := w.enc.Close(); err != nil {
			w.file.Close()
			_ = os.Remove(w.tmpPath)
			return err
		}
	}
	if err := w.file.Close(); err != nil {
		_ = os.Remove(w.tmpPath)
		return err
	}
	return renameEntry(w.tmpPath, w.finalPath)
}

func (w *entryWriter) Discard() error {
	if w.enc != nil {
		_ = w.enc.Close()
	}
	if w.file != nil {
		_ = w.file.Close()
	}
	return os.Remove(w.tmpPath)
}
