package inkmatrix

import (
	"bytes"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ErrReadOnly is returned by stores that cannot persist a cache.
var ErrReadOnly = errors.New("inkmatrix: store is read-only")

// Store persists dither caches. Load reports false for any missing, stale or
// malformed artifact and for keys with an empty grid; a store only ever
// accelerates startup. Save stores c under c.Key().
type Store interface {
	Load(k CacheKey) (*Cache, bool)
	Save(c *Cache) error
}

// FileStore keeps artifacts in local files, written on first run and reused
// by later launches. Each noise texture gets its own file, named after Path
// with the texture fingerprint inserted before the extension.
type FileStore struct {
	Path     string
	Compress bool
	Log      *log.Logger
}

// DefaultCachePath returns the per-user location of the cache file.
func DefaultCachePath() (string, error) {
	dir, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "inkmatrix", "dither_cache.bin"), nil
}

// File returns the path of the artifact for the texture with the given
// fingerprint.
func (s *FileStore) File(noise string) string {
	if noise == "" {
		return s.Path
	}
	ext := filepath.Ext(s.Path)
	return strings.TrimSuffix(s.Path, ext) + "-" + noise + ext
}

// Load reads the file of k's texture.
func (s *FileStore) Load(k CacheKey) (*Cache, bool) {
	if !k.valid() {
		return nil, false
	}
	path := s.File(k.Noise)
	f, err := os.Open(path)
	if err != nil {
		if !os.IsNotExist(err) {
			logf(s.Log, "cache file %s: %v", path, err)
		}
		return nil, false
	}
	defer f.Close()

	c, err := OpenArtifact(f, k.Version, k.Width, k.Height)
	if err != nil {
		logf(s.Log, "ignoring cache file %s: %v", path, err)
		return nil, false
	}
	c.noise = k.Noise
	return c, true
}

// Save writes c to a temporary file next to its destination and renames it
// into place.
func (s *FileStore) Save(c *Cache) error {
	path := s.File(c.noise)
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("inkmatrix: create cache dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("inkmatrix: create cache file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if s.Compress {
		err = WriteCompressedArtifact(tmp, c)
	} else {
		err = WriteArtifact(tmp, c)
	}
	if err != nil {
		tmp.Close()
		return fmt.Errorf("inkmatrix: write cache file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("inkmatrix: write cache file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("inkmatrix: install cache file: %w", err)
	}
	return nil
}

func (s *FileStore) String() string {
	return "file:" + s.Path
}

// EmbeddedStore serves an artifact compiled into the binary. Noise is the
// fingerprint of the texture the artifact was built from; keys for any other
// texture miss.
type EmbeddedStore struct {
	Data  []byte
	Noise string
	Log   *log.Logger
}

// NewEmbeddedStore returns a store over the artifact built into this binary
// with the embedcache tag, which go generate builds from the bundled noise
// texture. Without the tag it always misses.
func NewEmbeddedStore(l *log.Logger) *EmbeddedStore {
	s := &EmbeddedStore{Log: l}
	if noise, err := DefaultNoise(); err == nil {
		s.Data, s.Noise = embeddedArtifact, noise.Fingerprint()
	}
	return s
}

// Load decompresses and validates s.Data.
func (s *EmbeddedStore) Load(k CacheKey) (*Cache, bool) {
	if len(s.Data) == 0 || !k.valid() {
		return nil, false
	}
	if k.Noise != s.Noise {
		logf(s.Log, "embedded cache was built from noise %s, want %s", s.Noise, k.Noise)
		return nil, false
	}
	c, err := OpenArtifact(bytes.NewReader(s.Data), k.Version, k.Width, k.Height)
	if err != nil {
		logf(s.Log, "ignoring embedded cache: %v", err)
		return nil, false
	}
	c.noise = k.Noise
	return c, true
}

// Save always fails; embedded artifacts are produced by go generate.
func (s *EmbeddedStore) Save(*Cache) error {
	return ErrReadOnly
}

func (s *EmbeddedStore) String() string {
	return "embedded"
}

// Loader resolves the cache for a grid: the first store that holds a valid
// artifact wins, otherwise the table is built and saved to every writable
// store.
type Loader struct {
	Calculator *Calculator
	Width      int
	Height     int
	Stores     []Store
	Log        *log.Logger
}

// Load never fails; a store that cannot be read or written only costs time.
func (l *Loader) Load() *Cache {
	key := l.Calculator.Key(l.Width, l.Height)
	for _, s := range l.Stores {
		start := time.Now()
		if c, ok := s.Load(key); ok {
			logf(l.Log, "loaded %dx%d dither cache from %v in %v", l.Width, l.Height, s, time.Since(start))
			return c
		}
		logf(l.Log, "no usable dither cache in %v", s)
	}

	start := time.Now()
	c := Build(l.Calculator, l.Width, l.Height)
	logf(l.Log, "built %dx%d dither cache in %v", l.Width, l.Height, time.Since(start))

	for _, s := range l.Stores {
		if err := s.Save(c); err != nil {
			if !errors.Is(err, ErrReadOnly) {
				logf(l.Log, "saving dither cache to %v: %v", s, err)
			}
			continue
		}
		logf(l.Log, "saved dither cache to %v", s)
	}
	return c
}

func logf(l *log.Logger, format string, args ...interface{}) {
	if l != nil {
		l.Printf(format, args...)
	}
}
