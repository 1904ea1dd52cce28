package reference

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"
	"unicode/utf8"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// DefaultCacheSize is the number of documents kept when caching is enabled
// without an explicit size.
const DefaultCacheSize = 64

// Content is a loaded reference document.
type Content struct {
	Path    string
	Text    string
	ModTime time.Time
	Size    int64
}

// ReferenceNotFoundError reports a reference path that does not exist.
type ReferenceNotFoundError struct {
	Path string
}

func (e *ReferenceNotFoundError) Error() string {
	return fmt.Sprintf("reference %s not found", e.Path)
}

// ReferenceUnreadableError reports a reference that exists but cannot be
// read as text.
type ReferenceUnreadableError struct {
	Path string
	Err  error
}

func (e *ReferenceUnreadableError) Error() string {
	return fmt.Sprintf("reference %s unreadable: %v", e.Path, e.Err)
}

func (e *ReferenceUnreadableError) Unwrap() error { return e.Err }

// ErrNotText is wrapped by ReferenceUnreadableError when decoded content is
// not valid UTF-8.
var ErrNotText = errors.New("content is not valid UTF-8 text")

// Options configures a Loader.
type Options struct {
	// Dir resolves relative paths. Empty means the process working directory.
	Dir string
	// Cache enables the document cache.
	Cache bool
	// CacheSize overrides DefaultCacheSize.
	CacheSize int
}

// Loader reads reference documents. It is safe for concurrent use.
type Loader struct {
	dir   string
	cache *lru.Cache[string, Content]
}

// NewLoader creates a Loader.
func NewLoader(opts Options) (*Loader, error) {
	l := &Loader{dir: opts.Dir}
	if opts.Cache {
		size := opts.CacheSize
		if size <= 0 {
			size = DefaultCacheSize
		}
		c, err := lru.New[string, Content](size)
		if err != nil {
			return nil, fmt.Errorf("creating reference cache: %w", err)
		}
		l.cache = c
	}
	return l, nil
}

// Load reads the document at path.
func (l *Loader) Load(path string) (Content, error) {
	full := l.abs(path)

	info, err := os.Stat(full)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Content{}, &ReferenceNotFoundError{Path: full}
		}
		return Content{}, &ReferenceUnreadableError{Path: full, Err: err}
	}
	if info.IsDir() {
		return Content{}, &ReferenceUnreadableError{Path: full, Err: errors.New("is a directory")}
	}

	if l.cache != nil {
		if c, ok := l.cache.Get(full); ok && c.ModTime.Equal(info.ModTime()) && c.Size == info.Size() {
			return c, nil
		}
	}

	data, err := os.ReadFile(full)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Content{}, &ReferenceNotFoundError{Path: full}
		}
		return Content{}, &ReferenceUnreadableError{Path: full, Err: err}
	}

	text, err := Decode(data)
	if err != nil {
		return Content{}, &ReferenceUnreadableError{Path: full, Err: err}
	}

	c := Content{Path: full, Text: text, ModTime: info.ModTime(), Size: info.Size()}
	if l.cache != nil {
		l.cache.Add(full, c)
	}
	return c, nil
}

// Purge drops every cached document.
func (l *Loader) Purge() {
	if l.cache != nil {
		l.cache.Purge()
	}
}

// Cached reports how many documents are cached.
func (l *Loader) Cached() int {
	if l.cache == nil {
		return 0
	}
	return l.cache.Len()
}

func (l *Loader) abs(path string) string {
	if filepath.IsAbs(path) || l.dir == "" {
		return filepath.Clean(path)
	}
	return filepath.Join(l.dir, path)
}

// Decode converts raw bytes to a string. A UTF-8 or UTF-16 BOM selects the
// encoding and is stripped; without one the bytes must already be UTF-8.
func Decode(data []byte) (string, error) {
	dec := unicode.BOMOverride(encoding.Nop.NewDecoder())
	out, err := io.ReadAll(transform.NewReader(bytes.NewReader(data), dec))
	if err != nil {
		return "", fmt.Errorf("decoding: %w", err)
	}
	if !utf8.Valid(out) {
		return "", ErrNotText
	}
	return string(out), nil
}
