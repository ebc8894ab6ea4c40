package storage

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"gocloud.dev/blob"
	"gocloud.dev/blob/fileblob"
	_ "gocloud.dev/blob/gcsblob"
	_ "gocloud.dev/blob/memblob"
	_ "gocloud.dev/blob/s3blob"
	"gocloud.dev/gcerrors"
)

// ErrInvalidDestination is returned for destinations that name no object.
var ErrInvalidDestination = errors.New("storage: invalid destination")

// WriteError is returned when an object could not be written.
type WriteError struct {
	Dest string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("write %s: %v", e.Dest, e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}

// Destination is a parsed write target.
type Destination struct {
	// BucketURL is the gocloud URL of the bucket, empty for local paths.
	BucketURL string
	// Dir is the local directory for local paths.
	Dir string
	// Key is the object key within the bucket or directory.
	Key string
}

func (d Destination) String() string {
	if d.BucketURL == "" {
		return filepath.Join(d.Dir, d.Key)
	}
	return d.BucketURL + "#" + d.Key
}

// Join returns the destination for name inside dest, which names a directory
// or a bucket prefix.
func Join(dest, name string) string {
	if !isURL(dest) {
		return filepath.Join(dest, name)
	}
	base, prefix, _ := strings.Cut(dest, "#")
	return base + "#" + path.Join(prefix, name)
}

// SafeName reduces a remote file name to a single path element. Separators
// become underscores and control characters are dropped.
func SafeName(name string) string {
	name = strings.Map(func(r rune) rune {
		switch {
		case r == '/' || r == '\\':
			return '_'
		case r < 0x20 || r == 0x7f:
			return -1
		}
		return r
	}, name)

	name = strings.TrimSpace(name)
	if name == "" || name == "." || name == ".." {
		return "unnamed"
	}
	return name
}

// Parse parses a destination string.
func Parse(dest string) (Destination, error) {
	if dest == "" {
		return Destination{}, fmt.Errorf("%w: empty", ErrInvalidDestination)
	}

	if !isURL(dest) {
		dir, key := filepath.Split(filepath.Clean(dest))
		if key == "" || key == "." || key == string(filepath.Separator) {
			return Destination{}, fmt.Errorf("%w: %q names no file", ErrInvalidDestination, dest)
		}
		if dir == "" {
			dir = "."
		}
		return Destination{Dir: dir, Key: key}, nil
	}

	base, key, _ := strings.Cut(dest, "#")
	key = strings.TrimPrefix(key, "/")
	if key == "" || strings.HasSuffix(key, "/") {
		return Destination{}, fmt.Errorf("%w: %q has no object key", ErrInvalidDestination, dest)
	}
	if _, err := url.Parse(base); err != nil {
		return Destination{}, fmt.Errorf("%w: %v", ErrInvalidDestination, err)
	}
	return Destination{BucketURL: base, Key: key}, nil
}

func isURL(dest string) bool {
	return strings.Contains(dest, "://")
}

// Store writes destinations, caching one open bucket per bucket URL or
// directory. It is safe for concurrent use.
type Store struct {
	mu      sync.Mutex
	buckets map[string]*blob.Bucket
}

// NewStore returns an empty Store.
func NewStore() *Store {
	return &Store{buckets: make(map[string]*blob.Bucket)}
}

// Write writes data to dest, replacing any existing object.
func (s *Store) Write(ctx context.Context, dest string, data []byte) error {
	d, err := Parse(dest)
	if err != nil {
		return err
	}

	bucket, err := s.bucket(ctx, d)
	if err != nil {
		return &WriteError{Dest: d.String(), Err: err}
	}

	if err := bucket.WriteAll(ctx, d.Key, data, &blob.WriterOptions{
		ContentType: "application/octet-stream",
	}); err != nil {
		return &WriteError{Dest: d.String(), Err: err}
	}
	return nil
}

// Read returns the contents of dest.
func (s *Store) Read(ctx context.Context, dest string) ([]byte, error) {
	d, err := Parse(dest)
	if err != nil {
		return nil, err
	}

	bucket, err := s.bucket(ctx, d)
	if err != nil {
		return nil, err
	}
	return bucket.ReadAll(ctx, d.Key)
}

// Exists reports whether dest holds an object.
func (s *Store) Exists(ctx context.Context, dest string) (bool, error) {
	d, err := Parse(dest)
	if err != nil {
		return false, err
	}

	bucket, err := s.bucket(ctx, d)
	if err != nil {
		if gcerrors.Code(err) == gcerrors.NotFound {
			return false, nil
		}
		return false, err
	}
	return bucket.Exists(ctx, d.Key)
}

// Close closes every bucket opened by the store.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []error
	for k, b := range s.buckets {
		errs = append(errs, b.Close())
		delete(s.buckets, k)
	}
	return errors.Join(errs...)
}

func (s *Store) bucket(ctx context.Context, d Destination) (*blob.Bucket, error) {
	cacheKey := d.BucketURL
	if cacheKey == "" {
		cacheKey = "file:" + d.Dir
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if b, ok := s.buckets[cacheKey]; ok {
		return b, nil
	}

	var (
		b   *blob.Bucket
		err error
	)
	if d.BucketURL == "" {
		b, err = fileblob.OpenBucket(d.Dir, &fileblob.Options{
			CreateDir: true,
			NoTempDir: true,
			Metadata:  fileblob.MetadataDontWrite,
		})
	} else {
		b, err = blob.OpenBucket(ctx, d.BucketURL)
	}
	if err != nil {
		return nil, fmt.Errorf("open bucket for %s: %w", d, err)
	}

	s.buckets[cacheKey] = b
	return b, nil
}
