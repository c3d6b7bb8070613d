// Package fs implements the blob storage contract on the local filesystem.
//
// Each blob lives in its own directory derived from the SHA-256 of its
// normalized full path:
//
//	root/
//	  blobs/ab/cd/ef123.../data       (content, zstd-framed when compression is on)
//	  blobs/ab/cd/ef123.../meta.json  (path, size, content hash, mtime)
//	  tmp/                            (staging for atomic publishes)
//
// Hashing the key keeps arbitrary blob paths out of the filesystem namespace:
// "/a" and "/a/b" can coexist even though a filesystem could not hold a file
// and a directory under the same name, and no caller-supplied segment ever
// becomes a literal directory entry.
package fs

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	iofs "io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/sourcegraph/conc/pool"

	"github.com/blobstore-go/blobstore"
	"github.com/blobstore-go/blobstore/internal/compression"
)

const (
	blobDirName  = "blobs"
	tempDirName  = "tmp"
	dataFileName = "data"
	metaFileName = "meta.json"
)

// Store is a filesystem-backed blobstore.Store. A single process owns the
// root directory; within it, writes are serialized by a store-level lock so
// append read-modify-write cannot interleave.
type Store struct {
	root  string
	opts  *Options
	codec *compression.Codec
	cache *readCache

	mu sync.RWMutex
}

var _ blobstore.Store = (*Store)(nil)

// New creates or opens a store rooted at root.
func New(root string, opts ...Option) (*Store, error) {
	options := defaultOptions()
	for _, opt := range opts {
		opt(options)
	}

	root = filepath.Clean(root)
	for _, dir := range []string{filepath.Join(root, blobDirName), filepath.Join(root, tempDirName)} {
		if err := os.MkdirAll(dir, options.DirMode); err != nil {
			return nil, fmt.Errorf("create directory %s: %w", dir, err)
		}
	}

	codec, err := compression.New(options.CompressionLevel, options.Compress)
	if err != nil {
		return nil, err
	}

	s := &Store{root: root, opts: options, codec: codec}
	if options.CacheSize > 0 {
		s.cache = newReadCache(options.CacheSize)
	}
	return s, nil
}

// Close releases the compression codec. Stored blobs stay on disk.
func (s *Store) Close() error {
	return s.codec.Close()
}

// meta is the per-blob sidecar record. Size and ContentHash describe the
// logical content, never the compressed bytes on disk. Encoding records how
// the data file was written; it is authoritative on read, so raw content
// that looks like a zstd frame is never decompressed by accident.
type meta struct {
	FullPath     string    `json:"full_path"`
	Size         int64     `json:"size"`
	ContentHash  string    `json:"content_hash"`
	LastModified time.Time `json:"last_modified"`
	Encoding     string    `json:"encoding,omitempty"`
}

// List walks the metadata sidecars and applies opts.
func (s *Store) List(ctx context.Context, opts blobstore.ListOptions) ([]blobstore.Blob, error) {
	if _, err := blobstore.NormalizeFolder(opts.FolderPath); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var paths []string
	blobsDir := filepath.Join(s.root, blobDirName)
	err := filepath.WalkDir(blobsDir, func(p string, d iofs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() || d.Name() != metaFileName {
			return nil
		}
		m, err := s.readMeta(p)
		if err != nil {
			// Torn or corrupt sidecar; the entry is invisible rather than
			// failing the whole listing.
			return nil
		}
		paths = append(paths, m.FullPath)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return blobstore.SelectBlobs(opts, paths)
}

// Write stores or appends content under path.
func (s *Store) Write(ctx context.Context, path string, content []byte, appendMode bool) error {
	full, err := blobstore.NormalizePath(path)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if appendMode {
		prev, ok, err := s.readDataLocked(full)
		if err != nil {
			return err
		}
		if ok {
			combined := make([]byte, 0, len(prev)+len(content))
			combined = append(combined, prev...)
			combined = append(combined, content...)
			return s.storeLocked(full, combined)
		}
	}
	return s.storeLocked(full, content)
}

// OpenWrite returns a deferred-commit handle; the commit lands as one Write.
func (s *Store) OpenWrite(ctx context.Context, path string, appendMode bool) (blobstore.WriteHandle, error) {
	full, err := blobstore.NormalizePath(path)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return blobstore.NewDeferredWriter(ctx, s, full, appendMode), nil
}

// OpenRead returns a reader over the decoded content as of the call.
func (s *Store) OpenRead(ctx context.Context, path string) (io.ReadCloser, bool, error) {
	full, err := blobstore.NormalizePath(path)
	if err != nil {
		return nil, false, err
	}
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	data, ok, err := s.readDataLocked(full)
	if err != nil || !ok {
		return nil, false, err
	}
	return io.NopCloser(bytes.NewReader(data)), true, nil
}

// Delete removes each blob directory independently on a bounded pool.
// Missing blobs are a no-op.
func (s *Store) Delete(ctx context.Context, paths ...string) error {
	fulls, err := blobstore.NormalizePaths(paths)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p := pool.New().WithErrors().WithMaxGoroutines(s.opts.Concurrency)
	for _, full := range fulls {
		p.Go(func() error {
			if err := os.RemoveAll(s.blobDir(full)); err != nil {
				return fmt.Errorf("delete blob %s: %w", full, err)
			}
			s.cache.remove(full)
			return nil
		})
	}
	return p.Wait()
}

// Exists stats the data files on a bounded pool, preserving input order.
func (s *Store) Exists(ctx context.Context, paths ...string) ([]bool, error) {
	fulls, err := blobstore.NormalizePaths(paths)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]bool, len(fulls))
	p := pool.New().WithContext(ctx).WithMaxGoroutines(s.opts.Concurrency)
	for i, full := range fulls {
		p.Go(func(ctx context.Context) error {
			_, err := os.Stat(filepath.Join(s.blobDir(full), dataFileName))
			if err == nil {
				out[i] = true
				return nil
			}
			if errors.Is(err, os.ErrNotExist) {
				return nil
			}
			return err
		})
	}
	if err := p.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Metadata reads the sidecars on a bounded pool, preserving input order.
// Missing blobs yield nil elements.
func (s *Store) Metadata(ctx context.Context, paths ...string) ([]*blobstore.Blob, error) {
	fulls, err := blobstore.NormalizePaths(paths)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*blobstore.Blob, len(fulls))
	p := pool.New().WithContext(ctx).WithMaxGoroutines(s.opts.Concurrency)
	for i, full := range fulls {
		p.Go(func(ctx context.Context) error {
			dir := s.blobDir(full)
			if _, err := os.Stat(filepath.Join(dir, dataFileName)); err != nil {
				if errors.Is(err, os.ErrNotExist) {
					return nil
				}
				return err
			}
			m, err := s.readMeta(filepath.Join(dir, metaFileName))
			if err != nil {
				if errors.Is(err, os.ErrNotExist) {
					return nil
				}
				return err
			}
			folder, name := blobstore.SplitPath(full)
			out[i] = &blobstore.Blob{
				FullPath:     full,
				FolderPath:   folder,
				Name:         name,
				Size:         m.Size,
				ContentHash:  m.ContentHash,
				LastModified: m.LastModified,
			}
			return nil
		})
	}
	if err := p.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// BeginTx returns the no-op handle; the filesystem has no native
// transactional capability.
func (s *Store) BeginTx(ctx context.Context) (blobstore.Tx, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return blobstore.NopTx{}, nil
}

// storeLocked publishes content under full: encode, stage in tmp, write the
// sidecar, then atomically rename the data file into place. Callers hold the
// write lock.
func (s *Store) storeLocked(full string, content []byte) error {
	dir := s.blobDir(full)
	if err := os.MkdirAll(dir, s.opts.DirMode); err != nil {
		return fmt.Errorf("create blob dir: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Join(s.root, tempDirName), "put-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	cleanup := func() {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
	}

	if _, err := tmp.Write(s.codec.Encode(content)); err != nil {
		cleanup()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("close temp file: %w", err)
	}

	m := meta{
		FullPath:     full,
		Size:         int64(len(content)),
		ContentHash:  blobstore.HashContent(content),
		LastModified: time.Now().UTC(),
		Encoding:     s.codec.Encoding(),
	}
	raw, err := json.Marshal(m)
	if err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("encode metadata: %w", err)
	}

	// Sidecar first: a reader that sees the data file can rely on the
	// sidecar being present.
	if err := os.WriteFile(filepath.Join(dir, metaFileName), raw, s.opts.FileMode); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("write metadata: %w", err)
	}

	if err := os.Rename(tmpPath, filepath.Join(dir, dataFileName)); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("commit blob: %w", err)
	}

	s.cache.remove(full)
	return nil
}

// readDataLocked returns the decoded content of full, consulting the read
// cache first. Callers hold at least the read lock.
func (s *Store) readDataLocked(full string) ([]byte, bool, error) {
	if data, ok := s.cache.get(full); ok {
		return data, true, nil
	}

	dir := s.blobDir(full)
	raw, err := os.ReadFile(filepath.Join(dir, dataFileName))
	if errors.Is(err, os.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read blob %s: %w", full, err)
	}

	// Sidecars written before the encoding was recorded leave it empty and
	// fall back to frame sniffing inside Decode.
	var encoding string
	if m, err := s.readMeta(filepath.Join(dir, metaFileName)); err == nil {
		encoding = m.Encoding
	}

	data, err := s.codec.Decode(raw, encoding)
	if err != nil {
		return nil, false, fmt.Errorf("decode blob %s: %w", full, err)
	}
	s.cache.add(full, data)
	return data, true, nil
}

func (s *Store) readMeta(path string) (*meta, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	var m meta
	if err := json.NewDecoder(f).Decode(&m); err != nil {
		return nil, fmt.Errorf("decode metadata: %w", err)
	}
	return &m, nil
}

// blobDir shards the blob directory by the SHA-256 of the normalized path.
func (s *Store) blobDir(full string) string {
	sum := sha256.Sum256([]byte(full))
	h := hex.EncodeToString(sum[:])
	return filepath.Join(s.root, blobDirName, h[:2], h[2:4], h[4:])
}
