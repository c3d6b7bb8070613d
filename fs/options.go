package fs

import (
	"io/fs"

	"github.com/blobstore-go/blobstore/internal/compression"
)

// Options configure a filesystem Store.
type Options struct {
	// FileMode is used for blob data and metadata files.
	FileMode fs.FileMode

	// DirMode is used for created directories.
	DirMode fs.FileMode

	// Compress enables zstd at-rest compression for newly written blobs.
	Compress bool

	// CompressionLevel selects the zstd encoder level when Compress is set.
	CompressionLevel compression.Level

	// Concurrency bounds the goroutines used by batch operations
	// (Exists, Metadata, Delete).
	Concurrency int

	// CacheSize is the number of decoded blobs kept in the in-memory read
	// cache. 0 disables the cache.
	CacheSize int
}

// Option is a functional option for New.
type Option func(*Options)

func defaultOptions() *Options {
	return &Options{
		FileMode:         0o644,
		DirMode:          0o755,
		CompressionLevel: compression.Balanced,
		Concurrency:      8,
	}
}

// WithCompression enables zstd at-rest compression at the given level.
func WithCompression(level compression.Level) Option {
	return func(o *Options) {
		o.Compress = true
		o.CompressionLevel = level
	}
}

// WithConcurrency sets the parallelism of batch operations.
func WithConcurrency(n int) Option {
	return func(o *Options) {
		if n > 0 {
			o.Concurrency = n
		}
	}
}

// WithCacheSize enables an in-memory read cache holding up to n decoded
// blobs.
func WithCacheSize(n int) Option {
	return func(o *Options) { o.CacheSize = n }
}

// WithFileMode sets the mode for created files.
func WithFileMode(mode fs.FileMode) Option {
	return func(o *Options) { o.FileMode = mode }
}

// WithDirMode sets the mode for created directories.
func WithDirMode(mode fs.FileMode) Option {
	return func(o *Options) { o.DirMode = mode }
}
