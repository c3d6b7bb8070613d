package blobstore

import (
	"context"
	"io"
)

// Store is the uniform blob storage contract. Every backend satisfies it
// with identical observable semantics; callers can swap the in-memory
// reference store for a durable backend without behavioral change.
//
// All operations honor their context before touching backend state: a
// context that is already done aborts the call with its error and no side
// effect. Once a mutation has begun it runs to completion atomically.
//
// Absence is not an error. OpenRead reports it through its ok result,
// Metadata through nil slice elements, Exists through false, and Delete
// treats missing paths as a no-op.
type Store interface {
	// List returns name-only Blobs in no particular order: blobs whose
	// folder equals opts.FolderPath (or falls anywhere beneath it when
	// opts.Recurse is set), filtered by the option predicates and truncated
	// to opts.MaxResults. An empty result is a valid outcome.
	List(ctx context.Context, opts ListOptions) ([]Blob, error)

	// Write stores content under path, which must normalize to a full path.
	// With appendMode false, or when the target does not exist, any prior
	// content is replaced wholesale. With appendMode true the new content is
	// concatenated onto the existing bytes and the blob is re-hashed and
	// re-timestamped as a whole.
	Write(ctx context.Context, path string, content []byte, appendMode bool) error

	// OpenWrite returns a handle whose writes are buffered and submitted as
	// a single Write on Close, with the append flag fixed here. Closing with
	// zero bytes written still stores an empty blob.
	OpenWrite(ctx context.Context, path string, appendMode bool) (WriteHandle, error)

	// OpenRead returns a reader over the content as of the call. The reader
	// is isolated from later store mutations and closing it never affects
	// other readers. ok is false when the blob is absent.
	OpenRead(ctx context.Context, path string) (r io.ReadCloser, ok bool, err error)

	// Delete removes each path independently. Missing paths are skipped;
	// Delete is idempotent.
	Delete(ctx context.Context, paths ...string) error

	// Exists reports existence per input path, preserving input order.
	Exists(ctx context.Context, paths ...string) ([]bool, error)

	// Metadata resolves size, content hash and last-modified time per input
	// path, preserving input order. Missing paths yield a nil element at
	// their position.
	Metadata(ctx context.Context, paths ...string) ([]*Blob, error)

	// BeginTx opens a transaction scope. Backends without native
	// transactions return NopTx so callers can use the handle uniformly.
	BeginTx(ctx context.Context) (Tx, error)
}

// WriteHandle is a deferred-commit writer obtained from Store.OpenWrite.
// Nothing reaches the store until Close, which commits the buffered bytes
// exactly once; repeated Close calls are no-ops. Discard drops the buffer
// without writing.
type WriteHandle interface {
	io.Writer
	io.Closer

	// Discard abandons the buffered bytes. After Discard, Close no longer
	// commits. Safe to call multiple times and after Close.
	Discard() error
}

// Tx is a scoped unit of work. Close releases the scope, rolling back when
// neither Commit nor Rollback was called; for non-transactional backends all
// three are no-ops.
type Tx interface {
	Commit() error
	Rollback() error
	Close() error
}
