package blobstore

import "errors"

var (
	// ErrInvalidPath is returned when a caller-supplied identifier cannot be
	// normalized into a full path: empty, not anchored at the separator, or
	// containing empty, "." or ".." segments. Wrapped errors carry the
	// offending input; test with errors.Is.
	ErrInvalidPath = errors.New("blobstore: invalid path")

	// ErrHandleClosed is returned by writes to a WriteHandle after it has
	// been closed or discarded.
	ErrHandleClosed = errors.New("blobstore: write handle closed")

	// ErrTxActive is returned by BeginTx when the backend supports real
	// transactions and one is already open on this store.
	ErrTxActive = errors.New("blobstore: transaction already active")
)
