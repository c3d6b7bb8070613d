package blobstore

import (
	"bytes"
	"context"
	"sync"
)

// deferredWriter buffers writes and commits them to the owning store as one
// Write call on Close. It is the WriteHandle implementation shared by all
// backends in this module.
//
// State machine: open -> (writes)* -> committed | discarded. Close drives
// the commit exactly once; a second Close, or a Close after Discard, does
// nothing. A context that is done by Close time discards the buffer instead
// of committing, so a cancelled operation leaves no partial write.
type deferredWriter struct {
	ctx        context.Context
	store      Store
	path       string
	appendMode bool

	mu     sync.Mutex
	buf    bytes.Buffer
	closed bool
	commit bool
}

// NewDeferredWriter returns the WriteHandle used by every backend in this
// module: it buffers in memory and commits through store.Write on Close.
// The path must already be normalized; backends validate it in OpenWrite.
func NewDeferredWriter(ctx context.Context, store Store, path string, appendMode bool) WriteHandle {
	return &deferredWriter{
		ctx:        ctx,
		store:      store,
		path:       path,
		appendMode: appendMode,
		commit:     true,
	}
}

var _ WriteHandle = (*deferredWriter)(nil)

// Write buffers p. No bytes reach the store before Close.
func (w *deferredWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return 0, ErrHandleClosed
	}
	return w.buf.Write(p)
}

// Close commits the buffered bytes with the append mode fixed at creation.
// Closing an empty handle still stores an empty blob. Idempotent.
func (w *deferredWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true

	if !w.commit {
		return nil
	}
	if err := w.ctx.Err(); err != nil {
		// Cancelled before the commit began: drop the buffer whole.
		w.buf.Reset()
		return err
	}
	return w.store.Write(w.ctx, w.path, w.buf.Bytes(), w.appendMode)
}

// Discard abandons the buffer; a later Close becomes a no-op.
func (w *deferredWriter) Discard() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.commit = false
	if !w.closed {
		w.closed = true
		w.buf.Reset()
	}
	return nil
}
