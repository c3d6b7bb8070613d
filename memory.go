package blobstore

import (
	"bytes"
	"context"
	"io"
	"sync"
)

// MemoryStore is the reference Store implementation. It keeps every blob in
// a mutex-guarded tag map and is safe for concurrent use: each operation,
// including the read-modify-write of an append, executes as a single
// critical section, so concurrent appends to one path serialize and neither
// update is lost. Content is volatile and lives as long as the store does.
type MemoryStore struct {
	mu   sync.RWMutex
	tags map[string]tag
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{tags: make(map[string]tag)}
}

var _ Store = (*MemoryStore)(nil)

// List enumerates blobs under opts.FolderPath. It snapshots the key set
// under the read lock and runs the option predicates outside it; entries
// added or removed while filtering are not reflected.
func (m *MemoryStore) List(ctx context.Context, opts ListOptions) ([]Blob, error) {
	if _, err := NormalizeFolder(opts.FolderPath); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	paths := make([]string, 0, len(m.tags))
	for p := range m.tags {
		paths = append(paths, p)
	}
	m.mu.RUnlock()

	return SelectBlobs(opts, paths)
}

// Write stores or appends content under path.
func (m *MemoryStore) Write(ctx context.Context, path string, content []byte, appendMode bool) error {
	full, err := NormalizePath(path)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	// Copy before taking the lock so callers can reuse their buffer.
	copied := bytes.Clone(content)

	m.mu.Lock()
	defer m.mu.Unlock()

	if appendMode {
		if prev, ok := m.tags[full]; ok {
			combined := make([]byte, 0, len(prev.data)+len(copied))
			combined = append(combined, prev.data...)
			combined = append(combined, copied...)
			m.tags[full] = newTag(combined)
			return nil
		}
	}
	m.tags[full] = newTag(copied)
	return nil
}

// OpenWrite returns a deferred-commit handle targeting path. The path is
// validated here, before any bytes are buffered.
func (m *MemoryStore) OpenWrite(ctx context.Context, path string, appendMode bool) (WriteHandle, error) {
	full, err := NormalizePath(path)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return NewDeferredWriter(ctx, m, full, appendMode), nil
}

// OpenRead returns a reader over a private copy of the content, so later
// writes or deletes cannot corrupt an in-flight read.
func (m *MemoryStore) OpenRead(ctx context.Context, path string) (io.ReadCloser, bool, error) {
	full, err := NormalizePath(path)
	if err != nil {
		return nil, false, err
	}
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	m.mu.RLock()
	t, ok := m.tags[full]
	var copied []byte
	if ok {
		copied = bytes.Clone(t.data)
	}
	m.mu.RUnlock()

	if !ok {
		return nil, false, nil
	}
	return io.NopCloser(bytes.NewReader(copied)), true, nil
}

// Delete removes each path independently; missing paths are a no-op.
// Validation errors surface before any entry is removed.
func (m *MemoryStore) Delete(ctx context.Context, paths ...string) error {
	fulls, err := NormalizePaths(paths)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, full := range fulls {
		delete(m.tags, full)
	}
	return nil
}

// Exists reports existence per path in input order.
func (m *MemoryStore) Exists(ctx context.Context, paths ...string) ([]bool, error) {
	fulls, err := NormalizePaths(paths)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]bool, len(fulls))
	for i, full := range fulls {
		_, out[i] = m.tags[full]
	}
	return out, nil
}

// Metadata resolves full metadata per path in input order, with nil marking
// absent entries.
func (m *MemoryStore) Metadata(ctx context.Context, paths ...string) ([]*Blob, error) {
	fulls, err := NormalizePaths(paths)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*Blob, len(fulls))
	for i, full := range fulls {
		t, ok := m.tags[full]
		if !ok {
			continue
		}
		b := blobFromPath(full)
		b.Size = int64(len(t.data))
		b.ContentHash = t.contentHash
		b.LastModified = t.lastModified
		out[i] = &b
	}
	return out, nil
}

// BeginTx returns the no-op transaction handle; the in-memory store has no
// native transactional capability.
func (m *MemoryStore) BeginTx(ctx context.Context) (Tx, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return NopTx{}, nil
}

// Len reports the number of stored blobs.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.tags)
}
