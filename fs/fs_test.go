package fs

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/blobstore-go/blobstore"
	"github.com/blobstore-go/blobstore/internal/compression"
)

func readAll(t *testing.T, s blobstore.Store, path string) []byte {
	t.Helper()
	r, ok, err := s.OpenRead(context.Background(), path)
	require.NoError(t, err)
	require.True(t, ok, "blob %s should exist", path)
	defer r.Close()

	data, err := io.ReadAll(r)
	require.NoError(t, err)
	return data
}

func TestStore_Lifecycle(t *testing.T) {
	store, err := New(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	content := []byte("hello filesystem")

	require.NoError(t, store.Write(ctx, "/data/file.bin", content, false))
	require.Equal(t, content, readAll(t, store, "/data/file.bin"))

	metas, err := store.Metadata(ctx, "/data/file.bin", "/data/missing")
	require.NoError(t, err)
	require.Len(t, metas, 2)
	require.NotNil(t, metas[0])
	require.Nil(t, metas[1])
	require.Equal(t, int64(len(content)), metas[0].Size)
	require.Equal(t, blobstore.HashContent(content), metas[0].ContentHash)
	require.False(t, metas[0].LastModified.IsZero())

	exists, err := store.Exists(ctx, "/data/file.bin", "/data/missing")
	require.NoError(t, err)
	require.Equal(t, []bool{true, false}, exists)

	blobs, err := store.List(ctx, blobstore.ListOptions{FolderPath: "/data"})
	require.NoError(t, err)
	require.Len(t, blobs, 1)
	require.Equal(t, "/data/file.bin", blobs[0].FullPath)

	require.NoError(t, store.Delete(ctx, "/data/file.bin", "/data/missing"))
	exists, err = store.Exists(ctx, "/data/file.bin")
	require.NoError(t, err)
	require.Equal(t, []bool{false}, exists)
}

func TestStore_Append(t *testing.T) {
	store, err := New(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	require.NoError(t, store.Write(ctx, "/log", []byte("one,"), false))
	require.NoError(t, store.Write(ctx, "/log", []byte("two"), true))

	require.Equal(t, []byte("one,two"), readAll(t, store, "/log"))

	metas, err := store.Metadata(ctx, "/log")
	require.NoError(t, err)
	require.Equal(t, blobstore.HashContent([]byte("one,two")), metas[0].ContentHash)
}

func TestStore_Compression(t *testing.T) {
	root := t.TempDir()
	store, err := New(root, WithCompression(compression.Balanced))
	require.NoError(t, err)

	ctx := context.Background()
	content := make([]byte, 4096)
	for i := range content {
		content[i] = byte(i % 7)
	}

	require.NoError(t, store.Write(ctx, "/big", content, false))
	require.Equal(t, content, readAll(t, store, "/big"))

	// Metadata reflects the logical size, not the compressed bytes on disk.
	metas, err := store.Metadata(ctx, "/big")
	require.NoError(t, err)
	require.Equal(t, int64(len(content)), metas[0].Size)
	require.NoError(t, store.Close())

	// The store stays readable after reopening without compression.
	reopened, err := New(root)
	require.NoError(t, err)
	defer reopened.Close()
	require.Equal(t, content, readAll(t, reopened, "/big"))
}

func TestStore_StoresZstdFrameVerbatim(t *testing.T) {
	store, err := New(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	codec, err := compression.New(compression.Balanced, true)
	require.NoError(t, err)
	defer codec.Close()

	// A blob whose raw content is itself a zstd frame, e.g. an uploaded
	// .zst file, must round-trip byte for byte rather than being
	// decompressed on read.
	frame := codec.Encode([]byte("inner payload"))
	ctx := context.Background()

	require.NoError(t, store.Write(ctx, "/archive.zst", frame, false))
	require.Equal(t, frame, readAll(t, store, "/archive.zst"))

	metas, err := store.Metadata(ctx, "/archive.zst")
	require.NoError(t, err)
	require.Equal(t, int64(len(frame)), metas[0].Size)
	require.Equal(t, blobstore.HashContent(frame), metas[0].ContentHash)
}

func TestStore_ReadCache(t *testing.T) {
	store, err := New(t.TempDir(), WithCacheSize(4))
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	require.NoError(t, store.Write(ctx, "/cached", []byte("v1"), false))
	require.Equal(t, []byte("v1"), readAll(t, store, "/cached"))
	require.Equal(t, []byte("v1"), readAll(t, store, "/cached"))

	// Writes invalidate the cached entry.
	require.NoError(t, store.Write(ctx, "/cached", []byte("v2"), false))
	require.Equal(t, []byte("v2"), readAll(t, store, "/cached"))

	require.NoError(t, store.Delete(ctx, "/cached"))
	_, ok, err := store.OpenRead(ctx, "/cached")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestStore_PathAndPrefixCoexist(t *testing.T) {
	store, err := New(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()

	// "/a" the blob and "/a/b" the nested blob cannot both exist as literal
	// filesystem entries; the hashed layout keeps them apart.
	require.NoError(t, store.Write(ctx, "/a", []byte("leaf"), false))
	require.NoError(t, store.Write(ctx, "/a/b", []byte("nested"), false))

	require.Equal(t, []byte("leaf"), readAll(t, store, "/a"))
	require.Equal(t, []byte("nested"), readAll(t, store, "/a/b"))

	blobs, err := store.List(ctx, blobstore.ListOptions{FolderPath: "/", Recurse: true})
	require.NoError(t, err)
	require.Len(t, blobs, 2)
}

func TestStore_Persistence(t *testing.T) {
	root := t.TempDir()
	ctx := context.Background()

	store, err := New(root)
	require.NoError(t, err)
	require.NoError(t, store.Write(ctx, "/durable", []byte("still here"), false))
	require.NoError(t, store.Close())

	reopened, err := New(root)
	require.NoError(t, err)
	defer reopened.Close()
	require.Equal(t, []byte("still here"), readAll(t, reopened, "/durable"))
}

func TestStore_DeferredWrite(t *testing.T) {
	store, err := New(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()

	w, err := store.OpenWrite(ctx, "/streamed", false)
	require.NoError(t, err)
	_, err = w.Write([]byte("part1 "))
	require.NoError(t, err)
	_, err = w.Write([]byte("part2"))
	require.NoError(t, err)

	exists, err := store.Exists(ctx, "/streamed")
	require.NoError(t, err)
	require.Equal(t, []bool{false}, exists)

	require.NoError(t, w.Close())
	require.Equal(t, []byte("part1 part2"), readAll(t, store, "/streamed"))
}

func TestStore_Cancellation(t *testing.T) {
	store, err := New(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.Write(context.Background(), "/kept", []byte("x"), false))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// A context that is already done aborts every operation before it
	// touches the filesystem.
	require.ErrorIs(t, store.Write(ctx, "/new", []byte("x"), false), context.Canceled)
	_, err = store.Exists(ctx, "/kept")
	require.ErrorIs(t, err, context.Canceled)
	_, err = store.Metadata(ctx, "/kept")
	require.ErrorIs(t, err, context.Canceled)
	require.ErrorIs(t, store.Delete(ctx, "/kept"), context.Canceled)
	_, err = store.List(ctx, blobstore.ListOptions{})
	require.ErrorIs(t, err, context.Canceled)

	exists, err := store.Exists(context.Background(), "/kept")
	require.NoError(t, err)
	require.Equal(t, []bool{true}, exists)
}

func TestStore_Validation(t *testing.T) {
	store, err := New(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	require.ErrorIs(t, store.Write(ctx, "/folder/", []byte("x"), false), blobstore.ErrInvalidPath)
	_, err = store.Exists(ctx, "relative")
	require.ErrorIs(t, err, blobstore.ErrInvalidPath)
}
