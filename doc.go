// Package blobstore provides a uniform abstraction for storing named byte
// blobs across interchangeable backends.
//
// A Store groups blobs under normalized, absolute, slash-separated paths and
// exposes the same observable semantics regardless of where the bytes live:
// list, write (overwrite or append), deferred-commit write handles, snapshot
// reads, batch delete/exists/metadata, and a transaction scope.
//
// The root package contains the contract and the reference in-memory
// implementation. Durable backends live in subpackages:
//
//   - fs: local filesystem, optional zstd at-rest compression
//   - sqlite: SQLite-backed store with real transactions
//
// Basic usage:
//
//	store := blobstore.NewMemoryStore()
//
//	// Store content under a full path
//	store.Write(ctx, "/invoices/2026/aug.csv", data, false)
//
//	// Stream content in, committed on Close
//	w, _ := store.OpenWrite(ctx, "/logs/app.log", true)
//	io.Copy(w, src)
//	w.Close()
//
//	// Read it back; absent blobs are not an error
//	r, ok, _ := store.OpenRead(ctx, "/invoices/2026/aug.csv")
//	if ok {
//		defer r.Close()
//		// ...
//	}
//
//	// Enumerate a folder
//	blobs, _ := store.List(ctx, blobstore.ListOptions{
//		FolderPath: "/invoices",
//		Recurse:    true,
//	})
//
// Not-found is reported as absence (a false ok, a nil metadata slot), never
// as an error; only malformed paths and cancelled contexts produce errors.
package blobstore
