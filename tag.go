package blobstore

import (
	"crypto/md5"
	"encoding/hex"
	"time"
)

// tag is the per-blob record of the in-memory store: the content bytes plus
// metadata derived from them. A tag is created whole on write, replaced
// whole on overwrite, and rebuilt from the concatenated buffer on append.
type tag struct {
	data         []byte
	contentHash  string
	lastModified time.Time
}

// newTag derives a tag from content. The hash always covers the entire
// buffer; appends re-hash the full concatenation rather than combining
// digests, so equal bytes always carry equal hashes.
func newTag(content []byte) tag {
	return tag{
		data:         content,
		contentHash:  HashContent(content),
		lastModified: time.Now().UTC(),
	}
}

// HashContent returns the lowercase-hex MD5 digest used as the content hash
// throughout the contract. Exposed so durable backends and callers can
// derive the same hash without a store round trip.
func HashContent(content []byte) string {
	sum := md5.Sum(content)
	return hex.EncodeToString(sum[:])
}
