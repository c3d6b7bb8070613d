package blobstore

import "time"

// Blob identifies a stored object and optionally carries its metadata.
// Two Blob values with equal FullPath denote the same stored object; the
// remaining fields are populated only by Metadata, never by List.
type Blob struct {
	// FullPath is the normalized unique key, FolderPath joined with Name.
	FullPath string

	// FolderPath is the normalized folder holding the blob ("/" for the
	// root), without a trailing separator.
	FolderPath string

	// Name is the leaf segment of FullPath.
	Name string

	// Size is the content length in bytes. Metadata only.
	Size int64

	// ContentHash is the lowercase-hex MD5 digest of the full current
	// content. Metadata only.
	ContentHash string

	// LastModified is the time of the most recent successful write.
	// Metadata only.
	LastModified time.Time
}

// NewBlob builds an identity-only Blob from a caller-supplied identifier.
func NewBlob(id string) (Blob, error) {
	full, err := NormalizePath(id)
	if err != nil {
		return Blob{}, err
	}
	return blobFromPath(full), nil
}

func blobFromPath(full string) Blob {
	folder, name := SplitPath(full)
	return Blob{FullPath: full, FolderPath: folder, Name: name}
}

// ListOptions selects blobs for Store.List. The zero value lists the root
// folder non-recursively with no filters or bound.
type ListOptions struct {
	// FolderPath scopes the listing. "" and "/" denote the root.
	FolderPath string

	// Recurse extends the match from blobs directly in FolderPath to blobs
	// anywhere beneath it.
	Recurse bool

	// MaxResults truncates the result when > 0. 0 means unbounded.
	MaxResults int

	// IsMatch, when non-nil, keeps only blobs it reports true for.
	IsMatch func(Blob) bool

	// BrowseFilter, when non-nil, is applied after IsMatch.
	BrowseFilter func(Blob) bool
}

// SelectBlobs applies opts to a set of normalized full paths: folder scope,
// IsMatch, BrowseFilter, then the MaxResults bound. Backends feed it their
// candidate key sets and return its result from List.
func SelectBlobs(opts ListOptions, paths []string) ([]Blob, error) {
	folder, err := NormalizeFolder(opts.FolderPath)
	if err != nil {
		return nil, err
	}

	var out []Blob
	for _, p := range paths {
		b := blobFromPath(p)
		if !opts.match(b, folder) {
			continue
		}
		out = append(out, b)
		if opts.MaxResults > 0 && len(out) == opts.MaxResults {
			break
		}
	}
	return out, nil
}

// match applies the folder scope and both predicates to a name-only blob.
func (o ListOptions) match(b Blob, folder string) bool {
	if !o.Recurse {
		if b.FolderPath != folder {
			return false
		}
	} else if !underFolder(b.FolderPath, folder) {
		return false
	}
	if o.IsMatch != nil && !o.IsMatch(b) {
		return false
	}
	if o.BrowseFilter != nil && !o.BrowseFilter(b) {
		return false
	}
	return true
}
