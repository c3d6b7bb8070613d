package blobstore

import (
	"fmt"
	"strings"
)

// Blob identifiers are slash-separated absolute paths. Both "/" and "\" are
// accepted as separators on input and canonicalized to "/". Repeated
// separators are collapsed; "." and ".." segments are rejected rather than
// resolved, so a normalized path can never escape its folder.

// NormalizePath canonicalizes a caller-supplied identifier into a full path.
// A full path is anchored, has at least one segment, and names a concrete
// blob, never a folder. Inputs ending in a separator are rejected with
// ErrInvalidPath because they resolve to a folder.
func NormalizePath(id string) (string, error) {
	if id == "" {
		return "", fmt.Errorf("%w: empty identifier", ErrInvalidPath)
	}

	s := strings.ReplaceAll(id, `\`, "/")
	if !strings.HasPrefix(s, "/") {
		return "", fmt.Errorf("%w: %q is not an anchored path", ErrInvalidPath, id)
	}
	if strings.HasSuffix(s, "/") {
		return "", fmt.Errorf("%w: %q resolves to a folder, not a blob", ErrInvalidPath, id)
	}

	segs, err := splitSegments(s, id)
	if err != nil {
		return "", err
	}
	return "/" + strings.Join(segs, "/"), nil
}

// NormalizeFolder canonicalizes a folder path. The empty string, "/" and "\"
// all denote the root folder, which normalizes to "/". Any other folder
// normalizes without a trailing separator.
func NormalizeFolder(p string) (string, error) {
	s := strings.ReplaceAll(p, `\`, "/")
	if s == "" || s == "/" {
		return "/", nil
	}
	if !strings.HasPrefix(s, "/") {
		return "", fmt.Errorf("%w: %q is not an anchored path", ErrInvalidPath, p)
	}

	segs, err := splitSegments(s, p)
	if err != nil {
		return "", err
	}
	if len(segs) == 0 {
		return "/", nil
	}
	return "/" + strings.Join(segs, "/"), nil
}

// NormalizePaths canonicalizes a batch of identifiers, preserving order.
// The first invalid identifier fails the whole batch, before any store
// mutation in the batch operations built on it.
func NormalizePaths(ids []string) ([]string, error) {
	fulls := make([]string, len(ids))
	for i, id := range ids {
		full, err := NormalizePath(id)
		if err != nil {
			return nil, err
		}
		fulls[i] = full
	}
	return fulls, nil
}

// SplitPath decomposes a normalized full path into its folder and leaf name.
// The folder of a root-level blob is "/".
func SplitPath(full string) (folder, name string) {
	i := strings.LastIndexByte(full, '/')
	if i <= 0 {
		return "/", full[i+1:]
	}
	return full[:i], full[i+1:]
}

// JoinPath composes a normalized folder and leaf name back into a full path.
func JoinPath(folder, name string) string {
	if folder == "/" {
		return "/" + name
	}
	return folder + "/" + name
}

// underFolder reports whether folder is f itself or nested anywhere beneath
// it. Both arguments must already be normalized folder paths.
func underFolder(folder, f string) bool {
	if folder == f || f == "/" {
		return true
	}
	return strings.HasPrefix(folder, f+"/")
}

func splitSegments(s, orig string) ([]string, error) {
	var segs []string
	for _, seg := range strings.Split(strings.Trim(s, "/"), "/") {
		switch seg {
		case "":
			// Collapsed separator, e.g. "/a//b".
		case ".", "..":
			return nil, fmt.Errorf("%w: %q contains a %q segment", ErrInvalidPath, orig, seg)
		default:
			segs = append(segs, seg)
		}
	}
	return segs, nil
}
