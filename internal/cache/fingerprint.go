package cache

import (
	"fmt"
	"hash/fnv"
	"os"
	"time"

	apperrors "go-nft-marker-gen/internal/errors"
)

// SourceFile captures the cheap identity of a source image: path, size and
// modified time. Ephemeral; it exists only for the duration of a request.
type SourceFile struct {
	Path        string
	Size        int64
	ModTime     time.Time
	Fingerprint string
}

// StatSource stats the file and derives its cache fingerprint. A missing or
// unreadable path fails with a validation error.
func StatSource(path string) (SourceFile, error) {
	info, err := os.Stat(path)
	if err != nil {
		return SourceFile{}, apperrors.NewValidationError(
			fmt.Sprintf("source image %q is not readable", path), err)
	}
	if info.IsDir() {
		return SourceFile{}, apperrors.NewValidationError(
			fmt.Sprintf("source path %q is a directory", path), nil)
	}
	return SourceFile{
		Path:        path,
		Size:        info.Size(),
		ModTime:     info.ModTime(),
		Fingerprint: FingerprintOf(path, info.ModTime(), info.Size()),
	}, nil
}

// FingerprintOf hashes path, mtime, and size into the cache key. FNV-1a is
// deliberate: the fingerprint stands in for content hashing and only needs
// to be cheap and stable, not collision-proof.
func FingerprintOf(path string, modTime time.Time, size int64) string {
	h := fnv.New64a()
	fmt.Fprintf(h, "%s|%d|%d", path, modTime.UnixNano(), size)
	return fmt.Sprintf("%016x", h.Sum64())
}
