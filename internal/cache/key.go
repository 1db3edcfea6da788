package cache

import (
	"fmt"
	"io"
	"os"

	"github.com/cespare/xxhash/v2"

	"parsemill/internal/domain"
)

// Files up to this size are hashed in full; larger files fall back to a
// path+size+mtime proxy so fingerprinting never dominates parse time.
const fullHashLimitBytes = 32 << 20

// Fingerprint returns a deterministic digest of a file's content, or the
// cheap proxy for files over the full-hash limit.
func Fingerprint(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("fingerprint %s: %w", path, err)
	}
	if info.Size() > fullHashLimitBytes {
		h := xxhash.New()
		fmt.Fprintf(h, "%s|%d|%d", path, info.Size(), info.ModTime().UnixNano())
		return fmt.Sprintf("%016x", h.Sum64()), nil
	}

	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("fingerprint %s: %w", path, err)
	}
	defer f.Close()

	h := xxhash.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("fingerprint %s: %w", path, err)
	}
	return fmt.Sprintf("%016x", h.Sum64()), nil
}

// Key derives the cache key for one (document, strategy, selection config)
// combination. Identical inputs always yield the identical key; changing any
// input yields a different one.
func Key(fingerprint, strategy string, criteria domain.SelectionCriteria, cons domain.Constraints) string {
	cfg := xxhash.Sum64String(fmt.Sprintf("%s|%.3f|%d", criteria, cons.MaxMemoryMB, cons.MaxDuration))
	return fmt.Sprintf("%s:%s:%016x", fingerprint, strategy, cfg)
}
