package normalize

import (
	"crypto/sha256"
	"fmt"
	"io"
	"os"
)

// FileHash returns the hex-encoded SHA-256 of the file at path and the
// number of bytes read.
func FileHash(path string) (string, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", 0, fmt.Errorf("open file for hash: %w", err)
	}
	defer f.Close()

	h := sha256.New()
	n, err := io.Copy(h, f)
	if err != nil {
		return "", 0, fmt.Errorf("hash file: %w", err)
	}
	return fmt.Sprintf("%x", h.Sum(nil)), n, nil
}
