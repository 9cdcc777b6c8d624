// Package digest fingerprints input files with BLAKE3.
package digest

import (
	"encoding/base64"
	"io"

	"github.com/zeebo/blake3"
)

// Reader computes BLAKE3 over r and returns the base64-encoded digest.
func Reader(r io.Reader) (string, error) {
	h := blake3.New()
	buf := make([]byte, 1<<20)
	if _, err := io.CopyBuffer(h, r, buf); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(h.Sum(nil)), nil
}
