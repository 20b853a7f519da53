package processing

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
)

const fingerprintChunk = 1 << 20

// FingerprintRaw returns the hex SHA-256 of the raw container at path. Two
// copies of the same survey share a fingerprint; any edit changes it.
func FingerprintRaw(ctx context.Context, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open raw file: %w", err)
	}
	defer f.Close()

	h := sha256.New()
	buf := make([]byte, fingerprintChunk)
	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		n, err := f.Read(buf)
		if n > 0 {
			h.Write(buf[:n])
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("read raw file: %w", err)
		}
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
