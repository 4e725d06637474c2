package guard

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"

	"go.uber.org/zap"
)

// MaxBodySize is the largest response body accepted from the lookup service.
const MaxBodySize int64 = 64 * 1024

// ErrBodyTooLarge is returned by ReadBody when the body exceeds MaxBodySize.
var ErrBodyTooLarge = errors.New("body too large")

// ReadBody reads all of r, failing once more than MaxBodySize bytes arrive.
func ReadBody(r io.Reader) ([]byte, error) {
	b, err := io.ReadAll(io.LimitReader(r, MaxBodySize+1))
	if err != nil {
		return nil, err
	}
	if int64(len(b)) > MaxBodySize {
		return nil, ErrBodyTooLarge
	}
	return b, nil
}

// ComputeSHA256 returns the SHA-256 hex digest of b.
func ComputeSHA256(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// Close closes c and logs any returned error.
func Close(c io.Closer, log *zap.SugaredLogger) {
	if err := c.Close(); err != nil {
		log.Warnw("close body", "error", err)
	}
}
