// Package checksum computes content-addressed identifiers for vault files,
// media assets and strings.
package checksum

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/zeebo/blake3"
)

// Supported digest algorithms. Both produce 256-bit digests.
const (
	AlgorithmSHA256 = "sha256"
	AlgorithmBLAKE3 = "blake3"
)

// Sum returns the hex-encoded SHA-256 digest of data.
func Sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// SumString returns the hex-encoded SHA-256 digest of s.
func SumString(s string) string {
	return Sum([]byte(s))
}

// Short returns the first n hex characters of the SHA-256 digest of data.
func Short(data []byte, n int) string {
	return truncate(Sum(data), n)
}

// ShortString is Short for strings.
func ShortString(s string, n int) string {
	return Short([]byte(s), n)
}

// Hasher computes digests with a configured algorithm.
type Hasher struct {
	algorithm string
}

// NewHasher returns a Hasher for the named algorithm. An empty name selects SHA-256.
func NewHasher(algorithm string) (*Hasher, error) {
	switch algorithm {
	case "", AlgorithmSHA256:
		return &Hasher{algorithm: AlgorithmSHA256}, nil
	case AlgorithmBLAKE3:
		return &Hasher{algorithm: AlgorithmBLAKE3}, nil
	default:
		return nil, fmt.Errorf("checksum: unknown algorithm %q", algorithm)
	}
}

// Algorithm returns the configured algorithm name.
func (h *Hasher) Algorithm() string {
	return h.algorithm
}

// Sum returns the hex digest of data.
func (h *Hasher) Sum(data []byte) string {
	if h == nil || h.algorithm != AlgorithmBLAKE3 {
		return Sum(data)
	}
	d := blake3.Sum256(data)
	return hex.EncodeToString(d[:])
}

// Short returns the first n hex characters of the digest of data.
func (h *Hasher) Short(data []byte, n int) string {
	return truncate(h.Sum(data), n)
}

func truncate(digest string, n int) string {
	if n <= 0 {
		n = 1
	}
	if n > len(digest) {
		n = len(digest)
	}
	return digest[:n]
}
