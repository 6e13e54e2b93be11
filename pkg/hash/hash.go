package hash

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
)

// tokenIterations stretches admin tokens before comparison.
const tokenIterations = 1000

// SHA256Hex returns the hex-encoded SHA256 hash of the input string.
func SHA256Hex(input string) string {
	h := sha256.Sum256([]byte(input))
	return hex.EncodeToString(h[:])
}

// Prefix returns the first n characters of SHA256Hex(input). Used to
// correlate IPs and network ids in logs without writing them out.
func Prefix(input string, n int) string {
	full := SHA256Hex(input)
	if n > len(full) {
		return full
	}
	return full[:n]
}

// IteratedSHA256 applies SHA256 iteratively n times to produce a derived hash.
func IteratedSHA256(input string, iterations int) string {
	data := []byte(input)
	for range iterations {
		h := sha256.Sum256(data)
		data = h[:]
	}
	return hex.EncodeToString(data)
}

// TokenDigest derives the stored form of an admin token.
func TokenDigest(token string) string {
	return IteratedSHA256(token, tokenIterations)
}

// Equal compares two digests in constant time.
func Equal(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
