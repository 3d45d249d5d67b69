package checksum

import (
	"crypto/md5" //nolint:gosec // content fingerprint, not a security boundary
	"encoding/hex"
)

// Generate applies the cleanup policy to v, hashes its canonical
// serialization, and returns the digest as 32 lowercase hex characters.
// Equal content yields equal digests regardless of input ordering.
func Generate(v any) (string, error) {
	s, err := Serialize(Cleanup(v))
	if err != nil {
		return "", err
	}
	sum := md5.Sum([]byte(s)) //nolint:gosec
	return hex.EncodeToString(sum[:]), nil
}

// GenerateFromMany computes a digest for each value and, when more than one
// results, combines the digest list itself through Generate (a checksum of
// checksums). A single value degenerates to Generate.
func GenerateFromMany(vs []any) (string, error) {
	digests := make([]any, 0, len(vs))
	for _, v := range vs {
		d, err := Generate(v)
		if err != nil {
			return "", err
		}
		digests = append(digests, d)
	}
	if len(digests) == 1 {
		return digests[0].(string), nil
	}
	return Generate(digests)
}
