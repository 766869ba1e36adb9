package config

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// CanonicalJSON serializes v with Go's struct-field declaration order (which
// encoding/json already honors) and OrderedMap's insertion order for the
// ordered fields, so the same logical value always hashes the same way.
func CanonicalJSON(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}

// Hash returns the hex-encoded sha256 digest of v's canonical JSON form.
// Used for lockfile integrity digests, the metadata label's lockfile_hash,
// and lifecycle phase markers' command_digest.
func Hash(v interface{}) (string, error) {
	data, err := CanonicalJSON(v)
	if err != nil {
		return "", err
	}
	return HashBytes(data), nil
}

// HashBytes returns the hex-encoded sha256 digest of raw bytes.
func HashBytes(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
