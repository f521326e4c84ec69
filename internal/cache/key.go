package cache

import (
	"encoding/hex"
	"encoding/json"
	"fmt"

	"golang.org/x/crypto/blake2b"
)

// Key derives a cache key from an argument tuple. The tuple is JSON-encoded
// (map keys sorted, struct fields in declaration order) and hashed, so distinct
// tuples never share a key and raw arguments such as PIN codes never reach the backend.
func Key(args ...any) (string, error) {
	if args == nil {
		args = []any{}
	}
	data, err := json.Marshal(args)
	if err != nil {
		return "", fmt.Errorf("encode cache key: %w", err)
	}
	sum := blake2b.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}
