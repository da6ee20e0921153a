package idempotency

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"hash"
	"net/http"
	"strings"
)

// IsReadOnlyMethod reports whether requests with this method bypass the guard.
func IsReadOnlyMethod(method string) bool {
	switch strings.ToUpper(method) {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	default:
		return false
	}
}

// Signature hashes method, path, user and, for mutating methods, the body.
// Fields are length-prefixed so adjacent values cannot collide.
func Signature(method string, path string, userID string, body []byte) string {
	hasher := sha256.New()
	method = strings.ToUpper(method)
	for _, field := range []string{method, path, userID} {
		writeField(hasher, []byte(field))
	}
	if !IsReadOnlyMethod(method) {
		writeField(hasher, body)
	}
	return hex.EncodeToString(hasher.Sum(nil))
}

func writeField(hasher hash.Hash, field []byte) {
	var length [8]byte
	binary.BigEndian.PutUint64(length[:], uint64(len(field)))
	hasher.Write(length[:])
	hasher.Write(field)
}
