// Package random generates hex-encoded random identifiers, such as
// server-assigned comment ids.
package random

import (
	"crypto/rand"
	"encoding/hex"
)

// Bytes returns n cryptographically random bytes.
func Bytes(n int) []byte {
	buf := make([]byte, n)

	_, err := rand.Read(buf)
	if err != nil {
		panic(err)
	}

	return buf
}

// String returns the hex encoding of n random bytes (2n characters).
func String(n int) string {
	return hex.EncodeToString(Bytes(n))
}
