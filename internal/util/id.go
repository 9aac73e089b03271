package util

import (
	"crypto/rand"
	"encoding/hex"
)

// NewID returns prefix_<32 hex chars>, or the bare hex when prefix is empty.
func NewID(prefix string) string {
	value := RandomHex(16)
	if prefix == "" {
		return value
	}
	return prefix + "_" + value
}

// RandomHex returns n random bytes hex encoded.
func RandomHex(n int) string {
	bytes := make([]byte, n)
	_, _ = rand.Read(bytes)
	return hex.EncodeToString(bytes)
}
