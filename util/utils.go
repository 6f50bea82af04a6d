package util

import (
	"crypto/rand"
	"fmt"
)

// RandomBytes generates a random byte slice of length n.
func RandomBytes(n int) []byte {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	return b
}

// RandomHex generates a random hex string of n random bytes.
func RandomHex(n int) string {
	return fmt.Sprintf("%x", RandomBytes(n))
}
