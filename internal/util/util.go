// Package util holds small shared helpers with no domain meaning.
package util

import (
	"crypto/sha256"
	"fmt"
)

// Checksum returns the hex-encoded SHA-256 digest of data. The worker logs it
// so a dead-lettered message can be matched to the delivery that failed.
func Checksum(data []byte) string {
	sum := sha256.Sum256(data)

	return fmt.Sprintf("%x", sum)
}
