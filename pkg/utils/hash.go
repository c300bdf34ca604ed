package utils

import (
	"crypto/sha256"
	"fmt"
)

// HashContent returns the hex sha256 of a knowledge source's content. The
// stored hash is compared against this on every sync to detect drift.
func HashContent(input string) string {
	hash := sha256.Sum256([]byte(input))
	return fmt.Sprintf("%x", hash)
}
