package slug

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// 64 characters, so a uniform random index maps onto the alphabet without bias.
const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789-_"

// DefaultLength gives 64^8 possible slugs.
const DefaultLength = 8

var maxIdx = big.NewInt(int64(len(charset)))

// Generate returns a random 8-character slug drawn from [a-zA-Z0-9-_].
func Generate() (string, error) {
	return GenerateN(DefaultLength)
}

// GenerateN returns a random slug of the given length.
func GenerateN(length int) (string, error) {
	if length <= 0 {
		return "", fmt.Errorf("slug length must be positive, got %d", length)
	}
	b := make([]byte, length)
	for i := range b {
		n, err := rand.Int(rand.Reader, maxIdx)
		if err != nil {
			return "", err
		}
		b[i] = charset[n.Int64()]
	}
	return string(b), nil
}
