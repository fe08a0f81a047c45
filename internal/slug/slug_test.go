package slug

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate_Length(t *testing.T) {
	for i := 0; i < 100; i++ {
		s, err := Generate()
		require.NoError(t, err)
		assert.Len(t, s, DefaultLength)
	}
}

func TestGenerate_Charset(t *testing.T) {
	re := regexp.MustCompile(`^[a-zA-Z0-9_-]{8}$`)
	for i := 0; i < 100; i++ {
		s, err := Generate()
		require.NoError(t, err)
		assert.Regexp(t, re, s)
	}
}

func TestGenerate_Uniqueness(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		s, err := Generate()
		require.NoError(t, err)
		require.False(t, seen[s], "duplicate slug %q at iteration %d", s, i)
		seen[s] = true
	}
}

func TestGenerateN(t *testing.T) {
	for _, length := range []int{3, 8, 16, 64} {
		s, err := GenerateN(length)
		require.NoError(t, err)
		assert.Len(t, s, length)
	}
}

func TestGenerateN_InvalidLength(t *testing.T) {
	for _, length := range []int{0, -1} {
		_, err := GenerateN(length)
		assert.Error(t, err)
	}
}
