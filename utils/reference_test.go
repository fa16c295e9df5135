package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerateOrderReference(t *testing.T) {
	ref := GenerateOrderReference()

	assert.True(t, strings.HasPrefix(ref, "PHM-"))
	assert.True(t, IsOrderReference(ref))
	assert.Equal(t, ref, strings.ToUpper(ref))

	// No collisions across a burst of generations.
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		r := GenerateOrderReference()
		assert.False(t, seen[r], r)
		seen[r] = true
	}
}

func TestIsOrderReference(t *testing.T) {
	assert.True(t, IsOrderReference("PHM-LX2K9A0B-4F7C21"))
	assert.False(t, IsOrderReference("ORD-LX2K9A0B-4F7C21"))
	assert.False(t, IsOrderReference("PHM-LX2K9A0B"))
	assert.False(t, IsOrderReference(""))
}
