package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNairaToKobo(t *testing.T) {
	assert.Equal(t, int64(500000), NairaToKobo(5000))
	assert.Equal(t, int64(155075), NairaToKobo(1550.75))
	assert.Equal(t, int64(1), NairaToKobo(0.01))
	assert.Equal(t, int64(0), NairaToKobo(0))

	// Float representation of 19.99 must not truncate to 1998.
	assert.Equal(t, int64(1999), NairaToKobo(19.99))
}

func TestKoboToNaira(t *testing.T) {
	assert.Equal(t, 5000.0, KoboToNaira(500000))
	assert.Equal(t, 1550.75, KoboToNaira(155075))
	assert.Equal(t, 0.01, KoboToNaira(1))
}

func TestRoundTrip(t *testing.T) {
	for _, naira := range []float64{0.01, 1, 19.99, 1550.75, 9_999_999.99} {
		assert.Equal(t, naira, KoboToNaira(NairaToKobo(naira)))
	}
}
