package spop

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVarintRoundTrip(t *testing.T) {
	values := []uint64{
		0, 1, 100, 239, 240, 241, 1000, 2287, 2288, 2289,
		264431, 264432, 264433, 33818863, 33818864, 33818865,
		1 << 20, 1 << 32, 1 << 48,
		18446744073709551615, // math.MaxUint64
	}

	for _, n := range values {
		n := n
		t.Run("", func(t *testing.T) {
			buf := putVarint(nil, n)
			got, rest, err := getVarint(buf)
			require.NoError(t, err)
			assert.Equal(t, n, got)
			assert.Empty(t, rest)
			assert.Equal(t, len(buf), varintSize(n))
		})
	}
}

func TestVarintBoundaries(t *testing.T) {
	// Per spec.md section 4.1: boundaries at 240, 2288, 264432, 33818864.
	tests := []struct {
		n            uint64
		encodedBytes int
	}{
		{239, 1},
		{240, 2},
		{2287, 2},
		{2288, 3},
		{264431, 3},
		{264432, 4},
		{33818863, 4},
		{33818864, 5},
	}

	for _, tt := range tests {
		buf := putVarint(nil, tt.n)
		assert.Lenf(t, buf, tt.encodedBytes, "n=%d", tt.n)
	}
}

func TestVarintDecodeShortInput(t *testing.T) {
	t.Run("EmptyBuffer", func(t *testing.T) {
		_, _, err := getVarint(nil)
		require.Error(t, err)
	})

	t.Run("TruncatedContinuation", func(t *testing.T) {
		buf := putVarint(nil, 1<<20)
		_, _, err := getVarint(buf[:len(buf)-1])
		require.Error(t, err)
	})
}
