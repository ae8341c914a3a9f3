package spop

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTypedRoundTrip(t *testing.T) {
	values := []Typed{
		Null(),
		Bool(true),
		Bool(false),
		Int32Value(-12345),
		Uint32Value(12345),
		Int64Value(-1 << 40),
		Uint64Value(1 << 40),
		IPv4Value(net.IPv4(10, 0, 0, 1)),
		IPv6Value(net.ParseIP("2001:db8::1")),
		StringValue("hello, spop"),
		StringValue(""),
		BinaryValue([]byte{0x00, 0x01, 0xff}),
		BinaryValue(nil),
	}

	for _, v := range values {
		v := v
		t.Run(v.Type.String(), func(t *testing.T) {
			buf := putTyped(nil, v)
			require.Equal(t, v.size(), len(buf))

			got, rest, err := getTyped(buf)
			require.NoError(t, err)
			assert.Empty(t, rest)
			assert.Equal(t, v.Type, got.Type)

			switch v.Type {
			case TypeBoolean:
				assert.Equal(t, v.Bool, got.Bool)
			case TypeInt32:
				assert.Equal(t, v.Int32, got.Int32)
			case TypeUint32:
				assert.Equal(t, v.Uint32, got.Uint32)
			case TypeInt64:
				assert.Equal(t, v.Int64, got.Int64)
			case TypeUint64:
				assert.Equal(t, v.Uint64, got.Uint64)
			case TypeIPv4:
				assert.True(t, v.IP.Equal(got.IP))
			case TypeIPv6:
				assert.True(t, v.IP.Equal(got.IP))
			case TypeString:
				assert.Equal(t, v.Str, got.Str)
			case TypeBinary:
				assert.Equal(t, v.Bin, got.Bin)
			}
		})
	}
}

func TestTypedIntegersAreVarintEncoded(t *testing.T) {
	// Per SPEC_FULL.md section 3: integer typed values are varint-encoded,
	// not fixed-width, so a small value occupies fewer bytes than a large one.
	small := putTyped(nil, Uint32Value(1))
	large := putTyped(nil, Uint32Value(1<<28))
	assert.Less(t, len(small), len(large))
}

func TestTypedDecodeShortInput(t *testing.T) {
	t.Run("EmptyBuffer", func(t *testing.T) {
		_, _, err := getTyped(nil)
		require.Error(t, err)
	})

	t.Run("TruncatedIPv4", func(t *testing.T) {
		_, _, err := getTyped([]byte{byte(TypeIPv4), 1, 2})
		require.Error(t, err)
	})

	t.Run("TruncatedBinary", func(t *testing.T) {
		buf := putTyped(nil, BinaryValue([]byte{1, 2, 3, 4}))
		_, _, err := getTyped(buf[:len(buf)-1])
		require.Error(t, err)
	})
}
