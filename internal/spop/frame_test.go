package spop

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func helloKV() []KV {
	return []KV{
		{Name: "supported-versions", Value: StringValue("2.0")},
		{Name: "max-frame-size", Value: Uint32Value(16384)},
		{Name: "capabilities", Value: StringValue("pipelining")},
	}
}

func TestFrameRoundTrip(t *testing.T) {
	frames := []Frame{
		HelloFrame(FrameTypeHaproxyHello, helloKV()),
		HelloFrame(FrameTypeAgentHello, helloKV()),
		DisconnectFrame(FrameTypeHaproxyDisconnect, []KV{
			{Name: "status-code", Value: Uint32Value(uint32(StatusNormal))},
			{Name: "message", Value: StringValue("bye")},
		}),
		DisconnectFrame(FrameTypeAgentDisconnect, []KV{
			{Name: "status-code", Value: Uint32Value(uint32(StatusTimeout))},
			{Name: "message", Value: StringValue("processing timed out")},
		}),
		{
			Type:     FrameTypeHaproxyNotify,
			Metadata: Metadata{Flags: FlagFin, StreamID: 1, FrameID: 1},
			Messages: []Message{
				{Name: "m", Args: []KV{{Name: "k", Value: StringValue("v")}}},
			},
		},
		AckFrame(Metadata{Flags: FlagFin, StreamID: 2, FrameID: 3}, []Action{
			SetVar(ScopeSession, "x", Uint32Value(7)),
			UnsetVar(ScopeRequest, "y"),
		}),
	}

	for _, f := range frames {
		f := f
		t.Run(f.Type.String(), func(t *testing.T) {
			buf := Encode(nil, f)
			require.Equal(t, f.EncodedSize(), len(buf))

			got, err := Decode(buf)
			require.NoError(t, err)
			assert.Equal(t, f, got)
		})
	}
}

func TestFrameDecodeRejectsNonzeroMetadataOnHello(t *testing.T) {
	f := HelloFrame(FrameTypeHaproxyHello, helloKV())
	f.Metadata.StreamID = 1
	buf := Encode(nil, f)

	_, err := Decode(buf)
	require.Error(t, err)

	var perr *Error
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, StatusInvalid, perr.Status)
}

func TestFrameDecodeRejectsZeroMetadataOnNotify(t *testing.T) {
	f := Frame{
		Type:     FrameTypeHaproxyNotify,
		Metadata: Metadata{Flags: FlagFin, StreamID: 0, FrameID: 1},
		Messages: []Message{{Name: "m"}},
	}
	buf := Encode(nil, f)

	_, err := Decode(buf)
	require.Error(t, err)

	var perr *Error
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, StatusInvalid, perr.Status)
}

func TestFrameDecodeRejectsZeroMetadataOnAck(t *testing.T) {
	f := AckFrame(Metadata{Flags: FlagFin, StreamID: 5, FrameID: 0}, nil)
	buf := Encode(nil, f)

	_, err := Decode(buf)
	require.Error(t, err)
}

func TestFrameDecodeRejectsUnknownType(t *testing.T) {
	buf := []byte{200, 0, 0, 0, 0, 0, 0}
	_, err := Decode(buf)
	require.Error(t, err)
}

func TestFrameDecodeRejectsShortHeader(t *testing.T) {
	_, err := Decode([]byte{1, 0, 0})
	require.Error(t, err)
}

func TestFrameGet(t *testing.T) {
	f := HelloFrame(FrameTypeHaproxyHello, helloKV())

	v, ok := f.Get("max-frame-size")
	require.True(t, ok)
	assert.Equal(t, uint32(16384), v.Uint32)

	_, ok = f.Get("nonexistent")
	assert.False(t, ok)
}
