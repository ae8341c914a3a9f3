package spop

import "encoding/binary"

// FrameType identifies a SPOP frame's role.
type FrameType uint8

const (
	FrameTypeUnset FrameType = 0

	FrameTypeHaproxyHello      FrameType = 1
	FrameTypeHaproxyDisconnect FrameType = 2
	FrameTypeHaproxyNotify     FrameType = 3

	FrameTypeAgentHello      FrameType = 101
	FrameTypeAgentDisconnect FrameType = 102
	FrameTypeAgentAck        FrameType = 103
)

func (t FrameType) String() string {
	switch t {
	case FrameTypeUnset:
		return "unset"
	case FrameTypeHaproxyHello:
		return "haproxy-hello"
	case FrameTypeHaproxyDisconnect:
		return "haproxy-disconnect"
	case FrameTypeHaproxyNotify:
		return "haproxy-notify"
	case FrameTypeAgentHello:
		return "agent-hello"
	case FrameTypeAgentDisconnect:
		return "agent-disconnect"
	case FrameTypeAgentAck:
		return "agent-ack"
	default:
		return "unknown"
	}
}

// Frame flags.
const (
	FlagFin   uint32 = 0x1
	FlagAbort uint32 = 0x2
)

// Metadata carries a frame's flags and stream/frame identifiers. Hello and
// disconnect frames always use DefaultMetadata; notify and ack frames carry
// metadata that reflects actual fragmentation and abort state.
type Metadata struct {
	Flags    uint32
	StreamID uint64
	FrameID  uint64
}

// DefaultMetadata is used by haproxy-hello, agent-hello, haproxy-disconnect
// and agent-disconnect frames: no stream/frame identity, FIN always set.
var DefaultMetadata = Metadata{Flags: FlagFin}

func (m Metadata) Fin() bool   { return m.Flags&FlagFin != 0 }
func (m Metadata) Abort() bool { return m.Flags&FlagAbort != 0 }

// Frame is one decoded SPOP frame: a type byte, metadata, and an
// already-decoded payload. The payload is stored in its typed form
// (KVs, Messages, or Actions) rather than as raw bytes, since every
// frame type at every layer above the wire codec wants the parsed form.
type Frame struct {
	Type     FrameType
	Metadata Metadata

	// KV holds the payload of hello and disconnect frames (a flat list of
	// key/value pairs).
	KV []KV

	// Messages holds the payload of haproxy-notify frames.
	Messages []Message

	// Actions holds the payload of agent-ack frames.
	Actions []Action
}

// HelloFrame builds a hello frame (either direction) carrying the given
// key/value list.
func HelloFrame(typ FrameType, kv []KV) Frame {
	return Frame{Type: typ, Metadata: DefaultMetadata, KV: kv}
}

// DisconnectFrame builds a disconnect frame (either direction) carrying
// the given key/value list, typically "status-code" and "message".
func DisconnectFrame(typ FrameType, kv []KV) Frame {
	return Frame{Type: typ, Metadata: DefaultMetadata, KV: kv}
}

// AckFrame builds an agent-ack frame answering the notify identified by
// metadata, carrying the given actions.
func AckFrame(metadata Metadata, actions []Action) Frame {
	return Frame{Type: FrameTypeAgentAck, Metadata: metadata, Actions: actions}
}

// payloadSize returns the encoded size of the frame's payload alone,
// excluding the type byte and metadata.
func (f Frame) payloadSize() int {
	switch f.Type {
	case FrameTypeHaproxyHello, FrameTypeAgentHello, FrameTypeHaproxyDisconnect, FrameTypeAgentDisconnect:
		n := 0
		for _, kv := range f.KV {
			n += varintSize(uint64(len(kv.Name))) + len(kv.Name)
			n += kv.Value.size()
		}
		return n
	case FrameTypeHaproxyNotify:
		n := 0
		for _, m := range f.Messages {
			n += m.size()
		}
		return n
	case FrameTypeAgentAck:
		n := 0
		for _, a := range f.Actions {
			n += a.size()
		}
		return n
	default:
		return 0
	}
}

// EncodedSize returns the total wire size of the frame.
func (f Frame) EncodedSize() int {
	const typeAndFlags = 1 + 4
	n := typeAndFlags
	n += varintSize(f.Metadata.StreamID)
	n += varintSize(f.Metadata.FrameID)
	n += f.payloadSize()
	return n
}

// Encode appends the wire encoding of the frame to buf.
func Encode(buf []byte, f Frame) []byte {
	buf = append(buf, byte(f.Type))

	var flagsBytes [4]byte
	binary.BigEndian.PutUint32(flagsBytes[:], f.Metadata.Flags)
	buf = append(buf, flagsBytes[:]...)

	buf = putVarint(buf, f.Metadata.StreamID)
	buf = putVarint(buf, f.Metadata.FrameID)

	switch f.Type {
	case FrameTypeHaproxyHello, FrameTypeAgentHello, FrameTypeHaproxyDisconnect, FrameTypeAgentDisconnect:
		for _, kv := range f.KV {
			buf = putString(buf, kv.Name)
			buf = putTyped(buf, kv.Value)
		}
	case FrameTypeHaproxyNotify:
		buf = putMessages(buf, f.Messages)
	case FrameTypeAgentAck:
		buf = putActions(buf, f.Actions)
	}

	return buf
}

// Decode decodes one frame from buf, which must hold exactly one frame's
// worth of bytes (the caller is responsible for length-prefixed framing;
// see framer.go).
func Decode(buf []byte) (Frame, error) {
	if len(buf) < 5 {
		return Frame{}, NewError(StatusInvalid, "frame shorter than header")
	}

	typ := FrameType(buf[0])
	flags := binary.BigEndian.Uint32(buf[1:5])
	rest := buf[5:]

	streamID, rest, err := getVarint(rest)
	if err != nil {
		return Frame{}, WrapError(StatusInvalid, "decoding stream-id", err)
	}
	frameID, rest, err := getVarint(rest)
	if err != nil {
		return Frame{}, WrapError(StatusInvalid, "decoding frame-id", err)
	}

	meta := Metadata{Flags: flags, StreamID: streamID, FrameID: frameID}
	f := Frame{Type: typ, Metadata: meta}

	switch typ {
	case FrameTypeHaproxyHello, FrameTypeAgentHello, FrameTypeHaproxyDisconnect, FrameTypeAgentDisconnect:
		if streamID != 0 || frameID != 0 {
			return Frame{}, NewError(StatusInvalid, "hello/disconnect frame must carry zero stream-id and frame-id")
		}

		var kvs []KV
		for len(rest) > 0 {
			var name string
			var value Typed
			name, rest, err = getString(rest)
			if err != nil {
				return Frame{}, WrapError(StatusInvalid, "decoding kv name", err)
			}
			value, rest, err = getTyped(rest)
			if err != nil {
				return Frame{}, WrapError(StatusInvalid, "decoding kv value", err)
			}
			kvs = append(kvs, KV{Name: name, Value: value})
		}
		f.KV = kvs

	case FrameTypeHaproxyNotify:
		if streamID == 0 || frameID == 0 {
			return Frame{}, NewError(StatusInvalid, "notify frame must carry non-zero stream-id and frame-id")
		}

		msgs, err := getMessages(rest)
		if err != nil {
			return Frame{}, WrapError(StatusInvalid, "decoding messages", err)
		}
		f.Messages = msgs

	case FrameTypeAgentAck:
		if streamID == 0 || frameID == 0 {
			return Frame{}, NewError(StatusInvalid, "ack frame must carry non-zero stream-id and frame-id")
		}

		actions, err := getActions(rest)
		if err != nil {
			return Frame{}, WrapError(StatusInvalid, "decoding actions", err)
		}
		f.Actions = actions

	default:
		return Frame{}, NewError(StatusInvalid, "unrecognized frame type")
	}

	return f, nil
}

// Get returns the value of a named key from a hello/disconnect frame's KV
// list, and whether it was present.
func (f Frame) Get(name string) (Typed, bool) {
	for _, kv := range f.KV {
		if kv.Name == name {
			return kv.Value, true
		}
	}
	return Typed{}, false
}
