package spop

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/marmos91/spoagent/internal/bufpool"
)

// DefaultMaxFrameSize is used until a connection negotiates a smaller
// value during the hello handshake.
const DefaultMaxFrameSize = 16384

// lengthPrefixSize is the size of the u32 length prefix that precedes
// every frame on the wire.
const lengthPrefixSize = 4

// Framer reads and writes length-prefixed SPOP frames over a stream. It
// enforces MaxFrameSize on both directions: a frame announcing a length
// above the limit is rejected without being read into memory.
type Framer struct {
	r io.Reader
	w io.Writer

	MaxFrameSize uint32
}

// NewFramer wraps rw for length-prefixed frame I/O.
func NewFramer(rw io.ReadWriter) *Framer {
	return &Framer{r: rw, w: rw, MaxFrameSize: DefaultMaxFrameSize}
}

// ReadFrame reads one length-prefixed frame and decodes it.
func (f *Framer) ReadFrame() (Frame, error) {
	var lenBuf [lengthPrefixSize]byte
	if _, err := io.ReadFull(f.r, lenBuf[:]); err != nil {
		return Frame{}, err
	}
	length := binary.BigEndian.Uint32(lenBuf[:])

	if length > f.MaxFrameSize {
		return Frame{}, NewError(StatusBadFrameSize, fmt.Sprintf("frame size %d exceeds max %d", length, f.MaxFrameSize))
	}
	if length == 0 {
		return Frame{}, NewError(StatusInvalid, "zero-length frame")
	}

	buf := bufpool.GetUint32(length)
	defer bufpool.Put(buf)

	if _, err := io.ReadFull(f.r, buf); err != nil {
		return Frame{}, err
	}

	return Decode(buf)
}

// WriteFrame serializes and writes one frame. The payload size is computed
// up front, so the length prefix is written before the payload is encoded.
func (f *Framer) WriteFrame(frame Frame) error {
	size := frame.EncodedSize()
	if uint32(size) > f.MaxFrameSize {
		return NewError(StatusTooBig, fmt.Sprintf("encoded frame size %d exceeds max %d", size, f.MaxFrameSize))
	}

	buf := bufpool.GetUint32(uint32(lengthPrefixSize + size))
	defer bufpool.Put(buf)

	binary.BigEndian.PutUint32(buf[:lengthPrefixSize], uint32(size))
	out := Encode(buf[:lengthPrefixSize], frame)

	_, err := f.w.Write(out)
	return err
}
