package spop

import (
	"fmt"
	"net"
)

// Type is the low-nibble type tag of a typed-data prefix byte.
type Type uint8

// Typed-data type tags, per the wire format. 10-15 are reserved.
const (
	TypeNull Type = iota
	TypeBoolean
	TypeInt32
	TypeUint32
	TypeInt64
	TypeUint64
	TypeIPv4
	TypeIPv6
	TypeString
	TypeBinary
)

func (t Type) String() string {
	switch t {
	case TypeNull:
		return "null"
	case TypeBoolean:
		return "boolean"
	case TypeInt32:
		return "int32"
	case TypeUint32:
		return "uint32"
	case TypeInt64:
		return "int64"
	case TypeUint64:
		return "uint64"
	case TypeIPv4:
		return "ipv4"
	case TypeIPv6:
		return "ipv6"
	case TypeString:
		return "string"
	case TypeBinary:
		return "binary"
	default:
		return fmt.Sprintf("type(%d)", uint8(t))
	}
}

const (
	typeMask  = 0x0f
	flagsMask = 0xf0

	// flagTrue is the only defined typed-data flag: the boolean value,
	// packed into the high nibble of the type byte instead of a payload.
	flagTrue = 0x10
)

const (
	ipv4Len = 4
	ipv6Len = 16
)

// Typed is a decoded SPOP typed-data value. Exactly one field is
// meaningful, selected by Type; this mirrors the wire format's own closed,
// ten-variant sum type rather than modeling it as a Go interface, since the
// vocabulary is fixed and dispatch-heavy code benefits from a flat switch.
type Typed struct {
	Type Type

	Bool   bool
	Int32  int32
	Uint32 uint32
	Int64  int64
	Uint64 uint64
	IP     net.IP // 4 or 16 bytes, matching Type
	Str    string
	Bin    []byte
}

// Null returns the Null typed value.
func Null() Typed { return Typed{Type: TypeNull} }

// Bool returns a Boolean typed value.
func Bool(v bool) Typed { return Typed{Type: TypeBoolean, Bool: v} }

// Int32Value returns an Int32 typed value.
func Int32Value(v int32) Typed { return Typed{Type: TypeInt32, Int32: v} }

// Uint32Value returns a Uint32 typed value.
func Uint32Value(v uint32) Typed { return Typed{Type: TypeUint32, Uint32: v} }

// Int64Value returns an Int64 typed value.
func Int64Value(v int64) Typed { return Typed{Type: TypeInt64, Int64: v} }

// Uint64Value returns a Uint64 typed value.
func Uint64Value(v uint64) Typed { return Typed{Type: TypeUint64, Uint64: v} }

// IPv4Value returns an IPv4 typed value. v must be a 4-byte address.
func IPv4Value(v net.IP) Typed { return Typed{Type: TypeIPv4, IP: v} }

// IPv6Value returns an IPv6 typed value. v must be a 16-byte address.
func IPv6Value(v net.IP) Typed { return Typed{Type: TypeIPv6, IP: v} }

// StringValue returns a String typed value.
func StringValue(v string) Typed { return Typed{Type: TypeString, Str: v} }

// BinaryValue returns a Binary typed value.
func BinaryValue(v []byte) Typed { return Typed{Type: TypeBinary, Bin: v} }

// size returns the wire size of the typed value, including its 1-byte
// type/flags prefix.
func (t Typed) size() int {
	const prefix = 1

	switch t.Type {
	case TypeNull, TypeBoolean:
		return prefix
	case TypeInt32:
		return prefix + varintSize(uint64(uint32(t.Int32)))
	case TypeUint32:
		return prefix + varintSize(uint64(t.Uint32))
	case TypeInt64:
		return prefix + varintSize(uint64(t.Int64))
	case TypeUint64:
		return prefix + varintSize(t.Uint64)
	case TypeIPv4:
		return prefix + ipv4Len
	case TypeIPv6:
		return prefix + ipv6Len
	case TypeString:
		return prefix + varintSize(uint64(len(t.Str))) + len(t.Str)
	case TypeBinary:
		return prefix + varintSize(uint64(len(t.Bin))) + len(t.Bin)
	default:
		return prefix
	}
}

// putTyped appends the wire encoding of t to buf.
//
// Integers of every width are varint-encoded, not fixed-width: this
// mirrors the reference implementation's wire format exactly even though a
// naive reading of the type sizes might suggest otherwise.
func putTyped(buf []byte, t Typed) []byte {
	switch t.Type {
	case TypeNull:
		return append(buf, byte(TypeNull))
	case TypeBoolean:
		b := byte(TypeBoolean)
		if t.Bool {
			b |= flagTrue
		}
		return append(buf, b)
	case TypeInt32:
		buf = append(buf, byte(TypeInt32))
		return putVarint(buf, uint64(uint32(t.Int32)))
	case TypeUint32:
		buf = append(buf, byte(TypeUint32))
		return putVarint(buf, uint64(t.Uint32))
	case TypeInt64:
		buf = append(buf, byte(TypeInt64))
		return putVarint(buf, uint64(t.Int64))
	case TypeUint64:
		buf = append(buf, byte(TypeUint64))
		return putVarint(buf, t.Uint64)
	case TypeIPv4:
		buf = append(buf, byte(TypeIPv4))
		return append(buf, t.IP.To4()...)
	case TypeIPv6:
		buf = append(buf, byte(TypeIPv6))
		return append(buf, t.IP.To16()...)
	case TypeString:
		buf = append(buf, byte(TypeString))
		buf = putVarint(buf, uint64(len(t.Str)))
		return append(buf, t.Str...)
	case TypeBinary:
		buf = append(buf, byte(TypeBinary))
		buf = putVarint(buf, uint64(len(t.Bin)))
		return append(buf, t.Bin...)
	default:
		return append(buf, byte(TypeNull))
	}
}

// getTyped decodes one typed value from the front of buf.
func getTyped(buf []byte) (Typed, []byte, error) {
	if len(buf) == 0 {
		return Typed{}, nil, errShortVarint
	}

	prefix := buf[0]
	rest := buf[1:]
	typ := Type(prefix & typeMask)
	flags := prefix & flagsMask

	switch typ {
	case TypeNull:
		return Typed{Type: TypeNull}, rest, nil

	case TypeBoolean:
		return Typed{Type: TypeBoolean, Bool: flags&flagTrue != 0}, rest, nil

	case TypeInt32:
		n, rest, err := getVarint(rest)
		if err != nil {
			return Typed{}, nil, err
		}
		return Typed{Type: TypeInt32, Int32: int32(uint32(n))}, rest, nil

	case TypeUint32:
		n, rest, err := getVarint(rest)
		if err != nil {
			return Typed{}, nil, err
		}
		return Typed{Type: TypeUint32, Uint32: uint32(n)}, rest, nil

	case TypeInt64:
		n, rest, err := getVarint(rest)
		if err != nil {
			return Typed{}, nil, err
		}
		return Typed{Type: TypeInt64, Int64: int64(n)}, rest, nil

	case TypeUint64:
		n, rest, err := getVarint(rest)
		if err != nil {
			return Typed{}, nil, err
		}
		return Typed{Type: TypeUint64, Uint64: n}, rest, nil

	case TypeIPv4:
		if len(rest) < ipv4Len {
			return Typed{}, nil, errShortVarint
		}
		ip := make(net.IP, ipv4Len)
		copy(ip, rest[:ipv4Len])
		return Typed{Type: TypeIPv4, IP: ip}, rest[ipv4Len:], nil

	case TypeIPv6:
		if len(rest) < ipv6Len {
			return Typed{}, nil, errShortVarint
		}
		ip := make(net.IP, ipv6Len)
		copy(ip, rest[:ipv6Len])
		return Typed{Type: TypeIPv6, IP: ip}, rest[ipv6Len:], nil

	case TypeString:
		s, rest, err := getString(rest)
		if err != nil {
			return Typed{}, nil, err
		}
		return Typed{Type: TypeString, Str: s}, rest, nil

	case TypeBinary:
		n, rest, err := getVarint(rest)
		if err != nil {
			return Typed{}, nil, err
		}
		if uint64(len(rest)) < n {
			return Typed{}, nil, errShortVarint
		}
		bin := make([]byte, n)
		copy(bin, rest[:n])
		return Typed{Type: TypeBinary, Bin: bin}, rest[n:], nil

	default:
		return Typed{}, nil, &Error{Status: StatusInvalid, reason: fmt.Sprintf("unknown typed-data type %d", typ)}
	}
}

// putString appends a varint-length-prefixed string.
func putString(buf []byte, s string) []byte {
	buf = putVarint(buf, uint64(len(s)))
	return append(buf, s...)
}

// getString decodes a varint-length-prefixed string.
func getString(buf []byte) (string, []byte, error) {
	n, rest, err := getVarint(buf)
	if err != nil {
		return "", nil, err
	}
	if uint64(len(rest)) < n {
		return "", nil, errShortVarint
	}
	return string(rest[:n]), rest[n:], nil
}
