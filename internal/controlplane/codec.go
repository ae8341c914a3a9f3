package controlplane

import (
	"encoding/json"

	"google.golang.org/grpc/encoding"
)

// codecName is the gRPC content-subtype this package's messages are
// exchanged under. There is no protoc step in this build, so this package
// speaks gRPC's framing (length-prefixed messages, HTTP/2 streams, status
// codes) with JSON-encoded payloads instead of protobuf wire format. A
// client must opt into this subtype with grpc.CallContentSubtype(codecName)
// on every call; the server is started with grpc.ForceServerCodec so it
// never falls back to the default protobuf codec.
const codecName = "json"

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

// jsonCodec implements google.golang.org/grpc/encoding.Codec.
type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error) { return json.Marshal(v) }

func (jsonCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }

func (jsonCodec) Name() string { return codecName }
