// Package handshake negotiates protocol version, maximum frame size, and
// capabilities from an inbound HaproxyHello frame against the runtime's
// configured parameters.
package handshake

import (
	"time"

	"github.com/marmos91/spoagent/internal/spop"
)

// Runtime is the process-scoped, immutable configuration consulted during
// negotiation and carried into every connection it produces: the agent's
// supported versions, its own max frame size, the capabilities it
// implements, and the per-request service timeout (not itself negotiated,
// but part of the same immutable, shared configuration object).
type Runtime struct {
	SupportedVersions []spop.Version
	MaxFrameSize      uint32
	Capabilities      spop.CapabilitySet
	MaxProcessTime    time.Duration
}

// Negotiated holds the outcome of a successful handshake: the parameters
// that govern the rest of the connection's lifetime.
type Negotiated struct {
	Version      spop.Version
	MaxFrameSize uint32
	Capabilities spop.CapabilitySet
	Healthcheck  bool
	EngineID     string
}

// Negotiate applies the algorithm of SPEC_FULL.md section 4.5 to an inbound
// HaproxyHello frame: pick the highest mutually supported version, the
// pairwise minimum frame size, and the capability intersection.
func Negotiate(rt Runtime, hello spop.Frame) (Negotiated, error) {
	if hello.Type != spop.FrameTypeHaproxyHello {
		return Negotiated{}, spop.NewError(spop.StatusInvalid, "expected haproxy-hello frame")
	}

	versionsKV, ok := hello.Get("supported-versions")
	if !ok {
		return Negotiated{}, spop.NewError(spop.StatusNoVersion, "missing supported-versions key")
	}
	offered, err := spop.ParseVersionList(versionsKV.Str)
	if err != nil {
		return Negotiated{}, err
	}

	version, err := negotiateVersion(rt.SupportedVersions, offered)
	if err != nil {
		return Negotiated{}, err
	}

	sizeKV, ok := hello.Get("max-frame-size")
	if !ok {
		return Negotiated{}, spop.NewError(spop.StatusNoFrameSize, "missing max-frame-size key")
	}
	clientSize, err := asUint(sizeKV)
	if err != nil {
		return Negotiated{}, spop.WrapError(spop.StatusNoFrameSize, "malformed max-frame-size", err)
	}

	capsKV, ok := hello.Get("capabilities")
	if !ok {
		return Negotiated{}, spop.NewError(spop.StatusNoCapabilities, "missing capabilities key")
	}
	offeredCaps := spop.ParseCapabilities(capsKV.Str)

	maxFrameSize := rt.MaxFrameSize
	if clientSize < maxFrameSize {
		maxFrameSize = clientSize
	}

	negotiated := Negotiated{
		Version:      version,
		MaxFrameSize: maxFrameSize,
		Capabilities: rt.Capabilities.Intersect(offeredCaps),
	}

	if hc, ok := hello.Get("healthcheck"); ok {
		negotiated.Healthcheck = hc.Bool
	}
	if eng, ok := hello.Get("engine-id"); ok {
		negotiated.EngineID = eng.Str
	}

	return negotiated, nil
}

// negotiateVersion picks the highest version present in both lists. Per the
// original reference implementation (spoa/src/state/handshake.rs), both
// lists are conceptually sorted and the intersection's maximum is chosen,
// not simply the highest entry offered.
func negotiateVersion(supported, offered []spop.Version) (spop.Version, error) {
	var best spop.Version
	found := false

	for _, want := range supported {
		for _, have := range offered {
			if want.Compare(have) == 0 && (!found || want.Compare(best) > 0) {
				best = want
				found = true
			}
		}
	}

	if !found {
		return spop.Version{}, spop.NewError(spop.StatusNoVersion, "no common version")
	}
	return best, nil
}

// asUint extracts an unsigned integer from a typed value carrying
// max-frame-size, which HAProxy may send as any unsigned integer type.
func asUint(t spop.Typed) (uint32, error) {
	switch t.Type {
	case spop.TypeUint32:
		return t.Uint32, nil
	case spop.TypeUint64:
		return uint32(t.Uint64), nil
	case spop.TypeInt32:
		return uint32(t.Int32), nil
	case spop.TypeInt64:
		return uint32(t.Int64), nil
	default:
		return 0, spop.NewError(spop.StatusInvalid, "max-frame-size must be an integer type")
	}
}

// AgentHelloFrame builds the AgentHello reply frame for a negotiated
// handshake.
func AgentHelloFrame(n Negotiated) spop.Frame {
	return spop.HelloFrame(spop.FrameTypeAgentHello, []spop.KV{
		{Name: "version", Value: spop.StringValue(n.Version.String())},
		{Name: "max-frame-size", Value: spop.Uint32Value(n.MaxFrameSize)},
		{Name: "capabilities", Value: spop.StringValue(n.Capabilities.String())},
	})
}
