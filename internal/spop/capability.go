package spop

import "strings"

// Capability is an optional protocol feature negotiated during the hello
// handshake.
type Capability string

const (
	CapabilityFragmentation Capability = "fragmentation"
	CapabilityPipelining    Capability = "pipelining"
	CapabilityAsync         Capability = "async"
)

// CapabilitySet is the set of capabilities negotiated for one connection.
type CapabilitySet map[Capability]struct{}

// ParseCapabilities parses a comma-separated capability list, as sent in
// the "capabilities" key of a haproxy-hello frame.
func ParseCapabilities(s string) CapabilitySet {
	set := make(CapabilitySet)
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		set[Capability(part)] = struct{}{}
	}
	return set
}

// Has reports whether the capability is present in the set.
func (s CapabilitySet) Has(c Capability) bool {
	_, ok := s[c]
	return ok
}

// Intersect returns the capabilities present in both sets, which is what
// the agent actually advertises back to HAProxy: it may never claim a
// capability HAProxy didn't offer, even if the agent supports it.
func (s CapabilitySet) Intersect(offered CapabilitySet) CapabilitySet {
	out := make(CapabilitySet)
	for c := range s {
		if offered.Has(c) {
			out[c] = struct{}{}
		}
	}
	return out
}

// String renders the set as a comma-separated list, in a stable order.
func (s CapabilitySet) String() string {
	order := []Capability{CapabilityFragmentation, CapabilityPipelining, CapabilityAsync}
	parts := make([]string, 0, len(s))
	for _, c := range order {
		if s.Has(c) {
			parts = append(parts, string(c))
		}
	}
	return strings.Join(parts, ",")
}

// AgentCapabilities is the full set of capabilities this agent implements.
// What gets negotiated with a given connection is this set intersected
// with whatever HAProxy advertised.
var AgentCapabilities = CapabilitySet{
	CapabilityFragmentation: {},
	CapabilityPipelining:    {},
	CapabilityAsync:         {},
}
