package spop

// ReassemblyKey identifies one in-flight fragmented message sequence.
type ReassemblyKey struct {
	StreamID uint64
	FrameID  uint64
}

// Reassembly buffers fragmented HaproxyNotify message lists keyed by
// (stream-id, frame-id). It exists only on connections where the
// fragmentation capability was negotiated; callers that negotiated without
// fragmentation must not construct one, so a fragmented notify on such a
// connection has nowhere to go and is rejected instead of silently buffered.
type Reassembly struct {
	entries map[ReassemblyKey][]Message
}

// NewReassembly returns an empty reassembly table.
func NewReassembly() *Reassembly {
	return &Reassembly{entries: make(map[ReassemblyKey][]Message)}
}

// Reassemble folds one notify fragment into the table and reports the
// complete message list once the terminating (non-fragmented) fragment for
// that key arrives. It returns (nil, false) when more fragments are still
// expected.
//
// fragmented=true with no existing entry starts a new buffer. fragmented=true
// with an existing entry appends to it. fragmented=false (terminating) either
// forwards messages untouched (no entry existed: a single, unfragmented
// notify) or drains and appends to the buffered entry, removing it from the
// table atomically with the read.
func (r *Reassembly) Reassemble(key ReassemblyKey, fragmented bool, messages []Message) ([]Message, bool) {
	existing, ok := r.entries[key]

	if fragmented {
		if ok {
			r.entries[key] = append(existing, messages...)
		} else {
			r.entries[key] = append([]Message{}, messages...)
		}
		return nil, false
	}

	if !ok {
		return messages, true
	}

	delete(r.entries, key)
	return append(existing, messages...), true
}

// Len reports the number of keys currently buffered, for metrics/tests.
func (r *Reassembly) Len() int {
	return len(r.entries)
}
