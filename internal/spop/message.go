package spop

// KV is one key/value pair carried by a Message.
type KV struct {
	Name  string
	Value Typed
}

// Message is a single SPOP message, as carried in the payload of a
// haproxy-notify frame. A notify frame carries a list of these.
type Message struct {
	Name string
	Args []KV
}

// Get returns the value of the named argument and whether it was present.
func (m Message) Get(name string) (Typed, bool) {
	for _, kv := range m.Args {
		if kv.Name == name {
			return kv.Value, true
		}
	}
	return Typed{}, false
}

func (m Message) size() int {
	n := varintSize(uint64(len(m.Name))) + len(m.Name) + 1 // +1 for nargs byte
	for _, kv := range m.Args {
		n += varintSize(uint64(len(kv.Name))) + len(kv.Name)
		n += kv.Value.size()
	}
	return n
}

func putMessage(buf []byte, m Message) []byte {
	buf = putString(buf, m.Name)
	buf = append(buf, byte(len(m.Args)))
	for _, kv := range m.Args {
		buf = putString(buf, kv.Name)
		buf = putTyped(buf, kv.Value)
	}
	return buf
}

func getMessage(buf []byte) (Message, []byte, error) {
	name, rest, err := getString(buf)
	if err != nil {
		return Message{}, nil, err
	}
	if len(rest) == 0 {
		return Message{}, nil, errShortVarint
	}
	nargs := int(rest[0])
	rest = rest[1:]

	args := make([]KV, 0, nargs)
	for i := 0; i < nargs; i++ {
		var kvName string
		var value Typed
		kvName, rest, err = getString(rest)
		if err != nil {
			return Message{}, nil, err
		}
		value, rest, err = getTyped(rest)
		if err != nil {
			return Message{}, nil, err
		}
		args = append(args, KV{Name: kvName, Value: value})
	}
	return Message{Name: name, Args: args}, rest, nil
}

// putMessages encodes the list of messages carried by a notify frame. There
// is no outer count prefix: messages simply fill the frame payload until it
// is exhausted, so decoding continues until the buffer runs dry.
func putMessages(buf []byte, msgs []Message) []byte {
	for _, m := range msgs {
		buf = putMessage(buf, m)
	}
	return buf
}

func getMessages(buf []byte) ([]Message, error) {
	var msgs []Message
	for len(buf) > 0 {
		m, rest, err := getMessage(buf)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
		buf = rest
	}
	return msgs, nil
}
