package spop

// ActionType identifies a SPOP action, as sent back to HAProxy in an
// agent-ack frame.
type ActionType uint8

const (
	ActionSetVar   ActionType = 1
	ActionUnsetVar ActionType = 2
)

// Scope selects which HAProxy variable scope an action applies to.
type Scope uint8

const (
	ScopeProcess Scope = iota
	ScopeSession
	ScopeTransaction
	ScopeRequest
	ScopeResponse
)

func (s Scope) String() string {
	switch s {
	case ScopeProcess:
		return "proc"
	case ScopeSession:
		return "sess"
	case ScopeTransaction:
		return "txn"
	case ScopeRequest:
		return "req"
	case ScopeResponse:
		return "res"
	default:
		return "unknown"
	}
}

// Action is one action carried in the payload of an agent-ack frame:
// either a variable set or a variable unset.
type Action struct {
	Type  ActionType
	Scope Scope
	Name  string
	Value Typed // meaningful only for ActionSetVar
}

// SetVar builds a SetVar action.
func SetVar(scope Scope, name string, value Typed) Action {
	return Action{Type: ActionSetVar, Scope: scope, Name: name, Value: value}
}

// UnsetVar builds an UnsetVar action.
func UnsetVar(scope Scope, name string) Action {
	return Action{Type: ActionUnsetVar, Scope: scope, Name: name}
}

// nargs is the action's declared argument count, which always includes
// the scope byte itself alongside the name and (for SetVar) the value.
func (a Action) nargs() byte {
	switch a.Type {
	case ActionSetVar:
		return 3
	case ActionUnsetVar:
		return 2
	default:
		return 0
	}
}

func (a Action) size() int {
	n := 2 // type byte + nargs byte
	n++    // scope byte
	n += varintSize(uint64(len(a.Name))) + len(a.Name)
	if a.Type == ActionSetVar {
		n += a.Value.size()
	}
	return n
}

func putAction(buf []byte, a Action) []byte {
	buf = append(buf, byte(a.Type), a.nargs(), byte(a.Scope))
	buf = putString(buf, a.Name)
	if a.Type == ActionSetVar {
		buf = putTyped(buf, a.Value)
	}
	return buf
}

func getAction(buf []byte) (Action, []byte, error) {
	if len(buf) < 3 {
		return Action{}, nil, errShortVarint
	}
	typ := ActionType(buf[0])
	// nargs (buf[1]) is not otherwise needed: each action type has a fixed,
	// known shape, so it is consumed here purely to advance past it.
	scope := Scope(buf[2])
	rest := buf[3:]

	name, rest, err := getString(rest)
	if err != nil {
		return Action{}, nil, err
	}

	switch typ {
	case ActionSetVar:
		value, rest, err := getTyped(rest)
		if err != nil {
			return Action{}, nil, err
		}
		return Action{Type: typ, Scope: scope, Name: name, Value: value}, rest, nil
	case ActionUnsetVar:
		return Action{Type: typ, Scope: scope, Name: name}, rest, nil
	default:
		return Action{}, nil, NewError(StatusInvalid, "unknown action type")
	}
}

// putActions encodes the list of actions carried by an agent-ack frame.
func putActions(buf []byte, actions []Action) []byte {
	for _, a := range actions {
		buf = putAction(buf, a)
	}
	return buf
}

func getActions(buf []byte) ([]Action, error) {
	var actions []Action
	for len(buf) > 0 {
		a, rest, err := getAction(buf)
		if err != nil {
			return nil, err
		}
		actions = append(actions, a)
		buf = rest
	}
	return actions, nil
}
