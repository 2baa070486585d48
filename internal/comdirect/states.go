// Package comdirect implements the client-side protocol engine for the
// comdirect REST API: OAuth2 token grants, session creation, the session-TAN
// challenge/activation handshake, and account/transaction retrieval.
package comdirect

// ConnectionState reports whether the client holds a usable primary token.
type ConnectionState int

// Connection states.
const (
	Disconnected ConnectionState = iota
	Connected
	ConnError
)

func (s ConnectionState) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connected:
		return "connected"
	case ConnError:
		return "error"
	}
	return "unknown"
}

// ProcessState identifies the protocol phase the client is in.
type ProcessState int

// Process states, in protocol order.
const (
	ProcessNone ProcessState = iota
	ProcessGetAuthToken
	ProcessGetSession
	ProcessValidateSessionTAN
	ProcessUserInteractionTAN
	ProcessActivateSessionTAN
	ProcessGetAuthTokenSecondary
	ProcessRefreshTokenSecondary
	ProcessSessionTANReady
	ProcessRestOp
)

func (s ProcessState) String() string {
	switch s {
	case ProcessNone:
		return "none"
	case ProcessGetAuthToken:
		return "getAuthToken"
	case ProcessGetSession:
		return "getSession"
	case ProcessValidateSessionTAN:
		return "validateSessionTAN"
	case ProcessUserInteractionTAN:
		return "userInteractionTAN"
	case ProcessActivateSessionTAN:
		return "activateSessionTAN"
	case ProcessGetAuthTokenSecondary:
		return "getAuthTokenSecondary"
	case ProcessRefreshTokenSecondary:
		return "refreshTokenSecondary"
	case ProcessSessionTANReady:
		return "sessionTANReady"
	case ProcessRestOp:
		return "restOp"
	}
	return "unknown"
}

// ActiveState reports the outcome of the current protocol phase.
type ActiveState int

// Active states.
const (
	Inactive ActiveState = iota
	Doing
	Done
	Failed
)

func (s ActiveState) String() string {
	switch s {
	case Inactive:
		return "inactive"
	case Doing:
		return "doing"
	case Done:
		return "done"
	case Failed:
		return "failed"
	}
	return "unknown"
}

// StateChange carries the full state triad to observers, so they never need to
// read shared client fields.
type StateChange struct {
	Connection ConnectionState
	Process    ProcessState
	Active     ActiveState
}
