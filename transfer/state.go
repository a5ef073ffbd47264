package transfer

// State is the lifecycle position of an engine for its current file.
type State uint8

const (
	StateIdle State = iota
	StateHandshake
	StateTransferring
	StateComplete
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateHandshake:
		return "handshake"
	case StateTransferring:
		return "transferring"
	case StateComplete:
		return "complete"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}
