package peer

// State is the lifecycle state of a Link.
type State int32

const (
	Disconnected State = iota
	Connecting
	Handshaking
	Ready
	Reconnecting
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Handshaking:
		return "handshaking"
	case Ready:
		return "ready"
	case Reconnecting:
		return "reconnecting"
	default:
		return "unknown"
	}
}
