package connection

// Status is the liveness state of the telemetry transport.
type Status int32

const (
	Disconnected Status = iota
	Connecting
	Connected
	Reconnecting
)

func (s Status) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case Reconnecting:
		return "reconnecting"
	default:
		return "unknown"
	}
}

// MarshalText renders the status by name in JSON payloads.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// StatusNames lists every status by name, in declaration order.
func StatusNames() []string {
	return []string{Disconnected.String(), Connecting.String(), Connected.String(), Reconnecting.String()}
}
