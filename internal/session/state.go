package session

import "fmt"

// State is the connection state of a Controller
type State int

const (
	Disconnected State = iota
	PermissionRequested
	Connected
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case PermissionRequested:
		return "permission requested"
	case Connected:
		return "connected"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// PermissionStatus tracks the outcome of the host access request. It is
// only ever reset by constructing a new Controller.
type PermissionStatus int

const (
	PermissionUnknown PermissionStatus = iota
	PermissionRequestedStatus
	PermissionGranted
	PermissionDenied
)

func (p PermissionStatus) String() string {
	switch p {
	case PermissionUnknown:
		return "unknown"
	case PermissionRequestedStatus:
		return "requested"
	case PermissionGranted:
		return "granted"
	case PermissionDenied:
		return "denied"
	default:
		return fmt.Sprintf("PermissionStatus(%d)", int(p))
	}
}
