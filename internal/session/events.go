package session

// Event is a message posted to the owner goroutine by an asynchronous source
type Event interface {
	event()
}

// PermissionResult carries the outcome of a permission request
type PermissionResult struct {
	DeviceID int
	Granted  bool
}

// DataReceived carries one chunk read by the background read loop
type DataReceived struct {
	// Conn identifies the connection the chunk was read from
	Conn uint64
	Data []byte
}

// RunError reports that the read loop stopped on an I/O failure
type RunError struct {
	Conn uint64
	Err  error
}

func (PermissionResult) event() {}
func (DataReceived) event()     {}
func (RunError) event()         {}
