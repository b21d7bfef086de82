package session

import "errors"

var (
	ErrDeviceNotFound   = errors.New("device not found")
	ErrNoDriverFound    = errors.New("no driver for device")
	ErrPortOutOfRange   = errors.New("not enough ports at device")
	ErrPermissionDenied = errors.New("permission denied")
	ErrOpenFailed       = errors.New("open failed")

	// ErrPermissionPending means Connect is waiting on a permission request.
	// It is not a failure: Connect runs again once the result is handled.
	ErrPermissionPending = errors.New("permission pending")

	ErrNotConnected = errors.New("not connected")
	ErrWriteFailed  = errors.New("write failed")
)
