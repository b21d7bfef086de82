package probe

import "errors"

var (
	ErrUnknownFamily = errors.New("unknown driver family")
	ErrInvalidEntry  = errors.New("invalid probe entry")
)
