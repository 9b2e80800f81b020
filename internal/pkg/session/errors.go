package session

import "errors"

// ErrSessionClosed is returned when serving a session that was already closed.
var ErrSessionClosed = errors.New("session closed")
