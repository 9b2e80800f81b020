package client

import "github.com/pkg/errors"

// ErrNotConnected indicates that Connect has not been called or the connection was closed.
var ErrNotConnected = errors.New("not connected")

// ErrUnexpectedResponse indicates that the server reply does not match the request.
var ErrUnexpectedResponse = errors.New("unexpected response")

// ErrServerError indicates that the server answered with ERROR <reason>.
var ErrServerError = errors.New("server error")

// ServerError carries the reason of an ERROR reply. It matches ErrServerError.
type ServerError struct {
	Reason string
}

func (e *ServerError) Error() string {
	return "server error: " + e.Reason
}

// Is reports whether target is ErrServerError.
func (e *ServerError) Is(target error) bool {
	return target == ErrServerError
}
