package server

import "github.com/pkg/errors"

// ErrServerStarted is returned when Serve is called on a Server that has
// already served.
var ErrServerStarted = errors.New("server already started")
