package protocol

import "github.com/pkg/errors"

// ErrLineTooLong is returned when a peer sends a line longer than the reader accepts.
var ErrLineTooLong = errors.New("line too long")

// ErrEmptyCommand is returned when a command line has no verb.
var ErrEmptyCommand = errors.New("empty command")
