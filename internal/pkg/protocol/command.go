// Package protocol implements the point-of-sale line protocol.
//
// A request is a single line: a case-insensitive verb followed by
// whitespace-separated arguments. A response is zero or more non-empty body
// lines followed by an empty line that marks its end. Fields inside a body
// line are separated by ';'.
package protocol

import (
	"strings"
)

// Verb identifies a request.
type Verb string

// Request verbs.
const (
	VerbAuth      Verb = "AUTH"
	VerbMenu      Verb = "MENU"
	VerbOrder     Verb = "ORDER"
	VerbGetOrders Verb = "GET_ORDERS"
	VerbPay       Verb = "PAY"
	VerbQuit      Verb = "QUIT"
)

// FieldSeparator separates fields of a response body line.
const FieldSeparator = ";"

// Command is a decoded request line.
type Command struct {
	Verb Verb
	Args []string
}

// ParseCommand decodes a request line. The verb is upper-cased; arguments
// keep their case.
func ParseCommand(line string) (Command, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return Command{}, ErrEmptyCommand
	}
	return Command{
		Verb: Verb(strings.ToUpper(fields[0])),
		Args: fields[1:],
	}, nil
}

// String encodes the command as a request line without the terminator.
func (c Command) String() string {
	if len(c.Args) == 0 {
		return string(c.Verb)
	}
	return string(c.Verb) + " " + strings.Join(c.Args, " ")
}

// NewCommand builds a Command from a verb and its arguments.
func NewCommand(verb Verb, args ...string) Command {
	return Command{Verb: verb, Args: args}
}
