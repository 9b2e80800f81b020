package protocol

import "strings"

// Fixed response texts.
const (
	OKAuth = "OK AUTH"
	Empty  = "EMPTY"
	Bye    = "BYE"

	errorPrefix = "ERROR "
	okPrefix    = "OK "
)

// Error reasons.
const (
	ReasonUnknownCommand     = "Unknown command"
	ReasonInvalidOrderFormat = "Invalid order format"
	ReasonInvalidPayFormat   = "Invalid payment format"
	ReasonItemNotFound       = "Item not found"
	ReasonTableNotFound      = "Table not found"
	ReasonCommandTooLong     = "Command too long"
	ReasonInternal           = "Internal error"
)

// Response is the reply to one command.
type Response struct {
	Body []string
	// Close asks the session to end once the response is sent.
	Close bool
}

// Lines returns a Response with the given body lines.
func Lines(body ...string) Response {
	return Response{Body: body}
}

// OK returns "OK <detail>".
func OK(detail string) Response {
	return Lines(okPrefix + detail)
}

// Error returns "ERROR <reason>".
func Error(reason string) Response {
	return Lines(errorPrefix + reason)
}

// ErrorReason returns the reason of an "ERROR <reason>" response.
func (r Response) ErrorReason() (string, bool) {
	if len(r.Body) != 1 {
		return "", false
	}
	return strings.CutPrefix(r.Body[0], errorPrefix)
}

// OKDetail returns the detail of an "OK <detail>" response.
func (r Response) OKDetail() (string, bool) {
	if len(r.Body) != 1 {
		return "", false
	}
	return strings.CutPrefix(r.Body[0], okPrefix)
}

// Is reports whether the response is exactly the single line text.
func (r Response) Is(text string) bool {
	return len(r.Body) == 1 && r.Body[0] == text
}

// String joins the body with newlines.
func (r Response) String() string {
	return strings.Join(r.Body, "\n")
}
