package protocol

import (
	"bufio"
	"io"
	"strings"

	"github.com/pkg/errors"
)

// MaxLineLength is the longest request line a server reader accepts.
const MaxLineLength = 4096

// Reader reads newline-framed lines from a stream. Reads may arrive
// fragmented or coalesced; the reader buffers until a full line is present.
type Reader struct {
	scanner *bufio.Scanner
}

// NewReader creates a Reader accepting lines up to maxLine bytes.
func NewReader(r io.Reader, maxLine int) *Reader {
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 0, min(512, maxLine)), maxLine)
	return &Reader{scanner: s}
}

// ReadLine returns the next line without its terminator or trailing '\r'.
// It returns io.EOF when the stream ends cleanly.
func (r *Reader) ReadLine() (string, error) {
	if r.scanner.Scan() {
		return strings.TrimSuffix(r.scanner.Text(), "\r"), nil
	}
	err := r.scanner.Err()
	if err == nil {
		return "", io.EOF
	}
	if errors.Is(err, bufio.ErrTooLong) {
		return "", ErrLineTooLong
	}
	return "", err
}

// ReadCommand skips blank lines and decodes the next request.
func (r *Reader) ReadCommand() (Command, error) {
	for {
		line, err := r.ReadLine()
		if err != nil {
			return Command{}, err
		}
		cmd, err := ParseCommand(line)
		if errors.Is(err, ErrEmptyCommand) {
			continue
		}
		return cmd, err
	}
}

// ReadResponse reads body lines up to the empty end-of-response line.
func (r *Reader) ReadResponse() (Response, error) {
	var resp Response
	for {
		line, err := r.ReadLine()
		if err != nil {
			if errors.Is(err, io.EOF) && len(resp.Body) > 0 {
				return resp, io.ErrUnexpectedEOF
			}
			return resp, err
		}
		if line == "" {
			return resp, nil
		}
		resp.Body = append(resp.Body, line)
	}
}

// WriteResponse writes the body lines and the end-of-response line in one write.
func WriteResponse(w io.Writer, resp Response) error {
	var sb strings.Builder
	for _, line := range resp.Body {
		sb.WriteString(line)
		sb.WriteByte('\n')
	}
	sb.WriteByte('\n')
	_, err := io.WriteString(w, sb.String())
	return err
}

// WriteCommand writes cmd as one request line.
func WriteCommand(w io.Writer, cmd Command) error {
	_, err := io.WriteString(w, cmd.String()+"\n")
	return err
}
