package session

import (
	"context"
	"io"
	"net"
	"testing"
	"time"

	"tablepos/internal/pkg/protocol"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

// echoDispatcher replies with the verb and ends the session on QUIT.
type echoDispatcher struct{}

func (echoDispatcher) Handle(_ context.Context, s *Session, cmd protocol.Command) protocol.Response {
	if cmd.Verb == protocol.VerbAuth {
		s.SetRole(ParseRole(cmd.Args[0]))
	}
	return protocol.Response{
		Body:  []string{string(cmd.Verb), string(s.Role())},
		Close: cmd.Verb == protocol.VerbQuit,
	}
}

func pipeSession(t *testing.T, cfgs ...Cfg) (*Session, net.Conn, *protocol.Reader) {
	t.Helper()
	server, client := net.Pipe()
	t.Cleanup(func() { client.Close() })
	s, err := New(server, echoDispatcher{}, cfgs...)
	require.NoError(t, err)
	return s, client, protocol.NewReader(client, protocol.MaxLineLength)
}

func serve(ctx context.Context, s *Session) <-chan error {
	done := make(chan error, 1)
	go func() {
		done <- s.Serve(ctx)
	}()
	return done
}

func TestParseRole(t *testing.T) {
	require.Equal(t, RoleStaff, ParseRole("STAFF"))
	require.Equal(t, RoleCustomer, ParseRole("customer"))
	require.Equal(t, RoleUnknown, ParseRole(""))
	require.Equal(t, Role("Manager"), ParseRole("Manager"))
	require.False(t, ParseRole("Manager").Known())
	require.True(t, RoleStaff.Known())
}

func TestServeUntilQuit(t *testing.T) {
	s, client, reader := pipeSession(t)
	require.Equal(t, RoleUnknown, s.Role())
	done := serve(context.Background(), s)

	_, err := io.WriteString(client, "auth staff\n")
	require.NoError(t, err)
	resp, err := reader.ReadResponse()
	require.NoError(t, err)
	require.Equal(t, []string{"AUTH", "Staff"}, resp.Body)

	_, err = io.WriteString(client, "\n\nquit\n")
	require.NoError(t, err)
	resp, err = reader.ReadResponse()
	require.NoError(t, err)
	require.Equal(t, []string{"QUIT", "Staff"}, resp.Body)

	require.NoError(t, <-done)
	require.Equal(t, RoleStaff, s.Role())

	require.True(t, errors.Is(s.Serve(context.Background()), ErrSessionClosed))
}

func TestServeEndsOnHangup(t *testing.T) {
	s, client, _ := pipeSession(t)
	done := serve(context.Background(), s)
	require.NoError(t, client.Close())
	require.NoError(t, <-done)
}

func TestServeStopsOnCancel(t *testing.T) {
	s, _, _ := pipeSession(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := serve(ctx, s)
	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("session did not stop")
	}
}

func TestServeIdleTimeout(t *testing.T) {
	s, _, _ := pipeSession(t, WithIdleTimeout(20*time.Millisecond))
	require.NoError(t, <-serve(context.Background(), s))
}

func TestServeWriteTimeoutEndsSession(t *testing.T) {
	s, client, _ := pipeSession(t, WithWriteTimeout(20*time.Millisecond))
	done := serve(context.Background(), s)
	// nobody reads the response, so the write times out
	_, err := io.WriteString(client, "MENU\n")
	require.NoError(t, err)
	require.NoError(t, <-done)
}

func TestNewRejectsBadLineLength(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()
	_, err := New(server, echoDispatcher{}, WithMaxLineLength(0))
	require.Error(t, err)
}
