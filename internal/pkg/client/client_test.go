package client

import (
	"context"
	"io"
	"net"
	"testing"
	"time"

	"tablepos/internal/pkg/billing"
	"tablepos/internal/pkg/catalog"
	"tablepos/internal/pkg/handler"
	"tablepos/internal/pkg/ledger"
	"tablepos/internal/pkg/protocol"
	"tablepos/internal/pkg/server"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

var menu = []catalog.Item{
	{ID: 1, Name: "Pho", Price: 50000},
	{ID: 2, Name: "Com Tam", Price: 40000},
}

// startServer serves a fresh ledger on a loopback port for the duration of the test.
func startServer(t *testing.T) string {
	t.Helper()
	c, err := catalog.New(menu...)
	require.NoError(t, err)
	store := ledger.NewMemoryStore()
	engine, err := billing.NewEngine(store)
	require.NoError(t, err)
	h, err := handler.NewHandler(handler.WithMenu(c), handler.WithLedger(store), handler.WithSettler(engine))
	require.NoError(t, err)
	srv, err := server.NewServer(server.WithDispatcher(h))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- srv.ListenAndServe(ctx, "127.0.0.1:0")
	}()
	select {
	case <-srv.Ready():
	case err := <-done:
		cancel()
		t.Fatalf("server exited early: %v", err)
	}
	t.Cleanup(func() {
		cancel()
		require.NoError(t, <-done)
	})
	return srv.Addr().String()
}

func connect(t *testing.T, addr string, cfgs ...Cfg) *Client {
	t.Helper()
	c, err := NewClient(append([]Cfg{WithServerAddr(addr)}, cfgs...)...)
	require.NoError(t, err)
	require.NoError(t, c.Connect(context.Background()))
	return c
}

func TestOrderEntryAndPayment(t *testing.T) {
	addr := startServer(t)
	ctx := context.Background()

	customer := connect(t, addr, WithRole("CUSTOMER"))
	staff := connect(t, addr, WithRole("STAFF"))

	items, err := customer.Menu(ctx)
	require.NoError(t, err)
	require.Equal(t, menu, items)

	amount, err := customer.Order(ctx, 3, 1, 2)
	require.NoError(t, err)
	require.Equal(t, int64(100000), amount)
	amount, err = customer.Order(ctx, 3, 1, 3)
	require.NoError(t, err)
	require.Equal(t, int64(150000), amount)

	entries, err := staff.Orders(ctx)
	require.NoError(t, err)
	require.Equal(t, []ledger.Entry{{
		Table: 3,
		Line:  ledger.Line{ItemID: 1, Name: "Pho", Price: 50000, Quantity: 5},
	}}, entries)

	bill, err := staff.Pay(ctx, 3)
	require.NoError(t, err)
	require.Equal(t, 3, bill.Table)
	require.Equal(t, int64(250000), bill.Total)
	require.Equal(t, []ledger.Line{{Name: "Pho", Price: 50000, Quantity: 5}}, bill.Lines)

	entries, err = staff.Orders(ctx)
	require.NoError(t, err)
	require.Empty(t, entries)

	_, err = staff.Pay(ctx, 3)
	var serverErr *ServerError
	require.True(t, errors.As(err, &serverErr))
	require.Equal(t, protocol.ReasonTableNotFound, serverErr.Reason)
	require.True(t, errors.Is(err, ErrServerError))

	_, err = customer.Order(ctx, 5, 99, 1)
	require.True(t, errors.As(err, &serverErr))
	require.Equal(t, protocol.ReasonItemNotFound, serverErr.Reason)

	require.NoError(t, customer.Close(ctx))
	require.NoError(t, staff.Close(ctx))

	_, err = customer.Menu(ctx)
	require.True(t, errors.Is(err, ErrNotConnected))
}

func TestDoReturnsRawErrorReplies(t *testing.T) {
	addr := startServer(t)
	c := connect(t, addr)
	defer c.Close(context.Background())

	resp, err := c.Do(context.Background(), protocol.NewCommand("REFUND", "1"))
	require.NoError(t, err)
	require.Equal(t, "ERROR Unknown command", resp.String())
}

func TestCancelledDoThenClose(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })
	accepted := make(chan net.Conn, 1)
	go func() {
		conn, err := ln.Accept()
		if err == nil {
			accepted <- conn
		}
	}()

	// the peer reads but never answers
	c := connect(t, ln.Addr().String(), WithTimeout(200*time.Millisecond))
	peer := <-accepted
	t.Cleanup(func() { peer.Close() })
	go io.Copy(io.Discard, peer)

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(50*time.Millisecond, cancel)
	_, err = c.Do(ctx, protocol.NewCommand(protocol.VerbMenu))
	require.ErrorIs(t, err, context.Canceled)

	require.Error(t, c.Close(context.Background()))
	_, err = c.Do(context.Background(), protocol.NewCommand(protocol.VerbMenu))
	require.ErrorIs(t, err, ErrNotConnected)
}

func TestWithRoleRejectsWhitespace(t *testing.T) {
	_, err := NewClient(WithRole("head waiter"))
	require.Error(t, err)
}

func TestParseEntry(t *testing.T) {
	e, err := parseEntry("4;2;Com Tam;3;40000;120000")
	require.NoError(t, err)
	require.Equal(t, ledger.Entry{Table: 4, Line: ledger.Line{ItemID: 2, Name: "Com Tam", Price: 40000, Quantity: 3}}, e)

	for _, line := range []string{"4;2;Com Tam;3;40000", "x;2;A;3;1;3", "4;2;A;q;1;3", "4;2;A;3;p;3"} {
		_, err := parseEntry(line)
		require.True(t, errors.Is(err, ErrUnexpectedResponse), line)
	}
}
