package handler

import (
	"context"
	"net"
	"testing"

	"tablepos/internal/pkg/billing"
	"tablepos/internal/pkg/catalog"
	"tablepos/internal/pkg/ledger"
	"tablepos/internal/pkg/protocol"
	"tablepos/internal/pkg/session"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
)

func newTestHandler(t *testing.T, items ...catalog.Item) (*Handler, *ledger.MemoryStore) {
	t.Helper()
	if items == nil {
		items = []catalog.Item{
			{ID: 1, Name: "Pho", Price: 50000},
			{ID: 2, Name: "Com Tam", Price: 40000},
		}
	}
	menu, err := catalog.New(items...)
	require.NoError(t, err)
	store := ledger.NewMemoryStore()
	engine, err := billing.NewEngine(store)
	require.NoError(t, err)
	h, err := NewHandler(WithMenu(menu), WithLedger(store), WithSettler(engine))
	require.NoError(t, err)
	return h, store
}

func newTestSession(t *testing.T) *session.Session {
	t.Helper()
	server, client := net.Pipe()
	t.Cleanup(func() {
		server.Close()
		client.Close()
	})
	s, err := session.New(server, nil)
	require.NoError(t, err)
	return s
}

func do(t *testing.T, h *Handler, s *session.Session, line string) protocol.Response {
	t.Helper()
	cmd, err := protocol.ParseCommand(line)
	require.NoError(t, err)
	return h.Handle(context.Background(), s, cmd)
}

func TestScenario(t *testing.T) {
	h, store := newTestHandler(t)
	s := newTestSession(t)

	steps := []struct {
		line string
		want string
	}{
		{"GET_ORDERS", "EMPTY"},
		{"ORDER 3 1 2", "OK 100000"},
		{"ORDER 3 1 3", "OK 150000"},
		{"GET_ORDERS", "3;1;Pho;5;50000;250000"},
		{"PAY 3", "TABLE 3\nPho;5;50000;250000\nTOTAL 250000"},
		{"GET_ORDERS", "EMPTY"},
		{"PAY 3", "ERROR Table not found"},
		{"ORDER 5 99 1", "ERROR Item not found"},
		{"GET_ORDERS", "EMPTY"},
	}
	for _, step := range steps {
		resp := do(t, h, s, step.line)
		require.Equal(t, step.want, resp.String(), step.line)
		require.False(t, resp.Close, step.line)
	}
	require.Empty(t, store.Snapshot())
}

func TestOrderValidation(t *testing.T) {
	h, store := newTestHandler(t)
	s := newTestSession(t)
	for _, line := range []string{
		"ORDER",
		"ORDER 3 1",
		"ORDER 3 1 2 4",
		"ORDER x 1 2",
		"ORDER 3 y 2",
		"ORDER 3 1 z",
		"ORDER 3 1 0",
		"ORDER 3 1 -4",
		"ORDER 0 1 1",
		"ORDER 3 1 99999999999999999999",
	} {
		require.Equal(t, "ERROR Invalid order format", do(t, h, s, line).String(), line)
	}
	require.Empty(t, store.Snapshot())
}

func TestPayValidation(t *testing.T) {
	h, _ := newTestHandler(t)
	s := newTestSession(t)
	for _, line := range []string{"PAY", "PAY x", "PAY 1 2", "PAY -1"} {
		require.Equal(t, "ERROR Invalid payment format", do(t, h, s, line).String(), line)
	}
}

func TestGetOrdersListsTablesAscending(t *testing.T) {
	h, _ := newTestHandler(t)
	s := newTestSession(t)
	do(t, h, s, "ORDER 12 2 1")
	do(t, h, s, "ORDER 4 1 2")
	do(t, h, s, "ORDER 4 2 1")
	require.Equal(t, []string{
		"4;1;Pho;2;50000;100000",
		"4;2;Com Tam;1;40000;40000",
		"12;2;Com Tam;1;40000;40000",
	}, do(t, h, s, "get_orders").Body)
}

func TestMenu(t *testing.T) {
	h, _ := newTestHandler(t)
	s := newTestSession(t)
	require.Equal(t, []string{"1;Pho;50000", "2;Com Tam;40000"}, do(t, h, s, "MENU").Body)

	empty, _ := newTestHandler(t, []catalog.Item{}...)
	resp := do(t, empty, s, "menu")
	require.Empty(t, resp.Body)
}

func TestAuthRecordsRole(t *testing.T) {
	h, _ := newTestHandler(t)
	s := newTestSession(t)
	require.Equal(t, session.RoleUnknown, s.Role())

	require.Equal(t, "OK AUTH", do(t, h, s, "AUTH STAFF").String())
	require.Equal(t, session.RoleStaff, s.Role())

	require.Equal(t, "OK AUTH", do(t, h, s, "auth Kitchen").String())
	require.Equal(t, session.Role("Kitchen"), s.Role())

	require.Equal(t, "OK AUTH", do(t, h, s, "AUTH").String())
	require.Equal(t, session.Role("Kitchen"), s.Role())
}

func TestAuthWarnsOnUnrecognisedRole(t *testing.T) {
	hook := test.NewLocal(logrus.StandardLogger())
	defer hook.Reset()
	h, _ := newTestHandler(t)
	s := newTestSession(t)

	do(t, h, s, "AUTH STAFF")
	require.Empty(t, hook.AllEntries())

	do(t, h, s, "AUTH Kitchen")
	entry := hook.LastEntry()
	require.NotNil(t, entry)
	require.Equal(t, logrus.WarnLevel, entry.Level)
	require.Equal(t, "Kitchen", entry.Data["role"])
}

func TestOrderRefusesAccumulatedOverflow(t *testing.T) {
	h, store := newTestHandler(t, catalog.Item{ID: 1, Name: "Pho", Price: 50000}, catalog.Item{ID: 2, Name: "Bun Cha", Price: 50000})
	s := newTestSession(t)

	// same item twice
	require.Equal(t, "OK 5000000000000000000", do(t, h, s, "ORDER 1 1 100000000000000").String())
	require.Equal(t, "ERROR Invalid order format", do(t, h, s, "ORDER 1 1 100000000000000").String())
	require.Equal(t, "1;1;Pho;100000000000000;50000;5000000000000000000", do(t, h, s, "GET_ORDERS").String())

	// two items on one table
	require.Equal(t, "ERROR Invalid order format", do(t, h, s, "ORDER 1 2 100000000000000").String())
	require.Len(t, store.Snapshot(), 1)

	require.Equal(t,
		"TABLE 1\nPho;100000000000000;50000;5000000000000000000\nTOTAL 5000000000000000000",
		do(t, h, s, "PAY 1").String())
	require.Equal(t, "EMPTY", do(t, h, s, "GET_ORDERS").String())
}

func TestRoleDoesNotGateCommands(t *testing.T) {
	h, _ := newTestHandler(t)
	s := newTestSession(t)
	do(t, h, s, "AUTH CUSTOMER")
	require.Equal(t, "OK 50000", do(t, h, s, "ORDER 1 1 1").String())
	require.Equal(t, "TOTAL 50000", do(t, h, s, "PAY 1").Body[2])
}

func TestQuitAndUnknown(t *testing.T) {
	h, _ := newTestHandler(t)
	s := newTestSession(t)

	resp := do(t, h, s, "quit")
	require.Equal(t, "BYE", resp.String())
	require.True(t, resp.Close)

	require.Equal(t, "ERROR Unknown command", do(t, h, s, "REFUND 3").String())
}

func TestNewHandlerRequiresCollaborators(t *testing.T) {
	_, err := NewHandler(WithLedger(ledger.NewMemoryStore()))
	require.Error(t, err)
}
