package client

import (
	"context"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"tablepos/internal/pkg/billing"
	"tablepos/internal/pkg/catalog"
	"tablepos/internal/pkg/ledger"
	"tablepos/internal/pkg/protocol"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

var logger logrus.FieldLogger = logrus.StandardLogger()

// DefaultTimeout bounds one request/response round trip.
const DefaultTimeout = 5 * time.Second

// maxResponseLine allows menu and bill lines longer than request lines.
const maxResponseLine = 64 * 1024

// Client is a connection to the point-of-sale server.
type Client struct {
	serverAddr string
	role       string
	timeout    time.Duration

	mu     sync.Mutex
	conn   net.Conn
	reader *protocol.Reader
}

// Cfg configures a Client.
type Cfg func(*Client) error

// WithServerAddr sets the server address to connect to.
func WithServerAddr(addr string) Cfg {
	return func(c *Client) error {
		c.serverAddr = addr
		return nil
	}
}

// WithServerPort sets the server host and port to connect to.
func WithServerPort(host string, p uint16) Cfg {
	return func(c *Client) error {
		c.serverAddr = net.JoinHostPort(host, strconv.Itoa(int(p)))
		return nil
	}
}

// WithRole announces role with AUTH right after connecting.
func WithRole(role string) Cfg {
	return func(c *Client) error {
		if strings.ContainsAny(role, " \t\r\n") {
			return errors.Errorf("invalid role %q", role)
		}
		c.role = role
		return nil
	}
}

// WithTimeout bounds each round trip.
func WithTimeout(d time.Duration) Cfg {
	return func(c *Client) error {
		c.timeout = d
		return nil
	}
}

// NewClient creates a new Client with the given configuration.
func NewClient(cfgs ...Cfg) (*Client, error) {
	client := &Client{
		serverAddr: "localhost:5000",
		timeout:    DefaultTimeout,
	}
	for _, cfg := range cfgs {
		if err := cfg(client); err != nil {
			return nil, errors.Wrap(err, "apply Client cfg failed")
		}
	}
	return client, nil
}

// Connect establishes the connection to the server.
func (c *Client) Connect(ctx context.Context) error {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", c.serverAddr)
	if err != nil {
		return errors.Wrapf(err, "connect to %s failed", c.serverAddr)
	}
	c.attach(conn)
	if c.role != "" {
		if err := c.Auth(ctx, c.role); err != nil {
			c.detach()
			return errors.Wrap(err, "auth failed")
		}
	}
	logger.WithFields(logrus.Fields{
		"server": c.serverAddr,
		"role":   c.role,
	}).Debug("connected")
	return nil
}

func (c *Client) attach(conn net.Conn) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		c.conn.Close()
	}
	c.conn = conn
	c.reader = protocol.NewReader(conn, maxResponseLine)
}

func (c *Client) detach() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn, c.reader = nil, nil
	return err
}

// Do sends cmd and returns the raw response. ERROR replies are not turned
// into errors here.
func (c *Client) Do(ctx context.Context, cmd protocol.Command) (protocol.Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return protocol.Response{}, ErrNotConnected
	}
	deadline := time.Now().Add(c.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	conn := c.conn
	if err := conn.SetDeadline(deadline); err != nil {
		return protocol.Response{}, errors.Wrap(err, "set deadline failed")
	}
	stop := context.AfterFunc(ctx, func() {
		conn.SetDeadline(time.Now())
	})
	defer stop()

	if err := protocol.WriteCommand(conn, cmd); err != nil {
		return protocol.Response{}, errors.Wrapf(err, "send %s failed", cmd.Verb)
	}
	resp, err := c.reader.ReadResponse()
	if err != nil {
		if ctx.Err() != nil {
			return protocol.Response{}, errors.Wrapf(ctx.Err(), "receive %s reply failed", cmd.Verb)
		}
		return protocol.Response{}, errors.Wrapf(err, "receive %s reply failed", cmd.Verb)
	}
	return resp, nil
}

// call is Do with ERROR replies turned into *ServerError.
func (c *Client) call(ctx context.Context, verb protocol.Verb, args ...string) (protocol.Response, error) {
	resp, err := c.Do(ctx, protocol.NewCommand(verb, args...))
	if err != nil {
		return resp, err
	}
	if reason, ok := resp.ErrorReason(); ok {
		return resp, &ServerError{Reason: reason}
	}
	return resp, nil
}

// Auth declares the terminal's role.
func (c *Client) Auth(ctx context.Context, role string) error {
	resp, err := c.call(ctx, protocol.VerbAuth, role)
	if err != nil {
		return err
	}
	if !resp.Is(protocol.OKAuth) {
		return errors.Wrap(ErrUnexpectedResponse, resp.String())
	}
	return nil
}

// Menu lists the catalog.
func (c *Client) Menu(ctx context.Context) ([]catalog.Item, error) {
	resp, err := c.call(ctx, protocol.VerbMenu)
	if err != nil {
		return nil, err
	}
	items := make([]catalog.Item, 0, len(resp.Body))
	for _, line := range resp.Body {
		item, err := catalog.ParseLine(line)
		if err != nil {
			return nil, errors.Wrapf(ErrUnexpectedResponse, "menu line %q: %v", line, err)
		}
		items = append(items, item)
	}
	return items, nil
}

// Order adds qty of item to table and returns the amount of this order.
func (c *Client) Order(ctx context.Context, table, item, qty int) (int64, error) {
	resp, err := c.call(ctx, protocol.VerbOrder, strconv.Itoa(table), strconv.Itoa(item), strconv.Itoa(qty))
	if err != nil {
		return 0, err
	}
	detail, ok := resp.OKDetail()
	if !ok {
		return 0, errors.Wrap(ErrUnexpectedResponse, resp.String())
	}
	amount, err := strconv.ParseInt(detail, 10, 64)
	if err != nil {
		return 0, errors.Wrap(ErrUnexpectedResponse, resp.String())
	}
	return amount, nil
}

// Orders lists every unsettled line, tables ascending.
func (c *Client) Orders(ctx context.Context) ([]ledger.Entry, error) {
	resp, err := c.call(ctx, protocol.VerbGetOrders)
	if err != nil {
		return nil, err
	}
	if resp.Is(protocol.Empty) {
		return nil, nil
	}
	entries := make([]ledger.Entry, 0, len(resp.Body))
	for _, line := range resp.Body {
		e, err := parseEntry(line)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// Pay settles table and returns its bill.
func (c *Client) Pay(ctx context.Context, table int) (billing.Bill, error) {
	resp, err := c.call(ctx, protocol.VerbPay, strconv.Itoa(table))
	if err != nil {
		return billing.Bill{}, err
	}
	bill, err := billing.ParseBody(resp.Body)
	if err != nil {
		return billing.Bill{}, errors.Wrap(ErrUnexpectedResponse, err.Error())
	}
	return bill, nil
}

// Close says goodbye and releases the connection.
func (c *Client) Close(ctx context.Context) error {
	resp, err := c.Do(ctx, protocol.NewCommand(protocol.VerbQuit))
	if errors.Is(err, ErrNotConnected) {
		return nil
	}
	closeErr := c.detach()
	if err != nil {
		return err
	}
	if !resp.Is(protocol.Bye) {
		return errors.Wrap(ErrUnexpectedResponse, resp.String())
	}
	return errors.Wrap(closeErr, "close connection failed")
}

func parseEntry(line string) (ledger.Entry, error) {
	parts := strings.Split(line, protocol.FieldSeparator)
	if len(parts) != 6 {
		return ledger.Entry{}, errors.Wrapf(ErrUnexpectedResponse, "order line %q", line)
	}
	var e ledger.Entry
	var err error
	ints := []*int{&e.Table, &e.ItemID, &e.Quantity}
	for i, idx := range []int{0, 1, 3} {
		if *ints[i], err = strconv.Atoi(parts[idx]); err != nil {
			return ledger.Entry{}, errors.Wrapf(ErrUnexpectedResponse, "order line %q", line)
		}
	}
	e.Name = parts[2]
	if e.Price, err = strconv.ParseInt(parts[4], 10, 64); err != nil {
		return ledger.Entry{}, errors.Wrapf(ErrUnexpectedResponse, "order line %q", line)
	}
	return e, nil
}
