package apps

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"tablepos/internal/pkg/client"
	"tablepos/internal/pkg/protocol"
	"tablepos/internal/pkg/validate"

	"github.com/pkg/errors"
)

// ClientAppCfg configures a ClientApp.
type ClientAppCfg interface {
	ApplyClientApp(*ClientApp) error
}

// ClientApp sends commands to the server from the command line or stdin
// and prints each response body.
type ClientApp struct {
	Host    string `validate:"required"`
	Port    uint16 `validate:"required"`
	Role    string
	Timeout time.Duration `validate:"gt=0"`

	In  io.Reader `validate:"-"`
	Out io.Writer `validate:"-"`
}

// NewClientApp creates a new ClientApp.
func NewClientApp(cfgs ...ClientAppCfg) (*ClientApp, error) {
	app := &ClientApp{
		Host:    "localhost",
		Timeout: client.DefaultTimeout,
		In:      os.Stdin,
		Out:     os.Stdout,
	}
	for _, cfg := range cfgs {
		if err := cfg.ApplyClientApp(app); err != nil {
			return nil, errors.Wrap(err, "apply ClientApp cfg failed")
		}
	}
	if err := validate.Validate().Struct(app); err != nil {
		return nil, errors.Wrap(err, "validate ClientApp failed")
	}
	return app, nil
}

// Run sends args as one command, or every stdin line when args is empty.
func (app *ClientApp) Run(ctx context.Context, args []string) error {
	cfgs := []client.Cfg{
		client.WithServerPort(app.Host, app.Port),
		client.WithTimeout(app.Timeout),
	}
	if app.Role != "" {
		cfgs = append(cfgs, client.WithRole(app.Role))
	}
	c, err := client.NewClient(cfgs...)
	if err != nil {
		return errors.Wrap(err, "create client failed")
	}
	if err := c.Connect(ctx); err != nil {
		return errors.Wrap(err, "connect client failed")
	}
	quit := false
	defer func() {
		if !quit {
			c.Close(context.Background())
		}
	}()

	if len(args) > 0 {
		quit, err = app.send(ctx, c, strings.Join(args, " "))
		return err
	}
	scanner := bufio.NewScanner(app.In)
	for scanner.Scan() {
		quit, err = app.send(ctx, c, scanner.Text())
		if err != nil || quit {
			return err
		}
	}
	return errors.Wrap(scanner.Err(), "read commands failed")
}

// send returns true once the session has ended.
func (app *ClientApp) send(ctx context.Context, c *client.Client, line string) (bool, error) {
	cmd, err := protocol.ParseCommand(line)
	if errors.Is(err, protocol.ErrEmptyCommand) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if cmd.Verb == protocol.VerbQuit {
		if err := c.Close(ctx); err != nil {
			return true, errors.Wrap(err, "quit failed")
		}
		_, err := fmt.Fprintln(app.Out, protocol.Bye)
		return true, errors.Wrap(err, "print response failed")
	}
	resp, err := c.Do(ctx, cmd)
	if err != nil {
		return false, errors.Wrap(err, "send command failed")
	}
	for _, line := range resp.Body {
		if _, err := fmt.Fprintln(app.Out, line); err != nil {
			return false, errors.Wrap(err, "print response failed")
		}
	}
	return false, nil
}
