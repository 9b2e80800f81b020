package apps

import (
	"context"
	"net"
	"strconv"
	"time"

	"tablepos/internal/pkg/billing"
	"tablepos/internal/pkg/catalog"
	"tablepos/internal/pkg/handler"
	"tablepos/internal/pkg/health"
	"tablepos/internal/pkg/journal"
	"tablepos/internal/pkg/ledger"
	"tablepos/internal/pkg/server"
	"tablepos/internal/pkg/session"
	"tablepos/internal/pkg/validate"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

var logger logrus.FieldLogger = logrus.StandardLogger()

// ServerAppCfg configures a ServerApp.
type ServerAppCfg interface {
	ApplyServerApp(*ServerApp) error
}

// ServerApp is the point-of-sale server application.
type ServerApp struct {
	Host       string
	Port       uint16
	HealthPort uint16 `validate:"omitempty,nefield=Port"`

	MaxSessions  int64 `validate:"gt=0"`
	IdleTimeout  time.Duration
	WriteTimeout time.Duration

	MenuFile string `validate:"required_without=MenuDSN"`
	MenuDSN  string

	ArchiveDSN     string
	ArchiveAMQPURL string `validate:"omitempty,url"`

	// ready is closed once the terminal listener accepts connections.
	ready chan struct{}
	addr  net.Addr
}

// NewServerApp creates a new ServerApp.
func NewServerApp(cfgs ...ServerAppCfg) (*ServerApp, error) {
	app := &ServerApp{
		MaxSessions:  256,
		IdleTimeout:  5 * time.Minute,
		WriteTimeout: 5 * time.Second,
		MenuFile:     "menu.txt",
		ready:        make(chan struct{}),
	}
	for _, cfg := range cfgs {
		if err := cfg.ApplyServerApp(app); err != nil {
			return nil, errors.Wrap(err, "apply ServerApp cfg failed")
		}
	}
	if err := validate.Validate().Struct(app); err != nil {
		return nil, errors.Wrap(err, "validate ServerApp failed")
	}
	return app, nil
}

// Ready is closed once the server accepts terminals.
func (app *ServerApp) Ready() <-chan struct{} {
	return app.ready
}

// Addr returns the terminal listener address once Ready is closed.
func (app *ServerApp) Addr() net.Addr {
	return app.addr
}

func (app *ServerApp) loadCatalog(ctx context.Context) (*catalog.Catalog, error) {
	if app.MenuDSN != "" {
		return catalog.LoadPostgres(ctx, app.MenuDSN)
	}
	return catalog.LoadFile(app.MenuFile)
}

func (app *ServerApp) openArchive(ctx context.Context) (journal.Sink, error) {
	var sinks journal.Multi
	if app.ArchiveDSN != "" {
		pg, err := journal.NewPostgresSink(ctx, app.ArchiveDSN)
		if err != nil {
			return nil, errors.Wrap(err, "open database archive failed")
		}
		sinks = append(sinks, pg)
	}
	if app.ArchiveAMQPURL != "" {
		mq, err := journal.NewAMQPSink(ctx, app.ArchiveAMQPURL)
		if err != nil {
			sinks.Close()
			return nil, errors.Wrap(err, "open broker archive failed")
		}
		sinks = append(sinks, mq)
	}
	if len(sinks) == 0 {
		return journal.Discard{}, nil
	}
	return sinks, nil
}

// Run serves terminals until ctx is cancelled.
func (app *ServerApp) Run(ctx context.Context, _ []string) error {
	menu, err := app.loadCatalog(ctx)
	if err != nil {
		return errors.Wrap(err, "load menu failed")
	}
	archive, err := app.openArchive(ctx)
	if err != nil {
		return err
	}
	defer archive.Close()

	store := ledger.NewMemoryStore()
	engine, err := billing.NewEngine(store, billing.WithArchiver(archive))
	if err != nil {
		return errors.Wrap(err, "create billing engine failed")
	}
	h, err := handler.NewHandler(
		handler.WithMenu(menu),
		handler.WithLedger(store),
		handler.WithSettler(engine),
	)
	if err != nil {
		return errors.Wrap(err, "create handler failed")
	}

	srvCfgs := []server.Cfg{
		server.WithDispatcher(h),
		server.WithMaxSessions(app.MaxSessions),
		server.WithSessionCfgs(
			session.WithIdleTimeout(app.IdleTimeout),
			session.WithWriteTimeout(app.WriteTimeout),
		),
	}
	var hs *health.Server
	if app.HealthPort != 0 {
		hs = health.NewServer()
		srvCfgs = append(srvCfgs, server.WithStatusReporter(hs))
	}
	srv, err := server.NewServer(srvCfgs...)
	if err != nil {
		return errors.Wrap(err, "create server failed")
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", net.JoinHostPort(app.Host, strconv.Itoa(int(app.Port))))
	if err != nil {
		return errors.Wrap(err, "listen failed")
	}
	app.addr = ln.Addr()
	logger.WithFields(logrus.Fields{
		"addr":  app.addr.String(),
		"items": menu.Len(),
	}).Info("point-of-sale server starting")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return errors.Wrap(srv.Serve(gctx, ln), "serve terminals failed")
	})
	if hs != nil {
		g.Go(func() error {
			addr := net.JoinHostPort(app.Host, strconv.Itoa(int(app.HealthPort)))
			return errors.Wrap(hs.ListenAndServe(gctx, addr), "serve health failed")
		})
	}
	go func() {
		select {
		case <-srv.Ready():
			close(app.ready)
		case <-gctx.Done():
		}
	}()
	return g.Wait()
}
