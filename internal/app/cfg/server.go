package cfg

import (
	"time"

	"tablepos/internal"
	"tablepos/internal/app/apps"

	"github.com/pkg/errors"
)

// LimitsCfg bounds how many terminals are served and how long they may stall.
type LimitsCfg struct {
	maxSessions  int64
	idleTimeout  time.Duration
	writeTimeout time.Duration
}

// NewLimitsCfg creates a new LimitsCfg. A zero timeout disables it.
func NewLimitsCfg(maxSessions int64, idle, write time.Duration) *LimitsCfg {
	return &LimitsCfg{
		maxSessions:  maxSessions,
		idleTimeout:  idle,
		writeTimeout: write,
	}
}

// LimitsFromEnv creates a new LimitsCfg from the current environment.
func LimitsFromEnv() *LimitsCfg {
	return NewLimitsCfg(
		int64(internal.MaxSessions),
		time.Duration(internal.IdleTimeoutMS)*time.Millisecond,
		time.Duration(internal.WriteTimeoutMS)*time.Millisecond,
	)
}

// ApplyServerApp applies the LimitsCfg to a ServerApp.
func (cfg LimitsCfg) ApplyServerApp(app *apps.ServerApp) error {
	if cfg.maxSessions <= 0 {
		return errors.Errorf("max sessions must be positive, got %d", cfg.maxSessions)
	}
	app.MaxSessions = cfg.maxSessions
	app.IdleTimeout = cfg.idleTimeout
	app.WriteTimeout = cfg.writeTimeout
	return nil
}

// MenuCfg selects where the menu is loaded from.
type MenuCfg struct {
	file string
	dsn  string
}

// NewMenuCfg creates a new MenuCfg. A non-empty dsn wins over file.
func NewMenuCfg(file, dsn string) *MenuCfg {
	return &MenuCfg{file: file, dsn: dsn}
}

// MenuFromEnv creates a new MenuCfg from the current environment.
func MenuFromEnv() *MenuCfg {
	return NewMenuCfg(internal.MenuFile, internal.MenuDSN)
}

// ApplyServerApp applies the MenuCfg to a ServerApp.
func (cfg MenuCfg) ApplyServerApp(app *apps.ServerApp) error {
	app.MenuFile = cfg.file
	app.MenuDSN = cfg.dsn
	return nil
}

// ArchiveCfg selects where settled bills are archived.
type ArchiveCfg struct {
	dsn     string
	amqpURL string
}

// NewArchiveCfg creates a new ArchiveCfg. Empty values disable a sink.
func NewArchiveCfg(dsn, amqpURL string) *ArchiveCfg {
	return &ArchiveCfg{dsn: dsn, amqpURL: amqpURL}
}

// ArchiveFromEnv creates a new ArchiveCfg from the current environment.
func ArchiveFromEnv() *ArchiveCfg {
	return NewArchiveCfg(internal.ArchiveDSN, internal.ArchiveAMQPURL)
}

// ApplyServerApp applies the ArchiveCfg to a ServerApp.
func (cfg ArchiveCfg) ApplyServerApp(app *apps.ServerApp) error {
	app.ArchiveDSN = cfg.dsn
	app.ArchiveAMQPURL = cfg.amqpURL
	return nil
}
