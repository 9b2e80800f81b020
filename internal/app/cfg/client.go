package cfg

import (
	"strings"
	"time"

	"tablepos/internal"
	"tablepos/internal/app/apps"

	"github.com/pkg/errors"
)

// HostCfg is the server host a client connects to.
type HostCfg struct {
	host string
}

// NewHostCfg creates a new HostCfg.
func NewHostCfg(host string) *HostCfg {
	return &HostCfg{host: host}
}

// HostFromEnv creates a new HostCfg from the current environment.
func HostFromEnv() *HostCfg {
	return NewHostCfg(internal.Host)
}

// ApplyClientApp applies the HostCfg to a ClientApp.
func (cfg HostCfg) ApplyClientApp(app *apps.ClientApp) error {
	app.Host = cfg.host
	return nil
}

// RoleCfg is the role a client announces after connecting.
type RoleCfg struct {
	role string
}

// NewRoleCfg creates a new RoleCfg. An empty role skips AUTH.
func NewRoleCfg(role string) *RoleCfg {
	return &RoleCfg{role: role}
}

// RoleFromEnv creates a new RoleCfg from the current environment.
func RoleFromEnv() *RoleCfg {
	return NewRoleCfg(internal.Role)
}

// ApplyClientApp applies the RoleCfg to a ClientApp.
func (cfg RoleCfg) ApplyClientApp(app *apps.ClientApp) error {
	if strings.ContainsAny(cfg.role, " \t\r\n") {
		return errors.Errorf("role %q must be a single word", cfg.role)
	}
	app.Role = cfg.role
	return nil
}

// TimeoutCfg bounds one client round trip.
type TimeoutCfg struct {
	timeout time.Duration
}

// NewTimeoutCfg creates a new TimeoutCfg.
func NewTimeoutCfg(d time.Duration) *TimeoutCfg {
	return &TimeoutCfg{timeout: d}
}

// TimeoutFromEnv creates a new TimeoutCfg from the current environment.
func TimeoutFromEnv() *TimeoutCfg {
	return NewTimeoutCfg(time.Duration(internal.ClientTimeoutMS) * time.Millisecond)
}

// ApplyClientApp applies the TimeoutCfg to a ClientApp.
func (cfg TimeoutCfg) ApplyClientApp(app *apps.ClientApp) error {
	app.Timeout = cfg.timeout
	return nil
}
