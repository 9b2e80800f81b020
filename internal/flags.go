// Package internal holds the process-wide flag values shared by the
// tablepos commands.
//
// Each flag is declared once as a Flag and bound to a package variable.
// A flag's environment variable, when set, replaces its default, so the
// same binary can be configured from the command line, the environment,
// or a .env file.
package internal

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// Flag values. They hold defaults until the owning command parses its flags.
var (
	Env      string
	LogLevel string

	Port       uint
	HealthPort uint

	MaxSessions    uint
	IdleTimeoutMS  uint
	WriteTimeoutMS uint

	MenuFile       string
	MenuDSN        string
	ArchiveDSN     string
	ArchiveAMQPURL string

	Host            string
	Role            string
	ClientTimeoutMS uint
)

// Flag describes a command line flag bound to an environment variable.
type Flag struct {
	Name  string
	Env   string
	Usage string
	// Value points at the package variable holding the flag value.
	// Supported types are *string and *uint.
	Value interface{}
}

// Root command flags.
var (
	EnvFlag = Flag{
		Name:  "env",
		Env:   "TABLEPOS_ENV",
		Usage: "deployment environment (dev, test or prod)",
		Value: &Env,
	}
	LogLevelFlag = Flag{
		Name:  "log-level",
		Env:   "TABLEPOS_LOG_LEVEL",
		Usage: "log level (trace, debug, info, warn, error)",
		Value: &LogLevel,
	}
	PortFlag = Flag{
		Name:  "port",
		Env:   "TABLEPOS_PORT",
		Usage: "TCP port of the point-of-sale line protocol",
		Value: &Port,
	}
	HealthPortFlag = Flag{
		Name:  "health-port",
		Env:   "TABLEPOS_HEALTH_PORT",
		Usage: "gRPC health service port, 0 disables it",
		Value: &HealthPort,
	}
)

// Server command flags.
var (
	MaxSessionsFlag = Flag{
		Name:  "max-sessions",
		Env:   "TABLEPOS_MAX_SESSIONS",
		Usage: "maximum number of concurrently served terminals",
		Value: &MaxSessions,
	}
	IdleTimeoutMSFlag = Flag{
		Name:  "idle-timeout-ms",
		Env:   "TABLEPOS_IDLE_TIMEOUT_MS",
		Usage: "close a terminal that sends nothing for this long, 0 disables it",
		Value: &IdleTimeoutMS,
	}
	WriteTimeoutMSFlag = Flag{
		Name:  "write-timeout-ms",
		Env:   "TABLEPOS_WRITE_TIMEOUT_MS",
		Usage: "deadline for writing one response, 0 disables it",
		Value: &WriteTimeoutMS,
	}
	MenuFileFlag = Flag{
		Name:  "menu-file",
		Env:   "TABLEPOS_MENU_FILE",
		Usage: "menu file with one id;name;price line per item",
		Value: &MenuFile,
	}
	MenuDSNFlag = Flag{
		Name:  "menu-dsn",
		Env:   "TABLEPOS_MENU_DSN",
		Usage: "PostgreSQL DSN to load the menu from, overrides --menu-file",
		Value: &MenuDSN,
	}
	ArchiveDSNFlag = Flag{
		Name:  "archive-dsn",
		Env:   "TABLEPOS_ARCHIVE_DSN",
		Usage: "PostgreSQL DSN to archive settled bills to",
		Value: &ArchiveDSN,
	}
	ArchiveAMQPURLFlag = Flag{
		Name:  "archive-amqp-url",
		Env:   "TABLEPOS_ARCHIVE_AMQP_URL",
		Usage: "AMQP URL to publish settled bills to",
		Value: &ArchiveAMQPURL,
	}
)

// Client command flags.
var (
	HostFlag = Flag{
		Name:  "host",
		Env:   "TABLEPOS_HOST",
		Usage: "server host to connect to",
		Value: &Host,
	}
	RoleFlag = Flag{
		Name:  "role",
		Env:   "TABLEPOS_ROLE",
		Usage: "role announced to the server (CUSTOMER or STAFF)",
		Value: &Role,
	}
	ClientTimeoutMSFlag = Flag{
		Name:  "timeout-ms",
		Env:   "TABLEPOS_CLIENT_TIMEOUT_MS",
		Usage: "deadline for one request/response round trip",
		Value: &ClientTimeoutMS,
	}
)

var defaults = map[interface{}]interface{}{
	&Env:             "dev",
	&LogLevel:        "info",
	&Port:            uint(5000),
	&HealthPort:      uint(0),
	&MaxSessions:     uint(256),
	&IdleTimeoutMS:   uint(300000),
	&WriteTimeoutMS:  uint(5000),
	&MenuFile:        "menu.txt",
	&MenuDSN:         "",
	&ArchiveDSN:      "",
	&ArchiveAMQPURL:  "",
	&Host:            "localhost",
	&Role:            "",
	&ClientTimeoutMS: uint(5000),
}

// RegisterCommandFlags registers the flags as persistent flags of cmd.
// Environment variables are read at registration time and replace defaults.
func RegisterCommandFlags(cmd *cobra.Command, flags []*Flag) error {
	// a missing .env file is fine, the environment may be set directly
	_ = godotenv.Load()
	return RegisterFlags(cmd.PersistentFlags(), flags)
}

// RegisterFlags registers the flags on fs, with defaults taken from the
// environment where set.
func RegisterFlags(fs *pflag.FlagSet, flags []*Flag) error {
	for _, f := range flags {
		env, hasEnv := os.LookupEnv(f.Env)
		usage := fmt.Sprintf("%s [$%s]", f.Usage, f.Env)
		switch v := f.Value.(type) {
		case *string:
			def, _ := defaults[v].(string)
			if hasEnv {
				def = env
			}
			fs.StringVar(v, f.Name, def, usage)
		case *uint:
			def, _ := defaults[v].(uint)
			if hasEnv {
				n, err := strconv.ParseUint(env, 10, 32)
				if err != nil {
					return errors.Wrapf(err, "parse $%s failed", f.Env)
				}
				def = uint(n)
			}
			fs.UintVar(v, f.Name, def, usage)
		default:
			return errors.Errorf("flag %s has unsupported type %T", f.Name, f.Value)
		}
	}
	return nil
}

// ValidateEnv checks the parsed flag values are usable.
func ValidateEnv() error {
	switch Env {
	case "dev", "test", "prod":
	default:
		return errors.Errorf("unknown environment %q", Env)
	}
	if Port == 0 || Port > 65535 {
		return errors.Errorf("port %d out of range", Port)
	}
	if HealthPort > 65535 {
		return errors.Errorf("health port %d out of range", HealthPort)
	}
	if HealthPort != 0 && HealthPort == Port {
		return errors.New("health port must differ from port")
	}
	return nil
}
