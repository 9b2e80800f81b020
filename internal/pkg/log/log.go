// Package log add logging utilities.
package log

import (
	"strings"
	"time"

	"tablepos/internal/pkg/protocol"

	"github.com/sirupsen/logrus"
)

// SetLogger sets the default logger's level.
func SetLogger(level string) {
	logrus.SetLevel(logrus.ErrorLevel)
	customFormatter := new(logrus.TextFormatter)
	customFormatter.TimestampFormat = time.RFC3339
	logrus.SetFormatter(customFormatter)
	customFormatter.FullTimestamp = true
	switch strings.ToLower(level) {
	case "trace":
		logrus.SetLevel(logrus.TraceLevel)
	case "debug":
		logrus.SetLevel(logrus.DebugLevel)
	case "info":
		logrus.SetLevel(logrus.InfoLevel)
	case "warn":
		logrus.SetLevel(logrus.WarnLevel)
	case "error":
		logrus.SetLevel(logrus.ErrorLevel)
	default:
		logrus.SetLevel(logrus.ErrorLevel)
	}
}

// CommandToFields describes a received command.
func CommandToFields(cmd protocol.Command) logrus.Fields {
	return logrus.Fields{
		"verb": string(cmd.Verb),
		"args": strings.Join(cmd.Args, " "),
	}
}

// ResponseToFields describes a sent response. Long bodies are summarised by
// their first line and line count.
func ResponseToFields(resp protocol.Response) logrus.Fields {
	fields := logrus.Fields{
		"lines": len(resp.Body),
	}
	if len(resp.Body) > 0 {
		fields["first"] = resp.Body[0]
	}
	if reason, ok := resp.ErrorReason(); ok {
		fields["error"] = reason
	}
	if resp.Close {
		fields["close"] = true
	}
	return fields
}
