// =============================================================================
// Ventas Histórico - Logging
// =============================================================================
//
// Structured logging for every component. Components receive a
// *logrus.Logger in their constructor; nothing logs through a global.
//
// USAGE:
//   logger, err := logging.New("info", "json", os.Stdout)
//   logger.WithField("module", "reconcile").Info("run finished")
//
//   logging.LogError(logger, "store", "AppendBatch", "writing batch", stats, err)
//
// =============================================================================

package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// New creates a logger.
//
// PARAMETERS:
//   - level: "debug", "info", "warn" or "error".
//   - format: "json" or "text".
//   - out: The destination. nil means os.Stdout.
//
// RETURNS:
//   - The configured logger.
//   - An error for an unknown level or format.
func New(level, format string, out io.Writer) (*logrus.Logger, error) {
	lvl, err := logrus.ParseLevel(strings.TrimSpace(level))
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	logger := logrus.New()
	logger.SetLevel(lvl)

	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "json":
		logger.SetFormatter(&logrus.JSONFormatter{})
	case "text":
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	default:
		return nil, fmt.Errorf("invalid log format %q", format)
	}

	if out == nil {
		out = os.Stdout
	}
	logger.SetOutput(out)

	return logger, nil
}

// Discard returns a logger that writes nothing. Used by tests and by
// components constructed without a logger.
func Discard() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// OrDiscard returns logger, or a discarding logger when it is nil.
func OrDiscard(logger *logrus.Logger) *logrus.Logger {
	if logger == nil {
		return Discard()
	}
	return logger
}

// LogError logs err with the module, function and context it happened in.
// data is attached when non-nil.
func LogError(logger *logrus.Logger, moduleName string, funcName string, context string, data any, err error) {
	fields := logrus.Fields{
		"module":   moduleName,
		"funcName": funcName,
		"context":  context,
	}
	if data != nil {
		fields["data"] = data
	}
	logger.WithFields(fields).Error(err.Error())
}
