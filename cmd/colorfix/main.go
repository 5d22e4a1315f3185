// Batch colour correction for lab photography
// License: MIT

package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
)

const (
	AppName    = "colorfix"
	AppVersion = "1.0.0"
)

// exitError carries a process exit code out of a command
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)

		var ee *exitError
		if errors.As(err, &ee) {
			os.Exit(ee.code)
		}
		os.Exit(1)
	}
}

// initLogger builds the run logger. JSON records go to stdout; debug mode
// switches to coloured text on stderr so it stays off the summary stream.
func initLogger(debugMode bool) *logrus.Logger {
	logger := logrus.New()

	if debugMode {
		logger.SetOutput(os.Stderr)
		logger.SetLevel(logrus.DebugLevel)
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
			ForceColors:   true,
		})
		logger.Debug("Debug logging enabled")
	} else {
		logger.SetOutput(os.Stdout)
		logger.SetLevel(logrus.InfoLevel)
		logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02 15:04:05",
		})
	}

	return logger
}
