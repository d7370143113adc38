// Package elog provides the engine's single diagnostic logger, shared by
// every internal package (search instability warnings, TT resizes, NNUE
// weight-load outcomes). It is separate from the UCI text protocol: UCI
// output is a wire format written straight to stdout and never passes
// through here.
package elog

import (
	"os"

	"github.com/op/go-logging"
)

var log = logging.MustGetLogger("chessplay")

func init() {
	backend := logging.NewLogBackend(os.Stderr, "", 0)
	formatter := logging.MustStringFormatter(
		`%{time:15:04:05.000} %{level:.4s} %{module}: %{message}`,
	)
	logging.SetBackend(logging.NewBackendFormatter(backend, formatter))
	logging.SetLevel(logging.INFO, "chessplay")
}

// Get returns the shared engine logger.
func Get() *logging.Logger {
	return log
}

// SetLevel adjusts the minimum level logged; quieter by default would be
// logging.WARNING, but the engine defaults to INFO so load/resize events are
// visible on stderr without a flag.
func SetLevel(level logging.Level) {
	logging.SetLevel(level, "chessplay")
}
