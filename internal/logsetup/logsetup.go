// Package logsetup installs the process-wide log backend.
package logsetup

import (
	"fmt"
	"io"

	"github.com/op/go-logging"
)

var (
	plainFormat = logging.MustStringFormatter(`%{time:15:04:05.000} %{level:.4s} %{module}: %{message}`)
	colorFormat = logging.MustStringFormatter(`%{color}%{time:15:04:05.000} %{level:.4s}%{color:reset} %{module}: %{message}`)
)

// Setup sends every module's records at level or above to w.
func Setup(w io.Writer, level string, color bool) error {
	lvl, err := logging.LogLevel(level)
	if err != nil {
		return fmt.Errorf("log level %q: %w", level, err)
	}
	format := plainFormat
	if color {
		format = colorFormat
	}
	backend := logging.AddModuleLevel(logging.NewBackendFormatter(logging.NewLogBackend(w, "", 0), format))
	backend.SetLevel(lvl, "")
	logging.SetBackend(backend)
	return nil
}
