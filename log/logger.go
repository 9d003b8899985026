// package log provides named, leveled loggers for the renderer packages. It is
// a thin wrapper over go-logging so that every subsystem logs through the same
// backend with a shared format and a single verbosity switch.
package log

import (
	"io"
	"os"

	"github.com/op/go-logging"
)

// Level selects the minimum severity that reaches the sink.
type Level logging.Level

// The levels that can be passed to the SetLevel function.
const (
	Debug Level = iota
	Info
	Notice
	Warning
	Error
)

// The shared logger format.
var format = logging.MustStringFormatter(
	`%{color}[%{time:15:04:05.000}] [%{module}] [%{level}]%{color:reset} %{message}`,
)

// The internal leveled logger backend.
var leveledBackend logging.LeveledBackend

// Logger is the leveled logging surface handed to each subsystem.
type Logger interface {
	Debug(v ...any)
	Debugf(format string, v ...any)

	Notice(v ...any)
	Noticef(format string, v ...any)

	Info(v ...any)
	Infof(format string, v ...any)

	Warning(v ...any)
	Warningf(format string, v ...any)

	Error(v ...any)
	Errorf(format string, v ...any)
}

// New creates a named logger. The name appears in the [%{module}] column of
// every line the logger emits.
//
// Parameters:
//   - name: the subsystem name, e.g. "scene" or "tlas"
//
// Returns:
//   - Logger: a leveled logger bound to the shared backend
func New(name string) Logger {
	return logging.MustGetLogger(name)
}

// SetSink overrides the backend output sink. Mainly useful for capturing log
// output in tests or redirecting it to a file.
//
// Parameters:
//   - sink: the writer that receives all formatted log lines
func SetSink(sink io.Writer) {
	backend := logging.NewLogBackend(sink, "", 0)
	backendWithFormatter := logging.NewBackendFormatter(backend, format)
	leveledBackend = logging.AddModuleLevel(backendWithFormatter)
	leveledBackend.SetLevel(logging.INFO, "")
	logging.SetBackend(leveledBackend)
}

// SetLevel sets logger verbosity for all modules.
//
// Parameters:
//   - level: the minimum severity to emit
func SetLevel(level Level) {
	var loggerLevel logging.Level

	switch level {
	case Debug:
		loggerLevel = logging.DEBUG
	case Info:
		loggerLevel = logging.INFO
	case Notice:
		loggerLevel = logging.NOTICE
	case Warning:
		loggerLevel = logging.WARNING
	case Error:
		loggerLevel = logging.ERROR
	}

	leveledBackend.SetLevel(loggerLevel, "")
}

func init() {
	SetSink(os.Stdout)
	SetLevel(Notice)
}
