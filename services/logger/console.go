package logsvc

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/trezcool/mergington/core"
)

// ConsoleLogger writes structured logs with zerolog.
type ConsoleLogger struct {
	zl zerolog.Logger
}

var _ core.Logger = (*ConsoleLogger)(nil)

// NewConsoleLogger returns a logger writing to `w`: human friendly when `pretty`, JSON otherwise.
func NewConsoleLogger(w io.Writer, component, level string, pretty bool) (*ConsoleLogger, error) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return nil, errors.Wrap(err, "parsing log level")
	}
	if pretty {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	zl := zerolog.New(w).Level(lvl).With().Timestamp().Str("component", component).Logger()
	return &ConsoleLogger{zl: zl}, nil
}

// NewStdoutLogger is a NewConsoleLogger writing to os.Stdout at the info level.
func NewStdoutLogger(component string, pretty bool) *ConsoleLogger {
	l, _ := NewConsoleLogger(os.Stdout, component, zerolog.LevelInfoValue, pretty)
	return l
}

// Zerolog exposes the underlying logger, e.g. for request logs.
func (l ConsoleLogger) Zerolog() *zerolog.Logger {
	return &l.zl
}

// expected fmt: msg | error, map[string]interface{}, any
func (l ConsoleLogger) log(evt *zerolog.Event, msg string, args []interface{}) {
	for i, arg := range args {
		switch a := arg.(type) {
		case error:
			evt = evt.Err(a)
		case map[string]interface{}:
			evt = evt.Fields(a)
		default:
			evt = evt.Interface(fmt.Sprintf("arg%d", i), a)
		}
	}
	evt.Msg(msg)
}

func (l ConsoleLogger) Debug(msg string, args ...interface{}) { l.log(l.zl.Debug(), msg, args) }
func (l ConsoleLogger) Info(msg string, args ...interface{})  { l.log(l.zl.Info(), msg, args) }
func (l ConsoleLogger) Warn(msg string, args ...interface{})  { l.log(l.zl.Warn(), msg, args) }
func (l ConsoleLogger) Error(msg string, args ...interface{}) { l.log(l.zl.Error(), msg, args) }

func (l ConsoleLogger) Fatal(msg string, args ...interface{}) {
	// zerolog's Fatal level exits after writing
	l.log(l.zl.Fatal(), msg, args)
}
