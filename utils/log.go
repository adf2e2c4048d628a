package utils

/*
A tagged, leveled logger on top of zerolog.
Every package keeps its own Logger (NewLogger("tag")) and all of them share
one output and one level, which can be changed at runtime.
*/

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync/atomic"

	"github.com/rs/zerolog"
)

const (
	LogErrorLevel int = 0
	LogWarnLevel  int = 1
	LogInfoLevel  int = 2
	LogDebugLevel int = 3

	LogFormatConsole = "console"
	LogFormatJSON    = "json"

	timeFormat = "2006/01/02 15:04:05"
)

var (
	stdoutLog *Logger
	logLevel  int32
	base      atomic.Value // zerolog.Logger
)

func init() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnixMs
	base.Store(newZerolog(os.Stdout, LogFormatConsole))
	SetLogLevel(LogDebugLevel)
	stdoutLog = NewLogger("")
}

func newZerolog(w io.Writer, format string) zerolog.Logger {
	if format == LogFormatConsole {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: timeFormat, NoColor: true}
	}
	return zerolog.New(w).With().Timestamp().Logger()
}

// SetLogOutput redirects every Logger to w; format is "console" or "json"
func SetLogOutput(w io.Writer, format string) error {
	if format != LogFormatConsole && format != LogFormatJSON {
		return fmt.Errorf("unknown log format %q", format)
	}
	base.Store(newZerolog(w, format))
	return nil
}

func SetLogLevel(level int) {
	atomic.StoreInt32(&logLevel, int32(level))
	switch level {
	case LogErrorLevel:
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	case LogWarnLevel:
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case LogInfoLevel:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
}

func GetLogLevel() int {
	return int(atomic.LoadInt32(&logLevel))
}

// ParseLogLevel converts "error", "warn", "info" or "debug" to a log level
func ParseLogLevel(s string) (int, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "error":
		return LogErrorLevel, nil
	case "warn", "warning":
		return LogWarnLevel, nil
	case "info":
		return LogInfoLevel, nil
	case "debug":
		return LogDebugLevel, nil
	}
	return 0, fmt.Errorf("invalid log level %q", s)
}

func GetStdoutLog() *Logger {
	return stdoutLog
}

type Logger struct {
	tag string
}

func NewLogger(tag string) *Logger {
	return &Logger{tag: tag}
}

func (l *Logger) event(e *zerolog.Event) *zerolog.Event {
	if len(l.tag) != 0 {
		e = e.Str("module", l.tag)
	}
	return e
}

// write drops the trailing newline printf-style callers tend to add
func (l *Logger) write(e *zerolog.Event, msg string) {
	l.event(e).Msg(strings.TrimRight(msg, "\n"))
}

func current() *zerolog.Logger {
	z := base.Load().(zerolog.Logger)
	return &z
}

func (l *Logger) Fatal(format string, v ...interface{}) {
	l.write(current().Fatal(), fmt.Sprintf(format, v...))
}

func (l *Logger) Fatalln(v ...interface{}) {
	l.write(current().Fatal(), fmt.Sprint(v...))
}

func (l *Logger) Error(format string, v ...interface{}) {
	l.write(current().Error(), fmt.Sprintf(format, v...))
}

func (l *Logger) Errorln(v ...interface{}) {
	l.write(current().Error(), fmt.Sprint(v...))
}

func (l *Logger) Warn(format string, v ...interface{}) {
	l.write(current().Warn(), fmt.Sprintf(format, v...))
}

func (l *Logger) Warnln(v ...interface{}) {
	l.write(current().Warn(), fmt.Sprint(v...))
}

func (l *Logger) Info(format string, v ...interface{}) {
	l.write(current().Info(), fmt.Sprintf(format, v...))
}

func (l *Logger) Infoln(v ...interface{}) {
	l.write(current().Info(), fmt.Sprint(v...))
}

func (l *Logger) Debug(format string, v ...interface{}) {
	l.write(current().Debug(), fmt.Sprintf(format, v...))
}

func (l *Logger) Debugln(v ...interface{}) {
	l.write(current().Debug(), fmt.Sprint(v...))
}
