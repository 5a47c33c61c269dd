// Package logger provides the levelled logger used throughout the batch framework.
// Messages are written through the standard `log` package with a "[LEVEL]" prefix
// and filtered against a single process-wide level.
package logger

import (
	"fmt"
	"io"
	"log"
	"strings"
	"sync/atomic"
)

// LogLevel is a type representing the logging level.
// Smaller numbers indicate more detailed log levels.
type LogLevel int32

const (
	// LevelDebug is used for detailed diagnostic output such as row previews.
	LevelDebug LogLevel = iota
	// LevelInfo is used for lifecycle messages of jobs and steps.
	LevelInfo
	// LevelWarn is used for recoverable conditions worth surfacing.
	LevelWarn
	// LevelError is used for failures.
	LevelError
	// LevelFatal is used for failures that terminate the process.
	LevelFatal
)

var levelNames = map[LogLevel]string{
	LevelDebug: "DEBUG",
	LevelInfo:  "INFO",
	LevelWarn:  "WARN",
	LevelError: "ERROR",
	LevelFatal: "FATAL",
}

// String returns the upper-case name of the level.
func (l LogLevel) String() string {
	if name, ok := levelNames[l]; ok {
		return name
	}
	return fmt.Sprintf("LEVEL(%d)", int32(l))
}

// currentLevel holds the active LogLevel. It is read on every log call, so it is atomic.
var currentLevel atomic.Int32

func init() {
	currentLevel.Store(int32(LevelInfo))
}

// ParseLogLevel converts a case-insensitive level name into a LogLevel.
// "TRACE" is accepted as an alias of DEBUG.
//
// Parameters:
//
//	level: The level name, e.g. "info" or "DEBUG".
//
// Returns:
//
//	The LogLevel and true when the name is known, LevelInfo and false otherwise.
func ParseLogLevel(level string) (LogLevel, bool) {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "TRACE", "DEBUG":
		return LevelDebug, true
	case "INFO":
		return LevelInfo, true
	case "WARN", "WARNING":
		return LevelWarn, true
	case "ERROR":
		return LevelError, true
	case "FATAL":
		return LevelFatal, true
	default:
		return LevelInfo, false
	}
}

// SetLogLevel sets the global log level.
// An unknown name falls back to INFO and prints a notice to standard output.
func SetLogLevel(level string) {
	parsed, ok := ParseLogLevel(level)
	if !ok {
		fmt.Printf("Unknown log level '%s' specified. Defaulting to INFO level.\n", level)
	}
	currentLevel.Store(int32(parsed))
}

// GetLogLevel returns the active log level.
func GetLogLevel() LogLevel {
	return LogLevel(currentLevel.Load())
}

// IsEnabled reports whether messages at the given level are currently written.
func IsEnabled(level LogLevel) bool {
	return LogLevel(currentLevel.Load()) <= level
}

// SetOutput redirects all log output to w. Tests use it to capture messages.
func SetOutput(w io.Writer) {
	log.SetOutput(w)
}

func logf(level LogLevel, format string, v ...interface{}) {
	if !IsEnabled(level) {
		return
	}
	log.Printf("["+level.String()+"] "+format, v...)
}

// Debugf formats and outputs a DEBUG level log message.
func Debugf(format string, v ...interface{}) {
	logf(LevelDebug, format, v...)
}

// Infof formats and outputs an INFO level log message.
func Infof(format string, v ...interface{}) {
	logf(LevelInfo, format, v...)
}

// Warnf formats and outputs a WARN level log message.
func Warnf(format string, v ...interface{}) {
	logf(LevelWarn, format, v...)
}

// Errorf formats and outputs an ERROR level log message.
func Errorf(format string, v ...interface{}) {
	logf(LevelError, format, v...)
}

// Fatalf formats and outputs a FATAL level log message,
// then terminates the program by calling os.Exit(1).
func Fatalf(format string, v ...interface{}) {
	log.Fatalf("[FATAL] "+format, v...)
}

// Lines writes every line of a multi-line block (a schema tree or a table preview)
// as its own log message at the given level, each prefixed with title.
func Lines(level LogLevel, title, block string) {
	if !IsEnabled(level) {
		return
	}
	for _, line := range strings.Split(strings.TrimRight(block, "\n"), "\n") {
		log.Printf("[%s] %s%s", level.String(), title, line)
	}
}
