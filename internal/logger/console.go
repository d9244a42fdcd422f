// Package logger provides the console logger used across compass.
//
// Output is timestamped, level-filtered and thread-safe. Color is
// enabled automatically when writing to a TTY and disabled for any
// other writer (files, pipes, test buffers).
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

// Log level constants for filtering.
const (
	levelTrace int = 0
	levelDebug int = 1
	levelInfo  int = 2
	levelWarn  int = 3
	levelError int = 4
)

var levelNames = map[string]int{
	"trace": levelTrace,
	"debug": levelDebug,
	"info":  levelInfo,
	"warn":  levelWarn,
	"error": levelError,
}

// ConsoleLogger writes timestamped, level-filtered messages to a
// writer. A nil writer silently discards everything.
type ConsoleLogger struct {
	writer      io.Writer
	minLevel    int
	mutex       sync.Mutex
	colorOutput bool
}

// NewConsoleLogger creates a logger writing to w at the given minimum
// level (trace, debug, info, warn, error, case-insensitive; empty or
// invalid defaults to info).
func NewConsoleLogger(w io.Writer, logLevel string) *ConsoleLogger {
	return &ConsoleLogger{
		writer:      w,
		minLevel:    normalizeLevel(logLevel),
		colorOutput: isTerminal(w),
	}
}

func normalizeLevel(level string) int {
	if lvl, ok := levelNames[strings.ToLower(strings.TrimSpace(level))]; ok {
		return lvl
	}
	return levelInfo
}

// isTerminal reports whether w is a TTY that supports colors.
// NO_COLOR is honored through the color library's detection.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	if color.NoColor {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Tracef logs at trace level.
func (cl *ConsoleLogger) Tracef(format string, args ...any) {
	cl.logf(levelTrace, "TRACE", nil, format, args...)
}

// Debugf logs at debug level.
func (cl *ConsoleLogger) Debugf(format string, args ...any) {
	cl.logf(levelDebug, "DEBUG", nil, format, args...)
}

// Infof logs at info level.
func (cl *ConsoleLogger) Infof(format string, args ...any) {
	cl.logf(levelInfo, "INFO", nil, format, args...)
}

// Warnf logs at warn level.
func (cl *ConsoleLogger) Warnf(format string, args ...any) {
	cl.logf(levelWarn, "WARN", color.New(color.FgYellow), format, args...)
}

// Errorf logs at error level.
func (cl *ConsoleLogger) Errorf(format string, args ...any) {
	cl.logf(levelError, "ERROR", color.New(color.FgRed), format, args...)
}

// Successf logs a highlighted success message at info level.
func (cl *ConsoleLogger) Successf(format string, args ...any) {
	cl.logf(levelInfo, "OK", color.New(color.FgGreen), format, args...)
}

func (cl *ConsoleLogger) logf(level int, tag string, c *color.Color, format string, args ...any) {
	if cl == nil || cl.writer == nil || level < cl.minLevel {
		return
	}

	cl.mutex.Lock()
	defer cl.mutex.Unlock()

	timestamp := time.Now().Format("15:04:05")
	message := fmt.Sprintf(format, args...)
	line := fmt.Sprintf("[%s] %-5s %s\n", timestamp, tag, message)

	if cl.colorOutput && c != nil {
		c.Fprint(cl.writer, line)
		return
	}
	fmt.Fprint(cl.writer, line)
}
