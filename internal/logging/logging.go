// Package logging provides the small leveled wrapper the replica process
// uses for its own diagnostics: a verbosity gate driven by the LOG_LEVEL
// environment variable, wrapped around plain fmt.Printf/log.Printf-style
// diagnostic lines (see DESIGN.md for why no third-party logging library
// is used here).
package logging

import (
	"fmt"
	"log"
	"os"
	"strings"
)

// Level is a logging verbosity level.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func parseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// Logger prefixes every line with the replica ID and gates on level.
type Logger struct {
	prefix string
	level  Level
	out    *log.Logger
}

// New returns a Logger that reads its level from LOG_LEVEL once at
// construction time.
func New(prefix string) *Logger {
	return &Logger{
		prefix: prefix,
		level:  parseLevel(os.Getenv("LOG_LEVEL")),
		out:    log.New(os.Stderr, "", log.LstdFlags),
	}
}

func (l *Logger) log(level Level, tag, format string, args ...interface{}) {
	if l == nil || level < l.level {
		return
	}
	msg := fmt.Sprintf(format, args...)
	l.out.Printf("[%s] %s %s", l.prefix, tag, msg)
}

func (l *Logger) Debugf(format string, args ...interface{}) { l.log(LevelDebug, "DEBUG", format, args...) }
func (l *Logger) Infof(format string, args ...interface{})  { l.log(LevelInfo, "INFO", format, args...) }
func (l *Logger) Warnf(format string, args ...interface{})  { l.log(LevelWarn, "WARN", format, args...) }
func (l *Logger) Errorf(format string, args ...interface{}) { l.log(LevelError, "ERROR", format, args...) }
