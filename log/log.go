// Package log defines the logging interface accepted throughout the
// driver. It deliberately does not depend on any concrete logging
// library: callers that already have one (zap, zerolog, logrus, the
// stdlib) can adapt it with a few lines, and the driver never forces a
// dependency on consumers who don't want one.
package log

import (
	"fmt"
	"log"
	"sync/atomic"

	"github.com/google/uuid"
)

// Logger receives driver log events. Implementations must be safe for
// concurrent use: multiple connections and pool slots log independently.
type Logger interface {
	Error(name string, id string, err error)
	Warnf(name string, id string, format string, args ...any)
	Infof(name string, id string, format string, args ...any)
	Debugf(name string, id string, format string, args ...any)
}

// NewID returns a unique identifier (a random UUID string) for attaching to log lines
// from one connection or pool slot for its lifetime.
func NewID() string {
	return uuid.NewString()
}

// Void discards everything logged to it; the default when no Logger is
// configured.
type Void struct{}

func (Void) Error(string, string, error)              {}
func (Void) Warnf(string, string, string, ...any)      {}
func (Void) Infof(string, string, string, ...any)      {}
func (Void) Debugf(string, string, string, ...any)     {}

// Console writes to the standard library logger, gated by Level. It is a
// convenience implementation for CLI tools and local debugging, not
// intended for production services.
type Console struct {
	Level  Level
	logger *log.Logger
}

type Level int32

const (
	LevelError Level = iota
	LevelWarn
	LevelInfo
	LevelDebug
)

// NewConsole builds a Console logger writing through the stdlib logger.
func NewConsole(level Level) *Console {
	return &Console{Level: level, logger: log.Default()}
}

var seq int64

func (c *Console) line(level Level, tag, name, id, msg string) {
	if Level(atomic.LoadInt32((*int32)(&c.Level))) < level {
		return
	}
	c.logger.Printf("[%s] %s %s: %s", tag, name, id, msg)
}

func (c *Console) Error(name, id string, err error) {
	c.line(LevelError, "ERROR", name, id, err.Error())
}

func (c *Console) Warnf(name, id, format string, args ...any) {
	c.line(LevelWarn, "WARN", name, id, fmt.Sprintf(format, args...))
}

func (c *Console) Infof(name, id, format string, args ...any) {
	c.line(LevelInfo, "INFO", name, id, fmt.Sprintf(format, args...))
}

func (c *Console) Debugf(name, id, format string, args ...any) {
	c.line(LevelDebug, "DEBUG", name, id, fmt.Sprintf(format, args...))
}
