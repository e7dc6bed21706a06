// Package console renders ports.Logger entries for humans, used by the
// operator CLI.
package console

import (
	"io"

	"github.com/charmbracelet/log"

	"mavencrawler/shared/application/ports"
)

type Logger struct {
	l *log.Logger
}

func NewLogger(w io.Writer, level string) *Logger {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		lvl = log.InfoLevel
	}
	return &Logger{l: log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           lvl,
	})}
}

func (c *Logger) Info(msg string, fields ...interface{}) {
	c.l.Info(msg, fields...)
}

func (c *Logger) Error(msg string, fields ...interface{}) {
	c.l.Error(msg, fields...)
}

func (c *Logger) WithFields(fields map[string]interface{}) ports.Logger {
	kv := make([]interface{}, 0, len(fields)*2)
	for k, v := range fields {
		kv = append(kv, k, v)
	}
	return &Logger{l: c.l.With(kv...)}
}
