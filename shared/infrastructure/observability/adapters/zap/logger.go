// Package zap adapts go.uber.org/zap to ports.Logger.
package zap

import (
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"mavencrawler/shared/application/ports"
)

type Options struct {
	Level string // "debug", "info", "warn", "error"
	JSON  bool
	Out   io.Writer // default os.Stdout
}

type Logger struct {
	sugar *zap.SugaredLogger
}

func NewLogger(opts Options) *Logger {
	out := opts.Out
	if out == nil {
		out = os.Stdout
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "timestamp"
	encCfg.MessageKey = "message"
	encCfg.EncodeTime = zapcore.RFC3339TimeEncoder
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder

	var enc zapcore.Encoder
	if opts.JSON {
		enc = zapcore.NewJSONEncoder(encCfg)
	} else {
		enc = zapcore.NewConsoleEncoder(encCfg)
	}

	core := zapcore.NewCore(enc, zapcore.AddSync(out), parseLevel(opts.Level))
	return &Logger{sugar: zap.New(core).Sugar()}
}

func (l *Logger) Info(msg string, fields ...interface{}) {
	l.sugar.Infow(msg, normalize(fields)...)
}

func (l *Logger) Error(msg string, fields ...interface{}) {
	l.sugar.Errorw(msg, normalize(fields)...)
}

func (l *Logger) WithFields(fields map[string]interface{}) ports.Logger {
	kv := make([]interface{}, 0, len(fields)*2)
	for k, v := range fields {
		kv = append(kv, k, v)
	}
	return &Logger{sugar: l.sugar.With(kv...)}
}

// Sync flushes buffered entries.
func (l *Logger) Sync() error {
	return l.sugar.Sync()
}

// normalize renders error values as strings and drops a trailing key with no
// value, which the sugared logger would otherwise report as a DPANIC.
func normalize(fields []interface{}) []interface{} {
	n := len(fields) - len(fields)%2
	out := make([]interface{}, 0, n)
	for i := 0; i < n; i += 2 {
		key, ok := fields[i].(string)
		if !ok {
			continue
		}
		if err, ok := fields[i+1].(error); ok && err != nil {
			out = append(out, key, err.Error())
			continue
		}
		out = append(out, key, fields[i+1])
	}
	return out
}

func parseLevel(s string) zapcore.Level {
	switch s {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}
