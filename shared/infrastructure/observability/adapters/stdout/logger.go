package stdout

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"sync"
	"time"

	"mavencrawler/shared/application/ports"
)

// Logger writes one line per entry. Text lines look like
//
//	2024-05-01T12:00:00Z [INFO] sweep finished | component=enqueuer enqueued=3
//
// and JSON lines carry the same data plus timestamp, level and message keys.
type Logger struct {
	out    *syncWriter
	fields map[string]interface{}
	json   bool
}

type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) writeLine(line []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.w.Write(append(line, '\n'))
}

// NewLogger writes to stdout.
func NewLogger(jsonFormat bool) ports.Logger {
	return NewLoggerTo(os.Stdout, jsonFormat)
}

func NewLoggerTo(w io.Writer, jsonFormat bool) *Logger {
	return &Logger{out: &syncWriter{w: w}, json: jsonFormat}
}

func (l *Logger) Info(msg string, fields ...interface{}) {
	l.emit("INFO", msg, fields)
}

func (l *Logger) Error(msg string, fields ...interface{}) {
	l.emit("ERROR", msg, fields)
}

// WithFields shares the writer; the child's fields never reach the parent.
func (l *Logger) WithFields(fields map[string]interface{}) ports.Logger {
	merged := make(map[string]interface{}, len(l.fields)+len(fields))
	for k, v := range l.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	return &Logger{out: l.out, fields: merged, json: l.json}
}

func (l *Logger) emit(level, msg string, kv []interface{}) {
	fields := l.collect(kv)
	ts := time.Now().UTC().Format(time.RFC3339)

	if l.json {
		fields["timestamp"] = ts
		fields["level"] = level
		fields["message"] = msg
		line, err := json.Marshal(fields)
		if err != nil {
			line = []byte(fmt.Sprintf(`{"level":"ERROR","message":"unencodable log entry: %v"}`, err))
		}
		l.out.writeLine(line)
		return
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%s [%s] %s", ts, level, msg)
	if len(fields) > 0 {
		keys := make([]string, 0, len(fields))
		for k := range fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		buf.WriteString(" |")
		for _, k := range keys {
			fmt.Fprintf(&buf, " %s=%v", k, fields[k])
		}
	}
	l.out.writeLine(buf.Bytes())
}

// collect merges the bound fields with key/value pairs. Non-string keys and a
// trailing key without a value are dropped; errors render as their message.
func (l *Logger) collect(kv []interface{}) map[string]interface{} {
	fields := make(map[string]interface{}, len(l.fields)+len(kv)/2)
	for k, v := range l.fields {
		fields[k] = v
	}
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			continue
		}
		if err, ok := kv[i+1].(error); ok && err != nil {
			fields[key] = err.Error()
			continue
		}
		fields[key] = kv[i+1]
	}
	return fields
}
