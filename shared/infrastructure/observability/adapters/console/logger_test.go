package console

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConsoleLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, "info").WithFields(map[string]interface{}{"root": "https://repo1.maven.org/maven2"})

	logger.Info("catalog crawled", "archetypes", 12)

	out := buf.String()
	assert.Contains(t, out, "catalog crawled")
	assert.Contains(t, out, "archetypes=12")
	assert.Contains(t, out, "root=https://repo1.maven.org/maven2")
}

func TestConsoleLoggerBadLevel(t *testing.T) {
	var buf bytes.Buffer
	NewLogger(&buf, "loud").Info("still logs")
	assert.Contains(t, buf.String(), "still logs")
}
