package logging

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected Level
	}{
		{"debug", LevelDebug},
		{"INFO", LevelInfo},
		{" warn ", LevelWarn},
		{"warning", LevelWarn},
		{"error", LevelError},
		{"loud", LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, ParseLevel(tt.input))
		})
	}
}

func TestLoggerFiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: LevelWarn, Output: &buf})

	log.Debug("hidden")
	log.Info("hidden")
	log.Warn("shown %d", 1)
	log.Error("shown %d", 2)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "WARN")
	assert.Contains(t, lines[0], "shown 1")
	assert.Contains(t, lines[1], "ERROR")
	assert.NotContains(t, buf.String(), "hidden")

	assert.False(t, log.Enabled(LevelInfo))
	log.SetLevel(LevelDebug)
	assert.True(t, log.Enabled(LevelDebug))
}

func TestLoggerLineFormat(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: LevelInfo, Output: &buf, Prefix: "treegrid"})
	log.now = func() time.Time { return time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC) }

	log.WithComponent("converter").WithField("file", "a.csv").Info("wrote %s", "out.json")

	line := buf.String()
	assert.True(t, strings.HasPrefix(line, "2024-05-01T09:30:00.000 "), line)
	assert.Contains(t, line, "treegrid: wrote out.json {component=converter, file=a.csv}\n")
}

func TestWithFieldDoesNotMutateParent(t *testing.T) {
	var buf bytes.Buffer
	parent := New(Config{Output: &buf})
	_ = parent.WithField("k", "v")

	parent.Info("plain")
	assert.NotContains(t, buf.String(), "k=v")
}

func TestNull(t *testing.T) {
	log := Null()
	assert.False(t, log.Enabled(LevelError))
	assert.NotPanics(t, func() { log.WithField("a", 1).Error("nothing") })
}

func TestSetOutput(t *testing.T) {
	var first, second bytes.Buffer
	log := New(Config{Output: &first})
	log.SetOutput(&second)
	log.Info("moved")

	assert.Empty(t, first.String())
	assert.Contains(t, second.String(), "moved")
}
