package logging

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{" INFO ", zerolog.InfoLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"off", zerolog.Disabled},
		{"", zerolog.WarnLevel},
		{"verbose", zerolog.WarnLevel},
	}

	for _, tt := range tests {
		if got := ParseLevel(tt.input); got != tt.expected {
			t.Errorf("ParseLevel(%q) = %v, expected %v", tt.input, got, tt.expected)
		}
	}
}

func TestNewJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := New("info", &buf, true)

	logger.Debug().Msg("hidden")
	logger.Info().Str("table", "Orders").Msg("imported")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, `"table":"Orders"`)
	assert.Contains(t, out, `"service":"go-sqladvisor"`)
}

func TestNewConsole(t *testing.T) {
	var buf bytes.Buffer
	logger := New("debug", &buf, false)

	logger.Debug().Int("tables", 2).Msg("extracted")

	out := buf.String()
	assert.Contains(t, out, "extracted")
	assert.Contains(t, out, "tables=2")
	assert.Contains(t, out, "logging_test.go")
}
