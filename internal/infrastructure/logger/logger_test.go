package logger

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/janhq/jan-chat-client/internal/config"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]zerolog.Level{
		"":        zerolog.InfoLevel,
		"DEBUG":   zerolog.DebugLevel,
		"warn":    zerolog.WarnLevel,
		"verbose": zerolog.InfoLevel,
	}
	for raw, want := range tests {
		assert.Equal(t, want, parseLevel(raw), raw)
	}
}

func TestNewWithWriterAddsServiceFields(t *testing.T) {
	var buf bytes.Buffer
	cfg := &config.Config{ServiceName: "jan-chat-client", Environment: "production", LogLevel: "info"}

	log := NewWithWriter(cfg, &buf)
	log.Debug().Msg("hidden")
	log.Info().Msg("visible")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "visible")
	assert.Contains(t, out, "service=jan-chat-client")
	assert.Contains(t, out, "environment=production")
}
