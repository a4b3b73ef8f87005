package logger

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestToLevel(t *testing.T) {
	assert.Equal(t, zerolog.DebugLevel, toLevel("debug"))
	assert.Equal(t, zerolog.InfoLevel, toLevel("info"))
	assert.Equal(t, zerolog.WarnLevel, toLevel("warn"))
	assert.Equal(t, zerolog.ErrorLevel, toLevel("ERROR"))
	assert.Equal(t, zerolog.InfoLevel, toLevel(" info "))
	assert.Equal(t, zerolog.InfoLevel, toLevel("garbage"))
	assert.Equal(t, zerolog.InfoLevel, toLevel(""))
}

func TestNewWithWriter(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter("debug", &buf)

	log.Info().Str("component", "ledger").Msg("hello")

	out := buf.String()
	assert.Contains(t, out, `"component":"ledger"`)
	assert.Contains(t, out, `"message":"hello"`)
}

func TestNewWithWriter_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter("error", &buf)

	log.Info().Msg("should not appear")
	assert.Empty(t, buf.String())

	log.Error().Msg("should appear")
	assert.Contains(t, buf.String(), "should appear")
}
