package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewWritesServiceField(t *testing.T) {
	var buf bytes.Buffer
	log := newWithWriter(Config{Level: "debug"}, "auth-service", &buf)

	log.Debug().Str("op", "login").Msg("hello")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	require.Equal(t, "auth-service", line["service"])
	require.Equal(t, "login", line["op"])
	require.Equal(t, "debug", line["level"])
}

func TestNewFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	log := newWithWriter(Config{Level: "nonsense"}, "svc", &buf)

	log.Debug().Msg("dropped")
	require.Zero(t, buf.Len())

	log.Info().Msg("kept")
	require.NotZero(t, buf.Len())
}
