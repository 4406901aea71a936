package logger

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]zapcore.Level{
		"debug":   zapcore.DebugLevel,
		" WARN ":  zapcore.WarnLevel,
		"warning": zapcore.WarnLevel,
		"error":   zapcore.ErrorLevel,
		"info":    zapcore.InfoLevel,
		"":        zapcore.InfoLevel,
		"verbose": zapcore.InfoLevel,
	}
	for in, want := range cases {
		assert.Equal(t, want, ParseLevel(in), "level %q", in)
	}
}

func TestNew(t *testing.T) {
	for _, format := range []string{"console", "json", ""} {
		l := New(Config{Format: format, Level: "warn", ServiceName: "bee-oauth2"})
		require.NotNil(t, l)
		assert.False(t, l.Core().Enabled(zapcore.InfoLevel), "format %q", format)
		assert.True(t, l.Core().Enabled(zapcore.WarnLevel), "format %q", format)
	}
}

func TestFields(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	l := zap.New(core)

	l.Info("event", Client("google-web"), Provider("Google"), Op("callback"), Step("auth_url_issued"), Err(errors.New("boom")), Addr(":8080"))

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "google-web", fields["client"])
	assert.Equal(t, "Google", fields["provider"])
	assert.Equal(t, "callback", fields["op"])
	assert.Equal(t, "auth_url_issued", fields["step"])
	assert.Equal(t, "boom", fields["error"])
	assert.Equal(t, ":8080", fields["addr"])
}
