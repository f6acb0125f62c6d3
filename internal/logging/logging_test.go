package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBufferLogger() (*slog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	handler := NewMaskingHandler(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return slog.New(handler), &buf
}

func TestMaskingHandlerMasksTokenInMessage(t *testing.T) {
	logger, buf := newBufferLogger()

	logger.Info("authenticated with ghp_" + strings.Repeat("X", 36))

	out := buf.String()
	assert.NotContains(t, out, "ghp_XXXX")
	assert.Contains(t, out, "ghp_***masked***")
}

func TestMaskingHandlerMasksKeyValuePatterns(t *testing.T) {
	tests := []struct {
		name    string
		message string
	}{
		{"token colon", "request failed, token: abc123secret"},
		{"password colon", "login with password: hunter2"},
		{"upper case key", "sent Token: abc123"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, buf := newBufferLogger()
			logger.Info(tt.message)

			out := buf.String()
			assert.Contains(t, out, "***masked***")
			assert.NotContains(t, out, "abc123")
			assert.NotContains(t, out, "hunter2")
		})
	}
}

func TestMaskingHandlerMasksSensitiveAttrKeys(t *testing.T) {
	keys := []string{"github_token", "Password", "api_secret", "ssh_key", "auth_header", "user_credential"}

	for _, key := range keys {
		t.Run(key, func(t *testing.T) {
			logger, buf := newBufferLogger()
			logger.Info("config loaded", key, "super-sensitive-value")

			out := buf.String()
			assert.NotContains(t, out, "super-sensitive-value")
			assert.Contains(t, out, "***masked***")
		})
	}
}

func TestMaskingHandlerLeavesOrdinaryAttrsAlone(t *testing.T) {
	logger, buf := newBufferLogger()
	logger.Info("branch created", "branch", "feature/login", "files", "3")

	out := buf.String()
	assert.Contains(t, out, "feature/login")
	assert.NotContains(t, out, "***masked***")
}

func TestMaskingHandlerWithAttrs(t *testing.T) {
	logger, buf := newBufferLogger()
	logger.With("token", "ghp_secret").Info("pre-bound attr")

	out := buf.String()
	assert.NotContains(t, out, "ghp_secret")
	assert.Contains(t, out, "***masked***")
}

func TestSetupReturnsWorkingLogger(t *testing.T) {
	logger := Setup("debug", "text")
	require.NotNil(t, logger)
	assert.True(t, logger.Enabled(context.Background(), slog.LevelDebug))

	logger = Setup("error", "json")
	require.NotNil(t, logger)
	assert.False(t, logger.Enabled(context.Background(), slog.LevelInfo))
}
