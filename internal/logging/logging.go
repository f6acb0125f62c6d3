// Package logging wires log/slog (text or JSON handler, selectable by
// flag) and adds a secret-masking decorator: structured attribute
// values whose key names a credential are replaced, and free-text
// messages are scrubbed of token-shaped substrings.
package logging

import (
	"context"
	"log/slog"
	"os"
	"regexp"
	"strings"
)

const maskedValue = "***masked***"

// sensitiveKeyParts are substrings that, when found in an attribute
// key (case-insensitively), mark its value for masking.
var sensitiveKeyParts = []string{"token", "password", "secret", "key", "auth", "credential"}

// messagePatterns are free-text substitutions applied to log messages
// themselves, in addition to attribute masking.
var messagePatterns = []*regexp.Regexp{
	regexp.MustCompile(`ghp_[A-Za-z0-9]+`),
	regexp.MustCompile(`(?i)(token|password)\s*:\s*\S+`),
}

// Setup builds the default slog logger (text or json handler chosen
// by format), wraps it with secret masking, and installs it as the
// process default.
func Setup(level, format string) *slog.Logger {
	return SetupWithFile(level, format, "")
}

// SetupWithFile is Setup plus an append-only file sink at logPath
// ("" for none). File lines use the "[<ISO-8601 UTC>] [<LEVEL>]
// <message>" format; a file write failure is swallowed, never
// surfaced to the caller.
func SetupWithFile(level, format, logPath string) *slog.Logger {
	logLevel := parseLevel(level)

	var inner slog.Handler
	opts := &slog.HandlerOptions{Level: logLevel, ReplaceAttr: replaceAttr}
	if format == "json" {
		inner = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		inner = slog.NewTextHandler(os.Stdout, opts)
	}

	if logPath != "" {
		inner = multiHandler{inner, NewFileHandler(logPath, logLevel)}
	}

	handler := &MaskingHandler{inner: inner}
	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// replaceAttr masks any attribute whose key names a credential, for
// handlers (like the stdlib ones) that support ReplaceAttr directly.
func replaceAttr(_ []string, a slog.Attr) slog.Attr {
	if isSensitiveKey(a.Key) {
		a.Value = slog.StringValue(maskedValue)
	}
	if a.Key == slog.MessageKey {
		a.Value = slog.StringValue(maskMessage(a.Value.String()))
	}
	return a
}

func isSensitiveKey(key string) bool {
	lower := strings.ToLower(key)
	for _, part := range sensitiveKeyParts {
		if strings.Contains(lower, part) {
			return true
		}
	}
	return false
}

func maskMessage(msg string) string {
	out := msg
	for _, re := range messagePatterns {
		out = re.ReplaceAllStringFunc(out, func(match string) string {
			if strings.HasPrefix(match, "ghp_") {
				return "ghp_" + maskedValue
			}
			if idx := strings.IndexByte(match, ':'); idx >= 0 {
				return match[:idx+1] + " " + maskedValue
			}
			return maskedValue
		})
	}
	return out
}

// MaskingHandler wraps any slog.Handler and masks sensitive attribute
// values and message substrings before delegating. It exists
// separately from ReplaceAttr so that handlers constructed outside
// Setup still get masking applied uniformly.
type MaskingHandler struct {
	inner slog.Handler
}

// NewMaskingHandler wraps an existing handler with secret masking.
func NewMaskingHandler(inner slog.Handler) *MaskingHandler {
	return &MaskingHandler{inner: inner}
}

func (h *MaskingHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *MaskingHandler) Handle(ctx context.Context, record slog.Record) error {
	masked := record.Clone()
	masked.Message = maskMessage(record.Message)

	var attrs []slog.Attr
	record.Attrs(func(a slog.Attr) bool {
		attrs = append(attrs, maskAttr(a))
		return true
	})

	clone := slog.NewRecord(masked.Time, masked.Level, masked.Message, masked.PC)
	clone.AddAttrs(attrs...)
	return h.inner.Handle(ctx, clone)
}

func maskAttr(a slog.Attr) slog.Attr {
	if isSensitiveKey(a.Key) {
		return slog.String(a.Key, maskedValue)
	}
	if a.Value.Kind() == slog.KindString {
		return slog.String(a.Key, maskMessage(a.Value.String()))
	}
	return a
}

func (h *MaskingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	masked := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		masked[i] = maskAttr(a)
	}
	return &MaskingHandler{inner: h.inner.WithAttrs(masked)}
}

func (h *MaskingHandler) WithGroup(name string) slog.Handler {
	return &MaskingHandler{inner: h.inner.WithGroup(name)}
}
