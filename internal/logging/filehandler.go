package logging

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// FileHandler appends one line per record to a log file, formatted as
// "[<ISO-8601 UTC>] [<LEVEL>] <message>", with structured attributes
// trailing as key=value pairs. The file is opened per write so the
// handler tolerates the file being rotated or removed underneath it,
// and a write failure is swallowed: logging must never fail the
// operation being logged.
type FileHandler struct {
	path  string
	level slog.Level

	mu    *sync.Mutex
	attrs []slog.Attr
}

// NewFileHandler returns a FileHandler appending to path.
func NewFileHandler(path string, level slog.Level) *FileHandler {
	return &FileHandler{path: path, level: level, mu: &sync.Mutex{}}
}

func (h *FileHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *FileHandler) Handle(_ context.Context, record slog.Record) error {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] [%s] %s",
		record.Time.UTC().Format(time.RFC3339),
		record.Level.String(),
		record.Message)
	for _, a := range h.attrs {
		fmt.Fprintf(&b, " %s=%v", a.Key, a.Value)
	}
	record.Attrs(func(a slog.Attr) bool {
		fmt.Fprintf(&b, " %s=%v", a.Key, a.Value)
		return true
	})
	b.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	if err := os.MkdirAll(filepath.Dir(h.path), 0o755); err != nil {
		return nil
	}
	f, err := os.OpenFile(h.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600) //nolint:gosec // path is the tool's own log file
	if err != nil {
		return nil
	}
	defer f.Close()
	_, _ = f.WriteString(b.String())
	return nil
}

func (h *FileHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	merged = append(merged, h.attrs...)
	merged = append(merged, attrs...)
	return &FileHandler{path: h.path, level: h.level, mu: h.mu, attrs: merged}
}

func (h *FileHandler) WithGroup(string) slog.Handler { return h }

// multiHandler fans one record out to several handlers.
type multiHandler []slog.Handler

func (m multiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range m {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (m multiHandler) Handle(ctx context.Context, record slog.Record) error {
	for _, h := range m {
		if h.Enabled(ctx, record.Level) {
			_ = h.Handle(ctx, record.Clone())
		}
	}
	return nil
}

func (m multiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make(multiHandler, len(m))
	for i, h := range m {
		out[i] = h.WithAttrs(attrs)
	}
	return out
}

func (m multiHandler) WithGroup(name string) slog.Handler {
	out := make(multiHandler, len(m))
	for i, h := range m {
		out[i] = h.WithGroup(name)
	}
	return out
}
