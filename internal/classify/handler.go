package classify

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/flowteam/flowctl/internal/model"
)

// Recoverer is implemented by the Recovery Manager. The Error Handler
// depends only on this interface, not the recovery package itself, so
// that recovery (which needs classify's Tag vocabulary) does not close
// an import cycle back onto classify.
type Recoverer interface {
	Recover(ctx context.Context, tag Tag, cause error) (recovered bool, detail string, err error)
}

// Handler is the process-wide error handler: it classifies errors,
// dispatches recoverable ones to a Recoverer, tallies severity
// counters, and owns the shutdown sequence.
type Handler struct {
	logger    *slog.Logger
	recoverer Recoverer
	counters  *Counters

	mu       sync.Mutex
	cleanups []func()
}

// NewHandler constructs a Handler. recoverer may be nil, in which case
// recoverable classifications are reported without an attempt.
func NewHandler(logger *slog.Logger, recoverer Recoverer) *Handler {
	return &Handler{logger: logger, recoverer: recoverer, counters: NewCounters()}
}

// Counters exposes the classification tallies for diagnostics.
func (h *Handler) Counters() *Counters { return h.counters }

// RegisterCleanup adds a callback run once, in registration order,
// during graceful shutdown.
func (h *Handler) RegisterCleanup(fn func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.cleanups = append(h.cleanups, fn)
}

// Outcome is the result of handling one error.
type Outcome struct {
	Classification model.ErrorClassification
	Recovered      bool
	Detail         string
}

// Handle classifies err (using knownTag if non-empty, else
// message-pattern matching), tallies it, and for a recoverable
// classification dispatches to the Recoverer. Critical and unknown
// classifications are never dispatched for recovery; warnings are
// logged and otherwise untouched.
func (h *Handler) Handle(ctx context.Context, knownTag Tag, err error) Outcome {
	var classification model.ErrorClassification
	if knownTag != "" {
		classification = FromTag(knownTag)
	} else {
		classification = FromError(err)
	}
	h.counters.Record(classification)

	switch classification.Severity {
	case model.SeverityWarning:
		if h.logger != nil {
			h.logger.Warn("recoverable-as-warning condition", "type", classification.TypeTag, "error", err)
		}
		return Outcome{Classification: classification}
	case model.SeverityRecoverable:
		if h.recoverer == nil {
			return Outcome{Classification: classification}
		}
		recovered, detail, recErr := h.recoverer.Recover(ctx, knownTag, err)
		if recErr != nil && h.logger != nil {
			h.logger.Error("recovery attempt failed", "type", classification.TypeTag, "error", recErr)
		}
		return Outcome{Classification: classification, Recovered: recovered, Detail: detail}
	default:
		if h.logger != nil {
			h.logger.Error("unrecovered error", "severity", classification.Severity, "type", classification.TypeTag, "error", err)
		}
		return Outcome{Classification: classification}
	}
}

// InstallSignalHandling returns a context canceled on SIGINT/SIGTERM,
// together with a stop function the caller must invoke once the
// signal notification is no longer needed.
func (h *Handler) InstallSignalHandling(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

// Shutdown runs every registered cleanup callback, in registration
// order, tolerating panics from individual callbacks so one broken
// cleanup cannot block the rest.
func (h *Handler) Shutdown() {
	h.mu.Lock()
	cleanups := make([]func(), len(h.cleanups))
	copy(cleanups, h.cleanups)
	h.mu.Unlock()

	for _, fn := range cleanups {
		h.runCleanup(fn)
	}
}

func (h *Handler) runCleanup(fn func()) {
	defer func() {
		if r := recover(); r != nil && h.logger != nil {
			h.logger.Error("cleanup callback panicked", "recover", r)
		}
	}()
	fn()
}
