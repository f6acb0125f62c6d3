// Package notify implements the team-notification fanout the
// Start/Finish/Team phases call after a mutating step, behind one
// Transport interface: Slack via its Web API client, Discord via a
// plain webhook POST.
package notify

import (
	"context"
	"fmt"
)

// Message is a notification to post to a team channel.
type Message struct {
	Title string
	Body  string
	URL   string
}

// Transport sends one Message to one destination.
type Transport interface {
	Send(ctx context.Context, msg Message) error
}

// Fanout sends msg to every configured transport, collecting errors
// rather than stopping at the first failure. A notification failure
// must never abort the phase that triggered it.
type Fanout struct {
	transports []Transport
}

// NewFanout builds a Fanout over the given transports, skipping nil
// entries (the caller's configured-but-absent transports).
func NewFanout(transports ...Transport) *Fanout {
	f := &Fanout{}
	for _, t := range transports {
		if t != nil {
			f.transports = append(f.transports, t)
		}
	}
	return f
}

// Send dispatches msg to every transport and returns a joined error
// describing any that failed; a nil return means every transport
// (including zero transports) succeeded.
func (f *Fanout) Send(ctx context.Context, msg Message) error {
	var errs []error
	for _, t := range f.transports {
		if err := t.Send(ctx, msg); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%d of %d notification transport(s) failed: %w", len(errs), len(f.transports), errs[0])
}
