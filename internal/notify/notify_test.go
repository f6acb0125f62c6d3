package notify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTransport struct {
	sent []Message
	err  error
}

func (f *fakeTransport) Send(_ context.Context, msg Message) error {
	f.sent = append(f.sent, msg)
	return f.err
}

func TestFanoutDeliversToEveryTransport(t *testing.T) {
	a := &fakeTransport{}
	b := &fakeTransport{}
	fanout := NewFanout(a, b)

	msg := Message{Title: "branch ready", URL: "https://example.com/pr/1"}
	require.NoError(t, fanout.Send(context.Background(), msg))

	require.Len(t, a.sent, 1)
	require.Len(t, b.sent, 1)
	assert.Equal(t, msg, a.sent[0])
}

func TestFanoutCollectsFailuresWithoutStopping(t *testing.T) {
	failing := &fakeTransport{err: errors.New("webhook down")}
	working := &fakeTransport{}
	fanout := NewFanout(failing, working)

	err := fanout.Send(context.Background(), Message{Title: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 2")
	assert.Len(t, working.sent, 1, "a failing transport must not block the others")
}

func TestFanoutSkipsNilTransports(t *testing.T) {
	working := &fakeTransport{}
	fanout := NewFanout(nil, working, nil)

	require.NoError(t, fanout.Send(context.Background(), Message{Title: "x"}))
	assert.Len(t, working.sent, 1)
}

func TestFanoutWithNoTransportsSucceeds(t *testing.T) {
	fanout := NewFanout()
	assert.NoError(t, fanout.Send(context.Background(), Message{Title: "x"}))
}

func TestDiscordTransportPostsEmbed(t *testing.T) {
	var received discordPayload
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(body, &received))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	transport := NewDiscordTransport(server.URL)
	msg := Message{Title: "feature/x is ready for review", Body: "details", URL: "https://example.com/pr/9"}
	require.NoError(t, transport.Send(context.Background(), msg))

	require.Len(t, received.Embeds, 1)
	assert.Equal(t, msg.Title, received.Embeds[0].Title)
	assert.Equal(t, msg.Body, received.Embeds[0].Description)
	assert.Equal(t, msg.URL, received.Embeds[0].URL)
}

func TestDiscordTransportSurfacesHTTPFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	transport := NewDiscordTransport(server.URL)
	err := transport.Send(context.Background(), Message{Title: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "400")
}
