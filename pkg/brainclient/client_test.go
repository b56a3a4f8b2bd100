package brainclient

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aravindhsampath/chitti/pkg/wire"
)

func TestClientSendAndFoldNonStreaming(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1beta/models/gemini-test:generateContent", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"interaction_id":"i1","parts":[{"type":"text","text":"hi"}],"finish_reason":"STOP"}`)
	}))
	defer srv.Close()

	c := New(srv.URL, "secret")
	req := wire.NewRequest("gemini-test", wire.NewTextInput("hello"))
	req.Stream = false

	result, err := c.SendAndFold(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "i1", result.InteractionID)
}

func TestClientSendStreaming(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1beta/models/gemini-test:streamGenerateContent", r.URL.Path)
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "event: start\ndata: {\"interaction_id\":\"i1\"}\n\n")
		fmt.Fprint(w, "event: content_delta\ndata: {\"part_index\":0,\"delta\":\"hi\"}\n\n")
		fmt.Fprint(w, "event: complete\ndata: {\"interaction_id\":\"i1\",\"parts\":[{\"type\":\"text\",\"text\":\"hi\"}],\"finish_reason\":\"STOP\"}\n\n")
	}))
	defer srv.Close()

	c := New(srv.URL, "secret")
	req := wire.NewRequest("gemini-test", wire.NewTextInput("hello"))

	result, err := c.SendAndFold(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "i1", result.InteractionID)
}

func TestClientSendTranslatesRateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "7")
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, `{}`)
	}))
	defer srv.Close()

	c := New(srv.URL, "secret")
	req := wire.NewRequest("gemini-test", wire.NewTextInput("hello"))
	req.Stream = false

	_, err := c.SendAndFold(context.Background(), req)
	require.Error(t, err)
	var rl *RateLimitedError
	require.ErrorAs(t, err, &rl)
	assert.Equal(t, 7, rl.RetryAfterSeconds)
}

func TestClientSendTranslatesServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprint(w, "boom")
	}))
	defer srv.Close()

	c := New(srv.URL, "secret")
	req := wire.NewRequest("gemini-test", wire.NewTextInput("hello"))
	req.Stream = false

	_, err := c.SendAndFold(context.Background(), req)
	require.Error(t, err)
	var statusErr *HTTPStatusError
	require.ErrorAs(t, err, &statusErr)
	assert.True(t, statusErr.IsRetryable())
}

func TestClientSendRejectsInvalidRequest(t *testing.T) {
	c := New("http://example.invalid", "secret")
	req := wire.NewRequest("gemini-test", wire.NewTextInput("hello"))
	req.Agent = "also-set"

	_, err := c.Send(context.Background(), req)
	assert.Error(t, err)
}

func TestClientSendTranslatesCancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	c := New(srv.URL, "secret")
	req := wire.NewRequest("gemini-test", wire.NewTextInput("hello"))
	req.Stream = false

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Send(ctx, req)
	require.Error(t, err)
	var cancelled *CancelledError
	assert.ErrorAs(t, err, &cancelled)
}

func TestClientStreamNextTranslatesMidStreamCancellation(t *testing.T) {
	startSent := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "event: start\ndata: {\"interaction_id\":\"i1\"}\n\n")
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
		close(startSent)
		<-r.Context().Done()
	}))
	defer srv.Close()

	c := New(srv.URL, "secret")
	req := wire.NewRequest("gemini-test", wire.NewTextInput("hello"))

	ctx, cancel := context.WithCancel(context.Background())
	stream, err := c.Send(ctx, req)
	require.NoError(t, err)
	defer stream.Close()

	_, err = stream.Next()
	require.NoError(t, err)

	<-startSent
	cancel()

	_, err = stream.Next()
	require.Error(t, err)
	var cancelled *CancelledError
	assert.ErrorAs(t, err, &cancelled)
}
