package brainclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/aravindhsampath/chitti/pkg/wire"
)

// ErrStreamDone is returned by InteractionStream.Next once the underlying
// connection has been fully drained with no further frames available.
var ErrStreamDone = errors.New("brainclient: stream done")

// InteractionStream is a lazy, single-pass, finite sequence of
// InteractionEvents (spec.md §4.2).
type InteractionStream interface {
	// Next blocks for the next event. It returns ErrStreamDone when the
	// stream is exhausted, *CancelledError if the client's cancel signal
	// fired, or another *taxonomy error on transport/decode failure.
	Next() (wire.InteractionEvent, error)
	// Close releases the underlying connection. Safe to call more than
	// once and safe to call after Next has returned a terminal error.
	Close() error
}

// Client is a single-turn Brain Client: stateless across calls, all
// conversational state rides on previous_interaction_id (spec.md §4.2).
type Client struct {
	baseURL    string
	credential string
	httpClient *http.Client
	timeout    time.Duration
}

// Option configures a Client at construction time.
type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// New constructs a Client. Base URL, credential, and a default timeout are
// fixed here, per spec.md §4.2 — the client never reads the process
// environment directly; callers resolve the credential from configuration.
// The timeout (WithTimeout, default 60s) is only recorded on the Client:
// Send and the sibling APIs do not apply it, so a request is bounded only
// by its context and by the http.Client in use.
func New(baseURL, credential string, opts ...Option) *Client {
	c := &Client{
		baseURL:    baseURL,
		credential: credential,
		httpClient: &http.Client{},
		timeout:    60 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Send dispatches one InteractionRequest. When req.Stream is true, the
// returned InteractionStream must be drained (and Closed); when false,
// the non-streaming path is used and the decoded response is returned as
// a stream that yields its single Complete event, so both paths fold the
// same way via FoldStream (or SendAndFold).
func (c *Client) Send(ctx context.Context, req wire.InteractionRequest) (InteractionStream, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	path := "generateContent"
	if req.Stream {
		path = "streamGenerateContent"
	}

	httpReq, err := c.newRequest(ctx, http.MethodPost, modelPath(req.Model, path), req)
	if err != nil {
		return nil, err
	}
	if req.Stream {
		httpReq.Header.Set("Accept", "text/event-stream")
	}

	resp, err := c.do(httpReq)
	if err != nil {
		return nil, err
	}

	if err := checkStatus(resp); err != nil {
		resp.Body.Close()
		return nil, err
	}

	if !req.Stream {
		defer resp.Body.Close()
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, &TransportError{Op: "read non-streaming body", Err: err}
		}
		ev, err := wire.DecodeEvent("complete", body)
		if err != nil {
			return nil, &DecodeError{Err: err}
		}
		return &singleEventStream{event: ev}, nil
	}

	return &httpInteractionStream{
		body:    resp.Body,
		decoder: newSSEDecoder(resp.Body),
		ctx:     ctx,
	}, nil
}

// SendAndFold is a convenience wrapper: send, then fold the stream (or
// pass through the non-streaming result) into an InteractionResult.
func (c *Client) SendAndFold(ctx context.Context, req wire.InteractionRequest) (*wire.InteractionResult, error) {
	stream, err := c.Send(ctx, req)
	if err != nil {
		return nil, err
	}
	defer stream.Close()
	return FoldStream(stream)
}

func (c *Client) newRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return nil, &DecodeError{Err: err}
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+"/v1beta/"+path, &buf)
	if err != nil {
		return nil, &TransportError{Op: "build request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.credential)
	return req, nil
}

func (c *Client) do(req *http.Request) (*http.Response, error) {
	hc := c.httpClient
	resp, err := hc.Do(req)
	if err != nil {
		if errors.Is(req.Context().Err(), context.Canceled) {
			return nil, &CancelledError{}
		}
		return nil, &TransportError{Op: "round trip", Err: err}
	}
	return resp, nil
}

func checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	if resp.StatusCode == http.StatusTooManyRequests {
		retryAfter := parseRetryAfter(resp.Header.Get("Retry-After"), body)
		return &RateLimitedError{RetryAfterSeconds: retryAfter}
	}
	return &HTTPStatusError{Code: resp.StatusCode, Body: string(body)}
}

func parseRetryAfter(header string, body []byte) int {
	if header != "" {
		if secs, err := strconv.Atoi(header); err == nil {
			return secs
		}
	}
	var hint struct {
		RetryAfter int `json:"retry_after"`
	}
	if json.Unmarshal(body, &hint) == nil && hint.RetryAfter > 0 {
		return hint.RetryAfter
	}
	return 1
}

func modelPath(model, op string) string {
	return fmt.Sprintf("models/%s:%s", model, op)
}

// --- stream implementations ----------------------------------------------

// httpInteractionStream decodes SSE frames from a live HTTP response body.
type httpInteractionStream struct {
	body    io.ReadCloser
	decoder *sseDecoder
	ctx     context.Context
	closed  bool
}

func (s *httpInteractionStream) Next() (wire.InteractionEvent, error) {
	if s.closed {
		return nil, ErrStreamDone
	}
	if err := s.ctx.Err(); err != nil {
		return nil, &CancelledError{}
	}

	frame, err := s.decoder.Next()
	if err != nil {
		if err == io.EOF {
			return nil, ErrStreamDone
		}
		if errors.Is(err, context.Canceled) || errors.Is(s.ctx.Err(), context.Canceled) {
			return nil, &CancelledError{}
		}
		return nil, &TransportError{Op: "read sse frame", Err: err}
	}

	ev, err := wire.DecodeEvent(frame.Event, frame.Data)
	if err != nil {
		return nil, &DecodeError{Err: err}
	}
	return ev, nil
}

func (s *httpInteractionStream) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.body.Close()
}

// singleEventStream adapts a single decoded event (the non-streaming
// generateContent response) to the InteractionStream interface so callers
// can treat both paths uniformly via FoldStream.
type singleEventStream struct {
	event   wire.InteractionEvent
	emitted bool
}

func (s *singleEventStream) Next() (wire.InteractionEvent, error) {
	if s.emitted {
		return nil, ErrStreamDone
	}
	s.emitted = true
	return s.event, nil
}

func (s *singleEventStream) Close() error { return nil }
