package brainclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// CachedContent is a server-held prefix of input tokens referenced by
// name to reduce cost (spec.md's "cache resource").
type CachedContent struct {
	Name       string    `json:"name"`
	Model      string    `json:"model"`
	TTLSeconds int       `json:"-"`
	ExpireTime time.Time `json:"-"`
}

// wireTTL renders a duration as the brain's decimal-seconds-string TTL
// encoding, e.g. "300s" (spec.md §4.1's numeric semantics).
func wireTTL(d time.Duration) string {
	return fmt.Sprintf("%ds", int(d.Seconds()))
}

// Caches groups the cachedContents CRUD sibling API. Only ttl/expire_time
// are mutable on Update, per spec.md §6.
type Caches struct{ c *Client }

func (c *Client) Caches() *Caches { return &Caches{c: c} }

type CreateCacheRequest struct {
	Model    string        `json:"model"`
	Contents []json.RawMessage `json:"contents,omitempty"`
	TTL      time.Duration `json:"-"`
}

func (r CreateCacheRequest) MarshalJSON() ([]byte, error) {
	type alias struct {
		Model    string            `json:"model"`
		Contents []json.RawMessage `json:"contents,omitempty"`
		TTL      string            `json:"ttl,omitempty"`
	}
	a := alias{Model: r.Model, Contents: r.Contents}
	if r.TTL > 0 {
		a.TTL = wireTTL(r.TTL)
	}
	return json.Marshal(a)
}

func (ch *Caches) Create(ctx context.Context, req CreateCacheRequest) (*CachedContent, error) {
	httpReq, err := ch.c.newRequest(ctx, http.MethodPost, "cachedContents", req)
	if err != nil {
		return nil, err
	}
	return ch.decodeOne(httpReq)
}

func (ch *Caches) Get(ctx context.Context, name string) (*CachedContent, error) {
	httpReq, err := ch.c.newRequest(ctx, http.MethodGet, "cachedContents/"+name, nil)
	if err != nil {
		return nil, err
	}
	return ch.decodeOne(httpReq)
}

func (ch *Caches) List(ctx context.Context) ([]CachedContent, error) {
	httpReq, err := ch.c.newRequest(ctx, http.MethodGet, "cachedContents", nil)
	if err != nil {
		return nil, err
	}
	resp, err := ch.c.do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if err := checkStatus(resp); err != nil {
		return nil, err
	}
	var envelope struct {
		CachedContents []CachedContent `json:"cachedContents"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, &DecodeError{Err: err}
	}
	return envelope.CachedContents, nil
}

// UpdateCacheRequest mutates only ttl or expire_time, per spec.md §6.
type UpdateCacheRequest struct {
	TTL        time.Duration
	ExpireTime time.Time
}

func (r UpdateCacheRequest) MarshalJSON() ([]byte, error) {
	a := map[string]any{}
	if r.TTL > 0 {
		a["ttl"] = wireTTL(r.TTL)
	}
	if !r.ExpireTime.IsZero() {
		a["expire_time"] = r.ExpireTime.Format(time.RFC3339)
	}
	return json.Marshal(a)
}

func (ch *Caches) Update(ctx context.Context, name string, req UpdateCacheRequest) (*CachedContent, error) {
	httpReq, err := ch.c.newRequest(ctx, http.MethodPatch, "cachedContents/"+name, req)
	if err != nil {
		return nil, err
	}
	return ch.decodeOne(httpReq)
}

func (ch *Caches) Delete(ctx context.Context, name string) error {
	httpReq, err := ch.c.newRequest(ctx, http.MethodDelete, "cachedContents/"+name, nil)
	if err != nil {
		return err
	}
	resp, err := ch.c.do(httpReq)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return checkStatus(resp)
}

func (ch *Caches) decodeOne(httpReq *http.Request) (*CachedContent, error) {
	resp, err := ch.c.do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if err := checkStatus(resp); err != nil {
		return nil, err
	}
	var cc CachedContent
	if err := json.NewDecoder(resp.Body).Decode(&cc); err != nil {
		return nil, &DecodeError{Err: err}
	}
	return &cc, nil
}
