package brainclient

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/aravindhsampath/chitti/pkg/wire"
)

// BatchState mirrors the long-running-operation lifecycle of a batch
// generation job (spec.md §6).
type BatchState string

const (
	BatchStatePending   BatchState = "PENDING"
	BatchStateRunning   BatchState = "RUNNING"
	BatchStateSucceeded BatchState = "SUCCEEDED"
	BatchStateFailed    BatchState = "FAILED"
	BatchStateCancelled BatchState = "CANCELLED"
)

// BatchError is the operation-level failure payload, distinct from the
// per-client brainclient error taxonomy: it travels inside a 2xx envelope.
type BatchError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Batch is the {done, result|error} long-running-operation shape.
type Batch struct {
	Name    string                  `json:"name"`
	State   BatchState              `json:"metadata_state"`
	Done    bool                    `json:"done"`
	Results []wire.InteractionResult `json:"response,omitempty"`
	Error   *BatchError             `json:"error,omitempty"`
}

// Batches groups the batchGenerateContent / operations sibling API
// (spec.md §4.2, §6).
type Batches struct{ c *Client }

func (c *Client) Batches() *Batches { return &Batches{c: c} }

type CreateBatchRequest struct {
	Model    string                    `json:"-"`
	Requests []wire.InteractionRequest `json:"requests"`
}

func (b *Batches) Create(ctx context.Context, req CreateBatchRequest) (*Batch, error) {
	for i, r := range req.Requests {
		if err := r.Validate(); err != nil {
			return nil, err
		}
		req.Requests[i] = r
	}
	httpReq, err := b.c.newRequest(ctx, http.MethodPost, modelPath(req.Model, "batchGenerateContent"), req)
	if err != nil {
		return nil, err
	}
	return b.decodeOne(httpReq)
}

func (b *Batches) Get(ctx context.Context, name string) (*Batch, error) {
	httpReq, err := b.c.newRequest(ctx, http.MethodGet, "batches/"+name, nil)
	if err != nil {
		return nil, err
	}
	return b.decodeOne(httpReq)
}

func (b *Batches) List(ctx context.Context) ([]Batch, error) {
	httpReq, err := b.c.newRequest(ctx, http.MethodGet, "batches", nil)
	if err != nil {
		return nil, err
	}
	resp, err := b.c.do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if err := checkStatus(resp); err != nil {
		return nil, err
	}
	var envelope struct {
		Batches []Batch `json:"batches"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, &DecodeError{Err: err}
	}
	return envelope.Batches, nil
}

func (b *Batches) Cancel(ctx context.Context, name string) error {
	httpReq, err := b.c.newRequest(ctx, http.MethodPost, "batches/"+name+":cancel", nil)
	if err != nil {
		return err
	}
	resp, err := b.c.do(httpReq)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return checkStatus(resp)
}

func (b *Batches) Delete(ctx context.Context, name string) error {
	httpReq, err := b.c.newRequest(ctx, http.MethodDelete, "batches/"+name, nil)
	if err != nil {
		return err
	}
	resp, err := b.c.do(httpReq)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return checkStatus(resp)
}

func (b *Batches) decodeOne(httpReq *http.Request) (*Batch, error) {
	resp, err := b.c.do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if err := checkStatus(resp); err != nil {
		return nil, err
	}
	var batch Batch
	if err := json.NewDecoder(resp.Body).Decode(&batch); err != nil {
		return nil, &DecodeError{Err: err}
	}
	return &batch, nil
}
