package brainclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// FileState tracks the server-side processing state of an uploaded file.
type FileState string

const (
	FileStateProcessing FileState = "PROCESSING"
	FileStateActive      FileState = "ACTIVE"
	FileStateFailed      FileState = "FAILED"
)

// FileHandle is the server's record of an uploaded binary payload.
type FileHandle struct {
	Name     string    `json:"name"`
	URI      string    `json:"uri"`
	MIMEType string    `json:"mime_type"`
	State    FileState `json:"state"`
}

// Files groups the resumable-upload sibling API (spec.md §4.2, §6).
type Files struct{ c *Client }

func (c *Client) Files() *Files { return &Files{c: c} }

// Upload performs the three-step resumable upload protocol: start, upload,
// finalize.
func (f *Files) Upload(ctx context.Context, data []byte, mime, displayName string) (*FileHandle, error) {
	startReq, err := f.c.newRequest(ctx, http.MethodPost, "files", map[string]any{
		"file": map[string]any{"display_name": displayName, "mime_type": mime},
	})
	if err != nil {
		return nil, err
	}
	startReq.Header.Set("X-Goog-Upload-Protocol", "resumable")
	startReq.Header.Set("X-Goog-Upload-Command", "start")
	startReq.Header.Set("X-Goog-Upload-Header-Content-Length", fmt.Sprintf("%d", len(data)))
	startReq.Header.Set("X-Goog-Upload-Header-Content-Type", mime)

	startResp, err := f.c.do(startReq)
	if err != nil {
		return nil, err
	}
	if err := checkStatus(startResp); err != nil {
		startResp.Body.Close()
		return nil, err
	}
	uploadURL := startResp.Header.Get("X-Goog-Upload-URL")
	startResp.Body.Close()
	if uploadURL == "" {
		return nil, &ProtocolMismatchError{Reason: "resumable upload start response missing X-Goog-Upload-URL"}
	}

	uploadReq, err := http.NewRequestWithContext(ctx, http.MethodPost, uploadURL, bytes.NewReader(data))
	if err != nil {
		return nil, &TransportError{Op: "build upload request", Err: err}
	}
	uploadReq.Header.Set("X-Goog-Upload-Offset", "0")
	uploadReq.Header.Set("X-Goog-Upload-Command", "upload, finalize")

	uploadResp, err := f.c.do(uploadReq)
	if err != nil {
		return nil, err
	}
	defer uploadResp.Body.Close()
	if err := checkStatus(uploadResp); err != nil {
		return nil, err
	}

	var envelope struct {
		File FileHandle `json:"file"`
	}
	if err := json.NewDecoder(uploadResp.Body).Decode(&envelope); err != nil {
		return nil, &DecodeError{Err: err}
	}
	return &envelope.File, nil
}

// Get polls the current state of a previously uploaded file.
func (f *Files) Get(ctx context.Context, name string) (*FileHandle, error) {
	req, err := f.c.newRequest(ctx, http.MethodGet, "files/"+name, nil)
	if err != nil {
		return nil, err
	}
	resp, err := f.c.do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if err := checkStatus(resp); err != nil {
		return nil, err
	}
	var handle FileHandle
	if err := json.NewDecoder(resp.Body).Decode(&handle); err != nil {
		return nil, &DecodeError{Err: err}
	}
	return &handle, nil
}

// WaitUntilActive polls Get until the file reaches FileStateActive,
// FileStateFailed, or ctx is done, sleeping poll between attempts.
func (f *Files) WaitUntilActive(ctx context.Context, name string, poll time.Duration) (*FileHandle, error) {
	for {
		handle, err := f.Get(ctx, name)
		if err != nil {
			return nil, err
		}
		if handle.State == FileStateActive || handle.State == FileStateFailed {
			return handle, nil
		}
		select {
		case <-ctx.Done():
			return nil, &CancelledError{}
		case <-time.After(poll):
		}
	}
}
