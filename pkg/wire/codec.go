package wire

import (
	"bytes"
	"encoding/json"
	"io"
)

func bytesReader(b []byte) io.Reader {
	return bytes.NewReader(b)
}

// RawJSON is a convenience alias used where the caller wants to defer
// decoding (e.g. SSE frame payloads before dispatch by event type).
type RawJSON = json.RawMessage
