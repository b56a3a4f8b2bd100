package brainclient

import (
	"bufio"
	"bytes"
	"io"
	"strings"
)

// sseFrame is one decoded server-sent event: the optional `event:` name
// plus the joined `data:` payload. Lines beginning `:` (keep-alive
// comments) and any other field are ignored, per spec.md §4.2.
type sseFrame struct {
	Event string
	Data  []byte
}

// sseDecoder splits a byte stream into SSE frames. It is a small state
// machine over a bufio.Reader so that a frame boundary arriving split
// across network reads is never assumed away: ReadString buffers at the
// byte level internally and we accumulate fields until a blank line.
type sseDecoder struct {
	r *bufio.Reader
}

func newSSEDecoder(r io.Reader) *sseDecoder {
	return &sseDecoder{r: bufio.NewReader(r)}
}

// Next reads and returns the next complete frame, or io.EOF when the
// stream ends without a trailing frame.
func (d *sseDecoder) Next() (*sseFrame, error) {
	var (
		event   string
		data    bytes.Buffer
		sawData bool
	)

	for {
		line, err := d.r.ReadString('\n')
		if len(line) == 0 && err != nil {
			return nil, err
		}

		trimmed := strings.TrimRight(line, "\r\n")

		if trimmed == "" {
			if sawData || event != "" {
				return &sseFrame{Event: event, Data: data.Bytes()}, nil
			}
			if err != nil {
				return nil, err
			}
			continue
		}

		switch {
		case strings.HasPrefix(trimmed, ":"):
			// Keep-alive comment, ignored.
		case strings.HasPrefix(trimmed, "data:"):
			if sawData {
				data.WriteByte('\n')
			}
			data.WriteString(strings.TrimPrefix(strings.TrimPrefix(trimmed, "data:"), " "))
			sawData = true
		case strings.HasPrefix(trimmed, "event:"):
			event = strings.TrimPrefix(strings.TrimPrefix(trimmed, "event:"), " ")
		default:
			// Unrecognized field, ignored per spec.md §4.2.
		}

		if err != nil {
			if sawData || event != "" {
				return &sseFrame{Event: event, Data: data.Bytes()}, nil
			}
			return nil, err
		}
	}
}
