package brainclient

import (
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSSEDecoderSingleFrame(t *testing.T) {
	d := newSSEDecoder(strings.NewReader("event: content_delta\ndata: {\"a\":1}\n\n"))
	frame, err := d.Next()
	require.NoError(t, err)
	assert.Equal(t, "content_delta", frame.Event)
	assert.Equal(t, `{"a":1}`, string(frame.Data))
}

func TestSSEDecoderMultiLineData(t *testing.T) {
	d := newSSEDecoder(strings.NewReader("event: complete\ndata: line one\ndata: line two\n\n"))
	frame, err := d.Next()
	require.NoError(t, err)
	assert.Equal(t, "line one\nline two", string(frame.Data))
}

func TestSSEDecoderIgnoresKeepAliveComments(t *testing.T) {
	d := newSSEDecoder(strings.NewReader(": keep-alive\nevent: start\ndata: {}\n\n"))
	frame, err := d.Next()
	require.NoError(t, err)
	assert.Equal(t, "start", frame.Event)
}

func TestSSEDecoderSplitAcrossReads(t *testing.T) {
	// chunkedReader simulates a frame boundary arriving mid-read by
	// dribbling the input out one byte at a time.
	r := &chunkedReader{data: []byte("event: status_update\ndata: {\"status\":\"ok\"}\n\n")}
	d := newSSEDecoder(r)
	frame, err := d.Next()
	require.NoError(t, err)
	assert.Equal(t, "status_update", frame.Event)
	assert.Equal(t, `{"status":"ok"}`, string(frame.Data))
}

func TestSSEDecoderMultipleFrames(t *testing.T) {
	d := newSSEDecoder(strings.NewReader(
		"event: start\ndata: {\"interaction_id\":\"i1\"}\n\n" +
			"event: complete\ndata: {\"interaction_id\":\"i1\"}\n\n",
	))
	first, err := d.Next()
	require.NoError(t, err)
	assert.Equal(t, "start", first.Event)

	second, err := d.Next()
	require.NoError(t, err)
	assert.Equal(t, "complete", second.Event)

	_, err = d.Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestSSEDecoderTrailingFrameWithoutBlankLine(t *testing.T) {
	d := newSSEDecoder(strings.NewReader("event: complete\ndata: {}"))
	frame, err := d.Next()
	require.NoError(t, err)
	assert.Equal(t, "complete", frame.Event)
}

// chunkedReader returns the underlying data one byte per Read call.
type chunkedReader struct {
	data []byte
	pos  int
}

func (c *chunkedReader) Read(p []byte) (int, error) {
	if c.pos >= len(c.data) {
		return 0, io.EOF
	}
	n := copy(p, c.data[c.pos:c.pos+1])
	c.pos += n
	return n, nil
}
