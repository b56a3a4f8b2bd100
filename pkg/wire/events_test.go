package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeEventStart(t *testing.T) {
	ev, err := DecodeEvent("start", []byte(`{"interaction_id":"abc"}`))
	require.NoError(t, err)
	assert.Equal(t, Start{InteractionID: "abc"}, ev)
}

func TestDecodeEventContentDeltaUsesDiscriminatorFieldWhenEventNameAbsent(t *testing.T) {
	ev, err := DecodeEvent("", []byte(`{"type":"content_delta","part_index":0,"delta":"Hi"}`))
	require.NoError(t, err)
	assert.Equal(t, ContentDelta{PartIndex: 0, Delta: "Hi"}, ev)
}

func TestDecodeEventComplete(t *testing.T) {
	payload := []byte(`{
		"interaction_id": "abc",
		"parts": [{"type":"text","text":"Hi there"}],
		"tool_calls": [],
		"usage": {"prompt": 5, "total": 7},
		"finish_reason": "STOP"
	}`)
	ev, err := DecodeEvent("complete", payload)
	require.NoError(t, err)

	c, ok := ev.(Complete)
	require.True(t, ok)
	assert.Equal(t, "abc", c.InteractionID)
	assert.Equal(t, FinishStop, c.FinishReason)
	require.Len(t, c.Parts, 1)
	assert.Equal(t, Text{Value: "Hi there"}, c.Parts[0])
}

func TestDecodeEventUnknownDiscriminator(t *testing.T) {
	_, err := DecodeEvent("not_a_real_event", []byte(`{}`))
	require.Error(t, err)
	var de *DecodeError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, UnknownDiscriminator, de.Kind)
}
