package wire

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContentPartRoundTrip(t *testing.T) {
	cases := []ContentPart{
		Text{Value: "hello there"},
		InlineBlob{MIMEType: "image/png", Data: []byte{0x01, 0x02, 0x03}},
		FileRef{URI: "https://files.example/abc", MIMEType: "audio/wav"},
		FunctionCall{CallID: "c1", Name: "execute_bash", Args: map[string]any{"command": "echo hi"}},
		FunctionResult{CallID: "c1", Name: "execute_bash", Value: map[string]any{"stdout": "hi\n"}},
	}

	for _, part := range cases {
		raw, err := MarshalContentPart(part)
		require.NoError(t, err)

		decoded, err := UnmarshalContentPart(raw)
		require.NoError(t, err)
		assert.Equal(t, part, decoded)
	}
}

func TestContentRoundTrip(t *testing.T) {
	c := Content{
		Role: RoleUser,
		Parts: []ContentPart{
			Text{Value: "hi"},
			FunctionCall{CallID: "c1", Name: "noop", Args: map[string]any{}},
		},
	}

	raw, err := json.Marshal(c)
	require.NoError(t, err)

	var decoded Content
	require.NoError(t, json.Unmarshal(raw, &decoded))
	// An empty args map is an absent optional field: it is omitted on the
	// wire and decodes as a nil map.
	want := Content{
		Role: RoleUser,
		Parts: []ContentPart{
			Text{Value: "hi"},
			FunctionCall{CallID: "c1", Name: "noop"},
		},
	}
	assert.Equal(t, want, decoded)
}

func TestUnmarshalContentPartUnknownDiscriminator(t *testing.T) {
	_, err := UnmarshalContentPart([]byte(`{"type":"bogus"}`))
	require.Error(t, err)

	var de *DecodeError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, UnknownDiscriminator, de.Kind)
}

func TestUnmarshalContentPartMissingRequiredField(t *testing.T) {
	_, err := UnmarshalContentPart([]byte(`{"type":"function_call","call_id":"c1"}`))
	require.Error(t, err)

	var de *DecodeError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, MissingRequiredField, de.Kind)
}

func TestUnmarshalContentPartMalformedJSON(t *testing.T) {
	_, err := UnmarshalContentPart([]byte(`{not json`))
	require.Error(t, err)

	var de *DecodeError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, MalformedJSON, de.Kind)
}
