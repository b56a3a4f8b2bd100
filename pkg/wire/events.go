package wire

import "encoding/json"

// EventKind is the wire discriminator carried by the SSE `event:` line (or,
// when absent, by a `type` field inside the JSON payload).
type EventKind string

const (
	EventStart            EventKind = "start"
	EventStatusUpdate     EventKind = "status_update"
	EventContentDelta     EventKind = "content_delta"
	EventToolCallFragment EventKind = "tool_call_fragment"
	EventError            EventKind = "error"
	EventComplete         EventKind = "complete"
)

// InteractionEvent is one frame of a streamed interaction (spec.md §3).
type InteractionEvent interface {
	Kind() EventKind
}

// Start opens a stream and carries the server-issued interaction id.
type Start struct {
	InteractionID string
}

func (Start) Kind() EventKind { return EventStart }

// StatusUpdate is an opaque UI signal, pass-through to the frontend.
type StatusUpdate struct {
	Status string
	Detail map[string]any
}

func (StatusUpdate) Kind() EventKind { return EventStatusUpdate }

// ContentDelta monotonically grows the textual content of output part
// PartIndex.
type ContentDelta struct {
	PartIndex int
	Delta     string
}

func (ContentDelta) Kind() EventKind { return EventContentDelta }

// ToolCallFragment is one chunk of an in-progress tool call. CallID and
// Name are only populated on the fragment that introduces the call;
// ArgsDelta is concatenated, in arrival order, across every fragment
// sharing the same CallIndex.
type ToolCallFragment struct {
	CallIndex int
	CallID    string
	Name      string
	ArgsDelta string
}

func (ToolCallFragment) Kind() EventKind { return EventToolCallFragment }

// FinishReason classifies why a Complete event ended the turn.
type FinishReason string

const (
	FinishStop          FinishReason = "STOP"
	FinishSafetyBlocked FinishReason = "SAFETY_BLOCKED"
	FinishLengthLimited FinishReason = "LENGTH_LIMITED"
	FinishOther          FinishReason = "OTHER"
)

// Usage carries token accounting for one interaction.
type Usage struct {
	Prompt     int `json:"prompt"`
	Cached     int `json:"cached"`
	Thoughts   int `json:"thoughts"`
	Candidates int `json:"candidates"`
	Total      int `json:"total"`
}

// AssembledToolCall is the server's fully-materialized view of one
// function call, used both in Complete and in InteractionResult.
type AssembledToolCall struct {
	CallID string
	Name   string
	Args   map[string]any
}

// Complete closes a stream successfully with the brain's final snapshot.
type Complete struct {
	InteractionID string
	Parts         []ContentPart
	ToolCalls     []AssembledToolCall
	Usage         Usage
	FinishReason  FinishReason
}

func (Complete) Kind() EventKind { return EventComplete }

// ErrorEventKind classifies an in-stream Error event. A Terminal error
// closes the stream; a non-terminal one is informational (reserved for
// forward compatibility with the brain's wire format).
type ErrorEventKind struct {
	Terminal bool
	Message  string
	Code     string
}

// ErrorEvent is a streamed error frame.
type ErrorEvent struct {
	ErrorEventKind
}

func (ErrorEvent) Kind() EventKind { return EventError }

// --- JSON envelope -------------------------------------------------------

type wireEvent struct {
	Type          EventKind         `json:"type"`
	InteractionID string            `json:"interaction_id,omitempty"`
	Status        string            `json:"status,omitempty"`
	Detail        map[string]any    `json:"detail,omitempty"`
	PartIndex     *int              `json:"part_index,omitempty"`
	Delta         string            `json:"delta,omitempty"`
	CallIndex     *int              `json:"call_index,omitempty"`
	CallID        string            `json:"call_id,omitempty"`
	Name          string            `json:"name,omitempty"`
	ArgsDelta     string            `json:"args_delta,omitempty"`
	Parts         []json.RawMessage `json:"parts,omitempty"`
	ToolCalls     []wireToolCall    `json:"tool_calls,omitempty"`
	Usage         Usage             `json:"usage,omitempty"`
	FinishReason  FinishReason      `json:"finish_reason,omitempty"`
	Terminal      bool              `json:"terminal,omitempty"`
	Message       string            `json:"message,omitempty"`
	Code          string            `json:"code,omitempty"`
}

type wireToolCall struct {
	CallID string         `json:"call_id"`
	Name   string         `json:"name"`
	Args   map[string]any `json:"args"`
}

// DecodeEvent decodes one SSE frame's JSON payload into a typed
// InteractionEvent. eventName is the value of the SSE `event:` line, if
// present; when empty, the `type` discriminator field inside the payload
// is used instead.
func DecodeEvent(eventName string, payload []byte) (InteractionEvent, error) {
	var w wireEvent
	if err := json.Unmarshal(payload, &w); err != nil {
		return nil, errMalformed(err)
	}
	kind := EventKind(eventName)
	if kind == "" {
		kind = w.Type
	}
	switch kind {
	case EventStart:
		if w.InteractionID == "" {
			return nil, errMissingField("interaction_id")
		}
		return Start{InteractionID: w.InteractionID}, nil
	case EventStatusUpdate:
		return StatusUpdate{Status: w.Status, Detail: w.Detail}, nil
	case EventContentDelta:
		if w.PartIndex == nil {
			return nil, errMissingField("part_index")
		}
		return ContentDelta{PartIndex: *w.PartIndex, Delta: w.Delta}, nil
	case EventToolCallFragment:
		idx := 0
		if w.CallIndex != nil {
			idx = *w.CallIndex
		}
		return ToolCallFragment{CallIndex: idx, CallID: w.CallID, Name: w.Name, ArgsDelta: w.ArgsDelta}, nil
	case EventError:
		return ErrorEvent{ErrorEventKind{Terminal: w.Terminal, Message: w.Message, Code: w.Code}}, nil
	case EventComplete:
		parts := make([]ContentPart, 0, len(w.Parts))
		for _, raw := range w.Parts {
			p, err := UnmarshalContentPart(raw)
			if err != nil {
				return nil, err
			}
			parts = append(parts, p)
		}
		calls := make([]AssembledToolCall, 0, len(w.ToolCalls))
		for _, tc := range w.ToolCalls {
			calls = append(calls, AssembledToolCall{CallID: tc.CallID, Name: tc.Name, Args: tc.Args})
		}
		return Complete{
			InteractionID: w.InteractionID,
			Parts:         parts,
			ToolCalls:     calls,
			Usage:         w.Usage,
			FinishReason:  w.FinishReason,
		}, nil
	default:
		return nil, errUnknownDiscriminator("event", string(kind))
	}
}
