package brainclient

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/aravindhsampath/chitti/pkg/wire"
)

// assembler keeps per-stream indexed buffers for text parts and tool-call
// arguments, folding a live InteractionEvent sequence toward the final
// InteractionResult and checking the Complete snapshot against what was
// buffered (spec.md §3's assembly invariants; property 1 in spec.md §8).
type assembler struct {
	interactionID string
	sawStart      bool
	closed        bool

	textParts map[int]*stringsBuilder
	partOrder []int

	toolArgs  map[int]*stringsBuilder
	toolID    map[int]string
	toolName  map[int]string
	callOrder []int
}

func newAssembler() *assembler {
	return &assembler{
		textParts: make(map[int]*stringsBuilder),
		toolArgs:  make(map[int]*stringsBuilder),
		toolID:    make(map[int]string),
		toolName:  make(map[int]string),
	}
}

// stringsBuilder is a tiny rename of strings.Builder usage to make the
// zero-value-friendly map access below read cleanly.
type stringsBuilder struct {
	buf []byte
}

func (b *stringsBuilder) WriteString(s string) { b.buf = append(b.buf, s...) }
func (b *stringsBuilder) String() string       { return string(b.buf) }

// Feed applies one event to the assembler's buffers. It returns a non-nil
// InteractionResult exactly once, when a Complete event is fed and the
// snapshot it carries agrees with what was buffered.
func (a *assembler) Feed(ev wire.InteractionEvent) (*wire.InteractionResult, error) {
	if a.closed {
		return nil, &ProtocolMismatchError{Reason: "event received after stream closed"}
	}

	switch e := ev.(type) {
	case wire.Start:
		if a.sawStart {
			return nil, &ProtocolMismatchError{Reason: "duplicate Start event"}
		}
		a.sawStart = true
		a.interactionID = e.InteractionID
		return nil, nil

	case wire.ContentDelta:
		if !a.sawStart {
			return nil, &ProtocolMismatchError{Reason: "ContentDelta before Start"}
		}
		b, ok := a.textParts[e.PartIndex]
		if !ok {
			b = &stringsBuilder{}
			a.textParts[e.PartIndex] = b
			a.partOrder = append(a.partOrder, e.PartIndex)
		}
		b.WriteString(e.Delta)
		return nil, nil

	case wire.ToolCallFragment:
		if !a.sawStart {
			return nil, &ProtocolMismatchError{Reason: "ToolCallFragment before Start"}
		}
		b, ok := a.toolArgs[e.CallIndex]
		if !ok {
			b = &stringsBuilder{}
			a.toolArgs[e.CallIndex] = b
			a.callOrder = append(a.callOrder, e.CallIndex)
		}
		if e.CallID != "" {
			a.toolID[e.CallIndex] = e.CallID
		}
		if e.Name != "" {
			a.toolName[e.CallIndex] = e.Name
		}
		b.WriteString(e.ArgsDelta)
		return nil, nil

	case wire.StatusUpdate:
		return nil, nil

	case wire.ErrorEvent:
		if !e.Terminal {
			// Informational only; the stream continues.
			return nil, nil
		}
		a.closed = true
		return nil, fmt.Errorf("brainclient: stream error: %s (%s)", e.Message, e.Code)

	case wire.Complete:
		// A non-streaming (generateContent) response folds directly to a
		// single Complete frame with no preceding Start; a streamed
		// response always has Start first. Both are valid.
		a.closed = true
		if err := a.checkSnapshot(e); err != nil {
			return nil, err
		}
		return &wire.InteractionResult{
			InteractionID: e.InteractionID,
			OutputParts:   e.Parts,
			ToolCalls:     assignMissingCallIDs(e.ToolCalls),
			Usage:         e.Usage,
			FinishReason:  e.FinishReason,
		}, nil

	default:
		return nil, fmt.Errorf("brainclient: unknown event type %T", ev)
	}
}

// checkSnapshot verifies that the Complete frame's parts/tool_calls equal
// the concatenation of the buffered fragments, per spec.md §3: "Clients
// verify this; mismatch is a protocol error."
func (a *assembler) checkSnapshot(c wire.Complete) error {
	textFromParts := make(map[int]string)
	for idx, part := range c.Parts {
		if t, ok := part.(wire.Text); ok {
			textFromParts[idx] = t.Value
		}
	}
	for _, idx := range a.partOrder {
		want, ok := textFromParts[idx]
		if !ok {
			continue // non-text parts were never streamed as deltas
		}
		if got := a.textParts[idx].String(); got != want {
			return &ProtocolMismatchError{Reason: fmt.Sprintf(
				"part %d: buffered %q does not match Complete snapshot %q", idx, got, want,
			)}
		}
	}

	argsFromCalls := make(map[string]string)
	for _, tc := range c.ToolCalls {
		argsFromCalls[tc.CallID] = argsToJSONish(tc.Args)
	}
	for _, idx := range a.callOrder {
		id := a.toolID[idx]
		if id == "" {
			continue
		}
		want, ok := argsFromCalls[id]
		if !ok {
			return &ProtocolMismatchError{Reason: fmt.Sprintf(
				"tool call %d (%s): no matching entry in Complete.tool_calls", idx, id,
			)}
		}
		buffered := a.toolArgs[idx].String()
		if buffered == "" {
			continue // no args were streamed for this call
		}
		var streamed map[string]any
		if err := json.Unmarshal([]byte(buffered), &streamed); err != nil {
			return &ProtocolMismatchError{Reason: fmt.Sprintf(
				"tool call %d (%s): buffered args are not a JSON object: %v", idx, id, err,
			)}
		}
		if got := argsToJSONish(streamed); got != want {
			return &ProtocolMismatchError{Reason: fmt.Sprintf(
				"tool call %d (%s): buffered args %s do not match Complete snapshot %s", idx, id, got, want,
			)}
		}
	}
	return nil
}

// assignMissingCallIDs generates a call_id for any tool call the brain
// emitted without one, so downstream dispatch and result folding always
// have a stable identifier to key on.
func assignMissingCallIDs(calls []wire.AssembledToolCall) []wire.AssembledToolCall {
	for i, tc := range calls {
		if tc.CallID == "" {
			calls[i].CallID = uuid.NewString()
		}
	}
	return calls
}

// argsToJSONish renders a decoded args map in a canonical form (fmt prints
// map keys sorted) so checkSnapshot can compare the decoded, concatenated
// args_delta text against the Complete snapshot's args by value rather
// than byte for byte.
func argsToJSONish(m map[string]any) string {
	return fmt.Sprintf("%v", m)
}

// FoldStream drains an InteractionStream to completion and returns the
// folded InteractionResult (spec.md §4.2, testable property 1).
func FoldStream(stream InteractionStream) (*wire.InteractionResult, error) {
	a := newAssembler()
	for {
		ev, err := stream.Next()
		if err != nil {
			if err == ErrStreamDone {
				return nil, fmt.Errorf("brainclient: stream ended without a Complete event")
			}
			return nil, err
		}
		result, err := a.Feed(ev)
		if err != nil {
			return nil, err
		}
		if result != nil {
			return result, nil
		}
	}
}
