package wire

import (
	"encoding/json"
	"fmt"
)

// ThinkingLevel is the brain's reasoning-effort knob.
type ThinkingLevel string

const (
	ThinkingNone ThinkingLevel = "none"
	ThinkingLow  ThinkingLevel = "low"
	ThinkingHigh ThinkingLevel = "high"
)

// GenerationConfig tunes one interaction request.
type GenerationConfig struct {
	Temperature      *float64       `json:"temperature,omitempty"`
	MaxOutputTokens  *int           `json:"max_output_tokens,omitempty"`
	ThinkingLevel    ThinkingLevel  `json:"thinking_level,omitempty"`
	ResponseMIMEType string         `json:"response_mime_type,omitempty"`
	ResponseSchema   map[string]any `json:"response_schema,omitempty"`
}

// Turn is one prior request/response pair, used when replaying history
// inline instead of relying on a server-side previous_interaction_id.
type Turn struct {
	Request  Content `json:"request"`
	Response Content `json:"response"`
}

// InputKind discriminates the three accepted shapes of InteractionRequest.Input.
type InputKind int

const (
	InputText InputKind = iota
	InputContent
	InputTurns
)

// Input is a tagged sum of (a) raw text, (b) a sequence of Content, or
// (c) a sequence of prior Turns. It is encoded untagged on the wire: the
// decoder tries each shape in order (string, then []Content, then []Turn).
type Input struct {
	Kind    InputKind
	Text    string
	Content []Content
	Turns   []Turn
}

func NewTextInput(text string) Input           { return Input{Kind: InputText, Text: text} }
func NewContentInput(c []Content) Input        { return Input{Kind: InputContent, Content: c} }
func NewTurnsInput(t []Turn) Input             { return Input{Kind: InputTurns, Turns: t} }

func (i Input) MarshalJSON() ([]byte, error) {
	switch i.Kind {
	case InputText:
		return json.Marshal(i.Text)
	case InputContent:
		return json.Marshal(i.Content)
	case InputTurns:
		return json.Marshal(i.Turns)
	default:
		return nil, fmt.Errorf("wire: input has unknown kind %d", i.Kind)
	}
}

func (i *Input) UnmarshalJSON(data []byte) error {
	// Shape 1: raw text.
	var text string
	if err := json.Unmarshal(data, &text); err == nil {
		*i = Input{Kind: InputText, Text: text}
		return nil
	}

	// Shape 2: sequence of Content (objects carrying a "role" field).
	var content []Content
	if err := json.Unmarshal(data, &content); err == nil {
		if len(content) == 0 || content[0].Role != "" {
			*i = Input{Kind: InputContent, Content: content}
			return nil
		}
	}

	// Shape 3: sequence of prior turns.
	var turns []Turn
	if err := json.Unmarshal(data, &turns); err == nil {
		*i = Input{Kind: InputTurns, Turns: turns}
		return nil
	}

	return &DecodeError{Kind: TypeMismatch, Path: "input", Want: "text | []content | []turn", Got: string(data)}
}

// ModelOrAgent holds exactly one of Model or Agent, per the request invariant.
type ModelOrAgent struct {
	Model string `json:"model,omitempty"`
	Agent string `json:"agent,omitempty"`
}

func (m ModelOrAgent) Validate() error {
	if (m.Model == "") == (m.Agent == "") {
		return fmt.Errorf("wire: exactly one of model or agent must be set")
	}
	return nil
}

// InteractionRequest is the input to one brain call (spec.md §3).
type InteractionRequest struct {
	ModelOrAgent

	Input                  Input              `json:"input"`
	PreviousInteractionID  string             `json:"previous_interaction_id,omitempty"`
	SystemInstruction      *Content           `json:"system_instruction,omitempty"`
	Tools                  []ToolDeclaration  `json:"tools,omitempty"`
	ToolChoice             ToolChoice         `json:"tool_choice"`
	GenerationConfig       GenerationConfig   `json:"generation_config"`
	SafetySettings         json.RawMessage    `json:"safety_settings,omitempty"`
	CachedContent          string             `json:"cached_content,omitempty"`
	Stream                 bool               `json:"stream"`
	Store                  bool               `json:"store"`
	Background             bool               `json:"background"`
}

// Validate enforces the invariants from spec.md §3: exactly one of
// model/agent, background implies !stream, and named tool_choice must
// reference a declared tool.
func (r InteractionRequest) Validate() error {
	if err := r.ModelOrAgent.Validate(); err != nil {
		return err
	}
	if r.Background && r.Stream {
		return fmt.Errorf("wire: a request with background=true must also have stream=false")
	}
	if err := ValidateToolDeclarations(r.Tools, r.ToolChoice); err != nil {
		return err
	}
	return nil
}

// NewRequest builds a request with the package defaults: stream=true,
// store=false (spec.md's privacy-preserving policy choice), tool_choice=auto.
func NewRequest(model string, input Input) InteractionRequest {
	return InteractionRequest{
		ModelOrAgent: ModelOrAgent{Model: model},
		Input:        input,
		ToolChoice:   ToolChoice{Mode: ToolChoiceAuto},
		Stream:       true,
		Store:        false,
	}
}
