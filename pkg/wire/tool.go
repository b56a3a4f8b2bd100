package wire

import (
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// ToolDeclaration advertises one locally executed capability to the brain.
type ToolDeclaration struct {
	Name            string         `json:"name"`
	Description     string         `json:"description,omitempty"`
	ParameterSchema map[string]any `json:"parameter_schema"`
}

// ToolChoiceMode selects how strongly the brain should be steered toward
// using tools.
type ToolChoiceMode string

const (
	ToolChoiceAuto     ToolChoiceMode = "auto"
	ToolChoiceNone     ToolChoiceMode = "none"
	ToolChoiceRequired ToolChoiceMode = "required"
	ToolChoiceNamed    ToolChoiceMode = "named"
)

// ToolChoice is {auto, none, required, named(t)}.
type ToolChoice struct {
	Mode  ToolChoiceMode
	Named string // only set when Mode == ToolChoiceNamed
}

func (c ToolChoice) MarshalJSON() ([]byte, error) {
	if c.Mode == ToolChoiceNamed {
		return json.Marshal(struct {
			Mode  string `json:"mode"`
			Named string `json:"named"`
		}{Mode: string(c.Mode), Named: c.Named})
	}
	return json.Marshal(struct {
		Mode string `json:"mode"`
	}{Mode: string(c.Mode)})
}

func (c *ToolChoice) UnmarshalJSON(data []byte) error {
	var raw struct {
		Mode  string `json:"mode"`
		Named string `json:"named"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return errMalformed(err)
	}
	switch ToolChoiceMode(raw.Mode) {
	case ToolChoiceAuto, ToolChoiceNone, ToolChoiceRequired, ToolChoiceNamed:
		c.Mode = ToolChoiceMode(raw.Mode)
		c.Named = raw.Named
		return nil
	default:
		return errUnknownDiscriminator("tool_choice.mode", raw.Mode)
	}
}

// ValidateToolDeclarations enforces the request invariants that touch
// tools: names unique within a request, and tool_choice=named(t) requires
// t to be present among tools.
func ValidateToolDeclarations(tools []ToolDeclaration, choice ToolChoice) error {
	seen := make(map[string]bool, len(tools))
	for _, t := range tools {
		if seen[t.Name] {
			return fmt.Errorf("wire: duplicate tool name %q in request", t.Name)
		}
		seen[t.Name] = true
	}
	if choice.Mode == ToolChoiceNamed {
		if !seen[choice.Named] {
			return fmt.Errorf("wire: tool_choice names %q which is not in the tool list", choice.Named)
		}
	}
	return nil
}

// CompileParameterSchema validates that a tool's parameter_schema is a
// well-formed JSON Schema document, compiling it once so malformed schemas
// fail at registration time instead of producing a request the brain
// rejects later.
func CompileParameterSchema(name string, schema map[string]any) (*jsonschema.Schema, error) {
	raw, err := json.Marshal(schema)
	if err != nil {
		return nil, fmt.Errorf("wire: tool %q: marshal parameter_schema: %w", name, err)
	}
	unmarshaled, err := jsonschema.UnmarshalJSON(bytesReader(raw))
	if err != nil {
		return nil, fmt.Errorf("wire: tool %q: parameter_schema is not valid JSON: %w", name, err)
	}
	c := jsonschema.NewCompiler()
	resourceURL := "chitti://tools/" + name + "/parameters.json"
	if err := c.AddResource(resourceURL, unmarshaled); err != nil {
		return nil, fmt.Errorf("wire: tool %q: invalid parameter_schema: %w", name, err)
	}
	compiled, err := c.Compile(resourceURL)
	if err != nil {
		return nil, fmt.Errorf("wire: tool %q: parameter_schema does not compile: %w", name, err)
	}
	return compiled, nil
}
