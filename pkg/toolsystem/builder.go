package toolsystem

import (
	"context"
	"fmt"

	"github.com/aravindhsampath/chitti/pkg/wire"
)

// Param describes one JSON Schema property of a built tool's parameters.
type Param struct {
	Type        string
	Description string
	Required    bool
	Enum        []string
}

// Handler is the function a built tool delegates Invoke to.
type Handler func(ctx context.Context, args map[string]any) (map[string]any, error)

// Builder assembles a Tool with a fluent interface, mirroring how ad hoc
// tools get declared without hand-writing a type per tool.
type Builder struct {
	name        string
	description string
	properties  map[string]Param
	required    []string
	handler     Handler
}

func NewBuilder(name, description string) *Builder {
	return &Builder{name: name, description: description, properties: make(map[string]Param)}
}

func (b *Builder) AddParameter(name string, p Param) *Builder {
	b.properties[name] = p
	if p.Required {
		b.required = append(b.required, name)
	}
	return b
}

func (b *Builder) AddStringParameter(name, description string, required bool, enum ...string) *Builder {
	return b.AddParameter(name, Param{Type: "string", Description: description, Required: required, Enum: enum})
}

func (b *Builder) AddNumberParameter(name, description string, required bool) *Builder {
	return b.AddParameter(name, Param{Type: "number", Description: description, Required: required})
}

func (b *Builder) AddBooleanParameter(name, description string, required bool) *Builder {
	return b.AddParameter(name, Param{Type: "boolean", Description: description, Required: required})
}

func (b *Builder) SetHandler(h Handler) *Builder {
	b.handler = h
	return b
}

func (b *Builder) Build() (Tool, error) {
	if b.handler == nil {
		return nil, fmt.Errorf("toolsystem: tool %q has no handler", b.name)
	}
	properties := make(map[string]any, len(b.properties))
	for name, p := range b.properties {
		prop := map[string]any{"type": p.Type, "description": p.Description}
		if len(p.Enum) > 0 {
			enum := make([]any, len(p.Enum))
			for i, e := range p.Enum {
				enum[i] = e
			}
			prop["enum"] = enum
		}
		properties[name] = prop
	}
	required := make([]any, len(b.required))
	for i, r := range b.required {
		required[i] = r
	}
	return &builtTool{
		decl: wire.ToolDeclaration{
			Name:        b.name,
			Description: b.description,
			ParameterSchema: map[string]any{
				"type":       "object",
				"properties": properties,
				"required":   required,
			},
		},
		handler: b.handler,
	}, nil
}

// BuildAndRegister builds the tool and registers it with reg in one step.
func (b *Builder) BuildAndRegister(reg Registry) error {
	t, err := b.Build()
	if err != nil {
		return err
	}
	return reg.Register(t)
}

type builtTool struct {
	decl    wire.ToolDeclaration
	handler Handler
}

func (t *builtTool) Declaration() wire.ToolDeclaration { return t.decl }

func (t *builtTool) Invoke(ctx context.Context, args map[string]any) (map[string]any, error) {
	return t.handler(ctx, args)
}
