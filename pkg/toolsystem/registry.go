package toolsystem

import (
	"context"
	"fmt"
	"sync"

	"github.com/aravindhsampath/chitti/pkg/wire"
)

// Tool is one locally-executable capability advertised to the brain.
type Tool interface {
	Declaration() wire.ToolDeclaration
	Invoke(ctx context.Context, args map[string]any) (map[string]any, error)
}

// Registry holds the set of tools available for the current turn, keyed
// by name. Implementations must be safe for concurrent dispatch.
type Registry interface {
	Register(t Tool) error
	Get(name string) (Tool, bool)
	List() []Tool
	Declarations() []wire.ToolDeclaration
}

type memoryRegistry struct {
	mu    sync.RWMutex
	tools map[string]Tool
}

// NewRegistry constructs an in-memory Registry.
func NewRegistry() Registry {
	return &memoryRegistry{tools: make(map[string]Tool)}
}

func (r *memoryRegistry) Register(t Tool) error {
	decl := t.Declaration()
	if decl.Name == "" {
		return fmt.Errorf("toolsystem: tool declaration has empty name")
	}
	if _, err := wire.CompileParameterSchema(decl.Name, decl.ParameterSchema); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[decl.Name]; exists {
		return fmt.Errorf("toolsystem: tool %q already registered", decl.Name)
	}
	r.tools[decl.Name] = t
	return nil
}

func (r *memoryRegistry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

func (r *memoryRegistry) List() []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Tool, 0, len(r.tools))
	for _, t := range r.tools {
		out = append(out, t)
	}
	return out
}

func (r *memoryRegistry) Declarations() []wire.ToolDeclaration {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]wire.ToolDeclaration, 0, len(r.tools))
	for _, t := range r.tools {
		out = append(out, t.Declaration())
	}
	return out
}
