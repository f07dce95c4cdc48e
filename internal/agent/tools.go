package agent

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/nidhogg/campus-assistant/internal/provider"
)

// ToolHandler executes a tool call and returns the result as a string.
type ToolHandler func(ctx context.Context, args string) (string, error)

// ToolRegistry holds available tools and their handlers.
type ToolRegistry struct {
	defs     []provider.Tool
	handlers map[string]ToolHandler
}

// NewToolRegistry creates an empty registry.
func NewToolRegistry() *ToolRegistry {
	return &ToolRegistry{
		handlers: make(map[string]ToolHandler),
	}
}

// Register adds a tool definition and its handler.
func (r *ToolRegistry) Register(def provider.Tool, handler ToolHandler) {
	r.defs = append(r.defs, def)
	r.handlers[def.Name] = handler
}

// Definitions returns all tool definitions for the LLM request.
func (r *ToolRegistry) Definitions() []provider.Tool {
	return r.defs
}

// Names returns the registered tool names in registration order.
func (r *ToolRegistry) Names() []string {
	names := make([]string, len(r.defs))
	for i, d := range r.defs {
		names[i] = d.Name
	}
	return names
}

// Execute runs a tool by name with the given JSON arguments.
func (r *ToolRegistry) Execute(ctx context.Context, name, args string) (string, error) {
	h, ok := r.handlers[name]
	if !ok {
		return "", fmt.Errorf("unknown tool: %s", name)
	}
	return h(ctx, args)
}

// NoArgs is the argument type of tools without parameters.
type NoArgs struct{}

// RegisterFunc registers a tool whose parameter schema is inferred from A.
// Arguments are decoded with JSON repair before fn is called.
func RegisterFunc[A any](r *ToolRegistry, name, description string, fn func(ctx context.Context, args A) (string, error)) {
	schema, err := jsonschema.For[A](nil)
	if err != nil {
		panic(fmt.Sprintf("tool %s: %v", name, err))
	}
	r.Register(provider.Tool{
		Name:        name,
		Description: description,
		Parameters:  schema,
	}, func(ctx context.Context, raw string) (string, error) {
		var args A
		if err := provider.DecodeJSON(raw, &args); err != nil {
			return "", fmt.Errorf("parse args: %w", err)
		}
		return fn(ctx, args)
	})
}

// RegisterText registers a parameterless tool returning fixed text.
func RegisterText(r *ToolRegistry, name, description, text string) {
	RegisterFunc(r, name, description, func(context.Context, NoArgs) (string, error) {
		return text, nil
	})
}

func jsonResult(v interface{}) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encode result: %w", err)
	}
	return string(b), nil
}

func errorResult(msg string) string {
	b, _ := json.Marshal(map[string]string{"error": msg})
	return string(b)
}
