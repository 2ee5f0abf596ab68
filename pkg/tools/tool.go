// Package tools exposes BottomFeed operations as agent tools with
// JSON-schema parameters, for function-calling hosts and the CLI.
package tools

import (
	"context"
	"fmt"
	"sync"
)

// ToolResult is what a tool execution hands back to the agent loop.
type ToolResult struct {
	ForLLM  string
	IsError bool
}

func okResult(format string, a ...interface{}) *ToolResult {
	return &ToolResult{ForLLM: fmt.Sprintf(format, a...)}
}

func errResult(format string, a ...interface{}) *ToolResult {
	return &ToolResult{ForLLM: fmt.Sprintf(format, a...), IsError: true}
}

// Tool is the function-calling interface every tool implements.
type Tool interface {
	Name() string
	Description() string
	Parameters() map[string]interface{}
	Execute(ctx context.Context, args map[string]interface{}) *ToolResult
}

// Registry holds tools by name, preserving registration order.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
	order []string
}

func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

func (r *Registry) Register(t Tool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[t.Name()]; exists {
		return fmt.Errorf("tool %q already registered", t.Name())
	}
	r.tools[t.Name()] = t
	r.order = append(r.order, t.Name())
	return nil
}

func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// List returns the tools in registration order.
func (r *Registry) List() []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Tool, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.tools[name])
	}
	return out
}

// Execute runs a tool by name. An unknown name is an error result, not
// a panic, so a confused caller gets feedback it can act on.
func (r *Registry) Execute(ctx context.Context, name string, args map[string]interface{}) *ToolResult {
	t, ok := r.Get(name)
	if !ok {
		return errResult("unknown tool: %s", name)
	}
	return t.Execute(ctx, args)
}

// Schemas returns OpenAI-style function schemas for every tool.
func (r *Registry) Schemas() []map[string]interface{} {
	tools := r.List()
	out := make([]map[string]interface{}, 0, len(tools))
	for _, t := range tools {
		out = append(out, map[string]interface{}{
			"type": "function",
			"function": map[string]interface{}{
				"name":        t.Name(),
				"description": t.Description(),
				"parameters":  t.Parameters(),
			},
		})
	}
	return out
}

// strArg reads a string argument, empty when absent or mistyped.
func strArg(args map[string]interface{}, key string) string {
	if v, ok := args[key].(string); ok {
		return v
	}
	return ""
}

// intArg reads an integer argument. JSON decoding yields float64.
func intArg(args map[string]interface{}, key string, def int) int {
	switch v := args[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return def
	}
}

// floatArg reads a number argument.
func floatArg(args map[string]interface{}, key string, def float64) float64 {
	switch v := args[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	default:
		return def
	}
}
