// Package tools defines the tool function type, the registry mapping tool
// names to functions, and the built-in pipeline tools.
package tools

import (
	"context"
	"sync"
	"time"
)

// Context carries runner-owned bindings into a tool invocation. Signals is
// the runner's working copy; tools must treat it as read-only.
type Context struct {
	JobID   string
	Domain  string
	Signals map[string]any

	// ToolTimeout overrides the adapter's default timeout when positive.
	ToolTimeout time.Duration
}

// Func is a tool: it takes inputs and the tool context and returns a result
// mapping. Tools are expected to be pure and stateless across invocations.
type Func func(ctx context.Context, inputs map[string]any, tc *Context) (map[string]any, error)

// NotRegisteredError reports a plan step referencing an unknown tool.
type NotRegisteredError struct {
	Name string
}

func (e *NotRegisteredError) Error() string {
	return "tool not registered: " + e.Name
}

// Registry maps tool names to functions. It is built once at startup and
// read-only afterwards.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Func
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Func)}
}

// Register adds a tool by name, replacing any existing entry.
func (r *Registry) Register(name string, fn Func) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[name] = fn
}

// Get returns the tool function for name.
func (r *Registry) Get(name string) (Func, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.tools[name]
	if !ok {
		return nil, &NotRegisteredError{Name: name}
	}
	return fn, nil
}
