package tool

import (
	"context"
	"encoding/json"

	ai "github.com/zPy52/taichat"
)

// Registration declares a tool, its danger classification, and the
// handler that executes it.
type Registration struct {
	Tool      ai.Tool
	Dangerous bool
	Handler   Handler
}

// Registry holds a fixed set of tools. It is built once and never
// mutated afterward, so lookups need no synchronization.
type Registry struct {
	tools map[string]Registration
	order []string
}

// New builds a registry from the given registrations.
// Returns an error if two registrations share a name.
func New(regs ...Registration) (*Registry, error) {
	r := &Registry{tools: make(map[string]Registration, len(regs))}
	for _, reg := range regs {
		if _, exists := r.tools[reg.Tool.Name]; exists {
			return nil, &ErrDuplicateTool{Name: reg.Tool.Name}
		}
		r.tools[reg.Tool.Name] = reg
		r.order = append(r.order, reg.Tool.Name)
	}
	return r, nil
}

// Must is like New but panics on error.
func Must(regs ...Registration) *Registry {
	r, err := New(regs...)
	if err != nil {
		panic(err)
	}
	return r
}

// Lookup returns the registration for the named tool.
func (r *Registry) Lookup(name string) (Registration, bool) {
	reg, ok := r.tools[name]
	return reg, ok
}

// IsDangerous reports whether the named tool requires approval before
// execution. Unknown tools report false; Execute rejects them anyway.
func (r *Registry) IsDangerous(name string) bool {
	reg, ok := r.tools[name]
	return ok && reg.Dangerous
}

// Tools returns the tool declarations in registration order, suitable
// for sending to a chat provider.
func (r *Registry) Tools() []ai.Tool {
	tools := make([]ai.Tool, 0, len(r.order))
	for _, name := range r.order {
		tools = append(tools, r.tools[name].Tool)
	}
	return tools
}

// Registrations returns the registrations in registration order.
// Callers use this to compose a new registry from existing ones.
func (r *Registry) Registrations() []Registration {
	out := make([]Registration, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.tools[name])
	}
	return out
}

// Names returns the tool names in registration order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.order))
	copy(names, r.order)
	return names
}

// Len returns the number of registered tools.
func (r *Registry) Len() int {
	return len(r.tools)
}

// Execute runs the named tool's handler and returns its result.
//
// Errors never propagate past Execute: an unknown tool, a panicking or
// failing handler, all produce a result whose content is the JSON
// object {"error": "..."} with IsError set. The model sees the error
// text and the run continues.
func (r *Registry) Execute(ctx context.Context, call ai.ToolCall) ai.ToolResult {
	reg, ok := r.tools[call.Name]
	if !ok {
		return errorResult(call.ID, (&ErrUnknownTool{Name: call.Name}).Error())
	}

	content, err := safeInvoke(ctx, reg.Handler, call)
	if err != nil {
		return errorResult(call.ID, err.Error())
	}

	return ai.ToolResult{
		ToolCallID: call.ID,
		Content:    content,
	}
}

func safeInvoke(ctx context.Context, h Handler, call ai.ToolCall) (content string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = &ErrHandlerPanic{Tool: call.Name, Value: rec}
		}
	}()
	return h(ctx, call)
}

func errorResult(callID, msg string) ai.ToolResult {
	payload, _ := json.Marshal(map[string]string{"error": msg})
	return ai.ToolResult{
		ToolCallID: callID,
		Content:    string(payload),
		IsError:    true,
	}
}
