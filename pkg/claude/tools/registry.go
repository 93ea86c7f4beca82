// Package tools describes the tools a session knows about and runs the ones
// the host executes itself. A Registry holds each tool's spec (read-only and
// edit-class flags, input schema) and an optional executor.
package tools

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"

	"github.com/conneroisu/claude-control/pkg/claude/ports"
	"github.com/conneroisu/claude-control/pkg/clauderrs"
)

// Spec describes one tool.
type Spec struct {
	Name string
	// ReadOnly tools may run in plan mode.
	ReadOnly bool
	// EditClass tools are allowed in acceptEdits mode.
	EditClass bool
	// Schema is a JSON schema for the tool input. Nil accepts any input.
	Schema map[string]any
}

type entry struct {
	spec     Spec
	schema   *gojsonschema.Schema
	executor ports.ToolExecutor
}

// Registry maps tool names to specs and executors. It is safe for
// concurrent use.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*entry
	mcp     map[string]ports.ToolExecutor
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		entries: make(map[string]*entry),
		mcp:     make(map[string]ports.ToolExecutor),
	}
}

// NewBuiltinRegistry returns a registry holding the built-in tool specs
// without executors.
func NewBuiltinRegistry() *Registry {
	r := NewRegistry()
	for _, spec := range Builtins() {
		if err := r.Register(spec, nil); err != nil {
			panic(fmt.Sprintf("builtin tool %s: %v", spec.Name, err))
		}
	}

	return r
}

// Register adds or replaces a tool. The schema is compiled here.
func (r *Registry) Register(spec Spec, executor ports.ToolExecutor) error {
	if spec.Name == "" {
		return clauderrs.NewValidationError(clauderrs.ErrCodeMissingField, "tool name is required", nil, "name", "")
	}
	e := &entry{spec: spec, executor: executor}
	if spec.Schema != nil {
		schema, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(spec.Schema))
		if err != nil {
			return clauderrs.NewValidationError(
				clauderrs.ErrCodeInvalidFormat,
				"invalid tool input schema",
				err,
				"schema",
				spec.Name,
			)
		}
		e.schema = schema
	}
	r.mu.Lock()
	r.entries[spec.Name] = e
	r.mu.Unlock()

	return nil
}

// SetExecutor attaches an executor to a registered tool.
func (r *Registry) SetExecutor(name string, executor ports.ToolExecutor) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[name]
	if !ok {
		return fmt.Errorf("tool %s is not registered", name)
	}
	e.executor = executor

	return nil
}

// RegisterMCP routes every mcp__<server>__* tool to executor.
func (r *Registry) RegisterMCP(server string, executor ports.ToolExecutor) {
	r.mu.Lock()
	r.mcp[server] = executor
	r.mu.Unlock()
}

// Lookup returns the spec of a tool.
func (r *Registry) Lookup(name string) (Spec, bool) {
	if r == nil {
		return Spec{}, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[name]
	if !ok {
		return Spec{}, false
	}

	return e.spec, true
}

// Names returns every registered tool name, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	sort.Strings(names)

	return names
}

// IsReadOnly reports whether name is a registered read-only tool. Unknown
// and MCP tools are not.
func (r *Registry) IsReadOnly(name string) bool {
	spec, ok := r.Lookup(name)

	return ok && spec.ReadOnly
}

// IsEditClass reports whether name is a registered edit-class tool.
func (r *Registry) IsEditClass(name string) bool {
	spec, ok := r.Lookup(name)

	return ok && spec.EditClass
}

// Executor returns the executor for name, if the host runs that tool.
func (r *Registry) Executor(name string) (ports.ToolExecutor, bool) {
	if r == nil {
		return nil, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	if e, ok := r.entries[name]; ok && e.executor != nil {
		return e.executor, true
	}
	if server, _, ok := ParseMCPToolName(name); ok {
		if exec, ok := r.mcp[server]; ok {
			return exec, true
		}
	}

	return nil, false
}

// Validate checks input against the tool's schema. Tools without a schema
// accept any input.
func (r *Registry) Validate(name, toolUseID string, input map[string]any) error {
	r.mu.RLock()
	e, ok := r.entries[name]
	r.mu.RUnlock()
	if !ok || e.schema == nil {
		return nil
	}
	if input == nil {
		input = map[string]any{}
	}
	result, err := e.schema.Validate(gojsonschema.NewGoLoader(input))
	if err != nil {
		return clauderrs.NewToolError(clauderrs.ErrCodeToolInputInvalid, "input is not valid JSON", err, name, toolUseID)
	}
	if result.Valid() {
		return nil
	}
	details := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		details = append(details, desc.String())
	}

	return clauderrs.NewToolError(
		clauderrs.ErrCodeToolInputInvalid,
		"invalid input: "+strings.Join(details, "; "),
		nil,
		name,
		toolUseID,
	)
}

// Execute validates the call and runs it on the tool's executor. Executor
// failures come back as a ToolError; a result with IsError set is not an
// error.
func (r *Registry) Execute(ctx context.Context, call ports.ToolCall) (ports.ToolResult, error) {
	exec, ok := r.Executor(call.ToolName)
	if !ok {
		return ports.ToolResult{}, clauderrs.NewToolError(
			clauderrs.ErrCodeToolExecutionFailed,
			"no executor registered",
			nil,
			call.ToolName,
			call.ToolUseID,
		)
	}
	if err := r.Validate(call.ToolName, call.ToolUseID, call.Input); err != nil {
		return ports.ToolResult{}, err
	}
	result, err := exec.Execute(ctx, call)
	if err != nil {
		if clauderrs.IsToolError(err) {
			return ports.ToolResult{}, err
		}

		return ports.ToolResult{}, clauderrs.NewToolError(
			clauderrs.ErrCodeToolExecutionFailed,
			"tool execution failed",
			err,
			call.ToolName,
			call.ToolUseID,
		)
	}

	return result, nil
}
