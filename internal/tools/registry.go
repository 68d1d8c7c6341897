// Package tools implements the capabilities the agent can call: the
// calculator, web search, a mock email sender and document retrieval.
package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"ragagent/internal/domain"
)

// ErrUnknownTool is returned by Registry.Call for names not registered.
var ErrUnknownTool = errors.New("unknown tool")

// Registry is an ordered set of tools with unique names.
type Registry struct {
	tools  []domain.Tool
	byName map[string]domain.Tool
}

// NewRegistry registers tools in order.
func NewRegistry(tools ...domain.Tool) (*Registry, error) {
	r := &Registry{byName: make(map[string]domain.Tool, len(tools))}
	for _, t := range tools {
		if err := r.Register(t); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *Registry) Register(t domain.Tool) error {
	name := t.Name()
	if name == "" {
		return errors.New("tool name is empty")
	}
	if _, ok := r.byName[name]; ok {
		return fmt.Errorf("tool %q already registered", name)
	}
	r.tools = append(r.tools, t)
	r.byName[name] = t
	return nil
}

func (r *Registry) Get(name string) (domain.Tool, bool) {
	t, ok := r.byName[name]
	return t, ok
}

// List returns the tools in registration order.
func (r *Registry) List() []domain.Tool {
	out := make([]domain.Tool, len(r.tools))
	copy(out, r.tools)
	return out
}

func (r *Registry) Names() []string {
	names := make([]string, len(r.tools))
	for i, t := range r.tools {
		names[i] = t.Name()
	}
	return names
}

// Call runs the named tool.
func (r *Registry) Call(ctx context.Context, name, input string) (string, error) {
	t, ok := r.byName[name]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownTool, name)
	}
	return t.Call(ctx, input)
}

type failure struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

func encode(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func fail(err error) (string, error) {
	return encode(failure{Success: false, Error: err.Error()})
}
