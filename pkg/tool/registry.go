package tool

import (
	"fmt"
	"sort"
	"time"

	"github.com/regulon-ai/regulon/pkg/llms"
	"github.com/regulon-ai/regulon/pkg/observability"
	"github.com/regulon-ai/regulon/pkg/registry"
)

// Registry holds the five fixed tools keyed by name, and translates them
// into the llms.ToolDefinition shape a Provider needs to advertise them.
type Registry struct {
	inner *registry.BaseRegistry[Tool]
}

// NewRegistry builds an empty Registry.
func NewRegistry() *Registry {
	return &Registry{inner: registry.NewBaseRegistry[Tool]()}
}

// Register adds t under its own Name().
func (r *Registry) Register(t Tool) error {
	return r.inner.Register(t.Name(), t)
}

// Get looks up a tool by name.
func (r *Registry) Get(name string) (Tool, bool) {
	return r.inner.Get(name)
}

// Definitions returns every registered tool as an llms.ToolDefinition,
// sorted by name, for handing to Provider.CompleteWithTools.
func (r *Registry) Definitions() []llms.ToolDefinition {
	names := r.inner.Names()
	sort.Strings(names)
	defs := make([]llms.ToolDefinition, 0, len(names))
	for _, name := range names {
		t, ok := r.inner.Get(name)
		if !ok {
			continue
		}
		defs = append(defs, llms.ToolDefinition{
			Name:        t.Name(),
			Description: t.Description(),
			Parameters:  t.Schema(),
		})
	}
	return defs
}

// Dispatch looks up a tool by name and calls it, returning the canonical
// {"success": false, "error": "..."} shape if the name is unknown.
func (r *Registry) Dispatch(ctx Context, name string, args map[string]any) map[string]any {
	start := time.Now()
	t, ok := r.Get(name)
	if !ok {
		observability.GlobalMetrics().ObserveToolCall(name, time.Since(start).Seconds(), false)
		return errorResult(fmt.Errorf("unknown tool %q", name))
	}
	result, err := t.Call(ctx, args)
	if err != nil {
		observability.GlobalMetrics().ObserveToolCall(name, time.Since(start).Seconds(), false)
		return errorResult(err)
	}
	success, _ := result["success"].(bool)
	observability.GlobalMetrics().ObserveToolCall(name, time.Since(start).Seconds(), success)
	return result
}
