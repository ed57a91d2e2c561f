package tools

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/UH3135/cli-master/internal/ai"
	"github.com/UH3135/cli-master/internal/db"
	"github.com/UH3135/cli-master/internal/logging"
)

// Tool categories
const (
	CategoryFilesystem = "filesystem"
	CategoryCustom     = "custom"
	CategoryTodo       = "todo"
	CategorySearch     = "search"
)

// Registry manages available tools
type Registry struct {
	mu         sync.RWMutex
	tools      map[string]Tool
	categories map[string]map[string]bool
	disabled   map[string]bool
}

// NewRegistry creates an empty tool registry
func NewRegistry() *Registry {
	return &Registry{
		tools:      make(map[string]Tool),
		categories: make(map[string]map[string]bool),
		disabled:   make(map[string]bool),
	}
}

// Register adds a tool under a category. Registering an existing name
// fails unless replace is set.
func (r *Registry) Register(tool Tool, category string, replace bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := tool.Name()
	if _, exists := r.tools[name]; exists && !replace {
		return fmt.Errorf("tool %q is already registered", name)
	}

	r.tools[name] = tool
	if r.categories[category] == nil {
		r.categories[category] = make(map[string]bool)
	}
	r.categories[category][name] = true

	logging.Debugf("registered tool %s (category: %s)", name, category)
	return nil
}

// RegisterAll registers several tools under one category.
func (r *Registry) RegisterAll(category string, tools ...Tool) error {
	for _, tool := range tools {
		if err := r.Register(tool, category, false); err != nil {
			return err
		}
	}
	return nil
}

// Unregister removes a tool by name.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.tools, name)
	delete(r.disabled, name)
	for _, names := range r.categories {
		delete(names, name)
	}
}

// Disable hides a tool from listings and execution without removing it.
func (r *Registry) Disable(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.disabled[name] = true
}

// Enable re-activates a disabled tool.
func (r *Registry) Enable(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.disabled, name)
}

// Get returns an enabled tool by name.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.disabled[name] {
		return nil, false
	}
	tool, ok := r.tools[name]
	return tool, ok
}

// List returns all enabled tools as AI tool definitions, sorted by name.
func (r *Registry) List() []ai.ToolDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	defs := make([]ai.ToolDefinition, 0, len(r.tools))
	for name, tool := range r.tools {
		if r.disabled[name] {
			continue
		}
		defs = append(defs, ai.ToolDefinition{
			Name:        tool.Name(),
			Description: tool.Description(),
			InputSchema: tool.Schema(),
		})
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].Name < defs[j].Name })
	return defs
}

// ByCategory returns the enabled tools in a category, sorted by name.
func (r *Registry) ByCategory(category string) []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []Tool
	for name := range r.categories[category] {
		if r.disabled[name] {
			continue
		}
		if tool, ok := r.tools[name]; ok {
			result = append(result, tool)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name() < result[j].Name() })
	return result
}

// Execute runs a tool and returns the result. Unknown or disabled
// tools produce an error result listing what is available, so the
// model can self-correct.
func (r *Registry) Execute(ctx context.Context, toolCall *db.ToolCall) *ToolResult {
	r.mu.RLock()
	tool, ok := r.tools[toolCall.Name]
	disabled := r.disabled[toolCall.Name]
	r.mu.RUnlock()

	if !ok || disabled {
		r.mu.RLock()
		available := make([]string, 0, len(r.tools))
		for name := range r.tools {
			if !r.disabled[name] {
				available = append(available, name)
			}
		}
		r.mu.RUnlock()
		sort.Strings(available)

		return errorResult(fmt.Sprintf(
			"tool %q does not exist. Available tools: %s",
			toolCall.Name, strings.Join(available, ", ")))
	}

	logging.Debugf("executing tool: %s", toolCall.Name)

	result, err := tool.Execute(ctx, toolCall.Input)
	if err != nil {
		return errorResult(fmt.Sprintf("tool %s failed: %v", toolCall.Name, err))
	}
	return result
}
