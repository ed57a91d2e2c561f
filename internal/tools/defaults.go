package tools

import (
	"github.com/UH3135/cli-master/internal/safepath"
)

// DefaultRegistry builds a registry with the standard tool set wired
// to the given validator. The todo store is returned so other parts
// can read progress.
func DefaultRegistry(validator *safepath.Validator, confirm Confirmer) (*Registry, *TodoStore, error) {
	r := NewRegistry()
	todos := NewTodoStore()

	if err := r.RegisterAll(CategoryFilesystem,
		NewCatTool(validator),
		NewTreeTool(validator),
		NewFileTool(validator, confirm),
	); err != nil {
		return nil, nil, err
	}
	if err := r.RegisterAll(CategorySearch, NewGrepTool(validator)); err != nil {
		return nil, nil, err
	}
	if err := r.RegisterAll(CategoryTodo, NewTodoTool(todos)); err != nil {
		return nil, nil, err
	}

	return r, todos, nil
}
