package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// Todo statuses
const (
	TodoPending    = "pending"
	TodoInProgress = "in_progress"
	TodoCompleted  = "completed"
)

// TodoItem is one task in the in-memory task list
type TodoItem struct {
	ID          int       `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TodoStore holds the task list for one session. It is in-memory only;
// the list dies with the process.
type TodoStore struct {
	mu     sync.Mutex
	todos  map[int]*TodoItem
	nextID int
}

// NewTodoStore creates an empty todo store
func NewTodoStore() *TodoStore {
	return &TodoStore{todos: make(map[int]*TodoItem), nextID: 1}
}

// Create adds a new pending item and returns it.
func (s *TodoStore) Create(title, description string) *TodoItem {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	item := &TodoItem{
		ID:          s.nextID,
		Title:       title,
		Description: description,
		Status:      TodoPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	s.todos[item.ID] = item
	s.nextID++
	return item
}

// SetStatus updates an item's status.
func (s *TodoStore) SetStatus(id int, status string) (*TodoItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.todos[id]
	if !ok {
		return nil, fmt.Errorf("todo #%d not found", id)
	}
	item.Status = status
	item.UpdatedAt = time.Now()
	return item, nil
}

// List returns items filtered by status ("all" returns everything),
// sorted by id.
func (s *TodoStore) List(status string) []*TodoItem {
	s.mu.Lock()
	defer s.mu.Unlock()

	var items []*TodoItem
	for _, item := range s.todos {
		if status == "all" || status == "" || item.Status == status {
			items = append(items, item)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	return items
}

// Progress returns completed count, total count, and percentage.
func (s *TodoStore) Progress() (completed, total, percent int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	total = len(s.todos)
	for _, item := range s.todos {
		if item.Status == TodoCompleted {
			completed++
		}
	}
	if total > 0 {
		percent = completed * 100 / total
	}
	return completed, total, percent
}

// Clear removes all items and returns how many there were.
func (s *TodoStore) Clear() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := len(s.todos)
	s.todos = make(map[int]*TodoItem)
	s.nextID = 1
	return count
}

func validTodoStatus(status string) bool {
	switch status {
	case TodoPending, TodoInProgress, TodoCompleted:
		return true
	}
	return false
}

// TodoTool lets the model manage its own task list while working
type TodoTool struct {
	store *TodoStore
}

// NewTodoTool creates a todo tool over a shared store
func NewTodoTool(store *TodoStore) *TodoTool {
	return &TodoTool{store: store}
}

// Name returns the tool name
func (t *TodoTool) Name() string {
	return "todo"
}

// Description returns the tool description
func (t *TodoTool) Description() string {
	return `Manage the task list for the current job.
Actions:
- create: add a new task (title required)
- list: show tasks, optionally filtered by status
- update: change a task's status (pending, in_progress, completed)
- clear: remove all tasks`
}

// Schema returns the JSON schema for the tool input
func (t *TodoTool) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"action": {
				"type": "string",
				"description": "One of: create, list, update, clear"
			},
			"title": {
				"type": "string",
				"description": "Task title for create"
			},
			"description": {
				"type": "string",
				"description": "Optional task details for create"
			},
			"id": {
				"type": "integer",
				"description": "Task id for update"
			},
			"status": {
				"type": "string",
				"description": "Status filter for list or new status for update"
			}
		},
		"required": ["action"]
	}`)
}

// TodoInput represents the tool input
type TodoInput struct {
	Action      string `json:"action"`
	Title       string `json:"title"`
	Description string `json:"description"`
	ID          int    `json:"id"`
	Status      string `json:"status"`
}

// Execute dispatches on the action
func (t *TodoTool) Execute(ctx context.Context, input json.RawMessage) (*ToolResult, error) {
	var in TodoInput
	if err := json.Unmarshal(input, &in); err != nil {
		return nil, fmt.Errorf("invalid input: %w", err)
	}

	switch in.Action {
	case "create":
		if in.Title == "" {
			return errorResult("title is required"), nil
		}
		item := t.store.Create(in.Title, in.Description)
		return textResult(fmt.Sprintf("created todo #%d: %s", item.ID, item.Title)), nil

	case "list":
		status := in.Status
		if status == "" {
			status = "all"
		}
		if status != "all" && !validTodoStatus(status) {
			return errorResult(fmt.Sprintf("invalid status %q (all, pending, in_progress, completed)", status)), nil
		}
		items := t.store.List(status)
		if len(items) == 0 {
			return textResult("the todo list is empty"), nil
		}
		completed, total, percent := t.store.Progress()
		lines := []string{fmt.Sprintf("todo list (%d/%d done, %d%%)", completed, total, percent)}
		for _, item := range items {
			lines = append(lines, fmt.Sprintf("[%d] (%s) %s", item.ID, item.Status, item.Title))
		}
		return textResult(strings.Join(lines, "\n")), nil

	case "update":
		if !validTodoStatus(in.Status) {
			return errorResult(fmt.Sprintf("invalid status %q (pending, in_progress, completed)", in.Status)), nil
		}
		item, err := t.store.SetStatus(in.ID, in.Status)
		if err != nil {
			return errorResult(err.Error()), nil
		}
		completed, total, percent := t.store.Progress()
		return textResult(fmt.Sprintf("[%d] %s is now %s (%d/%d done, %d%%)",
			item.ID, item.Title, item.Status, completed, total, percent)), nil

	case "clear":
		count := t.store.Clear()
		return textResult(fmt.Sprintf("removed %d todos", count)), nil

	default:
		return errorResult(fmt.Sprintf("unknown action: %s (valid: create, list, update, clear)", in.Action)), nil
	}
}
