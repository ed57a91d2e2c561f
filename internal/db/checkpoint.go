package db

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// Message is one turn of an agent conversation, including any tool
// activity, persisted so a thread can be resumed mid-task.
type Message struct {
	ID          int64           `json:"id,omitempty"`
	ThreadID    string          `json:"thread_id"`
	Role        string          `json:"role"` // user, assistant, system, tool
	Content     string          `json:"content,omitempty"`
	ToolCalls   json.RawMessage `json:"tool_calls,omitempty"`
	ToolResults json.RawMessage `json:"tool_results,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

// ToolCall describes a tool invocation requested by the model.
type ToolCall struct {
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	Input json.RawMessage `json:"input"`
}

// ToolResult is the outcome of one tool call.
type ToolResult struct {
	ToolCallID string `json:"tool_call_id"`
	Content    string `json:"content"`
	IsError    bool   `json:"is_error,omitempty"`
}

// Checkpoints persists agent conversation threads.
type Checkpoints struct {
	db *sql.DB
}

// NewCheckpoints creates a checkpoint store on the shared connection.
func NewCheckpoints(store *Store) *Checkpoints {
	return &Checkpoints{db: store.DB()}
}

// AppendMessage saves one message to a thread.
func (c *Checkpoints) AppendMessage(threadID string, msg Message) error {
	_, err := c.db.Exec(
		`INSERT INTO checkpoints (thread_id, role, content, tool_calls, tool_results)
		 VALUES (?, ?, ?, ?, ?)`,
		threadID, msg.Role, msg.Content, nullRaw(msg.ToolCalls), nullRaw(msg.ToolResults),
	)
	if err != nil {
		return fmt.Errorf("failed to append checkpoint: %w", err)
	}
	return nil
}

// Messages returns a thread's messages in insertion order. limit <= 0
// returns everything.
func (c *Checkpoints) Messages(threadID string, limit int) ([]Message, error) {
	q := `SELECT id, thread_id, role, content, tool_calls, tool_results, created_at
	      FROM checkpoints WHERE thread_id = ? ORDER BY id`
	args := []any{threadID}
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := c.db.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query checkpoints: %w", err)
	}
	defer rows.Close()

	var msgs []Message
	for rows.Next() {
		var m Message
		var content, calls, results sql.NullString
		if err := rows.Scan(&m.ID, &m.ThreadID, &m.Role, &content, &calls, &results, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan checkpoint row: %w", err)
		}
		m.Content = content.String
		if calls.Valid && calls.String != "" {
			m.ToolCalls = json.RawMessage(calls.String)
		}
		if results.Valid && results.String != "" {
			m.ToolResults = json.RawMessage(results.String)
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

// ClearThread deletes every message in a thread.
func (c *Checkpoints) ClearThread(threadID string) error {
	_, err := c.db.Exec(`DELETE FROM checkpoints WHERE thread_id = ?`, threadID)
	if err != nil {
		return fmt.Errorf("failed to clear thread: %w", err)
	}
	return nil
}

func nullRaw(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}
