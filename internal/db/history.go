package db

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Role labels who produced a history entry.
const (
	RoleUser = "user"
	RoleAI   = "ai"
)

// Entry is a single line of conversation history.
type Entry struct {
	ID        int64     `json:"id"`
	SessionID string    `json:"session_id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// History stores the conversation for one session. Each process run
// gets its own session id; older sessions stay queryable by id.
type History struct {
	db        *sql.DB
	sessionID string
}

// NewHistory creates a history scoped to a fresh session.
func NewHistory(store *Store) *History {
	return &History{db: store.DB(), sessionID: uuid.NewString()}
}

// NewHistoryForSession attaches to an existing session id.
func NewHistoryForSession(store *Store, sessionID string) *History {
	return &History{db: store.DB(), sessionID: sessionID}
}

// SessionID returns the session this history writes to.
func (h *History) SessionID() string {
	return h.sessionID
}

// Append records a user message.
func (h *History) Append(content string) error {
	return h.append(RoleUser, content)
}

// AppendAI records a model response.
func (h *History) AppendAI(content string) error {
	return h.append(RoleAI, content)
}

func (h *History) append(role, content string) error {
	_, err := h.db.Exec(
		`INSERT INTO history (session_id, role, content) VALUES (?, ?, ?)`,
		h.sessionID, role, content,
	)
	if err != nil {
		return fmt.Errorf("failed to append history: %w", err)
	}
	return nil
}

// All returns every entry for this session in insertion order.
func (h *History) All() ([]Entry, error) {
	return h.query(
		`SELECT id, session_id, role, content, created_at FROM history WHERE session_id = ? ORDER BY id`,
		h.sessionID,
	)
}

// AllWithRole returns this session's entries for one role, in
// insertion order.
func (h *History) AllWithRole(role string) ([]Entry, error) {
	return h.query(
		`SELECT id, session_id, role, content, created_at FROM history
		 WHERE session_id = ? AND role = ? ORDER BY id`,
		h.sessionID, role,
	)
}

// Strings returns this session's entries as "role: content" lines.
func (h *History) Strings() ([]string, error) {
	entries, err := h.All()
	if err != nil {
		return nil, err
	}
	lines := make([]string, 0, len(entries))
	for _, e := range entries {
		lines = append(lines, e.Role+": "+e.Content)
	}
	return lines, nil
}

// Search returns this session's entries whose content contains the
// given substring.
func (h *History) Search(term string) ([]Entry, error) {
	return h.query(
		`SELECT id, session_id, role, content, created_at FROM history
		 WHERE session_id = ? AND content LIKE ? ORDER BY id`,
		h.sessionID, "%"+term+"%",
	)
}

// Clear removes every entry for this session.
func (h *History) Clear() error {
	_, err := h.db.Exec(`DELETE FROM history WHERE session_id = ?`, h.sessionID)
	if err != nil {
		return fmt.Errorf("failed to clear history: %w", err)
	}
	return nil
}

func (h *History) query(q string, args ...any) ([]Entry, error) {
	rows, err := h.db.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.SessionID, &e.Role, &e.Content, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan history row: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
