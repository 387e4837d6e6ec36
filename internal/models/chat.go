package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
)

// MessageRole identifies who produced a chat message.
type MessageRole string

const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
)

// ChatMessage is one entry in a session's conversation. A message with
// IsLoading set is a provisional placeholder: it is created synchronously
// when a question is submitted and swapped in place (same list slot, new
// entry) once the answer or failure resolves.
type ChatMessage struct {
	ID        string      `json:"id"`
	Role      MessageRole `json:"role"`
	Content   string      `json:"content"`
	Timestamp int64       `json:"timestamp"`
	IsLoading bool        `json:"isLoading,omitempty"`
	IsError   bool        `json:"isError,omitempty"`
}

// MessageList is a JSON column wrapper preserving submission order.
type MessageList []ChatMessage

// Value implements driver.Valuer for MessageList
func (l MessageList) Value() (driver.Value, error) {
	if l == nil {
		return nil, nil
	}
	return json.Marshal(l)
}

// Scan implements sql.Scanner for MessageList
func (l *MessageList) Scan(value interface{}) error {
	if value == nil {
		*l = nil
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return errors.New("type assertion to []byte failed")
	}
	return json.Unmarshal(bytes, l)
}
