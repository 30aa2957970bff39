package model

import "time"

type MessageRole string

const (
	MessageRoleUser      MessageRole = "user"
	MessageRoleAssistant MessageRole = "assistant"
	MessageRoleSystem    MessageRole = "system"
)

// DefaultHistoryCapacity keeps the last ten user/assistant exchanges.
const DefaultHistoryCapacity = 20

type ChatTurn struct {
	Role      MessageRole `json:"role"`
	Content   string      `json:"content"`
	Timestamp time.Time   `json:"timestamp"`
}

func NewChatTurn(role MessageRole, content string) ChatTurn {
	return ChatTurn{
		Role:      role,
		Content:   content,
		Timestamp: time.Now().UTC(),
	}
}

// ConversationHistory is a bounded FIFO of chat turns. It is not safe for
// concurrent use; the owner serialises access.
type ConversationHistory struct {
	turns    []ChatTurn
	capacity int
}

// NewConversationHistory returns an empty history. A capacity below one
// falls back to DefaultHistoryCapacity.
func NewConversationHistory(capacity int) *ConversationHistory {
	if capacity < 1 {
		capacity = DefaultHistoryCapacity
	}
	return &ConversationHistory{
		turns:    make([]ChatTurn, 0, capacity),
		capacity: capacity,
	}
}

// Append adds turns in order, evicting the oldest entries once full.
func (h *ConversationHistory) Append(turns ...ChatTurn) {
	for _, t := range turns {
		if len(h.turns) == h.capacity {
			copy(h.turns, h.turns[1:])
			h.turns = h.turns[:len(h.turns)-1]
		}
		h.turns = append(h.turns, t)
	}
}

// Turns returns a copy, oldest first.
func (h *ConversationHistory) Turns() []ChatTurn {
	out := make([]ChatTurn, len(h.turns))
	copy(out, h.turns)
	return out
}

func (h *ConversationHistory) Len() int { return len(h.turns) }

func (h *ConversationHistory) Cap() int { return h.capacity }

func (h *ConversationHistory) Reset() {
	h.turns = h.turns[:0]
}
