package conversation

import (
	"roleplay-chat/backend/internal/models"
)

// State is a snapshot of one conversation
type State struct {
	Character *models.Character `json:"character"`
	Messages  []models.Message  `json:"messages"`
	Loading   bool              `json:"isLoading"`
	Typing    bool              `json:"isTyping"`
	Error     string            `json:"error,omitempty"`
	Settings  models.Settings   `json:"settings"`
}

func (s State) clone() State {
	cp := s
	cp.Messages = models.CloneMessages(s.Messages)
	if s.Character != nil {
		ch := *s.Character
		cp.Character = &ch
	}
	return cp
}

// EventType names what changed
type EventType string

const (
	// EventState carries a full snapshot after every transition
	EventState EventType = "state"
	// EventMessage carries a message appended to the list
	EventMessage EventType = "message"
	// EventChunk carries a streamed fragment of a pending reply
	EventChunk EventType = "chunk"
)

// Event is delivered to subscribers
type Event struct {
	Type    EventType       `json:"type"`
	State   *State          `json:"state,omitempty"`
	Message *models.Message `json:"message,omitempty"`
	Chunk   string          `json:"chunk,omitempty"`
	Text    string          `json:"text,omitempty"`
}
