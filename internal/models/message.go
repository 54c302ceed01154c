package models

import (
	"encoding/binary"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Sender identifies who produced a message
type Sender string

const (
	SenderUser   Sender = "user"
	SenderAI     Sender = "ai"
	SenderSystem Sender = "system"
)

// Message is one immutable entry of a conversation
type Message struct {
	ID          string    `json:"id"`
	Text        string    `json:"text"`
	Sender      Sender    `json:"sender"`
	Timestamp   time.Time `json:"timestamp"`
	CharacterID string    `json:"characterId,omitempty"`
}

// NewMessage builds a message stamped with now. Text is trimmed.
func NewMessage(sender Sender, text, characterID string, now time.Time) Message {
	return Message{
		ID:          NewMessageID(now),
		Text:        strings.TrimSpace(text),
		Sender:      sender,
		Timestamp:   now.UTC(),
		CharacterID: characterID,
	}
}

// NewMessageID returns "<unix millis>-<9 base36 chars>"
func NewMessageID(now time.Time) string {
	u := uuid.New()
	suffix := strconv.FormatUint(binary.BigEndian.Uint64(u[:8]), 36)
	for len(suffix) < 9 {
		suffix = "0" + suffix
	}
	return strconv.FormatInt(now.UnixMilli(), 10) + "-" + suffix[:9]
}

// CloneMessages returns a copy of msgs that shares no backing array
func CloneMessages(msgs []Message) []Message {
	if msgs == nil {
		return []Message{}
	}
	out := make([]Message, len(msgs))
	copy(out, msgs)
	return out
}
