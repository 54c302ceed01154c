// Package ws defines the JSON envelopes exchanged over the conversation
// WebSocket.
package ws

import "encoding/json"

// Message types sent by clients
const (
	TypeChat       = "chat"
	TypeSelect     = "select"
	TypeClear      = "clear"
	TypeClearError = "clear_error"
	TypeStopSpeech = "stop_speech"
	TypePing       = "ping"
)

// Message types sent by the server
const (
	TypeState   = "state"
	TypeMessage = "message"
	TypeChunk   = "chunk"
	TypeError   = "error"
	TypePong    = "pong"
)

// Envelope wraps every frame in both directions
type Envelope struct {
	Type    string          `json:"type"`
	Content json.RawMessage `json:"content,omitempty"`
}

// ChatContent is the content of a chat frame
type ChatContent struct {
	Text string `json:"text"`
}

// SelectContent is the content of a select frame
type SelectContent struct {
	CharacterID string `json:"characterId"`
}

// ChunkContent is a streamed fragment of the pending reply
type ChunkContent struct {
	Chunk string `json:"chunk"`
	Text  string `json:"text"`
}

// ErrorContent reports a rejected frame
type ErrorContent struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// NewEnvelope encodes content into an envelope of type t
func NewEnvelope(t string, content any) (Envelope, error) {
	if content == nil {
		return Envelope{Type: t}, nil
	}
	raw, err := json.Marshal(content)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{Type: t, Content: raw}, nil
}
