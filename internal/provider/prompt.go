package provider

import (
	"strings"

	"roleplay-chat/backend/internal/models"
)

// MaxHistory is how many prior messages a standard prompt carries
const MaxHistory = 10

// WarmupPrompt is sent by health checks and fast-path pre-warming
const WarmupPrompt = "Hello"

const defaultFastPersona = "gandalf"

var fastPersonas = map[string]string{
	"gandalf":  `You are Gandalf. Speak wisely and briefly in 1-2 sentences. Use "my dear fellow" and old English.`,
	"sherlock": `You are Sherlock Holmes. Be analytical and brief in 1-2 sentences. Use "Elementary" and Victorian speech.`,
	"alien-dj": `You are Zyx, alien DJ. Be cool and brief in 1-2 sentences. Use "cosmic" and "dude" with space slang.`,
}

// BuildPrompt renders persona, the last MaxHistory turns and the new message.
// System messages are not part of the transcript the model sees.
func BuildPrompt(text string, ch *models.Character, history []models.Message) string {
	var b strings.Builder
	name := ch.DisplayName()

	if ch != nil && ch.Prompt != "" {
		b.WriteString(ch.Prompt)
		b.WriteString("\n\n")
	}

	if len(history) > 0 {
		if len(history) > MaxHistory {
			history = history[len(history)-MaxHistory:]
		}
		b.WriteString("Previous conversation:\n")
		for _, msg := range history {
			switch msg.Sender {
			case models.SenderUser:
				b.WriteString("Human: ")
			case models.SenderAI:
				b.WriteString(name)
				b.WriteString(": ")
			default:
				continue
			}
			b.WriteString(msg.Text)
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	b.WriteString("Human: ")
	b.WriteString(text)
	b.WriteString("\n")
	b.WriteString(name)
	b.WriteString(":")
	return b.String()
}

// FastPersona returns the one-line persona for characterID
func FastPersona(characterID string) string {
	if p, ok := fastPersonas[characterID]; ok {
		return p
	}
	return fastPersonas[defaultFastPersona]
}

// BuildFastPrompt renders the history-free prompt of the fast path
func BuildFastPrompt(text string, ch *models.Character) string {
	id := ""
	if ch != nil {
		id = ch.ID
	}
	return FastPersona(id) + "\n\nHuman: " + text + "\n" + ch.DisplayName() + ":"
}
