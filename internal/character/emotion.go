package character

import (
	"math/rand/v2"
	"strings"
)

// Emotion tags understood by the expression tables
const (
	EmotionThinking   = "thinking"
	EmotionHappy      = "happy"
	EmotionSurprised  = "surprised"
	EmotionConfused   = "confused"
	EmotionWise       = "wise"
	EmotionExcited    = "excited"
	EmotionSerious    = "serious"
	EmotionMysterious = "mysterious"
	EmotionLaughing   = "laughing"
	EmotionGreeting   = "greeting"
	EmotionDefault    = "default"
)

// FallbackExpression is shown for characters without a table
const FallbackExpression = "🤖"

type emotionPattern struct {
	emotion  string
	keywords []string
}

// checked in order, first hit wins
var emotionPatterns = []emotionPattern{
	{EmotionThinking, []string{"hmm", "think", "consider", "ponder", "wonder", "perhaps", "maybe", "let me think", "i believe", "it seems", "possibly", "might be"}},
	{EmotionHappy, []string{"happy", "joy", "wonderful", "excellent", "great", "fantastic", "delighted", "pleased", "cheerful", "glad", "smile", "laugh"}},
	{EmotionSurprised, []string{"wow", "amazing", "incredible", "astonishing", "remarkable", "extraordinary", "unexpected", "surprise", "shocking", "unbelievable"}},
	{EmotionConfused, []string{"confused", "puzzled", "strange", "odd", "peculiar", "curious", "what do you mean", "i don't understand", "unclear", "perplexing"}},
	{EmotionWise, []string{"wisdom", "knowledge", "experience", "ancient", "learned", "understand", "know", "wise", "sage", "enlightened"}},
	{EmotionExcited, []string{"exciting", "thrilling", "adventure", "amazing", "awesome", "fantastic", "incredible", "energy", "enthusiastic", "pumped"}},
	{EmotionSerious, []string{"serious", "important", "grave", "critical", "urgent", "dangerous", "warning", "careful", "beware", "solemn"}},
	{EmotionMysterious, []string{"mystery", "secret", "hidden", "unknown", "enigma", "whisper", "shadow", "ancient", "forbidden", "cryptic"}},
	{EmotionLaughing, []string{"haha", "hehe", "lol", "funny", "hilarious", "amusing", "chuckle", "giggle", "jest", "joke", "humor"}},
	{EmotionGreeting, []string{"hello", "hi", "greetings", "welcome", "good day", "salutations", "nice to meet", "pleasure", "howdy", "hey"}},
}

var expressionTables = map[string]map[string]string{
	Gandalf: {
		EmotionThinking:   "🤔",
		EmotionHappy:      "😊",
		EmotionSurprised:  "😮",
		EmotionConfused:   "🤨",
		EmotionWise:       "🧙‍♂️",
		EmotionExcited:    "✨",
		EmotionSerious:    "😤",
		EmotionMysterious: "🌟",
		EmotionLaughing:   "😄",
		EmotionGreeting:   "👋",
		EmotionDefault:    "🧙‍♂️",
	},
	Sherlock: {
		EmotionThinking:   "🤔",
		EmotionHappy:      "😏",
		EmotionSurprised:  "😯",
		EmotionConfused:   "🧐",
		EmotionWise:       "🕵️‍♂️",
		EmotionExcited:    "💡",
		EmotionSerious:    "😠",
		EmotionMysterious: "🔍",
		EmotionLaughing:   "😂",
		EmotionGreeting:   "🎩",
		EmotionDefault:    "🕵️‍♂️",
	},
	AlienDJ: {
		EmotionThinking:   "🤖",
		EmotionHappy:      "😎",
		EmotionSurprised:  "🛸",
		EmotionConfused:   "👽",
		EmotionWise:       "🌌",
		EmotionExcited:    "🎵",
		EmotionSerious:    "⚡",
		EmotionMysterious: "🌠",
		EmotionLaughing:   "😆",
		EmotionGreeting:   "🚀",
		EmotionDefault:    "👽",
	},
}

var expressionVariations = map[string]map[string][]string{
	Gandalf: {
		EmotionThinking:   {"🤔", "🧙‍♂️", "💭", "🌟"},
		EmotionWise:       {"🧙‍♂️", "✨", "🌟", "📚"},
		EmotionMysterious: {"🌟", "✨", "🔮", "🌙"},
	},
	Sherlock: {
		EmotionThinking:   {"🤔", "🧐", "💭", "🔍"},
		EmotionWise:       {"🕵️‍♂️", "🧐", "💡", "📖"},
		EmotionMysterious: {"🔍", "🔎", "🕵️‍♂️", "💡"},
	},
	AlienDJ: {
		EmotionThinking:   {"🤖", "👽", "💭", "🛸"},
		EmotionExcited:    {"🎵", "🎶", "🚀", "⚡"},
		EmotionMysterious: {"🌠", "🛸", "🌌", "👽"},
	},
}

// DetectEmotion classifies text into an emotion tag
func DetectEmotion(text string) string {
	if text == "" {
		return EmotionDefault
	}
	lower := strings.ToLower(text)

	for _, p := range emotionPatterns {
		for _, kw := range p.keywords {
			if strings.Contains(lower, kw) {
				return p.emotion
			}
		}
	}

	if strings.Contains(lower, "?") ||
		strings.HasPrefix(lower, "what") ||
		strings.HasPrefix(lower, "how") ||
		strings.HasPrefix(lower, "why") {
		return EmotionThinking
	}

	if strings.Contains(lower, "!") && !strings.Contains(lower, "warning") && !strings.Contains(lower, "danger") {
		return EmotionExcited
	}

	return EmotionDefault
}

// Expression maps an emotion to characterID's glyph
func Expression(characterID, emotion string) string {
	table, ok := expressionTables[characterID]
	if !ok {
		return FallbackExpression
	}
	if glyph, ok := table[emotion]; ok {
		return glyph
	}
	return table[EmotionDefault]
}

// DetectExpression is DetectEmotion followed by Expression
func DetectExpression(text, characterID string) string {
	return Expression(characterID, DetectEmotion(text))
}

// TypingExpression is the glyph shown while a reply is pending
func TypingExpression(characterID string) string {
	return Expression(characterID, EmotionThinking)
}

// ExpressionVariation picks a random alternative glyph when characterID has
// a variation set for emotion, and the table glyph otherwise.
func ExpressionVariation(characterID, emotion string) string {
	if options := expressionVariations[characterID][emotion]; len(options) > 0 {
		return options[rand.IntN(len(options))]
	}
	return Expression(characterID, emotion)
}

var questionPrefixes = []string{
	"what", "how", "why", "when", "where", "who",
	"can you", "could you", "would you", "do you", "are you", "is it", "tell me",
}

// IsQuestion reports whether the user text reads as a question
func IsQuestion(text string) bool {
	lower := strings.TrimSpace(strings.ToLower(text))
	if lower == "" {
		return false
	}
	if strings.Contains(lower, "?") {
		return true
	}
	for _, p := range questionPrefixes {
		if strings.HasPrefix(lower, p) {
			return true
		}
	}
	return false
}
