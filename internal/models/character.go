package models

// VoiceProfile drives speech synthesis for a character
type VoiceProfile struct {
	Rate  float64 `json:"rate" yaml:"rate"`
	Pitch float64 `json:"pitch" yaml:"pitch"`
	Voice string  `json:"voice" yaml:"voice"`
}

// VisualEffects describes the decoration a UI draws around a character
type VisualEffects struct {
	Particles  string `json:"particles" yaml:"particles"`
	Background string `json:"background" yaml:"background"`
	Color      string `json:"color" yaml:"color"`
}

// Character is a persona definition. Its ID partitions chat history.
type Character struct {
	ID            string            `json:"id" yaml:"id"`
	Name          string            `json:"name" yaml:"name"`
	Avatar        string            `json:"avatar" yaml:"avatar"`
	Personality   string            `json:"personality" yaml:"personality"`
	Description   string            `json:"description" yaml:"description"`
	ThemeColor    string            `json:"themeColor" yaml:"themeColor"`
	Prompt        string            `json:"prompt" yaml:"prompt"`
	VoiceSettings VoiceProfile      `json:"voiceSettings" yaml:"voiceSettings"`
	Expressions   map[string]string `json:"expressions" yaml:"expressions"`
	VisualEffects VisualEffects     `json:"visualEffects" yaml:"visualEffects"`
}

// DisplayName is the speaker label used in prompts
func (c *Character) DisplayName() string {
	if c == nil || c.Name == "" {
		return "Assistant"
	}
	return c.Name
}

// Theme is the color scheme a UI applies for a character
type Theme struct {
	Primary string `json:"primary"`
}

// DefaultTheme is used when no character is selected
var DefaultTheme = Theme{Primary: "#3b82f6"}

// ThemeOf returns c's theme, or DefaultTheme for nil
func ThemeOf(c *Character) Theme {
	if c == nil || c.ThemeColor == "" {
		return DefaultTheme
	}
	return Theme{Primary: c.ThemeColor}
}
