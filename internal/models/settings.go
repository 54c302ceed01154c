package models

// Provider identifiers accepted in Settings.APIProvider
const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
	ProviderLocal  = "local"
)

// Settings are the user preferences persisted across restarts
type Settings struct {
	TTSEnabled  bool   `json:"ttsEnabled"`
	AutoScroll  bool   `json:"autoScroll"`
	DarkMode    bool   `json:"darkMode"`
	APIProvider string `json:"apiProvider"`
}

// DefaultSettings are applied before any stored values
func DefaultSettings() Settings {
	return Settings{
		TTSEnabled:  false,
		AutoScroll:  true,
		DarkMode:    false,
		APIProvider: ProviderGemini,
	}
}

// SettingsPatch is a partial update. Nil fields are left unchanged.
type SettingsPatch struct {
	TTSEnabled  *bool   `json:"ttsEnabled,omitempty"`
	AutoScroll  *bool   `json:"autoScroll,omitempty"`
	DarkMode    *bool   `json:"darkMode,omitempty"`
	APIProvider *string `json:"apiProvider,omitempty"`
}

// Empty reports whether the patch changes nothing
func (p SettingsPatch) Empty() bool {
	return p.TTSEnabled == nil && p.AutoScroll == nil && p.DarkMode == nil && p.APIProvider == nil
}

// Apply shallow-merges p onto s
func (s Settings) Apply(p SettingsPatch) Settings {
	if p.TTSEnabled != nil {
		s.TTSEnabled = *p.TTSEnabled
	}
	if p.AutoScroll != nil {
		s.AutoScroll = *p.AutoScroll
	}
	if p.DarkMode != nil {
		s.DarkMode = *p.DarkMode
	}
	if p.APIProvider != nil {
		s.APIProvider = *p.APIProvider
	}
	return s
}
