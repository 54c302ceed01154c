package speech

import (
	"strconv"

	"roleplay-chat/backend/internal/models"
)

// Voice is the set of parameters sent to a synthesizer
type Voice struct {
	Voice string  `json:"voice"`
	Speed float64 `json:"speed"`
	Pitch float64 `json:"pitch"`
}

const (
	// DefaultRate is the built-in synthesizer's rate when none is given
	DefaultRate = 0.9
	// FallbackVolume is the built-in synthesizer's output level
	FallbackVolume = 0.8

	cacheKeyPrefix = 50
)

var fastVoices = map[string]Voice{
	"gandalf":  {Voice: "male-deep", Speed: 1.0, Pitch: 0.8},
	"sherlock": {Voice: "male-british", Speed: 1.1, Pitch: 0.9},
	"alien-dj": {Voice: "male-robotic", Speed: 1.2, Pitch: 1.1},
}

// FastVoice returns the demo voice for characterID, gandalf's for unknown ids
func FastVoice(characterID string) Voice {
	if v, ok := fastVoices[characterID]; ok {
		return v
	}
	return fastVoices["gandalf"]
}

// ProfileVoice converts a character voice profile, filling gaps with defaults
func ProfileVoice(p models.VoiceProfile) Voice {
	v := Voice{Voice: p.Voice, Speed: p.Rate, Pitch: p.Pitch}
	if v.Voice == "" {
		v.Voice = "male-deep"
	}
	if v.Speed == 0 {
		v.Speed = 1.0
	}
	if v.Pitch == 0 {
		v.Pitch = 1.0
	}
	return v
}

// CharacterVoice is ProfileVoice for ch, or gandalf's demo voice for nil
func CharacterVoice(ch *models.Character) Voice {
	if ch == nil {
		return FastVoice("")
	}
	return ProfileVoice(ch.VoiceSettings)
}

// CacheKey identifies a clip by text prefix, voice and speed
func CacheKey(text string, v Voice) string {
	return truncate(text, cacheKeyPrefix) + "_" + v.Voice + "_" + strconv.FormatFloat(v.Speed, 'f', -1, 64)
}

func truncate(s string, n int) string {
	if n <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
