package character

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "roleplay-chat/backend/pkg/errors"
)

func TestDefaultCatalog(t *testing.T) {
	c := Default()
	require.Equal(t, 3, c.Len())

	list := c.List()
	assert.Equal(t, []string{Gandalf, Sherlock, AlienDJ}, []string{list[0].ID, list[1].ID, list[2].ID})

	sherlock, ok := c.Get(Sherlock)
	require.True(t, ok)
	assert.Equal(t, "Sherlock Holmes", sherlock.Name)
	assert.Equal(t, "male-british", sherlock.VoiceSettings.Voice)
	assert.Equal(t, "🔎", sherlock.Expressions["deducing"])

	_, ok = c.Get("frodo")
	assert.False(t, ok)
}

func TestCatalogReturnsCopies(t *testing.T) {
	c := Default()
	g, _ := c.Get(Gandalf)
	g.Name = "Saruman"
	g.Expressions["default"] = "x"

	again, _ := c.Get(Gandalf)
	assert.Equal(t, "Gandalf the Grey", again.Name)
	assert.Equal(t, "🧙‍♂️", again.Expressions["default"])
}

func TestLookupUnknown(t *testing.T) {
	_, err := Default().Lookup("frodo")
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrCharacterNotFound))
}

func TestParseOverridesAndExtends(t *testing.T) {
	data := []byte(`
characters:
  - id: gandalf
    name: Gandalf the White
    prompt: You are Gandalf the White.
  - id: pirate
    name: Captain Flint
    avatar: "🏴‍☠️"
    prompt: You are a pirate captain.
    voiceSettings:
      rate: 1.1
      pitch: 0.9
      voice: male-deep
`)
	c, err := Parse(data)
	require.NoError(t, err)
	assert.Equal(t, 4, c.Len())

	g, _ := c.Get(Gandalf)
	assert.Equal(t, "Gandalf the White", g.Name)
	assert.Equal(t, Gandalf, c.List()[0].ID)

	p, ok := c.Get("pirate")
	require.True(t, ok)
	assert.Equal(t, 1.1, p.VoiceSettings.Rate)
}

func TestParseRejectsIncompleteEntries(t *testing.T) {
	_, err := Parse([]byte("characters:\n  - name: nobody\n    prompt: hi\n"))
	assert.Error(t, err)

	_, err = Parse([]byte("characters:\n  - id: x\n"))
	assert.Error(t, err)

	_, err = Parse([]byte("characters: [\n"))
	assert.Error(t, err)
}

func TestLoad(t *testing.T) {
	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 3, c.Len())

	path := filepath.Join(t.TempDir(), "chars.yaml")
	require.NoError(t, os.WriteFile(path, []byte("characters:\n  - id: bard\n    prompt: sing\n"), 0o644))
	c, err = Load(path)
	require.NoError(t, err)
	assert.Equal(t, 4, c.Len())

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestDetectEmotion(t *testing.T) {
	cases := map[string]string{
		"Hmm, interesting":            EmotionThinking,
		"I am so HAPPY":               EmotionHappy,
		"Wow":                         EmotionSurprised,
		"Beware the shadow":           EmotionSerious,
		"Greetings traveler":          EmotionGreeting,
		"Tell me about dragons?":      EmotionThinking,
		"Run now!":                    EmotionExcited,
		"Danger ahead!":               EmotionDefault,
		"Elementary, my dear fellow.": EmotionDefault,
		"":                            EmotionDefault,
	}
	for text, want := range cases {
		assert.Equal(t, want, DetectEmotion(text), text)
	}
}

func TestExpression(t *testing.T) {
	assert.Equal(t, "😮", Expression(Gandalf, EmotionSurprised))
	assert.Equal(t, "🧙‍♂️", Expression(Gandalf, "dancing"))
	assert.Equal(t, FallbackExpression, Expression("frodo", EmotionHappy))

	assert.Equal(t, "🎵", DetectExpression("Run now!", AlienDJ))
	assert.Equal(t, "🤖", TypingExpression(AlienDJ))
	assert.Equal(t, "🤔", TypingExpression(Sherlock))
}

func TestExpressionVariation(t *testing.T) {
	options := expressionVariations[Sherlock][EmotionThinking]
	for i := 0; i < 20; i++ {
		assert.Contains(t, options, ExpressionVariation(Sherlock, EmotionThinking))
	}
	assert.Equal(t, "😏", ExpressionVariation(Sherlock, EmotionHappy))
}

func TestIsQuestion(t *testing.T) {
	assert.True(t, IsQuestion("Where are you going"))
	assert.True(t, IsQuestion("  could you help"))
	assert.True(t, IsQuestion("really?"))
	assert.False(t, IsQuestion("Run now"))
	assert.False(t, IsQuestion("   "))
}
