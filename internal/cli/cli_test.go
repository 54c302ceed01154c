package cli

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"roleplay-chat/backend/pkg/config"
)

type harness struct {
	dir   string
	model *httptest.Server
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	model := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"response":"Elementary, my dear Watson."}`))
	}))
	t.Cleanup(model.Close)
	return &harness{dir: t.TempDir(), model: model}
}

func (h *harness) config() *config.Config {
	cfg := config.Load()
	cfg.Provider.Kind = "local"
	cfg.Provider.LocalModelURL = h.model.URL
	cfg.Provider.FastPrewarm = false
	cfg.Storage.Backend = "file"
	cfg.Storage.Path = h.dir
	cfg.Speech.URL = ""
	cfg.Defaults.TTSEnabled = false
	return cfg
}

// run executes the command tree with args and stdin, returning stdout
func (h *harness) run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	root := NewRootCommand(WithConfig(h.config))
	var out, errOut bytes.Buffer
	root.SetArgs(args)
	root.SetIn(strings.NewReader(stdin))
	root.SetOut(&out)
	root.SetErr(&errOut)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestCharacters(t *testing.T) {
	h := newHarness(t)
	out, err := h.run(t, "", "characters")
	require.NoError(t, err)
	assert.Contains(t, out, "Characters (3)")
	assert.Contains(t, out, "Gandalf the Grey")
	assert.Contains(t, out, "(sherlock)")
}

func TestChatPersistsHistory(t *testing.T) {
	h := newHarness(t)

	out, err := h.run(t, "Who are you?\n/quit\n", "chat", "--character", "sherlock")
	require.NoError(t, err)
	assert.Contains(t, out, "Sherlock Holmes is typing...")
	assert.Contains(t, out, "Elementary, my dear Watson.")

	out, err = h.run(t, "", "history", "show", "sherlock")
	require.NoError(t, err)
	assert.Contains(t, out, "2 messages")
	assert.Contains(t, out, "Who are you?")

	// chat without --character restores the last selection and its transcript
	out, err = h.run(t, "/quit\n", "chat")
	require.NoError(t, err)
	assert.Contains(t, out, "You: Who are you?")

	_, err = h.run(t, "", "history", "clear", "sherlock")
	require.NoError(t, err)
	out, err = h.run(t, "", "history", "show", "sherlock")
	require.NoError(t, err)
	assert.Contains(t, out, "No saved messages")
}

func TestChatStream(t *testing.T) {
	h := newHarness(t)
	out, err := h.run(t, "hello\n", "chat", "-c", "gandalf", "--stream")
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(out, "Elementary, my dear Watson."))
}

func TestChatSlashCommands(t *testing.T) {
	h := newHarness(t)
	out, err := h.run(t, "hi\n/clear\n/bogus\n/tts maybe\n/help\n/quit\n", "chat", "-c", "gandalf")
	require.NoError(t, err)
	assert.Contains(t, out, "Conversation cleared.")
	assert.Contains(t, out, "unknown command /bogus")
	assert.Contains(t, out, "usage: /tts on|off")
	assert.Contains(t, out, "/character <id>")

	out, err = h.run(t, "", "history", "show", "gandalf")
	require.NoError(t, err)
	assert.Contains(t, out, "No saved messages")
}

func TestChatWithoutCharacter(t *testing.T) {
	h := newHarness(t)
	_, err := h.run(t, "", "chat")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no character selected")

	_, err = h.run(t, "", "chat", "-c", "nobody")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nobody")
}

func TestChatFast(t *testing.T) {
	h := newHarness(t)
	out, err := h.run(t, "hi\n/reset\n/quit\n", "chat", "--fast", "-c", "alien-dj")
	require.NoError(t, err)
	assert.Contains(t, out, "Elementary, my dear Watson.")
	assert.Contains(t, out, " ms)")
	assert.Contains(t, out, "only /character, /clear and /quit")
}

func TestSettings(t *testing.T) {
	h := newHarness(t)

	out, err := h.run(t, "", "settings", "set", "darkMode=true", "apiProvider=OpenAI")
	require.NoError(t, err)
	assert.Contains(t, out, "darkMode: true")
	assert.Contains(t, out, "apiProvider: openai")

	out, err = h.run(t, "", "settings", "get")
	require.NoError(t, err)
	assert.Contains(t, out, "darkMode: true")
	assert.Contains(t, out, "autoScroll: true")

	for _, bad := range []string{"darkMode", "darkMode=maybe", "apiProvider=claude", "volume=3"} {
		_, err = h.run(t, "", "settings", "set", bad)
		assert.Error(t, err, bad)
	}
}

func TestSessionNamespaces(t *testing.T) {
	h := newHarness(t)
	_, err := h.run(t, "hello\n", "--session", "work", "chat", "-c", "sherlock")
	require.NoError(t, err)

	out, err := h.run(t, "", "history", "show", "sherlock")
	require.NoError(t, err)
	assert.Contains(t, out, "No saved messages")

	out, err = h.run(t, "", "--session", "work", "history", "show", "sherlock")
	require.NoError(t, err)
	assert.Contains(t, out, "2 messages")
}

func TestArgumentErrors(t *testing.T) {
	h := newHarness(t)

	_, err := h.run(t, "", "history", "show")
	assert.Error(t, err)

	_, err = h.run(t, "", "history", "show", "nobody")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Character not found: nobody")

	_, err = h.run(t, "", "speak", "nobody", "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nobody")

	_, err = h.run(t, "", "speak", "gandalf")
	assert.Error(t, err, "text is required")
}
