package router

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"roleplay-chat/backend/pkg/config"
	"roleplay-chat/backend/pkg/di"
	"roleplay-chat/backend/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestRouter wires the full container against a fake local model server
func newTestRouter(t *testing.T, mutate func(*config.Config)) (*Router, *atomic.Int32) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	var calls atomic.Int32
	model := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"response":"Elementary, my dear Watson.","tokens":6}`))
	}))
	t.Cleanup(model.Close)

	cfg := config.Load()
	cfg.Provider.Kind = "local"
	cfg.Provider.LocalModelURL = model.URL
	cfg.Provider.FastPrewarm = false
	cfg.Storage.Backend = "memory"
	cfg.Speech.URL = ""
	cfg.Observability.TracingEnabled = false
	cfg.Observability.MetricsEnabled = true
	cfg.Server.OpenAPIValidation = true
	if mutate != nil {
		mutate(cfg)
	}

	c, err := di.New(context.Background(), cfg, logger.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close(context.Background()) })

	r := New(c)
	r.SetupRoutes()
	return r, &calls
}

func do(r *Router, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req, _ := http.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.Engine.ServeHTTP(w, req)
	return w
}

type stateBody struct {
	Messages []struct {
		Text   string `json:"text"`
		Sender string `json:"sender"`
	} `json:"messages"`
	Error     string `json:"error"`
	IsLoading bool   `json:"isLoading"`
	IsTyping  bool   `json:"isTyping"`
}

func TestConversationRoundTrip(t *testing.T) {
	r, calls := newTestRouter(t, nil)

	w := do(r, http.MethodPost, "/api/v1/sessions/s1/character", gin.H{"characterId": "sherlock"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = do(r, http.MethodPost, "/api/v1/sessions/s1/messages", gin.H{"text": "Who are you?"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		State stateBody `json:"state"`
		Reply struct {
			Text string `json:"text"`
		} `json:"reply"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "Elementary, my dear Watson.", resp.Reply.Text)
	require.Len(t, resp.State.Messages, 2)
	assert.Equal(t, "user", resp.State.Messages[0].Sender)
	assert.Equal(t, "ai", resp.State.Messages[1].Sender)
	assert.False(t, resp.State.IsTyping)
	assert.Equal(t, int32(1), calls.Load())

	w = do(r, http.MethodGet, "/api/v1/sessions/s1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var st stateBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &st))
	assert.Len(t, st.Messages, 2)

	w = do(r, http.MethodDelete, "/api/v1/sessions/s1/messages", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &st))
	assert.Empty(t, st.Messages)

	w = do(r, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "roleplay_messages_total")
}

func TestSessionsAreIsolated(t *testing.T) {
	r, _ := newTestRouter(t, nil)

	require.Equal(t, http.StatusOK, do(r, http.MethodPost, "/api/v1/sessions/a/character", gin.H{"characterId": "gandalf"}).Code)
	require.Equal(t, http.StatusOK, do(r, http.MethodPost, "/api/v1/sessions/a/messages", gin.H{"text": "hello"}).Code)

	w := do(r, http.MethodPost, "/api/v1/sessions/b/messages", gin.H{"text": "hello"})
	assert.Equal(t, http.StatusConflict, w.Code, "session b has no character")
	assert.Contains(t, w.Body.String(), "NO_CHARACTER_SELECTED")
}

func TestRejectedRequests(t *testing.T) {
	r, calls := newTestRouter(t, nil)

	cases := []struct {
		name   string
		method string
		path   string
		body   any
		status int
		code   string
	}{
		{"missing text fails schema", http.MethodPost, "/api/v1/sessions/s/messages", gin.H{}, http.StatusBadRequest, "INVALID_REQUEST"},
		{"unknown provider fails schema", http.MethodPatch, "/api/v1/sessions/s/settings", gin.H{"apiProvider": "bogus"}, http.StatusBadRequest, "INVALID_REQUEST"},
		{"unknown character", http.MethodPost, "/api/v1/sessions/s/character", gin.H{"characterId": "nobody"}, http.StatusNotFound, "CHARACTER_NOT_FOUND"},
		{"unknown character detail", http.MethodGet, "/api/v1/characters/nobody", nil, http.StatusNotFound, "CHARACTER_NOT_FOUND"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := do(r, tc.method, tc.path, tc.body)
			assert.Equal(t, tc.status, w.Code, w.Body.String())
			assert.Contains(t, w.Body.String(), tc.code)
		})
	}
	assert.Zero(t, calls.Load())
}

func TestSettingsPatch(t *testing.T) {
	r, _ := newTestRouter(t, nil)

	w := do(r, http.MethodPatch, "/api/v1/sessions/s/settings", gin.H{"darkMode": true})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = do(r, http.MethodGet, "/api/v1/sessions/s/settings", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var s struct {
		DarkMode    bool   `json:"darkMode"`
		AutoScroll  bool   `json:"autoScroll"`
		APIProvider string `json:"apiProvider"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &s))
	assert.True(t, s.DarkMode)
	assert.True(t, s.AutoScroll)
	assert.Equal(t, "local", s.APIProvider)
}

func TestFastRoutes(t *testing.T) {
	r, _ := newTestRouter(t, nil)

	w := do(r, http.MethodPost, "/api/v1/fast/f1/messages", gin.H{"text": "hi", "characterId": "gandalf"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), "Elementary")

	w = do(r, http.MethodGet, "/api/v1/fast/f1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"isProcessing":false`)
}

func TestClearCaches(t *testing.T) {
	r, calls := newTestRouter(t, nil)

	for range 2 {
		w := do(r, http.MethodPost, "/api/v1/fast/f1/messages", gin.H{"text": "hi", "characterId": "gandalf"})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	}
	assert.EqualValues(t, 1, calls.Load())

	w := do(r, http.MethodDelete, "/api/v1/cache", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = do(r, http.MethodPost, "/api/v1/fast/f1/messages", gin.H{"text": "hi"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.EqualValues(t, 2, calls.Load())
}

func TestHealthAndDocs(t *testing.T) {
	r, _ := newTestRouter(t, nil)

	w := do(r, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "active_connections")

	r.Container.Health.RunChecks(context.Background())
	w = do(r, http.MethodGet, "/api/v1/health", nil)
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), "storage")

	w = do(r, http.MethodGet, "/api/docs/openapi.yaml", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "/api/v1/sessions/{sid}/messages")
}

func TestCORS(t *testing.T) {
	r, _ := newTestRouter(t, func(cfg *config.Config) {
		cfg.Server.AllowedOrigins = []string{"http://app.test"}
	})

	req, _ := http.NewRequest(http.MethodOptions, "/api/v1/characters", nil)
	req.Header.Set("Origin", "http://app.test")
	w := httptest.NewRecorder()
	r.Engine.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://app.test", w.Header().Get("Access-Control-Allow-Origin"))

	req, _ = http.NewRequest(http.MethodGet, "/api/v1/characters", nil)
	req.Header.Set("Origin", "http://evil.test")
	w = httptest.NewRecorder()
	r.Engine.ServeHTTP(w, req)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}
