package health

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCriticalComponentDrivesHealth(t *testing.T) {
	c := NewChecker(nil, 0)
	c.RegisterCheck("storage", true, func(context.Context) (Status, string, error) {
		return StatusDown, "unreachable", errors.New("dial tcp: refused")
	})
	c.RegisterCheck("speech", false, func(context.Context) (Status, string, error) {
		return StatusDown, "unreachable", errors.New("no tts")
	})

	c.RunChecks(context.Background())

	assert.False(t, c.IsSystemHealthy())
	status := c.GetStatus()
	assert.Equal(t, StatusDown, status["storage"].Status)
	assert.Equal(t, "dial tcp: refused", status["storage"].Error)
	assert.Equal(t, StatusUp, status["self"].Status)
}

func TestHTTPProbe(t *testing.T) {
	ok := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer ok.Close()
	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer broken.Close()

	c := NewChecker(nil, 0)
	c.RegisterHTTPProbe("speech", ok.URL+"/health", time.Second, false)
	c.RegisterHTTPProbe("other", broken.URL+"/health", time.Second, false)

	status, err := c.RunCheck(context.Background(), "speech")
	require.NoError(t, err)
	assert.Equal(t, StatusUp, status)

	status, err = c.RunCheck(context.Background(), "other")
	assert.Error(t, err)
	assert.Equal(t, StatusDegraded, status)

	_, err = c.RunCheck(context.Background(), "missing")
	assert.Error(t, err)
}

func TestHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c := NewChecker(nil, 0)
	c.RunChecks(context.Background())

	r := gin.New()
	r.GET("/health", c.Handler())

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/health", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"self"`)
}
