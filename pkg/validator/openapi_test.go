package validator

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSchema = `
openapi: 3.0.3
info:
  title: test
  version: "1"
paths:
  /sessions/{sid}/messages:
    post:
      parameters:
        - name: sid
          in: path
          required: true
          schema:
            type: string
      requestBody:
        required: true
        content:
          application/json:
            schema:
              type: object
              required: [text]
              properties:
                text:
                  type: string
      responses:
        "200":
          description: ok
`

func TestMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	v, err := NewOpenAPIValidator([]byte(testSchema))
	require.NoError(t, err)

	r := gin.New()
	r.Use(v.Middleware())
	r.POST("/sessions/:sid/messages", func(c *gin.Context) {
		var body struct {
			Text string `json:"text"`
		}
		require.NoError(t, c.ShouldBindJSON(&body))
		c.String(http.StatusOK, body.Text)
	})
	r.GET("/unlisted", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	cases := []struct {
		name   string
		method string
		path   string
		body   string
		status int
	}{
		{"valid body passes and stays readable", http.MethodPost, "/sessions/a/messages", `{"text":"hi"}`, http.StatusOK},
		{"missing field rejected", http.MethodPost, "/sessions/a/messages", `{}`, http.StatusBadRequest},
		{"wrong type rejected", http.MethodPost, "/sessions/a/messages", `{"text":3}`, http.StatusBadRequest},
		{"unlisted route ignored", http.MethodGet, "/unlisted", "", http.StatusNoContent},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req, _ := http.NewRequest(tc.method, tc.path, strings.NewReader(tc.body))
			if tc.body != "" {
				req.Header.Set("Content-Type", "application/json")
			}
			r.ServeHTTP(w, req)
			assert.Equal(t, tc.status, w.Code)
		})
	}
}

func TestRejectsBrokenSchema(t *testing.T) {
	_, err := NewOpenAPIValidator([]byte("openapi: 3.0.3\npaths: 7\n"))
	assert.Error(t, err)
}
