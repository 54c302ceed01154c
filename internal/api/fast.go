package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"roleplay-chat/backend/internal/conversation"
	"roleplay-chat/backend/internal/models"
	apperrors "roleplay-chat/backend/pkg/errors"
)

// FastMessageResponse is the demo view's send result
type FastMessageResponse struct {
	State conversation.FastState `json:"state"`
	Reply *models.Message        `json:"reply,omitempty"`
}

// FastHandler serves the latency demo view
type FastHandler struct {
	sessions *conversation.Sessions
}

// NewFastHandler creates a handler over sessions
func NewFastHandler(sessions *conversation.Sessions) *FastHandler {
	return &FastHandler{sessions: sessions}
}

// RegisterRoutes mounts the demo routes on rg
func (h *FastHandler) RegisterRoutes(rg *gin.RouterGroup) {
	f := rg.Group("/fast/:sid")
	{
		f.GET("", h.GetState)
		f.POST("/messages", h.SendMessage)
		f.DELETE("/messages", h.ClearMessages)
	}
}

func (h *FastHandler) session(c *gin.Context) (*conversation.FastSession, bool) {
	f, err := h.sessions.Fast(c.Request.Context(), c.Param("sid"))
	if err != nil {
		c.Error(err)
		return nil, false
	}
	return f, true
}

// GetState returns the demo session
func (h *FastHandler) GetState(c *gin.Context) {
	f, ok := h.session(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, f.Snapshot())
}

// SendMessage switches character when the body names a different one, then
// sends. Provider failures are reported in the state.
func (h *FastHandler) SendMessage(c *gin.Context) {
	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(apperrors.NewBadRequestError(apperrors.CodeInvalidRequest, err.Error()))
		return
	}
	f, ok := h.session(c)
	if !ok {
		return
	}

	if req.CharacterID != "" {
		if cur := f.Snapshot().Character; cur == nil || cur.ID != req.CharacterID {
			if err := f.SelectCharacter(req.CharacterID); err != nil {
				c.Error(err)
				return
			}
		}
	}

	reply, err := f.SendMessage(c.Request.Context(), req.Text)
	if err != nil && !isProviderFailure(err) {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, FastMessageResponse{State: f.Snapshot(), Reply: reply})
}

// ClearMessages empties the demo session
func (h *FastHandler) ClearMessages(c *gin.Context) {
	f, ok := h.session(c)
	if !ok {
		return
	}
	f.ClearMessages()
	c.JSON(http.StatusOK, f.Snapshot())
}

// isProviderFailure separates provider errors, which live in the state, from
// rejected intents, which are request errors
func isProviderFailure(err error) bool {
	switch {
	case apperrors.Is(err, apperrors.ErrEmptyInput),
		apperrors.Is(err, apperrors.ErrNoCharacterSelected),
		apperrors.Is(err, apperrors.ErrRequestInFlight):
		return false
	}
	return true
}
