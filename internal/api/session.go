package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"roleplay-chat/backend/internal/character"
	"roleplay-chat/backend/internal/conversation"
	"roleplay-chat/backend/internal/models"
	apperrors "roleplay-chat/backend/pkg/errors"
	"roleplay-chat/backend/pkg/logger"
)

// SelectCharacterRequest is the body of POST /sessions/:sid/character
type SelectCharacterRequest struct {
	CharacterID string `json:"characterId" binding:"required"`
}

// SendMessageRequest is the body of the message endpoints
type SendMessageRequest struct {
	Text        string `json:"text"`
	CharacterID string `json:"characterId,omitempty"`
}

// SendMessageResponse carries the state after a send settled
type SendMessageResponse struct {
	State      conversation.State `json:"state"`
	Reply      *models.Message    `json:"reply,omitempty"`
	Expression string             `json:"expression,omitempty"`
}

// SessionHandler exposes the chat view's transitions
type SessionHandler struct {
	sessions *conversation.Sessions
}

// NewSessionHandler creates a handler over sessions
func NewSessionHandler(sessions *conversation.Sessions) *SessionHandler {
	return &SessionHandler{sessions: sessions}
}

// RegisterRoutes mounts the session routes on rg
func (h *SessionHandler) RegisterRoutes(rg *gin.RouterGroup) {
	s := rg.Group("/sessions/:sid")
	{
		s.GET("", h.GetState)
		s.POST("/character", h.SelectCharacter)
		s.POST("/messages", h.SendMessage)
		s.DELETE("/messages", h.ClearMessages)
		s.DELETE("/error", h.ClearError)
		s.GET("/settings", h.GetSettings)
		s.PATCH("/settings", h.UpdateSettings)
		s.POST("/reset", h.Reset)
		s.POST("/speech/stop", h.StopSpeech)
	}
}

func (h *SessionHandler) session(c *gin.Context) (*conversation.Orchestrator, bool) {
	o, err := h.sessions.Get(c.Request.Context(), c.Param("sid"))
	if err != nil {
		c.Error(err)
		return nil, false
	}
	return o, true
}

// GetState returns the conversation snapshot
func (h *SessionHandler) GetState(c *gin.Context) {
	o, ok := h.session(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, o.Snapshot())
}

// SelectCharacter switches the conversation and waits for its history
func (h *SessionHandler) SelectCharacter(c *gin.Context) {
	var req SelectCharacterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(apperrors.NewBadRequestError(apperrors.CodeInvalidRequest, err.Error()))
		return
	}
	o, ok := h.session(c)
	if !ok {
		return
	}

	loaded, err := o.SelectCharacter(c.Request.Context(), req.CharacterID)
	if err != nil {
		c.Error(err)
		return
	}
	select {
	case <-loaded:
	case <-c.Request.Context().Done():
		return
	}
	c.JSON(http.StatusOK, o.Snapshot())
}

// SendMessage submits text and responds once the reply or failure has been
// applied. Provider failures show up in the state's error field.
func (h *SessionHandler) SendMessage(c *gin.Context) {
	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(apperrors.NewBadRequestError(apperrors.CodeInvalidRequest, err.Error()))
		return
	}
	o, ok := h.session(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	pending, err := o.SubmitMessage(ctx, req.Text)
	if err != nil {
		c.Error(err)
		return
	}

	reply, err := pending.Wait(ctx)
	if err != nil {
		logger.FromGin(c).Info("Message settled with error", "code", apperrors.GetErrorCode(err))
	}

	resp := SendMessageResponse{State: o.Snapshot(), Reply: reply}
	if reply != nil {
		resp.Expression = character.DetectExpression(reply.Text, reply.CharacterID)
	}
	c.JSON(http.StatusOK, resp)
}

// ClearMessages empties the conversation and its stored history
func (h *SessionHandler) ClearMessages(c *gin.Context) {
	o, ok := h.session(c)
	if !ok {
		return
	}
	o.ClearMessages(c.Request.Context())
	c.JSON(http.StatusOK, o.Snapshot())
}

// ClearError dismisses the error banner
func (h *SessionHandler) ClearError(c *gin.Context) {
	o, ok := h.session(c)
	if !ok {
		return
	}
	o.ClearError()
	c.JSON(http.StatusOK, o.Snapshot())
}

// GetSettings returns the session's settings
func (h *SessionHandler) GetSettings(c *gin.Context) {
	o, ok := h.session(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, o.Settings())
}

// UpdateSettings shallow-merges the body into the settings
func (h *SessionHandler) UpdateSettings(c *gin.Context) {
	var patch models.SettingsPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.Error(apperrors.NewBadRequestError(apperrors.CodeInvalidRequest, err.Error()))
		return
	}
	o, ok := h.session(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, o.UpdateSettings(c.Request.Context(), patch))
}

// Reset returns the conversation to its empty state
func (h *SessionHandler) Reset(c *gin.Context) {
	o, ok := h.session(c)
	if !ok {
		return
	}
	o.ResetConversation(c.Request.Context())
	c.JSON(http.StatusOK, o.Snapshot())
}

// StopSpeech halts playback
func (h *SessionHandler) StopSpeech(c *gin.Context) {
	o, ok := h.session(c)
	if !ok {
		return
	}
	o.StopSpeech()
	c.Status(http.StatusNoContent)
}
