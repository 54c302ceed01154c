package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"roleplay-chat/backend/internal/character"
	"roleplay-chat/backend/internal/models"
)

// CharacterHandler serves the character picker
type CharacterHandler struct {
	catalog *character.Catalog
}

// NewCharacterHandler creates a handler over catalog
func NewCharacterHandler(catalog *character.Catalog) *CharacterHandler {
	return &CharacterHandler{catalog: catalog}
}

// ListCharacters returns the catalog in display order
func (h *CharacterHandler) ListCharacters(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"characters": h.catalog.List()})
}

// GetCharacter returns one character with its theme
func (h *CharacterHandler) GetCharacter(c *gin.Context) {
	ch, err := h.catalog.Lookup(c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"character": ch,
		"theme":     models.ThemeOf(ch),
	})
}

// RegisterRoutes mounts the character routes on rg
func (h *CharacterHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/characters", h.ListCharacters)
	rg.GET("/characters/:id", h.GetCharacter)
}
