package router

import (
	_ "embed"
	"net/http"

	"roleplay-chat/backend/pkg/validator"

	"github.com/gin-gonic/gin"
)

//go:embed openapi.yaml
var openAPISchema []byte

// AddOpenAPIValidation validates requests against the embedded schema and
// serves it under /api/docs
func (r *Router) AddOpenAPIValidation() {
	v, err := validator.NewOpenAPIValidator(openAPISchema)
	if err != nil {
		r.Logger.LogError(err, "Failed to initialize OpenAPI validator")
		return
	}

	r.Engine.Use(v.Middleware())
	r.Engine.GET("/api/docs/openapi.yaml", func(c *gin.Context) {
		c.Data(http.StatusOK, "application/yaml", openAPISchema)
	})
	r.Logger.Info("OpenAPI validation enabled", "url", "/api/docs/openapi.yaml")
}
