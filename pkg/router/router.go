package router

import (
	"net/http"
	"time"

	"roleplay-chat/backend/internal/api"
	"roleplay-chat/backend/internal/ws"
	"roleplay-chat/backend/pkg/config"
	"roleplay-chat/backend/pkg/di"
	"roleplay-chat/backend/pkg/errors"
	"roleplay-chat/backend/pkg/logger"

	"github.com/gin-gonic/gin"
)

// Track server start time for uptime calculations
var startTime = time.Now()

// Router is the main router for the application
type Router struct {
	Engine    *gin.Engine
	Container *di.Container
	Logger    *logger.Logger
	Config    *config.Config
}

// New creates a new router with the given container
func New(container *di.Container) *Router {
	cfg := container.Config

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()

	// Use the logger middleware first to capture all requests
	engine.Use(logger.Middleware(container.Logger))
	engine.Use(errors.ErrorHandler())
	engine.Use(errors.RecoveryWithLogger())
	engine.Use(corsMiddleware(cfg.Server.AllowedOrigins))

	return &Router{
		Engine:    engine,
		Container: container,
		Logger:    container.Logger,
		Config:    cfg,
	}
}

// SetupRoutes registers all application routes
func (r *Router) SetupRoutes() {
	if r.Config.Server.OpenAPIValidation {
		r.AddOpenAPIValidation()
	}

	r.Engine.GET("/health", r.livenessHandler())

	v1 := r.Engine.Group("/api/v1")
	{
		v1.GET("/health", r.Container.Health.Handler())

		api.NewCharacterHandler(r.Container.Catalog).RegisterRoutes(v1)
		api.NewSessionHandler(r.Container.Sessions).RegisterRoutes(v1)
		api.NewFastHandler(r.Container.Sessions).RegisterRoutes(v1)
		api.NewCacheHandler(r.Container.ClearCaches).RegisterRoutes(v1)

		wsHandler := ws.NewHandler(r.Container.Hub, r.Container.Sessions, r.Config.Server.AllowedOrigins, r.Logger)
		v1.GET("/sessions/:sid/ws", wsHandler.ServeWS)
	}

	if r.Container.MetricsHandler != nil {
		r.Engine.GET("/metrics", gin.WrapH(r.Container.MetricsHandler))
	}
}

// livenessHandler reports process uptime and connection count without
// running dependency checks
func (r *Router) livenessHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":             "ok",
			"env":                r.Config.Server.Env,
			"uptime":             time.Since(startTime).Round(time.Second).String(),
			"active_connections": r.Container.Hub.ActiveConnections(),
			"sessions":           r.Container.Sessions.Len(),
			"time":               time.Now().Format(time.RFC3339),
		})
	}
}

// corsMiddleware allows the configured origins, or any origin when the list
// contains "*"
func corsMiddleware(allowed []string) gin.HandlerFunc {
	anyOrigin := len(allowed) == 0
	set := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			anyOrigin = true
		}
		set[o] = true
	}

	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		switch {
		case origin == "" || anyOrigin:
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		case set[origin]:
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
			c.Writer.Header().Add("Vary", "Origin")
		}

		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept, Accept-Encoding, X-Request-ID, Origin, Upgrade, Connection, Cache-Control")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "X-Request-ID, Upgrade, Connection")
		c.Writer.Header().Set("Access-Control-Max-Age", "86400")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
