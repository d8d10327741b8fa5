package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vakya-ai/vakya/internal/config"
	"github.com/vakya-ai/vakya/internal/handlers/agent"
	"github.com/vakya-ai/vakya/internal/handlers/websocket"
	"github.com/vakya-ai/vakya/pkg/Logger"
)

// Dependencies carries everything the route layer needs.
type Dependencies struct {
	Cfg    *config.Settings
	Voice  *websocket.Handler
	Agent  *agent.Handler
	Logger *Logger.Logger
}

func NewDependencies(cfg *config.Settings, voice *websocket.Handler, agentHandler *agent.Handler, logger *Logger.Logger) Dependencies {
	return Dependencies{
		Cfg:    cfg,
		Voice:  voice,
		Agent:  agentHandler,
		Logger: logger,
	}
}

// InitializeRoutes mounts every route on the engine.
func InitializeRoutes(r *gin.Engine, deps Dependencies) {
	r.Use(corsMiddleware())

	r.GET("/check", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "backend is working"})
	})

	if deps.Cfg.Server.StaticDir != "" {
		r.Static("/static", deps.Cfg.Server.StaticDir)
		r.GET("/", func(c *gin.Context) {
			c.File(deps.Cfg.Server.StaticDir + "/index.html")
		})
	}

	r.GET("/ws", deps.Voice.Handle)

	agentGroup := r.Group("/agent")
	{
		agentGroup.POST("/chat/:session_id", deps.Agent.Chat)
		agentGroup.GET("/chat/history/:session_id", deps.Agent.History)
	}
}

// corsMiddleware is permissive: browser clients connect from arbitrary
// origins during development.
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
