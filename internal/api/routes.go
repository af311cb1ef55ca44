package api

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"wsgateway/internal/ws"
	"wsgateway/internal/wsconfig"
)

// SetupRoutes configures the embedding HTTP server: CORS, the /ws upgrade
// route wired to wsServer, and a health check. Everything ISO-specific
// the teacher's router carried (REST CRUD, directory listing, SPA
// fallback) is gone; this server's only job is the WebSocket endpoint.
func SetupRoutes(wsServer *ws.Server, registry *ws.Registry, cfg *wsconfig.Config) *gin.Engine {
	router := gin.Default()

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.Server.CORSOrigins
	corsConfig.AllowMethods = []string{"GET", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Sec-WebSocket-Protocol"}
	// cors.New panics when no origin is allowed, so with an empty
	// CORSOrigins list no CORS middleware is installed.
	if len(corsConfig.AllowOrigins) > 0 {
		router.Use(cors.New(corsConfig))
	}

	router.GET("/ws", wsServer.Handle)

	router.GET("/healthz", func(c *gin.Context) {
		SuccessResponse(c, http.StatusOK, gin.H{
			"status":            "ok",
			"connected_clients": registry.Count(),
			"time":              time.Now().UTC().Format(time.RFC3339),
		})
	})

	router.NoRoute(func(c *gin.Context) {
		ErrorResponse(c, http.StatusNotFound, ErrCodeNotFound, "resource not found")
	})

	return router
}
