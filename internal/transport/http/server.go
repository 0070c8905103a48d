package http

import (
	"fmt"
	stdhttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/motormarket/motorchat-server/internal/auth"
	"github.com/motormarket/motorchat-server/internal/chat"
	"github.com/motormarket/motorchat-server/internal/config"
	"github.com/motormarket/motorchat-server/internal/store"
)

// NewServer builds the HTTP server: REST API, websocket endpoint, health and
// metrics.
func NewServer(svc *chat.Service, authService *auth.Service, st store.Store, cfg *config.Config, logger *zerolog.Logger) *stdhttp.Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery(), LoggerMiddleware(logger))

	router.GET("/health", func(c *gin.Context) {
		fmt.Fprint(c.Writer, "ok")
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	apiHandlers := NewAPIHandlers(authService, logger)
	messageHandlers := NewMessageHandlers(svc, st, logger)

	api := router.Group("/api")
	api.POST("/register", apiHandlers.Register)
	api.POST("/login", apiHandlers.Login)

	authorized := api.Group("")
	authorized.Use(AuthMiddleware(authService, logger))
	authorized.GET("/conversations", messageHandlers.ListConversations)
	authorized.POST("/messages", messageHandlers.SendMessage)
	authorized.GET("/messages/thread/:userID", messageHandlers.GetThread)
	authorized.POST("/messages/read", messageHandlers.MarkRead)
	authorized.GET("/messages/unread-count", messageHandlers.UnreadCount)

	wsHandler := NewWSHandler(svc, authService, cfg, logger)
	router.GET("/ws", wsHandler.Handle)

	return &stdhttp.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}
