package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/layer-3/phoneauth/service"
)

// SetupRouter sets up the Gin router
func SetupRouter(authService *service.AuthService, logger *slog.Logger, allowedOrigins []string) *gin.Engine {
	if logger == nil {
		logger = slog.Default()
	}

	router := gin.New()
	router.Use(Recovery(logger), AccessLog(logger), CORSMiddleware(allowedOrigins))

	handlers := NewAuthHandlers(authService, logger)

	router.GET("/health", handlers.Health)

	// Auth routes
	auth := router.Group("/auth")
	{
		auth.GET("/captcha", handlers.Captcha)
		auth.POST("/login", handlers.Login)
		auth.POST("/logout", handlers.Logout)
	}

	// Protected user routes
	user := router.Group("/user")
	user.Use(AuthMiddleware(authService))
	{
		user.GET("/current", handlers.Current)
	}

	router.NoRoute(func(c *gin.Context) {
		respondError(c, http.StatusNotFound, "endpoint does not exist")
	})

	return router
}
