package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/lumina-dash/lumina/internal/infrastructure/ratelimit"
	"github.com/lumina-dash/lumina/internal/interfaces/http/handlers"
	"github.com/lumina-dash/lumina/internal/interfaces/http/middleware"
)

// AuthRouteConfig holds dependencies for authorization flow routes.
type AuthRouteConfig struct {
	ConnectHandler *handlers.ConnectHandler
	AuthMiddleware *middleware.AuthMiddleware
	RateLimiter    *middleware.RateLimitMiddleware
}

// SetupAuthRoutes configures the authorization flow routes. The callback is
// the only unauthenticated endpoint: the provider redirects the browser there
// and the sealed state carries the subject identity.
func SetupAuthRoutes(engine *gin.Engine, cfg *AuthRouteConfig) {
	auth := engine.Group("/auth")
	{
		auth.GET("/callback", cfg.RateLimiter.Limit(ratelimit.BucketCallback), cfg.ConnectHandler.Callback)

		auth.GET("/status", cfg.AuthMiddleware.RequireAuth(), cfg.ConnectHandler.ListStatus)

		platform := auth.Group("/:platform", cfg.AuthMiddleware.RequireAuth())
		{
			platform.POST("/initiate", cfg.RateLimiter.Limit(ratelimit.BucketInitiation), cfg.ConnectHandler.Initiate)
			platform.POST("/disconnect", cfg.ConnectHandler.Disconnect)
			platform.GET("/status", cfg.ConnectHandler.GetStatus)
		}
	}
}
