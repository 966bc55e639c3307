package http

import (
	"github.com/gin-gonic/gin"

	"github.com/gracefellowship/church-admin-backend/internal/auth"
)

// RegisterRoutes registers all user-related routes (including Auth).
// rateLimit guards login and may be nil.
func RegisterRoutes(g *gin.RouterGroup, h *UserHandler, authMiddleware, rateLimit gin.HandlerFunc) {
	// Public Routes
	authGroup := g.Group("/auth")
	if rateLimit != nil {
		authGroup.Use(rateLimit)
	}
	{
		authGroup.POST("/login", h.Login)
	}

	// Authenticated Routes
	g.GET("/me", authMiddleware, h.Me)

	// Admin Routes
	usersGroup := g.Group("/users")
	usersGroup.Use(authMiddleware, auth.RequireRole(auth.RoleAdmin))
	{
		usersGroup.GET("", h.List)
		usersGroup.POST("", h.Create)
		usersGroup.GET("/:id", h.Get)
		usersGroup.PATCH("/:id", h.Update)
	}
}
