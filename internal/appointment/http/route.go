package http

import (
	"github.com/gin-gonic/gin"

	"github.com/gracefellowship/church-admin-backend/internal/auth"
)

// Middlewares groups the guards the booking routes need.
type Middlewares struct {
	Auth         gin.HandlerFunc // requires a valid staff token
	OptionalAuth gin.HandlerFunc // attaches staff when a token is present
	RateLimit    gin.HandlerFunc // applied to public writes; may be nil
}

// RegisterRoutes registers availability, booking and reminder routes.
func RegisterRoutes(g *gin.RouterGroup, h *Handler, mw Middlewares) {
	publicWrite := []gin.HandlerFunc{}
	if mw.RateLimit != nil {
		publicWrite = append(publicWrite, mw.RateLimit)
	}
	staff := auth.RequireRole(auth.RoleAdmin, auth.RolePastor, auth.RoleStaff)

	// === Public Routes ===
	availability := g.Group("/availability")
	{
		availability.GET("/slots", h.Slots)
		availability.GET("/policy", h.Policy)
	}

	bookings := g.Group("/bookings")
	{
		bookings.POST("", append(publicWrite, h.Create)...)
		bookings.POST("/:id/cancel", append(publicWrite, h.Cancel)...)
		bookings.GET("/:id/calendar", mw.OptionalAuth, h.Calendar)
	}

	// === Staff Routes ===
	staffGroup := bookings.Group("")
	staffGroup.Use(mw.Auth, staff)
	{
		staffGroup.GET("", h.List)
		staffGroup.GET("/:id", h.Get)
		staffGroup.PATCH("/:id", h.Update)
	}

	// === Administration Routes ===
	admin := g.Group("/admin")
	admin.Use(mw.Auth, auth.RequireRole(auth.RoleAdmin))
	{
		admin.POST("/reminders/run", h.RunReminders)
	}
}
