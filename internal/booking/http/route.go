package http

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes registers availability and booking routes.
// actorMiddleware must run after authMiddleware and store the caller's auth.Actor.
func RegisterRoutes(g *gin.RouterGroup, h *Handler, authMiddleware, actorMiddleware gin.HandlerFunc) {
	// === Public Routes ===
	g.POST("/availability", h.Search)

	// === Authenticated Routes ===
	group := g.Group("/bookings")
	group.Use(authMiddleware, actorMiddleware)
	{
		group.POST("", h.Create)
		group.GET("", h.List)
		group.GET("/:id", h.Get)
		group.PATCH("/:id", h.Modify)
		group.POST("/:id/cancel", h.Cancel())
		group.POST("/:id/confirm", h.Confirm())
		group.POST("/:id/check-in", h.CheckIn())
		group.POST("/:id/check-out", h.CheckOut())
	}
}
