package http

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes registers account routes: sign-up and login are public,
// /me needs a token, and user administration needs an admin.
func RegisterRoutes(g *gin.RouterGroup, h *UserHandler, authMiddleware, adminMiddleware gin.HandlerFunc) {
	// === Public Routes ===
	g.POST("/auth/register", h.Register)
	g.POST("/auth/login", h.Login)

	// === Authenticated Routes ===
	g.GET("/me", authMiddleware, h.Me)

	// === Admin Routes ===
	admin := g.Group("/users", authMiddleware, adminMiddleware)
	{
		admin.GET("", h.List)
		admin.GET("/:id", h.Get)
		admin.PATCH("/:id", h.Update)
	}
}
