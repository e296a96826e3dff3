package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/nekogravitycat/hotel-booking-backend/internal/auth"
	"github.com/nekogravitycat/hotel-booking-backend/internal/pkg/response"
	"github.com/nekogravitycat/hotel-booking-backend/internal/user"
)

// ResolveActor loads the authenticated user and stores its auth.Actor for
// the services downstream. It MUST be used after auth.AuthRequired middleware.
func ResolveActor(userService user.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := resolve(c, userService); !ok {
			return
		}
		c.Next()
	}
}

// RequireAdmin ensures the authenticated user is an admin.
// It MUST be used after auth.AuthRequired middleware.
func RequireAdmin(userService user.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		a, ok := resolve(c, userService)
		if !ok {
			return
		}

		if !a.IsAdmin() {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden: admin access required"})
			return
		}

		c.Next()
	}
}

// resolve returns the caller's actor, loading the user once per request.
// On failure the request is aborted.
func resolve(c *gin.Context, userService user.Service) (auth.Actor, bool) {
	if a, ok := auth.GetActor(c); ok {
		return a, true
	}

	userID := auth.GetUserID(c)
	if userID == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return auth.Actor{}, false
	}

	u, err := userService.GetByID(c.Request.Context(), userID)
	if errors.Is(err, user.ErrNotFound) {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
		return auth.Actor{}, false
	}
	if err != nil {
		response.Error(c, err)
		c.Abort()
		return auth.Actor{}, false
	}

	if !u.IsActive {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "user is inactive"})
		return auth.Actor{}, false
	}

	a := u.Actor()
	auth.SetActor(c, a)
	return a, true
}

// Timeout bounds the request context so slow database calls give up.
func Timeout(d time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if d <= 0 {
			c.Next()
			return
		}
		ctx, cancel := context.WithTimeout(c.Request.Context(), d)
		defer cancel()

		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
