package auth

import "github.com/gin-gonic/gin"

const (
	userIDKey = "userID"
	actorKey  = "actor"
)

// GetUserID returns the authenticated user's ID or empty string.
func GetUserID(c *gin.Context) string {
	if v, ok := c.Get(userIDKey); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// SetActor stores the resolved caller capability.
func SetActor(c *gin.Context, a Actor) {
	c.Set(actorKey, a)
}

// GetActor returns the resolved caller capability. ok is false when no
// actor was resolved for this request.
func GetActor(c *gin.Context) (Actor, bool) {
	if v, ok := c.Get(actorKey); ok {
		if a, ok := v.(Actor); ok {
			return a, true
		}
	}
	return Actor{}, false
}
