package middleware

import "github.com/gin-gonic/gin"

// actorKey is the key used to store the acting identity in the Gin context.
const actorKey = contextKey("actor")

// DefaultActor is recorded when no identity header is supplied, e.g. for
// scheduled imports.
const DefaultActor = "system"

// ActorMiddleware captures the acting identity from the X-Actor header so
// reviews, lifecycle changes and imports can be attributed in the audit
// trail.
func ActorMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := c.GetHeader("X-Actor")
		if actor == "" {
			actor = DefaultActor
		}
		c.Set(string(actorKey), actor)
		c.Next()
	}
}

// GetActorFromContext retrieves the acting identity from the Gin context.
func GetActorFromContext(c *gin.Context) string {
	actorVal, exists := c.Get(string(actorKey))
	if !exists {
		return DefaultActor
	}
	actor, ok := actorVal.(string)
	if !ok || actor == "" {
		return DefaultActor
	}
	return actor
}
