package middleware

import (
	"context"

	"github.com/gin-gonic/gin"
)

// actorIDKey is the key used to store the acting user's ID in the request context.
const actorIDKey = contextKey("actorID")

// actorIDHeader carries the acting user's identity from the upstream gateway.
// The platform's gateway authenticates callers; the ledger core only records
// who acted for the audit trail.
const actorIDHeader = "X-Actor-ID"

// defaultActorID is recorded when no upstream identity header is present,
// e.g. for internal batch jobs calling the service directly.
const defaultActorID = "system"

// ActorMiddleware resolves the acting user from the gateway header and
// stores it in the request context.
func ActorMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		actorID := c.GetHeader(actorIDHeader)
		if actorID == "" {
			actorID = defaultActorID
		}
		ctx := context.WithValue(c.Request.Context(), actorIDKey, actorID)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// GetActorIDFromContext retrieves the acting user ID from the Gin context.
func GetActorIDFromContext(c *gin.Context) (string, bool) {
	actorID, ok := c.Request.Context().Value(actorIDKey).(string)
	if !ok || actorID == "" {
		return "", false
	}
	return actorID, true
}
