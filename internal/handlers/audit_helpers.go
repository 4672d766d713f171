package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const requestIDContextKey = "request_id"

// requestIDFromContext resolves the request id for audit emission: a value
// cached on the gin context wins, then the X-Request-ID header, then a fresh
// uuid. The resolved id is cached so every emit in a request agrees.
func requestIDFromContext(c *gin.Context) string {
	if val, ok := c.Get(requestIDContextKey); ok {
		if id, ok := val.(string); ok && id != "" {
			return id
		}
	}

	requestID := c.GetHeader("X-Request-ID")
	if requestID == "" {
		requestID = uuid.NewString()
	}
	c.Set(requestIDContextKey, requestID)
	return requestID
}

// userIDFromContext returns the acting user's id for audit emission, or nil
// when the request carries no usable identity. The auth middleware sets
// "userID" as int64; the X-User-ID header is a fallback for internal calls
// that bypass it.
func userIDFromContext(c *gin.Context) *int64 {
	if val, ok := c.Get("userID"); ok {
		switch id := val.(type) {
		case int64:
			if id != 0 {
				return &id
			}
		case int:
			if id != 0 {
				v := int64(id)
				return &v
			}
		}
	}

	if header := c.GetHeader("X-User-ID"); header != "" {
		if parsed, err := strconv.ParseInt(header, 10, 64); err == nil {
			return &parsed
		}
	}

	return nil
}
