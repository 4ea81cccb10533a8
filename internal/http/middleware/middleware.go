package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"bebusy.app/inbox/common/logger"
)

type contextKey string

const (
	userIDHeader                = "X-User-ID"
	userIDContextKey contextKey = "user_id"
)

// Recovery converts panics into 500s without killing the process.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				slog.ErrorContext(c.Request.Context(), "panic recovered in handler",
					"panic", r,
					"path", c.Request.URL.Path,
					"method", c.Request.Method)
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
			}
		}()
		c.Next()
	}
}

// Logger emits one structured line per request.
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		slog.InfoContext(c.Request.Context(), "request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"client_ip", c.ClientIP())
	}
}

// RequireUser resolves the caller's identity from the X-User-ID header
// set by the edge proxy after authentication. Requests without it are
// rejected.
func RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.GetHeader(userIDHeader)
		if raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
			return
		}

		userID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || userID <= 0 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid user id"})
			return
		}

		ctx := context.WithValue(c.Request.Context(), userIDContextKey, userID)
		ctx = logger.WithLogFields(ctx, logger.LogFields{UserID: logger.Ptr(userID)})
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

// GetUserID returns the authenticated user, or 0 outside RequireUser.
func GetUserID(ctx context.Context) int64 {
	userID, _ := ctx.Value(userIDContextKey).(int64)
	return userID
}
