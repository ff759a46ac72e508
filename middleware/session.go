package middleware

import (
	"time"

	"dhub/config"
	"dhub/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	sessionCookie    = "dhub_session"
	sessionIDKey     = "flowSessionID"
	sessionCookieAge = 24 * time.Hour
)

// FlowSessionMiddleware attaches a booking flow session ID to every
// request. The ID travels in a signed cookie; a missing or invalid
// cookie gets a fresh session minted transparently.
func FlowSessionMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		logger := zap.L()

		if raw, err := c.Cookie(sessionCookie); err == nil {
			if sid, err := utils.ExtractSessionID(raw); err == nil {
				c.Set(sessionIDKey, sid)
				c.Next()
				return
			}
			logger.Debug("invalid flow session cookie, reissuing")
		}

		sid := uuid.New().String()
		token, err := utils.GenerateSessionToken(sid, sessionCookieAge)
		if err != nil {
			logger.Error("failed to mint flow session token", zap.Error(err))
			c.Set(sessionIDKey, sid)
			c.Next()
			return
		}
		// Secure in production so the session token never travels over
		// plaintext; local development runs without TLS.
		c.SetCookie(sessionCookie, token, int(sessionCookieAge.Seconds()), "/", "", config.IsProduction(), true)
		c.Set(sessionIDKey, sid)
		c.Next()
	}
}

// FlowSessionID returns the booking flow session ID for this request.
func FlowSessionID(c *gin.Context) string {
	return c.GetString(sessionIDKey)
}
