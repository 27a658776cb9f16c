package middleware

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	SessionCookie = "advisor_session"
	SessionHeader = "X-Session-ID"

	sessionLocal = "sessionID"
)

// SessionMiddleware attaches a visitor session id to every request. The id
// comes from the session cookie or header; a fresh one is issued otherwise.
func SessionMiddleware(ttl time.Duration, logger *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Cookies(SessionCookie)
		if id == "" {
			id = c.Get(SessionHeader)
		}

		if _, err := uuid.Parse(id); err != nil {
			if id != "" {
				logger.Debug("Ignoring malformed session id", zap.String("session_id", id))
			}
			id = uuid.NewString()
		}

		c.Cookie(&fiber.Cookie{
			Name:     SessionCookie,
			Value:    id,
			Path:     "/",
			Expires:  time.Now().Add(ttl),
			HTTPOnly: true,
			SameSite: fiber.CookieSameSiteLaxMode,
		})
		c.Set(SessionHeader, id)
		c.Locals(sessionLocal, id)

		return c.Next()
	}
}

// SessionID returns the id set by SessionMiddleware.
func SessionID(c *fiber.Ctx) string {
	id, _ := c.Locals(sessionLocal).(string)
	return id
}
