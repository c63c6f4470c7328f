//nolint:varnamelen
package echo

import (
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/scottboms/musickit-gateway/errors"
)

// userIDKey is the echo context key the principal's user id is stored under.
const userIDKey = "musickit.userID"

// RequestID tags every request with an id for log correlation.
func RequestID() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id := c.Request().Header.Get(echo.HeaderXRequestID)
			if id == "" {
				id = uuid.NewString()
			}
			c.Response().Header().Set(echo.HeaderXRequestID, id)
			c.Set("request_id", id)
			return next(c)
		}
	}
}

// Principal authenticates the embedding CMS's user bearer: an HS256 JWT
// signed with the shared secret, subject = user id. When required is false
// a missing or invalid bearer simply leaves the request anonymous.
func Principal(secret string, required bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			userID, ok := principalFromRequest(c, secret)
			if ok {
				c.Set(userIDKey, userID)
			} else if required {
				return c.JSON(http.StatusUnauthorized, errors.NewUnauthorized("Unauthorized"))
			}
			return next(c)
		}
	}
}

// UserID returns the authenticated principal's user id, or "" when the
// request is anonymous.
func UserID(c echo.Context) string {
	if id, ok := c.Get(userIDKey).(string); ok {
		return id
	}
	return ""
}

func principalFromRequest(c echo.Context, secret string) (string, bool) {
	if secret == "" {
		return "", false
	}

	authHeader := c.Request().Header.Get("Authorization")
	if authHeader == "" {
		return "", false
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}

	token, err := jwt.Parse(parts[1], func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		log.Debug().Err(err).Msg("rejected principal bearer")
		return "", false
	}

	sub, err := token.Claims.GetSubject()
	if err != nil || sub == "" {
		return "", false
	}

	return sub, true
}
