package auth

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
)

const (
	identityKey = "externalID"
	nameKey     = "userName"
)

// Claims is the session token shape issued by the external auth provider.
// The subject is the opaque user identity everything else keys on.
type Claims struct {
	Name string `json:"name"`
	jwt.RegisteredClaims
}

// Middleware validates the bearer session token and stores the caller's
// identity in request locals. Requests without a valid token get 401.
func Middleware(secret string, log *logrus.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get("Authorization")
		const prefix = "Bearer "
		if !strings.HasPrefix(header, prefix) {
			return unauthorized(c)
		}

		token, err := jwt.ParseWithClaims(header[len(prefix):], &Claims{}, func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, errors.New("unexpected signing method")
			}
			return []byte(secret), nil
		})
		if err != nil || !token.Valid {
			log.WithError(err).Debug("rejected session token")
			return unauthorized(c)
		}
		claims, ok := token.Claims.(*Claims)
		if !ok || claims.Subject == "" {
			return unauthorized(c)
		}

		c.Locals(identityKey, claims.Subject)
		c.Locals(nameKey, claims.Name)
		return c.Next()
	}
}

func unauthorized(c *fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized"})
}

// ExternalID returns the authenticated caller's external auth id, or ""
// when the request is unauthenticated.
func ExternalID(c *fiber.Ctx) string {
	id, _ := c.Locals(identityKey).(string)
	return id
}

// UserName returns the caller's display name from the session token.
func UserName(c *fiber.Ctx) string {
	name, _ := c.Locals(nameKey).(string)
	return name
}
