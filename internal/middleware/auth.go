package middleware

import (
	"errors"
	"strconv"
	"strings"

	"github.com/Misikirayu/mate-finder/pkg/utils"
	"github.com/gofiber/fiber/v2"
)

var ErrMissingToken = errors.New("missing token")

type tokenVerifier interface {
	Verify(token string) (*utils.Claims, error)
}

// AuthRequired guards a route with a bearer session token. A missing token
// answers "Unauthorized"; a malformed, forged or expired one "Invalid token".
func AuthRequired(tokens tokenVerifier) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenString, err := BearerToken(c.Get(fiber.HeaderAuthorization))
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
		}

		claims, err := tokens.Verify(tokenString)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
		}

		SetIdentity(c, claims)
		return c.Next()
	}
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", ErrMissingToken
	}
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", ErrMissingToken
	}
	return parts[1], nil
}

func SetIdentity(c *fiber.Ctx, claims *utils.Claims) {
	c.Locals("user_id", strconv.FormatInt(claims.UserID, 10))
	c.Locals("email", claims.Email)
}
