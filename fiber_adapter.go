package authcore

import (
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

// GetFiberSession recovers the session stored by fiber-native JWT middleware
// under the given locals key. It accepts either our structured claims or a
// raw parsed token.
func GetFiberSession(c *fiber.Ctx, key string) (Session, error) {
	stored := c.Locals(key)
	if stored == nil {
		return nil, ErrUnableToFindSession
	}

	if claims, ok := stored.(AuthClaims); ok {
		return sessionFromAuthClaims(claims)
	}

	token, ok := stored.(*jwt.Token)
	if token == nil || !ok {
		return nil, ErrUnableToDecodeSession
	}

	claims, ok := token.Claims.(*JWTClaims)
	if claims == nil || !ok {
		return nil, ErrUnableToMapClaims
	}

	return sessionFromAuthClaims(claims)
}

// RequireFiberSession is a fiber-native guard for apps that embed fiber
// directly instead of going through the router abstraction. Requests without
// a valid session get a 401 and never reach the handler.
func RequireFiberSession(key string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, err := GetFiberSession(c, key); err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": ErrSessionInvalid.Message,
			})
		}
		return c.Next()
	}
}
