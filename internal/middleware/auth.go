package middleware

import (
	"strings"

	"souq/server/internal/identity"
	"souq/server/internal/utils"

	"github.com/gofiber/fiber/v2"
)

const RoleAdmin = "admin"

// AuthConfig configures AuthMiddleware.
type AuthConfig struct {
	Secret     string
	Normalizer identity.Normalizer
	// AdminPhone is granted admin rights in addition to the admin role.
	AdminPhone string
}

// AuthMiddleware validates the JWT from the "token" cookie, a Bearer
// header or a ?token= query (browsers cannot set headers on WebSocket
// upgrades) and stores the caller in the context.
func AuthMiddleware(cfg AuthConfig) fiber.Handler {
	adminPhone := ""
	if strings.TrimSpace(cfg.AdminPhone) != "" {
		adminPhone = cfg.Normalizer.Normalize(cfg.AdminPhone)
	}

	return func(c *fiber.Ctx) error {
		tokenString := extractToken(c)
		if tokenString == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"success": false,
				"error":   "Unauthorized - No token provided",
			})
		}

		claims, err := utils.ValidateToken(cfg.Secret, tokenString)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"success": false,
				"error":   "Unauthorized - Invalid token",
			})
		}

		key := cfg.Normalizer.Normalize(claims.Phone)
		if identity.IsBlank(key) {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"success": false,
				"error":   "Unauthorized - Token has no phone",
			})
		}

		// Store user info in context
		c.Locals("userID", claims.UserID)
		c.Locals("identity", key)
		c.Locals("isAdmin", claims.Role == RoleAdmin || (adminPhone != "" && key == adminPhone))

		return c.Next()
	}
}

func extractToken(c *fiber.Ctx) string {
	if token := c.Cookies("token"); token != "" {
		return token
	}
	if auth := c.Get(fiber.HeaderAuthorization); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	}
	return c.Query("token")
}

// RequireAdmin rejects callers without admin rights. It must run after
// AuthMiddleware.
func RequireAdmin(c *fiber.Ctx) error {
	if !IsAdmin(c) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"success": false,
			"error":   "Forbidden - Admin only",
		})
	}
	return c.Next()
}

// GetUserID gets user ID from context
func GetUserID(c *fiber.Ctx) int64 {
	userID, _ := c.Locals("userID").(int64)
	return userID
}

// GetIdentity gets the caller's canonical identity from context
func GetIdentity(c *fiber.Ctx) string {
	key, _ := c.Locals("identity").(string)
	return key
}

func IsAdmin(c *fiber.Ctx) bool {
	isAdmin, _ := c.Locals("isAdmin").(bool)
	return isAdmin
}
