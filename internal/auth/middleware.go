package auth

import (
	"strings"

	"motorent/internal/config"
	"motorent/internal/database"
	"motorent/internal/models"

	"github.com/gofiber/fiber/v2"
)

const (
	CtxUserKey = "user"

	AccessTokenCookie = "accessToken"
)

// FindUserByEmail resolves the token subject on every request. Tests replace it.
var FindUserByEmail = func(email string) (*models.User, error) {
	var user models.User
	if err := database.DB.Where("email = ?", email).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// tokenFromRequest checks the Authorization header, then the accessToken cookie, then ?token=.
func tokenFromRequest(c *fiber.Ctx) string {
	if h := c.Get(fiber.HeaderAuthorization); h != "" {
		parts := strings.SplitN(h, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			return strings.TrimSpace(parts[1])
		}
	}
	if ck := c.Cookies(AccessTokenCookie); ck != "" {
		return ck
	}
	return c.Query("token")
}

func resolveUser(cfg *config.Config, c *fiber.Ctx) (*models.User, error) {
	tokenStr := tokenFromRequest(c)
	if tokenStr == "" {
		return nil, fiber.NewError(fiber.StatusUnauthorized, "missing access token")
	}

	claims, err := ParseToken(cfg.JWTSecret, tokenStr)
	if err != nil {
		return nil, fiber.NewError(fiber.StatusUnauthorized, "invalid or expired token")
	}

	user, err := FindUserByEmail(claims.Email)
	if err != nil {
		return nil, fiber.NewError(fiber.StatusUnauthorized, "user no longer exists")
	}
	return user, nil
}

func JWTMiddleware(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, err := resolveUser(cfg, c)
		if err != nil {
			return err
		}
		c.Locals(CtxUserKey, user)
		return c.Next()
	}
}

// OptionalAuth attaches the user when a valid token is present and never rejects.
func OptionalAuth(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if user, err := resolveUser(cfg, c); err == nil {
			c.Locals(CtxUserKey, user)
		}
		return c.Next()
	}
}

func RequireRole(allowedRoles ...models.UserRole) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user := CurrentUser(c)
		if user == nil {
			return fiber.NewError(fiber.StatusUnauthorized, "authentication required")
		}
		for _, r := range allowedRoles {
			if r == user.Role {
				return c.Next()
			}
		}
		return fiber.NewError(fiber.StatusForbidden, "you are not allowed to perform this action")
	}
}

// CurrentUser returns nil on routes without (or with failed optional) authentication.
func CurrentUser(c *fiber.Ctx) *models.User {
	user, _ := c.Locals(CtxUserKey).(*models.User)
	return user
}
