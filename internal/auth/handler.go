package auth

import (
	"strings"
	"time"

	"motorent/internal/apperr"
	"motorent/internal/config"
	"motorent/internal/database"
	"motorent/internal/models"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"
)

type RegisterRequest struct {
	Name     string `json:"name" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	Phone    string `json:"phone" validate:"omitempty,max=30"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type UserResponse struct {
	ID        uint            `json:"id"`
	Name      string          `json:"name"`
	Email     string          `json:"email"`
	Role      models.UserRole `json:"role"`
	Phone     string          `json:"phone"`
	Birthdate *time.Time      `json:"birthdate"`
	Image     string          `json:"image"`
}

func NewUserResponse(u *models.User) UserResponse {
	return UserResponse{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Role:      u.Role,
		Phone:     u.Phone,
		Birthdate: u.Birthdate,
		Image:     u.Image,
	}
}

func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// POST /api/v1/auth/register
func RegisterHandler(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body RegisterRequest
		if err := apperr.Bind(c, &body); err != nil {
			return err
		}
		body.Email = NormalizeEmail(body.Email)

		var count int64
		if err := database.DB.Model(&models.User{}).Where("email = ?", body.Email).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return apperr.Conflict("email is already registered")
		}

		hash, err := HashPassword(body.Password)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "could not hash password")
		}

		user := models.User{
			Name:         strings.TrimSpace(body.Name),
			Email:        body.Email,
			PasswordHash: hash,
			Role:         models.RoleUser,
			Phone:        strings.TrimSpace(body.Phone),
		}
		if err := database.DB.Create(&user).Error; err != nil {
			return err
		}

		return issueToken(c, cfg, &user, fiber.StatusCreated)
	}
}

// POST /api/v1/auth/login
func LoginHandler(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body LoginRequest
		if err := apperr.Bind(c, &body); err != nil {
			return err
		}

		var user models.User
		if err := database.DB.Where("email = ?", NormalizeEmail(body.Email)).First(&user).Error; err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "wrong email or password")
		}
		if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(body.Password)); err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "wrong email or password")
		}

		return issueToken(c, cfg, &user, fiber.StatusOK)
	}
}

// POST /api/v1/auth/logout
func LogoutHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Cookie(&fiber.Cookie{
			Name:     AccessTokenCookie,
			Value:    "",
			Expires:  time.Unix(0, 0),
			HTTPOnly: true,
			SameSite: fiber.CookieSameSiteLaxMode,
		})
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// GET /api/v1/auth/me
func MeHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		user := CurrentUser(c)
		if user == nil {
			return fiber.NewError(fiber.StatusUnauthorized, "authentication required")
		}
		return c.JSON(NewUserResponse(user))
	}
}

func issueToken(c *fiber.Ctx, cfg *config.Config, user *models.User, status int) error {
	token, err := GenerateToken(cfg.JWTSecret, user)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "could not create token")
	}

	c.Cookie(&fiber.Cookie{
		Name:     AccessTokenCookie,
		Value:    token,
		Expires:  time.Now().Add(TokenTTL),
		HTTPOnly: true,
		Secure:   cfg.IsProduction(),
		SameSite: fiber.CookieSameSiteLaxMode,
	})

	return c.Status(status).JSON(fiber.Map{
		"token": token,
		"user":  NewUserResponse(user),
	})
}
