package admin

import (
	"errors"
	"strings"
	"time"

	"motorent/internal/apperr"
	"motorent/internal/auth"
	"motorent/internal/database"
	"motorent/internal/models"
	"motorent/internal/query"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type CreateUserRequest struct {
	Name     string          `json:"name" validate:"required,max=100"`
	Email    string          `json:"email" validate:"required,email,max=100"`
	Password string          `json:"password" validate:"required,min=6"`
	Role     models.UserRole `json:"role"`
	Phone    string          `json:"phone" validate:"max=30"`
	Image    string          `json:"image" validate:"max=255"`
}

type UpdateUserRequest struct {
	Name      *string          `json:"name" validate:"omitempty,max=100"`
	Email     *string          `json:"email" validate:"omitempty,email,max=100"`
	Password  *string          `json:"password" validate:"omitempty,min=6"`
	Role      *models.UserRole `json:"role"`
	Phone     *string          `json:"phone" validate:"omitempty,max=30"`
	Birthdate *string          `json:"birthdate"`
	Image     *string          `json:"image" validate:"omitempty,max=255"`
}

type UpdateProfileRequest struct {
	Name            *string `json:"name" validate:"omitempty,max=100"`
	Phone           *string `json:"phone" validate:"omitempty,max=30"`
	Birthdate       *string `json:"birthdate"`
	Image           *string `json:"image" validate:"omitempty,max=255"`
	Password        *string `json:"password" validate:"omitempty,min=6"`
	CurrentPassword string  `json:"current_password"`
}

var userSortColumns = map[string]string{
	"id":         "id",
	"name":       "name",
	"email":      "email",
	"role":       "role",
	"created_at": "created_at",
}

func toUserResponses(users []models.User) []auth.UserResponse {
	out := make([]auth.UserResponse, 0, len(users))
	for i := range users {
		out = append(out, auth.NewUserResponse(&users[i]))
	}
	return out
}

func parseRole(raw models.UserRole) (models.UserRole, error) {
	r := models.UserRole(strings.ToLower(strings.TrimSpace(string(raw))))
	if !r.Valid() {
		return "", apperr.Invalid("role", "must be one of admin, dealer, user")
	}
	return r, nil
}

func parseBirthdate(raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return nil, apperr.Invalid("birthdate", "must be YYYY-MM-DD")
	}
	return &t, nil
}

func loadUser(db *gorm.DB, id uint) (*models.User, error) {
	var u models.User
	if err := db.First(&u, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("user")
		}
		return nil, err
	}
	return &u, nil
}

// emailTaken pre-checks the unique index; concurrent inserts still fail there with 23505.
func emailTaken(db *gorm.DB, email string, exceptID uint) error {
	var n int64
	q := db.Model(&models.User{}).Where("email = ?", email)
	if exceptID != 0 {
		q = q.Where("id <> ?", exceptID)
	}
	if err := q.Count(&n).Error; err != nil {
		return err
	}
	if n > 0 {
		return apperr.Conflict("email is already registered")
	}
	return nil
}

// GET /api/v1/users?role=&q=&page=&limit=&sort=&order=
func ListUsersHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		dbq := database.DB.Model(&models.User{})
		if raw := c.Query("role"); raw != "" {
			role, err := parseRole(models.UserRole(raw))
			if err != nil {
				return err
			}
			dbq = dbq.Where("role = ?", role)
		}
		if q := strings.TrimSpace(c.Query("q")); q != "" {
			like := "%" + q + "%"
			dbq = dbq.Where("name ILIKE ? OR email ILIKE ?", like, like)
		}

		page := query.PageFromCtx(c, 20)
		var total int64
		if err := dbq.Count(&total).Error; err != nil {
			return err
		}

		var users []models.User
		if err := page.OrderBy(page.Apply(dbq), userSortColumns, "id", false).Find(&users).Error; err != nil {
			return err
		}
		return c.JSON(query.NewPageResponse(toUserResponses(users), total, page))
	}
}

// GET /api/v1/users/:id
func GetUserHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := query.ParamID(c, "id")
		if err != nil {
			return err
		}
		u, err := loadUser(database.DB, id)
		if err != nil {
			return err
		}
		return c.JSON(auth.NewUserResponse(u))
	}
}

func createUser(c *fiber.Ctx, forceRole models.UserRole) error {
	var body CreateUserRequest
	if err := apperr.Bind(c, &body); err != nil {
		return err
	}

	role := models.RoleUser
	if forceRole != "" {
		role = forceRole
	} else if body.Role != "" {
		r, err := parseRole(body.Role)
		if err != nil {
			return err
		}
		role = r
	}

	email := auth.NormalizeEmail(body.Email)
	if err := emailTaken(database.DB, email, 0); err != nil {
		return err
	}
	hash, err := auth.HashPassword(body.Password)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "could not hash password")
	}

	u := models.User{
		Name:         strings.TrimSpace(body.Name),
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		Phone:        strings.TrimSpace(body.Phone),
		Image:        body.Image,
	}
	if err := database.DB.Create(&u).Error; err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(auth.NewUserResponse(&u))
}

// POST /api/v1/users
func CreateUserHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return createUser(c, "")
	}
}

// PUT /api/v1/users/:id
func UpdateUserHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := query.ParamID(c, "id")
		if err != nil {
			return err
		}
		u, err := loadUser(database.DB, id)
		if err != nil {
			return err
		}

		var body UpdateUserRequest
		if err := apperr.Bind(c, &body); err != nil {
			return err
		}

		if body.Name != nil {
			u.Name = strings.TrimSpace(*body.Name)
		}
		if body.Email != nil {
			email := auth.NormalizeEmail(*body.Email)
			if email != u.Email {
				if err := emailTaken(database.DB, email, u.ID); err != nil {
					return err
				}
				u.Email = email
			}
		}
		if body.Password != nil {
			hash, err := auth.HashPassword(*body.Password)
			if err != nil {
				return fiber.NewError(fiber.StatusInternalServerError, "could not hash password")
			}
			u.PasswordHash = hash
		}
		if body.Role != nil {
			role, err := parseRole(*body.Role)
			if err != nil {
				return err
			}
			if u.ID == auth.CurrentUser(c).ID && role != u.Role {
				return apperr.Invalid("role", "you cannot change your own role")
			}
			u.Role = role
		}
		if body.Phone != nil {
			u.Phone = strings.TrimSpace(*body.Phone)
		}
		if body.Birthdate != nil {
			if u.Birthdate, err = parseBirthdate(*body.Birthdate); err != nil {
				return err
			}
		}
		if body.Image != nil {
			u.Image = *body.Image
		}

		if err := database.DB.Omit("Parks").Save(u).Error; err != nil {
			return err
		}
		return c.JSON(auth.NewUserResponse(u))
	}
}

// DELETE /api/v1/users/:id
func DeleteUserHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := query.ParamID(c, "id")
		if err != nil {
			return err
		}
		if id == auth.CurrentUser(c).ID {
			return apperr.Invalid("id", "you cannot delete your own account")
		}

		res := database.DB.Delete(&models.User{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperr.NotFound("user")
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// PUT /api/v1/users/profile
func UpdateProfileHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		u := auth.CurrentUser(c)

		var body UpdateProfileRequest
		if err := apperr.Bind(c, &body); err != nil {
			return err
		}

		if body.Name != nil {
			name := strings.TrimSpace(*body.Name)
			if name == "" {
				return apperr.Invalid("name", "is required")
			}
			u.Name = name
		}
		if body.Phone != nil {
			u.Phone = strings.TrimSpace(*body.Phone)
		}
		if body.Birthdate != nil {
			bd, err := parseBirthdate(*body.Birthdate)
			if err != nil {
				return err
			}
			u.Birthdate = bd
		}
		if body.Image != nil {
			u.Image = *body.Image
		}
		if body.Password != nil {
			if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(body.CurrentPassword)); err != nil {
				return apperr.Invalid("current_password", "is incorrect")
			}
			hash, err := auth.HashPassword(*body.Password)
			if err != nil {
				return fiber.NewError(fiber.StatusInternalServerError, "could not hash password")
			}
			u.PasswordHash = hash
		}

		if err := database.DB.Omit("Parks").Save(u).Error; err != nil {
			return err
		}
		return c.JSON(auth.NewUserResponse(u))
	}
}
