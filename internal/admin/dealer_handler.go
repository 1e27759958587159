package admin

import (
	"errors"

	"motorent/internal/apperr"
	"motorent/internal/auth"
	"motorent/internal/database"
	"motorent/internal/models"
	"motorent/internal/query"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type DealerSummary struct {
	ID        uint   `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Image     string `json:"image"`
	ParkCount int64  `json:"park_count"`
	BikeCount int64  `json:"bike_count"`
}

type DealerDetail struct {
	auth.UserResponse
	Parks []models.Park `json:"parks"`
}

// GET /api/v1/dealers
func ListDealersHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var rows []DealerSummary
		err := database.DB.Model(&models.User{}).
			Select(`users.id, users.name, users.email, users.phone, users.image,
				(SELECT COUNT(*) FROM parks WHERE parks.dealer_id = users.id) AS park_count,
				(SELECT COUNT(*) FROM bikes WHERE bikes.dealer_id = users.id) AS bike_count`).
			Where("users.role = ?", models.RoleDealer).
			Order("users.name ASC").
			Limit(query.MaxLimit * 5).
			Scan(&rows).Error
		if err != nil {
			return err
		}
		if rows == nil {
			rows = []DealerSummary{}
		}
		return c.JSON(rows)
	}
}

// GET /api/v1/dealers/:id
func GetDealerHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := query.ParamID(c, "id")
		if err != nil {
			return err
		}

		var dealer models.User
		err = database.DB.Preload("Parks", func(db *gorm.DB) *gorm.DB {
			return db.Order("name ASC")
		}).Where("role = ?", models.RoleDealer).First(&dealer, id).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFound("dealer")
			}
			return err
		}

		parks := dealer.Parks
		if parks == nil {
			parks = []models.Park{}
		}
		return c.JSON(DealerDetail{UserResponse: auth.NewUserResponse(&dealer), Parks: parks})
	}
}

// POST /api/v1/dealers
func CreateDealerHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return createUser(c, models.RoleDealer)
	}
}
