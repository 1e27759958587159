package fleet

import (
	"errors"
	"strings"

	"motorent/internal/apperr"
	"motorent/internal/audit"
	"motorent/internal/auth"
	"motorent/internal/database"
	"motorent/internal/models"
	"motorent/internal/query"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type CreateParkRequest struct {
	Name     string `json:"name" validate:"required,max=150"`
	Location string `json:"location" validate:"max=255"`
	Image    string `json:"image" validate:"max=255"`
	DealerID uint   `json:"dealer_id"` // admin only; dealers always own what they create
}

type UpdateParkRequest struct {
	Name     *string `json:"name" validate:"omitempty,max=150"`
	Location *string `json:"location" validate:"omitempty,max=255"`
	Image    *string `json:"image" validate:"omitempty,max=255"`
	DealerID *uint   `json:"dealer_id"`
}

var parkSortColumns = map[string]string{
	"id":         "id",
	"name":       "name",
	"location":   "location",
	"created_at": "created_at",
}

// loadManagedPark hides whether the park exists from dealers who do not own it.
func loadManagedPark(db *gorm.DB, user *models.User, id uint) (*models.Park, error) {
	var park models.Park
	if err := db.First(&park, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			if user.IsAdmin() {
				return nil, apperr.NotFound("park")
			}
			return nil, auth.ForbiddenResource("park")
		}
		return nil, err
	}
	if err := auth.EnsureCanManage(user, park.DealerID, "park"); err != nil {
		return nil, err
	}
	return &park, nil
}

func ensureDealer(db *gorm.DB, id uint) error {
	var dealer models.User
	if err := db.First(&dealer, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.Invalid("dealer_id", "dealer does not exist")
		}
		return err
	}
	if dealer.Role != models.RoleDealer && dealer.Role != models.RoleAdmin {
		return apperr.Invalid("dealer_id", "user is not a dealer")
	}
	return nil
}

// GET /api/v1/parks?dealer_id=&q=&page=&limit=&sort=&order=
func ListParksHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		dbq := database.DB.Model(&models.Park{})
		if did := c.QueryInt("dealer_id"); did > 0 {
			dbq = dbq.Where("dealer_id = ?", did)
		}
		if q := strings.TrimSpace(c.Query("q")); q != "" {
			like := "%" + q + "%"
			dbq = dbq.Where("name ILIKE ? OR location ILIKE ?", like, like)
		}

		page := query.PageFromCtx(c, 20)
		var total int64
		if err := dbq.Count(&total).Error; err != nil {
			return err
		}

		var parks []models.Park
		if err := page.OrderBy(page.Apply(dbq), parkSortColumns, "id", false).Find(&parks).Error; err != nil {
			return err
		}
		return c.JSON(query.NewPageResponse(parks, total, page))
	}
}

// GET /api/v1/parks/park/:id
func GetParkHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := query.ParamID(c, "id")
		if err != nil {
			return err
		}

		var park models.Park
		if err := database.DB.Preload("Bikes", func(db *gorm.DB) *gorm.DB {
			return db.Order("id ASC")
		}).First(&park, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFound("park")
			}
			return err
		}
		return c.JSON(park)
	}
}

// POST /api/v1/parks
func CreateParkHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		user := auth.CurrentUser(c)

		var body CreateParkRequest
		if err := apperr.Bind(c, &body); err != nil {
			return err
		}

		park := models.Park{
			Name:     strings.TrimSpace(body.Name),
			Location: strings.TrimSpace(body.Location),
			Image:    body.Image,
			DealerID: user.ID,
		}
		if user.IsAdmin() && body.DealerID != 0 {
			if err := ensureDealer(database.DB, body.DealerID); err != nil {
				return err
			}
			park.DealerID = body.DealerID
		}

		if err := database.DB.Create(&park).Error; err != nil {
			return err
		}
		audit.Record(database.DB, audit.LogOptions{
			User: user, EntityType: "park", EntityID: park.ID,
			Action: models.AuditActionCreate, Description: "park created", After: park,
		})

		return c.Status(fiber.StatusCreated).JSON(park)
	}
}

// PUT /api/v1/parks/:id
func UpdateParkHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		user := auth.CurrentUser(c)
		id, err := query.ParamID(c, "id")
		if err != nil {
			return err
		}

		park, err := loadManagedPark(database.DB, user, id)
		if err != nil {
			return err
		}
		before := *park

		var body UpdateParkRequest
		if err := apperr.Bind(c, &body); err != nil {
			return err
		}

		if body.Name != nil {
			name := strings.TrimSpace(*body.Name)
			if name == "" {
				return apperr.Invalid("name", "is required")
			}
			park.Name = name
		}
		if body.Location != nil {
			park.Location = strings.TrimSpace(*body.Location)
		}
		if body.Image != nil {
			park.Image = *body.Image
		}

		dealerChanged := false
		if body.DealerID != nil && *body.DealerID != park.DealerID {
			if !user.IsAdmin() {
				return apperr.Forbidden("only admins can move a park to another dealer")
			}
			if err := ensureDealer(database.DB, *body.DealerID); err != nil {
				return err
			}
			park.DealerID = *body.DealerID
			dealerChanged = true
		}

		err = database.DB.Transaction(func(tx *gorm.DB) error {
			if err := tx.Save(park).Error; err != nil {
				return err
			}
			if dealerChanged {
				// bikes carry a denormalised copy of their park's dealer
				return tx.Model(&models.Bike{}).Where("park_id = ?", park.ID).
					Update("dealer_id", park.DealerID).Error
			}
			return nil
		})
		if err != nil {
			return err
		}

		audit.Record(database.DB, audit.LogOptions{
			User: user, EntityType: "park", EntityID: park.ID,
			Action: models.AuditActionUpdate, Description: "park updated", Before: before, After: park,
		})
		return c.JSON(park)
	}
}

// DELETE /api/v1/parks/:id
func DeleteParkHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		user := auth.CurrentUser(c)
		id, err := query.ParamID(c, "id")
		if err != nil {
			return err
		}

		park, err := loadManagedPark(database.DB, user, id)
		if err != nil {
			return err
		}

		if err := database.DB.Delete(&models.Park{}, park.ID).Error; err != nil {
			return err
		}
		audit.Record(database.DB, audit.LogOptions{
			User: user, EntityType: "park", EntityID: park.ID,
			Action: models.AuditActionDelete, Description: "park deleted", Before: park,
		})
		return c.SendStatus(fiber.StatusNoContent)
	}
}
