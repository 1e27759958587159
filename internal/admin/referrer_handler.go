package admin

import (
	"errors"
	"strings"

	"motorent/internal/apperr"
	"motorent/internal/database"
	"motorent/internal/models"
	"motorent/internal/query"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type ReferrerRequest struct {
	Name  string `json:"name" validate:"required,max=150"`
	Code  string `json:"code" validate:"required,alphanum,max=50"`
	Email string `json:"email" validate:"omitempty,email,max=150"`
	Phone string `json:"phone" validate:"max=30"`
	Note  string `json:"note" validate:"max=255"`
}

func (r ReferrerRequest) apply(ref *models.Referrer) {
	ref.Name = strings.TrimSpace(r.Name)
	ref.Code = strings.ToUpper(strings.TrimSpace(r.Code))
	ref.Email = strings.ToLower(strings.TrimSpace(r.Email))
	ref.Phone = strings.TrimSpace(r.Phone)
	ref.Note = strings.TrimSpace(r.Note)
}

func codeTaken(db *gorm.DB, code string, exceptID uint) error {
	var n int64
	q := db.Model(&models.Referrer{}).Where("code = ?", code)
	if exceptID != 0 {
		q = q.Where("id <> ?", exceptID)
	}
	if err := q.Count(&n).Error; err != nil {
		return err
	}
	if n > 0 {
		return apperr.Conflict("referrer code is already in use")
	}
	return nil
}

// GET /api/v1/referrers?q=
func ListReferrersHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		dbq := database.DB.Model(&models.Referrer{})
		if q := strings.TrimSpace(c.Query("q")); q != "" {
			like := "%" + q + "%"
			dbq = dbq.Where("name ILIKE ? OR code ILIKE ?", like, like)
		}

		var refs []models.Referrer
		if err := dbq.Order("name ASC").Limit(query.MaxLimit).Find(&refs).Error; err != nil {
			return err
		}
		if refs == nil {
			refs = []models.Referrer{}
		}
		return c.JSON(refs)
	}
}

// POST /api/v1/referrers
func CreateReferrerHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body ReferrerRequest
		if err := apperr.Bind(c, &body); err != nil {
			return err
		}

		var ref models.Referrer
		body.apply(&ref)
		if err := codeTaken(database.DB, ref.Code, 0); err != nil {
			return err
		}
		if err := database.DB.Create(&ref).Error; err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(ref)
	}
}

// PUT /api/v1/referrers/:id
func UpdateReferrerHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := query.ParamID(c, "id")
		if err != nil {
			return err
		}

		var ref models.Referrer
		if err := database.DB.First(&ref, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFound("referrer")
			}
			return err
		}

		var body ReferrerRequest
		if err := apperr.Bind(c, &body); err != nil {
			return err
		}
		body.apply(&ref)
		if err := codeTaken(database.DB, ref.Code, ref.ID); err != nil {
			return err
		}

		if err := database.DB.Save(&ref).Error; err != nil {
			return err
		}
		return c.JSON(ref)
	}
}

// DELETE /api/v1/referrers/:id
func DeleteReferrerHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := query.ParamID(c, "id")
		if err != nil {
			return err
		}
		res := database.DB.Delete(&models.Referrer{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperr.NotFound("referrer")
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}
