package audit

import (
	"motorent/internal/database"
	"motorent/internal/models"
	"motorent/internal/query"

	"github.com/gofiber/fiber/v2"
)

// GET /api/v1/admin/audit-logs?entity_type=bike&entity_id=1&user_id=2&action=update&page=1&limit=50
func ListAuditLogsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		dbq := database.DB.Model(&models.AuditLog{})

		if et := c.Query("entity_type"); et != "" {
			dbq = dbq.Where("entity_type = ?", et)
		}
		if eid := c.QueryInt("entity_id"); eid > 0 {
			dbq = dbq.Where("entity_id = ?", eid)
		}
		if uid := c.QueryInt("user_id"); uid > 0 {
			dbq = dbq.Where("user_id = ?", uid)
		}
		if action := c.Query("action"); action != "" {
			dbq = dbq.Where("action = ?", action)
		}

		page := query.PageFromCtx(c, 50)
		var total int64
		if err := dbq.Count(&total).Error; err != nil {
			return err
		}

		var logs []models.AuditLog
		if err := page.Apply(dbq).Order("created_at DESC").Find(&logs).Error; err != nil {
			return err
		}

		return c.JSON(query.NewPageResponse(logs, total, page))
	}
}
