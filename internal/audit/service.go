package audit

import (
	"encoding/json"
	"fmt"

	"motorent/internal/models"

	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"
)

type LogOptions struct {
	User        *models.User
	EntityType  string
	EntityID    uint
	Action      models.AuditAction
	Description string
	Before      any
	After       any
}

func toJSON(v any) string {
	// jsonb columns need the literal null rather than an empty string.
	if v == nil {
		return "null"
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "null"
	}
	return string(b)
}

func WriteLog(db *gorm.DB, opts LogOptions) error {
	entry := models.AuditLog{
		EntityType:  opts.EntityType,
		EntityID:    opts.EntityID,
		Action:      opts.Action,
		Description: opts.Description,
		BeforeData:  toJSON(opts.Before),
		AfterData:   toJSON(opts.After),
	}
	if opts.User != nil {
		id := opts.User.ID
		entry.UserID = &id
		entry.UserName = opts.User.Name
	}

	if err := db.Create(&entry).Error; err != nil {
		return fmt.Errorf("write audit log: %w", err)
	}
	return nil
}

// Record is WriteLog for call sites where a lost audit row must not fail the request.
func Record(db *gorm.DB, opts LogOptions) {
	if err := WriteLog(db, opts); err != nil {
		log.Warnf("[AUDIT] %s %s#%d: %v", opts.Action, opts.EntityType, opts.EntityID, err)
	}
}
