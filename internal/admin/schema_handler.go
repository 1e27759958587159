package admin

import (
	"fmt"
	"strings"
	"sync"

	"motorent/internal/apperr"
	"motorent/internal/database"
	"motorent/internal/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm/schema"
)

type FieldKind string

const (
	KindText     FieldKind = "text"
	KindNumber   FieldKind = "number"
	KindSelect   FieldKind = "select"
	KindSwitch   FieldKind = "switch"
	KindFile     FieldKind = "file"
	KindDatetime FieldKind = "datetime"
	KindEmail    FieldKind = "email"
	KindPassword FieldKind = "password"
)

type Option struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

type Field struct {
	Name     string    `json:"name"`
	Label    string    `json:"label"`
	Kind     FieldKind `json:"kind"`
	Required bool      `json:"required"`
	Options  []Option  `json:"options,omitempty"`
}

var formModels = map[string]any{
	"users":            &models.User{},
	"parks":            &models.Park{},
	"bikes":            &models.Bike{},
	"rentals":          &models.Rental{},
	"booking-requests": &models.BookingRequest{},
	"referrers":        &models.Referrer{},
}

var hiddenKeys = map[string]bool{
	"id":            true,
	"created_at":    true,
	"updated_at":    true,
	"password_hash": true,
}

var (
	schemaCache = &sync.Map{}
	namer       = schema.NamingStrategy{}
)

func stringOptions[T ~string](values []T) []Option {
	out := make([]Option, 0, len(values))
	for _, v := range values {
		out = append(out, Option{Value: string(v), Label: humanize(string(v))})
	}
	return out
}

func statusOptions(module string) []Option {
	switch module {
	case "bikes":
		return stringOptions(models.BikeStatuses)
	case "rentals":
		return stringOptions(models.RentalStatuses)
	case "booking-requests":
		return stringOptions(models.BookingStatuses)
	}
	return nil
}

func humanize(key string) string {
	s := strings.ReplaceAll(strings.ToLower(key), "_", " ")
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func jsonKey(f *schema.Field) string {
	tag := f.Tag.Get("json")
	if tag == "" {
		return f.DBName
	}
	return strings.Split(tag, ",")[0]
}

func kindOf(key string, f *schema.Field) FieldKind {
	switch {
	case key == "image":
		return KindFile
	case key == "email" || strings.HasSuffix(key, "_email"):
		return KindEmail
	}
	switch f.DataType {
	case schema.Bool:
		return KindSwitch
	case schema.Time:
		return KindDatetime
	case schema.Int, schema.Uint, schema.Float:
		return KindNumber
	}
	if strings.HasSuffix(key, "id") {
		return KindNumber
	}
	return KindText
}

// Describe lists the form fields of a back-office module. parks supplies the park_id options.
func Describe(module string, parks []models.Park) ([]Field, error) {
	model, ok := formModels[module]
	if !ok {
		return nil, apperr.NotFound("schema for module " + module)
	}
	s, err := schema.Parse(model, schemaCache, namer)
	if err != nil {
		return nil, fmt.Errorf("parse %s schema: %w", module, err)
	}

	fields := make([]Field, 0, len(s.Fields))
	for _, f := range s.Fields {
		if f.DBName == "" {
			continue
		}
		key := jsonKey(f)
		if key == "-" || hiddenKeys[key] {
			continue
		}

		field := Field{
			Name:     key,
			Label:    humanize(key),
			Kind:     kindOf(key, f),
			Required: f.NotNull && !f.HasDefaultValue && f.DataType != schema.Bool,
		}
		switch key {
		case "role":
			field.Kind = KindSelect
			field.Options = stringOptions([]models.UserRole{models.RoleAdmin, models.RoleDealer, models.RoleUser})
		case "status":
			field.Kind = KindSelect
			field.Options = statusOptions(module)
		case "park_id":
			field.Kind = KindSelect
			field.Options = make([]Option, 0, len(parks))
			for _, p := range parks {
				field.Options = append(field.Options, Option{Value: fmt.Sprint(p.ID), Label: p.Name})
			}
		}
		fields = append(fields, field)
	}

	if module == "users" {
		fields = append(fields, Field{Name: "password", Label: "Password", Kind: KindPassword})
	}
	return fields, nil
}

// GET /api/v1/admin/schema/:module
func SchemaHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		module := strings.ToLower(c.Params("module"))
		if _, ok := formModels[module]; !ok {
			return apperr.NotFound("schema for module " + module)
		}

		var parks []models.Park
		if module == "bikes" {
			if err := database.DB.Select("id", "name").Order("name ASC").Find(&parks).Error; err != nil {
				return err
			}
		}

		fields, err := Describe(module, parks)
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"module": module, "fields": fields})
	}
}
