package apperr

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// Handler is installed as fiber.Config.ErrorHandler.
func Handler(c *fiber.Ctx, err error) error {
	var (
		fe   *fiber.Error
		ve   ValidationError
		nf   NotFoundError
		fb   ForbiddenError
		cf   ConflictError
		pgEr *pgconn.PgError
	)

	switch {
	case errors.As(err, &fe):
		return c.Status(fe.Code).JSON(fiber.Map{"error": fe.Message})
	case errors.As(err, &ve):
		body := fiber.Map{"error": ve.Error()}
		if len(ve.Fields) > 0 {
			body["fields"] = ve.Fields
		}
		return c.Status(fiber.StatusBadRequest).JSON(body)
	case errors.As(err, &nf):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": nf.Error()})
	case errors.Is(err, gorm.ErrRecordNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "record not found"})
	case errors.As(err, &fb):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": fb.Error()})
	case errors.As(err, &cf):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": cf.Error()})
	case errors.As(err, &pgEr):
		switch pgEr.Code {
		case pgUniqueViolation:
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"error":      "a record with the same unique value already exists",
				"code":       pgEr.Code,
				"constraint": pgEr.ConstraintName,
			})
		case pgForeignKeyViolation:
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"error":      "referenced record does not exist or is still in use",
				"code":       pgEr.Code,
				"constraint": pgEr.ConstraintName,
			})
		}
	}

	log.Errorf("unexpected error on %s %s: %v", c.Method(), c.Path(), err)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error": "unexpected server error",
	})
}
