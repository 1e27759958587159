package query

import (
	"strconv"
	"strings"
	"time"

	"motorent/internal/apperr"

	"github.com/gofiber/fiber/v2"
)

// ParamID reads a positive numeric route parameter.
func ParamID(c *fiber.Ctx, name string) (uint, error) {
	n, err := strconv.ParseUint(c.Params(name), 10, 64)
	if err != nil || n == 0 {
		return 0, apperr.Invalid(name, "must be a positive integer")
	}
	return uint(n), nil
}

// local layouts tried after RFC3339, interpreted in the caller's location
var localLayouts = []string{"2006-01-02T15:04:05", "2006-01-02T15:04"}

// ParseTime accepts RFC3339, a zone-less timestamp or a bare date (midnight in loc).
func ParseTime(value string, loc *time.Location) (time.Time, error) {
	value = strings.TrimSpace(value)
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, value, loc); err == nil {
			return t, nil
		}
	}
	return time.ParseInLocation("2006-01-02", value, loc)
}
