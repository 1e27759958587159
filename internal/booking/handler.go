// Package booking serves the storefront's booking requests and their back-office review.
package booking

import (
	"errors"
	"strings"

	"motorent/internal/apperr"
	"motorent/internal/audit"
	"motorent/internal/auth"
	"motorent/internal/config"
	"motorent/internal/database"
	"motorent/internal/models"
	"motorent/internal/notify"
	"motorent/internal/query"
	"motorent/internal/ratelimit"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type CreateRequest struct {
	Name           string `json:"name" validate:"required,max=150"`
	Email          string `json:"email" validate:"omitempty,email,max=150"`
	ContactMethod  string `json:"contact_method" validate:"max=30"`
	ContactDetails string `json:"contact_details" validate:"required,max=150"`
	PickupLocation string `json:"pickup_location" validate:"max=255"`
}

type UpdateRequest struct {
	Status     *string `json:"status"`
	AdminNotes *string `json:"admin_notes"`
	DealerID   *uint   `json:"dealer_id"`
}

// Response adds the customer-facing booking id to the stored row.
type Response struct {
	models.BookingRequest
	BookingCode string `json:"booking_id"`
}

func NewResponse(b models.BookingRequest) Response {
	return Response{BookingRequest: b, BookingCode: models.BookingCode(b.ID)}
}

func newResponses(rows []models.BookingRequest) []Response {
	out := make([]Response, 0, len(rows))
	for _, b := range rows {
		out = append(out, NewResponse(b))
	}
	return out
}

var sortColumns = map[string]string{
	"id":         "id",
	"name":       "name",
	"status":     "status",
	"created_at": "created_at",
}

func ParseStatus(raw string) (models.BookingStatus, error) {
	s := models.BookingStatus(strings.ToUpper(strings.TrimSpace(raw)))
	if !s.Valid() {
		return "", apperr.Invalid("status", "must be one of PENDING, APPROVED, REJECTED, COMPLETED")
	}
	return s, nil
}

func loadManaged(db *gorm.DB, user *models.User, id uint) (*models.BookingRequest, error) {
	var br models.BookingRequest
	if err := db.First(&br, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			if user.IsAdmin() {
				return nil, apperr.NotFound("booking request")
			}
			return nil, auth.ForbiddenResource("booking request")
		}
		return nil, err
	}
	if !auth.CanManageOptional(user, br.DealerID) {
		return nil, auth.ForbiddenResource("booking request")
	}
	return &br, nil
}

func statusEvent(br *models.BookingRequest) notify.Event {
	return notify.Event{
		Kind: notify.KindBookingStatusChange,
		To:   br.Email,
		Data: map[string]string{
			"name":         br.Name,
			"booking_code": models.BookingCode(br.ID),
			"status":       string(br.Status),
			"admin_notes":  br.AdminNotes,
		},
	}
}

// POST /api/v1/booking-requests
func CreateHandler(d notify.Dispatcher) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateRequest
		if err := apperr.Bind(c, &body); err != nil {
			return err
		}

		br := models.BookingRequest{
			Name:           strings.TrimSpace(body.Name),
			Email:          auth.NormalizeEmail(body.Email),
			ContactMethod:  strings.TrimSpace(body.ContactMethod),
			ContactDetails: strings.TrimSpace(body.ContactDetails),
			PickupLocation: strings.TrimSpace(body.PickupLocation),
			Status:         models.BookingPending,
		}
		if user := auth.CurrentUser(c); user != nil {
			br.UserID = &user.ID
			if br.Email == "" {
				br.Email = user.Email
			}
		}

		if err := database.DB.Create(&br).Error; err != nil {
			return err
		}
		audit.Record(database.DB, audit.LogOptions{
			User: auth.CurrentUser(c), EntityType: "booking_request", EntityID: br.ID,
			Action: models.AuditActionCreate, Description: "booking request submitted", After: br,
		})

		d.Dispatch(c.UserContext(), notify.Event{
			Kind: notify.KindBookingRequested,
			To:   br.Email,
			Data: map[string]string{
				"name":            br.Name,
				"booking_code":    models.BookingCode(br.ID),
				"pickup_location": br.PickupLocation,
				"contact_method":  br.ContactMethod,
			},
		})

		return c.Status(fiber.StatusCreated).JSON(NewResponse(br))
	}
}

// GET /api/v1/booking-requests/search?booking_id=BK000042 | phone= | email=
func SearchHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		dbq := database.DB.Model(&models.BookingRequest{})

		switch {
		case c.Query("booking_id") != "":
			id, err := models.ParseBookingCode(c.Query("booking_id"))
			if err != nil {
				return apperr.Invalid("booking_id", "must look like BK000042")
			}
			dbq = dbq.Where("id = ?", id)
		case c.Query("phone") != "":
			dbq = dbq.Where("contact_details = ?", strings.TrimSpace(c.Query("phone")))
		case c.Query("email") != "":
			dbq = dbq.Where("email = ?", auth.NormalizeEmail(c.Query("email")))
		default:
			return apperr.Invalid("booking_id", "booking_id, phone or email is required")
		}

		var rows []models.BookingRequest
		if err := dbq.Order("created_at DESC").Limit(query.MaxLimit).Find(&rows).Error; err != nil {
			return err
		}
		return c.JSON(newResponses(rows))
	}
}

// GET /api/v1/booking-requests?status=&page=&limit=&sort=&order=
func ListHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		user := auth.CurrentUser(c)
		dbq := database.DB.Model(&models.BookingRequest{})

		if !user.IsAdmin() {
			dbq = dbq.Where("dealer_id = ?", user.ID)
		} else if did := c.QueryInt("dealer_id"); did > 0 {
			dbq = dbq.Where("dealer_id = ?", did)
		}
		if raw := c.Query("status"); raw != "" {
			status, err := ParseStatus(raw)
			if err != nil {
				return err
			}
			dbq = dbq.Where("status = ?", status)
		}

		page := query.PageFromCtx(c, 20)
		var total int64
		if err := dbq.Count(&total).Error; err != nil {
			return err
		}

		var rows []models.BookingRequest
		if err := page.OrderBy(page.Apply(dbq), sortColumns, "created_at", true).Find(&rows).Error; err != nil {
			return err
		}
		return c.JSON(query.NewPageResponse(newResponses(rows), total, page))
	}
}

// GET /api/v1/booking-requests/:id
func GetHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := query.ParamID(c, "id")
		if err != nil {
			return err
		}
		br, err := loadManaged(database.DB, auth.CurrentUser(c), id)
		if err != nil {
			return err
		}
		return c.JSON(NewResponse(*br))
	}
}

// PUT /api/v1/booking-requests/:id
func UpdateHandler(d notify.Dispatcher) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user := auth.CurrentUser(c)
		id, err := query.ParamID(c, "id")
		if err != nil {
			return err
		}

		br, err := loadManaged(database.DB, user, id)
		if err != nil {
			return err
		}
		before := *br

		var body UpdateRequest
		if err := apperr.Bind(c, &body); err != nil {
			return err
		}

		if body.Status != nil {
			status, err := ParseStatus(*body.Status)
			if err != nil {
				return err
			}
			br.Status = status
		}
		if body.AdminNotes != nil {
			br.AdminNotes = strings.TrimSpace(*body.AdminNotes)
		}
		if body.DealerID != nil {
			if !user.IsAdmin() {
				return apperr.Forbidden("only admins can assign a booking request to a dealer")
			}
			if *body.DealerID == 0 {
				br.DealerID = nil
			} else {
				did := *body.DealerID
				br.DealerID = &did
			}
		}

		if err := database.DB.Save(br).Error; err != nil {
			return err
		}
		audit.Record(database.DB, audit.LogOptions{
			User: user, EntityType: "booking_request", EntityID: br.ID,
			Action: models.AuditActionUpdate, Description: "booking request updated", Before: before, After: br,
		})

		if br.Status != before.Status {
			d.Dispatch(c.UserContext(), statusEvent(br))
		}
		return c.JSON(NewResponse(*br))
	}
}

// DELETE /api/v1/booking-requests/:id
func DeleteHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		user := auth.CurrentUser(c)
		id, err := query.ParamID(c, "id")
		if err != nil {
			return err
		}

		br, err := loadManaged(database.DB, user, id)
		if err != nil {
			return err
		}

		// detach rentals first; the link column has no cascade
		err = database.DB.Transaction(func(tx *gorm.DB) error {
			if err := tx.Model(&models.Rental{}).Where("booking_request_id = ?", br.ID).
				Update("booking_request_id", nil).Error; err != nil {
				return err
			}
			return tx.Delete(&models.BookingRequest{}, br.ID).Error
		})
		if err != nil {
			return err
		}

		audit.Record(database.DB, audit.LogOptions{
			User: user, EntityType: "booking_request", EntityID: br.ID,
			Action: models.AuditActionDelete, Description: "booking request deleted", Before: br,
		})
		return c.SendStatus(fiber.StatusNoContent)
	}
}

func RegisterRoutes(api fiber.Router, cfg *config.Config, d notify.Dispatcher) {
	limiter := ratelimit.New(cfg.BookingRatePerMinute)
	managers := []fiber.Handler{
		auth.JWTMiddleware(cfg),
		auth.RequireRole(models.RoleAdmin, models.RoleDealer),
	}

	g := api.Group("/booking-requests")
	g.Post("/", limiter.Middleware(), auth.OptionalAuth(cfg), CreateHandler(d))
	g.Get("/search", limiter.Middleware(), SearchHandler())
	g.Get("/", append(managers, ListHandler())...)
	g.Get("/:id", append(managers, GetHandler())...)
	g.Put("/:id", append(managers, UpdateHandler(d))...)
	g.Delete("/:id", append(managers, DeleteHandler())...)
}
