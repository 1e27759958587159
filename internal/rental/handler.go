// Package rental books bikes for a time interval and keeps linked booking requests in sync.
package rental

import (
	"errors"
	"strings"
	"time"

	"motorent/internal/apperr"
	"motorent/internal/audit"
	"motorent/internal/auth"
	"motorent/internal/config"
	"motorent/internal/database"
	"motorent/internal/models"
	"motorent/internal/notify"
	"motorent/internal/pricing"
	"motorent/internal/query"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CreateRequest struct {
	BikeID           uint   `json:"bike_id" validate:"required"`
	StartTime        string `json:"start_time" validate:"required"`
	EndTime          string `json:"end_time" validate:"required"`
	ContactName      string `json:"contact_name" validate:"max=150"`
	ContactEmail     string `json:"contact_email" validate:"omitempty,email,max=150"`
	ContactPhone     string `json:"contact_phone" validate:"max=30"`
	PickupLocation   string `json:"pickup_location" validate:"max=255"`
	BookingRequestID *uint  `json:"booking_request_id"`
}

type UpdateRequest struct {
	Status         *string `json:"status"`
	StartTime      *string `json:"start_time"`
	EndTime        *string `json:"end_time"`
	ContactName    *string `json:"contact_name" validate:"omitempty,max=150"`
	ContactEmail   *string `json:"contact_email" validate:"omitempty,email,max=150"`
	ContactPhone   *string `json:"contact_phone" validate:"omitempty,max=30"`
	PickupLocation *string `json:"pickup_location" validate:"omitempty,max=255"`
}

var sortColumns = map[string]string{
	"id":         "id",
	"start_time": "start_time",
	"end_time":   "end_time",
	"price":      "price",
	"status":     "status",
	"created_at": "created_at",
}

var blockingStatuses = []models.RentalStatus{models.RentalPending, models.RentalActive, models.RentalOngoing}

func ParseStatus(raw string) (models.RentalStatus, error) {
	s := models.NormalizeRentalStatus(raw)
	if !s.Valid() {
		return "", apperr.Invalid("status", "must be one of pending, active, ongoing, completed, cancelled")
	}
	return s, nil
}

func parseInterval(start, end string, loc *time.Location) (time.Time, time.Time, error) {
	s, err := query.ParseTime(start, loc)
	if err != nil {
		return time.Time{}, time.Time{}, apperr.Invalid("start_time", "must be an RFC3339 timestamp or YYYY-MM-DD date")
	}
	e, err := query.ParseTime(end, loc)
	if err != nil {
		return time.Time{}, time.Time{}, apperr.Invalid("end_time", "must be an RFC3339 timestamp or YYYY-MM-DD date")
	}
	if !e.After(s) {
		return time.Time{}, time.Time{}, apperr.Invalid("end_time", "must be after start_time")
	}
	return s, e, nil
}

// ensureFree fails with 409 when another holding rental of the bike intersects [start, end).
func ensureFree(tx *gorm.DB, bikeID, exceptID uint, start, end time.Time) error {
	q := tx.Model(&models.Rental{}).
		Where("bike_id = ? AND status IN ? AND start_time < ? AND end_time > ?", bikeID, blockingStatuses, end, start)
	if exceptID != 0 {
		q = q.Where("id <> ?", exceptID)
	}
	var n int64
	if err := q.Count(&n).Error; err != nil {
		return err
	}
	if n > 0 {
		return apperr.Conflict("the bike is already booked for this period")
	}
	return nil
}

func loadRental(db *gorm.DB, id uint) (*models.Rental, error) {
	var r models.Rental
	if err := db.Preload("Bike").First(&r, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("rental")
		}
		return nil, err
	}
	return &r, nil
}

// canView: admins, and the customer the rental belongs to.
func canView(user *models.User, r *models.Rental) bool {
	if user.IsAdmin() {
		return true
	}
	return user != nil && r.UserID != nil && *r.UserID == user.ID
}

func createdEvent(r *models.Rental, loc *time.Location) notify.Event {
	bikeModel := ""
	if r.Bike != nil {
		bikeModel = r.Bike.Model
	}
	const layout = "02/01/2006 15:04"
	return notify.Event{
		Kind: notify.KindRentalCreated,
		To:   r.ContactEmail,
		Data: map[string]string{
			"name":            r.ContactName,
			"booking_code":    r.Reference(),
			"bike_model":      bikeModel,
			"start_time":      r.StartTime.In(loc).Format(layout),
			"end_time":        r.EndTime.In(loc).Format(layout),
			"pickup_location": r.PickupLocation,
			"price":           pricing.FormatVND(r.Price),
		},
	}
}

// POST /api/v1/rentals
func CreateHandler(cfg *config.Config, d notify.Dispatcher) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user := auth.CurrentUser(c)
		loc := cfg.Location()

		var body CreateRequest
		if err := apperr.Bind(c, &body); err != nil {
			return err
		}
		start, end, err := parseInterval(body.StartTime, body.EndTime, loc)
		if err != nil {
			return err
		}

		r := models.Rental{
			BikeID:           body.BikeID,
			StartTime:        start,
			EndTime:          end,
			Status:           models.RentalPending,
			ContactName:      strings.TrimSpace(body.ContactName),
			ContactEmail:     auth.NormalizeEmail(body.ContactEmail),
			ContactPhone:     strings.TrimSpace(body.ContactPhone),
			PickupLocation:   strings.TrimSpace(body.PickupLocation),
			BookingRequestID: body.BookingRequestID,
		}
		if user != nil {
			r.UserID = &user.ID
			if r.ContactName == "" {
				r.ContactName = user.Name
			}
			if r.ContactEmail == "" {
				r.ContactEmail = user.Email
			}
			if r.ContactPhone == "" {
				r.ContactPhone = user.Phone
			}
		}

		err = database.DB.Transaction(func(tx *gorm.DB) error {
			// the row lock serialises concurrent bookings of the same bike
			var bike models.Bike
			if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&bike, body.BikeID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return apperr.NotFound("bike")
				}
				return err
			}
			if !bike.Bookable() {
				return apperr.Conflict("the bike is not available for rent")
			}

			quote, err := pricing.Calculate(bike.Price, start, end, loc)
			if err != nil {
				return apperr.Invalid("end_time", err.Error())
			}
			r.Price = quote.Total

			if r.BookingRequestID != nil {
				var n int64
				if err := tx.Model(&models.BookingRequest{}).Where("id = ?", *r.BookingRequestID).Count(&n).Error; err != nil {
					return err
				}
				if n == 0 {
					return apperr.Invalid("booking_request_id", "booking request does not exist")
				}
			}

			if err := ensureFree(tx, bike.ID, 0, start, end); err != nil {
				return err
			}
			if err := tx.Create(&r).Error; err != nil {
				return err
			}

			r.QRCode = r.Reference()
			if err := tx.Model(&r).Update("qrcode", r.QRCode).Error; err != nil {
				return err
			}
			r.Bike = &bike
			return nil
		})
		if err != nil {
			return err
		}

		audit.Record(database.DB, audit.LogOptions{
			User: user, EntityType: "rental", EntityID: r.ID,
			Action: models.AuditActionCreate, Description: "rental created", After: r,
		})
		d.Dispatch(c.UserContext(), createdEvent(&r, loc))

		return c.Status(fiber.StatusCreated).JSON(r)
	}
}

// GET /api/v1/rentals?status=&bike_id=&user_id=&page=&limit=&sort=&order=
func ListHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		dbq := database.DB.Model(&models.Rental{})

		if raw := c.Query("status"); raw != "" {
			status, err := ParseStatus(raw)
			if err != nil {
				return err
			}
			dbq = dbq.Where("status = ?", status)
		}
		if bid := c.QueryInt("bike_id"); bid > 0 {
			dbq = dbq.Where("bike_id = ?", bid)
		}
		if uid := c.QueryInt("user_id"); uid > 0 {
			dbq = dbq.Where("user_id = ?", uid)
		}

		page := query.PageFromCtx(c, 20)
		var total int64
		if err := dbq.Count(&total).Error; err != nil {
			return err
		}

		var rentals []models.Rental
		if err := page.OrderBy(page.Apply(dbq), sortColumns, "start_time", true).
			Preload("Bike").Find(&rentals).Error; err != nil {
			return err
		}
		return c.JSON(query.NewPageResponse(rentals, total, page))
	}
}

// GET /api/v1/rentals/me
func MyRentalsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		user := auth.CurrentUser(c)

		var rentals []models.Rental
		if err := database.DB.Preload("Bike").
			Where("user_id = ?", user.ID).
			Order("start_time DESC").
			Find(&rentals).Error; err != nil {
			return err
		}
		if rentals == nil {
			rentals = []models.Rental{}
		}
		return c.JSON(rentals)
	}
}

// GET /api/v1/rentals/:id
func GetHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := query.ParamID(c, "id")
		if err != nil {
			return err
		}
		r, err := loadRental(database.DB, id)
		if err != nil {
			return err
		}
		if !canView(auth.CurrentUser(c), r) {
			return auth.ForbiddenResource("rental")
		}
		return c.JSON(r)
	}
}

// PUT /api/v1/rentals/:id
func UpdateHandler(cfg *config.Config, d notify.Dispatcher) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user := auth.CurrentUser(c)
		loc := cfg.Location()
		id, err := query.ParamID(c, "id")
		if err != nil {
			return err
		}

		var body UpdateRequest
		if err := apperr.Bind(c, &body); err != nil {
			return err
		}

		var (
			r       *models.Rental
			before  models.Rental
			changed *models.BookingRequest
		)
		err = database.DB.Transaction(func(tx *gorm.DB) error {
			var err error
			if r, err = loadRental(tx.Clauses(clause.Locking{Strength: "UPDATE"}), id); err != nil {
				return err
			}
			before = *r

			if body.Status != nil {
				if r.Status, err = ParseStatus(*body.Status); err != nil {
					return err
				}
			}
			if body.ContactName != nil {
				r.ContactName = strings.TrimSpace(*body.ContactName)
			}
			if body.ContactEmail != nil {
				r.ContactEmail = auth.NormalizeEmail(*body.ContactEmail)
			}
			if body.ContactPhone != nil {
				r.ContactPhone = strings.TrimSpace(*body.ContactPhone)
			}
			if body.PickupLocation != nil {
				r.PickupLocation = strings.TrimSpace(*body.PickupLocation)
			}

			if body.StartTime != nil || body.EndTime != nil {
				start, end := r.StartTime.Format(time.RFC3339), r.EndTime.Format(time.RFC3339)
				if body.StartTime != nil {
					start = *body.StartTime
				}
				if body.EndTime != nil {
					end = *body.EndTime
				}
				if r.StartTime, r.EndTime, err = parseInterval(start, end, loc); err != nil {
					return err
				}
				if r.Bike == nil {
					return apperr.NotFound("bike")
				}
				quote, err := pricing.Calculate(r.Bike.Price, r.StartTime, r.EndTime, loc)
				if err != nil {
					return apperr.Invalid("end_time", err.Error())
				}
				r.Price = quote.Total
			}

			if r.Status.Blocking() && (!r.StartTime.Equal(before.StartTime) || !r.EndTime.Equal(before.EndTime) || !before.Status.Blocking()) {
				if err := ensureFree(tx, r.BikeID, r.ID, r.StartTime, r.EndTime); err != nil {
					return err
				}
			}

			if err := tx.Omit(clause.Associations).Save(r).Error; err != nil {
				return err
			}
			// edits that leave the status alone must not overwrite a hand-set booking status
			if body.Status == nil || r.Status == before.Status {
				return nil
			}
			changed, err = Reconcile(tx, r)
			return err
		})
		if err != nil {
			return err
		}

		audit.Record(database.DB, audit.LogOptions{
			User: user, EntityType: "rental", EntityID: r.ID,
			Action: models.AuditActionUpdate, Description: "rental updated", Before: before, After: r,
		})
		if changed != nil {
			audit.Record(database.DB, audit.LogOptions{
				User: user, EntityType: "booking_request", EntityID: changed.ID,
				Action: models.AuditActionUpdate, Description: "status synced from rental " + r.Reference(),
				After: changed,
			})
			d.Dispatch(c.UserContext(), notify.Event{
				Kind: notify.KindBookingStatusChange,
				To:   changed.Email,
				Data: map[string]string{
					"name":         changed.Name,
					"booking_code": models.BookingCode(changed.ID),
					"status":       string(changed.Status),
					"admin_notes":  changed.AdminNotes,
				},
			})
		}
		return c.JSON(r)
	}
}

// DELETE /api/v1/rentals/:id
func DeleteHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := query.ParamID(c, "id")
		if err != nil {
			return err
		}
		r, err := loadRental(database.DB, id)
		if err != nil {
			return err
		}

		if err := database.DB.Delete(&models.Rental{}, r.ID).Error; err != nil {
			return err
		}
		audit.Record(database.DB, audit.LogOptions{
			User: auth.CurrentUser(c), EntityType: "rental", EntityID: r.ID,
			Action: models.AuditActionDelete, Description: "rental deleted", Before: r,
		})
		return c.SendStatus(fiber.StatusNoContent)
	}
}

func RegisterRoutes(api fiber.Router, cfg *config.Config, d notify.Dispatcher) {
	authn := auth.JWTMiddleware(cfg)
	admin := auth.RequireRole(models.RoleAdmin)

	g := api.Group("/rentals")
	g.Post("/", auth.OptionalAuth(cfg), CreateHandler(cfg, d))
	g.Get("/me", authn, MyRentalsHandler())
	g.Get("/", authn, admin, ListHandler())
	g.Get("/:id", authn, GetHandler())
	g.Get("/:id/qrcode", authn, QRCodeHandler())
	g.Get("/:id/receipt", authn, ReceiptHandler(cfg))
	g.Put("/:id", authn, admin, UpdateHandler(cfg, d))
	g.Delete("/:id", authn, admin, DeleteHandler())
}
