package fleet

import (
	"errors"
	"strings"

	"motorent/internal/apperr"
	"motorent/internal/audit"
	"motorent/internal/auth"
	"motorent/internal/config"
	"motorent/internal/database"
	"motorent/internal/models"
	"motorent/internal/pricing"
	"motorent/internal/query"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type CreateBikeRequest struct {
	Model    string            `json:"model" validate:"required,max=150"`
	Status   models.BikeStatus `json:"status"`
	Lock     bool              `json:"lock"`
	Location string            `json:"location" validate:"max=255"`
	Price    int64             `json:"price" validate:"gt=0,lte=1000000000"`
	ParkID   uint              `json:"park_id" validate:"required"`
	Image    string            `json:"image" validate:"max=255"`
}

type UpdateBikeRequest struct {
	Model    *string            `json:"model" validate:"omitempty,max=150"`
	Status   *models.BikeStatus `json:"status"`
	Lock     *bool              `json:"lock"`
	Location *string            `json:"location" validate:"omitempty,max=255"`
	Price    *int64             `json:"price" validate:"omitempty,gt=0,lte=1000000000"`
	ParkID   *uint              `json:"park_id"`
	Image    *string            `json:"image" validate:"omitempty,max=255"`
}

var bikeSortColumns = map[string]string{
	"id":         "id",
	"model":      "model",
	"price":      "price",
	"rating":     "rating",
	"status":     "status",
	"created_at": "created_at",
}

func parseBikeStatus(raw string) (models.BikeStatus, error) {
	s := models.BikeStatus(strings.ToLower(strings.TrimSpace(raw)))
	if !s.Valid() {
		return "", apperr.Invalid("status", "must be one of available, out_of_stock, maintenance, rented")
	}
	return s, nil
}

// loadManagedBike resolves ownership through the bike's park.
func loadManagedBike(db *gorm.DB, user *models.User, id uint) (*models.Bike, error) {
	var bike models.Bike
	if err := db.Preload("Park").First(&bike, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			if user.IsAdmin() {
				return nil, apperr.NotFound("bike")
			}
			return nil, auth.ForbiddenResource("bike")
		}
		return nil, err
	}
	owner := bike.DealerID
	if bike.Park != nil {
		owner = bike.Park.DealerID
	}
	if err := auth.EnsureCanManage(user, owner, "bike"); err != nil {
		return nil, err
	}
	return &bike, nil
}

// GET /api/v1/bikes?status=&park_id=&dealer_id=&q=&page=&limit=&sort=&order=
func ListBikesHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		dbq := database.DB.Model(&models.Bike{})

		if raw := c.Query("status"); raw != "" {
			status, err := parseBikeStatus(raw)
			if err != nil {
				return err
			}
			dbq = dbq.Where("status = ?", status)
		}
		if pid := c.QueryInt("park_id"); pid > 0 {
			dbq = dbq.Where("park_id = ?", pid)
		}
		if did := c.QueryInt("dealer_id"); did > 0 {
			dbq = dbq.Where("dealer_id = ?", did)
		}
		if q := strings.TrimSpace(c.Query("q")); q != "" {
			like := "%" + q + "%"
			dbq = dbq.Where("model ILIKE ? OR location ILIKE ?", like, like)
		}

		page := query.PageFromCtx(c, 20)
		var total int64
		if err := dbq.Count(&total).Error; err != nil {
			return err
		}

		var bikes []models.Bike
		if err := page.OrderBy(page.Apply(dbq), bikeSortColumns, "id", false).Find(&bikes).Error; err != nil {
			return err
		}
		return c.JSON(query.NewPageResponse(bikes, total, page))
	}
}

// GET /api/v1/bikes/bike/:id
func GetBikeHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := query.ParamID(c, "id")
		if err != nil {
			return err
		}

		var bike models.Bike
		if err := database.DB.Preload("Park").First(&bike, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFound("bike")
			}
			return err
		}
		return c.JSON(bike)
	}
}

// GET /api/v1/bikes/park/:parkId/:status?/:limit?
func ListParkBikesHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		parkID, err := query.ParamID(c, "parkId")
		if err != nil {
			return err
		}

		dbq := database.DB.Where("park_id = ?", parkID)
		if raw := c.Params("status"); raw != "" && raw != "all" {
			status, err := parseBikeStatus(raw)
			if err != nil {
				return err
			}
			dbq = dbq.Where("status = ?", status)
		}
		if limit, err := c.ParamsInt("limit", 0); err == nil && limit > 0 {
			if limit > query.MaxLimit {
				limit = query.MaxLimit
			}
			dbq = dbq.Limit(limit)
		}

		var bikes []models.Bike
		if err := dbq.Order("id ASC").Find(&bikes).Error; err != nil {
			return err
		}
		if bikes == nil {
			bikes = []models.Bike{}
		}
		return c.JSON(bikes)
	}
}

// GET /api/v1/bikes/bike/:id/quote?start=&end=
func QuoteHandler(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := query.ParamID(c, "id")
		if err != nil {
			return err
		}

		loc := cfg.Location()
		start, err := query.ParseTime(c.Query("start"), loc)
		if err != nil {
			return apperr.Invalid("start", "must be an RFC3339 timestamp or YYYY-MM-DD date")
		}
		end, err := query.ParseTime(c.Query("end"), loc)
		if err != nil {
			return apperr.Invalid("end", "must be an RFC3339 timestamp or YYYY-MM-DD date")
		}

		var bike models.Bike
		if err := database.DB.First(&bike, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFound("bike")
			}
			return err
		}

		quote, err := pricing.Calculate(bike.Price, start, end, loc)
		if err != nil {
			return apperr.Invalid("end", err.Error())
		}
		return c.JSON(fiber.Map{
			"bike_id":   bike.ID,
			"bookable":  bike.Bookable(),
			"quote":     quote,
			"formatted": pricing.FormatVND(quote.Total),
		})
	}
}

// POST /api/v1/bikes
func CreateBikeHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		user := auth.CurrentUser(c)

		var body CreateBikeRequest
		if err := apperr.Bind(c, &body); err != nil {
			return err
		}

		status := models.BikeAvailable
		if body.Status != "" {
			s, err := parseBikeStatus(string(body.Status))
			if err != nil {
				return err
			}
			status = s
		}

		park, err := loadManagedPark(database.DB, user, body.ParkID)
		if err != nil {
			return err
		}

		bike := models.Bike{
			Model:    strings.TrimSpace(body.Model),
			Status:   status,
			Lock:     body.Lock,
			Location: strings.TrimSpace(body.Location),
			Price:    body.Price,
			ParkID:   park.ID,
			DealerID: park.DealerID,
			Image:    body.Image,
		}
		if bike.Location == "" {
			bike.Location = park.Location
		}

		if err := database.DB.Create(&bike).Error; err != nil {
			return err
		}
		audit.Record(database.DB, audit.LogOptions{
			User: user, EntityType: "bike", EntityID: bike.ID,
			Action: models.AuditActionCreate, Description: "bike created", After: bike,
		})
		return c.Status(fiber.StatusCreated).JSON(bike)
	}
}

// PUT /api/v1/bikes/:id
func UpdateBikeHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		user := auth.CurrentUser(c)
		id, err := query.ParamID(c, "id")
		if err != nil {
			return err
		}

		bike, err := loadManagedBike(database.DB, user, id)
		if err != nil {
			return err
		}
		before := *bike

		var body UpdateBikeRequest
		if err := apperr.Bind(c, &body); err != nil {
			return err
		}

		if body.Model != nil {
			m := strings.TrimSpace(*body.Model)
			if m == "" {
				return apperr.Invalid("model", "is required")
			}
			bike.Model = m
		}
		if body.Status != nil {
			s, err := parseBikeStatus(string(*body.Status))
			if err != nil {
				return err
			}
			bike.Status = s
		}
		if body.Lock != nil {
			bike.Lock = *body.Lock
		}
		if body.Location != nil {
			bike.Location = strings.TrimSpace(*body.Location)
		}
		if body.Price != nil {
			bike.Price = *body.Price
		}
		if body.Image != nil {
			bike.Image = *body.Image
		}
		if body.ParkID != nil && *body.ParkID != bike.ParkID {
			// moving requires ownership of the target park too
			park, err := loadManagedPark(database.DB, user, *body.ParkID)
			if err != nil {
				return err
			}
			bike.ParkID = park.ID
			bike.Park = park
		}
		if bike.Park != nil {
			bike.DealerID = bike.Park.DealerID
		}

		if err := database.DB.Omit("Park").Save(bike).Error; err != nil {
			return err
		}
		audit.Record(database.DB, audit.LogOptions{
			User: user, EntityType: "bike", EntityID: bike.ID,
			Action: models.AuditActionUpdate, Description: "bike updated", Before: before, After: bike,
		})
		return c.JSON(bike)
	}
}

// DELETE /api/v1/bikes/:id
func DeleteBikeHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		user := auth.CurrentUser(c)
		id, err := query.ParamID(c, "id")
		if err != nil {
			return err
		}

		bike, err := loadManagedBike(database.DB, user, id)
		if err != nil {
			return err
		}

		if err := database.DB.Delete(&models.Bike{}, bike.ID).Error; err != nil {
			return err
		}
		audit.Record(database.DB, audit.LogOptions{
			User: user, EntityType: "bike", EntityID: bike.ID,
			Action: models.AuditActionDelete, Description: "bike deleted", Before: bike,
		})
		return c.SendStatus(fiber.StatusNoContent)
	}
}

func RegisterRoutes(api fiber.Router, cfg *config.Config) {
	authn := auth.JWTMiddleware(cfg)
	managers := auth.RequireRole(models.RoleAdmin, models.RoleDealer)

	parks := api.Group("/parks")
	parks.Get("/", ListParksHandler())
	parks.Get("/park/:id", GetParkHandler())
	parks.Post("/", authn, managers, CreateParkHandler())
	parks.Put("/:id", authn, managers, UpdateParkHandler())
	parks.Delete("/:id", authn, managers, DeleteParkHandler())

	bikes := api.Group("/bikes")
	bikes.Get("/", ListBikesHandler())
	bikes.Get("/bike/:id", GetBikeHandler())
	bikes.Get("/bike/:id/quote", QuoteHandler(cfg))
	bikes.Get("/park/:parkId/:status?/:limit?", ListParkBikesHandler())
	bikes.Post("/", authn, managers, CreateBikeHandler())
	bikes.Put("/:id", authn, managers, UpdateBikeHandler())
	bikes.Delete("/:id", authn, managers, DeleteBikeHandler())
}
