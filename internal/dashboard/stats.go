package dashboard

import (
	"time"

	"motorent/internal/config"
	"motorent/internal/database"
	"motorent/internal/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type StatusCount struct {
	Status string `json:"status" gorm:"column:status"`
	Count  int64  `json:"count" gorm:"column:count"`
}

type RevenuePoint struct {
	Label   string `json:"label"` // YYYY-MM
	Revenue int64  `json:"revenue"`
	Rentals int64  `json:"rentals"`
}

type StatsResponse struct {
	Bikes           []StatusCount  `json:"bikes"`
	Rentals         []StatusCount  `json:"rentals"`
	BookingRequests []StatusCount  `json:"booking_requests"`
	Revenue         []RevenuePoint `json:"revenue"`
	TotalRevenue    int64          `json:"total_revenue"`
	From            string         `json:"from"`
	To              string         `json:"to"`
}

func countByStatus(db *gorm.DB, model any) ([]StatusCount, error) {
	var rows []StatusCount
	err := db.Model(model).
		Select("LOWER(status) AS status, COUNT(*) AS count").
		Group("LOWER(status)").
		Order("status ASC").
		Scan(&rows).Error
	if rows == nil {
		rows = []StatusCount{}
	}
	return rows, err
}

// MonthBuckets returns the first instant of each of the last n months, oldest first.
func MonthBuckets(now time.Time, n int) []time.Time {
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	out := make([]time.Time, n)
	for i := 0; i < n; i++ {
		out[i] = first.AddDate(0, -(n - 1 - i), 0)
	}
	return out
}

// GET /api/v1/admin/stats?months=12
func StatsHandler(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		months := c.QueryInt("months", 12)
		if months < 1 || months > 36 {
			return fiber.NewError(fiber.StatusBadRequest, "months must be between 1 and 36")
		}

		var (
			resp StatsResponse
			err  error
		)
		if resp.Bikes, err = countByStatus(database.DB, &models.Bike{}); err != nil {
			return err
		}
		if resp.Rentals, err = countByStatus(database.DB, &models.Rental{}); err != nil {
			return err
		}
		if resp.BookingRequests, err = countByStatus(database.DB, &models.BookingRequest{}); err != nil {
			return err
		}

		loc := cfg.Location()
		buckets := MonthBuckets(time.Now().In(loc), months)
		start := buckets[0]
		end := buckets[len(buckets)-1].AddDate(0, 1, 0)

		type row struct {
			Bucket  time.Time `gorm:"column:bucket"`
			Revenue int64     `gorm:"column:revenue"`
			Rentals int64     `gorm:"column:rentals"`
		}
		var rows []row
		// months are cut in the business timezone, not the server's
		err = database.DB.Raw(`
			SELECT date_trunc('month', end_time AT TIME ZONE ?) AS bucket,
			       COALESCE(SUM(price), 0) AS revenue,
			       COUNT(*) AS rentals
			FROM rentals
			WHERE LOWER(status) = ? AND end_time >= ? AND end_time < ?
			GROUP BY bucket
			ORDER BY bucket ASC`,
			loc.String(), string(models.RentalCompleted), start, end,
		).Scan(&rows).Error
		if err != nil {
			return err
		}

		byMonth := make(map[string]row, len(rows))
		for _, r := range rows {
			byMonth[r.Bucket.Format("2006-01")] = r
		}

		resp.Revenue = make([]RevenuePoint, 0, len(buckets))
		for _, b := range buckets {
			label := b.Format("2006-01")
			r := byMonth[label]
			resp.Revenue = append(resp.Revenue, RevenuePoint{Label: label, Revenue: r.Revenue, Rentals: r.Rentals})
			resp.TotalRevenue += r.Revenue
		}
		resp.From = start.Format("2006-01-02")
		resp.To = end.AddDate(0, 0, -1).Format("2006-01-02")

		return c.JSON(resp)
	}
}
