// Package pricing computes what a rental costs. Public booking, admin rental edits and the quote
// endpoint all go through Calculate.
package pricing

import (
	"errors"
	"math"
	"time"
)

const (
	// HourlyDivisor turns a daily price into an hourly rate (rounded up).
	HourlyDivisor = 8
	// FullDayAfterHours: same-day rentals strictly longer than this are charged a full day.
	FullDayAfterHours = 3

	WeeklyDiscountDays  = 7
	MonthlyDiscountDays = 30
	WeeklyDiscountRate  = 10
	MonthlyDiscountRate = 20

	// Caps keep every product in Calculate far below the int64 range.
	MaxDailyPrice = 1_000_000_000
	MaxRentalDays = 366

	day = 24 * time.Hour
)

var (
	ErrEmptyInterval   = errors.New("end time must be after start time")
	ErrIntervalTooLong = errors.New("rentals cannot be longer than 366 days")
	ErrInvalidPrice    = errors.New("daily price must be between 1 and 1000000000")
)

type Quote struct {
	DailyPrice      int64 `json:"daily_price"`
	HourlyPrice     int64 `json:"hourly_price"`
	SameDay         bool  `json:"same_day"`
	Hours           int64 `json:"hours"`
	Days            int64 `json:"days"`
	BasePrice       int64 `json:"base_price"`
	DiscountPercent int64 `json:"discount_percent"`
	DiscountAmount  int64 `json:"discount_amount"`
	Total           int64 `json:"total"`
}

// HourlyRate is ceil(daily / 8).
func HourlyRate(dailyPrice int64) int64 {
	return ceilDiv(dailyPrice, HourlyDivisor)
}

// DiscountPercent: 7–29 days 10 %, 30+ days 20 %.
func DiscountPercent(days int64) int64 {
	switch {
	case days >= MonthlyDiscountDays:
		return MonthlyDiscountRate
	case days >= WeeklyDiscountDays:
		return WeeklyDiscountRate
	default:
		return 0
	}
}

// Calculate prices the interval [start, end). Calendar days are compared in loc.
func Calculate(dailyPrice int64, start, end time.Time, loc *time.Location) (Quote, error) {
	if dailyPrice <= 0 || dailyPrice > MaxDailyPrice {
		return Quote{}, ErrInvalidPrice
	}
	elapsed := end.Sub(start)
	if elapsed <= 0 {
		return Quote{}, ErrEmptyInterval
	}
	if elapsed > MaxRentalDays*day {
		return Quote{}, ErrIntervalTooLong
	}
	if loc == nil {
		loc = time.UTC
	}

	q := Quote{
		DailyPrice:  dailyPrice,
		HourlyPrice: HourlyRate(dailyPrice),
		SameDay:     sameDay(start.In(loc), end.In(loc)),
		Hours:       ceilDuration(elapsed, time.Hour),
		Days:        ceilDuration(elapsed, day),
	}

	switch {
	case q.SameDay && q.Hours > FullDayAfterHours:
		q.BasePrice = dailyPrice
	case q.SameDay:
		q.BasePrice = q.Hours * q.HourlyPrice
	default:
		q.BasePrice = q.Days * dailyPrice
	}

	q.DiscountPercent = DiscountPercent(q.Days)
	q.DiscountAmount = roundDiv(q.BasePrice*q.DiscountPercent, 100)
	q.Total = q.BasePrice - q.DiscountAmount
	return q, nil
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func ceilDuration(d, unit time.Duration) int64 {
	return int64(math.Ceil(float64(d) / float64(unit)))
}

func ceilDiv(a, b int64) int64 {
	return (a + b - 1) / b
}

func roundDiv(a, b int64) int64 {
	return (a + b/2) / b
}
