package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

type BookingStatus string

const (
	BookingPending   BookingStatus = "PENDING"
	BookingApproved  BookingStatus = "APPROVED"
	BookingRejected  BookingStatus = "REJECTED"
	BookingCompleted BookingStatus = "COMPLETED"
)

var BookingStatuses = []BookingStatus{BookingPending, BookingApproved, BookingRejected, BookingCompleted}

func (s BookingStatus) Valid() bool {
	for _, v := range BookingStatuses {
		if v == s {
			return true
		}
	}
	return false
}

type BookingRequest struct {
	ID             uint          `gorm:"primaryKey" json:"id"`
	UserID         *uint         `gorm:"index" json:"user_id"`
	Name           string        `gorm:"size:150;not null" json:"name"`
	Email          string        `gorm:"size:150;index" json:"email"`
	ContactMethod  string        `gorm:"size:30" json:"contact_method"`
	ContactDetails string        `gorm:"size:150;index" json:"contact_details"`
	PickupLocation string        `gorm:"size:255" json:"pickup_location"`
	Status         BookingStatus `gorm:"size:20;not null;default:PENDING;index" json:"status"`
	AdminNotes     string        `gorm:"type:text" json:"admin_notes"`
	DealerID       *uint         `gorm:"index" json:"dealer_id"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
}

const bookingIDPrefix = "BK"

// BookingCode renders the customer-facing booking id, e.g. BK000042.
func BookingCode(id uint) string {
	return fmt.Sprintf("%s%06d", bookingIDPrefix, id)
}

// ParseBookingCode accepts "BK000042", "bk42" or a bare "42".
func ParseBookingCode(code string) (uint, error) {
	s := strings.ToUpper(strings.TrimSpace(code))
	s = strings.TrimPrefix(s, bookingIDPrefix)
	if s == "" {
		return 0, fmt.Errorf("empty booking id")
	}
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil || n == 0 {
		return 0, fmt.Errorf("invalid booking id %q", code)
	}
	return uint(n), nil
}
