package models

import (
	"fmt"
	"strings"
	"time"
)

type RentalStatus string

const (
	RentalPending   RentalStatus = "pending"
	RentalActive    RentalStatus = "active"
	RentalOngoing   RentalStatus = "ongoing"
	RentalCompleted RentalStatus = "completed"
	RentalCancelled RentalStatus = "cancelled"
)

var RentalStatuses = []RentalStatus{RentalPending, RentalActive, RentalOngoing, RentalCompleted, RentalCancelled}

// NormalizeRentalStatus lower-cases stored and incoming values; rows written by older clients mix cases.
func NormalizeRentalStatus(s string) RentalStatus {
	return RentalStatus(strings.ToLower(strings.TrimSpace(s)))
}

func (s RentalStatus) Valid() bool {
	for _, v := range RentalStatuses {
		if v == s {
			return true
		}
	}
	return false
}

// Blocking statuses hold the bike for their interval.
func (s RentalStatus) Blocking() bool {
	switch NormalizeRentalStatus(string(s)) {
	case RentalPending, RentalActive, RentalOngoing:
		return true
	}
	return false
}

type Rental struct {
	ID               uint         `gorm:"primaryKey" json:"id"`
	UserID           *uint        `gorm:"index" json:"user_id"`
	BikeID           uint         `gorm:"not null;index" json:"bike_id"`
	Bike             *Bike        `gorm:"constraint:OnDelete:CASCADE" json:"bike,omitempty"`
	StartTime        time.Time    `gorm:"not null" json:"start_time"`
	EndTime          time.Time    `gorm:"not null" json:"end_time"`
	Status           RentalStatus `gorm:"size:20;not null;default:pending;index" json:"status"`
	Price            int64        `gorm:"not null" json:"price"`
	ContactName      string       `gorm:"size:150" json:"contact_name"`
	ContactEmail     string       `gorm:"size:150" json:"contact_email"`
	ContactPhone     string       `gorm:"size:30" json:"contact_phone"`
	PickupLocation   string       `gorm:"size:255" json:"pickup_location"`
	BookingRequestID *uint        `gorm:"index" json:"booking_request_id"`
	QRCode           string       `gorm:"column:qrcode;size:255" json:"qrcode"`
	PaymentID        string       `gorm:"size:100" json:"payment_id"`
	OrderID          string       `gorm:"size:100" json:"order_id"`
	CreatedAt        time.Time    `json:"created_at"`
	UpdatedAt        time.Time    `json:"updated_at"`
}

// Reference is the code printed on receipts and QR codes: the linked booking id when there is one.
func (r *Rental) Reference() string {
	if r.BookingRequestID != nil {
		return BookingCode(*r.BookingRequestID)
	}
	return fmt.Sprintf("RT%06d", r.ID)
}
