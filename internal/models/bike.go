package models

import "time"

type BikeStatus string

const (
	BikeAvailable   BikeStatus = "available"
	BikeOutOfStock  BikeStatus = "out_of_stock"
	BikeMaintenance BikeStatus = "maintenance"
	BikeRented      BikeStatus = "rented"
)

var BikeStatuses = []BikeStatus{BikeAvailable, BikeOutOfStock, BikeMaintenance, BikeRented}

func (s BikeStatus) Valid() bool {
	for _, v := range BikeStatuses {
		if v == s {
			return true
		}
	}
	return false
}

type Bike struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	Model       string     `gorm:"size:150;not null" json:"model"`
	Status      BikeStatus `gorm:"size:20;not null;default:available;index" json:"status"`
	Lock        bool       `gorm:"not null;default:false" json:"lock"`
	Location    string     `gorm:"size:255" json:"location"`
	Price       int64      `gorm:"not null" json:"price"` // VNĐ per day
	ParkID      uint       `gorm:"not null;index" json:"park_id"`
	Park        *Park      `json:"park,omitempty"`
	DealerID    uint       `gorm:"not null;index" json:"dealer_id"`
	Rating      float64    `gorm:"not null;default:0" json:"rating"`
	ReviewCount int        `gorm:"not null;default:0" json:"review_count"`
	Image       string     `gorm:"size:255" json:"image"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Bookable reports whether the bike can take a new rental.
func (b *Bike) Bookable() bool {
	if b.Lock {
		return false
	}
	return b.Status == BikeAvailable || b.Status == BikeRented
}
