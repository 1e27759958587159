package models

import "time"

// Park is a pickup location owned by a dealer.
type Park struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:150;not null" json:"name"`
	Location  string    `gorm:"size:255" json:"location"`
	Image     string    `gorm:"size:255" json:"image"`
	DealerID  uint      `gorm:"not null;index" json:"dealer_id"`
	Dealer    *User     `gorm:"foreignKey:DealerID;constraint:OnDelete:CASCADE" json:"dealer,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Bikes []Bike `gorm:"constraint:OnDelete:CASCADE" json:"bikes,omitempty"`
}
