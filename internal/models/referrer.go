package models

import "time"

type Referrer struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:150;not null" json:"name"`
	Code      string    `gorm:"size:50;uniqueIndex;not null" json:"code"`
	Email     string    `gorm:"size:150" json:"email"`
	Phone     string    `gorm:"size:30" json:"phone"`
	Note      string    `gorm:"size:255" json:"note"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
