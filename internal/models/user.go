package models

import "time"

type UserRole string

const (
	RoleAdmin  UserRole = "admin"
	RoleDealer UserRole = "dealer"
	RoleUser   UserRole = "user"
)

func (r UserRole) Valid() bool {
	switch r {
	case RoleAdmin, RoleDealer, RoleUser:
		return true
	}
	return false
}

type User struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	Name         string     `gorm:"size:100;not null" json:"name"`
	Email        string     `gorm:"size:100;uniqueIndex;not null" json:"email"`
	PasswordHash string     `gorm:"size:255;not null" json:"-"`
	Role         UserRole   `gorm:"size:20;not null;default:user" json:"role"`
	Phone        string     `gorm:"size:30" json:"phone"`
	Birthdate    *time.Time `json:"birthdate"`
	Image        string     `gorm:"size:255" json:"image"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`

	Parks []Park `gorm:"foreignKey:DealerID" json:"parks,omitempty"`
}

func (u *User) IsAdmin() bool { return u != nil && u.Role == RoleAdmin }
