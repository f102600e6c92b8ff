package models

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

const (
	RoleAdmin      uint = 1
	RoleTechnician uint = 2
	RoleUser       uint = 3
)

const (
	UserStatusActive   = "active"
	UserStatusInactive = "inactive"
)

// RoleNames maps role ids to the labels the front-end renders.
var RoleNames = map[uint]string{
	RoleAdmin:      "admin",
	RoleTechnician: "technician",
	RoleUser:       "user",
}

type User struct {
	ID uint `gorm:"primaryKey" json:"id"`

	FirstName   string     `gorm:"size:100;not null" json:"firstName"`
	MiddleName  string     `gorm:"size:100" json:"middleName"`
	LastName    string     `gorm:"size:100;not null" json:"lastName"`
	Gender      string     `gorm:"size:10" json:"gender"`
	DateOfBirth *time.Time `json:"dateOfBirth"`

	Email        string `gorm:"size:150;uniqueIndex;not null" json:"email"`
	Phone        string `gorm:"size:20" json:"phone"`
	Profession   string `gorm:"size:100" json:"profession"`
	PasswordHash string `gorm:"size:255;not null" json:"-"`
	ProfileImage string `gorm:"size:500" json:"profileImage"`

	RoleID uint   `gorm:"not null;index" json:"roleId"`
	Status string `gorm:"size:20;not null;default:'active'" json:"status"`

	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// FullName is the "First Last" label used in confirmations.
func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

func (u *User) IsTechnician() bool {
	return u.RoleID == RoleTechnician
}

func (u *User) IsActive() bool {
	return u.Status == "" || u.Status == UserStatusActive
}
