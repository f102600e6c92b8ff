package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	PriorityLow    = "Low"
	PriorityMedium = "Medium"
	PriorityHigh   = "High"
)

type RepairRequest struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	RequestNumber string    `gorm:"size:40;uniqueIndex;not null" json:"requestNumber"`
	RequestDate   time.Time `gorm:"not null" json:"requestDate"`
	UserID        uint      `gorm:"not null;index" json:"userId"`

	Department    string `gorm:"size:120" json:"department"`
	Faculty       string `gorm:"size:120" json:"faculty"`
	Block         string `gorm:"size:50" json:"block"`
	Office        string `gorm:"size:50" json:"office"`
	RequesterName string `gorm:"size:150" json:"requesterName"`
	ContactPhone  string `gorm:"size:20" json:"contactPhone"`

	DeviceName         string `gorm:"size:120;not null" json:"deviceName"`
	DeviceModel        string `gorm:"size:120" json:"deviceModel"`
	SerialNumber       string `gorm:"size:120" json:"serialNumber"`
	AssetNumber        string `gorm:"size:120" json:"assetNumber"`
	ProblemDescription string `gorm:"type:text;not null" json:"problemDescription"`
	Priority           string `gorm:"size:10;not null;default:'Medium'" json:"priority"`

	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func IsValidPriority(p string) bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}
