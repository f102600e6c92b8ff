package models

import "time"

// Availability is the single current availability record of a technician.
// A busy record covers the service window [StartTime, EndTime].
type Availability struct {
	ID     uint `gorm:"primaryKey" json:"id"`
	UserID uint `gorm:"not null;uniqueIndex" json:"userId"`

	Date        time.Time `gorm:"not null" json:"date"`
	StartTime   time.Time `gorm:"not null" json:"startTime"`
	EndTime     time.Time `gorm:"not null" json:"endTime"`
	IsAvailable bool      `gorm:"not null" json:"isAvailable"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
