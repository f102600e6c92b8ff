package models

import "time"

// Assignment rows are never updated; reassignment appends a new row.
type Assignment struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	RepairRequestID uint      `gorm:"not null;index" json:"repairRequestId"`
	TechnicianID    uint      `gorm:"not null;index" json:"technicianId"`
	AssignedByID    uint      `gorm:"not null" json:"assignedById"`
	AssignedAt      time.Time `gorm:"not null;index" json:"assignedAt"`

	CreatedAt time.Time `json:"createdAt"`
}
