package models

import (
	"time"

	"gorm.io/datatypes"
)

type TestResult struct {
	Test   string `json:"test"`
	Result string `json:"result"`
}

type ServiceReport struct {
	ID              uint `gorm:"primaryKey" json:"id"`
	AssignmentID    uint `gorm:"not null;uniqueIndex" json:"assignmentId"`
	RepairRequestID uint `gorm:"not null;index" json:"repairRequestId"`
	AssignedTo      uint `gorm:"not null;index" json:"assignedTo"`

	Status             string    `gorm:"size:30" json:"status"`
	ServiceDate        time.Time `json:"serviceDate"`
	TechnicianComments string    `gorm:"type:text" json:"technicianComments"`
	ServicePerformed   string    `gorm:"type:text" json:"servicePerformed"`
	PartsUsed          string    `gorm:"type:text" json:"partsUsed"`
	FinalReadings      string    `gorm:"size:255" json:"finalReadings"`
	ResultRating       string    `gorm:"size:10" json:"resultRating"`

	TestResults datatypes.JSONSlice[TestResult] `json:"testResults"`

	FeedbackRating   string `gorm:"size:20" json:"feedbackRating"`
	FeedbackComments string `gorm:"type:text" json:"feedbackComments"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
