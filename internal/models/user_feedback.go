package models

import "time"

type UserFeedback struct {
	ID              uint `gorm:"primaryKey" json:"id"`
	ServiceReportID uint `gorm:"not null;uniqueIndex" json:"serviceReportId"`
	UserID          uint `gorm:"not null;index" json:"userId"`

	Courtesy            string `gorm:"size:10;not null" json:"courtesy"`
	Communication       string `gorm:"size:10;not null" json:"communication"`
	Friendliness        string `gorm:"size:10;not null" json:"friendliness"`
	Professionalism     string `gorm:"size:10;not null" json:"professionalism"`
	OverallSatisfaction string `gorm:"size:10;not null" json:"overallSatisfaction"`
	Comments            string `gorm:"type:text" json:"comments"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
