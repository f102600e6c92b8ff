package models

import "time"

type Skill struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Name string `gorm:"size:100;uniqueIndex;not null" json:"name"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type TechnicianSkill struct {
	ID      uint `gorm:"primaryKey" json:"id"`
	UserID  uint `gorm:"not null;uniqueIndex:idx_technician_skill" json:"userId"`
	SkillID uint `gorm:"not null;uniqueIndex:idx_technician_skill" json:"skillId"`

	CreatedAt time.Time `json:"createdAt"`
}
