package models

import (
	"time"

	"gorm.io/gorm"
)

// UserStory is an AI-generated user story persisted against a project.
type UserStory struct {
	ID        uint64         `gorm:"primarykey" json:"id"`
	Story     string         `gorm:"type:text;not null" json:"story"`
	ProjectID uint64         `gorm:"not null" json:"project_id"`
	CreatedAt time.Time      `json:"created_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	// Relations
	Project Project `gorm:"foreignKey:ProjectID" json:"project,omitempty"`
}
