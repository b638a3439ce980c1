package models

import (
	"time"

	"gorm.io/gorm"
)

// TaskComment is a free-text comment on a task. CreatedAt is assigned by
// the server at insert time and never accepted from a client.
type TaskComment struct {
	ID        uint64         `gorm:"primarykey" json:"id"`
	Content   string         `gorm:"type:text;not null" json:"content"`
	TaskID    uint64         `gorm:"not null" json:"task_id"`
	AuthorID  uint64         `gorm:"not null" json:"author_id"`
	CreatedAt time.Time      `json:"created_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	// Relations
	Task   Task `gorm:"foreignKey:TaskID" json:"task,omitempty"`
	Author User `gorm:"foreignKey:AuthorID" json:"author,omitempty"`
}
