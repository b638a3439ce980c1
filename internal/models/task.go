package models

import (
	"time"

	"gorm.io/gorm"
)

// TaskStatus is the closed set of task states. Any status is reachable
// from any other; there is no enforced transition order.
type TaskStatus string

const (
	TaskStatusTodo       TaskStatus = "todo"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusDone       TaskStatus = "done"
)

// Valid reports whether s is one of the known statuses.
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusTodo, TaskStatusInProgress, TaskStatusDone:
		return true
	}
	return false
}

// TaskStatuses lists every status, used to build complete count maps.
var TaskStatuses = []TaskStatus{TaskStatusTodo, TaskStatusInProgress, TaskStatusDone}

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

type Task struct {
	ID          uint64         `gorm:"primarykey" json:"id"`
	Title       string         `gorm:"not null" json:"title"`
	Description string         `gorm:"type:text" json:"description"`
	Status      TaskStatus     `gorm:"type:varchar(20);not null;default:'todo'" json:"status"`
	Priority    Priority       `gorm:"type:varchar(20);not null;default:'medium'" json:"priority"`
	DueDate     *time.Time     `json:"due_date"`
	ProjectID   uint64         `gorm:"not null" json:"project_id"`
	AssigneeID  *uint64        `json:"assignee_id"`
	CreatorID   uint64         `gorm:"not null" json:"creator_id"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`

	// Relations
	Project  Project       `gorm:"foreignKey:ProjectID" json:"project,omitempty"`
	Assignee *User         `gorm:"foreignKey:AssigneeID" json:"assignee,omitempty"`
	Creator  User          `gorm:"foreignKey:CreatorID" json:"creator,omitempty"`
	Comments []TaskComment `gorm:"foreignKey:TaskID" json:"comments,omitempty"`
}

// Overdue reports whether the task has a due date in the past and is not done.
func (t *Task) Overdue(now time.Time) bool {
	return t.DueDate != nil && t.DueDate.Before(now) && t.Status != TaskStatusDone
}
