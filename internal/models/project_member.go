package models

import "time"

// ProjectRole is the sub-role a user holds within a project.
type ProjectRole string

const (
	ProjectRoleLead   ProjectRole = "lead"
	ProjectRoleMember ProjectRole = "member"
)

// ProjectMember joins a user to a project. The composite primary key
// guarantees at most one membership per (project, user) pair.
type ProjectMember struct {
	ProjectID uint64      `gorm:"primarykey" json:"project_id"`
	UserID    uint64      `gorm:"primarykey" json:"user_id"`
	Role      ProjectRole `gorm:"type:varchar(20);not null;default:'member'" json:"role"`
	JoinedAt  time.Time   `json:"joined_at"`

	// Relations
	Project Project `gorm:"foreignKey:ProjectID" json:"project,omitempty"`
	User    User    `gorm:"foreignKey:UserID" json:"user,omitempty"`
}
