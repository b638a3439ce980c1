package models

import (
	"time"

	"gorm.io/gorm"
)

// UserRole is the closed set of account roles. The authorization policy
// switches exhaustively over these values.
type UserRole string

const (
	RoleAdmin     UserRole = "admin"
	RoleManager   UserRole = "manager"
	RoleDeveloper UserRole = "developer"
)

// Valid reports whether r is one of the known roles.
func (r UserRole) Valid() bool {
	switch r {
	case RoleAdmin, RoleManager, RoleDeveloper:
		return true
	}
	return false
}

type User struct {
	ID           uint64         `gorm:"primarykey" json:"id"`
	Username     string         `gorm:"type:varchar(255);uniqueIndex;not null" json:"username"`
	Email        string         `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	FullName     string         `gorm:"type:varchar(255);not null" json:"full_name"`
	PasswordHash string         `gorm:"type:varchar(255);not null" json:"-"`
	Role         UserRole       `gorm:"type:varchar(20);not null;default:'developer'" json:"role"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`

	// Relations
	CreatedProjects []Project       `gorm:"foreignKey:CreatorID" json:"-"`
	CreatedTasks    []Task          `gorm:"foreignKey:CreatorID" json:"-"`
	AssignedTasks   []Task          `gorm:"foreignKey:AssigneeID" json:"-"`
	Memberships     []ProjectMember `gorm:"foreignKey:UserID" json:"-"`
}
