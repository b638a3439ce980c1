package dto

import (
	"time"

	"github.com/hnakamura/project-management-api/internal/models"
	"github.com/hnakamura/project-management-api/internal/services"
)

// ProjectDTO represents a project with its aggregates in API responses
type ProjectDTO struct {
	ID                 uint64     `json:"id"`
	Name               string     `json:"name"`
	Description        string     `json:"description"`
	StartDate          *time.Time `json:"start_date"`
	EndDate            *time.Time `json:"end_date"`
	CreatorID          uint64     `json:"creator_id"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
	TaskCount          int64      `json:"task_count"`
	DoneTasks          int64      `json:"done_tasks"`
	MemberCount        int64      `json:"member_count"`
	ProgressPercentage int        `json:"progress_percentage"`
}

// ProjectMemberDTO represents a member in a project
type ProjectMemberDTO struct {
	User     UserDTO            `json:"user"`
	Role     models.ProjectRole `json:"role"`
	JoinedAt time.Time          `json:"joined_at"`
}

// UserStoryDTO represents a stored user story in API responses
type UserStoryDTO struct {
	ID        uint64    `json:"id"`
	Story     string    `json:"story"`
	ProjectID uint64    `json:"project_id"`
	CreatedAt time.Time `json:"created_at"`
}

// ToProjectDTO converts a project with aggregates to ProjectDTO
func ToProjectDTO(info services.ProjectInfo) ProjectDTO {
	return ProjectDTO{
		ID:                 info.Project.ID,
		Name:               info.Project.Name,
		Description:        info.Project.Description,
		StartDate:          info.Project.StartDate,
		EndDate:            info.Project.EndDate,
		CreatorID:          info.Project.CreatorID,
		CreatedAt:          info.Project.CreatedAt,
		UpdatedAt:          info.Project.UpdatedAt,
		TaskCount:          info.TaskCount,
		DoneTasks:          info.DoneTasks,
		MemberCount:        info.MemberCount,
		ProgressPercentage: info.ProgressPercentage,
	}
}

// ToProjectDTOs converts a slice of project infos
func ToProjectDTOs(infos []services.ProjectInfo) []ProjectDTO {
	dtos := make([]ProjectDTO, len(infos))
	for i, info := range infos {
		dtos[i] = ToProjectDTO(info)
	}
	return dtos
}

// ToProjectMemberDTO converts a membership to ProjectMemberDTO
func ToProjectMemberDTO(member models.ProjectMember) ProjectMemberDTO {
	return ProjectMemberDTO{
		User:     ToUserDTO(member.User),
		Role:     member.Role,
		JoinedAt: member.JoinedAt,
	}
}

// ToProjectMemberDTOs converts a slice of memberships
func ToProjectMemberDTOs(members []models.ProjectMember) []ProjectMemberDTO {
	dtos := make([]ProjectMemberDTO, len(members))
	for i, member := range members {
		dtos[i] = ToProjectMemberDTO(member)
	}
	return dtos
}

// ToUserStoryDTO converts a UserStory model to UserStoryDTO
func ToUserStoryDTO(story models.UserStory) UserStoryDTO {
	return UserStoryDTO{
		ID:        story.ID,
		Story:     story.Story,
		ProjectID: story.ProjectID,
		CreatedAt: story.CreatedAt,
	}
}

// ToUserStoryDTOs converts a slice of user stories
func ToUserStoryDTOs(stories []models.UserStory) []UserStoryDTO {
	dtos := make([]UserStoryDTO, len(stories))
	for i, story := range stories {
		dtos[i] = ToUserStoryDTO(story)
	}
	return dtos
}
