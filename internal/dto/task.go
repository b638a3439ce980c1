package dto

import (
	"time"

	"github.com/hnakamura/project-management-api/internal/models"
)

// UserDTO represents a user in API responses
type UserDTO struct {
	ID       uint64          `json:"id"`
	Username string          `json:"username"`
	Email    string          `json:"email,omitempty"`
	FullName string          `json:"full_name"`
	Role     models.UserRole `json:"role,omitempty"`
}

// TaskDTO represents a task in API responses
type TaskDTO struct {
	ID          uint64            `json:"id"`
	Title       string            `json:"title"`
	Description string            `json:"description"`
	Status      models.TaskStatus `json:"status"`
	Priority    models.Priority   `json:"priority"`
	DueDate     *time.Time        `json:"due_date"`
	Overdue     bool              `json:"overdue"`
	ProjectID   uint64            `json:"project_id"`
	AssigneeID  *uint64           `json:"assignee_id"`
	CreatorID   uint64            `json:"creator_id"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
	Assignee    *UserDTO          `json:"assignee,omitempty"`
	Creator     *UserDTO          `json:"creator,omitempty"`
}

// TaskListResponse represents a paginated list of tasks
type TaskListResponse struct {
	Tasks []TaskDTO `json:"tasks"`
	Page  int       `json:"page"`
	Limit int       `json:"limit"`
	Total int64     `json:"total"`
}

// CommentDTO represents a task comment in API responses
type CommentDTO struct {
	ID        uint64    `json:"id"`
	Content   string    `json:"content"`
	TaskID    uint64    `json:"task_id"`
	AuthorID  uint64    `json:"author_id"`
	Author    *UserDTO  `json:"author,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// StatusCountsDTO represents a project's task counts per status
type StatusCountsDTO struct {
	Todo       int64 `json:"todo"`
	InProgress int64 `json:"in_progress"`
	Done       int64 `json:"done"`
}

// Conversion functions

// ToUserDTO converts a User model to UserDTO
func ToUserDTO(user models.User) UserDTO {
	return UserDTO{
		ID:       user.ID,
		Username: user.Username,
		Email:    user.Email,
		FullName: user.FullName,
		Role:     user.Role,
	}
}

// ToTaskDTO converts a Task model to TaskDTO
func ToTaskDTO(task models.Task) TaskDTO {
	dto := TaskDTO{
		ID:          task.ID,
		Title:       task.Title,
		Description: task.Description,
		Status:      task.Status,
		Priority:    task.Priority,
		DueDate:     task.DueDate,
		Overdue:     task.Overdue(time.Now()),
		ProjectID:   task.ProjectID,
		AssigneeID:  task.AssigneeID,
		CreatorID:   task.CreatorID,
		CreatedAt:   task.CreatedAt,
		UpdatedAt:   task.UpdatedAt,
	}
	if task.Assignee != nil {
		assignee := ToUserDTO(*task.Assignee)
		dto.Assignee = &assignee
	}
	if task.Creator.ID != 0 {
		creator := ToUserDTO(task.Creator)
		dto.Creator = &creator
	}
	return dto
}

// ToTaskDTOs converts a slice of tasks
func ToTaskDTOs(tasks []models.Task) []TaskDTO {
	dtos := make([]TaskDTO, len(tasks))
	for i, task := range tasks {
		dtos[i] = ToTaskDTO(task)
	}
	return dtos
}

// ToCommentDTO converts a TaskComment model to CommentDTO
func ToCommentDTO(comment models.TaskComment) CommentDTO {
	dto := CommentDTO{
		ID:        comment.ID,
		Content:   comment.Content,
		TaskID:    comment.TaskID,
		AuthorID:  comment.AuthorID,
		CreatedAt: comment.CreatedAt,
	}
	if comment.Author.ID != 0 {
		author := ToUserDTO(comment.Author)
		dto.Author = &author
	}
	return dto
}

// ToCommentDTOs converts a slice of comments
func ToCommentDTOs(comments []models.TaskComment) []CommentDTO {
	dtos := make([]CommentDTO, len(comments))
	for i, comment := range comments {
		dtos[i] = ToCommentDTO(comment)
	}
	return dtos
}

// ToStatusCountsDTO converts a per-status count map
func ToStatusCountsDTO(counts map[models.TaskStatus]int64) StatusCountsDTO {
	return StatusCountsDTO{
		Todo:       counts[models.TaskStatusTodo],
		InProgress: counts[models.TaskStatusInProgress],
		Done:       counts[models.TaskStatusDone],
	}
}
