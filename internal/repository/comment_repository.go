package repository

import (
	"github.com/hnakamura/project-management-api/internal/models"
	"gorm.io/gorm"
)

// GormCommentRepository is a GORM implementation of CommentRepository
type GormCommentRepository struct {
	db *gorm.DB
}

// NewCommentRepository creates a new CommentRepository
func NewCommentRepository(db *gorm.DB) CommentRepository {
	return &GormCommentRepository{db: db}
}

// Create creates a new comment
func (r *GormCommentRepository) Create(comment *models.TaskComment) error {
	return r.db.Create(comment).Error
}

// ListByTask lists a task's comments oldest-first; the monotonic id
// breaks timestamp ties.
func (r *GormCommentRepository) ListByTask(taskID uint64) ([]models.TaskComment, error) {
	var comments []models.TaskComment
	if err := r.db.Preload("Author").
		Where("task_id = ?", taskID).
		Order("created_at ASC, id ASC").
		Find(&comments).Error; err != nil {
		return nil, err
	}
	return comments, nil
}
