package repository

import (
	"github.com/hnakamura/project-management-api/internal/models"
	"gorm.io/gorm"
)

// GormStoryRepository is a GORM implementation of StoryRepository
type GormStoryRepository struct {
	db *gorm.DB
}

// NewStoryRepository creates a new StoryRepository
func NewStoryRepository(db *gorm.DB) StoryRepository {
	return &GormStoryRepository{db: db}
}

// CreateBatch stores a batch of generated stories
func (r *GormStoryRepository) CreateBatch(stories []models.UserStory) error {
	if len(stories) == 0 {
		return nil
	}
	return r.db.Create(&stories).Error
}

// ListByProject lists a project's stored stories oldest-first
func (r *GormStoryRepository) ListByProject(projectID uint64) ([]models.UserStory, error) {
	var stories []models.UserStory
	if err := r.db.Where("project_id = ?", projectID).
		Order("created_at ASC, id ASC").
		Find(&stories).Error; err != nil {
		return nil, err
	}
	return stories, nil
}
