package repository

import (
	"time"

	"github.com/hnakamura/project-management-api/internal/database"
	"github.com/hnakamura/project-management-api/internal/models"
	"gorm.io/gorm"
)

// GormTaskRepository is a GORM implementation of TaskRepository
type GormTaskRepository struct {
	db *gorm.DB
}

// NewTaskRepository creates a new TaskRepository
func NewTaskRepository(db *gorm.DB) TaskRepository {
	return &GormTaskRepository{db: db}
}

// Create creates a new task
func (r *GormTaskRepository) Create(task *models.Task) error {
	return r.db.Create(task).Error
}

// FindByID finds a task by ID with optional preloading
func (r *GormTaskRepository) FindByID(id uint64, preload ...string) (*models.Task, error) {
	var task models.Task
	query := r.db
	for _, p := range preload {
		query = query.Preload(p)
	}

	if err := query.First(&task, id).Error; err != nil {
		return nil, err
	}
	return &task, nil
}

// List retrieves tasks matching the filter, ordered by creation order.
func (r *GormTaskRepository) List(filter TaskFilter) ([]models.Task, int64, error) {
	query := r.db.Model(&models.Task{})

	if filter.ProjectIDs != nil {
		if len(filter.ProjectIDs) == 0 {
			return []models.Task{}, 0, nil
		}
		query = query.Where("tasks.project_id IN ?", filter.ProjectIDs)
	}
	if filter.ProjectID != nil {
		query = query.Where("tasks.project_id = ?", *filter.ProjectID)
	}
	if filter.Status != nil {
		query = query.Where("tasks.status = ?", *filter.Status)
	}
	if filter.AssigneeID != nil {
		query = query.Where("tasks.assignee_id = ?", *filter.AssigneeID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	listQuery := query.Order("tasks.created_at ASC, tasks.id ASC")
	if filter.Pagination != nil {
		listQuery = listQuery.Scopes(database.Paginate(*filter.Pagination))
	}

	var tasks []models.Task
	if err := listQuery.Preload("Creator").Preload("Assignee").Find(&tasks).Error; err != nil {
		return nil, 0, err
	}
	return tasks, total, nil
}

// ListOverdue retrieves tasks with a due date in the past that are not done.
// A nil projectIDs slice means no scoping; an empty one yields no results.
func (r *GormTaskRepository) ListOverdue(projectIDs []uint64, now time.Time) ([]models.Task, error) {
	query := r.db.Model(&models.Task{}).
		Where("tasks.due_date IS NOT NULL AND tasks.due_date < ?", now).
		Where("tasks.status <> ?", models.TaskStatusDone)

	if projectIDs != nil {
		if len(projectIDs) == 0 {
			return []models.Task{}, nil
		}
		query = query.Where("tasks.project_id IN ?", projectIDs)
	}

	var tasks []models.Task
	if err := query.Order("tasks.due_date ASC, tasks.id ASC").
		Preload("Creator").Preload("Assignee").
		Find(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}

// Update updates a task
func (r *GormTaskRepository) Update(task *models.Task) error {
	return r.db.Save(task).Error
}

// Delete removes a task and its comments in one transaction
func (r *GormTaskRepository) Delete(id uint64) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("task_id = ?", id).Delete(&models.TaskComment{}).Error; err != nil {
			return err
		}

		return tx.Delete(&models.Task{}, id).Error
	})
}

// CountByStatus counts a project's tasks grouped by status. Every status
// is present in the result, zero counts included.
func (r *GormTaskRepository) CountByStatus(projectID uint64) (map[models.TaskStatus]int64, error) {
	type statusCount struct {
		Status models.TaskStatus
		Count  int64
	}

	var rows []statusCount
	err := r.db.Model(&models.Task{}).
		Select("status, COUNT(*) as count").
		Where("project_id = ?", projectID).
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[models.TaskStatus]int64, len(models.TaskStatuses))
	for _, s := range models.TaskStatuses {
		counts[s] = 0
	}
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}
