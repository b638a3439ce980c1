package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/hnakamura/project-management-api/internal/authz"
	"github.com/hnakamura/project-management-api/internal/models"
	"github.com/hnakamura/project-management-api/internal/repository"
)

var ErrCommentContentRequired = errors.New("comment content is required")

// CommentService handles discussion threads attached to tasks.
type CommentService struct {
	commentRepo repository.CommentRepository
	taskService *TaskService
}

// NewCommentService creates a new CommentService.
func NewCommentService(commentRepo repository.CommentRepository, taskService *TaskService) *CommentService {
	return &CommentService{
		commentRepo: commentRepo,
		taskService: taskService,
	}
}

// AddComment attaches a comment to a task. Any member of the task's
// project may comment, regardless of who the task is assigned to.
func (s *CommentService) AddComment(actor *models.User, taskID uint64, content string) (*models.TaskComment, error) {
	task, err := s.taskService.loadVisibleTask(actor, taskID)
	if err != nil {
		return nil, err
	}

	target, err := s.taskService.taskTarget(actor, task)
	if err != nil {
		return nil, err
	}
	if !authz.Decide(actor, authz.TaskComment, target) {
		return nil, ErrTaskForbidden
	}

	content = strings.TrimSpace(content)
	if content == "" {
		return nil, ErrCommentContentRequired
	}

	comment := &models.TaskComment{
		Content:  content,
		TaskID:   taskID,
		AuthorID: actor.ID,
	}
	if err := s.commentRepo.Create(comment); err != nil {
		return nil, fmt.Errorf("failed to create comment: %w", err)
	}
	comment.Author = *actor
	return comment, nil
}

// ListComments lists a task's comments oldest-first.
func (s *CommentService) ListComments(actor *models.User, taskID uint64) ([]models.TaskComment, error) {
	if _, err := s.taskService.loadVisibleTask(actor, taskID); err != nil {
		return nil, err
	}

	comments, err := s.commentRepo.ListByTask(taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}
	return comments, nil
}
