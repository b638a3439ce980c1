package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/hnakamura/project-management-api/internal/constants"
	"github.com/hnakamura/project-management-api/internal/models"
	"github.com/hnakamura/project-management-api/internal/repository"
)

var (
	ErrAINotConfigured     = errors.New("AI story generation is not configured")
	ErrAIUnavailable       = errors.New("AI story generation is temporarily unavailable")
	ErrDescriptionTooShort = errors.New("description is too short for story generation")
	ErrNoStoriesToConvert  = errors.New("project has no user stories to convert")
)

// StoryGenerator produces user stories from a free-form description.
// *AIService satisfies it; tests substitute their own.
type StoryGenerator interface {
	Configured() bool
	GenerateUserStories(ctx context.Context, description string) ([]string, error)
}

// StoryService generates and stores AI-drafted user stories for projects,
// and can turn stored stories into todo tasks.
type StoryService struct {
	projectRepo repository.ProjectRepository
	storyRepo   repository.StoryRepository
	taskRepo    repository.TaskRepository
	generator   StoryGenerator
}

// NewStoryService creates a new StoryService.
func NewStoryService(projectRepo repository.ProjectRepository, storyRepo repository.StoryRepository, taskRepo repository.TaskRepository, generator StoryGenerator) *StoryService {
	return &StoryService{
		projectRepo: projectRepo,
		storyRepo:   storyRepo,
		taskRepo:    taskRepo,
		generator:   generator,
	}
}

// GenerateUserStories generates user stories for a visible project and
// persists them. Input validation happens before any outbound call, so
// a short description never costs an API request.
func (s *StoryService) GenerateUserStories(ctx context.Context, actor *models.User, projectID uint64, description string) ([]models.UserStory, error) {
	if _, err := s.loadVisibleProject(actor, projectID); err != nil {
		return nil, err
	}

	description = strings.TrimSpace(description)
	if len(description) < constants.MinStoryDescriptionLength {
		return nil, ErrDescriptionTooShort
	}

	if !s.generator.Configured() {
		return nil, ErrAINotConfigured
	}

	drafts, err := s.generator.GenerateUserStories(ctx, description)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAIUnavailable, err)
	}

	stories := make([]models.UserStory, 0, len(drafts))
	for _, draft := range drafts {
		stories = append(stories, models.UserStory{
			Story:     draft,
			ProjectID: projectID,
		})
	}
	if err := s.storyRepo.CreateBatch(stories); err != nil {
		return nil, fmt.Errorf("failed to store stories: %w", err)
	}
	return stories, nil
}

// GenerateTasksFromStories turns a project's stored user stories into
// todo tasks, one per story. No AI call is involved; titles are derived
// from the story text. Admins may always convert; otherwise the actor
// needs a lead membership in the project.
func (s *StoryService) GenerateTasksFromStories(actor *models.User, projectID uint64) ([]models.Task, error) {
	project, err := s.loadVisibleProject(actor, projectID)
	if err != nil {
		return nil, err
	}

	if actor.Role != models.RoleAdmin {
		member, err := s.projectRepo.FindMember(project.ID, actor.ID)
		if err != nil || member.Role != models.ProjectRoleLead {
			return nil, ErrProjectForbidden
		}
	}

	stories, err := s.storyRepo.ListByProject(projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list stories: %w", err)
	}
	if len(stories) == 0 {
		return nil, ErrNoStoriesToConvert
	}

	tasks := make([]models.Task, 0, len(stories))
	for _, story := range stories {
		task := models.Task{
			Title:       taskTitleFromStory(story.Story),
			Description: "Generated from user story: " + story.Story,
			Status:      models.TaskStatusTodo,
			Priority:    models.PriorityMedium,
			ProjectID:   projectID,
			CreatorID:   actor.ID,
		}
		if err := s.taskRepo.Create(&task); err != nil {
			return nil, fmt.Errorf("failed to create task: %w", err)
		}
		tasks = append(tasks, task)
	}
	return tasks, nil
}

// taskTitleFromStory extracts the goal clause of an "As a ..., I want
// ... so that ..." story; anything else gets a truncated fallback title.
func taskTitleFromStory(story string) string {
	if _, after, ok := strings.Cut(story, "I want to "); ok {
		action, _, _ := strings.Cut(after, " so that")
		return "Implement: " + strings.TrimSpace(action)
	}

	runes := []rune(story)
	if len(runes) > 50 {
		return "Task for: " + string(runes[:50]) + "..."
	}
	return "Task for: " + story
}

// ListUserStories lists the stories previously generated for a project.
func (s *StoryService) ListUserStories(actor *models.User, projectID uint64) ([]models.UserStory, error) {
	if _, err := s.loadVisibleProject(actor, projectID); err != nil {
		return nil, err
	}

	stories, err := s.storyRepo.ListByProject(projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list stories: %w", err)
	}
	return stories, nil
}

func (s *StoryService) loadVisibleProject(actor *models.User, projectID uint64) (*models.Project, error) {
	svc := ProjectService{projectRepo: s.projectRepo}
	return svc.loadVisibleProject(actor, projectID)
}
