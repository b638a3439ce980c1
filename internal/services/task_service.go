package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hnakamura/project-management-api/internal/authz"
	"github.com/hnakamura/project-management-api/internal/models"
	"github.com/hnakamura/project-management-api/internal/repository"
	"github.com/hnakamura/project-management-api/internal/utils"
	"gorm.io/gorm"
)

var (
	ErrTaskNotFound        = errors.New("task not found")
	ErrTaskForbidden       = errors.New("not enough permissions for this task")
	ErrTaskTitleRequired   = errors.New("task title is required")
	ErrInvalidTaskStatus   = errors.New("invalid task status")
	ErrInvalidTaskPriority = errors.New("invalid task priority")
	ErrAssigneeNotMember   = errors.New("assignee must be a member of the project")
	ErrAssigneeNotFound    = errors.New("assignee not found")
)

// TaskService provides business logic for tasks and their lifecycle.
type TaskService struct {
	taskRepo    repository.TaskRepository
	projectRepo repository.ProjectRepository
	userRepo    repository.UserRepository
}

// NewTaskService creates a new TaskService.
func NewTaskService(taskRepo repository.TaskRepository, projectRepo repository.ProjectRepository, userRepo repository.UserRepository) *TaskService {
	return &TaskService{
		taskRepo:    taskRepo,
		projectRepo: projectRepo,
		userRepo:    userRepo,
	}
}

// CreateTaskInput represents input for creating a task.
type CreateTaskInput struct {
	Title       string
	Description string
	Status      models.TaskStatus
	Priority    models.Priority
	DueDate     *time.Time
	ProjectID   uint64
	AssigneeID  *uint64
}

// CreateTask creates a task. Any project member may create tasks; the
// assignee, when given, must also be a member. Non-members are denied
// outright rather than hidden behind a not-found.
func (s *TaskService) CreateTask(actor *models.User, input CreateTaskInput) (*models.Task, error) {
	project, err := s.projectRepo.FindByID(input.ProjectID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProjectNotFound
		}
		return nil, fmt.Errorf("failed to find project: %w", err)
	}

	target, err := s.membershipTarget(actor, project)
	if err != nil {
		return nil, err
	}
	if !authz.Decide(actor, authz.TaskCreate, target) {
		return nil, ErrTaskForbidden
	}

	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, ErrTaskTitleRequired
	}

	status := input.Status
	if status == "" {
		status = models.TaskStatusTodo
	}
	if !status.Valid() {
		return nil, ErrInvalidTaskStatus
	}

	priority := input.Priority
	if priority == "" {
		priority = models.PriorityMedium
	}
	if !priority.Valid() {
		return nil, ErrInvalidTaskPriority
	}

	if input.AssigneeID != nil {
		if err := s.ensureAssigneeIsMember(input.ProjectID, *input.AssigneeID); err != nil {
			return nil, err
		}
	}

	task := &models.Task{
		Title:       title,
		Description: input.Description,
		Status:      status,
		Priority:    priority,
		DueDate:     input.DueDate,
		ProjectID:   input.ProjectID,
		AssigneeID:  input.AssigneeID,
		CreatorID:   actor.ID,
	}

	if err := s.taskRepo.Create(task); err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	return s.taskRepo.FindByID(task.ID, "Creator", "Assignee")
}

// GetTask returns a task if its project is visible to the actor.
func (s *TaskService) GetTask(actor *models.User, id uint64) (*models.Task, error) {
	return s.loadVisibleTask(actor, id, "Creator", "Assignee")
}

// ListTasksInput carries the optional filters for a task listing.
type ListTasksInput struct {
	ProjectID  *uint64
	Status     *models.TaskStatus
	AssigneeID *uint64
	Pagination utils.PaginationParams
}

// ListTasks lists tasks across the projects the actor can see, with
// optional project, status, and assignee filters.
func (s *TaskService) ListTasks(actor *models.User, input ListTasksInput) ([]models.Task, int64, error) {
	if input.Status != nil && !input.Status.Valid() {
		return nil, 0, ErrInvalidTaskStatus
	}
	if input.ProjectID != nil {
		if _, err := s.loadVisibleProjectForTask(actor, *input.ProjectID); err != nil {
			return nil, 0, err
		}
	}

	scope, err := s.visibleProjectIDs(actor)
	if err != nil {
		return nil, 0, err
	}

	filter := repository.TaskFilter{
		ProjectIDs: scope,
		ProjectID:  input.ProjectID,
		Status:     input.Status,
		AssigneeID: input.AssigneeID,
		Pagination: &input.Pagination,
	}
	tasks, total, err := s.taskRepo.List(filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list tasks: %w", err)
	}
	return tasks, total, nil
}

// MyTasks lists tasks assigned to the actor.
func (s *TaskService) MyTasks(actor *models.User, params utils.PaginationParams) ([]models.Task, int64, error) {
	filter := repository.TaskFilter{
		AssigneeID: &actor.ID,
		Pagination: &params,
	}
	tasks, total, err := s.taskRepo.List(filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list tasks: %w", err)
	}
	return tasks, total, nil
}

// OverdueTasks lists tasks past their due date and not done, limited to
// the projects the actor can see.
func (s *TaskService) OverdueTasks(actor *models.User, now time.Time) ([]models.Task, error) {
	scope, err := s.visibleProjectIDs(actor)
	if err != nil {
		return nil, err
	}

	tasks, err := s.taskRepo.ListOverdue(scope, now)
	if err != nil {
		return nil, fmt.Errorf("failed to list overdue tasks: %w", err)
	}
	return tasks, nil
}

// UpdateTaskInput represents a partial task update. Nil fields are left
// unchanged; ClearAssignee and ClearDueDate reset the optional fields.
type UpdateTaskInput struct {
	Title         *string
	Description   *string
	Status        *models.TaskStatus
	Priority      *models.Priority
	DueDate       *time.Time
	AssigneeID    *uint64
	ClearAssignee bool
	ClearDueDate  bool
}

// statusOnly reports whether the patch touches nothing but the status.
func (in UpdateTaskInput) statusOnly() bool {
	return in.Title == nil && in.Description == nil && in.Priority == nil &&
		in.DueDate == nil && in.AssigneeID == nil &&
		!in.ClearAssignee && !in.ClearDueDate
}

// UpdateTask applies a patch to a task. A developer assigned to the task
// may only change its status; broader edits need the manager or admin
// role.
func (s *TaskService) UpdateTask(actor *models.User, id uint64, input UpdateTaskInput) (*models.Task, error) {
	task, err := s.loadVisibleTask(actor, id)
	if err != nil {
		return nil, err
	}

	target, err := s.taskTarget(actor, task)
	if err != nil {
		return nil, err
	}
	target.StatusOnly = input.statusOnly()
	if !authz.Decide(actor, authz.TaskUpdate, target) {
		return nil, ErrTaskForbidden
	}

	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if title == "" {
			return nil, ErrTaskTitleRequired
		}
		task.Title = title
	}
	if input.Description != nil {
		task.Description = *input.Description
	}
	if input.Status != nil {
		if !input.Status.Valid() {
			return nil, ErrInvalidTaskStatus
		}
		task.Status = *input.Status
	}
	if input.Priority != nil {
		if !input.Priority.Valid() {
			return nil, ErrInvalidTaskPriority
		}
		task.Priority = *input.Priority
	}
	if input.ClearDueDate {
		task.DueDate = nil
	} else if input.DueDate != nil {
		task.DueDate = input.DueDate
	}
	if input.ClearAssignee {
		task.AssigneeID = nil
	} else if input.AssigneeID != nil {
		if err := s.ensureAssigneeIsMember(task.ProjectID, *input.AssigneeID); err != nil {
			return nil, err
		}
		task.AssigneeID = input.AssigneeID
	}

	if err := s.taskRepo.Update(task); err != nil {
		return nil, fmt.Errorf("failed to update task: %w", err)
	}

	return s.taskRepo.FindByID(task.ID, "Creator", "Assignee")
}

// DeleteTask removes a task along with its comments.
func (s *TaskService) DeleteTask(actor *models.User, id uint64) error {
	task, err := s.loadVisibleTask(actor, id)
	if err != nil {
		return err
	}

	target, err := s.taskTarget(actor, task)
	if err != nil {
		return err
	}
	if !authz.Decide(actor, authz.TaskDelete, target) {
		return ErrTaskForbidden
	}

	if err := s.taskRepo.Delete(id); err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	return nil
}

// StatusCounts returns the number of a project's tasks per status, with
// every status present even at zero.
func (s *TaskService) StatusCounts(actor *models.User, projectID uint64) (map[models.TaskStatus]int64, error) {
	if _, err := s.loadVisibleProjectForTask(actor, projectID); err != nil {
		return nil, err
	}

	counts, err := s.taskRepo.CountByStatus(projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to count tasks: %w", err)
	}
	return counts, nil
}

// visibleProjectIDs returns the project scope for listings: nil means
// unrestricted (admin), an empty slice means nothing is visible.
func (s *TaskService) visibleProjectIDs(actor *models.User) ([]uint64, error) {
	if actor.Role == models.RoleAdmin {
		return nil, nil
	}
	ids, err := s.projectRepo.ListVisibleIDs(actor.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list visible projects: %w", err)
	}
	if ids == nil {
		ids = []uint64{}
	}
	return ids, nil
}

func (s *TaskService) loadVisibleTask(actor *models.User, id uint64, preload ...string) (*models.Task, error) {
	task, err := s.taskRepo.FindByID(id, preload...)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to find task: %w", err)
	}

	if _, err := s.loadVisibleProjectForTask(actor, task.ProjectID); err != nil {
		if errors.Is(err, ErrProjectNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, err
	}
	return task, nil
}

// loadVisibleProjectForTask mirrors the project service's visibility
// rule: admins, the creator, and members see a project.
func (s *TaskService) loadVisibleProjectForTask(actor *models.User, projectID uint64) (*models.Project, error) {
	project, err := s.projectRepo.FindByID(projectID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProjectNotFound
		}
		return nil, fmt.Errorf("failed to find project: %w", err)
	}

	if actor.Role == models.RoleAdmin || project.CreatorID == actor.ID {
		return project, nil
	}

	if _, err := s.projectRepo.FindMember(projectID, actor.ID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProjectNotFound
		}
		return nil, fmt.Errorf("failed to verify membership: %w", err)
	}
	return project, nil
}

func (s *TaskService) membershipTarget(actor *models.User, project *models.Project) (authz.Target, error) {
	target := authz.Target{ProjectCreatorID: project.CreatorID}

	_, err := s.projectRepo.FindMember(project.ID, actor.ID)
	if err == nil {
		target.ProjectMember = true
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return authz.Target{}, fmt.Errorf("failed to verify membership: %w", err)
	}
	return target, nil
}

func (s *TaskService) taskTarget(actor *models.User, task *models.Task) (authz.Target, error) {
	project, err := s.projectRepo.FindByID(task.ProjectID)
	if err != nil {
		return authz.Target{}, fmt.Errorf("failed to find project: %w", err)
	}

	target, err := s.membershipTarget(actor, project)
	if err != nil {
		return authz.Target{}, err
	}
	target.TaskAssignee = task.AssigneeID != nil && *task.AssigneeID == actor.ID
	target.TaskCreator = task.CreatorID == actor.ID
	return target, nil
}

func (s *TaskService) ensureAssigneeIsMember(projectID, assigneeID uint64) error {
	if _, err := s.userRepo.FindByID(assigneeID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrAssigneeNotFound
		}
		return fmt.Errorf("failed to find assignee: %w", err)
	}

	if _, err := s.projectRepo.FindMember(projectID, assigneeID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrAssigneeNotMember
		}
		return fmt.Errorf("failed to verify assignee membership: %w", err)
	}
	return nil
}
