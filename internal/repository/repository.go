package repository

import (
	"time"

	"github.com/hnakamura/project-management-api/internal/models"
	"github.com/hnakamura/project-management-api/internal/utils"
)

// UserRepository defines the interface for user data access
type UserRepository interface {
	// Create creates a new user
	Create(user *models.User) error

	// FindByID finds a user by ID
	FindByID(id uint64) (*models.User, error)

	// FindByUsername finds a user by username
	FindByUsername(username string) (*models.User, error)

	// FindByEmail finds a user by email
	FindByEmail(email string) (*models.User, error)

	// List retrieves users with pagination
	List(params utils.PaginationParams) ([]models.User, int64, error)

	// Update updates a user
	Update(user *models.User) error

	// Delete soft deletes a user
	Delete(id uint64) error
}

// ProjectRepository defines the interface for project and membership data access
type ProjectRepository interface {
	// CreateWithLead creates a project and the creator's lead membership
	// within a single transaction.
	CreateWithLead(project *models.Project, lead *models.ProjectMember) error

	// FindByID finds a project by ID with optional preloading
	FindByID(id uint64, preload ...string) (*models.Project, error)

	// Update updates a project
	Update(project *models.Project) error

	// Delete removes a project and cascades to its tasks, their comments,
	// memberships, and stored user stories in one transaction.
	Delete(id uint64) error

	// ListAll lists every project (admin visibility)
	ListAll() ([]models.Project, error)

	// ListVisible lists projects the user created or is a member of
	ListVisible(userID uint64) ([]models.Project, error)

	// ListVisibleIDs returns the IDs of projects the user created or is a member of
	ListVisibleIDs(userID uint64) ([]uint64, error)

	// AddMember adds a member to a project
	AddMember(member *models.ProjectMember) error

	// RemoveMember removes a member from a project
	RemoveMember(projectID, userID uint64) error

	// FindMember finds a specific project membership
	FindMember(projectID, userID uint64) (*models.ProjectMember, error)

	// ListMembers lists all members of a project
	ListMembers(projectID uint64) ([]models.ProjectMember, error)

	// CountMembers counts the members of a project
	CountMembers(projectID uint64) (int64, error)
}

// TaskFilter holds filtering options for listing tasks
type TaskFilter struct {
	// ProjectIDs scopes results to these projects; nil means no scoping
	// (admin), an empty non-nil slice yields no results.
	ProjectIDs []uint64
	ProjectID  *uint64
	Status     *models.TaskStatus
	AssigneeID *uint64
	Pagination *utils.PaginationParams
}

// TaskRepository defines the interface for task data access
type TaskRepository interface {
	// Create creates a new task
	Create(task *models.Task) error

	// FindByID finds a task by ID with optional preloading
	FindByID(id uint64, preload ...string) (*models.Task, error)

	// List retrieves tasks matching the filter, in creation order
	List(filter TaskFilter) ([]models.Task, int64, error)

	// ListOverdue retrieves tasks whose due date has passed and whose
	// status is not done, scoped like List.
	ListOverdue(projectIDs []uint64, now time.Time) ([]models.Task, error)

	// Update updates a task
	Update(task *models.Task) error

	// Delete removes a task and its comments in one transaction
	Delete(id uint64) error

	// CountByStatus counts a project's tasks grouped by status
	CountByStatus(projectID uint64) (map[models.TaskStatus]int64, error)
}

// CommentRepository defines the interface for task comment data access
type CommentRepository interface {
	// Create creates a new comment
	Create(comment *models.TaskComment) error

	// ListByTask lists a task's comments oldest-first, id as tiebreak
	ListByTask(taskID uint64) ([]models.TaskComment, error)
}

// StoryRepository defines the interface for persisted user stories
type StoryRepository interface {
	// CreateBatch stores a batch of generated stories
	CreateBatch(stories []models.UserStory) error

	// ListByProject lists a project's stored stories oldest-first
	ListByProject(projectID uint64) ([]models.UserStory, error)
}
