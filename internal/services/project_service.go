package services

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/hnakamura/project-management-api/internal/authz"
	"github.com/hnakamura/project-management-api/internal/models"
	"github.com/hnakamura/project-management-api/internal/repository"
	"gorm.io/gorm"
)

var (
	ErrProjectNotFound      = errors.New("project not found")
	ErrProjectForbidden     = errors.New("not enough permissions for this project")
	ErrProjectNameRequired  = errors.New("project name is required")
	ErrProjectDatesInverted = errors.New("project end date must not be before start date")
	ErrMemberAlreadyExists  = errors.New("user is already a member of this project")
	ErrMemberUserNotFound   = errors.New("user to add not found")
	ErrMemberNotFound       = errors.New("project member not found")
	ErrInvalidProjectRole   = errors.New("invalid project role")
)

// ProjectService provides business logic for projects and memberships.
// Every operation takes the acting user explicitly; authorization is
// decided per call and never cached.
type ProjectService struct {
	projectRepo repository.ProjectRepository
	taskRepo    repository.TaskRepository
	userRepo    repository.UserRepository
}

// NewProjectService creates a new ProjectService.
func NewProjectService(projectRepo repository.ProjectRepository, taskRepo repository.TaskRepository, userRepo repository.UserRepository) *ProjectService {
	return &ProjectService{
		projectRepo: projectRepo,
		taskRepo:    taskRepo,
		userRepo:    userRepo,
	}
}

// ProjectInfo is a project together with its derived aggregates.
type ProjectInfo struct {
	Project            models.Project
	TaskCount          int64
	DoneTasks          int64
	MemberCount        int64
	ProgressPercentage int
}

// CreateProjectInput represents input for creating a project.
type CreateProjectInput struct {
	Name        string
	Description string
	StartDate   *time.Time
	EndDate     *time.Time
}

// CreateProject creates a project. The actor becomes the creator and
// receives an implicit lead membership in the same transaction.
func (s *ProjectService) CreateProject(actor *models.User, input CreateProjectInput) (*ProjectInfo, error) {
	if !authz.Decide(actor, authz.ProjectCreate, authz.Target{}) {
		return nil, ErrProjectForbidden
	}

	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, ErrProjectNameRequired
	}
	if err := validateDates(input.StartDate, input.EndDate); err != nil {
		return nil, err
	}

	project := &models.Project{
		Name:        name,
		Description: input.Description,
		StartDate:   input.StartDate,
		EndDate:     input.EndDate,
		CreatorID:   actor.ID,
	}
	lead := &models.ProjectMember{
		UserID:   actor.ID,
		Role:     models.ProjectRoleLead,
		JoinedAt: time.Now(),
	}

	if err := s.projectRepo.CreateWithLead(project, lead); err != nil {
		return nil, fmt.Errorf("failed to create project: %w", err)
	}

	return s.buildProjectInfo(project)
}

// GetProject returns a project with aggregates. Invisible projects are
// reported as not found so their existence does not leak.
func (s *ProjectService) GetProject(actor *models.User, id uint64) (*ProjectInfo, error) {
	project, err := s.loadVisibleProject(actor, id)
	if err != nil {
		return nil, err
	}
	return s.buildProjectInfo(project)
}

// ListProjects lists the projects the actor can see: all of them for an
// admin, otherwise those the actor created or belongs to.
func (s *ProjectService) ListProjects(actor *models.User) ([]ProjectInfo, error) {
	var (
		projects []models.Project
		err      error
	)
	if actor.Role == models.RoleAdmin {
		projects, err = s.projectRepo.ListAll()
	} else {
		projects, err = s.projectRepo.ListVisible(actor.ID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}

	infos := make([]ProjectInfo, 0, len(projects))
	for i := range projects {
		info, err := s.buildProjectInfo(&projects[i])
		if err != nil {
			return nil, err
		}
		infos = append(infos, *info)
	}
	return infos, nil
}

// UpdateProjectInput represents a partial project update.
type UpdateProjectInput struct {
	Name        *string
	Description *string
	StartDate   *time.Time
	EndDate     *time.Time
	ClearDates  bool
}

// UpdateProject applies a patch to a project.
func (s *ProjectService) UpdateProject(actor *models.User, id uint64, input UpdateProjectInput) (*ProjectInfo, error) {
	project, err := s.loadVisibleProject(actor, id)
	if err != nil {
		return nil, err
	}

	target, err := s.projectTarget(actor, project)
	if err != nil {
		return nil, err
	}
	if !authz.Decide(actor, authz.ProjectUpdate, target) {
		return nil, ErrProjectForbidden
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, ErrProjectNameRequired
		}
		project.Name = name
	}
	if input.Description != nil {
		project.Description = *input.Description
	}
	if input.ClearDates {
		project.StartDate = nil
		project.EndDate = nil
	} else {
		if input.StartDate != nil {
			project.StartDate = input.StartDate
		}
		if input.EndDate != nil {
			project.EndDate = input.EndDate
		}
	}
	if err := validateDates(project.StartDate, project.EndDate); err != nil {
		return nil, err
	}

	if err := s.projectRepo.Update(project); err != nil {
		return nil, fmt.Errorf("failed to update project: %w", err)
	}
	return s.buildProjectInfo(project)
}

// DeleteProject removes a project. The cascade to tasks, their comments,
// memberships, and stored user stories happens in one transaction.
func (s *ProjectService) DeleteProject(actor *models.User, id uint64) error {
	project, err := s.loadVisibleProject(actor, id)
	if err != nil {
		return err
	}

	target, err := s.projectTarget(actor, project)
	if err != nil {
		return err
	}
	if !authz.Decide(actor, authz.ProjectDelete, target) {
		return ErrProjectForbidden
	}

	if err := s.projectRepo.Delete(id); err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}
	return nil
}

// AddMember adds a user to a project with the given sub-role.
func (s *ProjectService) AddMember(actor *models.User, projectID, userID uint64, role models.ProjectRole) error {
	project, err := s.loadVisibleProject(actor, projectID)
	if err != nil {
		return err
	}

	target, err := s.projectTarget(actor, project)
	if err != nil {
		return err
	}
	if !authz.Decide(actor, authz.ProjectAddMember, target) {
		return ErrProjectForbidden
	}

	if role == "" {
		role = models.ProjectRoleMember
	}
	switch role {
	case models.ProjectRoleLead, models.ProjectRoleMember:
	default:
		return ErrInvalidProjectRole
	}

	if _, err := s.userRepo.FindByID(userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrMemberUserNotFound
		}
		return fmt.Errorf("failed to find user: %w", err)
	}

	if _, err := s.projectRepo.FindMember(projectID, userID); err == nil {
		return ErrMemberAlreadyExists
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("failed to verify membership: %w", err)
	}

	member := &models.ProjectMember{
		ProjectID: projectID,
		UserID:    userID,
		Role:      role,
		JoinedAt:  time.Now(),
	}
	if err := s.projectRepo.AddMember(member); err != nil {
		return fmt.Errorf("failed to add member: %w", err)
	}
	return nil
}

// RemoveMember removes a user from a project.
func (s *ProjectService) RemoveMember(actor *models.User, projectID, userID uint64) error {
	project, err := s.loadVisibleProject(actor, projectID)
	if err != nil {
		return err
	}

	target, err := s.projectTarget(actor, project)
	if err != nil {
		return err
	}
	if !authz.Decide(actor, authz.ProjectAddMember, target) {
		return ErrProjectForbidden
	}

	if _, err := s.projectRepo.FindMember(projectID, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrMemberNotFound
		}
		return fmt.Errorf("failed to find member: %w", err)
	}

	if err := s.projectRepo.RemoveMember(projectID, userID); err != nil {
		return fmt.Errorf("failed to remove member: %w", err)
	}
	return nil
}

// ListMembers lists a project's members, visible to the same audience
// as the project itself.
func (s *ProjectService) ListMembers(actor *models.User, projectID uint64) ([]models.ProjectMember, error) {
	if _, err := s.loadVisibleProject(actor, projectID); err != nil {
		return nil, err
	}

	members, err := s.projectRepo.ListMembers(projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	return members, nil
}

// ComputeProgress returns the integer percentage of done tasks, rounded
// half-up, and 0 when there are no tasks at all.
func ComputeProgress(total, done int64) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(done) / float64(total) * 100))
}

// loadVisibleProject loads a project and enforces visibility: members,
// the creator, and admins see it, everyone else gets not-found.
func (s *ProjectService) loadVisibleProject(actor *models.User, id uint64) (*models.Project, error) {
	project, err := s.projectRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProjectNotFound
		}
		return nil, fmt.Errorf("failed to find project: %w", err)
	}

	if actor.Role == models.RoleAdmin || project.CreatorID == actor.ID {
		return project, nil
	}

	if _, err := s.projectRepo.FindMember(id, actor.ID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProjectNotFound
		}
		return nil, fmt.Errorf("failed to verify membership: %w", err)
	}
	return project, nil
}

// projectTarget builds the authorization target for a project operation.
func (s *ProjectService) projectTarget(actor *models.User, project *models.Project) (authz.Target, error) {
	target := authz.Target{ProjectCreatorID: project.CreatorID}

	_, err := s.projectRepo.FindMember(project.ID, actor.ID)
	if err == nil {
		target.ProjectMember = true
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return authz.Target{}, fmt.Errorf("failed to verify membership: %w", err)
	}
	return target, nil
}

func (s *ProjectService) buildProjectInfo(project *models.Project) (*ProjectInfo, error) {
	counts, err := s.taskRepo.CountByStatus(project.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to count tasks: %w", err)
	}

	var total int64
	for _, n := range counts {
		total += n
	}
	done := counts[models.TaskStatusDone]

	memberCount, err := s.projectRepo.CountMembers(project.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to count members: %w", err)
	}

	return &ProjectInfo{
		Project:            *project,
		TaskCount:          total,
		DoneTasks:          done,
		MemberCount:        memberCount,
		ProgressPercentage: ComputeProgress(total, done),
	}, nil
}

func validateDates(start, end *time.Time) error {
	if start != nil && end != nil && end.Before(*start) {
		return ErrProjectDatesInverted
	}
	return nil
}
