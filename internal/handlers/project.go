package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hnakamura/project-management-api/internal/dto"
	apierrors "github.com/hnakamura/project-management-api/internal/errors"
	"github.com/hnakamura/project-management-api/internal/middleware"
	"github.com/hnakamura/project-management-api/internal/models"
	"github.com/hnakamura/project-management-api/internal/services"
)

// ProjectHandler coordinates project-related HTTP handlers.
type ProjectHandler struct {
	projectService *services.ProjectService
}

// NewProjectHandler creates a new ProjectHandler.
func NewProjectHandler(projectService *services.ProjectService) *ProjectHandler {
	return &ProjectHandler{
		projectService: projectService,
	}
}

// CreateProject creates a project owned by the authenticated user.
func (h *ProjectHandler) CreateProject(c *gin.Context) {
	actor, ok := middleware.GetCurrentUser(c)
	if !ok {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	type CreateProjectRequest struct {
		Name        string     `json:"name" binding:"required"`
		Description string     `json:"description"`
		StartDate   *time.Time `json:"start_date"`
		EndDate     *time.Time `json:"end_date"`
	}

	var req CreateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	info, err := h.projectService.CreateProject(actor, services.CreateProjectInput{
		Name:        req.Name,
		Description: req.Description,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
	})
	if err != nil {
		respondProjectError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToProjectDTO(*info))
}

// ListProjects lists the projects visible to the authenticated user.
func (h *ProjectHandler) ListProjects(c *gin.Context) {
	actor, ok := middleware.GetCurrentUser(c)
	if !ok {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	infos, err := h.projectService.ListProjects(actor)
	if err != nil {
		respondProjectError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"projects": dto.ToProjectDTOs(infos),
	})
}

// GetProject returns a project with its aggregates.
func (h *ProjectHandler) GetProject(c *gin.Context) {
	actor, ok := middleware.GetCurrentUser(c)
	if !ok {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	id, err := parseIDParam(c, "id")
	if err != nil {
		apierrors.BadRequest(c, "Invalid project ID")
		return
	}

	info, err := h.projectService.GetProject(actor, id)
	if err != nil {
		respondProjectError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToProjectDTO(*info))
}

// UpdateProject applies a partial update to a project.
func (h *ProjectHandler) UpdateProject(c *gin.Context) {
	actor, ok := middleware.GetCurrentUser(c)
	if !ok {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	id, err := parseIDParam(c, "id")
	if err != nil {
		apierrors.BadRequest(c, "Invalid project ID")
		return
	}

	type UpdateProjectRequest struct {
		Name        *string    `json:"name"`
		Description *string    `json:"description"`
		StartDate   *time.Time `json:"start_date"`
		EndDate     *time.Time `json:"end_date"`
		ClearDates  bool       `json:"clear_dates"`
	}

	var req UpdateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	info, err := h.projectService.UpdateProject(actor, id, services.UpdateProjectInput{
		Name:        req.Name,
		Description: req.Description,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
		ClearDates:  req.ClearDates,
	})
	if err != nil {
		respondProjectError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToProjectDTO(*info))
}

// DeleteProject removes a project and everything attached to it.
func (h *ProjectHandler) DeleteProject(c *gin.Context) {
	actor, ok := middleware.GetCurrentUser(c)
	if !ok {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	id, err := parseIDParam(c, "id")
	if err != nil {
		apierrors.BadRequest(c, "Invalid project ID")
		return
	}

	if err := h.projectService.DeleteProject(actor, id); err != nil {
		respondProjectError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Project deleted successfully",
	})
}

// ListMembers lists a project's members.
func (h *ProjectHandler) ListMembers(c *gin.Context) {
	actor, ok := middleware.GetCurrentUser(c)
	if !ok {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	id, err := parseIDParam(c, "id")
	if err != nil {
		apierrors.BadRequest(c, "Invalid project ID")
		return
	}

	members, err := h.projectService.ListMembers(actor, id)
	if err != nil {
		respondProjectError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"members": dto.ToProjectMemberDTOs(members),
	})
}

// AddMember adds a user to a project.
func (h *ProjectHandler) AddMember(c *gin.Context) {
	actor, ok := middleware.GetCurrentUser(c)
	if !ok {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	id, err := parseIDParam(c, "id")
	if err != nil {
		apierrors.BadRequest(c, "Invalid project ID")
		return
	}

	type AddMemberRequest struct {
		UserID uint64 `json:"user_id" binding:"required"`
		Role   string `json:"role"`
	}

	var req AddMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	if err := h.projectService.AddMember(actor, id, req.UserID, models.ProjectRole(req.Role)); err != nil {
		respondProjectError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Member added successfully",
	})
}

// RemoveMember removes a user from a project.
func (h *ProjectHandler) RemoveMember(c *gin.Context) {
	actor, ok := middleware.GetCurrentUser(c)
	if !ok {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	id, err := parseIDParam(c, "id")
	if err != nil {
		apierrors.BadRequest(c, "Invalid project ID")
		return
	}
	userID, err := parseIDParam(c, "user_id")
	if err != nil {
		apierrors.BadRequest(c, "Invalid user ID")
		return
	}

	if err := h.projectService.RemoveMember(actor, id, userID); err != nil {
		respondProjectError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Member removed successfully",
	})
}

func respondProjectError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrProjectNotFound),
		errors.Is(err, services.ErrMemberNotFound),
		errors.Is(err, services.ErrMemberUserNotFound):
		apierrors.NotFound(c, err.Error())
	case errors.Is(err, services.ErrProjectForbidden):
		apierrors.Forbidden(c, err.Error())
	case errors.Is(err, services.ErrProjectNameRequired),
		errors.Is(err, services.ErrProjectDatesInverted),
		errors.Is(err, services.ErrInvalidProjectRole):
		apierrors.BadRequest(c, err.Error())
	case errors.Is(err, services.ErrMemberAlreadyExists):
		apierrors.Conflict(c, err.Error())
	default:
		apierrors.InternalError(c, "Internal server error")
	}
}
