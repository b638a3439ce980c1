package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/hnakamura/project-management-api/internal/constants"
	"github.com/hnakamura/project-management-api/internal/dto"
	apierrors "github.com/hnakamura/project-management-api/internal/errors"
	"github.com/hnakamura/project-management-api/internal/middleware"
	"github.com/hnakamura/project-management-api/internal/services"
)

// AIHandler coordinates the AI user story endpoints.
type AIHandler struct {
	storyService *services.StoryService
}

// NewAIHandler creates a new AIHandler.
func NewAIHandler(storyService *services.StoryService) *AIHandler {
	return &AIHandler{
		storyService: storyService,
	}
}

// GenerateStories drafts user stories for a project from a free-form
// description and stores them.
func (h *AIHandler) GenerateStories(c *gin.Context) {
	actor, ok := middleware.GetCurrentUser(c)
	if !ok {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	projectID, err := parseIDParam(c, "id")
	if err != nil {
		apierrors.BadRequest(c, "Invalid project ID")
		return
	}

	type GenerateStoriesRequest struct {
		Description string `json:"description" binding:"required"`
	}

	var req GenerateStoriesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	stories, err := h.storyService.GenerateUserStories(c.Request.Context(), actor, projectID, req.Description)
	if err != nil {
		respondStoryError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"stories": dto.ToUserStoryDTOs(stories),
	})
}

// GenerateTasksFromStories converts a project's stored user stories
// into todo tasks.
func (h *AIHandler) GenerateTasksFromStories(c *gin.Context) {
	actor, ok := middleware.GetCurrentUser(c)
	if !ok {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	projectID, err := parseIDParam(c, "id")
	if err != nil {
		apierrors.BadRequest(c, "Invalid project ID")
		return
	}

	tasks, err := h.storyService.GenerateTasksFromStories(actor, projectID)
	if err != nil {
		respondStoryError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"tasks": dto.ToTaskDTOs(tasks),
	})
}

// ListStories lists the stories previously generated for a project.
func (h *AIHandler) ListStories(c *gin.Context) {
	actor, ok := middleware.GetCurrentUser(c)
	if !ok {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	projectID, err := parseIDParam(c, "id")
	if err != nil {
		apierrors.BadRequest(c, "Invalid project ID")
		return
	}

	stories, err := h.storyService.ListUserStories(actor, projectID)
	if err != nil {
		respondStoryError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"stories": dto.ToUserStoryDTOs(stories),
	})
}

func respondStoryError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrProjectNotFound):
		apierrors.NotFound(c, err.Error())
	case errors.Is(err, services.ErrProjectForbidden):
		apierrors.Forbidden(c, err.Error())
	case errors.Is(err, services.ErrNoStoriesToConvert):
		apierrors.BadRequest(c, err.Error())
	case errors.Is(err, services.ErrDescriptionTooShort):
		apierrors.BadRequest(c, fmt.Sprintf("Description must be at least %d characters", constants.MinStoryDescriptionLength))
	case errors.Is(err, services.ErrAINotConfigured):
		apierrors.FeatureDisabled(c, err.Error())
	case errors.Is(err, services.ErrAIUnavailable):
		apierrors.ServiceUnavailable(c, "AI story generation failed, please try again later")
	default:
		apierrors.InternalError(c, "Internal server error")
	}
}
