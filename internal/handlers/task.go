package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hnakamura/project-management-api/internal/dto"
	apierrors "github.com/hnakamura/project-management-api/internal/errors"
	"github.com/hnakamura/project-management-api/internal/middleware"
	"github.com/hnakamura/project-management-api/internal/models"
	"github.com/hnakamura/project-management-api/internal/services"
	"github.com/hnakamura/project-management-api/internal/utils"
)

// TaskHandler coordinates task-related HTTP handlers.
type TaskHandler struct {
	taskService    *services.TaskService
	commentService *services.CommentService
}

// NewTaskHandler creates a new TaskHandler.
func NewTaskHandler(taskService *services.TaskService, commentService *services.CommentService) *TaskHandler {
	return &TaskHandler{
		taskService:    taskService,
		commentService: commentService,
	}
}

// ListTasks lists tasks across visible projects with optional filters.
func (h *TaskHandler) ListTasks(c *gin.Context) {
	actor, ok := middleware.GetCurrentUser(c)
	if !ok {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	input := services.ListTasksInput{
		Pagination: utils.GetPaginationParams(c),
	}
	if raw := c.Query("project_id"); raw != "" {
		projectID, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			apierrors.BadRequest(c, "Invalid project_id filter")
			return
		}
		input.ProjectID = &projectID
	}
	if raw := c.Query("status"); raw != "" {
		status := models.TaskStatus(raw)
		input.Status = &status
	}
	if raw := c.Query("assignee_id"); raw != "" {
		assigneeID, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			apierrors.BadRequest(c, "Invalid assignee_id filter")
			return
		}
		input.AssigneeID = &assigneeID
	}

	tasks, total, err := h.taskService.ListTasks(actor, input)
	if err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.TaskListResponse{
		Tasks: dto.ToTaskDTOs(tasks),
		Page:  input.Pagination.Page,
		Limit: input.Pagination.Limit,
		Total: total,
	})
}

// MyTasks lists tasks assigned to the authenticated user.
func (h *TaskHandler) MyTasks(c *gin.Context) {
	actor, ok := middleware.GetCurrentUser(c)
	if !ok {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	params := utils.GetPaginationParams(c)
	tasks, total, err := h.taskService.MyTasks(actor, params)
	if err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.TaskListResponse{
		Tasks: dto.ToTaskDTOs(tasks),
		Page:  params.Page,
		Limit: params.Limit,
		Total: total,
	})
}

// OverdueTasks lists tasks past their due date and not done.
func (h *TaskHandler) OverdueTasks(c *gin.Context) {
	actor, ok := middleware.GetCurrentUser(c)
	if !ok {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	tasks, err := h.taskService.OverdueTasks(actor, time.Now())
	if err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"tasks": dto.ToTaskDTOs(tasks),
	})
}

// GetTask returns a single task.
func (h *TaskHandler) GetTask(c *gin.Context) {
	actor, ok := middleware.GetCurrentUser(c)
	if !ok {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	id, err := parseIDParam(c, "id")
	if err != nil {
		apierrors.BadRequest(c, "Invalid task ID")
		return
	}

	task, err := h.taskService.GetTask(actor, id)
	if err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskDTO(*task))
}

// CreateTask creates a task inside a project.
func (h *TaskHandler) CreateTask(c *gin.Context) {
	actor, ok := middleware.GetCurrentUser(c)
	if !ok {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	type CreateTaskRequest struct {
		Title       string     `json:"title" binding:"required"`
		Description string     `json:"description"`
		Status      string     `json:"status"`
		Priority    string     `json:"priority"`
		DueDate     *time.Time `json:"due_date"`
		ProjectID   uint64     `json:"project_id" binding:"required"`
		AssigneeID  *uint64    `json:"assignee_id"`
	}

	var req CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	task, err := h.taskService.CreateTask(actor, services.CreateTaskInput{
		Title:       req.Title,
		Description: req.Description,
		Status:      models.TaskStatus(req.Status),
		Priority:    models.Priority(req.Priority),
		DueDate:     req.DueDate,
		ProjectID:   req.ProjectID,
		AssigneeID:  req.AssigneeID,
	})
	if err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToTaskDTO(*task))
}

// UpdateTask applies a partial update to a task.
func (h *TaskHandler) UpdateTask(c *gin.Context) {
	actor, ok := middleware.GetCurrentUser(c)
	if !ok {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	id, err := parseIDParam(c, "id")
	if err != nil {
		apierrors.BadRequest(c, "Invalid task ID")
		return
	}

	type UpdateTaskRequest struct {
		Title         *string    `json:"title"`
		Description   *string    `json:"description"`
		Status        *string    `json:"status"`
		Priority      *string    `json:"priority"`
		DueDate       *time.Time `json:"due_date"`
		AssigneeID    *uint64    `json:"assignee_id"`
		ClearAssignee bool       `json:"clear_assignee"`
		ClearDueDate  bool       `json:"clear_due_date"`
	}

	var req UpdateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	input := services.UpdateTaskInput{
		Title:         req.Title,
		Description:   req.Description,
		DueDate:       req.DueDate,
		AssigneeID:    req.AssigneeID,
		ClearAssignee: req.ClearAssignee,
		ClearDueDate:  req.ClearDueDate,
	}
	if req.Status != nil {
		status := models.TaskStatus(*req.Status)
		input.Status = &status
	}
	if req.Priority != nil {
		priority := models.Priority(*req.Priority)
		input.Priority = &priority
	}

	task, err := h.taskService.UpdateTask(actor, id, input)
	if err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskDTO(*task))
}

// DeleteTask removes a task along with its comments.
func (h *TaskHandler) DeleteTask(c *gin.Context) {
	actor, ok := middleware.GetCurrentUser(c)
	if !ok {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	id, err := parseIDParam(c, "id")
	if err != nil {
		apierrors.BadRequest(c, "Invalid task ID")
		return
	}

	if err := h.taskService.DeleteTask(actor, id); err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Task deleted successfully",
	})
}

// StatusCounts returns a project's per-status task counts.
func (h *TaskHandler) StatusCounts(c *gin.Context) {
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

	counts, err := h.taskService.StatusCounts(actor, projectID)
	if err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToStatusCountsDTO(counts))
}

// AddComment attaches a comment to a task.
func (h *TaskHandler) AddComment(c *gin.Context) {
	actor, ok := middleware.GetCurrentUser(c)
	if !ok {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	id, err := parseIDParam(c, "id")
	if err != nil {
		apierrors.BadRequest(c, "Invalid task ID")
		return
	}

	type AddCommentRequest struct {
		Content string `json:"content" binding:"required"`
	}

	var req AddCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	comment, err := h.commentService.AddComment(actor, id, req.Content)
	if err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToCommentDTO(*comment))
}

// ListComments lists a task's comments oldest-first.
func (h *TaskHandler) ListComments(c *gin.Context) {
	actor, ok := middleware.GetCurrentUser(c)
	if !ok {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	id, err := parseIDParam(c, "id")
	if err != nil {
		apierrors.BadRequest(c, "Invalid task ID")
		return
	}

	comments, err := h.commentService.ListComments(actor, id)
	if err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"comments": dto.ToCommentDTOs(comments),
	})
}

func respondTaskError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrTaskNotFound),
		errors.Is(err, services.ErrProjectNotFound):
		apierrors.NotFound(c, err.Error())
	case errors.Is(err, services.ErrTaskForbidden):
		apierrors.Forbidden(c, err.Error())
	case errors.Is(err, services.ErrTaskTitleRequired),
		errors.Is(err, services.ErrInvalidTaskStatus),
		errors.Is(err, services.ErrInvalidTaskPriority),
		errors.Is(err, services.ErrAssigneeNotMember),
		errors.Is(err, services.ErrAssigneeNotFound),
		errors.Is(err, services.ErrCommentContentRequired):
		apierrors.BadRequest(c, err.Error())
	default:
		apierrors.InternalError(c, "Internal server error")
	}
}
