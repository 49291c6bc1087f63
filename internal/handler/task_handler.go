package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"taskmanager/internal/analytics"
	"taskmanager/internal/middleware"
	"taskmanager/internal/model"
	"taskmanager/internal/ordering"
	"taskmanager/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// TaskService is the task use-case layer the handler drives
type TaskService interface {
	List(ctx context.Context, ownerID uuid.UUID, f service.TaskFilter) ([]model.Task, error)
	Get(ctx context.Context, ownerID, id uuid.UUID) (*model.Task, error)
	Create(ctx context.Context, ownerID uuid.UUID, in service.CreateTaskInput) (*model.Task, error)
	Update(ctx context.Context, ownerID, id uuid.UUID, patch service.TaskPatch) (*model.Task, error)
	Delete(ctx context.Context, ownerID, id uuid.UUID) error
	Reorder(ctx context.Context, ownerID uuid.UUID, placements []ordering.Placement) error
	Analytics(ctx context.Context, ownerID uuid.UUID, fill bool) (*analytics.Summary, error)
}

type TaskHandler struct {
	tasks TaskService
}

func NewTaskHandler(tasks TaskService) *TaskHandler {
	return &TaskHandler{tasks: tasks}
}

// UpdateTaskRequest is a partial update. A dueDate of null clears the due date.
type UpdateTaskRequest struct {
	Title       *string         `json:"title"`
	Description *string         `json:"description"`
	DueDate     json.RawMessage `json:"dueDate" swaggertype:"string"`
	Tags        *[]string       `json:"tags"`
	Priority    *model.Priority `json:"priority"`
	Completed   *bool           `json:"completed"`
	Order       *int            `json:"order"`
}

type ReorderRequest struct {
	TaskOrders []ordering.Placement `json:"taskOrders" binding:"required"`
}

type TaskResponse struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Completed   bool      `json:"completed"`
	DueDate     *string   `json:"dueDate"`
	Tags        []string  `json:"tags"`
	Priority    string    `json:"priority"`
	Order       int       `json:"order"`
	User        string    `json:"user"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

func toTaskResponse(t *model.Task) TaskResponse {
	resp := TaskResponse{
		ID:          t.ID.String(),
		Title:       t.Title,
		Description: t.Description,
		Completed:   t.Completed,
		Tags:        t.DisplayTags(),
		Priority:    string(t.Priority),
		Order:       t.Order,
		User:        t.OwnerID.String(),
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
	if t.DueDate != nil {
		due := t.DueDate.UTC().Format(time.RFC3339)
		resp.DueDate = &due
	}
	return resp
}

// List godoc
// @Summary      List tasks
// @Tags         Tasks
// @Produce      json
// @Security     BearerAuth
// @Param        status  query     string  false  "all, completed or pending"
// @Param        tag     query     string  false  "exact tag"
// @Param        sortBy  query     string  false  "order, createdAt, updatedAt, dueDate, priority or title"
// @Success      200     {array}   TaskResponse
// @Failure      400     {object}  ErrorResponse
// @Router       /api/tasks [get]
func (h *TaskHandler) List(c *gin.Context) {
	ownerID, ok := requireOwner(c)
	if !ok {
		return
	}

	tasks, err := h.tasks.List(c.Request.Context(), ownerID, service.TaskFilter{
		Status: model.ParseStatusFilter(c.Query("status")),
		Tag:    c.Query("tag"),
		SortBy: model.SortKey(c.Query("sortBy")),
	})
	if err != nil {
		writeError(c, err)
		return
	}

	resp := make([]TaskResponse, 0, len(tasks))
	for i := range tasks {
		resp = append(resp, toTaskResponse(&tasks[i]))
	}
	c.JSON(http.StatusOK, resp)
}

// Create godoc
// @Summary      Create a task at the end of the list
// @Tags         Tasks
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      service.CreateTaskInput  true  "Task"
// @Success      201   {object}  TaskResponse
// @Failure      400   {object}  ErrorResponse
// @Router       /api/tasks [post]
func (h *TaskHandler) Create(c *gin.Context) {
	ownerID, ok := requireOwner(c)
	if !ok {
		return
	}

	var req service.CreateTaskInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	task, err := h.tasks.Create(c.Request.Context(), ownerID, req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toTaskResponse(task))
}

// GetByID godoc
// @Summary      Get a task
// @Tags         Tasks
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Task ID"
// @Success      200  {object}  TaskResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /api/tasks/{id} [get]
func (h *TaskHandler) GetByID(c *gin.Context) {
	ownerID, ok := requireOwner(c)
	if !ok {
		return
	}
	taskID, ok := taskIDParam(c)
	if !ok {
		return
	}

	task, err := h.tasks.Get(c.Request.Context(), ownerID, taskID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toTaskResponse(task))
}

// Update godoc
// @Summary      Update task fields
// @Tags         Tasks
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string             true  "Task ID"
// @Param        body  body      UpdateTaskRequest  true  "Fields to change"
// @Success      200   {object}  TaskResponse
// @Failure      400   {object}  ErrorResponse
// @Failure      404   {object}  ErrorResponse
// @Router       /api/tasks/{id} [patch]
func (h *TaskHandler) Update(c *gin.Context) {
	ownerID, ok := requireOwner(c)
	if !ok {
		return
	}
	taskID, ok := taskIDParam(c)
	if !ok {
		return
	}

	var req UpdateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	patch := service.TaskPatch{
		Title:       req.Title,
		Description: req.Description,
		Tags:        req.Tags,
		Priority:    req.Priority,
		Completed:   req.Completed,
		Order:       req.Order,
	}
	switch {
	case len(req.DueDate) == 0:
	case bytes.Equal(req.DueDate, []byte("null")):
		patch.ClearDueDate = true
	default:
		var due time.Time
		if err := json.Unmarshal(req.DueDate, &due); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "dueDate must be an RFC 3339 timestamp"})
			return
		}
		patch.DueDate = &due
	}

	task, err := h.tasks.Update(c.Request.Context(), ownerID, taskID, patch)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toTaskResponse(task))
}

// Delete godoc
// @Summary      Delete a task
// @Tags         Tasks
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Task ID"
// @Success      200  {object}  MessageResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /api/tasks/{id} [delete]
func (h *TaskHandler) Delete(c *gin.Context) {
	ownerID, ok := requireOwner(c)
	if !ok {
		return
	}
	taskID, ok := taskIDParam(c)
	if !ok {
		return
	}

	if err := h.tasks.Delete(c.Request.Context(), ownerID, taskID); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, MessageResponse{Message: "Task deleted successfully"})
}

// Reorder godoc
// @Summary      Set the order of several tasks
// @Description  Ids that do not belong to the caller are skipped silently.
// @Tags         Tasks
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      ReorderRequest  true  "New orders"
// @Success      200   {object}  MessageResponse
// @Failure      400   {object}  ErrorResponse
// @Router       /api/tasks/reorder [patch]
func (h *TaskHandler) Reorder(c *gin.Context) {
	ownerID, ok := requireOwner(c)
	if !ok {
		return
	}

	var req ReorderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "taskOrders must be a list of {id, order}"})
		return
	}

	if err := h.tasks.Reorder(c.Request.Context(), ownerID, req.TaskOrders); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, MessageResponse{Message: "Tasks reordered successfully"})
}

// Analytics godoc
// @Summary      Task statistics
// @Tags         Tasks
// @Produce      json
// @Security     BearerAuth
// @Param        fill  query     bool  false  "return all seven days of the weekly histogram"
// @Success      200   {object}  analytics.Summary
// @Router       /api/tasks/analytics [get]
func (h *TaskHandler) Analytics(c *gin.Context) {
	ownerID, ok := requireOwner(c)
	if !ok {
		return
	}

	fill := false
	if raw := c.Query("fill"); raw != "" {
		var err error
		if fill, err = strconv.ParseBool(raw); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "fill must be true or false"})
			return
		}
	}

	summary, err := h.tasks.Analytics(c.Request.Context(), ownerID, fill)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func requireOwner(c *gin.Context) (uuid.UUID, bool) {
	ownerID, ok := middleware.OwnerID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
	}
	return ownerID, ok
}

func taskIDParam(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid task ID format"})
		return uuid.Nil, false
	}
	return id, true
}

// writeError maps service errors to responses. Store failures are logged and
// reported without detail.
func writeError(c *gin.Context, err error) {
	var verr *service.ValidationError
	var fault *service.StoreFault
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{"error": verr.Message})
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Task not found"})
	case errors.As(err, &fault):
		log.WithError(fault.Err).WithField("op", fault.Op).Error("store failure")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	default:
		log.WithError(err).Error("unexpected error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
