package service

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"taskmanager/internal/analytics"
	"taskmanager/internal/model"
	"taskmanager/internal/ordering"
	"taskmanager/internal/repository"
)

// TaskStore is the owner-scoped task persistence. Lookups, updates and
// deletes of a task that is missing or owned by someone else return
// repository.ErrTaskNotFound.
type TaskStore interface {
	List(ctx context.Context, ownerID uuid.UUID, q model.TaskQuery) ([]model.Task, error)
	GetByID(ctx context.Context, ownerID, id uuid.UUID) (*model.Task, error)
	Create(ctx context.Context, task *model.Task) error
	Update(ctx context.Context, task *model.Task) error
	Delete(ctx context.Context, ownerID, id uuid.UUID) error
}

// SummaryCache holds recently computed analytics per owner
type SummaryCache interface {
	Load(ctx context.Context, ownerID uuid.UUID) (*analytics.Summary, bool)
	Store(ctx context.Context, ownerID uuid.UUID, summary *analytics.Summary)
	Evict(ctx context.Context, ownerID uuid.UUID)
}

// CreateTaskInput carries the fields a client may set on a new task
type CreateTaskInput struct {
	Title       string         `json:"title" validate:"required,max=200"`
	Description string         `json:"description" validate:"max=1000"`
	DueDate     *time.Time     `json:"dueDate"`
	Tags        []string       `json:"tags" validate:"dive,max=50"`
	Priority    model.Priority `json:"priority" validate:"omitempty,oneof=low medium high"`
}

// TaskPatch lists the fields a client may change on an existing task. Nil
// fields are left untouched; ClearDueDate removes the due date.
type TaskPatch struct {
	Title        *string         `json:"title" validate:"omitempty,max=200"`
	Description  *string         `json:"description" validate:"omitempty,max=1000"`
	DueDate      *time.Time      `json:"dueDate"`
	ClearDueDate bool            `json:"-"`
	Tags         *[]string       `json:"tags"`
	Priority     *model.Priority `json:"priority" validate:"omitempty,oneof=low medium high"`
	Completed    *bool           `json:"completed"`
	Order        *int            `json:"order"`
}

// TaskFilter selects and orders a task listing
type TaskFilter struct {
	Status model.StatusFilter
	Tag    string
	SortBy model.SortKey
}

type TaskService struct {
	tasks    TaskStore
	orders   *ordering.Service
	stats    *analytics.Aggregator
	cache    SummaryCache
	validate *validator.Validate
}

func NewTaskService(tasks TaskStore, orders *ordering.Service, stats *analytics.Aggregator, cache SummaryCache) *TaskService {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})

	return &TaskService{
		tasks:    tasks,
		orders:   orders,
		stats:    stats,
		cache:    cache,
		validate: v,
	}
}

// List returns the owner's tasks. Without a sort key tasks come in manual order.
func (s *TaskService) List(ctx context.Context, ownerID uuid.UUID, f TaskFilter) ([]model.Task, error) {
	if f.SortBy == "" {
		f.SortBy = model.SortByOrder
	}
	if !f.SortBy.Valid() {
		return nil, &ValidationError{
			Field:   "sortBy",
			Message: "sortBy must be one of order, createdAt, updatedAt, dueDate, priority, title",
		}
	}
	if f.Status == "" {
		f.Status = model.StatusAll
	}

	tasks, err := s.tasks.List(ctx, ownerID, model.TaskQuery{
		Status: f.Status,
		Tag:    strings.TrimSpace(f.Tag),
		SortBy: f.SortBy,
	})
	if err != nil {
		return nil, fault("list tasks", err)
	}
	return tasks, nil
}

func (s *TaskService) Get(ctx context.Context, ownerID, id uuid.UUID) (*model.Task, error) {
	task, err := s.tasks.GetByID(ctx, ownerID, id)
	if err != nil {
		return nil, storeError("get task", err)
	}
	return task, nil
}

// Create validates in and appends a new task after the owner's last one
func (s *TaskService) Create(ctx context.Context, ownerID uuid.UUID, in CreateTaskInput) (*model.Task, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	in.Tags = model.NormalizeTags(in.Tags)
	if err := s.check(in); err != nil {
		return nil, err
	}
	if in.Priority == "" {
		in.Priority = model.PriorityMedium
	}

	order, err := s.orders.NextOrder(ctx, ownerID)
	if err != nil {
		return nil, fault("next order", err)
	}

	task := &model.Task{
		OwnerID:     ownerID,
		Title:       in.Title,
		Description: in.Description,
		DueDate:     in.DueDate,
		Tags:        in.Tags,
		Priority:    in.Priority,
		Order:       order,
	}
	if err := s.tasks.Create(ctx, task); err != nil {
		return nil, fault("create task", err)
	}

	s.evict(ctx, ownerID)
	return task, nil
}

// Update applies patch to one of the owner's tasks
func (s *TaskService) Update(ctx context.Context, ownerID, id uuid.UUID, patch TaskPatch) (*model.Task, error) {
	if err := s.normalizePatch(&patch); err != nil {
		return nil, err
	}

	task, err := s.tasks.GetByID(ctx, ownerID, id)
	if err != nil {
		return nil, storeError("get task", err)
	}

	applyPatch(task, patch)

	if err := s.tasks.Update(ctx, task); err != nil {
		return nil, storeError("update task", err)
	}

	s.evict(ctx, ownerID)
	return task, nil
}

func (s *TaskService) Delete(ctx context.Context, ownerID, id uuid.UUID) error {
	if err := s.tasks.Delete(ctx, ownerID, id); err != nil {
		return storeError("delete task", err)
	}
	s.evict(ctx, ownerID)
	return nil
}

// Reorder rewrites the order keys named in placements. Tasks of other owners
// are left alone without an error.
func (s *TaskService) Reorder(ctx context.Context, ownerID uuid.UUID, placements []ordering.Placement) error {
	if err := s.orders.ApplyReorder(ctx, ownerID, placements); err != nil {
		return fault("reorder tasks", err)
	}
	s.evict(ctx, ownerID)
	return nil
}

// Analytics returns the owner's statistics. With fill set the weekly
// histogram has an entry for each of the seven days.
func (s *TaskService) Analytics(ctx context.Context, ownerID uuid.UUID, fill bool) (*analytics.Summary, error) {
	summary, ok := s.loadCached(ctx, ownerID)
	if !ok {
		var err error
		summary, err = s.stats.Summarize(ctx, ownerID)
		if err != nil {
			return nil, fault("summarize tasks", err)
		}
		if s.cache != nil {
			s.cache.Store(ctx, ownerID, summary)
		}
	}

	if fill {
		filled := *summary
		filled.WeeklyTasks = s.stats.FillWeek(summary.WeeklyTasks)
		return &filled, nil
	}
	return summary, nil
}

func (s *TaskService) loadCached(ctx context.Context, ownerID uuid.UUID) (*analytics.Summary, bool) {
	if s.cache == nil {
		return nil, false
	}
	return s.cache.Load(ctx, ownerID)
}

func (s *TaskService) evict(ctx context.Context, ownerID uuid.UUID) {
	if s.cache != nil {
		s.cache.Evict(ctx, ownerID)
	}
}

func (s *TaskService) normalizePatch(p *TaskPatch) error {
	if p.Title != nil {
		title := strings.TrimSpace(*p.Title)
		if title == "" {
			return &ValidationError{Field: "title", Message: "title is required"}
		}
		p.Title = &title
	}
	if p.Description != nil {
		description := strings.TrimSpace(*p.Description)
		p.Description = &description
	}
	if p.Tags != nil {
		tags := model.NormalizeTags(*p.Tags)
		if err := s.validate.Var(tags, "dive,max=50"); err != nil {
			return &ValidationError{Field: "tags", Message: "tags must be at most 50 characters"}
		}
		p.Tags = &tags
	}
	return s.check(*p)
}

func applyPatch(task *model.Task, p TaskPatch) {
	if p.Title != nil {
		task.Title = *p.Title
	}
	if p.Description != nil {
		task.Description = *p.Description
	}
	if p.ClearDueDate {
		task.DueDate = nil
	} else if p.DueDate != nil {
		task.DueDate = p.DueDate
	}
	if p.Tags != nil {
		task.Tags = *p.Tags
	}
	if p.Priority != nil {
		task.Priority = *p.Priority
	}
	if p.Completed != nil {
		task.Completed = *p.Completed
	}
	if p.Order != nil {
		task.Order = *p.Order
	}
}

// check runs struct validation and turns the first failure into a ValidationError
func (s *TaskService) check(v interface{}) error {
	err := s.validate.Struct(v)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return &ValidationError{Message: err.Error()}
	}

	fe := fieldErrs[0]
	field := fe.Field()
	var msg string
	switch fe.Tag() {
	case "required":
		msg = fmt.Sprintf("%s is required", field)
	case "max":
		msg = fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	case "oneof":
		msg = fmt.Sprintf("%s must be one of %s", field, strings.ReplaceAll(fe.Param(), " ", ", "))
	default:
		msg = fmt.Sprintf("%s is invalid", field)
	}
	return &ValidationError{Field: field, Message: msg}
}

// storeError maps a missing task to ErrNotFound and anything else to a StoreFault
func storeError(op string, err error) error {
	if errors.Is(err, repository.ErrTaskNotFound) {
		return ErrNotFound
	}
	return fault(op, err)
}
