package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"taskmanager/internal/analytics"
	"taskmanager/internal/model"
	"taskmanager/internal/ordering"
)

type TaskRepository struct {
	db *gorm.DB
}

var (
	_ ordering.Store  = (*TaskRepository)(nil)
	_ analytics.Store = (*TaskRepository)(nil)
)

func NewTaskRepository(db *gorm.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

// sortColumns maps listing sort keys to table columns
var sortColumns = map[model.SortKey]string{
	model.SortByOrder:     "sort_order",
	model.SortByCreatedAt: "created_at",
	model.SortByUpdatedAt: "updated_at",
	model.SortByDueDate:   "due_date",
	model.SortByPriority:  "priority",
	model.SortByTitle:     "title",
}

// Create adds a new task to the database
func (r *TaskRepository) Create(ctx context.Context, task *model.Task) error {
	return r.db.WithContext(ctx).Create(task).Error
}

// GetByID retrieves a task of the given owner
func (r *TaskRepository) GetByID(ctx context.Context, ownerID, id uuid.UUID) (*model.Task, error) {
	var task model.Task
	result := r.db.WithContext(ctx).First(&task, "id = ? AND owner_id = ?", id, ownerID)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, result.Error
	}
	return &task, nil
}

// List retrieves the owner's tasks matching q
func (r *TaskRepository) List(ctx context.Context, ownerID uuid.UUID, q model.TaskQuery) ([]model.Task, error) {
	tx := r.db.WithContext(ctx).Where("owner_id = ?", ownerID)

	switch q.Status {
	case model.StatusCompleted:
		tx = tx.Where("completed = ?", true)
	case model.StatusPending:
		tx = tx.Where("completed = ?", false)
	}

	if q.Tag != "" {
		tx = tx.Where("? = ANY(tags)", q.Tag)
	}

	column, ok := sortColumns[q.SortBy]
	if !ok {
		column = sortColumns[model.SortByOrder]
	}

	// Missing due dates sort first, matching the document store
	direction := " ASC"
	if q.SortBy == model.SortByDueDate {
		direction = " ASC NULLS FIRST"
	}

	var tasks []model.Task
	result := tx.Order(column + direction).Order("created_at DESC").Find(&tasks)
	if result.Error != nil {
		return nil, result.Error
	}
	return tasks, nil
}

// Update writes the client-editable fields of an owner's task
func (r *TaskRepository) Update(ctx context.Context, task *model.Task) error {
	now := time.Now().UTC()
	result := r.db.WithContext(ctx).Model(&model.Task{}).
		Where("id = ? AND owner_id = ?", task.ID, task.OwnerID).
		Updates(map[string]interface{}{
			"title":       task.Title,
			"description": task.Description,
			"completed":   task.Completed,
			"due_date":    task.DueDate,
			"tags":        task.Tags,
			"priority":    task.Priority,
			"sort_order":  task.Order,
			"updated_at":  now,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrTaskNotFound
	}
	task.UpdatedAt = now
	return nil
}

// Delete removes an owner's task by its ID
func (r *TaskRepository) Delete(ctx context.Context, ownerID, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&model.Task{}, "id = ? AND owner_id = ?", id, ownerID)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrTaskNotFound
	}
	return nil
}

// MaxOrder returns the highest order key among the owner's tasks
func (r *TaskRepository) MaxOrder(ctx context.Context, ownerID uuid.UUID) (int, bool, error) {
	var maxOrder struct {
		Max sql.NullInt64
	}
	err := r.db.WithContext(ctx).Model(&model.Task{}).
		Select("MAX(sort_order) AS max").
		Where("owner_id = ?", ownerID).
		Scan(&maxOrder).Error
	if err != nil {
		return 0, false, err
	}
	if !maxOrder.Max.Valid {
		return 0, false, nil
	}
	return int(maxOrder.Max.Int64), true, nil
}

// SetOrders rewrites order keys in a single transaction and bumps
// updated_at on every moved task. Every update is filtered by owner, so
// foreign task ids match no row.
func (r *TaskRepository) SetOrders(ctx context.Context, ownerID uuid.UUID, placements []ordering.Placement) (int64, error) {
	var matched int64
	now := time.Now().UTC()
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, p := range placements {
			result := tx.Model(&model.Task{}).
				Where("id = ? AND owner_id = ?", p.TaskID, ownerID).
				Updates(map[string]interface{}{
					"sort_order": p.Order,
					"updated_at": now,
				})
			if result.Error != nil {
				return result.Error
			}
			matched += result.RowsAffected
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return matched, nil
}

// CountTasks counts the owner's tasks, optionally only those with the given completion state
func (r *TaskRepository) CountTasks(ctx context.Context, ownerID uuid.UUID, completed *bool) (int64, error) {
	tx := r.db.WithContext(ctx).Model(&model.Task{}).Where("owner_id = ?", ownerID)
	if completed != nil {
		tx = tx.Where("completed = ?", *completed)
	}

	var count int64
	if err := tx.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// CountCreatedPerDay groups the owner's recent tasks by UTC creation date
func (r *TaskRepository) CountCreatedPerDay(ctx context.Context, ownerID uuid.UUID, since time.Time) ([]analytics.DayCount, error) {
	var days []analytics.DayCount
	err := r.db.WithContext(ctx).Model(&model.Task{}).
		Select("to_char(created_at AT TIME ZONE 'UTC', 'YYYY-MM-DD') AS date, COUNT(*) AS count").
		Where("owner_id = ? AND created_at >= ?", ownerID, since.UTC()).
		Group("date").
		Order("date").
		Scan(&days).Error
	if err != nil {
		return nil, err
	}
	return days, nil
}

// ListTagSets returns the tags of every owner task in listing order
func (r *TaskRepository) ListTagSets(ctx context.Context, ownerID uuid.UUID) ([][]string, error) {
	var tasks []model.Task
	err := r.db.WithContext(ctx).
		Select("tags").
		Where("owner_id = ?", ownerID).
		Order("sort_order ASC").
		Order("created_at DESC").
		Find(&tasks).Error
	if err != nil {
		return nil, err
	}

	sets := make([][]string, len(tasks))
	for i, task := range tasks {
		sets[i] = task.Tags
	}
	return sets, nil
}
