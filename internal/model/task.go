package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Priority is the urgency level of a task
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Valid reports whether p is one of the known priorities
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

type Task struct {
	ID          uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey"`
	OwnerID     uuid.UUID `gorm:"type:uuid;not null;index:idx_tasks_owner_order,priority:1;index:idx_tasks_owner_completed,priority:1"`
	Title       string    `gorm:"size:200;not null"`
	Description string    `gorm:"size:1000"`
	Completed   bool      `gorm:"not null;default:false;index:idx_tasks_owner_completed,priority:2"`
	DueDate     *time.Time
	Tags        pq.StringArray `gorm:"type:text[];not null;default:'{}'"`
	Priority    Priority       `gorm:"type:varchar(10);not null;default:'medium'"`
	Order       int            `gorm:"column:sort_order;not null;default:0;index:idx_tasks_owner_order,priority:2"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// DisplayTags returns the task tags with duplicates removed, first occurrence wins.
func (t *Task) DisplayTags() []string {
	return UniqueTags(t.Tags)
}

// HasTag reports whether the task carries tag exactly.
func (t *Task) HasTag(tag string) bool {
	for _, tg := range t.Tags {
		if tg == tag {
			return true
		}
	}
	return false
}

// NormalizeTags trims every tag and drops the empty ones. Duplicates are kept.
func NormalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		out = append(out, tag)
	}
	return out
}

// UniqueTags drops repeated tags while keeping the original order.
func UniqueTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out
}

// StatusFilter narrows a task listing by completion state
type StatusFilter string

const (
	StatusAll       StatusFilter = "all"
	StatusCompleted StatusFilter = "completed"
	StatusPending   StatusFilter = "pending"
)

// ParseStatusFilter maps a query value to a filter; anything unknown means all.
func ParseStatusFilter(s string) StatusFilter {
	switch StatusFilter(strings.ToLower(strings.TrimSpace(s))) {
	case StatusCompleted:
		return StatusCompleted
	case StatusPending:
		return StatusPending
	}
	return StatusAll
}

// SortKey selects the primary ordering of a task listing
type SortKey string

const (
	SortByOrder     SortKey = "order"
	SortByCreatedAt SortKey = "createdAt"
	SortByUpdatedAt SortKey = "updatedAt"
	SortByDueDate   SortKey = "dueDate"
	SortByPriority  SortKey = "priority"
	SortByTitle     SortKey = "title"
)

// Valid reports whether k is an allowed sort key
func (k SortKey) Valid() bool {
	switch k {
	case SortByOrder, SortByCreatedAt, SortByUpdatedAt, SortByDueDate, SortByPriority, SortByTitle:
		return true
	}
	return false
}

// TaskQuery is the owner-scoped listing query. Results are always tie-broken
// by creation time, newest first.
type TaskQuery struct {
	Status StatusFilter
	Tag    string
	SortBy SortKey
}
