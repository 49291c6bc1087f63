// Package ordering maintains the manual sort position of an owner's tasks.
//
// Every task carries an integer order key. New tasks are appended after the
// owner's current maximum, reorders rewrite keys in one batch, and deletions
// leave gaps behind. Nothing here ever renumbers the remaining tasks.
package ordering

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// Placement assigns a new order key to a single task
type Placement struct {
	TaskID uuid.UUID `json:"id"`
	Order  int       `json:"order"`
}

// Store is the persistence the ordering service relies on.
//
// MaxOrder reports found=false when the owner has no tasks at all.
// SetOrders must apply every placement conditionally on ownerID so that ids
// belonging to other owners match nothing, and must use the backend's batch
// primitive when it has one. It returns how many tasks were matched.
type Store interface {
	MaxOrder(ctx context.Context, ownerID uuid.UUID) (max int, found bool, err error)
	SetOrders(ctx context.Context, ownerID uuid.UUID, placements []Placement) (int64, error)
}

type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

// NextOrder returns the key a newly created task of ownerID should get:
// one past the owner's maximum, or 0 when the owner has no tasks.
func (s *Service) NextOrder(ctx context.Context, ownerID uuid.UUID) (int, error) {
	max, found, err := s.store.MaxOrder(ctx, ownerID)
	if err != nil {
		return 0, fmt.Errorf("max order: %w", err)
	}
	if !found {
		return 0, nil
	}
	return max + 1, nil
}

// ApplyReorder rewrites the order keys of ownerID's tasks. Placements naming
// tasks of another owner are skipped by the store. Only the aggregate outcome
// is reported; there is no per-placement status.
func (s *Service) ApplyReorder(ctx context.Context, ownerID uuid.UUID, placements []Placement) error {
	batch := Collapse(placements)
	if len(batch) == 0 {
		return nil
	}

	matched, err := s.store.SetOrders(ctx, ownerID, batch)
	if err != nil {
		return fmt.Errorf("set orders: %w", err)
	}

	log.WithFields(log.Fields{
		"owner":     ownerID.String(),
		"requested": len(batch),
		"matched":   matched,
	}).Debug("reorder applied")
	return nil
}

// Collapse drops placements with a nil task id and merges repeated ids.
// A repeated id keeps the position of its first occurrence and the order of
// its last one, the same result sequential application would produce.
func Collapse(placements []Placement) []Placement {
	out := make([]Placement, 0, len(placements))
	index := make(map[uuid.UUID]int, len(placements))
	for _, p := range placements {
		if p.TaskID == uuid.Nil {
			continue
		}
		if i, ok := index[p.TaskID]; ok {
			out[i].Order = p.Order
			continue
		}
		index[p.TaskID] = len(out)
		out = append(out, p)
	}
	return out
}
