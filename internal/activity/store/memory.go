// Package store persists activity entries and their outbox rows.
package store

import (
	"context"
	"slices"
	"sort"
	"sync"

	activitymodels "dealflow/internal/activity/models"
	"dealflow/internal/workflow/models"
	id "dealflow/pkg/domain"
)

// InMemory keeps entries and the outbox in process. Snapshot lets the
// in-memory unit of work roll back a failed mutation.
type InMemory struct {
	mu      sync.RWMutex
	entries []models.ActivityEntry
	outbox  []activitymodels.OutboxRecord
}

func NewInMemory() *InMemory {
	return &InMemory{}
}

func (s *InMemory) Snapshot() func() {
	s.mu.RLock()
	entries := slices.Clone(s.entries)
	outbox := slices.Clone(s.outbox)
	s.mu.RUnlock()
	return func() {
		s.mu.Lock()
		s.entries = entries
		s.outbox = outbox
		s.mu.Unlock()
	}
}

func (s *InMemory) Append(_ context.Context, entry *models.ActivityEntry) error {
	record, err := activitymodels.NewOutboxRecord(entry)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, *entry)
	s.outbox = append(s.outbox, *record)
	return nil
}

// ListByTransaction returns the newest entries first.
func (s *InMemory) ListByTransaction(_ context.Context, txID id.TransactionID, limit int) ([]*models.ActivityEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.ActivityEntry, 0)
	for i := range s.entries {
		if s.entries[i].TransactionID == txID {
			e := s.entries[i]
			out = append(out, &e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *InMemory) HasEntry(_ context.Context, txID id.TransactionID, entryType models.ActivityType, key, value string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, e := range s.entries {
		if e.TransactionID == txID && e.Type == entryType && e.Metadata[key] == value {
			return true, nil
		}
	}
	return false, nil
}

// ProcessBatch hands the oldest pending records to publish and drops them
// from the outbox when it succeeds.
func (s *InMemory) ProcessBatch(ctx context.Context, limit int, publish func(context.Context, []activitymodels.OutboxRecord) error) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := min(limit, len(s.outbox))
	if n == 0 {
		return 0, nil
	}
	batch := slices.Clone(s.outbox[:n])
	if err := publish(ctx, batch); err != nil {
		for i := range n {
			s.outbox[i].Attempts++
		}
		return 0, err
	}
	s.outbox = slices.Delete(s.outbox, 0, n)
	return n, nil
}

// Pending reports how many records wait to be relayed.
func (s *InMemory) Pending() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.outbox)
}
