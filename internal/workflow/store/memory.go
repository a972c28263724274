// Package store holds the workflow persistence adapters: an in-memory store for
// tests and local runs, and the Postgres store used in production.
package store

import (
	"context"
	"maps"
	"sort"
	"sync"
	"time"

	"dealflow/internal/workflow/models"
	id "dealflow/pkg/domain"
	"dealflow/pkg/platform/sentinel"
)

type conditionKey struct {
	txID   id.TransactionID
	stepID id.StepID
	key    string
}

type memoryState struct {
	transactions map[id.TransactionID]models.Transaction
	profiles     map[id.TransactionID]models.PropertyProfile
	steps        map[id.StepID]models.TransactionStep
	conditions   map[id.ConditionID]models.Condition
	conditionIdx map[conditionKey]id.ConditionID
	documents    map[id.DocumentID]models.TransactionDocument
}

func (st memoryState) clone() memoryState {
	return memoryState{
		transactions: maps.Clone(st.transactions),
		profiles:     maps.Clone(st.profiles),
		steps:        maps.Clone(st.steps),
		conditions:   maps.Clone(st.conditions),
		conditionIdx: maps.Clone(st.conditionIdx),
		documents:    maps.Clone(st.documents),
	}
}

// InMemoryStore implements the workflow and document stores. Values are copied
// in and out so callers never alias stored state; models replace pointer fields
// rather than mutating through them, so a struct copy is enough.
type InMemoryStore struct {
	mu    sync.RWMutex
	state memoryState
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{state: memoryState{
		transactions: make(map[id.TransactionID]models.Transaction),
		profiles:     make(map[id.TransactionID]models.PropertyProfile),
		steps:        make(map[id.StepID]models.TransactionStep),
		conditions:   make(map[id.ConditionID]models.Condition),
		conditionIdx: make(map[conditionKey]id.ConditionID),
		documents:    make(map[id.DocumentID]models.TransactionDocument),
	}}
}

// Snapshot captures the current state; calling restore rolls back to it.
func (s *InMemoryStore) Snapshot() func() {
	s.mu.RLock()
	saved := s.state.clone()
	s.mu.RUnlock()
	return func() {
		s.mu.Lock()
		s.state = saved
		s.mu.Unlock()
	}
}

func (s *InMemoryStore) CreateTransaction(_ context.Context, tx *models.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.state.transactions[tx.ID]; exists {
		return sentinel.ErrConflict
	}
	s.state.transactions[tx.ID] = *tx
	return nil
}

func (s *InMemoryStore) FindTransaction(_ context.Context, txID id.TransactionID) (*models.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.state.transactions[txID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &t, nil
}

// LockTransaction is a plain read: the in-memory unit of work already holds a global lock.
func (s *InMemoryStore) LockTransaction(ctx context.Context, txID id.TransactionID) (*models.Transaction, error) {
	return s.FindTransaction(ctx, txID)
}

func (s *InMemoryStore) UpdateTransaction(_ context.Context, tx *models.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.state.transactions[tx.ID]; !ok {
		return sentinel.ErrNotFound
	}
	s.state.transactions[tx.ID] = *tx
	return nil
}

func (s *InMemoryStore) FindProfile(_ context.Context, txID id.TransactionID) (*models.PropertyProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.state.profiles[txID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &p, nil
}

func (s *InMemoryStore) SaveProfile(_ context.Context, profile *models.PropertyProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.profiles[profile.TransactionID] = *profile
	return nil
}

func (s *InMemoryStore) CreateSteps(_ context.Context, steps []*models.TransactionStep) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, st := range steps {
		if _, exists := s.state.steps[st.ID]; exists {
			return sentinel.ErrConflict
		}
	}
	for _, st := range steps {
		s.state.steps[st.ID] = *st
	}
	return nil
}

func (s *InMemoryStore) ListSteps(_ context.Context, txID id.TransactionID) ([]*models.TransactionStep, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.TransactionStep, 0)
	for _, st := range s.state.steps {
		if st.TransactionID == txID {
			out = append(out, &st)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StepOrder < out[j].StepOrder })
	return out, nil
}

func (s *InMemoryStore) UpdateStep(_ context.Context, step *models.TransactionStep) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.state.steps[step.ID]; !ok {
		return sentinel.ErrNotFound
	}
	s.state.steps[step.ID] = *step
	return nil
}

func (s *InMemoryStore) InsertConditionIfAbsent(_ context.Context, c *models.Condition) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := conditionKey{txID: c.TransactionID, stepID: c.StepID, key: c.TemplateKey}
	if _, exists := s.state.conditionIdx[key]; exists {
		return false, nil
	}
	s.state.conditions[c.ID] = *c
	s.state.conditionIdx[key] = c.ID
	return true, nil
}

func (s *InMemoryStore) FindCondition(_ context.Context, conditionID id.ConditionID) (*models.Condition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.state.conditions[conditionID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &c, nil
}

func (s *InMemoryStore) ListConditions(_ context.Context, txID id.TransactionID) ([]*models.Condition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Condition, 0)
	for _, c := range s.state.conditions {
		if c.TransactionID == txID {
			out = append(out, &c)
		}
	}
	sortConditions(out)
	return out, nil
}

func (s *InMemoryStore) UpdateCondition(_ context.Context, c *models.Condition) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.state.conditions[c.ID]; !ok {
		return sentinel.ErrNotFound
	}
	s.state.conditions[c.ID] = *c
	return nil
}

// ListOverdueConditions pages through open overdue conditions in
// (due date, id) order, starting strictly after the cursor when one is given.
func (s *InMemoryStore) ListOverdueConditions(_ context.Context, now time.Time, after *models.OverdueCursor, limit int) ([]*models.Condition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Condition, 0)
	for _, c := range s.state.conditions {
		if !c.IsOverdue(now) {
			continue
		}
		if after != nil && !after.Before(c.Cursor()) {
			continue
		}
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Cursor().Before(out[j].Cursor()) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// sortConditions orders by creation time then template key, matching the Postgres store.
func sortConditions(cs []*models.Condition) {
	sort.Slice(cs, func(i, j int) bool {
		if !cs[i].CreatedAt.Equal(cs[j].CreatedAt) {
			return cs[i].CreatedAt.Before(cs[j].CreatedAt)
		}
		return cs[i].TemplateKey < cs[j].TemplateKey
	})
}

func (s *InMemoryStore) CreateDocument(_ context.Context, doc *models.TransactionDocument) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := doc.ChainKey()
	for _, existing := range s.state.documents {
		if key.Matches(&existing) && existing.Version == doc.Version {
			return sentinel.ErrConflict
		}
	}
	s.state.documents[doc.ID] = *doc
	return nil
}

func (s *InMemoryStore) FindDocument(_ context.Context, docID id.DocumentID) (*models.TransactionDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.state.documents[docID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &d, nil
}

func (s *InMemoryStore) UpdateDocument(_ context.Context, doc *models.TransactionDocument) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.state.documents[doc.ID]; !ok {
		return sentinel.ErrNotFound
	}
	s.state.documents[doc.ID] = *doc
	return nil
}

func (s *InMemoryStore) LatestInChain(ctx context.Context, key models.ChainKey) (*models.TransactionDocument, error) {
	chain, err := s.ListChain(ctx, key)
	if err != nil {
		return nil, err
	}
	if len(chain) == 0 {
		return nil, sentinel.ErrNotFound
	}
	return chain[len(chain)-1], nil
}

func (s *InMemoryStore) ListChain(_ context.Context, key models.ChainKey) ([]*models.TransactionDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.TransactionDocument, 0)
	for _, d := range s.state.documents {
		if key.Matches(&d) {
			out = append(out, &d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Version < out[j].Version })
	return out, nil
}

func (s *InMemoryStore) ListDocuments(_ context.Context, txID id.TransactionID) ([]*models.TransactionDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.TransactionDocument, 0)
	for _, d := range s.state.documents {
		if d.TransactionID == txID {
			out = append(out, &d)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Category != out[j].Category {
			return out[i].Category < out[j].Category
		}
		return out[i].Version < out[j].Version
	})
	return out, nil
}
