package models

import (
	"time"

	id "dealflow/pkg/domain"
	dErrors "dealflow/pkg/domain-errors"
)

type StepStatus string

const (
	StepStatusPending   StepStatus = "pending"
	StepStatusActive    StepStatus = "active"
	StepStatusCompleted StepStatus = "completed"
	StepStatusSkipped   StepStatus = "skipped"
)

// CanTransitionTo encodes pending -> active -> completed|skipped. Completed and
// skipped are terminal.
func (s StepStatus) CanTransitionTo(next StepStatus) bool {
	switch s {
	case StepStatusPending:
		return next == StepStatusActive
	case StepStatusActive:
		return next == StepStatusCompleted || next == StepStatusSkipped
	default:
		return false
	}
}

// IsClosed reports whether the step is behind the transaction's position.
func (s StepStatus) IsClosed() bool {
	return s == StepStatusCompleted || s == StepStatusSkipped
}

// TransactionStep is one template step instantiated for a transaction.
type TransactionStep struct {
	ID            id.StepID        `json:"id"`
	TransactionID id.TransactionID `json:"transactionId"`
	StepOrder     int              `json:"stepOrder"`
	Slug          string           `json:"slug"`
	Name          string           `json:"name"`
	Status        StepStatus       `json:"status"`
	EnteredAt     *time.Time       `json:"enteredAt,omitempty"`
	CompletedAt   *time.Time       `json:"completedAt,omitempty"`
}

// CanActivate checks the pending -> active transition.
func (s *TransactionStep) CanActivate() error {
	if !s.Status.CanTransitionTo(StepStatusActive) {
		return dErrors.New(dErrors.CodeInvariantViolation, "step "+s.Slug+" cannot become active from "+string(s.Status))
	}
	return nil
}

// ApplyActivation marks the step active and stamps enteredAt.
func (s *TransactionStep) ApplyActivation(now time.Time) {
	s.Status = StepStatusActive
	s.EnteredAt = &now
}

// CanClose checks active -> completed|skipped.
func (s *TransactionStep) CanClose(to StepStatus) error {
	if !s.Status.CanTransitionTo(to) {
		return dErrors.New(dErrors.CodeInvariantViolation, "step "+s.Slug+" cannot move from "+string(s.Status)+" to "+string(to))
	}
	return nil
}

// ApplyClose moves the step to completed or skipped and stamps completedAt.
func (s *TransactionStep) ApplyClose(to StepStatus, now time.Time) {
	s.Status = to
	s.CompletedAt = &now
}

// NextStep returns the step following current in a step list ordered by StepOrder.
func NextStep(steps []*TransactionStep, current *TransactionStep) *TransactionStep {
	for _, s := range steps {
		if s.StepOrder == current.StepOrder+1 {
			return s
		}
	}
	return nil
}

// FindStep returns the step with the given ID.
func FindStep(steps []*TransactionStep, stepID id.StepID) *TransactionStep {
	for _, s := range steps {
		if s.ID == stepID {
			return s
		}
	}
	return nil
}

// CheckStepOrdering verifies the single-active-step invariant over an ordered
// step list: closed steps, then at most one active step, then pending steps.
func CheckStepOrdering(steps []*TransactionStep) error {
	active := 0
	phase := 0 // 0 closed, 1 after active, 2 pending
	for _, s := range steps {
		switch {
		case s.Status.IsClosed():
			if phase != 0 {
				return dErrors.New(dErrors.CodeInvariantViolation, "closed step "+s.Slug+" follows an open step")
			}
		case s.Status == StepStatusActive:
			active++
			if active > 1 || phase == 2 {
				return dErrors.New(dErrors.CodeInvariantViolation, "step "+s.Slug+" is an extra active step")
			}
			phase = 1
		case s.Status == StepStatusPending:
			phase = 2
		}
	}
	return nil
}
