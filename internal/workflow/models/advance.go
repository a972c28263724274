package models

import (
	id "dealflow/pkg/domain"
)

// AdvanceCheck is the advisory gate preview for a transaction's active step.
// Only BlockingReasons decide Allowed unless required conditions are enforced.
type AdvanceCheck struct {
	Allowed         bool           `json:"allowed"`
	CurrentStepID   *id.StepID     `json:"currentStepId"`
	BlockingReasons []ConditionRef `json:"blockingReasons"`
	RequiredOpen    []ConditionRef `json:"requiredOpen"`
	RecommendedOpen []ConditionRef `json:"recommendedOpen"`
}

// EvaluateGate partitions open conditions in scope by level. When enforceRequired
// is set, open required conditions gate advancement alongside blocking ones.
func EvaluateGate(tx *Transaction, open []*Condition, enforceRequired bool) *AdvanceCheck {
	check := &AdvanceCheck{
		CurrentStepID:   tx.CurrentStepID,
		BlockingReasons: []ConditionRef{},
		RequiredOpen:    []ConditionRef{},
		RecommendedOpen: []ConditionRef{},
	}
	if tx.IsComplete() || tx.CurrentStepID == nil {
		return check
	}
	for _, c := range open {
		if !c.IsOpen() {
			continue
		}
		switch c.Level {
		case LevelBlocking:
			check.BlockingReasons = append(check.BlockingReasons, c.Ref())
		case LevelRequired:
			check.RequiredOpen = append(check.RequiredOpen, c.Ref())
		case LevelRecommended:
			check.RecommendedOpen = append(check.RecommendedOpen, c.Ref())
		}
	}
	check.Allowed = len(check.BlockingReasons) == 0
	if enforceRequired && len(check.RequiredOpen) > 0 {
		check.Allowed = false
	}
	return check
}

// AdvanceResult reports the outcome of a committed advance or skip.
type AdvanceResult struct {
	Transaction       *Transaction     `json:"transaction"`
	ClosedStep        *TransactionStep `json:"closedStep"`
	ActivatedStep     *TransactionStep `json:"activatedStep,omitempty"`
	Terminal          bool             `json:"terminal"`
	CreatedConditions []*Condition     `json:"createdConditions"`
}

// ResolveOutcome is one item of a batch resolution.
type ResolveOutcome struct {
	ConditionID id.ConditionID `json:"conditionId"`
	Condition   *Condition     `json:"condition,omitempty"`
	Error       string         `json:"error,omitempty"`
	Message     string         `json:"message,omitempty"`
}

// Overview is the aggregated read model behind the transaction detail screen.
type Overview struct {
	Transaction   *Transaction       `json:"transaction"`
	Profile       *PropertyProfile   `json:"profile"`
	Steps         []*TransactionStep `json:"steps"`
	OpenCounts    map[string]int     `json:"openConditionCounts"`
	DocumentCount int                `json:"documentCount"`
}
