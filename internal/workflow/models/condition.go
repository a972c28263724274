package models

import (
	"bytes"
	"strings"
	"time"

	id "dealflow/pkg/domain"
	dErrors "dealflow/pkg/domain-errors"
)

// ConditionLevel decides whether an open condition gates advancement.
type ConditionLevel string

const (
	LevelBlocking    ConditionLevel = "blocking"
	LevelRequired    ConditionLevel = "required"
	LevelRecommended ConditionLevel = "recommended"
)

func (l ConditionLevel) IsValid() bool {
	return l == LevelBlocking || l == LevelRequired || l == LevelRecommended
}

type ConditionStatus string

const (
	ConditionStatusPending    ConditionStatus = "pending"
	ConditionStatusInProgress ConditionStatus = "in_progress"
	ConditionStatusCompleted  ConditionStatus = "completed"
)

// SourceType is informational: where the requirement comes from.
type SourceType string

const (
	SourceLegal        SourceType = "legal"
	SourceGovernment   SourceType = "government"
	SourceIndustry     SourceType = "industry"
	SourceBestPractice SourceType = "best_practice"
)

func (s SourceType) IsValid() bool {
	switch s {
	case SourceLegal, SourceGovernment, SourceIndustry, SourceBestPractice:
		return true
	}
	return false
}

// ResolutionType is a manual disposition applied instead of literally satisfying a condition.
type ResolutionType string

const (
	ResolutionCompleted       ResolutionType = "completed"
	ResolutionWaived          ResolutionType = "waived"
	ResolutionNotApplicable   ResolutionType = "not_applicable"
	ResolutionSkippedWithRisk ResolutionType = "skipped_with_risk"
)

func (r ResolutionType) IsValid() bool {
	switch r {
	case ResolutionCompleted, ResolutionWaived, ResolutionNotApplicable, ResolutionSkippedWithRisk:
		return true
	}
	return false
}

// Resolution is stored on the condition it resolved.
type Resolution struct {
	Type       ResolutionType `json:"resolutionType"`
	Note       string         `json:"note,omitempty"`
	ResolvedBy id.UserID      `json:"resolvedBy"`
	ResolvedAt time.Time      `json:"resolvedAt"`
}

// Condition is a per-transaction requirement attached to the step that introduced it.
//
// Invariants:
//   - (TransactionID, StepID, TemplateKey) is unique
//   - Blocking conditions never carry a Resolution
//   - Status only moves forward; completed is terminal
type Condition struct {
	ID               id.ConditionID    `json:"id"`
	TransactionID    id.TransactionID  `json:"transactionId"`
	StepID           id.StepID         `json:"transactionStepId"`
	TemplateKey      string            `json:"templateKey"`
	Title            string            `json:"title"`
	Labels           map[string]string `json:"labels,omitempty"`
	Level            ConditionLevel    `json:"level"`
	Status           ConditionStatus   `json:"status"`
	SourceType       SourceType        `json:"sourceType"`
	EvidenceRequired bool              `json:"evidenceRequired"`
	DocumentCategory string            `json:"documentCategory,omitempty"`
	DueDate          *time.Time        `json:"dueDate,omitempty"`
	Resolution       *Resolution       `json:"resolution,omitempty"`
	CompletedAt      *time.Time        `json:"completedAt,omitempty"`
	CreatedAt        time.Time         `json:"createdAt"`
	UpdatedAt        time.Time         `json:"updatedAt"`
}

func (c *Condition) IsOpen() bool {
	return c.Status != ConditionStatusCompleted
}

// IsOverdue reports whether an open condition is past its due date.
func (c *Condition) IsOverdue(now time.Time) bool {
	return c.IsOpen() && c.DueDate != nil && now.After(*c.DueDate)
}

// OverdueCursor is a position in the overdue scan, which orders by due date
// then condition id (byte order, as Postgres sorts uuids).
type OverdueCursor struct {
	DueDate time.Time
	ID      id.ConditionID
}

// Cursor returns the scan position of c. It assumes c has a due date.
func (c *Condition) Cursor() OverdueCursor {
	return OverdueCursor{DueDate: *c.DueDate, ID: c.ID}
}

// Before reports whether cur sorts strictly before other.
func (cur OverdueCursor) Before(other OverdueCursor) bool {
	if !cur.DueDate.Equal(other.DueDate) {
		return cur.DueDate.Before(other.DueDate)
	}
	return bytes.Compare(cur.ID[:], other.ID[:]) < 0
}

// CanResolve applies the manual resolution rules in a fixed order: blocking
// conditions first, then the note requirement.
func (c *Condition) CanResolve(resolution ResolutionType, note string) error {
	if !resolution.IsValid() {
		return dErrors.New(dErrors.CodeValidation, "invalid resolution type")
	}
	if c.Level == LevelBlocking {
		return dErrors.New(dErrors.CodeBlockingNotResolvable, "blocking conditions cannot be resolved manually")
	}
	if resolution != ResolutionCompleted && strings.TrimSpace(note) == "" {
		return dErrors.New(dErrors.CodeNoteRequired, "a note is required for resolution type "+string(resolution))
	}
	if resolution == ResolutionSkippedWithRisk && c.Level == LevelBlocking {
		return dErrors.New(dErrors.CodeBlockingNotResolvable, "skipped_with_risk is not permitted on blocking conditions")
	}
	if !c.IsOpen() {
		return dErrors.New(dErrors.CodeConflict, "condition is already completed")
	}
	return nil
}

// ApplyResolution completes the condition with resolution metadata.
func (c *Condition) ApplyResolution(resolution ResolutionType, note string, actor id.UserID, now time.Time) {
	c.Resolution = &Resolution{
		Type:       resolution,
		Note:       strings.TrimSpace(note),
		ResolvedBy: actor,
		ResolvedAt: now,
	}
	c.markCompleted(now)
}

// CanCompleteDirectly allows satisfying a condition that needs no evidence.
func (c *Condition) CanCompleteDirectly() error {
	if c.EvidenceRequired {
		return dErrors.New(dErrors.CodeEvidenceRequired, "condition requires a validated document")
	}
	if !c.IsOpen() {
		return dErrors.New(dErrors.CodeConflict, "condition is already completed")
	}
	return nil
}

// ApplyCompletion completes the condition without a resolution record, as
// happens when its evidence is validated.
func (c *Condition) ApplyCompletion(now time.Time) {
	c.markCompleted(now)
}

// ApplyEvidenceReceived moves a pending condition to in_progress.
func (c *Condition) ApplyEvidenceReceived(now time.Time) bool {
	if c.Status != ConditionStatusPending {
		return false
	}
	c.Status = ConditionStatusInProgress
	c.UpdatedAt = now
	return true
}

func (c *Condition) markCompleted(now time.Time) {
	c.Status = ConditionStatusCompleted
	c.CompletedAt = &now
	c.UpdatedAt = now
}

// ConditionRef is the compact form used in advance-check responses.
type ConditionRef struct {
	ID       id.ConditionID  `json:"id"`
	StepID   id.StepID       `json:"transactionStepId"`
	Title    string          `json:"title"`
	Level    ConditionLevel  `json:"level"`
	Status   ConditionStatus `json:"status"`
	DueDate  *time.Time      `json:"dueDate,omitempty"`
	Evidence bool            `json:"evidenceRequired"`
}

func (c *Condition) Ref() ConditionRef {
	return ConditionRef{
		ID:       c.ID,
		StepID:   c.StepID,
		Title:    c.Title,
		Level:    c.Level,
		Status:   c.Status,
		DueDate:  c.DueDate,
		Evidence: c.EvidenceRequired,
	}
}

// ConditionFilter selects conditions for listing.
type ConditionFilter string

const (
	ConditionFilterActive    ConditionFilter = "active"
	ConditionFilterCompleted ConditionFilter = "completed"
	ConditionFilterAll       ConditionFilter = "all"
)

func ParseConditionFilter(s string) (ConditionFilter, error) {
	switch ConditionFilter(s) {
	case "", ConditionFilterActive:
		return ConditionFilterActive, nil
	case ConditionFilterCompleted, ConditionFilterAll:
		return ConditionFilter(s), nil
	}
	return "", dErrors.New(dErrors.CodeValidation, "status must be one of: active, completed, all")
}
