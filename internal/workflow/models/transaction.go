package models

import (
	"time"

	id "dealflow/pkg/domain"
	dErrors "dealflow/pkg/domain-errors"
)

// TransactionType distinguishes the buying side from the listing side.
type TransactionType string

const (
	TransactionTypePurchase TransactionType = "purchase"
	TransactionTypeSale     TransactionType = "sale"
)

func (t TransactionType) IsValid() bool {
	return t == TransactionTypePurchase || t == TransactionTypeSale
}

// ParseTransactionType validates a transaction type from external input.
func ParseTransactionType(s string) (TransactionType, error) {
	t := TransactionType(s)
	if !t.IsValid() {
		return "", dErrors.New(dErrors.CodeValidation, "type must be one of: purchase, sale")
	}
	return t, nil
}

// KeyDates are the calendar milestones the agent tracks alongside the workflow.
type KeyDates struct {
	OfferDate      *time.Time `json:"offerDate,omitempty"`
	AcceptanceDate *time.Time `json:"acceptanceDate,omitempty"`
	ClosingDate    *time.Time `json:"closingDate,omitempty"`
}

// Transaction is the root aggregate. It owns its steps, conditions and documents.
//
// Invariants:
//   - CurrentStepID is nil only once the final step completed (CompletedAt is then set)
//   - TemplateID never changes after creation
type Transaction struct {
	ID            id.TransactionID `json:"id"`
	OwnerID       id.UserID        `json:"ownerUserId"`
	ClientID      id.ClientID      `json:"clientId"`
	Type          TransactionType  `json:"type"`
	TemplateID    string           `json:"templateId"`
	CurrentStepID *id.StepID       `json:"currentStepId"`
	KeyDates      KeyDates         `json:"keyDates"`
	CreatedAt     time.Time        `json:"createdAt"`
	UpdatedAt     time.Time        `json:"updatedAt"`
	CompletedAt   *time.Time       `json:"completedAt,omitempty"`
}

// NewTransaction builds a transaction positioned before its first step.
// The caller activates step 1 with ApplyCurrentStep once steps are instantiated.
func NewTransaction(txID id.TransactionID, owner id.UserID, client id.ClientID, txType TransactionType, templateID string, dates KeyDates, now time.Time) (*Transaction, error) {
	if owner.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "transaction owner is required")
	}
	if client.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "transaction client is required")
	}
	if !txType.IsValid() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "invalid transaction type")
	}
	if templateID == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "template is required")
	}
	return &Transaction{
		ID:         txID,
		OwnerID:    owner,
		ClientID:   client,
		Type:       txType,
		TemplateID: templateID,
		KeyDates:   dates,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

// IsComplete reports whether the workflow has run past its final step.
func (t *Transaction) IsComplete() bool {
	return t.CurrentStepID == nil && t.CompletedAt != nil
}

// IsCurrentStep reports whether stepID is the active step.
func (t *Transaction) IsCurrentStep(stepID id.StepID) bool {
	return t.CurrentStepID != nil && *t.CurrentStepID == stepID
}

// ApplyCurrentStep points the transaction at a newly activated step.
func (t *Transaction) ApplyCurrentStep(stepID id.StepID, now time.Time) {
	t.CurrentStepID = &stepID
	t.UpdatedAt = now
}

// ApplyCompletion marks the workflow complete; there is no active step afterwards.
func (t *Transaction) ApplyCompletion(now time.Time) {
	t.CurrentStepID = nil
	t.CompletedAt = &now
	t.UpdatedAt = now
}
