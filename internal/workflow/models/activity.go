package models

import (
	"time"

	id "dealflow/pkg/domain"
)

// ActivityType names an Activity Log entry. Notification dispatch subscribes by type.
type ActivityType string

const (
	ActivityTransactionCreated ActivityType = "transaction_created"
	ActivityProfileSaved       ActivityType = "profile_saved"
	ActivityConditionCreated   ActivityType = "condition_created"
	ActivityConditionResolved  ActivityType = "condition_resolved"
	ActivityConditionCompleted ActivityType = "condition_completed"
	ActivityConditionOverdue   ActivityType = "condition_overdue"
	ActivityStepAdvanced       ActivityType = "step_advanced"
	ActivityStepSkipped        ActivityType = "step_skipped"
	ActivityDocumentUploaded   ActivityType = "document_uploaded"
	ActivityDocumentValidated  ActivityType = "document_validated"
	ActivityDocumentRejected   ActivityType = "document_rejected"
)

// ActivityEntry is one append-only Activity Log record.
type ActivityEntry struct {
	ID            id.ActivityID     `json:"id"`
	TransactionID id.TransactionID  `json:"transactionId"`
	UserID        id.UserID         `json:"userId"`
	Type          ActivityType      `json:"type"`
	Metadata      map[string]string `json:"metadata,omitempty"`
	CreatedAt     time.Time         `json:"createdAt"`
}
