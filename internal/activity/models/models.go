// Package models holds the activity outbox records relayed to the activity topic.
package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	workflow "dealflow/internal/workflow/models"
)

const AggregateTransaction = "transaction"

// OutboxRecord is one pending event, written in the same storage transaction
// as the activity entry it mirrors.
type OutboxRecord struct {
	ID            uuid.UUID
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
	CreatedAt     time.Time
	Attempts      int
}

// Event is the published payload. Notification dispatch consumes it by Type.
type Event struct {
	ID            string            `json:"id"`
	TransactionID string            `json:"transactionId"`
	UserID        string            `json:"userId,omitempty"`
	Type          string            `json:"type"`
	Metadata      map[string]string `json:"metadata,omitempty"`
	OccurredAt    string            `json:"occurredAt"`
}

// NewOutboxRecord renders an activity entry as an outbox row.
func NewOutboxRecord(entry *workflow.ActivityEntry) (*OutboxRecord, error) {
	evt := Event{
		ID:            entry.ID.String(),
		TransactionID: entry.TransactionID.String(),
		Type:          string(entry.Type),
		Metadata:      entry.Metadata,
		OccurredAt:    entry.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
	if !entry.UserID.IsNil() {
		evt.UserID = entry.UserID.String()
	}
	payload, err := json.Marshal(evt)
	if err != nil {
		return nil, fmt.Errorf("marshal activity event: %w", err)
	}
	return &OutboxRecord{
		ID:            uuid.New(),
		AggregateType: AggregateTransaction,
		AggregateID:   entry.TransactionID.String(),
		EventType:     string(entry.Type),
		Payload:       payload,
		CreatedAt:     entry.CreatedAt,
	}, nil
}
