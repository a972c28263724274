// Package domain holds typed identifiers and small domain primitives shared
// across bounded contexts.
//
// Typed IDs wrap uuid.UUID so the compiler rejects passing a StepID where a
// ConditionID is expected. Construct them with the Parse functions at trust
// boundaries; internal code converts with a plain type conversion.
package domain

import (
	"strings"

	"github.com/google/uuid"

	dErrors "dealflow/pkg/domain-errors"
)

// maxIDLength bounds input before uuid parsing. A canonical UUID is 36 chars;
// the urn and braced forms are accepted by uuid.Parse and stay below this.
const maxIDLength = 45

func parseUUID(s, name string) (uuid.UUID, error) {
	if strings.TrimSpace(s) == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, name+" is required")
	}
	if len(s) > maxIDLength {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+name)
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+name)
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, name+" must not be nil")
	}
	return u, nil
}

// UserID identifies an authenticated user (agent or broker).
type UserID uuid.UUID

// ParseUserID parses and validates a user ID from external input.
func ParseUserID(s string) (UserID, error) {
	u, err := parseUUID(s, "user ID")
	if err != nil {
		return UserID{}, err
	}
	return UserID(u), nil
}

// NewUserID returns a fresh random user ID.
func NewUserID() UserID {
	return UserID(uuid.New())
}

func (id UserID) String() string { return uuid.UUID(id).String() }

func (id UserID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

func (id UserID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }

func (id *UserID) UnmarshalText(b []byte) error {
	return (*uuid.UUID)(id).UnmarshalText(b)
}

// ClientID identifies the real-estate client a transaction is opened for.
type ClientID uuid.UUID

// ParseClientID parses and validates a client ID from external input.
func ParseClientID(s string) (ClientID, error) {
	u, err := parseUUID(s, "client ID")
	if err != nil {
		return ClientID{}, err
	}
	return ClientID(u), nil
}

// NewClientID returns a fresh random client ID.
func NewClientID() ClientID {
	return ClientID(uuid.New())
}

func (id ClientID) String() string { return uuid.UUID(id).String() }

func (id ClientID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

func (id ClientID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }

func (id *ClientID) UnmarshalText(b []byte) error {
	return (*uuid.UUID)(id).UnmarshalText(b)
}

// TransactionID identifies a transaction aggregate.
type TransactionID uuid.UUID

// ParseTransactionID parses and validates a transaction ID from external input.
func ParseTransactionID(s string) (TransactionID, error) {
	u, err := parseUUID(s, "transaction ID")
	if err != nil {
		return TransactionID{}, err
	}
	return TransactionID(u), nil
}

// NewTransactionID returns a fresh random transaction ID.
func NewTransactionID() TransactionID {
	return TransactionID(uuid.New())
}

func (id TransactionID) String() string { return uuid.UUID(id).String() }

func (id TransactionID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

func (id TransactionID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }

func (id *TransactionID) UnmarshalText(b []byte) error {
	return (*uuid.UUID)(id).UnmarshalText(b)
}

// StepID identifies one TransactionStep instance.
type StepID uuid.UUID

// ParseStepID parses and validates a step ID from external input.
func ParseStepID(s string) (StepID, error) {
	u, err := parseUUID(s, "step ID")
	if err != nil {
		return StepID{}, err
	}
	return StepID(u), nil
}

// NewStepID returns a fresh random step ID.
func NewStepID() StepID {
	return StepID(uuid.New())
}

func (id StepID) String() string { return uuid.UUID(id).String() }

func (id StepID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

func (id StepID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }

func (id *StepID) UnmarshalText(b []byte) error {
	return (*uuid.UUID)(id).UnmarshalText(b)
}

// ConditionID identifies one Condition instance.
type ConditionID uuid.UUID

// ParseConditionID parses and validates a condition ID from external input.
func ParseConditionID(s string) (ConditionID, error) {
	u, err := parseUUID(s, "condition ID")
	if err != nil {
		return ConditionID{}, err
	}
	return ConditionID(u), nil
}

// NewConditionID returns a fresh random condition ID.
func NewConditionID() ConditionID {
	return ConditionID(uuid.New())
}

func (id ConditionID) String() string { return uuid.UUID(id).String() }

func (id ConditionID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

func (id ConditionID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }

func (id *ConditionID) UnmarshalText(b []byte) error {
	return (*uuid.UUID)(id).UnmarshalText(b)
}

// DocumentID identifies one TransactionDocument version.
type DocumentID uuid.UUID

// ParseDocumentID parses and validates a document ID from external input.
func ParseDocumentID(s string) (DocumentID, error) {
	u, err := parseUUID(s, "document ID")
	if err != nil {
		return DocumentID{}, err
	}
	return DocumentID(u), nil
}

// NewDocumentID returns a fresh random document ID.
func NewDocumentID() DocumentID {
	return DocumentID(uuid.New())
}

func (id DocumentID) String() string { return uuid.UUID(id).String() }

func (id DocumentID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

func (id DocumentID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }

func (id *DocumentID) UnmarshalText(b []byte) error {
	return (*uuid.UUID)(id).UnmarshalText(b)
}

// ActivityID identifies one Activity Log entry.
type ActivityID uuid.UUID

// ParseActivityID parses and validates a activity ID from external input.
func ParseActivityID(s string) (ActivityID, error) {
	u, err := parseUUID(s, "activity ID")
	if err != nil {
		return ActivityID{}, err
	}
	return ActivityID(u), nil
}

// NewActivityID returns a fresh random activity ID.
func NewActivityID() ActivityID {
	return ActivityID(uuid.New())
}

func (id ActivityID) String() string { return uuid.UUID(id).String() }

func (id ActivityID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

func (id ActivityID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }

func (id *ActivityID) UnmarshalText(b []byte) error {
	return (*uuid.UUID)(id).UnmarshalText(b)
}
