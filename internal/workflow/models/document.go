package models

import (
	"strings"
	"time"

	id "dealflow/pkg/domain"
	dErrors "dealflow/pkg/domain-errors"
)

type DocumentStatus string

const (
	DocumentStatusMissing   DocumentStatus = "missing"
	DocumentStatusUploaded  DocumentStatus = "uploaded"
	DocumentStatusValidated DocumentStatus = "validated"
	DocumentStatusRejected  DocumentStatus = "rejected"
)

// FileMetadata describes a stored file. The bytes live with the upload service.
type FileMetadata struct {
	URL      string `json:"fileUrl"`
	Name     string `json:"fileName"`
	Size     int64  `json:"fileSize"`
	MimeType string `json:"mimeType"`
}

// TransactionDocument is one version in an evidence chain. A chain is keyed by
// ConditionID when bound, otherwise by (TransactionID, Category).
//
// Invariants:
//   - Version starts at 1 and increments by one along the chain
//   - ParentID is set exactly when Version > 1 and points to Version-1
//   - RejectionReason is non-empty exactly when Status is rejected
type TransactionDocument struct {
	ID              id.DocumentID    `json:"id"`
	TransactionID   id.TransactionID `json:"transactionId"`
	ConditionID     *id.ConditionID  `json:"conditionId"`
	Category        string           `json:"category"`
	Status          DocumentStatus   `json:"status"`
	File            FileMetadata     `json:"file"`
	Version         int              `json:"version"`
	ParentID        *id.DocumentID   `json:"parentDocumentId"`
	RejectionReason string           `json:"rejectionReason,omitempty"`
	UploadedBy      id.UserID        `json:"uploadedBy"`
	ValidatedBy     *id.UserID       `json:"validatedBy,omitempty"`
	ValidatedAt     *time.Time       `json:"validatedAt,omitempty"`
	CreatedAt       time.Time        `json:"createdAt"`
	UpdatedAt       time.Time        `json:"updatedAt"`
}

// NewDocumentVersion creates the next version of a chain. previous is nil for
// the first upload.
func NewDocumentVersion(docID id.DocumentID, txID id.TransactionID, conditionID *id.ConditionID, category string, file FileMetadata, previous *TransactionDocument, uploader id.UserID, now time.Time) *TransactionDocument {
	doc := &TransactionDocument{
		ID:            docID,
		TransactionID: txID,
		ConditionID:   conditionID,
		Category:      category,
		Status:        DocumentStatusUploaded,
		File:          file,
		Version:       1,
		UploadedBy:    uploader,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if previous != nil {
		parent := previous.ID
		doc.Version = previous.Version + 1
		doc.ParentID = &parent
	}
	return doc
}

// CanValidate allows validation only from uploaded.
func (d *TransactionDocument) CanValidate() error {
	if d.Status != DocumentStatusUploaded {
		return dErrors.New(dErrors.CodeDocumentInvalidState, "document is "+string(d.Status)+", only uploaded documents can be validated")
	}
	return nil
}

func (d *TransactionDocument) ApplyValidation(actor id.UserID, now time.Time) {
	d.Status = DocumentStatusValidated
	d.ValidatedBy = &actor
	d.ValidatedAt = &now
	d.UpdatedAt = now
}

// CanReject allows rejection only from uploaded and only with a reason.
func (d *TransactionDocument) CanReject(reason string) error {
	if d.Status != DocumentStatusUploaded {
		return dErrors.New(dErrors.CodeDocumentInvalidState, "document is "+string(d.Status)+", only uploaded documents can be rejected")
	}
	if strings.TrimSpace(reason) == "" {
		return dErrors.New(dErrors.CodeValidation, "a rejection reason is required")
	}
	return nil
}

func (d *TransactionDocument) ApplyRejection(reason string, now time.Time) {
	d.Status = DocumentStatusRejected
	d.RejectionReason = strings.TrimSpace(reason)
	d.UpdatedAt = now
}

// ChainKey identifies the version chain a document belongs to.
type ChainKey struct {
	TransactionID id.TransactionID
	ConditionID   *id.ConditionID
	Category      string
}

func (d *TransactionDocument) ChainKey() ChainKey {
	return ChainKey{TransactionID: d.TransactionID, ConditionID: d.ConditionID, Category: d.Category}
}

// Matches reports whether d belongs to the chain. Bound chains are keyed by
// condition alone; unbound chains by category.
func (k ChainKey) Matches(d *TransactionDocument) bool {
	if d.TransactionID != k.TransactionID {
		return false
	}
	if k.ConditionID != nil {
		return d.ConditionID != nil && *d.ConditionID == *k.ConditionID
	}
	return d.ConditionID == nil && d.Category == k.Category
}

// CheckVersionChain verifies a chain ordered by version: contiguous from 1 and
// each parent pointing to the previous version.
func CheckVersionChain(chain []*TransactionDocument) error {
	for i, doc := range chain {
		if doc.Version != i+1 {
			return dErrors.New(dErrors.CodeInvariantViolation, "version chain has a gap")
		}
		if i == 0 {
			if doc.ParentID != nil {
				return dErrors.New(dErrors.CodeInvariantViolation, "first version must not have a parent")
			}
			continue
		}
		if doc.ParentID == nil || *doc.ParentID != chain[i-1].ID {
			return dErrors.New(dErrors.CodeInvariantViolation, "version parent does not point to the previous version")
		}
	}
	return nil
}
