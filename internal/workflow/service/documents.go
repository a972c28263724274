package service

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"dealflow/internal/workflow/models"
	id "dealflow/pkg/domain"
	dErrors "dealflow/pkg/domain-errors"
	"dealflow/pkg/platform/sentinel"
	"dealflow/pkg/requestcontext"
)

// UploadInput describes a new document. Category defaults to the bound
// condition's document category.
type UploadInput struct {
	TransactionID id.TransactionID
	ConditionID   *id.ConditionID
	Category      string
	File          models.FileMetadata
}

// UploadDocument stores the next version of a chain. Boundary checks run before
// the plan reservation, and the reservation is released if the upload fails.
func (s *Service) UploadDocument(ctx context.Context, in UploadInput) (*models.TransactionDocument, error) {
	start := time.Now()
	defer s.metrics.ObserveMutation("upload_document", start)
	ctx, span := s.startSpan(ctx, "workflow.UploadDocument", in.TransactionID)
	var err error
	defer func() { endSpan(span, err) }()

	if err = s.policy.Check(in.File); err != nil {
		return nil, err
	}
	in.Category = strings.TrimSpace(in.Category)
	if in.ConditionID == nil && in.Category == "" {
		err = dErrors.New(dErrors.CodeValidation, "category is required for documents not bound to a condition")
		return nil, err
	}

	var doc *models.TransactionDocument
	err = s.withUploadReservation(ctx, func() error {
		return s.tx.RunInTx(ctx, func(txCtx context.Context) error {
			now := requestcontext.Now(txCtx)
			t, err := s.lockOwned(txCtx, in.TransactionID)
			if err != nil {
				return err
			}

			var cond *models.Condition
			if in.ConditionID != nil {
				if cond, err = s.scopedCondition(txCtx, t, *in.ConditionID); err != nil {
					return err
				}
				if in.Category, err = boundCategory(cond, in.Category); err != nil {
					return err
				}
			}

			key := models.ChainKey{TransactionID: t.ID, ConditionID: in.ConditionID, Category: in.Category}
			head, err := s.chainHead(txCtx, key)
			if err != nil {
				return err
			}
			if cond != nil && head != nil && head.Category != in.Category {
				return dErrors.New(dErrors.CodeValidation, "documents for this condition are filed under category "+head.Category)
			}
			doc, err = s.storeVersion(txCtx, key, head, cond, in.File, now)
			return err
		})
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncrementDocumentEvent("uploaded")
	return doc, nil
}

// boundCategory picks the category of a condition-bound upload. The condition's
// own category wins; a caller category may only repeat it.
func boundCategory(cond *models.Condition, requested string) (string, error) {
	want := cond.DocumentCategory
	switch {
	case want == "" && requested == "":
		return "", dErrors.New(dErrors.CodeValidation, "category is required")
	case want == "":
		return requested, nil
	case requested != "" && !strings.EqualFold(requested, want):
		return "", dErrors.New(dErrors.CodeValidation, "category "+requested+" does not match the condition's category "+want)
	default:
		return want, nil
	}
}

// ReplaceDocument uploads a new version on top of docID, which must be its chain head.
func (s *Service) ReplaceDocument(ctx context.Context, docID id.DocumentID, file models.FileMetadata) (*models.TransactionDocument, error) {
	start := time.Now()
	defer s.metrics.ObserveMutation("replace_document", start)
	ctx, span := s.startSpan(ctx, "workflow.ReplaceDocument", id.TransactionID{})
	var err error
	defer func() { endSpan(span, err) }()

	if err = s.policy.Check(file); err != nil {
		return nil, err
	}

	var doc *models.TransactionDocument
	err = s.withUploadReservation(ctx, func() error {
		return s.tx.RunInTx(ctx, func(txCtx context.Context) error {
			now := requestcontext.Now(txCtx)
			previous, t, err := s.lockDocument(txCtx, docID)
			if err != nil {
				return err
			}
			key := previous.ChainKey()
			head, err := s.chainHead(txCtx, key)
			if err != nil {
				return err
			}
			if head == nil || head.ID != previous.ID {
				return dErrors.New(dErrors.CodeDocumentInvalidState, "only the latest version of a document can be replaced")
			}

			var cond *models.Condition
			if previous.ConditionID != nil {
				if cond, err = s.scopedCondition(txCtx, t, *previous.ConditionID); err != nil {
					return err
				}
			}
			doc, err = s.storeVersion(txCtx, key, head, cond, file, now)
			return err
		})
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncrementDocumentEvent("uploaded")
	return doc, nil
}

func (s *Service) withUploadReservation(ctx context.Context, fn func() error) error {
	if s.plan == nil {
		return fn()
	}
	actor := requestcontext.UserID(ctx)
	if err := s.plan.ReserveUpload(ctx, actor); err != nil {
		return err
	}
	if err := fn(); err != nil {
		if releaseErr := s.plan.ReleaseUpload(context.WithoutCancel(ctx), actor); releaseErr != nil {
			s.logger.ErrorContext(ctx, "failed to release upload reservation",
				"request_id", requestcontext.RequestID(ctx),
				"error", releaseErr,
			)
		}
		return err
	}
	return nil
}

func (s *Service) chainHead(ctx context.Context, key models.ChainKey) (*models.TransactionDocument, error) {
	head, err := s.documents.LatestInChain(ctx, key)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, wrapStoreErr(err, "document")
	}
	return head, nil
}

// storeVersion persists the next version after head and moves a pending bound
// condition to in_progress.
func (s *Service) storeVersion(ctx context.Context, key models.ChainKey, head *models.TransactionDocument, cond *models.Condition, file models.FileMetadata, now time.Time) (*models.TransactionDocument, error) {
	doc := models.NewDocumentVersion(id.DocumentID(uuid.New()), key.TransactionID, key.ConditionID, key.Category, file, head, requestcontext.UserID(ctx), now)
	if err := s.documents.CreateDocument(ctx, doc); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.Wrap(err, dErrors.CodeDocumentInvalidState, "a newer version was uploaded concurrently")
		}
		return nil, wrapStoreErr(err, "document")
	}
	if cond != nil && cond.ApplyEvidenceReceived(now) {
		if err := s.store.UpdateCondition(ctx, cond); err != nil {
			return nil, wrapStoreErr(err, "condition")
		}
	}

	kv := []string{
		"document_id", doc.ID.String(),
		"category", doc.Category,
		"version", strconv.Itoa(doc.Version),
		"file_name", doc.File.Name,
	}
	if doc.ParentID != nil {
		kv = append(kv, "parent_document_id", doc.ParentID.String())
	}
	if doc.ConditionID != nil {
		kv = append(kv, "condition_id", doc.ConditionID.String())
	}
	if err := s.appendActivity(ctx, key.TransactionID, models.ActivityDocumentUploaded, now, kv...); err != nil {
		return nil, err
	}
	return doc, nil
}

// lockDocument resolves the owning transaction, locks it, then re-reads the
// document so its state cannot change before the unit of work ends.
func (s *Service) lockDocument(ctx context.Context, docID id.DocumentID) (*models.TransactionDocument, *models.Transaction, error) {
	doc, err := s.documents.FindDocument(ctx, docID)
	if err != nil {
		return nil, nil, wrapStoreErr(err, "document")
	}
	t, err := s.lockOwned(ctx, doc.TransactionID)
	if err != nil {
		return nil, nil, err
	}
	doc, err = s.documents.FindDocument(ctx, docID)
	if err != nil {
		return nil, nil, wrapStoreErr(err, "document")
	}
	return doc, t, nil
}

// ValidateDocument accepts the chain head. A bound open condition completes in
// the same unit of work; advancing stays an explicit operator action.
func (s *Service) ValidateDocument(ctx context.Context, docID id.DocumentID) (*models.TransactionDocument, error) {
	start := time.Now()
	defer s.metrics.ObserveMutation("validate_document", start)
	ctx, span := s.startSpan(ctx, "workflow.ValidateDocument", id.TransactionID{})
	var err error
	defer func() { endSpan(span, err) }()

	var validated *models.TransactionDocument
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		now := requestcontext.Now(txCtx)
		doc, t, err := s.lockDocument(txCtx, docID)
		if err != nil {
			return err
		}
		if err := doc.CanValidate(); err != nil {
			return err
		}
		head, err := s.chainHead(txCtx, doc.ChainKey())
		if err != nil {
			return err
		}
		if head == nil || head.ID != doc.ID {
			return dErrors.New(dErrors.CodeDocumentInvalidState, "only the latest version of a document can be validated")
		}

		doc.ApplyValidation(requestcontext.UserID(txCtx), now)
		if err := s.documents.UpdateDocument(txCtx, doc); err != nil {
			return wrapStoreErr(err, "document")
		}

		if doc.ConditionID != nil {
			cond, err := s.scopedCondition(txCtx, t, *doc.ConditionID)
			if err != nil {
				return err
			}
			if cond.IsOpen() {
				cond.ApplyCompletion(now)
				if err := s.store.UpdateCondition(txCtx, cond); err != nil {
					return wrapStoreErr(err, "condition")
				}
				if err := s.appendActivity(txCtx, t.ID, models.ActivityConditionCompleted, now,
					"condition_id", cond.ID.String(),
					"template_key", cond.TemplateKey,
					"via", "document",
					"document_id", doc.ID.String(),
				); err != nil {
					return err
				}
			}
		}

		if err := s.appendActivity(txCtx, t.ID, models.ActivityDocumentValidated, now,
			"document_id", doc.ID.String(),
			"category", doc.Category,
			"version", strconv.Itoa(doc.Version),
		); err != nil {
			return err
		}
		validated = doc
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncrementDocumentEvent("validated")
	return validated, nil
}

// RejectDocument refuses the uploaded chain head. Older versions left in
// uploaded are superseded and frozen: neither validate nor reject applies to
// them. The bound condition stays open until a replacement is validated.
func (s *Service) RejectDocument(ctx context.Context, docID id.DocumentID, reason string) (*models.TransactionDocument, error) {
	start := time.Now()
	defer s.metrics.ObserveMutation("reject_document", start)
	ctx, span := s.startSpan(ctx, "workflow.RejectDocument", id.TransactionID{})
	var err error
	defer func() { endSpan(span, err) }()

	var rejected *models.TransactionDocument
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		now := requestcontext.Now(txCtx)
		doc, t, err := s.lockDocument(txCtx, docID)
		if err != nil {
			return err
		}
		if err := doc.CanReject(reason); err != nil {
			return err
		}
		head, err := s.chainHead(txCtx, doc.ChainKey())
		if err != nil {
			return err
		}
		if head == nil || head.ID != doc.ID {
			return dErrors.New(dErrors.CodeDocumentInvalidState, "only the latest version of a document can be rejected")
		}
		doc.ApplyRejection(reason, now)
		if err := s.documents.UpdateDocument(txCtx, doc); err != nil {
			return wrapStoreErr(err, "document")
		}
		if err := s.appendActivity(txCtx, t.ID, models.ActivityDocumentRejected, now,
			"document_id", doc.ID.String(),
			"category", doc.Category,
			"version", strconv.Itoa(doc.Version),
			"reason", doc.RejectionReason,
		); err != nil {
			return err
		}
		rejected = doc
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncrementDocumentEvent("rejected")
	return rejected, nil
}

// ListDocuments returns every version of every document of a transaction.
func (s *Service) ListDocuments(ctx context.Context, txID id.TransactionID) ([]*models.TransactionDocument, error) {
	if _, err := s.loadOwned(ctx, txID); err != nil {
		return nil, err
	}
	docs, err := s.documents.ListDocuments(ctx, txID)
	if err != nil {
		return nil, wrapStoreErr(err, "documents")
	}
	return docs, nil
}

// DocumentVersions returns the chain docID belongs to, ordered by version.
func (s *Service) DocumentVersions(ctx context.Context, docID id.DocumentID) ([]*models.TransactionDocument, error) {
	doc, err := s.documents.FindDocument(ctx, docID)
	if err != nil {
		return nil, wrapStoreErr(err, "document")
	}
	if _, err := s.loadOwned(ctx, doc.TransactionID); err != nil {
		return nil, err
	}
	chain, err := s.documents.ListChain(ctx, doc.ChainKey())
	if err != nil {
		return nil, wrapStoreErr(err, "documents")
	}
	return chain, nil
}
