package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"dealflow/internal/workflow/models"
	id "dealflow/pkg/domain"
	dErrors "dealflow/pkg/domain-errors"
	"dealflow/pkg/platform/useragent"
	"dealflow/pkg/requestcontext"
)

const (
	defaultActivityLimit = 100
	maxActivityLimit     = 500
	overdueSweepBatch    = 200
)

// appendActivity writes an activity entry inside the caller's unit of work and
// mirrors it to the audit log. Metadata is a flat list of key/value pairs.
func (s *Service) appendActivity(ctx context.Context, txID id.TransactionID, entryType models.ActivityType, now time.Time, kv ...string) error {
	metadata := make(map[string]string, len(kv)/2+2)
	for i := 0; i+1 < len(kv); i += 2 {
		metadata[kv[i]] = kv[i+1]
	}
	if ua := requestcontext.UserAgent(ctx); ua != "" {
		metadata["client"] = useragent.ParseUserAgent(ua)
	}
	if requestID := requestcontext.RequestID(ctx); requestID != "" {
		metadata["request_id"] = requestID
	}

	entry := &models.ActivityEntry{
		ID:            id.ActivityID(uuid.New()),
		TransactionID: txID,
		UserID:        requestcontext.UserID(ctx),
		Type:          entryType,
		Metadata:      metadata,
		CreatedAt:     now,
	}
	if err := s.activity.Append(ctx, entry); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to append activity")
	}

	s.logAudit(ctx, string(entryType), "transaction_id", txID.String(), "metadata", metadata)
	return nil
}

func (s *Service) logAudit(ctx context.Context, event string, attributes ...any) {
	if s.logger == nil {
		return
	}
	if requestID := requestcontext.RequestID(ctx); requestID != "" {
		attributes = append(attributes, "request_id", requestID)
	}
	if actor := requestcontext.UserID(ctx); !actor.IsNil() {
		attributes = append(attributes, "user_id", actor.String())
	}
	args := append(attributes, "event", event, "log_type", "audit")
	s.logger.InfoContext(ctx, event, args...)
}

// ListActivity returns the newest entries first.
func (s *Service) ListActivity(ctx context.Context, txID id.TransactionID, limit int) ([]*models.ActivityEntry, error) {
	ctx, span := s.startSpan(ctx, "workflow.ListActivity", txID)
	var err error
	defer func() { endSpan(span, err) }()

	if _, err = s.loadOwned(ctx, txID); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultActivityLimit
	}
	if limit > maxActivityLimit {
		limit = maxActivityLimit
	}
	entries, err := s.activity.ListByTransaction(ctx, txID, limit)
	if err != nil {
		err = wrapStoreErr(err, "activity")
		return nil, err
	}
	return entries, nil
}

// SweepOverdue appends one condition_overdue entry per open condition past its
// due date. Entries are deduplicated by condition id so repeated sweeps are
// no-ops. The scan pages through every overdue condition, so conditions flagged
// by earlier sweeps never hide newer ones. It runs outside any request, so no
// ownership applies.
func (s *Service) SweepOverdue(ctx context.Context, now time.Time) (int, error) {
	ctx, span := s.startSpan(ctx, "workflow.SweepOverdue", id.TransactionID{})
	var err error
	defer func() { endSpan(span, err) }()

	flagged := 0
	var after *models.OverdueCursor
	for {
		var page []*models.Condition
		page, err = s.store.ListOverdueConditions(ctx, now, after, overdueSweepBatch)
		if err != nil {
			err = wrapStoreErr(err, "conditions")
			return flagged, err
		}
		for _, c := range page {
			var appended bool
			appended, err = s.flagOverdue(ctx, c, now)
			if err != nil {
				return flagged, err
			}
			if appended {
				flagged++
			}
		}
		if len(page) < overdueSweepBatch {
			return flagged, nil
		}
		cursor := page[len(page)-1].Cursor()
		after = &cursor
	}
}

// flagOverdue re-reads c under the transaction lock and appends its overdue
// entry unless it was completed meanwhile or already flagged.
func (s *Service) flagOverdue(ctx context.Context, c *models.Condition, now time.Time) (bool, error) {
	var appended bool
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if _, err := s.store.LockTransaction(txCtx, c.TransactionID); err != nil {
			return wrapStoreErr(err, "transaction")
		}
		current, err := s.store.FindCondition(txCtx, c.ID)
		if err != nil {
			return wrapStoreErr(err, "condition")
		}
		if !current.IsOverdue(now) {
			return nil
		}
		seen, err := s.activity.HasEntry(txCtx, current.TransactionID, models.ActivityConditionOverdue, "condition_id", current.ID.String())
		if err != nil {
			return wrapStoreErr(err, "activity")
		}
		if seen {
			return nil
		}
		appended = true
		return s.appendActivity(txCtx, current.TransactionID, models.ActivityConditionOverdue, now,
			"condition_id", current.ID.String(),
			"template_key", current.TemplateKey,
			"level", string(current.Level),
			"due_date", current.DueDate.UTC().Format(time.RFC3339),
		)
	})
	if err != nil {
		return false, err
	}
	return appended, nil
}
