package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	activitymodels "dealflow/internal/activity/models"
	"dealflow/internal/workflow/models"
	id "dealflow/pkg/domain"
	"dealflow/pkg/platform/tx"
)

// Postgres writes activity_log rows and their outbox rows through the
// transaction carried in ctx, so an entry commits or rolls back with the
// mutation it describes.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

func (s *Postgres) Append(ctx context.Context, entry *models.ActivityEntry) error {
	metadata, err := json.Marshal(entry.Metadata)
	if err != nil {
		return fmt.Errorf("marshal activity metadata: %w", err)
	}
	record, err := activitymodels.NewOutboxRecord(entry)
	if err != nil {
		return err
	}

	var userID uuid.NullUUID
	if !entry.UserID.IsNil() {
		userID = uuid.NullUUID{UUID: uuid.UUID(entry.UserID), Valid: true}
	}
	exec := tx.Exec(ctx, s.db)
	_, err = exec.ExecContext(ctx, `
		INSERT INTO activity_log (id, transaction_id, user_id, type, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		uuid.UUID(entry.ID), uuid.UUID(entry.TransactionID), userID, string(entry.Type), metadata, entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert activity entry: %w", err)
	}
	_, err = exec.ExecContext(ctx, `
		INSERT INTO outbox (id, aggregate_type, aggregate_id, event_type, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		record.ID, record.AggregateType, record.AggregateID, record.EventType, record.Payload, record.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert outbox entry: %w", err)
	}
	return nil
}

func (s *Postgres) ListByTransaction(ctx context.Context, txID id.TransactionID, limit int) ([]*models.ActivityEntry, error) {
	rows, err := tx.Exec(ctx, s.db).QueryContext(ctx, `
		SELECT id, user_id, type, metadata, created_at
		FROM activity_log
		WHERE transaction_id = $1
		ORDER BY created_at DESC
		LIMIT $2`, uuid.UUID(txID), limit)
	if err != nil {
		return nil, fmt.Errorf("query activity: %w", err)
	}
	defer rows.Close()

	out := make([]*models.ActivityEntry, 0)
	for rows.Next() {
		var (
			entry     models.ActivityEntry
			entryID   uuid.UUID
			userID    uuid.NullUUID
			entryType string
			metadata  []byte
		)
		if err := rows.Scan(&entryID, &userID, &entryType, &metadata, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan activity: %w", err)
		}
		if err := json.Unmarshal(metadata, &entry.Metadata); err != nil {
			return nil, fmt.Errorf("decode activity metadata: %w", err)
		}
		entry.ID = id.ActivityID(entryID)
		entry.TransactionID = txID
		entry.UserID = id.UserID(userID.UUID)
		entry.Type = models.ActivityType(entryType)
		out = append(out, &entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate activity: %w", err)
	}
	return out, nil
}

func (s *Postgres) HasEntry(ctx context.Context, txID id.TransactionID, entryType models.ActivityType, key, value string) (bool, error) {
	var exists bool
	err := tx.Exec(ctx, s.db).QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM activity_log
			WHERE transaction_id = $1 AND type = $2 AND metadata->>$3 = $4
		)`, uuid.UUID(txID), string(entryType), key, value,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("query activity entry: %w", err)
	}
	return exists, nil
}

// ProcessBatch claims up to limit unpublished rows with FOR UPDATE SKIP LOCKED,
// so several relays can run side by side, and marks them published only when
// publish succeeds. A failed publish bumps the attempt counter instead.
func (s *Postgres) ProcessBatch(ctx context.Context, limit int, publish func(context.Context, []activitymodels.OutboxRecord) error) (int, error) {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin outbox batch: %w", err)
	}
	defer func() { _ = sqlTx.Rollback() }()

	rows, err := sqlTx.QueryContext(ctx, `
		SELECT id, aggregate_type, aggregate_id, event_type, payload, created_at, attempts
		FROM outbox
		WHERE published_at IS NULL
		ORDER BY created_at
		LIMIT $1
		FOR UPDATE SKIP LOCKED`, limit)
	if err != nil {
		return 0, fmt.Errorf("claim outbox batch: %w", err)
	}
	batch := make([]activitymodels.OutboxRecord, 0, limit)
	for rows.Next() {
		var r activitymodels.OutboxRecord
		if err := rows.Scan(&r.ID, &r.AggregateType, &r.AggregateID, &r.EventType, &r.Payload, &r.CreatedAt, &r.Attempts); err != nil {
			_ = rows.Close()
			return 0, fmt.Errorf("scan outbox row: %w", err)
		}
		batch = append(batch, r)
	}
	if err := rows.Close(); err != nil {
		return 0, fmt.Errorf("close outbox rows: %w", err)
	}
	if len(batch) == 0 {
		return 0, nil
	}

	ids := make([]string, len(batch))
	for i, r := range batch {
		ids[i] = r.ID.String()
	}

	if pubErr := publish(ctx, batch); pubErr != nil {
		if _, err := sqlTx.ExecContext(ctx, `UPDATE outbox SET attempts = attempts + 1 WHERE id = ANY($1::uuid[])`, pq.Array(ids)); err != nil {
			return 0, fmt.Errorf("record outbox attempt: %w", err)
		}
		if err := sqlTx.Commit(); err != nil {
			return 0, fmt.Errorf("commit outbox attempt: %w", err)
		}
		return 0, pubErr
	}

	if _, err := sqlTx.ExecContext(ctx, `UPDATE outbox SET published_at = $2 WHERE id = ANY($1::uuid[])`, pq.Array(ids), time.Now()); err != nil {
		return 0, fmt.Errorf("mark outbox published: %w", err)
	}
	if err := sqlTx.Commit(); err != nil {
		return 0, fmt.Errorf("commit outbox batch: %w", err)
	}
	return len(batch), nil
}
