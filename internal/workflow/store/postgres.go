package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"dealflow/internal/platform/postgres"
	"dealflow/internal/workflow/models"
	id "dealflow/pkg/domain"
	"dealflow/pkg/platform/sentinel"
	"dealflow/pkg/platform/tx"
)

// PostgresStore implements the workflow and document stores. Every method
// joins the unit of work carried in ctx when there is one.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) exec(ctx context.Context) tx.Executor {
	return tx.Exec(ctx, s.db)
}

func nullUUID[T ~[16]byte](v *T) uuid.NullUUID {
	if v == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: uuid.UUID(*v), Valid: true}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sql.ErrNoRows):
		return sentinel.ErrNotFound
	case postgres.IsUniqueViolation(err):
		return fmt.Errorf("%w: %v", sentinel.ErrConflict, err)
	default:
		return err
	}
}

const transactionColumns = `id, owner_user_id, client_id, type, template_id, current_step_id,
	offer_date, acceptance_date, closing_date, created_at, updated_at, completed_at`

func (s *PostgresStore) CreateTransaction(ctx context.Context, t *models.Transaction) error {
	_, err := s.exec(ctx).ExecContext(ctx, `
		INSERT INTO transactions (`+transactionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		uuid.UUID(t.ID), uuid.UUID(t.OwnerID), uuid.UUID(t.ClientID), string(t.Type), t.TemplateID,
		nullUUID(t.CurrentStepID),
		nullTime(t.KeyDates.OfferDate), nullTime(t.KeyDates.AcceptanceDate), nullTime(t.KeyDates.ClosingDate),
		t.CreatedAt, t.UpdatedAt, nullTime(t.CompletedAt),
	)
	if err != nil {
		return fmt.Errorf("insert transaction: %w", translate(err))
	}
	return nil
}

func (s *PostgresStore) FindTransaction(ctx context.Context, txID id.TransactionID) (*models.Transaction, error) {
	row := s.exec(ctx).QueryRowContext(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE id = $1`, uuid.UUID(txID))
	return scanTransaction(row)
}

// LockTransaction takes the row lock that serializes every mutation of one transaction.
func (s *PostgresStore) LockTransaction(ctx context.Context, txID id.TransactionID) (*models.Transaction, error) {
	if _, ok := tx.From(ctx); !ok {
		return nil, fmt.Errorf("lock transaction: %w", sentinel.ErrInvalidState)
	}
	row := s.exec(ctx).QueryRowContext(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE id = $1 FOR UPDATE`, uuid.UUID(txID))
	return scanTransaction(row)
}

func scanTransaction(row *sql.Row) (*models.Transaction, error) {
	var (
		t                                  models.Transaction
		txID, owner, client                uuid.UUID
		txType                             string
		current                            uuid.NullUUID
		offer, acceptance, closing, closed sql.NullTime
	)
	err := row.Scan(&txID, &owner, &client, &txType, &t.TemplateID, &current,
		&offer, &acceptance, &closing, &t.CreatedAt, &t.UpdatedAt, &closed)
	if err != nil {
		return nil, translate(err)
	}
	t.ID = id.TransactionID(txID)
	t.OwnerID = id.UserID(owner)
	t.ClientID = id.ClientID(client)
	t.Type = models.TransactionType(txType)
	if current.Valid {
		stepID := id.StepID(current.UUID)
		t.CurrentStepID = &stepID
	}
	t.KeyDates = models.KeyDates{OfferDate: timePtr(offer), AcceptanceDate: timePtr(acceptance), ClosingDate: timePtr(closing)}
	t.CompletedAt = timePtr(closed)
	return &t, nil
}

func (s *PostgresStore) UpdateTransaction(ctx context.Context, t *models.Transaction) error {
	res, err := s.exec(ctx).ExecContext(ctx, `
		UPDATE transactions
		SET current_step_id = $2, offer_date = $3, acceptance_date = $4, closing_date = $5,
		    updated_at = $6, completed_at = $7
		WHERE id = $1`,
		uuid.UUID(t.ID), nullUUID(t.CurrentStepID),
		nullTime(t.KeyDates.OfferDate), nullTime(t.KeyDates.AcceptanceDate), nullTime(t.KeyDates.ClosingDate),
		t.UpdatedAt, nullTime(t.CompletedAt),
	)
	return affectedOne(res, err, "update transaction")
}

func affectedOne(res sql.Result, err error, op string) error {
	if err != nil {
		return fmt.Errorf("%s: %w", op, translate(err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, sentinel.ErrNotFound)
	}
	return nil
}

func (s *PostgresStore) FindProfile(ctx context.Context, txID id.TransactionID) (*models.PropertyProfile, error) {
	var (
		p               models.PropertyProfile
		ptype, pcontext string
	)
	err := s.exec(ctx).QueryRowContext(ctx, `
		SELECT property_type, property_context, is_financed, has_well, has_septic,
		       condo_docs_required, created_at, updated_at
		FROM property_profiles WHERE transaction_id = $1`, uuid.UUID(txID),
	).Scan(&ptype, &pcontext, &p.IsFinanced, &p.HasWell, &p.HasSeptic, &p.CondoDocsRequired, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, translate(err)
	}
	p.TransactionID = txID
	p.PropertyType = models.PropertyType(ptype)
	p.PropertyContext = models.PropertyContext(pcontext)
	return &p, nil
}

func (s *PostgresStore) SaveProfile(ctx context.Context, p *models.PropertyProfile) error {
	_, err := s.exec(ctx).ExecContext(ctx, `
		INSERT INTO property_profiles (transaction_id, property_type, property_context, is_financed,
			has_well, has_septic, condo_docs_required, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (transaction_id) DO UPDATE SET
			property_type = EXCLUDED.property_type,
			property_context = EXCLUDED.property_context,
			is_financed = EXCLUDED.is_financed,
			has_well = EXCLUDED.has_well,
			has_septic = EXCLUDED.has_septic,
			condo_docs_required = EXCLUDED.condo_docs_required,
			updated_at = EXCLUDED.updated_at`,
		uuid.UUID(p.TransactionID), string(p.PropertyType), string(p.PropertyContext), p.IsFinanced,
		p.HasWell, p.HasSeptic, p.CondoDocsRequired, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("save profile: %w", translate(err))
	}
	return nil
}

func (s *PostgresStore) CreateSteps(ctx context.Context, steps []*models.TransactionStep) error {
	for _, st := range steps {
		_, err := s.exec(ctx).ExecContext(ctx, `
			INSERT INTO transaction_steps (id, transaction_id, step_order, slug, name, status, entered_at, completed_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			uuid.UUID(st.ID), uuid.UUID(st.TransactionID), st.StepOrder, st.Slug, st.Name, string(st.Status),
			nullTime(st.EnteredAt), nullTime(st.CompletedAt),
		)
		if err != nil {
			return fmt.Errorf("insert step %s: %w", st.Slug, translate(err))
		}
	}
	return nil
}

func (s *PostgresStore) ListSteps(ctx context.Context, txID id.TransactionID) ([]*models.TransactionStep, error) {
	rows, err := s.exec(ctx).QueryContext(ctx, `
		SELECT id, step_order, slug, name, status, entered_at, completed_at
		FROM transaction_steps WHERE transaction_id = $1 ORDER BY step_order`, uuid.UUID(txID))
	if err != nil {
		return nil, fmt.Errorf("list steps: %w", err)
	}
	defer rows.Close()

	out := make([]*models.TransactionStep, 0)
	for rows.Next() {
		var (
			st             models.TransactionStep
			stepID         uuid.UUID
			status         string
			entered, ended sql.NullTime
		)
		if err := rows.Scan(&stepID, &st.StepOrder, &st.Slug, &st.Name, &status, &entered, &ended); err != nil {
			return nil, fmt.Errorf("scan step: %w", err)
		}
		st.ID = id.StepID(stepID)
		st.TransactionID = txID
		st.Status = models.StepStatus(status)
		st.EnteredAt = timePtr(entered)
		st.CompletedAt = timePtr(ended)
		out = append(out, &st)
	}
	return out, rows.Err()
}

func (s *PostgresStore) UpdateStep(ctx context.Context, st *models.TransactionStep) error {
	res, err := s.exec(ctx).ExecContext(ctx, `
		UPDATE transaction_steps SET status = $2, entered_at = $3, completed_at = $4 WHERE id = $1`,
		uuid.UUID(st.ID), string(st.Status), nullTime(st.EnteredAt), nullTime(st.CompletedAt),
	)
	return affectedOne(res, err, "update step")
}

const conditionColumns = `id, transaction_id, step_id, template_key, title, labels, level, status,
	source_type, evidence_required, document_category, due_date, resolution_type, resolution_note,
	resolved_by, resolved_at, completed_at, created_at, updated_at`

// InsertConditionIfAbsent relies on the (transaction_id, step_id, template_key) unique key.
func (s *PostgresStore) InsertConditionIfAbsent(ctx context.Context, c *models.Condition) (bool, error) {
	labels, err := json.Marshal(c.Labels)
	if err != nil {
		return false, fmt.Errorf("marshal labels: %w", err)
	}
	var (
		resType, resNote sql.NullString
		resBy            uuid.NullUUID
		resAt            sql.NullTime
	)
	if r := c.Resolution; r != nil {
		resType = sql.NullString{String: string(r.Type), Valid: true}
		resNote = sql.NullString{String: r.Note, Valid: true}
		resBy = nullUUID(&r.ResolvedBy)
		resAt = nullTime(&r.ResolvedAt)
	}
	res, err := s.exec(ctx).ExecContext(ctx, `
		INSERT INTO conditions (`+conditionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, COALESCE($14, ''), $15, $16, $17, $18, $19)
		ON CONFLICT (transaction_id, step_id, template_key) DO NOTHING`,
		uuid.UUID(c.ID), uuid.UUID(c.TransactionID), uuid.UUID(c.StepID), c.TemplateKey, c.Title, labels,
		string(c.Level), string(c.Status), string(c.SourceType), c.EvidenceRequired, c.DocumentCategory,
		nullTime(c.DueDate), resType, resNote, resBy, resAt, nullTime(c.CompletedAt), c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("insert condition: %w", translate(err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert condition: %w", err)
	}
	return n == 1, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCondition(row rowScanner) (*models.Condition, error) {
	var (
		c                         models.Condition
		condID, txID, stepID      uuid.UUID
		labels                    []byte
		level, status, sourceType string
		due, resAt, completed     sql.NullTime
		resType                   sql.NullString
		resNote                   string
		resBy                     uuid.NullUUID
	)
	err := row.Scan(&condID, &txID, &stepID, &c.TemplateKey, &c.Title, &labels, &level, &status,
		&sourceType, &c.EvidenceRequired, &c.DocumentCategory, &due, &resType, &resNote,
		&resBy, &resAt, &completed, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, translate(err)
	}
	if len(labels) > 0 {
		if err := json.Unmarshal(labels, &c.Labels); err != nil {
			return nil, fmt.Errorf("decode labels: %w", err)
		}
	}
	c.ID = id.ConditionID(condID)
	c.TransactionID = id.TransactionID(txID)
	c.StepID = id.StepID(stepID)
	c.Level = models.ConditionLevel(level)
	c.Status = models.ConditionStatus(status)
	c.SourceType = models.SourceType(sourceType)
	c.DueDate = timePtr(due)
	c.CompletedAt = timePtr(completed)
	if resType.Valid {
		c.Resolution = &models.Resolution{
			Type:       models.ResolutionType(resType.String),
			Note:       resNote,
			ResolvedBy: id.UserID(resBy.UUID),
		}
		if resAt.Valid {
			c.Resolution.ResolvedAt = resAt.Time
		}
	}
	return &c, nil
}

func (s *PostgresStore) FindCondition(ctx context.Context, conditionID id.ConditionID) (*models.Condition, error) {
	row := s.exec(ctx).QueryRowContext(ctx, `SELECT `+conditionColumns+` FROM conditions WHERE id = $1`, uuid.UUID(conditionID))
	return scanCondition(row)
}

func (s *PostgresStore) ListConditions(ctx context.Context, txID id.TransactionID) ([]*models.Condition, error) {
	return s.queryConditions(ctx, `SELECT `+conditionColumns+` FROM conditions
		WHERE transaction_id = $1 ORDER BY created_at, template_key`, uuid.UUID(txID))
}

// ListOverdueConditions pages through open conditions past due across all
// transactions with a (due_date, id) keyset, starting strictly after the cursor.
func (s *PostgresStore) ListOverdueConditions(ctx context.Context, now time.Time, after *models.OverdueCursor, limit int) ([]*models.Condition, error) {
	open := pq.Array([]string{string(models.ConditionStatusCompleted)})
	if after == nil {
		return s.queryConditions(ctx, `SELECT `+conditionColumns+` FROM conditions
			WHERE status <> ALL($1) AND due_date IS NOT NULL AND due_date < $2
			ORDER BY due_date, id LIMIT $3`,
			open, now, limit)
	}
	return s.queryConditions(ctx, `SELECT `+conditionColumns+` FROM conditions
		WHERE status <> ALL($1) AND due_date IS NOT NULL AND due_date < $2
			AND (due_date, id) > ($3, $4)
		ORDER BY due_date, id LIMIT $5`,
		open, now, after.DueDate, uuid.UUID(after.ID), limit)
}

func (s *PostgresStore) queryConditions(ctx context.Context, query string, args ...any) ([]*models.Condition, error) {
	rows, err := s.exec(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list conditions: %w", err)
	}
	defer rows.Close()

	out := make([]*models.Condition, 0)
	for rows.Next() {
		c, err := scanCondition(rows)
		if err != nil {
			return nil, fmt.Errorf("scan condition: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *PostgresStore) UpdateCondition(ctx context.Context, c *models.Condition) error {
	var (
		resType sql.NullString
		resNote string
		resBy   uuid.NullUUID
		resAt   sql.NullTime
	)
	if r := c.Resolution; r != nil {
		resType = sql.NullString{String: string(r.Type), Valid: true}
		resNote = r.Note
		resBy = nullUUID(&r.ResolvedBy)
		resAt = nullTime(&r.ResolvedAt)
	}
	res, err := s.exec(ctx).ExecContext(ctx, `
		UPDATE conditions
		SET status = $2, resolution_type = $3, resolution_note = $4, resolved_by = $5,
		    resolved_at = $6, completed_at = $7, updated_at = $8
		WHERE id = $1`,
		uuid.UUID(c.ID), string(c.Status), resType, resNote, resBy, resAt, nullTime(c.CompletedAt), c.UpdatedAt,
	)
	return affectedOne(res, err, "update condition")
}
