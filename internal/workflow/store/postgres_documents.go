package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"dealflow/internal/workflow/models"
	id "dealflow/pkg/domain"
)

const documentColumns = `id, transaction_id, condition_id, category, status, file_url, file_name,
	file_size, mime_type, version, parent_document_id, rejection_reason, uploaded_by,
	validated_by, validated_at, created_at, updated_at`

// CreateDocument inserts one version. The partial unique indexes on
// (condition_id, version) and (transaction_id, category, version) turn a
// concurrent duplicate version into sentinel.ErrConflict.
func (s *PostgresStore) CreateDocument(ctx context.Context, d *models.TransactionDocument) error {
	_, err := s.exec(ctx).ExecContext(ctx, `
		INSERT INTO transaction_documents (`+documentColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`,
		uuid.UUID(d.ID), uuid.UUID(d.TransactionID), nullUUID(d.ConditionID), d.Category, string(d.Status),
		d.File.URL, d.File.Name, d.File.Size, d.File.MimeType, d.Version, nullUUID(d.ParentID),
		d.RejectionReason, uuid.UUID(d.UploadedBy), nullUUID(d.ValidatedBy), nullTime(d.ValidatedAt),
		d.CreatedAt, d.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert document: %w", translate(err))
	}
	return nil
}

func scanDocument(row rowScanner) (*models.TransactionDocument, error) {
	var (
		d                       models.TransactionDocument
		docID, txID, uploadedBy uuid.UUID
		conditionID, parentID   uuid.NullUUID
		validatedBy             uuid.NullUUID
		validatedAt             sql.NullTime
		status                  string
	)
	err := row.Scan(&docID, &txID, &conditionID, &d.Category, &status, &d.File.URL, &d.File.Name,
		&d.File.Size, &d.File.MimeType, &d.Version, &parentID, &d.RejectionReason, &uploadedBy,
		&validatedBy, &validatedAt, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return nil, translate(err)
	}
	d.ID = id.DocumentID(docID)
	d.TransactionID = id.TransactionID(txID)
	d.Status = models.DocumentStatus(status)
	d.UploadedBy = id.UserID(uploadedBy)
	if conditionID.Valid {
		v := id.ConditionID(conditionID.UUID)
		d.ConditionID = &v
	}
	if parentID.Valid {
		v := id.DocumentID(parentID.UUID)
		d.ParentID = &v
	}
	if validatedBy.Valid {
		v := id.UserID(validatedBy.UUID)
		d.ValidatedBy = &v
	}
	d.ValidatedAt = timePtr(validatedAt)
	return &d, nil
}

func (s *PostgresStore) FindDocument(ctx context.Context, docID id.DocumentID) (*models.TransactionDocument, error) {
	row := s.exec(ctx).QueryRowContext(ctx, `SELECT `+documentColumns+` FROM transaction_documents WHERE id = $1`, uuid.UUID(docID))
	return scanDocument(row)
}

func (s *PostgresStore) UpdateDocument(ctx context.Context, d *models.TransactionDocument) error {
	res, err := s.exec(ctx).ExecContext(ctx, `
		UPDATE transaction_documents
		SET status = $2, rejection_reason = $3, validated_by = $4, validated_at = $5, updated_at = $6
		WHERE id = $1`,
		uuid.UUID(d.ID), string(d.Status), d.RejectionReason, nullUUID(d.ValidatedBy), nullTime(d.ValidatedAt), d.UpdatedAt,
	)
	return affectedOne(res, err, "update document")
}

// chainFilter renders the WHERE clause selecting one version chain.
func chainFilter(key models.ChainKey) (string, []any) {
	if key.ConditionID != nil {
		return `condition_id = $1`, []any{uuid.UUID(*key.ConditionID)}
	}
	return `transaction_id = $1 AND condition_id IS NULL AND category = $2`,
		[]any{uuid.UUID(key.TransactionID), key.Category}
}

func (s *PostgresStore) LatestInChain(ctx context.Context, key models.ChainKey) (*models.TransactionDocument, error) {
	where, args := chainFilter(key)
	row := s.exec(ctx).QueryRowContext(ctx, `SELECT `+documentColumns+` FROM transaction_documents
		WHERE `+where+` ORDER BY version DESC LIMIT 1`, args...)
	return scanDocument(row)
}

func (s *PostgresStore) ListChain(ctx context.Context, key models.ChainKey) ([]*models.TransactionDocument, error) {
	where, args := chainFilter(key)
	return s.queryDocuments(ctx, `SELECT `+documentColumns+` FROM transaction_documents
		WHERE `+where+` ORDER BY version`, args...)
}

func (s *PostgresStore) ListDocuments(ctx context.Context, txID id.TransactionID) ([]*models.TransactionDocument, error) {
	return s.queryDocuments(ctx, `SELECT `+documentColumns+` FROM transaction_documents
		WHERE transaction_id = $1 ORDER BY category, condition_id NULLS LAST, version`, uuid.UUID(txID))
}

func (s *PostgresStore) queryDocuments(ctx context.Context, query string, args ...any) ([]*models.TransactionDocument, error) {
	rows, err := s.exec(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	out := make([]*models.TransactionDocument, 0)
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
