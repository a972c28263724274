package store

import (
	"time"

	"dealflow/internal/workflow/models"
	id "dealflow/pkg/domain"
)

var fixtureNow = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

type fixture struct {
	tx    *models.Transaction
	steps []*models.TransactionStep
}

func newFixture() fixture {
	txID := id.NewTransactionID()
	steps := []*models.TransactionStep{
		{ID: id.NewStepID(), TransactionID: txID, StepOrder: 1, Slug: "offer-submitted", Name: "Offer submitted", Status: models.StepStatusActive, EnteredAt: &fixtureNow},
		{ID: id.NewStepID(), TransactionID: txID, StepOrder: 2, Slug: "offer-accepted", Name: "Offer accepted", Status: models.StepStatusPending},
	}
	current := steps[0].ID
	return fixture{
		tx: &models.Transaction{
			ID:            txID,
			OwnerID:       id.NewUserID(),
			ClientID:      id.NewClientID(),
			Type:          models.TransactionTypePurchase,
			TemplateID:    "purchase-standard",
			CurrentStepID: &current,
			CreatedAt:     fixtureNow,
			UpdatedAt:     fixtureNow,
		},
		steps: steps,
	}
}

func (f fixture) condition(key string, level models.ConditionLevel, due *time.Time) *models.Condition {
	return &models.Condition{
		ID:            id.NewConditionID(),
		TransactionID: f.tx.ID,
		StepID:        f.steps[0].ID,
		TemplateKey:   key,
		Title:         key,
		Labels:        map[string]string{"en": key, "fr": key},
		Level:         level,
		Status:        models.ConditionStatusPending,
		SourceType:    models.SourceLegal,
		DueDate:       due,
		CreatedAt:     fixtureNow,
		UpdatedAt:     fixtureNow,
	}
}

func (f fixture) document(conditionID *id.ConditionID, category string, previous *models.TransactionDocument) *models.TransactionDocument {
	file := models.FileMetadata{URL: "https://files.example/" + category + ".pdf", Name: category + ".pdf", Size: 2048, MimeType: "application/pdf"}
	return models.NewDocumentVersion(id.NewDocumentID(), f.tx.ID, conditionID, category, file, previous, f.tx.OwnerID, fixtureNow)
}
