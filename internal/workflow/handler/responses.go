package handler

import (
	"dealflow/internal/workflow/catalog"
	"dealflow/internal/workflow/models"
)

type templateListResponse struct {
	Templates []*catalog.Template `json:"templates"`
}

type stepListResponse struct {
	Steps []*models.TransactionStep `json:"steps"`
}

type conditionListResponse struct {
	Conditions []*models.Condition `json:"conditions"`
}

type batchResolveResponse struct {
	Results []models.ResolveOutcome `json:"results"`
}

type documentListResponse struct {
	Documents []*models.TransactionDocument `json:"documents"`
}

type activityListResponse struct {
	Activity []*models.ActivityEntry `json:"activity"`
}
