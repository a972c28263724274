package handler

import (
	"strings"

	"dealflow/internal/workflow/models"
	"dealflow/internal/workflow/service"
	id "dealflow/pkg/domain"
	dErrors "dealflow/pkg/domain-errors"
	"dealflow/pkg/platform/httputil"
)

// maxBatchResolutions bounds one batch request.
const maxBatchResolutions = 100

type CreateTransactionRequest struct {
	ClientID   string          `json:"clientId" validate:"required,uuid"`
	Type       string          `json:"type" validate:"required,oneof=purchase sale"`
	TemplateID string          `json:"templateId" validate:"max=100"`
	KeyDates   models.KeyDates `json:"keyDates"`
	Profile    *ProfileRequest `json:"profile"`
}

func (r *CreateTransactionRequest) Normalize() {
	r.ClientID = strings.TrimSpace(r.ClientID)
	r.Type = strings.ToLower(strings.TrimSpace(r.Type))
	r.TemplateID = strings.TrimSpace(r.TemplateID)
	if r.Profile != nil {
		r.Profile.Normalize()
	}
}

func (r *CreateTransactionRequest) Validate() error {
	if err := httputil.ValidateStruct(r); err != nil {
		return err
	}
	if r.Profile != nil {
		return r.Profile.Validate()
	}
	return nil
}

func (r *CreateTransactionRequest) toInput() (service.CreateTransactionInput, error) {
	clientID, err := id.ParseClientID(r.ClientID)
	if err != nil {
		return service.CreateTransactionInput{}, err
	}
	in := service.CreateTransactionInput{
		ClientID:   clientID,
		Type:       models.TransactionType(r.Type),
		TemplateID: r.TemplateID,
		KeyDates:   r.KeyDates,
	}
	if r.Profile != nil {
		profile := r.Profile.toInput()
		in.Profile = &profile
	}
	return in, nil
}

// ProfileRequest classifies the property. hasWell and hasSeptic default from
// the property context when omitted.
type ProfileRequest struct {
	PropertyType    string `json:"propertyType" validate:"required,oneof=house condo land"`
	PropertyContext string `json:"propertyContext" validate:"omitempty,oneof=urban suburban rural"`
	IsFinanced      bool   `json:"isFinanced"`
	HasWell         *bool  `json:"hasWell"`
	HasSeptic       *bool  `json:"hasSeptic"`
}

func (r *ProfileRequest) Normalize() {
	r.PropertyType = strings.ToLower(strings.TrimSpace(r.PropertyType))
	r.PropertyContext = strings.ToLower(strings.TrimSpace(r.PropertyContext))
}

func (r *ProfileRequest) Validate() error {
	return httputil.ValidateStruct(r)
}

func (r *ProfileRequest) toInput() models.ProfileInput {
	return models.ProfileInput{
		PropertyType:    models.PropertyType(r.PropertyType),
		PropertyContext: models.PropertyContext(r.PropertyContext),
		IsFinanced:      r.IsFinanced,
		HasWell:         r.HasWell,
		HasSeptic:       r.HasSeptic,
	}
}

type ResolveRequest struct {
	ResolutionType string `json:"resolutionType" validate:"required,oneof=completed waived not_applicable skipped_with_risk"`
	Note           string `json:"note" validate:"max=2000"`
}

func (r *ResolveRequest) Normalize() {
	r.ResolutionType = strings.TrimSpace(r.ResolutionType)
	r.Note = strings.TrimSpace(r.Note)
}

func (r *ResolveRequest) Validate() error {
	return httputil.ValidateStruct(r)
}

func (r *ResolveRequest) toInput(conditionID id.ConditionID) service.ResolveInput {
	return service.ResolveInput{
		ConditionID:    conditionID,
		ResolutionType: models.ResolutionType(r.ResolutionType),
		Note:           r.Note,
	}
}

type BatchResolveItem struct {
	ConditionID string `json:"conditionId" validate:"required,uuid"`
	ResolveRequest
}

type BatchResolveRequest struct {
	Resolutions []BatchResolveItem `json:"resolutions" validate:"required,min=1,dive"`
}

func (r *BatchResolveRequest) Normalize() {
	for i := range r.Resolutions {
		r.Resolutions[i].ConditionID = strings.TrimSpace(r.Resolutions[i].ConditionID)
		r.Resolutions[i].ResolveRequest.Normalize()
	}
}

func (r *BatchResolveRequest) Validate() error {
	if len(r.Resolutions) > maxBatchResolutions {
		return dErrors.New(dErrors.CodeValidation, "resolutions must contain at most 100 items")
	}
	return httputil.ValidateStruct(r)
}

func (r *BatchResolveRequest) toInputs() ([]service.ResolveInput, error) {
	items := make([]service.ResolveInput, 0, len(r.Resolutions))
	for _, item := range r.Resolutions {
		conditionID, err := id.ParseConditionID(item.ConditionID)
		if err != nil {
			return nil, err
		}
		items = append(items, item.toInput(conditionID))
	}
	return items, nil
}

type AdvanceRequest struct {
	ExpectedStepID string `json:"expectedStepId" validate:"required,uuid"`
}

func (r *AdvanceRequest) Normalize() { r.ExpectedStepID = strings.TrimSpace(r.ExpectedStepID) }

func (r *AdvanceRequest) Validate() error { return httputil.ValidateStruct(r) }

type SkipRequest struct {
	ExpectedStepID string `json:"expectedStepId" validate:"required,uuid"`
	Reason         string `json:"reason" validate:"required,max=2000"`
}

func (r *SkipRequest) Normalize() {
	r.ExpectedStepID = strings.TrimSpace(r.ExpectedStepID)
	r.Reason = strings.TrimSpace(r.Reason)
}

func (r *SkipRequest) Validate() error { return httputil.ValidateStruct(r) }

// FileRequest carries the metadata of a file already stored by the uploader.
type FileRequest struct {
	FileURL  string `json:"fileUrl" validate:"required,url"`
	FileName string `json:"fileName" validate:"required,max=255"`
	FileSize int64  `json:"fileSize" validate:"gt=0"`
	MimeType string `json:"mimeType" validate:"required"`
}

func (r *FileRequest) Normalize() {
	r.FileURL = strings.TrimSpace(r.FileURL)
	r.FileName = strings.TrimSpace(r.FileName)
	r.MimeType = strings.ToLower(strings.TrimSpace(r.MimeType))
}

func (r *FileRequest) Validate() error { return httputil.ValidateStruct(r) }

func (r *FileRequest) toFile() models.FileMetadata {
	return models.FileMetadata{
		URL:      r.FileURL,
		Name:     r.FileName,
		Size:     r.FileSize,
		MimeType: r.MimeType,
	}
}

type UploadDocumentRequest struct {
	TransactionID string  `json:"transactionId" validate:"required,uuid"`
	ConditionID   *string `json:"conditionId" validate:"omitempty,uuid"`
	Category      string  `json:"category" validate:"max=100"`
	FileRequest
}

func (r *UploadDocumentRequest) Normalize() {
	r.TransactionID = strings.TrimSpace(r.TransactionID)
	if r.ConditionID != nil {
		trimmed := strings.TrimSpace(*r.ConditionID)
		if trimmed == "" {
			r.ConditionID = nil
		} else {
			r.ConditionID = &trimmed
		}
	}
	r.Category = strings.TrimSpace(r.Category)
	r.FileRequest.Normalize()
}

func (r *UploadDocumentRequest) Validate() error {
	if err := httputil.ValidateStruct(r); err != nil {
		return err
	}
	if r.ConditionID == nil && r.Category == "" {
		return dErrors.New(dErrors.CodeValidation, "category is required when conditionId is absent")
	}
	return nil
}

func (r *UploadDocumentRequest) toInput() (service.UploadInput, error) {
	txID, err := id.ParseTransactionID(r.TransactionID)
	if err != nil {
		return service.UploadInput{}, err
	}
	in := service.UploadInput{
		TransactionID: txID,
		Category:      r.Category,
		File:          r.toFile(),
	}
	if r.ConditionID != nil {
		conditionID, err := id.ParseConditionID(*r.ConditionID)
		if err != nil {
			return service.UploadInput{}, err
		}
		in.ConditionID = &conditionID
	}
	return in, nil
}

type RejectRequest struct {
	Reason string `json:"reason" validate:"required,max=2000"`
}

func (r *RejectRequest) Normalize() { r.Reason = strings.TrimSpace(r.Reason) }

func (r *RejectRequest) Validate() error { return httputil.ValidateStruct(r) }
